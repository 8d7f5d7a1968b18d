package pack

import (
	"bufio"
	"bytes"
	"context"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

const (
	uploadPackAdvertisement = "application/x-git-upload-pack-advertisement"
	uploadPackResult        = "application/x-git-upload-pack-result"
)

// Ref is one reference advertised by a remote during the info/refs
// handshake.
type Ref struct {
	Oid [20]byte
	Hex string
	Name string
}

// Discover performs "GET <base>/info/refs?service=git-upload-pack"
// and returns every advertised ref. The first pkt-line ("# service=...")
// and the capability suffix tacked onto the first ref line are both
// accounted for.
func Discover(ctx context.Context, client *http.Client, base string) ([]Ref, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/info/refs?service=git-upload-pack", nil)
	if err != nil {
		return nil, errors.Wrap(err, "building info/refs request")
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetching info/refs")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("info/refs returned status %s", resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); ct != uploadPackAdvertisement {
		return nil, errors.Errorf("info/refs returned unexpected content-type %q", ct)
	}

	br := bufio.NewReader(resp.Body)
	var refs []Ref
	first := true
	for {
		line, err := ReadPktLine(br)
		if err != nil {
			return nil, errors.Wrap(err, "reading ref advertisement")
		}
		if first {
			first = false
			if bytes.HasPrefix(line, []byte("# service=")) {
				// The service announcement is followed by its own
				// flush-pkt before the ref list begins.
				if _, err := ReadPktLine(br); err != nil {
					return nil, errors.Wrap(err, "reading post-service flush")
				}
				continue
			}
		}
		if line == nil { // flush-pkt: end of ref advertisement
			break
		}
		line = bytes.TrimSuffix(line, []byte("\n"))
		if len(line) == 0 {
			continue
		}

		fields := bytes.SplitN(line, []byte{' '}, 2)
		if len(fields) != 2 {
			continue
		}
		hexOid := fields[0]
		rest := fields[1]
		if i := bytes.IndexByte(rest, 0); i >= 0 {
			rest = rest[:i] // strip the "\x00capability-list" suffix on the first ref
		}

		ref := Ref{Hex: string(hexOid), Name: string(rest)}
		if _, err := decodeHexOid(hexOid, &ref.Oid); err != nil {
			return nil, errors.Wrapf(err, "ref %s has an invalid oid", ref.Name)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// Fetch negotiates a packfile for want (a commit oid) with no "have"s
// and no depth limit, so the server sends the full history reachable
// from want, and returns the raw pack bytes with their own trailing
// checksum still attached.
func Fetch(ctx context.Context, client *http.Client, base string, want string) ([]byte, error) {
	var body bytes.Buffer
	if err := WritePktLine(&body, []byte("want "+want+"\n")); err != nil {
		return nil, err
	}
	if err := WriteFlush(&body); err != nil {
		return nil, err
	}
	if err := WritePktLine(&body, []byte("done\n")); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/git-upload-pack", &body)
	if err != nil {
		return nil, errors.Wrap(err, "building upload-pack request")
	}
	req.Header.Set("Content-Type", "application/x-git-upload-pack-request")
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetching packfile")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("git-upload-pack returned status %s", resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); ct != uploadPackResult {
		return nil, errors.Errorf("git-upload-pack returned unexpected content-type %q", ct)
	}

	br := bufio.NewReader(resp.Body)
	// Some servers prefix the result with an "NAK\n" pkt-line before the
	// raw pack bytes begin; a server that skips straight to "PACK" also
	// has to be tolerated, so peek before consuming a pkt-line.
	peeked, err := br.Peek(4)
	if err == nil && string(peeked) != "PACK" {
		if _, err := ReadPktLine(br); err != nil {
			return nil, errors.Wrap(err, "reading upload-pack acknowledgment")
		}
	}

	data, err := io.ReadAll(br)
	if err != nil {
		return nil, errors.Wrap(err, "reading packfile body")
	}
	return data, nil
}

func decodeHexOid(hexOid []byte, out *[20]byte) (bool, error) {
	if len(hexOid) != 40 {
		return false, errors.Errorf("oid %q is not 40 hex characters", hexOid)
	}
	var decoded [20]byte
	if _, err := hex.Decode(decoded[:], hexOid); err != nil {
		return false, errors.Errorf("oid %q is not valid hex", hexOid)
	}
	*out = decoded
	return true, nil
}
