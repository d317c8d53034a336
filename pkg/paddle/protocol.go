package paddle

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/menta2k/region-ocr/pkg/client"
	"github.com/menta2k/region-ocr/pkg/types"
)

// DefaultSocketPath is where the OCR server listens
const DefaultSocketPath = "/tmp/paddle_socket_unix"

// MaxFrameSize bounds a single frame so a corrupt header cannot make us
// allocate gigabytes.
const MaxFrameSize = 64 << 20

// WriteFrame writes an 8-byte big-endian length followed by payload
func WriteFrame(w io.Writer, payload []byte) error {
	var hdr [8]byte
	binary.BigEndian.PutUint64(hdr[:], uint64(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one length-prefixed frame. A zero length yields an empty,
// non-nil payload.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint64(hdr[:])
	if n > MaxFrameSize {
		return nil, fmt.Errorf("%w: frame of %d bytes exceeds limit %d", client.ErrProtocol, n, MaxFrameSize)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("%w: short frame: %v", client.ErrProtocol, err)
	}
	return payload, nil
}

type recognition struct {
	Texts []string       `json:"rec_texts"`
	Polys [][][2]float64 `json:"rec_polys"`
}

type response struct {
	Res   *recognition `json:"res,omitempty"`
	Error string       `json:"error,omitempty"`
}

// DecodeResults zips rec_texts with rec_polys in input order. An empty body
// means no text was found. Extra entries in the longer array are dropped.
func DecodeResults(body []byte) ([]types.OcrResult, error) {
	if len(body) == 0 {
		return []types.OcrResult{}, nil
	}
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", client.ErrProtocol, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: server error: %s", client.ErrProtocol, resp.Error)
	}
	if resp.Res == nil {
		return nil, fmt.Errorf("%w: response has no \"res\" object", client.ErrProtocol)
	}

	n := min(len(resp.Res.Texts), len(resp.Res.Polys))
	results := make([]types.OcrResult, n)
	for i := 0; i < n; i++ {
		results[i] = types.OcrResult{Text: resp.Res.Texts[i], Polygon: resp.Res.Polys[i]}
	}
	return results, nil
}

// EncodeResults renders results in the server's response shape. No results
// encode to an empty body.
func EncodeResults(results []types.OcrResult) ([]byte, error) {
	if len(results) == 0 {
		return nil, nil
	}
	rec := recognition{
		Texts: make([]string, len(results)),
		Polys: make([][][2]float64, len(results)),
	}
	for i, r := range results {
		rec.Texts[i] = r.Text
		rec.Polys[i] = r.Polygon
	}
	return json.Marshal(response{Res: &rec})
}

func encodeError(msg string) []byte {
	body, _ := json.Marshal(response{Error: msg})
	return body
}
