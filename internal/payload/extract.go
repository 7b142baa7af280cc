// Package payload isolates the opaque blob that follows a preamble.
package payload

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/iSundram/ion/pkg/models"
	"github.com/zeebo/blake3"
)

// StdAlphabet is the canonical base64 alphabet
const StdAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// Options controls one extraction
type Options struct {
	Mode      models.PayloadMode
	Delimiter string // closing script delimiter, first occurrence ends the preamble
	SkipLines int    // binary-safe mode: data starts after this many newlines
}

// Extract splits raw file content into preamble and payload. It returns
// the preamble text (everything before the delimiter) so callers can
// match a header against it.
func Extract(raw []byte, opts Options) (preamble string, p *models.Payload, err error) {
	delim := []byte(opts.Delimiter)
	if len(delim) == 0 {
		delim = []byte("?>")
	}

	idx := bytes.Index(raw, delim)
	if idx < 0 {
		return "", nil, &models.StructuralError{Reason: "locating preamble boundary", Err: models.ErrNoDelimiter}
	}
	preamble = string(raw[:idx])
	rest := raw[idx+len(delim):]

	switch opts.Mode {
	case models.PayloadBinary:
		p, err = extractBinary(raw, idx+len(delim), opts.SkipLines)
	default:
		p, err = extractText(rest)
	}
	if err != nil {
		return preamble, nil, err
	}

	sum := blake3.Sum256(p.Data)
	p.Hash = hex.EncodeToString(sum[:])
	return preamble, p, nil
}

// extractText keeps payload-alphabet characters of every non-empty,
// non-comment line after the boundary
func extractText(rest []byte) (*models.Payload, error) {
	var text []byte
	for _, line := range bytes.Split(rest, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 || isComment(line) {
			continue
		}
		text = append(text, FilterAlphabet(line)...)
	}
	if len(text) == 0 {
		return nil, &models.StructuralError{Reason: "extracting text payload", Err: models.ErrNoPayload}
	}

	return &models.Payload{
		Mode: models.PayloadText,
		Text: text,
		Data: DecodeBase64(text, StdAlphabet),
	}, nil
}

// isComment reports whether a trimmed line is a script comment. A line
// starting with "//" is payload when every character is in the alphabet,
// since "//" is itself valid base64.
func isComment(line []byte) bool {
	if line[0] == '#' {
		return true
	}
	if !bytes.HasPrefix(line, []byte("//")) {
		return false
	}
	return len(FilterAlphabet(line)) != len(line)
}

// extractBinary takes raw bytes after the n-th newline of the file.
// The data start never precedes the end of the delimiter.
func extractBinary(raw []byte, minStart, n int) (*models.Payload, error) {
	if n <= 0 {
		n = 3
	}
	start := -1
	seen := 0
	for i, b := range raw {
		if b == '\n' {
			seen++
			if seen == n {
				start = i + 1
				break
			}
		}
	}
	if start < 0 {
		return nil, &models.StructuralError{Reason: "extracting binary payload", Err: models.ErrNoPayload}
	}
	if start < minStart {
		start = minStart
	}
	if start >= len(raw) {
		return nil, &models.StructuralError{Reason: "extracting binary payload", Err: models.ErrNoPayload}
	}

	data := make([]byte, len(raw)-start)
	copy(data, raw[start:])
	return &models.Payload{
		Mode: models.PayloadBinary,
		Data: data,
	}, nil
}

// FilterAlphabet keeps characters that can appear in an encoded
// payload: the standard base64 set, padding and the URL-safe extras
func FilterAlphabet(line []byte) []byte {
	out := make([]byte, 0, len(line))
	for _, c := range line {
		if isAlnum(c) || c == '+' || c == '/' || c == '=' || c == '-' || c == '_' {
			out = append(out, c)
		}
	}
	return out
}

// DecodeBase64 remaps text from alphabet to the canonical one and
// decodes it. Characters outside alphabet are dropped, padding is
// repaired and a dangling single character is discarded. It returns
// nil when nothing decodes.
func DecodeBase64(text []byte, alphabet string) []byte {
	if len(alphabet) != 64 {
		return nil
	}
	var table [256]int16
	for i := range table {
		table[i] = -1
	}
	for i := 0; i < 64; i++ {
		table[alphabet[i]] = int16(i)
	}

	clean := make([]byte, 0, len(text))
	for _, c := range text {
		if v := table[c]; v >= 0 {
			clean = append(clean, StdAlphabet[v])
		}
	}
	if len(clean)%4 == 1 {
		clean = clean[:len(clean)-1]
	}
	if len(clean) == 0 {
		return nil
	}

	decoded, err := base64.RawStdEncoding.DecodeString(string(clean))
	if err != nil {
		return nil
	}
	return decoded
}

// EncodeBase64 encodes data with alphabet, padded
func EncodeBase64(data []byte, alphabet string) []byte {
	std := base64.StdEncoding.EncodeToString(data)
	if alphabet == StdAlphabet {
		return []byte(std)
	}
	out := make([]byte, len(std))
	for i := 0; i < len(std); i++ {
		c := std[i]
		if j := strings.IndexByte(StdAlphabet, c); j >= 0 {
			out[i] = alphabet[j]
		} else {
			out[i] = c
		}
	}
	return out
}

func isAlnum(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
