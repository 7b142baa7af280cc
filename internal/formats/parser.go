package formats

import (
	"bytes"
	"strconv"

	"github.com/iSundram/ion/pkg/models"
)

// Canonical header schema, in order
const (
	FieldFormat         = "format"
	FieldMajor          = "major"
	FieldMinor          = "minor"
	FieldEncoderVersion = "encoder_version"
	FieldEncoderID      = "encoder_id"
	FieldFileVersion    = "file_version"
	FieldFileID         = "file_id"
)

var schema = []string{
	FieldFormat,
	FieldMajor,
	FieldMinor,
	FieldEncoderVersion,
	FieldEncoderID,
	FieldFileVersion,
	FieldFileID,
}

// Parser matches preamble text against an ordered format list
type Parser struct {
	formats []*Format
}

// NewParser creates a parser over formats, tried in order
func NewParser(formats []*Format) *Parser {
	return &Parser{formats: formats}
}

// Formats returns the formats in match order
func (p *Parser) Formats() []*Format {
	return p.formats
}

// Parse extracts header fields from preamble. The first matching
// format wins. ok is false when nothing matched; that is not an error.
func (p *Parser) Parse(preamble string) (header *models.Header, format *Format, ok bool) {
	for _, f := range p.formats {
		if h, ok := f.parse(preamble); ok {
			return h, f, true
		}
	}
	return nil, nil, false
}

// Match is Parse over raw file content: each format sees only the text
// before its own delimiter.
func (p *Parser) Match(raw []byte) (header *models.Header, format *Format, ok bool) {
	for _, f := range p.formats {
		idx := bytes.Index(raw, []byte(f.Delimiter))
		if idx < 0 {
			continue
		}
		if h, ok := f.parse(string(raw[:idx])); ok {
			return h, f, true
		}
	}
	return nil, nil, false
}

func (f *Format) parse(preamble string) (*models.Header, bool) {
	m := f.re.FindStringSubmatch(preamble)
	if m == nil {
		return nil, false
	}

	captured := make(map[string]string)
	for i, name := range f.re.SubexpNames() {
		if name == "" || i >= len(m) || m[i] == "" {
			continue
		}
		captured[name] = m[i]
	}
	return bindHeader(f.Name, captured), true
}

// bindHeader maps captured groups onto the seven-field schema. Fields
// after the last captured one inherit the last captured value; fields
// before it that were not captured stay empty.
func bindHeader(format string, captured map[string]string) *models.Header {
	h := &models.Header{Format: format}

	lastIdx := -1
	for i, field := range schema {
		if _, ok := captured[field]; ok {
			lastIdx = i
			h.Fields = append(h.Fields, field)
		}
	}

	values := make(map[string]string, len(schema))
	for i, field := range schema {
		if v, ok := captured[field]; ok {
			values[field] = v
		} else if lastIdx >= 0 && i > lastIdx {
			values[field] = captured[schema[lastIdx]]
		}
	}

	h.FormatVersion = atoi(values[FieldFormat])
	h.MajorVersion = atoi(values[FieldMajor])
	h.MinorVersion = atoi(values[FieldMinor])
	h.EncoderVersion = atoi(values[FieldEncoderVersion])
	h.EncoderID = values[FieldEncoderID]
	h.FileVersion = atoi(values[FieldFileVersion])
	h.FileID = values[FieldFileID]
	return h
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
