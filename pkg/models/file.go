package models

import (
	"time"
)

// PayloadMode selects how the opaque payload is extracted
type PayloadMode string

const (
	PayloadText   PayloadMode = "text"   // alphabet-filtered lines, base64 decoded
	PayloadBinary PayloadMode = "binary" // raw bytes after the N-th newline
)

// Header holds the format/version fields declared by a preamble
type Header struct {
	Format         string   `json:"format" yaml:"format"` // Name of the matching format variant
	FormatVersion  int      `json:"format_version" yaml:"format_version"`
	MajorVersion   int      `json:"major_version" yaml:"major_version"`
	MinorVersion   int      `json:"minor_version" yaml:"minor_version"`
	EncoderVersion int      `json:"encoder_version" yaml:"encoder_version"`
	EncoderID      string   `json:"encoder_id" yaml:"encoder_id"`
	FileVersion    int      `json:"file_version" yaml:"file_version"`
	FileID         string   `json:"file_id" yaml:"file_id"`
	Fields         []string `json:"fields" yaml:"fields"` // Fields captured directly by the pattern
}

// Payload is the opaque blob following the preamble
type Payload struct {
	Mode PayloadMode `json:"mode" yaml:"mode"`
	Text []byte      `json:"-" yaml:"-"` // Filtered payload text (text mode only)
	Data []byte      `json:"-" yaml:"-"` // Decoded payload bytes
	Hash string      `json:"blake3" yaml:"blake3"`
}

// Size returns the decoded payload size in bytes
func (p *Payload) Size() int {
	if p == nil {
		return 0
	}
	return len(p.Data)
}

// EncodedFile is a protected file loaded for recovery.
// It is built once by the loader and never mutated afterwards.
type EncodedFile struct {
	Path    string    // Full file path
	Name    string    // File name
	Size    int64     // File size in bytes
	ModTime time.Time // Modification time
	Raw     []byte    // File content
	Header  *Header   // Parsed preamble, nil when absent
	Format  string    // Name of the matching format variant
	Payload *Payload  // Extracted payload
}

// FileInfo contains basic file information without content
type FileInfo struct {
	Path      string
	Size      int64
	ModTime   time.Time
	IsDir     bool
	IsSymlink bool
	IsHidden  bool
}
