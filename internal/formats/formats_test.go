package formats

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iSundram/ion/pkg/models"
)

func builtinParser(t *testing.T) *Parser {
	t.Helper()
	formats, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin() error = %v", err)
	}
	return NewParser(formats)
}

func TestBuiltin(t *testing.T) {
	formats, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin() error = %v", err)
	}
	if len(formats) == 0 {
		t.Fatal("Builtin() returned no formats")
	}
	for _, f := range formats {
		if f.Regexp() == nil {
			t.Errorf("format %s not compiled", f.Name)
		}
		if f.Delimiter != DefaultDelimiter {
			t.Errorf("format %s delimiter = %q, want %q", f.Name, f.Delimiter, DefaultDelimiter)
		}
		if f.SkipLines != DefaultSkipLines {
			t.Errorf("format %s skip_lines = %d, want %d", f.Name, f.SkipLines, DefaultSkipLines)
		}
	}
}

func TestParser_GenericTagged(t *testing.T) {
	p := builtinParser(t)

	h, f, ok := p.Parse("<?php //HDR 1:0 5:abc12 7:def34\n?>")
	if !ok {
		t.Fatal("Parse() ok = false, want true")
	}
	if f.Name != "generic_tagged" {
		t.Errorf("format = %q, want generic_tagged", f.Name)
	}

	want := models.Header{
		MajorVersion:   1,
		MinorVersion:   0,
		EncoderVersion: 5,
		EncoderID:      "abc12",
		FileVersion:    7,
		FileID:         "def34",
	}
	if h.FormatVersion != 0 {
		t.Errorf("FormatVersion = %d, want 0", h.FormatVersion)
	}
	if h.MajorVersion != want.MajorVersion || h.MinorVersion != want.MinorVersion {
		t.Errorf("version = %d:%d, want %d:%d", h.MajorVersion, h.MinorVersion, want.MajorVersion, want.MinorVersion)
	}
	if h.EncoderVersion != want.EncoderVersion || h.EncoderID != want.EncoderID {
		t.Errorf("encoder = %d:%s, want %d:%s", h.EncoderVersion, h.EncoderID, want.EncoderVersion, want.EncoderID)
	}
	if h.FileVersion != want.FileVersion || h.FileID != want.FileID {
		t.Errorf("file = %d:%s, want %d:%s", h.FileVersion, h.FileID, want.FileVersion, want.FileID)
	}
	if len(h.Fields) != 6 {
		t.Errorf("Fields = %v, want 6 captured fields", h.Fields)
	}
}

func TestParser_ICBComment(t *testing.T) {
	p := builtinParser(t)

	h, f, ok := p.Parse("<?php //ICB0 83:0 8:1437d 9:2841c ?>")
	if !ok {
		t.Fatal("Parse() ok = false, want true")
	}
	if f.Name != "icb_comment" {
		t.Errorf("format = %q, want icb_comment", f.Name)
	}
	if h.FormatVersion != 0 || h.MajorVersion != 83 || h.EncoderID != "1437d" || h.FileID != "2841c" {
		t.Errorf("header = %+v", h)
	}
	if len(h.Fields) != 7 {
		t.Errorf("Fields = %v, want all 7", h.Fields)
	}
}

func TestParser_TrailingFieldsInherit(t *testing.T) {
	p := builtinParser(t)

	h, f, ok := p.Parse("This file was encoded by IONCUBE encoder 4.7 for PHP")
	if !ok {
		t.Fatal("Parse() ok = false, want true")
	}
	if f.Name != "ioncube_legacy" {
		t.Errorf("format = %q, want ioncube_legacy", f.Name)
	}
	if h.MajorVersion != 4 || h.MinorVersion != 7 {
		t.Errorf("version = %d.%d, want 4.7", h.MajorVersion, h.MinorVersion)
	}
	if h.EncoderVersion != 7 || h.EncoderID != "7" || h.FileVersion != 7 || h.FileID != "7" {
		t.Errorf("trailing fields = %d/%s/%d/%s, want all 7", h.EncoderVersion, h.EncoderID, h.FileVersion, h.FileID)
	}
	if f.PayloadMode != models.PayloadBinary {
		t.Errorf("PayloadMode = %q, want binary", f.PayloadMode)
	}
}

func TestParser_NoMatch(t *testing.T) {
	p := builtinParser(t)

	tests := []string{
		"",
		"<?php echo 'hello'; ?>",
		"hdr 1:0 5:abc12",
	}
	for _, preamble := range tests {
		t.Run(preamble, func(t *testing.T) {
			h, f, ok := p.Parse(preamble)
			if ok || h != nil || f != nil {
				t.Errorf("Parse(%q) = %v, %v, %v, want absent", preamble, h, f, ok)
			}
		})
	}
}

func TestLoader_UserFormatsFirst(t *testing.T) {
	dir := t.TempDir()
	content := `
formats:
  - name: custom
    pattern: 'CUSTOM(?P<major>\d+)-(?P<minor>\d+)'
    payload_mode: binary
    skip_lines: 2
    threshold: 20
`
	if err := os.WriteFile(filepath.Join(dir, "custom.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write format file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatalf("Failed to write notes: %v", err)
	}

	formats, err := NewLoader(dir).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if formats[0].Name != "custom" {
		t.Fatalf("first format = %q, want custom", formats[0].Name)
	}
	if formats[0].SkipLines != 2 || formats[0].Threshold != 20 {
		t.Errorf("custom format = %+v", formats[0])
	}

	h, f, ok := NewParser(formats).Parse("CUSTOM3-9")
	if !ok || f.Name != "custom" || h.MajorVersion != 3 || h.MinorVersion != 9 {
		t.Errorf("Parse() = %+v, %v, %v", h, f, ok)
	}
}

func TestLoader_InvalidPattern(t *testing.T) {
	dir := t.TempDir()
	content := "formats:\n  - name: broken\n    pattern: '(unclosed'\n"
	if err := os.WriteFile(filepath.Join(dir, "broken.yml"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write format file: %v", err)
	}

	if _, err := NewLoader(dir).Load(); err == nil {
		t.Error("Load() error = nil, want error for invalid pattern")
	}
}

func TestLoader_MissingDirectory(t *testing.T) {
	formats, err := NewLoader(filepath.Join(t.TempDir(), "missing")).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	builtin, _ := Builtin()
	if len(formats) != len(builtin) {
		t.Errorf("len(formats) = %d, want %d", len(formats), len(builtin))
	}
}

func TestParser_Match(t *testing.T) {
	p := builtinParser(t)

	tests := []struct {
		name   string
		raw    string
		format string
		ok     bool
	}{
		{"header before delimiter", "<?php //ICB1 2:3 4:aa 5:bb\n?>\nPAYLOAD", "icb_comment", true},
		{"header only after delimiter", "<?php\n?>\nHDR 1:0 5:abc12 7:def34", "", false},
		{"no delimiter", "HDR 1:0 5:abc12 7:def34", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, f, ok := p.Match([]byte(tt.raw))
			if ok != tt.ok {
				t.Fatalf("Match() ok = %v, want %v", ok, tt.ok)
			}
			if ok && f.Name != tt.format {
				t.Errorf("Match() format = %s, want %s", f.Name, tt.format)
			}
		})
	}
}
