package payload

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/iSundram/ion/pkg/models"
)

const urlSafeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

func TestExtract_TextMode(t *testing.T) {
	data := []byte("hello payload bytes \x00\x01\x02\xff")
	encoded := base64.StdEncoding.EncodeToString(data)

	raw := "<?php //HDR 1:0 5:abc12 7:def34\n?>\n" +
		"// a comment line\n" +
		encoded[:10] + "\n\n" +
		"# another comment\n" +
		"  " + encoded[10:] + "  \n"

	preamble, p, err := Extract([]byte(raw), Options{Mode: models.PayloadText})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if preamble != "<?php //HDR 1:0 5:abc12 7:def34\n" {
		t.Errorf("preamble = %q", preamble)
	}
	if string(p.Text) != encoded {
		t.Errorf("Text = %q, want %q", p.Text, encoded)
	}
	if !bytes.Equal(p.Data, data) {
		t.Errorf("Data = %q, want %q", p.Data, data)
	}
	if p.Mode != models.PayloadText {
		t.Errorf("Mode = %q, want text", p.Mode)
	}
	if len(p.Hash) != 64 {
		t.Errorf("Hash = %q, want 64 hex characters", p.Hash)
	}
}

func TestExtract_LineStartingWithSlashes(t *testing.T) {
	// 0xff 0xff 0x20 encodes to "//8g"
	data := append([]byte("stream head bytes, 57 of them, before the wrapped line..."), 0xff, 0xff, 0x20)
	data = append(data, []byte("*tail of the stream")...)
	encoded := base64.StdEncoding.EncodeToString(data)
	if encoded[76:80] != "//8g" {
		t.Fatalf("fixture line 2 starts with %q, want //8g", encoded[76:80])
	}

	raw := "<?php //HDR 1:0 5:abc12 7:def34\n?>\n" + encoded[:76] + "\n" + encoded[76:] + "\n"
	_, p, err := Extract([]byte(raw), Options{Mode: models.PayloadText})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !bytes.Equal(p.Data, data) {
		t.Errorf("Data = %q, want %q", p.Data, data)
	}
}

func TestIsComment(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"// a comment line", true},
		{"//comment-with;punctuation", true},
		{"# shell style", true},
		{"//8gKiAq", false},
		{"////", false},
		{"aGVsbG8=", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := isComment([]byte(tt.line)); got != tt.want {
				t.Errorf("isComment(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestExtract_FiltersForeignCharacters(t *testing.T) {
	data := []byte("filtered")
	encoded := base64.StdEncoding.EncodeToString(data)
	raw := "x ?>\n" + encoded[:4] + "!!**" + encoded[4:] + "\n"

	_, p, err := Extract([]byte(raw), Options{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !bytes.Equal(p.Data, data) {
		t.Errorf("Data = %q, want %q", p.Data, data)
	}
}

func TestExtract_BinaryMode(t *testing.T) {
	body := []byte{0x78, 0x9c, 0x00, '\n', 0xff, 0x10}
	raw := append([]byte("<?php //IONCUBE 4.7\necho 'loader';\n?>\n"), body...)

	_, p, err := Extract(raw, Options{Mode: models.PayloadBinary, SkipLines: 3})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !bytes.Equal(p.Data, body) {
		t.Errorf("Data = %v, want %v", p.Data, body)
	}
	if p.Text != nil {
		t.Errorf("Text = %q, want nil in binary mode", p.Text)
	}
}

func TestExtract_BinaryModeTooFewLines(t *testing.T) {
	raw := []byte("<?php ?>\nonly one newline")

	_, _, err := Extract(raw, Options{Mode: models.PayloadBinary, SkipLines: 3})
	if !errors.Is(err, models.ErrNoPayload) {
		t.Errorf("Extract() error = %v, want ErrNoPayload", err)
	}
}

func TestExtract_StructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		mode models.PayloadMode
		want error
	}{
		{"no delimiter", "<?php //HDR 1:0 5:abc12 7:def34\n", models.PayloadText, models.ErrNoDelimiter},
		{"nothing after delimiter", "<?php //HDR 1:0 5:abc12 7:def34\n?>", models.PayloadText, models.ErrNoPayload},
		{"only comments and blanks", "<?php ?>\n\n// c\n# d\n   \n", models.PayloadText, models.ErrNoPayload},
		{"only foreign characters", "<?php ?>\n!!! ***\n", models.PayloadText, models.ErrNoPayload},
		{"binary ends at delimiter", "a\nb\n?>", models.PayloadBinary, models.ErrNoPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, p, err := Extract([]byte(tt.raw), Options{Mode: tt.mode})
			if !errors.Is(err, tt.want) {
				t.Fatalf("Extract() error = %v, want %v", err, tt.want)
			}
			if !models.IsStructural(err) {
				t.Errorf("Extract() error %T is not structural", err)
			}
			if p != nil {
				t.Errorf("payload = %+v, want nil", p)
			}
		})
	}
}

func TestDecodeBase64(t *testing.T) {
	data := []byte{0xfb, 0xff, 0xbf, 0x01, 0x02}

	tests := []struct {
		name     string
		alphabet string
	}{
		{"standard", StdAlphabet},
		{"url safe", urlSafeAlphabet},
		{"digits first", "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz+/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := EncodeBase64(data, tt.alphabet)
			if got := DecodeBase64(encoded, tt.alphabet); !bytes.Equal(got, data) {
				t.Errorf("DecodeBase64(EncodeBase64(x)) = %v, want %v", got, data)
			}
		})
	}
}

func TestDecodeBase64_Tolerance(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []byte
	}{
		{"missing padding", "aGk", []byte("hi")},
		{"missing padding on longer input", "aGVsbG8", []byte("hello")},
		{"dangling single quantum char", "aGVsbG8hA", []byte("hello!")},
		{"empty", "", nil},
		{"single character", "Q", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeBase64([]byte(tt.text), StdAlphabet); !bytes.Equal(got, tt.want) {
				t.Errorf("DecodeBase64(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}

	if got := DecodeBase64([]byte("aGk"), "short"); got != nil {
		t.Errorf("DecodeBase64 with bad alphabet = %v, want nil", got)
	}
}
