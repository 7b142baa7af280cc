// Package formats describes the preamble generations produced by the
// encoder and parses header fields out of them.
package formats

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/iSundram/ion/pkg/models"
	"gopkg.in/yaml.v3"
)

//go:embed formats.yaml
var builtinFormats []byte

// DefaultDelimiter closes the textual preamble
const DefaultDelimiter = "?>"

// DefaultSkipLines is the binary-safe newline count
const DefaultSkipLines = 3

// Format is one preamble generation. Differences between encoder
// generations are expressed here as data, not code.
type Format struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Pattern     string             `yaml:"pattern"`
	PayloadMode models.PayloadMode `yaml:"payload_mode"`
	SkipLines   int                `yaml:"skip_lines"`
	Delimiter   string             `yaml:"delimiter"`
	Threshold   int                `yaml:"threshold"` // 0 = use the global threshold

	re *regexp.Regexp
}

// Regexp returns the compiled pattern
func (f *Format) Regexp() *regexp.Regexp {
	return f.re
}

// compile validates the format and fills defaults
func (f *Format) compile() error {
	if f.Name == "" {
		return fmt.Errorf("format without name")
	}
	re, err := regexp.Compile(f.Pattern)
	if err != nil {
		return fmt.Errorf("format %s: invalid pattern: %w", f.Name, err)
	}
	f.re = re

	if f.PayloadMode == "" {
		f.PayloadMode = models.PayloadText
	}
	if f.PayloadMode != models.PayloadText && f.PayloadMode != models.PayloadBinary {
		return fmt.Errorf("format %s: unknown payload mode %q", f.Name, f.PayloadMode)
	}
	if f.SkipLines <= 0 {
		f.SkipLines = DefaultSkipLines
	}
	if f.Delimiter == "" {
		f.Delimiter = DefaultDelimiter
	}
	return nil
}

// formatFile represents a YAML format file
type formatFile struct {
	Formats []*Format `yaml:"formats"`
}

// Loader loads format variants from the built-in catalog and an
// optional directory of YAML files
type Loader struct {
	formatsPath string
}

// NewLoader creates a new format loader
func NewLoader(formatsPath string) *Loader {
	return &Loader{
		formatsPath: formatsPath,
	}
}

// Load returns user formats (if any) followed by the built-in ones.
// User formats come first so they can shadow a built-in generation.
func (l *Loader) Load() ([]*Format, error) {
	var formats []*Format

	if l.formatsPath != "" {
		if _, err := os.Stat(l.formatsPath); err == nil {
			err := filepath.Walk(l.formatsPath, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}

				// Skip directories and non-YAML files
				if info.IsDir() || (filepath.Ext(path) != ".yaml" && filepath.Ext(path) != ".yml") {
					return nil
				}

				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				loaded, err := parseFormats(data)
				if err != nil {
					return fmt.Errorf("failed to load %s: %w", path, err)
				}
				formats = append(formats, loaded...)
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
	}

	builtin, err := Builtin()
	if err != nil {
		return nil, err
	}
	return append(formats, builtin...), nil
}

// Builtin returns the embedded format catalog
func Builtin() ([]*Format, error) {
	return parseFormats(builtinFormats)
}

func parseFormats(data []byte) ([]*Format, error) {
	var file formatFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	for _, f := range file.Formats {
		if err := f.compile(); err != nil {
			return nil, err
		}
	}
	return file.Formats, nil
}
