package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DecodedSuffix is appended to the input base name for recovered text
const DecodedSuffix = "_decoded.php"

// OutputPath returns where recovered text for input is written. An
// empty dir means next to the input.
func OutputPath(input, dir string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + DecodedSuffix
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, base)
}

// WriteRecovered writes recovered text and returns its path
func WriteRecovered(input, dir string, data []byte) (string, error) {
	path := OutputPath(input, dir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write recovered file: %w", err)
	}
	return path, nil
}
