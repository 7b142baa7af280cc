package filesystem

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int64
	}{
		{"Bytes", "100", 100},
		{"Kilobytes", "1K", 1024},
		{"Kilobytes lowercase", "1k", 1024},
		{"Megabytes", "1M", 1024 * 1024},
		{"Megabytes lowercase", "1m", 1024 * 1024},
		{"Gigabytes", "1G", 1024 * 1024 * 1024},
		{"Multiple KB", "650K", 650 * 1024},
		{"Multiple MB", "10M", 10 * 1024 * 1024},
		{"Invalid format", "abc", 0},
		{"Empty string", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseSize(tt.input); got != tt.expected {
				t.Errorf("ParseSize(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestGetExtension(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/path/to/file.php", "php"},
		{"/path/to/file.PHP", "PHP"}, // Extension preserves case
		{"/path/to/file.js", "js"},
		{"/path/to/.htaccess", "htaccess"},
		{"/path/to/file", ""},
		{"/path/to/file.tar.gz", "gz"},
		{"file.php", "php"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := GetExtension(tt.path); got != tt.expected {
				t.Errorf("GetExtension(%q) = %v, want %v", tt.path, got, tt.expected)
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "enc.php")
	content := []byte("<?php //HDR 1:0 5:abc12 7:def34\n?>\nAAAA\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	info, err := Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size != int64(len(content)) {
		t.Errorf("Size = %d, want %d", info.Size, len(content))
	}

	file, err := ReadFile(info)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if file.Name != "enc.php" {
		t.Errorf("Name = %q, want enc.php", file.Name)
	}
	if string(file.Raw) != string(content) {
		t.Errorf("Raw = %q, want %q", file.Raw, content)
	}
	if file.Header != nil || file.Payload != nil {
		t.Error("ReadFile() should leave Header and Payload unset")
	}
}

func TestReadFileMissing(t *testing.T) {
	_, err := Stat(filepath.Join(t.TempDir(), "missing.php"))
	if err == nil {
		t.Error("Stat() on missing file should fail")
	}
}
