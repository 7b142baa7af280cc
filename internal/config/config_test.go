package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetSearchMode(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		expected SearchMode
	}{
		{"Quick mode", "quick", ModeQuick},
		{"Normal mode", "normal", ModeNormal},
		{"Exhaustive mode", "exhaustive", ModeExhaustive},
		{"Default mode", "", ModeNormal},
		{"Invalid mode", "invalid", ModeNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Mode: tt.mode}
			if got := cfg.GetSearchMode(); got != tt.expected {
				t.Errorf("GetSearchMode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestShouldScanFile(t *testing.T) {
	tests := []struct {
		name       string
		extension  string
		extensions []string
		expected   bool
	}{
		{"PHP by default", "php", nil, true},
		{"INC by default", "inc", nil, true},
		{"TXT by default", "txt", nil, false},
		{"Custom extensions", "enc", []string{"enc", "test"}, true},
		{"Non-matching custom ext", "php", []string{"enc", "test"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Extensions: tt.extensions}
			if got := cfg.ShouldScanFile(tt.extension); got != tt.expected {
				t.Errorf("ShouldScanFile(%q) = %v, want %v", tt.extension, got, tt.expected)
			}
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Threshold != 0 {
		t.Errorf("Threshold = %d, want 0 (unset)", cfg.Threshold)
	}
	if cfg.OffsetCap != 512 {
		t.Errorf("OffsetCap = %d, want 512", cfg.OffsetCap)
	}
	if cfg.Timeout != 2*time.Minute {
		t.Errorf("Timeout = %v, want 2m", cfg.Timeout)
	}
	if !cfg.RequireHeader {
		t.Error("RequireHeader = false, want true")
	}
	if cfg.Oracle.PHPBinary != "php" {
		t.Errorf("Oracle.PHPBinary = %q, want php", cfg.Oracle.PHPBinary)
	}
	if cfg.Workers <= 0 {
		t.Errorf("Workers = %d, want > 0", cfg.Workers)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ion.yaml")
	content := `
mode: exhaustive
threshold: 14
offset_cap: 256
oracle:
  enabled: true
  timeout: 5s
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.GetSearchMode() != ModeExhaustive {
		t.Errorf("mode = %q, want exhaustive", cfg.Mode)
	}
	if cfg.Threshold != 14 {
		t.Errorf("Threshold = %d, want 14", cfg.Threshold)
	}
	if cfg.OffsetCap != 256 {
		t.Errorf("OffsetCap = %d, want 256", cfg.OffsetCap)
	}
	if !cfg.Oracle.Enabled {
		t.Error("Oracle.Enabled = false, want true")
	}
	if cfg.Oracle.Timeout != 5*time.Second {
		t.Errorf("Oracle.Timeout = %v, want 5s", cfg.Oracle.Timeout)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfig() error = nil, want error for missing file")
	}
}

func TestResolveThreshold(t *testing.T) {
	tests := []struct {
		name    string
		global  int
		variant int
		want    int
	}{
		{"nothing set", 0, 0, DefaultThreshold},
		{"variant only", 0, 20, 20},
		{"global only", 14, 0, 14},
		{"global wins over variant", 8, 20, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveThreshold(tt.global, tt.variant); got != tt.want {
				t.Errorf("ResolveThreshold(%d, %d) = %d, want %d", tt.global, tt.variant, got, tt.want)
			}
		})
	}
}
