package main

import (
	"bytes"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iSundram/ion/internal/ai"
	"github.com/iSundram/ion/internal/config"
	"github.com/klauspost/compress/zlib"
)

const plaintext = "<?php function foo() { return 1; } ?>"

func encodedFixture(t *testing.T, text string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write([]byte(text))
	w.Close()
	return []byte("<?php //HDR 1:0 5:abc12 7:def34\n?>\n" + base64.StdEncoding.EncodeToString(buf.Bytes()) + "\n")
}

func writeInput(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateFlags(t *testing.T) {
	tests := []struct {
		name    string
		opts    options
		wantErr bool
	}{
		{"defaults", options{}, false},
		{"valid mode", options{mode: "exhaustive"}, false},
		{"invalid mode", options{mode: "deep"}, true},
		{"valid report", options{reportFormat: "yaml"}, false},
		{"invalid report", options{reportFormat: "html"}, true},
		{"valid model", options{aiModel: "haiku"}, false},
		{"invalid model", options{aiModel: "gpt"}, true},
		{"negative threshold", options{threshold: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFlags(&tt.opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOptions_Apply(t *testing.T) {
	cfg := &config.Config{
		Mode:          "normal",
		Threshold:     10,
		RequireHeader: true,
		WriteOutput:   true,
	}
	opts := &options{
		mode:      "quick",
		threshold: 12,
		workers:   3,
		timeout:   5 * time.Second,
		noWrite:   true,
		anyHeader: true,
		oracle:    true,
		phpBinary: "/usr/bin/php8",
		aiModel:   "opus",
	}
	opts.apply(cfg)

	if cfg.Mode != "quick" || cfg.Threshold != 12 || cfg.Workers != 3 {
		t.Errorf("search overrides not applied: %+v", cfg)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Timeout)
	}
	if cfg.WriteOutput || cfg.RequireHeader {
		t.Error("--no-write and --any-header should clear WriteOutput and RequireHeader")
	}
	if !cfg.Oracle.Enabled || cfg.Oracle.PHPBinary != "/usr/bin/php8" {
		t.Errorf("oracle overrides not applied: %+v", cfg.Oracle)
	}
	if cfg.AI.Model != "opus" || cfg.AI.Enabled {
		t.Errorf("AI overrides = %+v", cfg.AI)
	}
}

func TestMethodsCmd(t *testing.T) {
	out, err := execute(t, "methods", "--mode", "quick")
	if err != nil {
		t.Fatalf("methods error = %v", err)
	}
	for _, want := range []string{"direct", "offset_scan", "xor_single", "alphabet", "needs header ids", "Order:", "direct > offset_scan > reverse"} {
		if !strings.Contains(out, want) {
			t.Errorf("methods output missing %q", want)
		}
	}
	if strings.Index(out, "direct") > strings.Index(out, "alphabet") {
		t.Error("methods should be listed in trial order")
	}
}

func TestMethodsCmd_ModeFromConfig(t *testing.T) {
	cfgPath := writeInput(t, t.TempDir(), "ion.yaml", []byte("mode: exhaustive\n"))

	tests := []struct {
		name string
		args []string
		env  string
		want string
	}{
		{"config file", []string{"methods", "--config", cfgPath}, "", "exhaustive mode"},
		{"environment", []string{"methods"}, "quick", "quick mode"},
		{"flag wins over config file", []string{"methods", "--config", cfgPath, "--mode", "quick"}, "", "quick mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.env != "" {
				t.Setenv("ION_MODE", tt.env)
			}
			out, err := execute(t, tt.args...)
			if err != nil {
				t.Fatalf("methods error = %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("methods output missing %q:\n%s", tt.want, out)
			}
		})
	}
}

func TestFormatsCmd(t *testing.T) {
	out, err := execute(t, "formats")
	if err != nil {
		t.Fatalf("formats error = %v", err)
	}
	for _, want := range []string{"icb_comment", "generic_tagged", "payload:"} {
		if !strings.Contains(out, want) {
			t.Errorf("formats output missing %q", want)
		}
	}
}

func TestRootCmd_NoArgs(t *testing.T) {
	out, err := execute(t)
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if !strings.Contains(out, "Usage:") {
		t.Error("expected help output without a file argument")
	}
}

func TestRootCmd_InvalidFlag(t *testing.T) {
	_, err := execute(t, "--mode", "deep", "file.php")
	if err == nil || errors.Is(err, errNotAccepted) {
		t.Errorf("error = %v, want a validation error", err)
	}
}

func TestRootCmd_Recover(t *testing.T) {
	inDir, outDir := t.TempDir(), t.TempDir()
	path := writeInput(t, inDir, "enc.php", encodedFixture(t, plaintext))
	reportPath := filepath.Join(outDir, "report.json")

	out, err := execute(t, path, "--mode", "quick", "--offset-cap", "64", "--yes",
		"--output-dir", outDir, "--report", "json", "--output", reportPath)
	if err != nil {
		t.Fatalf("error = %v\n%s", err, out)
	}

	got, err := os.ReadFile(filepath.Join(outDir, "enc_decoded.php"))
	if err != nil {
		t.Fatalf("recovered file not written: %v", err)
	}
	if string(got) != plaintext {
		t.Errorf("recovered = %q, want %q", got, plaintext)
	}
	if _, err := os.Stat(reportPath); err != nil {
		t.Errorf("report not written: %v", err)
	}
	if !strings.Contains(out, reportPath) {
		t.Error("report path should be printed")
	}
}

func TestRootCmd_NotAccepted(t *testing.T) {
	inDir, outDir := t.TempDir(), t.TempDir()
	path := writeInput(t, inDir, "plain.php", []byte(plaintext))

	_, err := execute(t, path, "--mode", "quick", "--yes", "--output-dir", outDir)
	if !errors.Is(err, errNotAccepted) {
		t.Errorf("error = %v, want errNotAccepted", err)
	}

	entries, _ := os.ReadDir(outDir)
	if len(entries) != 0 {
		t.Errorf("output dir should be empty, got %d entries", len(entries))
	}
}

func TestBatchCmd(t *testing.T) {
	inDir, outDir := t.TempDir(), t.TempDir()
	writeInput(t, inDir, "a.php", encodedFixture(t, plaintext))
	writeInput(t, inDir, "plain.php", []byte(plaintext))

	out, err := execute(t, "batch", inDir, "--mode", "quick", "--offset-cap", "64", "--yes", "--output-dir", outDir)
	if err != nil {
		t.Fatalf("batch error = %v\n%s", err, out)
	}
	if _, err := os.Stat(filepath.Join(outDir, "a_decoded.php")); err != nil {
		t.Errorf("recovered file not written: %v", err)
	}
}

func TestConfirmAI(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"\n", true},
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			confirm := confirmAI(&out, strings.NewReader(tt.input))
			if got := confirm(&ai.CostEstimate{Model: "sonnet", SourceBytes: 100}); got != tt.want {
				t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
