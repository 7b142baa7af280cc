package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// resultMarker prefixes the probe's JSON line so it can be found among
// whatever the included file prints
const resultMarker = "@@ION-ORACLE@@"

// MaxOutput caps the captured include output kept in Metadata
const MaxOutput = 4096

// probeScript includes argv[1] and prints the user functions, classes
// and constants it declared.
const probeScript = `<?php
$target = $argv[1];
$errors = [];
set_error_handler(function ($no, $msg, $file, $line) use (&$errors) {
    $errors[] = "$msg at $file:$line";
    return true;
});
$fns = get_defined_functions()['user'] ?? [];
$classes = get_declared_classes();
$consts = get_defined_constants(true)['user'] ?? [];
ob_start();
try {
    include $target;
} catch (Throwable $e) {
    $errors[] = get_class($e) . ': ' . $e->getMessage();
}
$out = ob_get_clean();
$newConsts = [];
foreach (array_diff_key(get_defined_constants(true)['user'] ?? [], $consts) as $k => $v) {
    $newConsts[$k] = is_scalar($v) ? (string)$v : gettype($v);
}
echo "` + resultMarker + `" . json_encode([
    'functions' => array_values(array_diff(get_defined_functions()['user'] ?? [], $fns)),
    'classes' => array_values(array_diff(get_declared_classes(), $classes)),
    'constants' => (object)$newConsts,
    'output' => substr($out === false ? '' : $out, 0, 4096),
    'errors' => $errors,
]) . "\n";
`

// PHPOracle shells out to a php binary, optionally with a loader
// extension
type PHPOracle struct {
	binary     string
	loaderPath string
	logger     *zap.Logger
}

// NewPHPOracle creates an oracle for binary. An empty loaderPath runs
// php without an extra extension.
func NewPHPOracle(binary, loaderPath string, logger *zap.Logger) *PHPOracle {
	if binary == "" {
		binary = "php"
	}
	return &PHPOracle{
		binary:     binary,
		loaderPath: loaderPath,
		logger:     logger,
	}
}

// Name returns the oracle name
func (o *PHPOracle) Name() string {
	return "php"
}

// IsAvailable checks the binary is on PATH and the loader exists
func (o *PHPOracle) IsAvailable() bool {
	if _, err := exec.LookPath(o.binary); err != nil {
		return false
	}
	if o.loaderPath != "" {
		if _, err := os.Stat(o.loaderPath); err != nil {
			return false
		}
	}
	return true
}

// args builds the interpreter command line
func (o *PHPOracle) args(script, target string) []string {
	var args []string
	if o.loaderPath != "" {
		args = append(args, "-d", "extension="+o.loaderPath)
	}
	return append(args, script, target)
}

// RunFallback includes path under the interpreter and parses the probe
// result. Every failure wraps ErrUnavailable.
func (o *PHPOracle) RunFallback(ctx context.Context, path string, timeout time.Duration) (*Metadata, error) {
	if !o.IsAvailable() {
		return nil, fmt.Errorf("%w: %s not found", ErrUnavailable, o.binary)
	}

	target, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	script, err := os.CreateTemp("", "ion-probe-*.php")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create probe script: %v", ErrUnavailable, err)
	}
	defer os.Remove(script.Name())
	if _, err := script.WriteString(probeScript); err != nil {
		script.Close()
		return nil, fmt.Errorf("%w: failed to write probe script: %v", ErrUnavailable, err)
	}
	script.Close()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, o.binary, o.args(script.Name(), target)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	o.logger.Debug("Oracle finished",
		zap.String("path", path),
		zap.Duration("duration", elapsed),
		zap.Int("stdout", stdout.Len()),
		zap.Int("stderr", stderr.Len()))

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: timed out after %s", ErrUnavailable, timeout)
	}

	meta, err := parseProbe(stdout.Bytes())
	if err != nil {
		if runErr != nil {
			return nil, fmt.Errorf("%w: %v: %s", ErrUnavailable, runErr, firstLine(stderr.Bytes()))
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	meta.Oracle = o.Name()
	meta.Duration = elapsed
	return meta, nil
}

// parseProbe finds the marker line in stdout and decodes it
func parseProbe(stdout []byte) (*Metadata, error) {
	idx := bytes.LastIndex(stdout, []byte(resultMarker))
	if idx < 0 {
		return nil, errors.New("probe produced no result")
	}
	line := stdout[idx+len(resultMarker):]
	if nl := bytes.IndexByte(line, '\n'); nl >= 0 {
		line = line[:nl]
	}

	var meta Metadata
	if err := json.Unmarshal(line, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse probe result: %w", err)
	}
	if len(meta.Output) > MaxOutput {
		meta.Output = meta.Output[:MaxOutput]
	}
	return &meta, nil
}

func firstLine(b []byte) string {
	b = bytes.TrimSpace(b)
	if nl := bytes.IndexByte(b, '\n'); nl >= 0 {
		b = b[:nl]
	}
	return string(b)
}
