package php

import (
	"bytes"
	"io"
	"regexp"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"

	"github.com/iSundram/ion/internal/payload"
	"github.com/iSundram/ion/internal/transform"
)

// maxLayerSize bounds one inflated layer
const maxLayerSize = 8 << 20

// evalWrapper is one eval(<decoder>(...)) shape
type evalWrapper struct {
	name   string
	re     *regexp.Regexp
	decode func(arg string) ([]byte, bool)
}

var evalWrappers = []evalWrapper{
	{
		name: "gzinflate",
		re:   regexp.MustCompile(`eval\s*\(\s*gzinflate\s*\(\s*base64_decode\s*\(\s*['"]([A-Za-z0-9+/=]+)['"]\s*\)\s*\)\s*\)\s*;?`),
		decode: func(arg string) ([]byte, bool) {
			return inflate(payload.DecodeBase64([]byte(arg), payload.StdAlphabet), false)
		},
	},
	{
		name: "gzuncompress",
		re:   regexp.MustCompile(`eval\s*\(\s*gzuncompress\s*\(\s*base64_decode\s*\(\s*['"]([A-Za-z0-9+/=]+)['"]\s*\)\s*\)\s*\)\s*;?`),
		decode: func(arg string) ([]byte, bool) {
			return inflate(payload.DecodeBase64([]byte(arg), payload.StdAlphabet), true)
		},
	},
	{
		name: "base64",
		re:   regexp.MustCompile(`eval\s*\(\s*base64_decode\s*\(\s*['"]([A-Za-z0-9+/=]+)['"]\s*\)\s*\)\s*;?`),
		decode: func(arg string) ([]byte, bool) {
			out := payload.DecodeBase64([]byte(arg), payload.StdAlphabet)
			return out, out != nil
		},
	},
	{
		name: "str_rot13",
		re:   regexp.MustCompile(`eval\s*\(\s*str_rot13\s*\(\s*'([^']+)'\s*\)\s*\)\s*;?`),
		decode: func(arg string) ([]byte, bool) {
			return transform.Rot13().Apply([]byte(arg)), true
		},
	},
	{
		name: "strrev",
		re:   regexp.MustCompile(`eval\s*\(\s*strrev\s*\(\s*'([^']+)'\s*\)\s*\)\s*;?`),
		decode: func(arg string) ([]byte, bool) {
			return transform.Reverse().Apply([]byte(arg)), true
		},
	},
}

// EvalDeobfuscator replaces eval() of an encoded literal with the code
// it would run
type EvalDeobfuscator struct{}

// NewEvalDeobfuscator creates a new Eval deobfuscator
func NewEvalDeobfuscator() *EvalDeobfuscator {
	return &EvalDeobfuscator{}
}

// Name returns the deobfuscator name
func (d *EvalDeobfuscator) Name() string {
	return "eval"
}

// CanDeobfuscate checks if content contains a known eval wrapper
func (d *EvalDeobfuscator) CanDeobfuscate(content string) bool {
	for _, w := range evalWrappers {
		if w.re.MatchString(content) {
			return true
		}
	}
	return false
}

// Deobfuscate unwraps the first wrapper shape present. The inner code
// is spliced in place with its own open and close tags removed.
func (d *EvalDeobfuscator) Deobfuscate(content string) (string, error) {
	for _, w := range evalWrappers {
		if !w.re.MatchString(content) {
			continue
		}
		result := w.re.ReplaceAllStringFunc(content, func(match string) string {
			sub := w.re.FindStringSubmatch(match)
			code, ok := w.decode(sub[1])
			if !ok {
				return match
			}
			return string(stripTags(code))
		})
		if result != content {
			return result, nil
		}
	}
	return content, nil
}

func inflate(data []byte, wrapped bool) ([]byte, bool) {
	if len(data) == 0 {
		return nil, false
	}
	var r io.ReadCloser
	if wrapped {
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, false
		}
		r = zr
	} else {
		r = flate.NewReader(bytes.NewReader(data))
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, maxLayerSize))
	if err != nil || len(out) == 0 {
		return nil, false
	}
	return out, true
}

// stripTags trims a leading <?php and a trailing ?> from eval'd code
func stripTags(code []byte) []byte {
	code = bytes.TrimSpace(code)
	code = bytes.TrimPrefix(code, []byte("<?php"))
	code = bytes.TrimSuffix(code, []byte("?>"))
	return bytes.TrimSpace(code)
}
