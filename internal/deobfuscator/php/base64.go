package php

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/iSundram/ion/internal/payload"
)

var base64LiteralRe = regexp.MustCompile(`base64_decode\s*\(\s*(?:'([A-Za-z0-9+/=]{20,})'|"([A-Za-z0-9+/=]{20,})")\s*\)`)

// Base64Deobfuscator inlines base64_decode() calls on string literals
type Base64Deobfuscator struct{}

// NewBase64Deobfuscator creates a new Base64 deobfuscator
func NewBase64Deobfuscator() *Base64Deobfuscator {
	return &Base64Deobfuscator{}
}

// Name returns the deobfuscator name
func (d *Base64Deobfuscator) Name() string {
	return "base64_literal"
}

// CanDeobfuscate checks if content has a decodable literal
func (d *Base64Deobfuscator) CanDeobfuscate(content string) bool {
	return base64LiteralRe.MatchString(content)
}

// Deobfuscate replaces each call with a quoted literal of its result.
// Calls that decode to binary data are left alone.
func (d *Base64Deobfuscator) Deobfuscate(content string) (string, error) {
	result := base64LiteralRe.ReplaceAllStringFunc(content, func(match string) string {
		sub := base64LiteralRe.FindStringSubmatch(match)
		encoded := sub[1] + sub[2]

		decoded := payload.DecodeBase64([]byte(encoded), payload.StdAlphabet)
		if decoded == nil || !utf8.Valid(decoded) {
			return match
		}
		return quote(string(decoded))
	})

	return result, nil
}

// quote renders s as a single-quoted PHP literal
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
