package deobfuscator

import "github.com/iSundram/ion/internal/deobfuscator/php"

// DefaultMaxDepth bounds how many layers are removed
const DefaultMaxDepth = 16

// NewDefault creates a manager with the built-in PHP layer handlers
func NewDefault(maxDepth int) *Manager {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	m := NewManager(maxDepth)
	m.Register(php.NewEvalDeobfuscator())
	m.Register(php.NewBase64Deobfuscator())
	return m
}
