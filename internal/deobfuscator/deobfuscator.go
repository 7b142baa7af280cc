// Package deobfuscator peels script-level wrapper layers, such as
// eval(gzinflate(base64_decode(...))), off recovered source.
package deobfuscator

// Deobfuscator is the interface for one kind of wrapper layer
type Deobfuscator interface {
	Name() string
	CanDeobfuscate(content string) bool
	Deobfuscate(content string) (string, error)
}

// Manager manages multiple deobfuscators
type Manager struct {
	deobfuscators []Deobfuscator
	maxDepth      int
}

// NewManager creates a new deobfuscator manager
func NewManager(maxDepth int) *Manager {
	return &Manager{
		deobfuscators: make([]Deobfuscator, 0),
		maxDepth:      maxDepth,
	}
}

// Register registers a deobfuscator
func (m *Manager) Register(d Deobfuscator) {
	m.deobfuscators = append(m.deobfuscators, d)
}

// Names returns registered deobfuscator names in order
func (m *Manager) Names() []string {
	names := make([]string, len(m.deobfuscators))
	for i, d := range m.deobfuscators {
		names[i] = d.Name()
	}
	return names
}

// Deobfuscate removes layers until none applies or maxDepth is
// reached. It returns the result and the name of each removed layer,
// outermost first.
func (m *Manager) Deobfuscate(content string) (string, []string) {
	result := content
	var layers []string

	for depth := 0; depth < m.maxDepth; depth++ {
		deobfuscated := false

		for _, d := range m.deobfuscators {
			if d.CanDeobfuscate(result) {
				newResult, err := d.Deobfuscate(result)
				if err == nil && newResult != result {
					result = newResult
					layers = append(layers, d.Name())
					deobfuscated = true
					break // Try again from the beginning
				}
			}
		}

		if !deobfuscated {
			break
		}
	}

	return result, layers
}
