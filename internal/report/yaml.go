package report

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// renderYAML renders the batch as YAML
func renderYAML(batch *Batch) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(batch); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
