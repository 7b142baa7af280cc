package report

import (
	"encoding/json"
)

// renderJSON renders the batch as indented JSON
func renderJSON(batch *Batch) ([]byte, error) {
	return json.MarshalIndent(batch, "", "  ")
}
