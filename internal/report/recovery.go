package report

import (
	"time"

	"github.com/iSundram/ion/internal/ai"
	"github.com/iSundram/ion/internal/heuristic"
	"github.com/iSundram/ion/internal/oracle"
	"github.com/iSundram/ion/pkg/models"
)

// Recovery is everything known about one processed file
type Recovery struct {
	Path        string              `json:"path" yaml:"path"`
	Format      string              `json:"format,omitempty" yaml:"format,omitempty"`
	Header      *models.Header      `json:"header,omitempty" yaml:"header,omitempty"`
	Payload     *models.Payload     `json:"payload,omitempty" yaml:"payload,omitempty"`
	PayloadSize int                 `json:"payload_size" yaml:"payload_size"`
	Result      *models.Result      `json:"result,omitempty" yaml:"result,omitempty"`
	Layers      []string            `json:"layers,omitempty" yaml:"layers,omitempty"` // obfuscation layers unwrapped after the search
	TextHash    string              `json:"text_blake3,omitempty" yaml:"text_blake3,omitempty"`
	Analysis    *heuristic.Analysis `json:"analysis,omitempty" yaml:"analysis,omitempty"`
	Oracle      *oracle.Metadata    `json:"oracle,omitempty" yaml:"oracle,omitempty"`
	OracleError string              `json:"oracle_error,omitempty" yaml:"oracle_error,omitempty"`
	Review      *ai.Review          `json:"review,omitempty" yaml:"review,omitempty"`
	ReviewError string              `json:"review_error,omitempty" yaml:"review_error,omitempty"`
	OutputPath  string              `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	Error       string              `json:"error,omitempty" yaml:"error,omitempty"` // structural or I/O failure
}

// Accepted reports whether the search accepted a candidate
func (r *Recovery) Accepted() bool {
	return r.Error == "" && r.Result != nil && r.Result.Accepted
}

// Batch is the report of one run over one or more files
type Batch struct {
	Version    string        `json:"version" yaml:"version"`
	Root       string        `json:"root" yaml:"root"`
	Mode       string        `json:"mode" yaml:"mode"`
	StartTime  time.Time     `json:"start_time" yaml:"start_time"`
	EndTime    time.Time     `json:"end_time" yaml:"end_time"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
	Accepted   int           `json:"accepted" yaml:"accepted"`
	Failed     int           `json:"failed" yaml:"failed"`
	Errors     int           `json:"errors" yaml:"errors"`
	Recoveries []*Recovery   `json:"recoveries" yaml:"recoveries"`
}

// Add appends r and updates the counters
func (b *Batch) Add(r *Recovery) {
	b.Recoveries = append(b.Recoveries, r)
	switch {
	case r.Error != "":
		b.Errors++
	case r.Accepted():
		b.Accepted++
	default:
		b.Failed++
	}
}

// AllAccepted reports whether the batch is non-empty and every file
// was recovered
func (b *Batch) AllAccepted() bool {
	return len(b.Recoveries) > 0 && b.Accepted == len(b.Recoveries)
}
