// Package method describes the recovery strategies the search tries.
// Each strategy is data: which transforms to try, on which input, at
// which stage relative to decompression, and at which offsets.
package method

import (
	"github.com/iSundram/ion/internal/config"
	"github.com/iSundram/ion/internal/decompress"
	"github.com/iSundram/ion/internal/transform"
	"github.com/iSundram/ion/pkg/models"
)

// Input selects which form of the payload a method starts from
type Input string

const (
	InputData Input = "data" // decoded payload bytes
	InputText Input = "text" // alphabet-filtered payload text
)

// Method is one recovery strategy
type Method struct {
	Name        string
	Description string
	Input       Input
	Stages      []models.Stage
	Offsets     decompress.Plan
	Variants    []*transform.Transform
}

// Plan returns the offset plan for mode. Exhaustive mode scans every
// offset for every method.
func (m *Method) Plan(mode config.SearchMode) decompress.Plan {
	if mode == config.ModeExhaustive {
		return decompress.PlanScan
	}
	return m.Offsets
}

// HasStage reports whether m runs at stage s
func (m *Method) HasStage(s models.Stage) bool {
	for _, st := range m.Stages {
		if st == s {
			return true
		}
	}
	return false
}

var (
	preOnly  = []models.Stage{models.StagePre}
	bothWays = []models.Stage{models.StagePre, models.StagePost}
)

// quickShifts are the additive shifts tried in quick mode
var quickShifts = []byte{1, 2, 3, 4, 5, 7, 13, 16, 32, 64, 128, 192, 224, 240, 251, 252, 253, 254, 255}

// Catalog returns the ordered strategy registry for one file. The
// header feeds the keyed method; mode decides keyspace sizes.
func Catalog(h *models.Header, mode config.SearchMode) []*Method {
	full := mode != config.ModeQuick

	return []*Method{
		{
			Name:        "direct",
			Description: "decompress the payload as is",
			Input:       InputData,
			Stages:      preOnly,
			Offsets:     decompress.PlanZero,
			Variants:    []*transform.Transform{transform.Identity()},
		},
		{
			Name:        "offset_scan",
			Description: "decompress after skipping a leading block",
			Input:       InputData,
			Stages:      preOnly,
			Offsets:     decompress.PlanCurated,
			Variants:    []*transform.Transform{transform.Identity()},
		},
		{
			Name:        "reverse",
			Description: "reverse the byte order",
			Input:       InputData,
			Stages:      bothWays,
			Offsets:     decompress.PlanZero,
			Variants:    []*transform.Transform{transform.Reverse()},
		},
		{
			Name:        "rotate",
			Description: "rotate every byte by 1 to 7 bits",
			Input:       InputData,
			Stages:      bothWays,
			Offsets:     decompress.PlanZero,
			Variants:    rotations(),
		},
		{
			Name:        "bitops",
			Description: "nibble swap, bit pair swap, complement and negation",
			Input:       InputData,
			Stages:      bothWays,
			Offsets:     decompress.PlanZero,
			Variants: []*transform.Transform{
				transform.NibbleSwap(),
				transform.BitPairSwap(),
				transform.Complement(),
				transform.Negate(),
			},
		},
		{
			Name:        "xor_single",
			Description: "XOR with a single byte key",
			Input:       InputData,
			Stages:      bothWays,
			Offsets:     decompress.PlanZero,
			Variants:    xorKeys(full),
		},
		{
			Name:        "xor_multi",
			Description: "XOR with a repeating multi-byte pattern",
			Input:       InputData,
			Stages:      bothWays,
			Offsets:     decompress.PlanZero,
			Variants:    xorPatterns(),
		},
		{
			Name:        "caesar",
			Description: "letter rotation and additive byte shifts",
			Input:       InputData,
			Stages:      bothWays,
			Offsets:     decompress.PlanZero,
			Variants:    shifts(full),
		},
		{
			Name:        "keyed",
			Description: "XOR with a key derived from the header identifiers, then rotate",
			Input:       InputData,
			Stages:      bothWays,
			Offsets:     decompress.PlanCurated,
			Variants:    keyed(h, mode == config.ModeExhaustive),
		},
		{
			Name:        "alphabet",
			Description: "base64 decode the payload text with a non-standard alphabet",
			Input:       InputText,
			Stages:      preOnly,
			Offsets:     decompress.PlanZero,
			Variants:    alphabets(),
		},
	}
}

func rotations() []*transform.Transform {
	out := make([]*transform.Transform, 0, 7)
	for n := 1; n < 8; n++ {
		out = append(out, transform.RotateLeft(n))
	}
	return out
}

func xorKeys(full bool) []*transform.Transform {
	keys := transform.XORKeyOrder(full)
	out := make([]*transform.Transform, 0, len(keys))
	for _, k := range keys {
		if k == 0 {
			continue // identity, covered by direct
		}
		out = append(out, transform.XOR(k))
	}
	return out
}

func xorPatterns() []*transform.Transform {
	out := make([]*transform.Transform, 0, len(transform.XORPatterns))
	for _, p := range transform.XORPatterns {
		out = append(out, transform.XORPattern(p))
	}
	return out
}

func shifts(full bool) []*transform.Transform {
	out := []*transform.Transform{transform.Rot13()}
	if !full {
		for _, s := range quickShifts {
			out = append(out, transform.Add(s))
		}
		return out
	}
	for s := 1; s < 256; s++ {
		out = append(out, transform.Add(byte(s)))
	}
	return out
}

// keyed returns no variants when the header carries no identifiers
func keyed(h *models.Header, allRotations bool) []*transform.Transform {
	key := transform.DeriveKey(h)
	if key == nil {
		return nil
	}
	out := []*transform.Transform{transform.Keyed(key, transform.KeyedRotation)}
	if allRotations {
		for r := 0; r < 8; r++ {
			if r != transform.KeyedRotation {
				out = append(out, transform.Keyed(key, r))
			}
		}
	}
	return out
}

func alphabets() []*transform.Transform {
	out := make([]*transform.Transform, 0, len(transform.Alphabets))
	for _, a := range transform.Alphabets {
		out = append(out, transform.Alphabet(a.Name, a.Alphabet))
	}
	return out
}

// Names returns the method names of a catalog in order
func Names(catalog []*Method) []string {
	names := make([]string, len(catalog))
	for i, m := range catalog {
		names[i] = m.Name
	}
	return names
}
