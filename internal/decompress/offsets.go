package decompress

// Plan names an offset strategy
type Plan string

const (
	PlanZero    Plan = "zero"    // offset 0 only
	PlanCurated Plan = "curated" // offset 0 plus common header sizes
	PlanScan    Plan = "scan"    // every offset up to the cap
)

// DefaultOffsetCap is the highest offset scanned when no cap is set
const DefaultOffsetCap = 512

var curatedOffsets = []int{0, 1, 2, 3, 4, 8, 12, 16, 20, 24, 32, 48, 64, 96, 128, 256}

// Offsets expands a plan into start offsets, in trial order. Offsets
// at or beyond the cap are dropped.
func Offsets(plan Plan, limit int) []int {
	if limit <= 0 {
		limit = DefaultOffsetCap
	}
	switch plan {
	case PlanCurated:
		out := make([]int, 0, len(curatedOffsets))
		for _, o := range curatedOffsets {
			if o < limit {
				out = append(out, o)
			}
		}
		return out
	case PlanScan:
		out := make([]int, limit)
		for i := range out {
			out[i] = i
		}
		return out
	default:
		return []int{0}
	}
}
