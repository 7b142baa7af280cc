package heuristic

import (
	"math"
)

// Entropy reference points in bits per byte
const (
	EntropySource     = 4.5 // Typical PHP source
	EntropyCompressed = 7.5 // Compressed or encrypted data
)

// Entropy calculates the Shannon entropy of data.
// Returns a value between 0 (constant) and 8 (uniformly random bytes).
func Entropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}

	var freq [256]int
	for _, b := range data {
		freq[b]++
	}

	length := float64(len(data))
	var entropy float64

	for _, count := range freq {
		if count > 0 {
			p := float64(count) / length
			entropy -= p * math.Log2(p)
		}
	}

	return entropy
}

// ChunkEntropy calculates entropy for consecutive chunks of data
func ChunkEntropy(data []byte, chunkSize int) []float64 {
	if len(data) == 0 || chunkSize <= 0 {
		return nil
	}

	var results []float64
	for i := 0; i < len(data); i += chunkSize {
		end := i + chunkSize
		if end > len(data) {
			end = len(data)
		}
		results = append(results, Entropy(data[i:end]))
	}

	return results
}

// EntropyProfile summarises how entropy is spread over a buffer
type EntropyProfile struct {
	Overall float64 `json:"overall" yaml:"overall"`
	Max     float64 `json:"max" yaml:"max"`
	Min     float64 `json:"min" yaml:"min"`
	Average float64 `json:"average" yaml:"average"`
	Chunks  int     `json:"chunks" yaml:"chunks"`
}

// Looks reports whether the buffer still looks compressed or encrypted
func (p *EntropyProfile) Looks() string {
	switch {
	case p.Overall >= EntropyCompressed:
		return "compressed or encrypted"
	case p.Overall > EntropySource+1:
		return "encoded"
	case p.Max >= EntropyCompressed:
		return "partially encoded"
	default:
		return "text"
	}
}

// ProfileEntropy analyses data in 512-byte chunks
func ProfileEntropy(data []byte) *EntropyProfile {
	if len(data) == 0 {
		return &EntropyProfile{}
	}

	profile := &EntropyProfile{
		Overall: Entropy(data),
	}

	chunkSize := 512
	if len(data) < chunkSize {
		chunkSize = len(data)
	}

	chunks := ChunkEntropy(data, chunkSize)
	profile.Chunks = len(chunks)
	profile.Min = chunks[0]
	profile.Max = chunks[0]
	var sum float64

	for _, e := range chunks {
		sum += e
		if e < profile.Min {
			profile.Min = e
		}
		if e > profile.Max {
			profile.Max = e
		}
	}
	profile.Average = sum / float64(len(chunks))

	return profile
}
