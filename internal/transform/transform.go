// Package transform holds pure byte-level hypotheses for undoing one
// obfuscation step. Every transform allocates its output and leaves
// the input untouched, so many workers can share one payload buffer.
package transform

import (
	"fmt"
	"math/bits"

	"github.com/iSundram/ion/internal/payload"
)

// Func maps one byte string to another
type Func func([]byte) []byte

// Transform is a named, parameterized hypothesis with its inverse
type Transform struct {
	Name   string            // Family, e.g. "xor"
	Label  string            // Variant label, e.g. "xor(0x5a)"
	Params map[string]string // Parameters for reports
	Apply  Func
	Invert Func
}

// Identity leaves bytes unchanged
func Identity() *Transform {
	return &Transform{
		Name:   "identity",
		Label:  "identity",
		Apply:  clone,
		Invert: clone,
	}
}

// Reverse reverses the whole buffer
func Reverse() *Transform {
	return &Transform{
		Name:   "reverse",
		Label:  "reverse",
		Apply:  reverse,
		Invert: reverse,
	}
}

// RotateLeft rotates every byte left by n bits
func RotateLeft(n int) *Transform {
	n &= 7
	return &Transform{
		Name:   "rotl",
		Label:  fmt.Sprintf("rotl(%d)", n),
		Params: map[string]string{"bits": fmt.Sprint(n)},
		Apply:  mapBytes(func(b byte) byte { return bits.RotateLeft8(b, n) }),
		Invert: mapBytes(func(b byte) byte { return bits.RotateLeft8(b, -n) }),
	}
}

// NibbleSwap exchanges the high and low nibble of every byte
func NibbleSwap() *Transform {
	f := mapBytes(func(b byte) byte { return b<<4 | b>>4 })
	return &Transform{
		Name:   "nibble_swap",
		Label:  "nibble_swap",
		Apply:  f,
		Invert: f,
	}
}

// BitPairSwap exchanges odd and even bits of every byte
func BitPairSwap() *Transform {
	f := mapBytes(func(b byte) byte { return (b&0x55)<<1 | (b&0xAA)>>1 })
	return &Transform{
		Name:   "bit_pair_swap",
		Label:  "bit_pair_swap",
		Apply:  f,
		Invert: f,
	}
}

// Complement inverts every bit
func Complement() *Transform {
	f := mapBytes(func(b byte) byte { return ^b })
	return &Transform{
		Name:   "complement",
		Label:  "complement",
		Apply:  f,
		Invert: f,
	}
}

// Negate replaces every byte with its two's complement
func Negate() *Transform {
	f := mapBytes(func(b byte) byte { return -b })
	return &Transform{
		Name:   "negate",
		Label:  "negate",
		Apply:  f,
		Invert: f,
	}
}

// XOR applies a single-byte key
func XOR(key byte) *Transform {
	f := mapBytes(func(b byte) byte { return b ^ key })
	return &Transform{
		Name:   "xor",
		Label:  fmt.Sprintf("xor(0x%02x)", key),
		Params: map[string]string{"key": fmt.Sprintf("0x%02x", key)},
		Apply:  f,
		Invert: f,
	}
}

// XORPattern applies a repeating multi-byte key
func XORPattern(pattern []byte) *Transform {
	key := clone(pattern)
	f := func(data []byte) []byte {
		out := make([]byte, len(data))
		if len(key) == 0 {
			copy(out, data)
			return out
		}
		for i, b := range data {
			out[i] = b ^ key[i%len(key)]
		}
		return out
	}
	return &Transform{
		Name:   "xor_pattern",
		Label:  fmt.Sprintf("xor_pattern(%x)", key),
		Params: map[string]string{"pattern": fmt.Sprintf("%x", key)},
		Apply:  f,
		Invert: f,
	}
}

// Add shifts every byte up by shift, modulo 256
func Add(shift byte) *Transform {
	return &Transform{
		Name:   "add",
		Label:  fmt.Sprintf("add(%d)", shift),
		Params: map[string]string{"shift": fmt.Sprint(shift)},
		Apply:  mapBytes(func(b byte) byte { return b + shift }),
		Invert: mapBytes(func(b byte) byte { return b - shift }),
	}
}

// Rot13 rotates ASCII letters by 13 places, as str_rot13 does
func Rot13() *Transform {
	f := mapBytes(func(b byte) byte {
		switch {
		case b >= 'A' && b <= 'Z':
			return 'A' + (b-'A'+13)%26
		case b >= 'a' && b <= 'z':
			return 'a' + (b-'a'+13)%26
		default:
			return b
		}
	})
	return &Transform{
		Name:   "rot13",
		Label:  "rot13",
		Apply:  f,
		Invert: f,
	}
}

// Keyed XORs with a 256-byte expanded key and then rotates each byte
// left by rot bits. The inverse rotates back before XOR.
func Keyed(key []byte, rot int) *Transform {
	expanded := ExpandKey(key)
	rot &= 7
	return &Transform{
		Name:   "keyed",
		Label:  fmt.Sprintf("keyed(%x,rotl%d)", key, rot),
		Params: map[string]string{"key": fmt.Sprintf("%x", key), "rotate": fmt.Sprint(rot)},
		Apply: func(data []byte) []byte {
			out := make([]byte, len(data))
			for i, b := range data {
				out[i] = bits.RotateLeft8(b^expanded[i%len(expanded)], rot)
			}
			return out
		},
		Invert: func(data []byte) []byte {
			out := make([]byte, len(data))
			for i, b := range data {
				out[i] = bits.RotateLeft8(b, -rot) ^ expanded[i%len(expanded)]
			}
			return out
		},
	}
}

// Alphabet decodes base64 text written in a non-standard alphabet.
// Apply takes payload text and returns bytes; Invert encodes back.
func Alphabet(name, alphabet string) *Transform {
	return &Transform{
		Name:   "alphabet",
		Label:  fmt.Sprintf("alphabet(%s)", name),
		Params: map[string]string{"alphabet": name},
		Apply: func(text []byte) []byte {
			return payload.DecodeBase64(text, alphabet)
		},
		Invert: func(data []byte) []byte {
			return payload.EncodeBase64(data, alphabet)
		},
	}
}

func mapBytes(f func(byte) byte) Func {
	return func(data []byte) []byte {
		out := make([]byte, len(data))
		for i, b := range data {
			out[i] = f(b)
		}
		return out
	}
}

func clone(data []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	return out
}

func reverse(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[len(data)-1-i] = b
	}
	return out
}
