package transform

import (
	"encoding/hex"

	"github.com/iSundram/ion/pkg/models"
)

// likelyXORKeys were seen in encoder samples; they are tried before
// the rest of the keyspace
var likelyXORKeys = []byte{
	0x55, 0xAA, 0xFF, 0x00, 0x5A, 0xA5, 0x33, 0xCC,
	0x69, 0x96, 0x3C, 0xC3, 0x0F, 0xF0, 0x77, 0x88,
	0x1A, 0x2B, 0x4D, 0x5E, 0x6F, 0x70, 0x81, 0x92,
	0xA3, 0xB4, 0xC5, 0xD6, 0xE7, 0xF8, 0x09, 0x53,
	0x42, 0x31, 0x20, 0x1F, 0x0E, 0xFD, 0xEC,
}

// XORPatterns are repeating keys tried by the multi-byte XOR method
var XORPatterns = [][]byte{
	{0x5A, 0xA5},
	{0x55, 0xAA, 0xFF},
	{0x12, 0x34, 0x56, 0x78},
	[]byte("ionc"),
	[]byte("cube"),
	{0x00, 0xFF, 0x00, 0xFF},
}

// Alphabets are the non-standard base64 alphabets tried before decoding
var Alphabets = []struct {
	Name     string
	Alphabet string
}{
	{"url_safe", "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"},
	{"digits_first", "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz+/"},
	{"lower_first", "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789+/"},
}

// KeyedRotation is the fixed rotation applied after the keyed XOR
const KeyedRotation = 3

// LikelyXORKeys returns the curated key subset, in trial order
func LikelyXORKeys() []byte {
	return clone(likelyXORKeys)
}

// XORKeyOrder returns the likely keys followed, when full is set, by
// every remaining key in ascending order
func XORKeyOrder(full bool) []byte {
	keys := LikelyXORKeys()
	if !full {
		return keys
	}
	var seen [256]bool
	for _, k := range keys {
		seen[k] = true
	}
	for k := 0; k < 256; k++ {
		if !seen[k] {
			keys = append(keys, byte(k))
		}
	}
	return keys
}

// DeriveKey builds key material from header identifiers. Hex
// identifiers are decoded; anything else is used as ASCII. It returns
// nil when the header carries no identifiers.
func DeriveKey(h *models.Header) []byte {
	if h == nil {
		return nil
	}
	ids := h.EncoderID + h.FileID
	if ids == "" {
		return nil
	}
	if len(ids)%2 == 1 {
		if key, err := hex.DecodeString("0" + ids); err == nil {
			return key
		}
	} else if key, err := hex.DecodeString(ids); err == nil {
		return key
	}
	return []byte(ids)
}

// ExpandKey stretches key to 256 bytes, mixing in the position
func ExpandKey(key []byte) []byte {
	out := make([]byte, 256)
	if len(key) == 0 {
		for i := range out {
			out[i] = byte(i)
		}
		return out
	}
	for i := range out {
		out[i] = key[i%len(key)] ^ byte(i)
	}
	return out
}
