package transform

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/iSundram/ion/pkg/models"
)

// catalogTransforms returns every byte-to-byte transform family with a
// representative spread of parameters
func catalogTransforms() []*Transform {
	ts := []*Transform{
		Identity(),
		Reverse(),
		NibbleSwap(),
		BitPairSwap(),
		Complement(),
		Negate(),
		Rot13(),
		Keyed([]byte{0xab, 0xc1, 0x2d, 0xef, 0x34}, KeyedRotation),
		Keyed(nil, 5),
	}
	for n := 1; n < 8; n++ {
		ts = append(ts, RotateLeft(n))
	}
	for k := 0; k < 256; k++ {
		ts = append(ts, XOR(byte(k)), Add(byte(k)))
	}
	for _, p := range XORPatterns {
		ts = append(ts, XORPattern(p))
	}
	return ts
}

func sampleInputs() [][]byte {
	rng := rand.New(rand.NewSource(42))
	inputs := [][]byte{
		nil,
		{},
		{0x00},
		{0xff},
		[]byte("<?php function foo() { return 1; } ?>"),
	}
	for _, n := range []int{1, 2, 3, 17, 256, 1000} {
		buf := make([]byte, n)
		rng.Read(buf)
		inputs = append(inputs, buf)
	}
	return inputs
}

func TestRoundTripLaw(t *testing.T) {
	for _, tr := range catalogTransforms() {
		t.Run(tr.Label, func(t *testing.T) {
			for _, x := range sampleInputs() {
				got := tr.Invert(tr.Apply(x))
				if !bytes.Equal(got, x) {
					t.Fatalf("Invert(Apply(%x)) = %x", x, got)
				}
			}
		})
	}
}

func TestTransformsDoNotMutateInput(t *testing.T) {
	for _, tr := range catalogTransforms() {
		input := []byte("immutable payload \x00\x7f\xff")
		before := append([]byte(nil), input...)
		tr.Apply(input)
		tr.Invert(input)
		if !bytes.Equal(input, before) {
			t.Errorf("%s mutated its input", tr.Label)
		}
	}
}

func TestSelfInverseFamilies(t *testing.T) {
	x := []byte("self inverse check \x01\x80")
	for _, tr := range []*Transform{Reverse(), NibbleSwap(), BitPairSwap(), Negate(), Rot13(), XOR(0x5a), XORPattern([]byte("cube"))} {
		if got := tr.Apply(tr.Apply(x)); !bytes.Equal(got, x) {
			t.Errorf("%s applied twice = %x, want %x", tr.Label, got, x)
		}
	}
}

func TestKnownValues(t *testing.T) {
	tests := []struct {
		name string
		tr   *Transform
		in   []byte
		want []byte
	}{
		{"reverse", Reverse(), []byte{1, 2, 3}, []byte{3, 2, 1}},
		{"rotl 1", RotateLeft(1), []byte{0x81}, []byte{0x03}},
		{"rotl 3", RotateLeft(3), []byte{0x01}, []byte{0x08}},
		{"nibble swap", NibbleSwap(), []byte{0x5a}, []byte{0xa5}},
		{"bit pair swap", BitPairSwap(), []byte{0x01, 0x02}, []byte{0x02, 0x01}},
		{"negate", Negate(), []byte{0x01, 0x00}, []byte{0xff, 0x00}},
		{"xor", XOR(0x5a), []byte{0x5a, 0x00}, []byte{0x00, 0x5a}},
		{"xor pattern", XORPattern([]byte{0x01, 0x02}), []byte{0, 0, 0}, []byte{1, 2, 1}},
		{"add wraps", Add(2), []byte{0xff}, []byte{0x01}},
		{"rot13", Rot13(), []byte("Hello, php!"), []byte("Uryyb, cuc!")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tr.Apply(tt.in); !bytes.Equal(got, tt.want) {
				t.Errorf("Apply(%x) = %x, want %x", tt.in, got, tt.want)
			}
		})
	}
}

func TestKeyedComposition(t *testing.T) {
	key := []byte{0x12, 0x34}
	tr := Keyed(key, KeyedRotation)
	expanded := ExpandKey(key)

	in := []byte{0x00, 0xff, 0x10}
	want := make([]byte, len(in))
	for i, b := range in {
		want[i] = RotateLeft(KeyedRotation).Apply([]byte{b ^ expanded[i]})[0]
	}
	if got := tr.Apply(in); !bytes.Equal(got, want) {
		t.Errorf("Apply() = %x, want %x", got, want)
	}
}

func TestAlphabetRoundTrip(t *testing.T) {
	data := []byte("\xfb\xff\xbf alphabet payload \x00\x01")
	for _, a := range Alphabets {
		t.Run(a.Name, func(t *testing.T) {
			tr := Alphabet(a.Name, a.Alphabet)
			if got := tr.Apply(tr.Invert(data)); !bytes.Equal(got, data) {
				t.Errorf("Apply(Invert(x)) = %q, want %q", got, data)
			}
		})
	}
}

func TestXORKeyOrder(t *testing.T) {
	likely := LikelyXORKeys()
	if got := XORKeyOrder(false); !bytes.Equal(got, likely) {
		t.Errorf("XORKeyOrder(false) = %x, want likely keys", got)
	}

	full := XORKeyOrder(true)
	if len(full) != 256 {
		t.Fatalf("len(XORKeyOrder(true)) = %d, want 256", len(full))
	}
	if !bytes.Equal(full[:len(likely)], likely) {
		t.Error("full order does not start with the likely keys")
	}
	var seen [256]bool
	for _, k := range full {
		if seen[k] {
			t.Fatalf("key 0x%02x repeated", k)
		}
		seen[k] = true
	}
}

func TestDeriveKey(t *testing.T) {
	tests := []struct {
		name   string
		header *models.Header
		want   []byte
	}{
		{"nil header", nil, nil},
		{"no identifiers", &models.Header{}, nil},
		{"even hex", &models.Header{EncoderID: "abc1", FileID: "2def"}, []byte{0xab, 0xc1, 0x2d, 0xef}},
		{"odd hex", &models.Header{EncoderID: "abc12", FileID: "def34"}, []byte{0xab, 0xc1, 0x2d, 0xef, 0x34}},
		{"odd hex length", &models.Header{EncoderID: "1437d", FileID: "2841"}, []byte{0x01, 0x43, 0x7d, 0x28, 0x41}},
		{"not hex", &models.Header{EncoderID: "zz", FileID: "y"}, []byte("zzy")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveKey(tt.header); !bytes.Equal(got, tt.want) {
				t.Errorf("DeriveKey() = %x, want %x", got, tt.want)
			}
		})
	}
}

func TestExpandKey(t *testing.T) {
	k := ExpandKey([]byte{0xff})
	if len(k) != 256 {
		t.Fatalf("len = %d, want 256", len(k))
	}
	if k[0] != 0xff || k[1] != 0xfe || k[255] != 0x00 {
		t.Errorf("ExpandKey = %x...", k[:4])
	}
	empty := ExpandKey(nil)
	if empty[7] != 7 {
		t.Errorf("ExpandKey(nil)[7] = %d, want 7", empty[7])
	}
}
