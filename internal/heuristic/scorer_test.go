package heuristic

import (
	"bytes"
	"math/rand"
	"testing"
)

var fixtureSource = []byte("<?php function foo() { return 1; } ?>")

func TestScoreFixture(t *testing.T) {
	s := NewScorer(10)
	r := s.Score(fixtureSource)

	if r.StrongMarkers != 13 {
		t.Errorf("StrongMarkers = %d, want 13 (markers %v)", r.StrongMarkers, r.Markers)
	}
	if r.WeakMarkers != 5 {
		t.Errorf("WeakMarkers = %d, want 5", r.WeakMarkers)
	}
	if r.Score != 14 {
		t.Errorf("Score = %d, want 14", r.Score)
	}
	if r.BinaryRatio != 0 {
		t.Errorf("BinaryRatio = %v, want 0", r.BinaryRatio)
	}
	if !s.Passes(r) {
		t.Error("Passes() = false, want true")
	}
}

func TestScoreDeterministic(t *testing.T) {
	s := NewScorer(10)
	rng := rand.New(rand.NewSource(7))
	inputs := [][]byte{fixtureSource, bytes.Repeat([]byte("$a = 1; "), 50)}
	for i := 0; i < 10; i++ {
		buf := make([]byte, 64+i*37)
		rng.Read(buf)
		inputs = append(inputs, buf)
	}

	for _, in := range inputs {
		a, b := s.Score(in), s.Score(in)
		if a.Score != b.Score || a.BinaryRatio != b.BinaryRatio || a.Variables != b.Variables {
			t.Errorf("Score(%x) not deterministic: %+v vs %+v", in, a, b)
		}
	}
}

func TestScoreTotal(t *testing.T) {
	s := NewScorer(10)
	tests := []struct {
		name  string
		input []byte
	}{
		{"nil", nil},
		{"empty", []byte{}},
		{"short", []byte("<?php")},
		{"invalid utf8", bytes.Repeat([]byte{0xff, 0xfe, 0xc3}, 40)},
		{"nul bytes", make([]byte, 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := s.Score(tt.input)
			if r.Score > 0 {
				t.Errorf("Score(%q) = %d, want <= 0", tt.input, r.Score)
			}
		})
	}

	if r := s.Score(nil); r.Score != 0 {
		t.Errorf("Score(nil) = %d, want 0", r.Score)
	}
}

func TestScoreBinaryPenalty(t *testing.T) {
	s := NewScorer(10)
	noisy := append([]byte{}, fixtureSource...)
	noisy = append(noisy, bytes.Repeat([]byte{0x01}, 20)...)

	r := s.Score(noisy)
	if r.BinaryRatio <= BinaryRatioMax {
		t.Fatalf("BinaryRatio = %v, want > %v", r.BinaryRatio, BinaryRatioMax)
	}
	if r.Score != 14-BinaryPenalty {
		t.Errorf("Score = %d, want %d", r.Score, 14-BinaryPenalty)
	}
}

func TestScoreCaps(t *testing.T) {
	s := NewScorer(10)
	input := []byte(`<?php $a; $b; $c; $d; $e; $f; $g; $h; {}{}{}{}{}{}{}{}{}{}`)

	r := s.Score(input)
	if r.Variables != 8 {
		t.Errorf("Variables = %d, want 8", r.Variables)
	}
	if want := 5 + WeakCap + VariableCap; r.Score != want {
		t.Errorf("Score = %d, want %d", r.Score, want)
	}
}

func TestScoreNeedsStrongMarker(t *testing.T) {
	s := NewScorer(10)
	runs := [][]byte{
		bytes.Repeat([]byte("~;"), 60),
		bytes.Repeat([]byte("$a"), 60),
		[]byte(`$a; $b; $c; $d; $e; $f; $g; $h; {}{}{}{}{}{}{}{}{}{}`),
	}
	for _, in := range runs {
		if r := s.Score(in); r.Score != 0 {
			t.Errorf("Score(%q) = %d, want 0", in[:16], r.Score)
		}
	}
}

func TestScoreMarkers(t *testing.T) {
	s := NewScorer(10)
	tests := []struct {
		name   string
		input  string
		marker string
	}{
		{"class", "final class UserRepository extends Base", "class"},
		{"namespace", "namespace App\\Http\\Controllers;", "namespace"},
		{"control flow", "foreach ($items as $item) {}", "control_flow"},
		{"superglobal", "$id = $_GET['id']; unset($x);", "superglobal"},
		{"use", "use Illuminate\\Support\\Str;\n", "use"},
		{"uppercase keyword", "<?PHP ECHO 'hello world';", "output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := s.Score([]byte(tt.input))
			found := false
			for _, m := range r.Markers {
				if m == tt.marker {
					found = true
				}
			}
			if !found {
				t.Errorf("Score(%q) markers = %v, want %s", tt.input, r.Markers, tt.marker)
			}
		})
	}
}

func TestScoreRejectsWrongXORKeys(t *testing.T) {
	s := NewScorer(10)
	for d := 1; d < 256; d++ {
		garbled := make([]byte, len(fixtureSource))
		for i, b := range fixtureSource {
			garbled[i] = b ^ byte(d)
		}
		if r := s.Score(garbled); s.Passes(r) {
			t.Errorf("key difference 0x%02x: Score = %d passes threshold", d, r.Score)
		}
	}
}

func TestBinaryRatio(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  float64
	}{
		{"empty", nil, 0},
		{"text", []byte("hello\tworld\r\n"), 0},
		{"all control", []byte{0x00, 0x01, 0x02, 0x7f}, 1},
		{"half invalid", []byte{'a', 0xff}, 0.5},
		{"multibyte", []byte("héllo"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BinaryRatio(tt.input); got != tt.want {
				t.Errorf("BinaryRatio(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
