package crypto

import (
	"encoding/hex"
	"testing"
)

func TestHexDigest(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{
			name:  "empty input",
			input: []byte{},
			want:  "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name:  "hello",
			input: []byte("hello"),
			want:  "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HexDigest(tt.input)
			if got != tt.want {
				t.Errorf("HexDigest(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestHexDigest_Deterministic(t *testing.T) {
	data := []byte("deterministic test input")
	h1 := HexDigest(data)
	h2 := HexDigest(data)
	if h1 != h2 {
		t.Errorf("HexDigest is not deterministic: %s != %s", h1, h2)
	}
	if len(h1) != DigestSize*2 {
		t.Errorf("HexDigest length = %d, want %d", len(h1), DigestSize*2)
	}
}

func TestSum256_MatchesHexDigest(t *testing.T) {
	data := []byte("powledger")
	sum := Sum256(data)
	if hex.EncodeToString(sum[:]) != HexDigest(data) {
		t.Errorf("Sum256 and HexDigest disagree for %q", data)
	}
}

func TestLeadingZeroNibbles(t *testing.T) {
	tests := []struct {
		name string
		head []byte
		want int
	}{
		{"no zeros", []byte{0xab}, 0},
		{"one nibble", []byte{0x0a}, 1},
		{"one byte", []byte{0x00, 0xff}, 2},
		{"three nibbles", []byte{0x00, 0x01}, 3},
		{"four nibbles", []byte{0x00, 0x00, 0x15}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sum [DigestSize]byte
			for i := range sum {
				sum[i] = 0xff
			}
			copy(sum[:], tt.head)
			if got := LeadingZeroNibbles(sum); got != tt.want {
				t.Errorf("LeadingZeroNibbles(%x) = %d, want %d", sum[:4], got, tt.want)
			}
		})
	}

	var zero [DigestSize]byte
	if got := LeadingZeroNibbles(zero); got != DigestSize*2 {
		t.Errorf("LeadingZeroNibbles(zero) = %d, want %d", got, DigestSize*2)
	}
}

func TestChecksum(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{
			name:  "empty input",
			input: []byte{},
			want:  "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262",
		},
		{
			name:  "hello",
			input: []byte("hello"),
			want:  "ea8f163db38682925e4491c5e58d4bb3506ef8c14eb78a86e908c5624a67200f",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Checksum(tt.input)
			if hex.EncodeToString(got[:]) != tt.want {
				t.Errorf("Checksum(%q) = %x, want %s", tt.input, got, tt.want)
			}
		})
	}
}
