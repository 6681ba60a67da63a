package codec

import (
	"bytes"
	"errors"
	"testing"
)

// Test: decode(encode(x)) == x for representative byte sequences.
func TestRoundTrip(t *testing.T) {
	inputs := [][]byte{
		[]byte("a\nb\nc"),
		[]byte(""),
		[]byte("hello, world"),
		{0x00, 0xff, 0xfe, 0x01, 0x80},
		[]byte("unicode: héllo wörld ✓"),
		bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 1024),
	}

	for _, in := range inputs {
		encoded := Encode(in)
		out, err := Decode(encoded)
		if err != nil {
			t.Fatalf("Decode(%q) returned error: %v", encoded, err)
		}
		if !bytes.Equal(in, out) {
			t.Errorf("round trip mismatch: in=%v out=%v", in, out)
		}
	}
}

func TestRoundTrip_EmptyProducesEmpty(t *testing.T) {
	out, err := Decode(Encode(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty output, got %v", out)
	}
}

func TestDecode_Malformed(t *testing.T) {
	cases := []string{
		"not!!valid//base64",
		"abc",                // wrong padding
		"====",
		"aGVsbG8", // missing padding
	}

	for _, c := range cases {
		_, err := Decode(c)
		if err == nil {
			t.Errorf("Decode(%q): expected error, got nil", c)
			continue
		}
		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			t.Errorf("Decode(%q): expected *DecodeError, got %T", c, err)
		}
		if decodeErr != nil && decodeErr.Error() == "" {
			t.Errorf("Decode(%q): expected descriptive message", c)
		}
	}
}

// Encoded payloads must survive URL path segments untouched.
func TestEncode_URLSafe(t *testing.T) {
	encoded := Encode([]byte{0xfb, 0xff, 0xfe, 0x3f, 0x3e})
	for _, r := range encoded {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '=':
		default:
			t.Fatalf("encoded output contains unsafe character %q in %q", r, encoded)
		}
	}
}
