package common

import "testing"

func TestGenerateRandByteArray_Length(t *testing.T) {
	buf := GenerateRandByteArray(24)
	if len(buf) != 24 {
		t.Fatalf("expected length 24, got %d", len(buf))
	}
}

func TestMakeRandDigitString_OnlyDigits(t *testing.T) {
	for i := 0; i < 50; i++ {
		s, err := MakeRandDigitString(6)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(s) != 6 {
			t.Fatalf("expected 6 digits, got %q", s)
		}
		for _, c := range s {
			if c < '0' || c > '9' {
				t.Fatalf("non-digit %q in %q", c, s)
			}
		}
	}
}

func TestMakeRandDigitString_Varies(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		s, err := MakeRandDigitString(8)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seen[s] = struct{}{}
	}
	if len(seen) < 2 {
		t.Fatalf("expected differing codes, got %v", seen)
	}
}
