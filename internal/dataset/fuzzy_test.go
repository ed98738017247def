package dataset

import "testing"

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"", "abc", 3},
		{"nmap", "nmap", 0},
		{"pkg", "pckg", 1},
		{"instalar", "istalar", 1},
	}
	for _, c := range cases {
		if got := Levenshtein(c.a, c.b); got != c.want {
			t.Errorf("Levenshtein(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("nmap", "nmap"); got != 1.0 {
		t.Errorf("identical strings: expected 1.0, got %f", got)
	}
	if got := Similarity("nmap", "nmpa"); got != 0.5 {
		t.Errorf("transposition: expected 0.5, got %f", got)
	}
	if got := Similarity("", ""); got != 1.0 {
		t.Errorf("both empty: expected 1.0, got %f", got)
	}
	if got := Similarity("a", ""); got != 0.0 {
		t.Errorf("one empty: expected 0.0, got %f", got)
	}
}

func TestTypoVariants(t *testing.T) {
	variants := TypoVariants("instalar python")
	if len(variants) != 3 {
		t.Fatalf("expected 3 variants, got %d", len(variants))
	}
	for _, v := range variants {
		if v == "instalar python" {
			t.Errorf("variant should differ from the original: %q", v)
		}
		if Similarity("instalar python", v) < 0.8 {
			t.Errorf("variant drifted too far: %q", v)
		}
	}

	short := TypoVariants("ab")
	if len(short) != 1 || short[0] != "ab" {
		t.Errorf("short input should come back unchanged, got %v", short)
	}
}
