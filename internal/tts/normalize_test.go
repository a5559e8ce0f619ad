package tts

import "testing"

func TestNormalizeExpandsContractions(t *testing.T) {
	got := Normalize("I'm sure we can't fail, it's destiny!")
	want := "I am sure we cannot fail, it is destiny!"
	if got != want {
		t.Fatalf("Normalize = %q, want %q", got, want)
	}
}

func TestNormalizeStripsNonEncodable(t *testing.T) {
	got := Normalize("Ahoy \U0001F99C matey \U0001F3F4 welcome aboard")
	if got != "Ahoy matey welcome aboard" {
		t.Fatalf("Normalize = %q", got)
	}
}

func TestNormalizeFixesMojibakePunctuation(t *testing.T) {
	// "don’t" after a UTF-8/Windows-1252 double-decode round trip.
	got := Normalize("ye donât say")
	if got != "ye do not say" {
		t.Fatalf("Normalize = %q, want mojibake apostrophe repaired then expanded", got)
	}
}

func TestNormalizeTypographicQuotes(t *testing.T) {
	got := Normalize("“Avast” — said he…")
	if got != "\"Avast\" - said he..." {
		t.Fatalf("Normalize = %q", got)
	}
}

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	got := Normalize("  too\t many\n\n  spaces  ")
	if got != "too many spaces" {
		t.Fatalf("Normalize = %q", got)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	in := "It's a fine day — don't ye think? \U0001F480"
	first := Normalize(in)
	for i := 0; i < 3; i++ {
		if got := Normalize(in); got != first {
			t.Fatalf("Normalize not deterministic: %q vs %q", got, first)
		}
	}
}

func TestPronounceable(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"Ahoy!", true},
		{"...!!", false},
		{"   ", false},
		{"", false},
		{"42", true},
		{"?!.,;:", false},
	}
	for _, tc := range cases {
		if got := Pronounceable(tc.in); got != tc.want {
			t.Fatalf("Pronounceable(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
