package language

import "testing"

func TestToISO3(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"en", "eng"},
		{"eng", "eng"},
		{"fre", "fra"},
		{"ja", "jpn"},
		{"xyz", "xyz"},
		{"", "und"},
		{"q", "und"},
	}
	for _, tc := range cases {
		if got := ToISO3(tc.in); got != tc.want {
			t.Fatalf("ToISO3(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"en", "English"},
		{"jpn", "Japanese"},
		{"", "Unknown"},
		{"und", "Unknown"},
	}
	for _, tc := range cases {
		if got := DisplayName(tc.in); got != tc.want {
			t.Fatalf("DisplayName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDisplayNameFallsBackToCLDR(t *testing.T) {
	// Icelandic is not in the fixed table; x/text should resolve it.
	if got := DisplayName("is"); got != "Icelandic" {
		t.Fatalf("DisplayName(is) = %q", got)
	}
}

func TestExtractFromTags(t *testing.T) {
	if got := ExtractFromTags(map[string]string{"LANGUAGE": " ENG "}); got != "eng" {
		t.Fatalf("got %q", got)
	}
	if got := ExtractFromTags(nil); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	if got := ExtractFromTags(map[string]string{"title": "Signs"}); got != "" {
		t.Fatalf("expected empty for missing language tag, got %q", got)
	}
}
