package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltin_KnownVoices(t *testing.T) {
	c := Builtin()
	if !c.Has("en_us_002") {
		t.Fatal("missing en_us_002")
	}
	if !c.Has("google_translate") {
		t.Fatal("missing google_translate")
	}
	if got := c.FriendlyName("en_us_002"); got != "Jessie" {
		t.Fatalf("FriendlyName(en_us_002) = %q", got)
	}
	if got := c.FriendlyName("no_such_voice"); got != "no_such_voice" {
		t.Fatalf("FriendlyName(unknown) = %q", got)
	}
}

func TestCatalog_ProviderClassification(t *testing.T) {
	c := Builtin()
	cases := []struct {
		id   string
		want Provider
	}{
		{"en_us_002", ProviderPrimary},
		{"google_translate", ProviderFallback},
		{"google_experimental", ProviderFallback}, // unknown id, prefix rule
		{"fr_001", ProviderPrimary},
	}
	for _, tc := range cases {
		if got := c.ProviderFor(tc.id); got != tc.want {
			t.Errorf("ProviderFor(%q) = %q, want %q", tc.id, got, tc.want)
		}
	}
}

func TestCatalog_Lookup(t *testing.T) {
	c := Builtin()
	cases := []struct {
		input  string
		wantID string
		wantOK bool
	}{
		{"en_us_002", "en_us_002", true},
		{"Jessie", "en_us_002", true},
		{"jessie", "en_us_002", true},
		{"Jessi", "en_us_002", true}, // fuzzy
		{"Stormtroper", "en_us_stormtrooper", true},
		{"zzzzz", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		v, ok := c.Lookup(tc.input)
		if ok != tc.wantOK {
			t.Errorf("Lookup(%q) ok = %v, want %v", tc.input, ok, tc.wantOK)
			continue
		}
		if ok && v.ID != tc.wantID {
			t.Errorf("Lookup(%q) = %q, want %q", tc.input, v.ID, tc.wantID)
		}
	}
}

func TestCatalog_AutocompletePopularFirst(t *testing.T) {
	c := Builtin()

	out := c.Autocomplete("", 5)
	if len(out) != 5 {
		t.Fatalf("len = %d, want 5", len(out))
	}
	if out[0].ID != "en_us_ghostface" {
		t.Fatalf("first = %q, want the top popular voice", out[0].ID)
	}

	// "narrat" matches Story Teller (en_male_narration) and Narrator; both
	// popular, ordered by popular rank.
	out = c.Autocomplete("narrat", 25)
	if len(out) < 2 {
		t.Fatalf("matches = %d, want at least 2", len(out))
	}
	if out[0].ID != "en_male_narration" || out[1].ID != "en_uk_001" {
		t.Fatalf("matches = %q, %q", out[0].ID, out[1].ID)
	}
}

func TestCatalog_First(t *testing.T) {
	c := Builtin()
	if got := c.First("en_us_ghostface"); got != "en_us_c3po" {
		t.Fatalf("First = %q, want en_us_c3po", got)
	}
	if got := c.First("nothing"); got != "en_us_ghostface" {
		t.Fatalf("First = %q, want en_us_ghostface", got)
	}
}

func TestLoadFile_OverridesBuiltin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voices.yaml")
	data := `
voices:
  - id: en_us_002
    name: Jessie
  - id: google_translate
    name: Normal voice
popular:
  - google_translate
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(c.Voices()) != 2 {
		t.Fatalf("voices = %d, want 2", len(c.Voices()))
	}
	if c.ProviderFor("google_translate") != ProviderFallback {
		t.Fatal("provider not inferred from id prefix")
	}
	if got := c.Autocomplete("", 10); len(got) != 1 || got[0].ID != "google_translate" {
		t.Fatalf("popular = %+v", got)
	}
}

func TestLoadFile_RejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"unknown key", "voices:\n  - id: a\nextra: true\n"},
		{"duplicate id", "voices:\n  - id: a\n  - id: a\n"},
		{"empty id", "voices:\n  - name: nameless\n"},
		{"popular not in catalog", "voices:\n  - id: a\npopular: [b]\n"},
		{"no voices", "popular: []\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "voices.yaml")
			if err := os.WriteFile(path, []byte(tc.data), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFile(path); err == nil {
				t.Fatal("LoadFile succeeded, want error")
			}
		})
	}
}
