package settings

import (
	"errors"
	"testing"

	"github.com/vexofm/vexo/internal/catalog"
)

func testDefaults() GuildSettings {
	return Defaults(catalog.Builtin())
}

func TestApplyPatch_UnknownKey(t *testing.T) {
	_, err := ApplyPatch(testDefaults(), map[string]any{"volume": 2})
	var ue *UnknownSettingError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want UnknownSettingError", err)
	}
	if ue.Key != "volume" {
		t.Fatalf("key = %q", ue.Key)
	}
}

func TestApplyPatch_BoolCoercion(t *testing.T) {
	cases := []struct {
		value any
		want  bool
	}{
		{true, true},
		{false, false},
		{"1", true},
		{"true", true},
		{"YES", true},
		{" on ", true},
		{"y", true},
		{"0", false},
		{"off", false},
		{"no", false},
		{float64(1), true},
		{float64(0), false},
	}
	for _, tc := range cases {
		got, err := ApplyPatch(testDefaults(), map[string]any{"greet_on_join": tc.value})
		if err != nil {
			t.Fatalf("patch %v: %v", tc.value, err)
		}
		if got.GreetOnJoin != tc.want {
			t.Errorf("greet_on_join(%v) = %v, want %v", tc.value, got.GreetOnJoin, tc.want)
		}
	}
}

func TestApplyPatch_MaxTTSCharsBounds(t *testing.T) {
	for _, bad := range []any{0, 2001, -5, "abc"} {
		if _, err := ApplyPatch(testDefaults(), map[string]any{"max_tts_chars": bad}); err == nil {
			t.Errorf("max_tts_chars=%v accepted, want error", bad)
		}
	}
	got, err := ApplyPatch(testDefaults(), map[string]any{"max_tts_chars": "500"})
	if err != nil {
		t.Fatalf("string int rejected: %v", err)
	}
	if got.MaxTTSChars != 500 {
		t.Fatalf("max_tts_chars = %d", got.MaxTTSChars)
	}
}

func TestApplyPatch_ListsFromJSONStrings(t *testing.T) {
	got, err := ApplyPatch(testDefaults(), map[string]any{
		"allowed_voice_ids":          `["en_us_002","en_us_002"," en_us_006 ",""]`,
		"allowlist_text_channel_ids": `[123, "456", 0, -1, 123]`,
	})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if len(got.AllowedVoiceIDs) != 2 || got.AllowedVoiceIDs[0] != "en_us_002" || got.AllowedVoiceIDs[1] != "en_us_006" {
		t.Fatalf("allowed = %v", got.AllowedVoiceIDs)
	}
	if len(got.AllowlistTextChannelIDs) != 2 || got.AllowlistTextChannelIDs[0] != 123 || got.AllowlistTextChannelIDs[1] != 456 {
		t.Fatalf("allowlist = %v", got.AllowlistTextChannelIDs)
	}
}

func TestApplyPatch_MalformedJSONList(t *testing.T) {
	_, err := ApplyPatch(testDefaults(), map[string]any{"allowed_voice_ids": "not json"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if ve.Field != "allowed_voice_ids" {
		t.Fatalf("field = %q", ve.Field)
	}
}

func TestValidate_RestrictVoicesInvariant(t *testing.T) {
	cases := []struct {
		name    string
		allowed []string
		wantOK  bool
	}{
		{"empty list", nil, false},
		{"missing fallback", []string{"en_us_002"}, false},
		{"missing default", []string{"en_us_001", "en_us_002"}, true}, // default == fallback here
		{"complete", []string{"en_us_001", "en_us_002", "en_us_006"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := testDefaults()
			s.RestrictVoices = true
			s.AllowedVoiceIDs = tc.allowed
			err := s.Validate()
			if tc.wantOK && err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if !tc.wantOK && err == nil {
				t.Fatal("Validate passed, want error")
			}
		})
	}
}

func TestValidate_RestrictVoicesDistinctDefault(t *testing.T) {
	s := testDefaults()
	s.RestrictVoices = true
	s.DefaultVoiceID = "en_us_007"
	s.AllowedVoiceIDs = []string{"en_us_001", "en_us_002"}
	if err := s.Validate(); err == nil {
		t.Fatal("Validate passed without default_voice_id in allowlist")
	}

	s.AllowedVoiceIDs = []string{"en_us_001", "en_us_007"}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate_EmptyVoices(t *testing.T) {
	s := testDefaults()
	s.FallbackVoice = "  "
	s.FallbackVoice = ""
	if err := s.Validate(); err == nil {
		t.Fatal("empty fallback_voice accepted")
	}

	s = testDefaults()
	s.DefaultVoiceID = ""
	if err := s.Validate(); err == nil {
		t.Fatal("empty default_voice_id accepted")
	}
}
