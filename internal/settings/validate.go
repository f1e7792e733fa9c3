package settings

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// UnknownSettingError reports a patch key outside the schema.
type UnknownSettingError struct {
	Key string
}

func (e *UnknownSettingError) Error() string {
	return fmt.Sprintf("settings: unknown setting %q", e.Key)
}

// ValidationError reports a field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("settings: %s: %s", e.Field, e.Reason)
}

// knownKeys is the patchable schema surface.
var knownKeys = map[string]bool{
	"max_tts_chars":              true,
	"fallback_voice":             true,
	"default_voice_id":           true,
	"auto_read_messages":         true,
	"leave_when_alone":           true,
	"greet_on_join":              true,
	"farewell_on_leave":          true,
	"restrict_voices":            true,
	"allowed_voice_ids":          true,
	"allowlist_text_channel_ids": true,
}

// ApplyPatch merges patch over current, coercing loosely-typed inputs
// (admin panels submit strings), and validates the result. Unknown keys
// fail with [UnknownSettingError]; bad values with [ValidationError].
func ApplyPatch(current GuildSettings, patch map[string]any) (GuildSettings, error) {
	for key := range patch {
		if !knownKeys[key] {
			return GuildSettings{}, &UnknownSettingError{Key: key}
		}
	}

	out := current.Clone()

	if v, ok := patch["max_tts_chars"]; ok {
		n, err := coerceInt(v)
		if err != nil {
			return GuildSettings{}, &ValidationError{Field: "max_tts_chars", Reason: "must be an integer"}
		}
		out.MaxTTSChars = n
	}
	if v, ok := patch["fallback_voice"]; ok {
		out.FallbackVoice = strings.TrimSpace(coerceString(v))
	}
	if v, ok := patch["default_voice_id"]; ok {
		out.DefaultVoiceID = strings.TrimSpace(coerceString(v))
	}

	for key, dst := range map[string]*bool{
		"auto_read_messages": &out.AutoReadMessages,
		"leave_when_alone":   &out.LeaveWhenAlone,
		"greet_on_join":      &out.GreetOnJoin,
		"farewell_on_leave":  &out.FarewellOnLeave,
		"restrict_voices":    &out.RestrictVoices,
	} {
		if v, ok := patch[key]; ok {
			*dst = coerceBool(v)
		}
	}

	if v, ok := patch["allowed_voice_ids"]; ok {
		list, err := coerceStringList(v)
		if err != nil {
			return GuildSettings{}, &ValidationError{Field: "allowed_voice_ids", Reason: err.Error()}
		}
		out.AllowedVoiceIDs = list
	}
	if v, ok := patch["allowlist_text_channel_ids"]; ok {
		list, err := coerceIntList(v)
		if err != nil {
			return GuildSettings{}, &ValidationError{Field: "allowlist_text_channel_ids", Reason: err.Error()}
		}
		out.AllowlistTextChannelIDs = list
	}

	if err := out.Validate(); err != nil {
		return GuildSettings{}, err
	}
	return out, nil
}

// Validate checks the full record against the schema invariants. It also
// normalises list fields (trim, dedupe, drop empties).
func (s *GuildSettings) Validate() error {
	if s.MaxTTSChars < MinTTSChars || s.MaxTTSChars > MaxTTSChars {
		return &ValidationError{
			Field:  "max_tts_chars",
			Reason: fmt.Sprintf("must be between %d and %d", MinTTSChars, MaxTTSChars),
		}
	}
	if s.FallbackVoice == "" {
		return &ValidationError{Field: "fallback_voice", Reason: "must be a non-empty string"}
	}
	if s.DefaultVoiceID == "" {
		return &ValidationError{Field: "default_voice_id", Reason: "must be a non-empty string"}
	}

	seen := make(map[string]bool, len(s.AllowedVoiceIDs))
	cleaned := make([]string, 0, len(s.AllowedVoiceIDs))
	for _, raw := range s.AllowedVoiceIDs {
		voice := strings.TrimSpace(raw)
		if voice == "" || seen[voice] {
			continue
		}
		seen[voice] = true
		cleaned = append(cleaned, voice)
		if len(cleaned) > MaxAllowedVoices {
			return &ValidationError{
				Field:  "allowed_voice_ids",
				Reason: fmt.Sprintf("too large (max %d)", MaxAllowedVoices),
			}
		}
	}
	s.AllowedVoiceIDs = cleaned

	seenIDs := make(map[int64]bool, len(s.AllowlistTextChannelIDs))
	cleanedIDs := make([]int64, 0, len(s.AllowlistTextChannelIDs))
	for _, id := range s.AllowlistTextChannelIDs {
		if id <= 0 || seenIDs[id] {
			continue
		}
		seenIDs[id] = true
		cleanedIDs = append(cleanedIDs, id)
		if len(cleanedIDs) > MaxAllowlistedText {
			return &ValidationError{
				Field:  "allowlist_text_channel_ids",
				Reason: fmt.Sprintf("too large (max %d)", MaxAllowlistedText),
			}
		}
	}
	s.AllowlistTextChannelIDs = cleanedIDs

	if s.RestrictVoices {
		if len(s.AllowedVoiceIDs) == 0 {
			return &ValidationError{Field: "allowed_voice_ids", Reason: "pick at least one allowed voice"}
		}
		if !seen[s.FallbackVoice] {
			return &ValidationError{
				Field:  "allowed_voice_ids",
				Reason: "fallback_voice must be included when restrict_voices is enabled",
			}
		}
		if !seen[s.DefaultVoiceID] {
			return &ValidationError{
				Field:  "allowed_voice_ids",
				Reason: "default_voice_id must be included when restrict_voices is enabled",
			}
		}
	}
	return nil
}

// --- coercion helpers ---

// truthy strings accepted for boolean fields, case-insensitive.
var truthy = map[string]bool{"1": true, "true": true, "yes": true, "y": true, "on": true}

func coerceBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return truthy[strings.ToLower(strings.TrimSpace(t))]
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return false
	}
}

func coerceString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func coerceInt(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		return int(t), nil
	case json.Number:
		n, err := t.Int64()
		return int(n), err
	case string:
		return strconv.Atoi(strings.TrimSpace(t))
	default:
		return 0, fmt.Errorf("cannot convert %T", v)
	}
}

// coerceStringList accepts a list of strings or a JSON-encoded list string.
func coerceStringList(v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return append([]string(nil), t...), nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, coerceString(item))
		}
		return out, nil
	case string:
		var out []string
		if err := json.Unmarshal([]byte(t), &out); err != nil {
			return nil, fmt.Errorf("must be a JSON list")
		}
		return out, nil
	default:
		return nil, fmt.Errorf("must be a list of strings")
	}
}

// coerceIntList accepts a list of integers (or numeric strings), or a
// JSON-encoded list string. Unparseable entries are dropped.
func coerceIntList(v any) ([]int64, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []int64:
		return append([]int64(nil), t...), nil
	case []any:
		out := make([]int64, 0, len(t))
		for _, item := range t {
			switch n := item.(type) {
			case float64:
				out = append(out, int64(n))
			case json.Number:
				if i, err := n.Int64(); err == nil {
					out = append(out, i)
				}
			case string:
				if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
					out = append(out, i)
				}
			}
		}
		return out, nil
	case string:
		var raw []any
		if err := json.Unmarshal([]byte(t), &raw); err != nil {
			return nil, fmt.Errorf("must be a JSON list")
		}
		return coerceIntList(raw)
	default:
		return nil, fmt.Errorf("must be a list of integers")
	}
}
