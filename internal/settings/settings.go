// Package settings owns the per-guild configuration record: schema,
// defaults, patch validation with coercion, the cached write-through store,
// and the effective-voice resolver.
package settings

import "github.com/vexofm/vexo/internal/catalog"

// Limits enforced by validation.
const (
	MinTTSChars        = 1
	MaxTTSChars        = 2000
	MaxAllowedVoices   = 500
	MaxAllowlistedText = 200
)

// DefaultMaxTTSChars is the per-utterance character cap for new guilds.
const DefaultMaxTTSChars = 300

// DefaultFallbackVoice is the tenant fallback voice for new guilds.
const DefaultFallbackVoice = "en_us_001"

// GuildSettings is one guild's validated configuration. Instances returned
// by the store are deep copies; mutate freely.
type GuildSettings struct {
	// MaxTTSChars caps the length of a synthesized utterance.
	MaxTTSChars int `json:"max_tts_chars"`

	// FallbackVoice is substituted when a requested voice is unavailable.
	FallbackVoice string `json:"fallback_voice"`

	// DefaultVoiceID is the bot's reserved "server voice" used for
	// announcements; regular users are steered away from it.
	DefaultVoiceID string `json:"default_voice_id"`

	AutoReadMessages bool `json:"auto_read_messages"`
	LeaveWhenAlone   bool `json:"leave_when_alone"`
	GreetOnJoin      bool `json:"greet_on_join"`
	FarewellOnLeave  bool `json:"farewell_on_leave"`

	// RestrictVoices limits user-selectable voices to AllowedVoiceIDs.
	RestrictVoices bool `json:"restrict_voices"`

	// AllowedVoiceIDs is a unique ordered list. When RestrictVoices is set
	// it must be non-empty and contain both FallbackVoice and DefaultVoiceID.
	AllowedVoiceIDs []string `json:"allowed_voice_ids"`

	// AllowlistTextChannelIDs limits chat auto-read to these text channels
	// when non-empty.
	AllowlistTextChannelIDs []int64 `json:"allowlist_text_channel_ids"`
}

// Defaults returns the settings a guild starts with. The allowed list is
// pre-populated with the full catalog so restricting voices later does not
// require selecting everything first.
func Defaults(cat *catalog.Catalog) GuildSettings {
	return GuildSettings{
		MaxTTSChars:             DefaultMaxTTSChars,
		FallbackVoice:           DefaultFallbackVoice,
		DefaultVoiceID:          DefaultFallbackVoice,
		AutoReadMessages:        true,
		LeaveWhenAlone:          true,
		GreetOnJoin:             false,
		FarewellOnLeave:         false,
		RestrictVoices:          false,
		AllowedVoiceIDs:         cat.IDs(),
		AllowlistTextChannelIDs: nil,
	}
}

// Clone returns a deep copy.
func (s GuildSettings) Clone() GuildSettings {
	out := s
	out.AllowedVoiceIDs = append([]string(nil), s.AllowedVoiceIDs...)
	out.AllowlistTextChannelIDs = append([]int64(nil), s.AllowlistTextChannelIDs...)
	return out
}

// VoiceAllowed reports whether id passes the allowlist. Always true when
// RestrictVoices is off.
func (s GuildSettings) VoiceAllowed(id string) bool {
	if !s.RestrictVoices {
		return true
	}
	for _, v := range s.AllowedVoiceIDs {
		if v == id {
			return true
		}
	}
	return false
}

// TextChannelAllowed reports whether auto-read may fire in the channel.
// An empty allowlist allows every channel.
func (s GuildSettings) TextChannelAllowed(channelID int64) bool {
	if len(s.AllowlistTextChannelIDs) == 0 {
		return true
	}
	for _, id := range s.AllowlistTextChannelIDs {
		if id == channelID {
			return true
		}
	}
	return false
}
