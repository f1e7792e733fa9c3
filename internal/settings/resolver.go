package settings

import "github.com/vexofm/vexo/internal/catalog"

// UserDefault is the voice used for users without a preference: the tenant
// fallback when it differs from the reserved server voice, otherwise the
// first catalog voice that is not the server voice.
func UserDefault(s GuildSettings, cat *catalog.Catalog) string {
	if s.FallbackVoice != s.DefaultVoiceID {
		return s.FallbackVoice
	}
	return cat.First(s.DefaultVoiceID)
}

// EffectiveVoice resolves the voice actually used for an utterance. It is a
// pure, total function: every input yields a non-empty voice id.
//
// allowDefault distinguishes announcement paths (the server voice is fair
// game) from user paths (the server voice is reserved, so requests for it
// are steered to the user default).
func EffectiveVoice(s GuildSettings, cat *catalog.Catalog, requested string, allowDefault bool) string {
	userDefault := UserDefault(s, cat)

	voice := requested
	switch {
	case voice == "":
		if allowDefault {
			voice = s.DefaultVoiceID
		} else {
			voice = userDefault
		}
	case !allowDefault && voice == s.DefaultVoiceID:
		voice = userDefault
	}

	if !s.RestrictVoices {
		return voice
	}

	allowed := make(map[string]bool, len(s.AllowedVoiceIDs))
	for _, v := range s.AllowedVoiceIDs {
		allowed[v] = true
	}
	if allowed[voice] {
		return voice
	}

	if allowDefault {
		if allowed[s.DefaultVoiceID] {
			return s.DefaultVoiceID
		}
		if allowed[s.FallbackVoice] {
			return s.FallbackVoice
		}
		return voice
	}

	if allowed[userDefault] {
		return userDefault
	}
	for _, v := range s.AllowedVoiceIDs {
		if v != s.DefaultVoiceID {
			return v
		}
	}
	if allowed[s.DefaultVoiceID] {
		return s.DefaultVoiceID
	}
	return voice
}
