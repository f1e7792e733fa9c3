// Package announcer generates the radio-presenter lines Vexo speaks
// between songs: DJ intros and song suggestions. Generation is
// model-backed with validation, one retry and a deterministic fallback,
// so a broken or unconfigured backend never blocks playback.
package announcer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vexofm/vexo/pkg/provider/llm"
)

const (
	temperature          = 0.7
	introMaxTokens       = 180
	suggestionsMaxTokens = 500

	// retries is the number of extra attempts after the first.
	retries = 1

	// DefaultSuggestionCount is used when a request does not say how many.
	DefaultSuggestionCount = 5

	maxSuggestionCount = 10
)

const introSystem = `You are Vexo FM, a charismatic radio host introducing songs.
Rules:
- intro: 1-2 sentences, max 35 words.
- intro MUST include the exact song title and artist provided.
- If for_user is provided, dedicate to them; else if requested_by is provided, dedicate to them.
- No lyrics. No profanity.
- Return ONLY JSON: {"intro": "..."}`

const suggestionsSystem = `You are Vexo FM, a radio host with deep music knowledge.
Suggest songs matching the listener's request. For each song give the exact
title, the artist, and one short sentence why it fits.
Return ONLY JSON: {"songs": [{"title": "...", "artist": "...", "reason": "..."}]}`

// Announcer produces presenter lines. A nil provider is valid and always
// yields the deterministic fallbacks.
type Announcer struct {
	provider llm.Provider
}

// New creates an Announcer on top of a text generation backend. provider
// may be nil when no backend is configured.
func New(provider llm.Provider) *Announcer {
	return &Announcer{provider: provider}
}

// IntroRequest describes the song a DJ intro is wanted for.
type IntroRequest struct {
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	RequestedBy string `json:"requested_by,omitempty"`
	ForUser     string `json:"for_user,omitempty"`
}

// Intro generates a one-to-two sentence DJ intro that names the song title
// and artist. generated reports whether the model produced the line; false
// means the deterministic fallback was used.
func (a *Announcer) Intro(ctx context.Context, req IntroRequest) (intro string, generated bool) {
	if a.provider == nil {
		return IntroFallback(req), false
	}

	payload, _ := json.Marshal(req)
	user := "Generate the DJ intro JSON for this payload.\nPayload:\n" + string(payload)

	for attempt := 0; attempt <= retries; attempt++ {
		resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
			SystemPrompt: introSystem,
			Messages:     []llm.Message{{Role: "user", Content: user}},
			Temperature:  temperature,
			MaxTokens:    introMaxTokens,
		})
		if err != nil {
			slog.Warn("intro generation failed", "provider", a.provider.Name(), "attempt", attempt, "error", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		var out struct {
			Intro string `json:"intro"`
		}
		if err := decodeJSON(resp.Content, &out); err != nil {
			continue
		}
		line := strings.TrimSpace(out.Intro)
		if line == "" {
			continue
		}

		// The intro must actually name the song; a line that dropped the
		// title or artist is worse than the canned one.
		if !containsTitleArtist(line, req.Title, req.Artist) {
			return IntroFallback(req), false
		}
		return line, true
	}

	return IntroFallback(req), false
}

// IntroFallback is the deterministic presenter line used when generation is
// unavailable or produced an unusable intro.
func IntroFallback(req IntroRequest) string {
	who := strings.TrimSpace(req.ForUser)
	if who == "" {
		who = strings.TrimSpace(req.RequestedBy)
	}
	if who != "" {
		return fmt.Sprintf("Alright %s, this one's for you: \"%s\" by %s, right here on Vexo FM.", who, req.Title, req.Artist)
	}
	return fmt.Sprintf("Up next on Vexo FM: \"%s\" by %s.", req.Title, req.Artist)
}

// Song is one suggested track.
type Song struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Reason string `json:"reason,omitempty"`
}

// SuggestionsRequest asks for song suggestions. Prompt is free-form
// listener input and may be empty; Count defaults to
// DefaultSuggestionCount.
type SuggestionsRequest struct {
	Prompt string `json:"prompt,omitempty"`
	Count  int    `json:"count,omitempty"`
}

// Suggestions generates up to req.Count songs. It never fails: a broken
// backend yields an empty, non-nil slice.
func (a *Announcer) Suggestions(ctx context.Context, req SuggestionsRequest) []Song {
	count := req.Count
	if count <= 0 {
		count = DefaultSuggestionCount
	}
	if count > maxSuggestionCount {
		count = maxSuggestionCount
	}
	if a.provider == nil {
		return []Song{}
	}

	user := fmt.Sprintf("Suggest %d songs.", count)
	if p := strings.TrimSpace(req.Prompt); p != "" {
		user += "\nListener request: " + p
	}

	for attempt := 0; attempt <= retries; attempt++ {
		resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
			SystemPrompt: suggestionsSystem,
			Messages:     []llm.Message{{Role: "user", Content: user}},
			Temperature:  temperature,
			MaxTokens:    suggestionsMaxTokens,
		})
		if err != nil {
			slog.Warn("suggestion generation failed", "provider", a.provider.Name(), "attempt", attempt, "error", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		var out struct {
			Songs []Song `json:"songs"`
		}
		if err := decodeJSON(resp.Content, &out); err != nil {
			continue
		}

		songs := make([]Song, 0, count)
		for _, s := range out.Songs {
			if strings.TrimSpace(s.Title) == "" || strings.TrimSpace(s.Artist) == "" {
				continue
			}
			songs = append(songs, s)
			if len(songs) == count {
				break
			}
		}
		if len(songs) > 0 {
			return songs
		}
	}

	return []Song{}
}

// containsTitleArtist reports whether text names both the title and the
// artist, case-insensitively.
func containsTitleArtist(text, title, artist string) bool {
	t := strings.ToLower(strings.TrimSpace(title))
	a := strings.ToLower(strings.TrimSpace(artist))
	x := strings.ToLower(text)
	return t != "" && a != "" && strings.Contains(x, t) && strings.Contains(x, a)
}

// decodeJSON parses a model reply, tolerating markdown code fences around
// the JSON document.
func decodeJSON(raw string, v any) error {
	s := strings.TrimSpace(raw)
	if after, ok := strings.CutPrefix(s, "```json"); ok {
		s = after
	} else if after, ok := strings.CutPrefix(s, "```"); ok {
		s = after
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return json.Unmarshal([]byte(strings.TrimSpace(s)), v)
}
