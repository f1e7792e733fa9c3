package session

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/vexofm/vexo/internal/queue"
)

const (
	greetVolume = 0.8
	greetDelay  = 2 * time.Second
)

var greetings = []string{
	"Hello %s",
	"Hey %s",
	"Good to see you %s",
	"%s has joined the chat",
}

var farewells = []string{
	"See ya",
	"Bye",
	"Until next time",
}

// Greet announces a user joining the bot's channel. A user rejoining on a
// day they were already seen gets "Welcome back"; the first sighting of the
// day gets a random variant. The announcement waits two seconds and is
// skipped if the attachment dropped in the meantime.
func (s *GuildSession) Greet(ctx context.Context, userID, displayName string) {
	name := s.deps.Prefs.SpeakName(ctx, userID, displayName)

	today := time.Now().UTC().Format("2006-01-02")
	lastSeen, err := s.deps.Store.MemberSeen(ctx, s.guildID, userID)
	if err != nil {
		slog.Warn("member seen lookup failed", "guild_id", s.guildID, "user_id", userID, "error", err)
	}
	if err := s.deps.Store.SetMemberSeen(ctx, s.guildID, userID, today); err != nil {
		slog.Warn("member seen update failed", "guild_id", s.guildID, "user_id", userID, "error", err)
	}

	var text string
	if lastSeen == today {
		text = "Welcome back " + name
	} else {
		text = fmt.Sprintf(greetings[rand.IntN(len(greetings))], name)
	}

	go func() {
		t := time.NewTimer(s.deps.GreetDelay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return
		}
		if s.State() != StateAttached {
			return
		}
		s.Enqueue(queue.Item{Text: text, AllowDefault: true, Volume: greetVolume, Source: "announcement"})
	}()
}

// Farewell announces a user leaving the bot's channel.
func (s *GuildSession) Farewell(ctx context.Context, userID, displayName string) {
	name := s.deps.Prefs.SpeakName(ctx, userID, displayName)
	s.Enqueue(queue.Item{
		Text:         farewells[rand.IntN(len(farewells))] + " " + name,
		AllowDefault: true,
		Volume:       greetVolume,
		Source:       "announcement",
	})
}
