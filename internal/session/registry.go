package session

import (
	"context"
	"sync"
	"time"
)

const healthInterval = 20 * time.Second

// Registry hands out one [GuildSession] per guild, creating sessions
// lazily. Sessions are never destroyed; a detached session keeps its queue
// and channel memory.
type Registry struct {
	deps Deps

	mu       sync.Mutex
	sessions map[string]*GuildSession
}

// NewRegistry creates a Registry whose sessions share deps.
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:     deps,
		sessions: make(map[string]*GuildSession),
	}
}

// Get returns the session for a guild, creating it on first use.
func (r *Registry) Get(guildID string) *GuildSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[guildID]
	if !ok {
		s = newGuildSession(guildID, r.deps)
		r.sessions[guildID] = s
	}
	return s
}

// Each calls fn for every known session.
func (r *Registry) Each(fn func(*GuildSession)) {
	r.mu.Lock()
	snap := make([]*GuildSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		snap = append(snap, s)
	}
	r.mu.Unlock()
	for _, s := range snap {
		fn(s)
	}
}

// RunHealthLoop reconciles attachment state with platform reality every 20
// seconds until ctx is cancelled. Run it once per process.
func (r *Registry) RunHealthLoop(ctx context.Context) error {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Each(func(s *GuildSession) { s.Reconcile(ctx) })
		}
	}
}

// Shutdown detaches every attached session.
func (r *Registry) Shutdown() error {
	var first error
	r.Each(func(s *GuildSession) {
		if err := s.Disconnect(ReasonShutdown); err != nil && first == nil {
			first = err
		}
	})
	return first
}
