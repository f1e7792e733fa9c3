// Package session owns the per-guild voice attachment state machine and the
// utterance worker that drains each guild's playback queue. All attachment
// transitions for a guild are serialized by the session's connect lock.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vexofm/vexo/internal/catalog"
	"github.com/vexofm/vexo/internal/observe"
	"github.com/vexofm/vexo/internal/queue"
	"github.com/vexofm/vexo/internal/resilience"
	"github.com/vexofm/vexo/internal/settings"
	"github.com/vexofm/vexo/internal/storage"
	"github.com/vexofm/vexo/internal/userprefs"
)

const (
	connectTimeout  = 20 * time.Second
	connectCooldown = 5 * time.Second
)

// State is the attachment state of a guild session.
type State string

const (
	StateDetached      State = "detached"
	StateConnecting    State = "connecting"
	StateAttached      State = "attached"
	StateDisconnecting State = "disconnecting"
)

// Disconnect reasons. Leaving by explicit command or because the channel
// emptied also forgets the last channel, so the health loop will not
// silently rejoin.
const (
	ReasonSlashLeave   = "slash_leave"
	ReasonAlone        = "alone"
	ReasonDisconnected = "disconnected"
	ReasonAutoFollow   = "auto_follow"
	ReasonShutdown     = "shutdown"
)

// GuildSession holds one guild's attachment state, playback queue and
// worker. Create through [Registry.Get]; sessions are never destroyed.
type GuildSession struct {
	guildID string
	deps    Deps

	queue *queue.Queue

	mu              sync.Mutex // connect_lock
	state           State
	conn            Conn
	lockedChannelID string
	lastChannelID   string
	lastSpeakerID   string
	lastAttempt     time.Time

	workerRunning bool
	workerDone    chan struct{}
	playCtx       context.Context
	playCancel    context.CancelFunc
}

// Deps bundles the collaborators a session needs.
type Deps struct {
	Platform Platform
	Settings *settings.Store
	Prefs    *userprefs.Store
	Catalog  *catalog.Catalog
	Chain    *resilience.Chain
	Store    storage.Store

	QueueSize  int
	DropPolicy queue.Policy

	// MaxAudio caps a single playback; Stuck aborts playback making no
	// byte progress; GreetDelay defers greetings so join announcements do
	// not race the attachment. Zero values use the config defaults.
	MaxAudio   time.Duration
	Stuck      time.Duration
	GreetDelay time.Duration
}

func newGuildSession(guildID string, deps Deps) *GuildSession {
	if deps.MaxAudio <= 0 {
		deps.MaxAudio = 20 * time.Second
	}
	if deps.Stuck <= 0 {
		deps.Stuck = 45 * time.Second
	}
	if deps.GreetDelay <= 0 {
		deps.GreetDelay = greetDelay
	}
	return &GuildSession{
		guildID: guildID,
		deps:    deps,
		state:   StateDetached,
		queue:   queue.New(deps.QueueSize, deps.DropPolicy),
	}
}

// GuildID returns the guild this session belongs to.
func (s *GuildSession) GuildID() string { return s.guildID }

// State returns the current attachment state.
func (s *GuildSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ChannelID returns the attached channel id, "" when detached.
func (s *GuildSession) ChannelID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAttached {
		return ""
	}
	return s.lockedChannelID
}

// LastSpeaker returns the author of the most recently attributed utterance.
func (s *GuildSession) LastSpeaker() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSpeakerID
}

// SetLastSpeaker records the author of an attributed utterance.
func (s *GuildSession) SetLastSpeaker(userID string) {
	s.mu.Lock()
	s.lastSpeakerID = userID
	s.mu.Unlock()
}

// Enqueue adds an utterance to the playback queue, applying the configured
// drop policy. It reports how many items were evicted and whether the item
// was accepted.
func (s *GuildSession) Enqueue(it queue.Item) (dropped int, accepted bool) {
	dropped, accepted = s.queue.Enqueue(it)
	m := observe.DefaultMetrics()
	if accepted {
		m.QueueDepth.Add(context.Background(), 1-int64(dropped))
	}
	if dropped > 0 {
		m.RecordQueueDrops(context.Background(), dropped)
		slog.Warn("utterance dropped from full queue", "guild_id", s.guildID, "dropped", dropped)
	}
	return dropped, accepted
}

// QueueLen returns the number of utterances waiting.
func (s *GuildSession) QueueLen() int { return s.queue.Len() }

// EnsureConnected attaches the session to target. While attached to a
// different channel it fails with [LockedError] without mutating state.
// Reconnect attempts within the cooldown window fail with [ErrCooldown].
func (s *GuildSession) EnsureConnected(ctx context.Context, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateAttached {
		if s.lockedChannelID == target {
			return nil
		}
		return &LockedError{ChannelID: s.lockedChannelID}
	}

	// Adopt a voice client the platform is already holding, e.g. after an
	// in-process restart of the session layer.
	if live := s.deps.Platform.Live(s.guildID); live != nil {
		s.adoptLocked(live)
		if s.lockedChannelID == target {
			return nil
		}
		return &LockedError{ChannelID: s.lockedChannelID}
	}

	if !s.lastAttempt.IsZero() && time.Since(s.lastAttempt) < connectCooldown {
		return ErrCooldown
	}

	s.state = StateConnecting
	s.lockedChannelID = target
	s.lastAttempt = time.Now()

	jctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	conn, err := s.deps.Platform.Join(jctx, s.guildID, target)
	if err != nil {
		if errors.Is(err, ErrAlreadyConnected) {
			if live := s.deps.Platform.Live(s.guildID); live != nil {
				if live.ChannelID() != target {
					if merr := live.Move(jctx, target); merr != nil {
						s.resetLocked()
						return &ConnectFailedError{Cause: merr}
					}
				}
				s.adoptLocked(live)
				return nil
			}
		}
		s.resetLocked()
		return &ConnectFailedError{Cause: err}
	}

	s.adoptLocked(conn)
	slog.Info("voice session attached", "guild_id", s.guildID, "channel_id", target)
	return nil
}

// adoptLocked installs conn as the attached client and starts the worker.
// Must be called with s.mu held.
func (s *GuildSession) adoptLocked(conn Conn) {
	s.conn = conn
	s.state = StateAttached
	observe.DefaultMetrics().ActiveSessions.Add(context.Background(), 1)
	s.lockedChannelID = conn.ChannelID()
	s.lastChannelID = conn.ChannelID()
	s.playCtx, s.playCancel = context.WithCancel(context.Background())
	s.startWorkerLocked()
}

// resetLocked clears a failed connect attempt. The attempt time stays so
// the cooldown still applies.
func (s *GuildSession) resetLocked() {
	s.state = StateDetached
	s.lockedChannelID = ""
}

// Disconnect detaches the session. reason selects what is forgotten:
// ReasonSlashLeave and ReasonAlone also clear the last channel so the
// health loop will not rejoin it. The worker is stopped and awaited.
func (s *GuildSession) Disconnect(reason string) error {
	s.mu.Lock()

	if s.state != StateAttached && s.conn == nil {
		s.mu.Unlock()
		return nil
	}

	s.state = StateDisconnecting
	observe.DefaultMetrics().ActiveSessions.Add(context.Background(), -1)
	var err error
	if s.conn != nil {
		err = s.conn.Close()
	}
	s.conn = nil
	s.lockedChannelID = ""
	s.lastSpeakerID = ""
	if reason == ReasonSlashLeave || reason == ReasonAlone {
		s.lastChannelID = ""
	}
	// A deliberate disconnect resets the connect cooldown so an immediate
	// follow-up attach (auto-follow move, rejoin after /leave) is not
	// throttled.
	s.lastAttempt = time.Time{}
	if s.playCancel != nil {
		s.playCancel()
	}
	s.state = StateDetached

	running := s.workerRunning
	done := s.workerDone
	s.workerRunning = false
	s.mu.Unlock()

	if running {
		s.queue.EnqueueSentinel()
		<-done
	}

	slog.Info("voice session detached", "guild_id", s.guildID, "reason", reason)
	return err
}

// Reconcile realigns attachment state with platform reality. Two drifts are
// repaired: a stale attachment whose voice client the platform dropped, and
// a detached session that still remembers its last channel (an external
// disconnect such as a kick). Either way the session reattaches to the
// locked channel, or failing that the last channel, provided human members
// are present there. The health loop calls this every tick.
func (s *GuildSession) Reconcile(ctx context.Context) {
	s.mu.Lock()

	var target string
	switch {
	case s.state == StateAttached && s.deps.Platform.Live(s.guildID) == nil:
		target = s.lockedChannelID
		if target == "" {
			target = s.lastChannelID
		}
		// Drop the stale attachment but keep the channel memory.
		s.conn = nil
		s.lockedChannelID = ""
		s.state = StateDetached
		observe.DefaultMetrics().ActiveSessions.Add(context.Background(), -1)
		s.lastAttempt = time.Time{}
		if s.playCancel != nil {
			s.playCancel()
		}
		running := s.workerRunning
		done := s.workerDone
		s.workerRunning = false
		s.mu.Unlock()

		if running {
			s.queue.EnqueueSentinel()
			<-done
		}

	case s.state == StateDetached && s.lastChannelID != "":
		target = s.lastChannelID
		s.lastAttempt = time.Time{}
		s.mu.Unlock()

	default:
		s.mu.Unlock()
		return
	}

	if target == "" || s.deps.Platform.NonBotMembers(s.guildID, target) == 0 {
		return
	}

	slog.Warn("voice client lost, reattaching", "guild_id", s.guildID, "channel_id", target)
	if err := s.EnsureConnected(ctx, target); err != nil {
		slog.Error("reattach failed", "guild_id", s.guildID, "channel_id", target, "error", err)
	}
}
