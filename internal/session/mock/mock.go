// Package mock provides configurable [session.Platform] and [session.Conn]
// test doubles that record calls.
package mock

import (
	"context"
	"sync"

	"github.com/vexofm/vexo/internal/session"
	"github.com/vexofm/vexo/pkg/audio"
)

// Compile-time interface assertions.
var (
	_ session.Platform = (*Platform)(nil)
	_ session.Conn     = (*Conn)(nil)
)

// JoinCall records one Platform.Join invocation.
type JoinCall struct {
	GuildID   string
	ChannelID string
}

// Platform is a mock voice platform. The zero value joins successfully and
// tracks the live connection like the real platform does.
type Platform struct {
	// JoinErr, when set, fails every Join.
	JoinErr error

	// JoinErrs is consumed one error per Join before JoinErr applies; nil
	// entries mean success.
	JoinErrs []error

	// JoinFunc, when set, replaces the default Join behavior entirely.
	JoinFunc func(ctx context.Context, guildID, channelID string) (session.Conn, error)

	// Sink is handed to connections created by Join.
	Sink audio.Sink

	// Members maps channel id to its non-bot member count.
	Members map[string]int

	mu        sync.Mutex
	live      map[string]*Conn
	joinCalls []JoinCall
}

func (p *Platform) Join(ctx context.Context, guildID, channelID string) (session.Conn, error) {
	p.mu.Lock()
	p.joinCalls = append(p.joinCalls, JoinCall{GuildID: guildID, ChannelID: channelID})
	var next error
	if len(p.JoinErrs) > 0 {
		next = p.JoinErrs[0]
		p.JoinErrs = p.JoinErrs[1:]
	} else {
		next = p.JoinErr
	}
	p.mu.Unlock()

	if p.JoinFunc != nil {
		return p.JoinFunc(ctx, guildID, channelID)
	}
	if next != nil {
		return nil, next
	}

	c := &Conn{Channel: channelID, SinkImpl: p.Sink, onClose: func() { p.dropLive(guildID) }}
	p.mu.Lock()
	if p.live == nil {
		p.live = make(map[string]*Conn)
	}
	p.live[guildID] = c
	p.mu.Unlock()
	return c, nil
}

func (p *Platform) Live(guildID string) session.Conn {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.live[guildID]
	if !ok {
		return nil
	}
	return c
}

func (p *Platform) NonBotMembers(guildID, channelID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Members[channelID]
}

// SetLive installs a pre-existing live connection, simulating a client the
// platform kept across a session-layer restart.
func (p *Platform) SetLive(guildID string, c *Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.live == nil {
		p.live = make(map[string]*Conn)
	}
	if c == nil {
		delete(p.live, guildID)
		return
	}
	c.onClose = func() { p.dropLive(guildID) }
	p.live[guildID] = c
}

// SetMembers updates a channel's non-bot member count.
func (p *Platform) SetMembers(channelID string, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Members == nil {
		p.Members = make(map[string]int)
	}
	p.Members[channelID] = n
}

// JoinCalls returns a snapshot of recorded joins.
func (p *Platform) JoinCalls() []JoinCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]JoinCall, len(p.joinCalls))
	copy(out, p.joinCalls)
	return out
}

func (p *Platform) dropLive(guildID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.live, guildID)
}

// Conn is a mock voice connection.
type Conn struct {
	Channel  string
	MoveErr  error
	CloseErr error
	SinkImpl audio.Sink

	mu        sync.Mutex
	moveCalls []string
	closed    int
	onClose   func()
}

func (c *Conn) ChannelID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Channel
}

func (c *Conn) Move(ctx context.Context, channelID string) error {
	c.mu.Lock()
	c.moveCalls = append(c.moveCalls, channelID)
	err := c.MoveErr
	if err == nil {
		c.Channel = channelID
	}
	c.mu.Unlock()
	return err
}

func (c *Conn) Sink() audio.Sink { return c.SinkImpl }

func (c *Conn) Close() error {
	c.mu.Lock()
	c.closed++
	cb := c.onClose
	err := c.CloseErr
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
	return err
}

// MoveCalls returns recorded move targets.
func (c *Conn) MoveCalls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.moveCalls))
	copy(out, c.moveCalls)
	return out
}

// Closed reports how many times Close ran.
func (c *Conn) Closed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
