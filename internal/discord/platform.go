package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/vexofm/vexo/internal/session"
	"github.com/vexofm/vexo/pkg/audio"
	discordaudio "github.com/vexofm/vexo/pkg/audio/discord"
)

// VoicePlatform implements session.Platform over a discordgo session.
type VoicePlatform struct {
	s   *discordgo.Session
	dec *audio.MP3Decoder
}

var _ session.Platform = (*VoicePlatform)(nil)

// NewVoicePlatform wraps a gateway session for voice operations.
func NewVoicePlatform(s *discordgo.Session, dec *audio.MP3Decoder) *VoicePlatform {
	return &VoicePlatform{s: s, dec: dec}
}

// Join connects to a voice channel self-deafened. When discordgo already
// holds a voice connection for the guild it fails with
// session.ErrAlreadyConnected so the caller can move or adopt it instead.
func (p *VoicePlatform) Join(ctx context.Context, guildID, channelID string) (session.Conn, error) {
	if live := p.liveConnection(guildID); live != nil {
		return nil, fmt.Errorf("discord: join %s: %w", channelID, session.ErrAlreadyConnected)
	}

	type result struct {
		vc  *discordgo.VoiceConnection
		err error
	}
	ch := make(chan result, 1)
	go func() {
		vc, err := p.s.ChannelVoiceJoin(guildID, channelID, false, true)
		ch <- result{vc: vc, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("discord: join voice channel %s: %w", channelID, r.err)
		}
		return p.wrap(r.vc), nil
	case <-ctx.Done():
		// A late success stays in discordgo's connection map and gets
		// adopted through Live on the next attempt.
		return nil, ctx.Err()
	}
}

// Live returns the voice client discordgo currently holds for the guild.
func (p *VoicePlatform) Live(guildID string) session.Conn {
	vc := p.liveConnection(guildID)
	if vc == nil {
		return nil
	}
	return p.wrap(vc)
}

// NonBotMembers counts human members in a voice channel using the cached
// gateway state.
func (p *VoicePlatform) NonBotMembers(guildID, channelID string) int {
	g, err := p.s.State.Guild(guildID)
	if err != nil {
		return 0
	}

	p.s.State.RLock()
	defer p.s.State.RUnlock()

	n := 0
	for _, vs := range g.VoiceStates {
		if vs.ChannelID != channelID {
			continue
		}
		if vs.Member != nil && vs.Member.User != nil {
			if !vs.Member.User.Bot {
				n++
			}
			continue
		}
		m, err := p.s.State.Member(guildID, vs.UserID)
		if err == nil && m.User != nil && m.User.Bot {
			continue
		}
		n++
	}
	return n
}

func (p *VoicePlatform) liveConnection(guildID string) *discordgo.VoiceConnection {
	p.s.RLock()
	defer p.s.RUnlock()
	return p.s.VoiceConnections[guildID]
}

func (p *VoicePlatform) wrap(vc *discordgo.VoiceConnection) *voiceConn {
	return &voiceConn{vc: vc, sink: discordaudio.NewSink(vc, p.dec)}
}

// voiceConn adapts a discordgo voice connection to session.Conn.
type voiceConn struct {
	vc   *discordgo.VoiceConnection
	sink audio.Sink
}

var _ session.Conn = (*voiceConn)(nil)

func (c *voiceConn) ChannelID() string {
	c.vc.RLock()
	defer c.vc.RUnlock()
	return c.vc.ChannelID
}

func (c *voiceConn) Move(_ context.Context, channelID string) error {
	if err := c.vc.ChangeChannel(channelID, false, true); err != nil {
		return fmt.Errorf("discord: move to voice channel %s: %w", channelID, err)
	}
	return nil
}

func (c *voiceConn) Sink() audio.Sink { return c.sink }

func (c *voiceConn) Close() error {
	if err := c.vc.Disconnect(); err != nil {
		return fmt.Errorf("discord: disconnect voice: %w", err)
	}
	return nil
}
