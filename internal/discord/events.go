package discord

import (
	"context"
	"regexp"

	"github.com/bwmarrin/discordgo"

	"github.com/vexofm/vexo/internal/router"
)

var channelMentionRe = regexp.MustCompile(`<#(\d+)>`)

// onMessage translates a gateway message into the platform-neutral form
// and hands it to the event router.
func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.GuildID == "" || m.Author == nil {
		return
	}

	msg := router.Message{
		GuildID:              m.GuildID,
		ChannelID:            m.ChannelID,
		AuthorID:             m.Author.ID,
		AuthorDisplayName:    memberDisplayName(m.Member, m.Author),
		AuthorBot:            m.Author.Bot,
		AuthorVoiceChannelID: voiceChannelOf(s, m.GuildID, m.Author.ID),
		Content:              router.NormalizeMentions(m.Content, collectMentions(s, m)),
	}
	for _, a := range m.Attachments {
		msg.Attachments = append(msg.Attachments, router.Attachment{
			ContentType: a.ContentType,
			Filename:    a.Filename,
		})
	}
	for _, e := range m.Embeds {
		msg.EmbedTypes = append(msg.EmbedTypes, string(e.Type))
	}

	b.deps.Events.HandleMessage(context.Background(), msg)
}

// onVoiceState flattens a voice-state update for the event router.
func (b *Bot) onVoiceState(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	if vs.GuildID == "" {
		return
	}

	ev := router.VoiceState{
		GuildID:        vs.GuildID,
		UserID:         vs.UserID,
		AfterChannelID: vs.ChannelID,
	}
	if vs.BeforeUpdate != nil {
		ev.BeforeChannelID = vs.BeforeUpdate.ChannelID
	}
	if vs.Member != nil && vs.Member.User != nil {
		ev.Bot = vs.Member.User.Bot
		ev.DisplayName = memberDisplayName(vs.Member, vs.Member.User)
	} else if m, err := s.State.Member(vs.GuildID, vs.UserID); err == nil && m.User != nil {
		ev.Bot = m.User.Bot
		ev.DisplayName = memberDisplayName(m, m.User)
	}

	b.deps.Events.HandleVoiceState(context.Background(), ev)
}

// collectMentions resolves the mention ids a message carries to names.
// Channel mentions are not delivered as structured data, so their ids are
// scraped from the raw content and resolved through the state cache.
func collectMentions(s *discordgo.Session, m *discordgo.MessageCreate) router.Mentions {
	out := router.Mentions{
		Users:    make(map[string]string, len(m.Mentions)),
		Roles:    make(map[string]string, len(m.MentionRoles)),
		Channels: make(map[string]string),
	}

	for _, u := range m.Mentions {
		name := u.GlobalName
		if member, err := s.State.Member(m.GuildID, u.ID); err == nil {
			name = memberDisplayName(member, u)
		} else if name == "" {
			name = u.Username
		}
		out.Users[u.ID] = name
	}
	for _, id := range m.MentionRoles {
		if role, err := s.State.Role(m.GuildID, id); err == nil {
			out.Roles[id] = role.Name
		}
	}
	for _, match := range channelMentionRe.FindAllStringSubmatch(m.Content, -1) {
		id := match[1]
		if ch, err := s.State.Channel(id); err == nil {
			out.Channels[id] = ch.Name
		}
	}
	return out
}

// memberDisplayName mirrors Discord's display precedence: guild nickname,
// then global display name, then username.
func memberDisplayName(m *discordgo.Member, u *discordgo.User) string {
	if m != nil && m.Nick != "" {
		return m.Nick
	}
	if u != nil {
		if u.GlobalName != "" {
			return u.GlobalName
		}
		return u.Username
	}
	return ""
}

// voiceChannelOf returns the voice channel a user is currently in, "" when
// they are not in voice.
func voiceChannelOf(s *discordgo.Session, guildID, userID string) string {
	vs, err := s.State.VoiceState(guildID, userID)
	if err != nil || vs == nil {
		return ""
	}
	return vs.ChannelID
}
