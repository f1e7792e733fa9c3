package router

import (
	"regexp"
	"strings"
)

// Mentions carries the id-to-name resolutions for one message, supplied by
// the platform layer.
type Mentions struct {
	Users    map[string]string // user id -> display name
	Roles    map[string]string // role id -> role name
	Channels map[string]string // channel id -> channel name
}

var (
	userMentionRe    = regexp.MustCompile(`<@!?\d+>`)
	roleMentionRe    = regexp.MustCompile(`<@&\d+>`)
	channelMentionRe = regexp.MustCompile(`<#\d+>`)
)

// NormalizeMentions rewrites platform mention markup into speakable text:
// `<@id>` and `<@!id>` become `@name`, `<@&id>` becomes `@role`, `<#id>`
// becomes `#channel`. Markup that cannot be resolved is stripped.
func NormalizeMentions(content string, m Mentions) string {
	replacements := make([]string, 0, 2*(len(m.Users)*2+len(m.Roles)+len(m.Channels)))
	for id, name := range m.Users {
		replacements = append(replacements,
			"<@"+id+">", "@"+name,
			"<@!"+id+">", "@"+name,
		)
	}
	for id, name := range m.Roles {
		replacements = append(replacements, "<@&"+id+">", "@"+name)
	}
	for id, name := range m.Channels {
		replacements = append(replacements, "<#"+id+">", "#"+name)
	}
	out := strings.NewReplacer(replacements...).Replace(content)

	// Remove any leftover mention markup.
	out = userMentionRe.ReplaceAllString(out, "")
	out = roleMentionRe.ReplaceAllString(out, "")
	out = channelMentionRe.ReplaceAllString(out, "")
	return strings.Join(strings.Fields(out), " ")
}
