package discord

import (
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/vexofm/vexo/internal/catalog"
	"github.com/vexofm/vexo/internal/settings"
)

func commandInteraction(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type: discordgo.InteractionApplicationCommand,
			Data: discordgo.ApplicationCommandInteractionData{
				Name:    name,
				Options: opts,
			},
		},
	}
}

func TestInteractionKey(t *testing.T) {
	t.Parallel()

	plain := commandInteraction("tts")
	if got := interactionKey(plain.ApplicationCommandData()); got != "tts" {
		t.Fatalf("key = %q, want tts", got)
	}

	sub := commandInteraction("set", &discordgo.ApplicationCommandInteractionDataOption{
		Name: "voice",
		Type: discordgo.ApplicationCommandOptionSubCommand,
	})
	if got := interactionKey(sub.ApplicationCommandData()); got != "set/voice" {
		t.Fatalf("key = %q, want set/voice", got)
	}
}

func TestCommandRouter_Dispatch(t *testing.T) {
	t.Parallel()

	r := NewCommandRouter()
	var got []string
	r.RegisterCommand("tts", ttsDefinition(), func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		got = append(got, "tts")
	})
	r.RegisterHandler("set/voice", func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		got = append(got, "set/voice")
	})

	r.Handle(nil, commandInteraction("tts"))
	r.Handle(nil, commandInteraction("set", &discordgo.ApplicationCommandInteractionDataOption{
		Name: "voice",
		Type: discordgo.ApplicationCommandOptionSubCommand,
	}))

	if len(got) != 2 || got[0] != "tts" || got[1] != "set/voice" {
		t.Fatalf("dispatched = %v", got)
	}
}

func TestCommandRouter_ApplicationCommandsDeduplicated(t *testing.T) {
	t.Parallel()

	r := NewCommandRouter()
	c := NewCommands(nil, nil, nil, catalog.Builtin())
	c.Register(r)

	defs := r.ApplicationCommands()
	names := make(map[string]bool, len(defs))
	for _, d := range defs {
		if names[d.Name] {
			t.Fatalf("duplicate top-level command %q", d.Name)
		}
		names[d.Name] = true
	}
	for _, want := range []string{"tts", "leave", "voice", "set"} {
		if !names[want] {
			t.Fatalf("missing command %q in %v", want, names)
		}
	}
}

func TestCommandOptions_UnwrapsSubcommand(t *testing.T) {
	t.Parallel()

	i := commandInteraction("set", &discordgo.ApplicationCommandInteractionDataOption{
		Name: "nickname",
		Type: discordgo.ApplicationCommandOptionSubCommand,
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "nickname", Type: discordgo.ApplicationCommandOptionString, Value: "DJ Vexo"},
		},
	})

	got, ok := optionalStringOption(i, "nickname")
	if !ok || got != "DJ Vexo" {
		t.Fatalf("option = %q, %v, want DJ Vexo", got, ok)
	}

	if _, ok := optionalStringOption(i, "missing"); ok {
		t.Fatal("found option that was not supplied")
	}
}

func TestBoolOption_ReportsPresence(t *testing.T) {
	t.Parallel()

	without := commandInteraction("set", &discordgo.ApplicationCommandInteractionDataOption{
		Name: "followme",
		Type: discordgo.ApplicationCommandOptionSubCommand,
	})
	if _, present := boolOption(without, "enabled"); present {
		t.Fatal("absent option reported as present")
	}

	with := commandInteraction("set", &discordgo.ApplicationCommandInteractionDataOption{
		Name: "followme",
		Type: discordgo.ApplicationCommandOptionSubCommand,
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "enabled", Type: discordgo.ApplicationCommandOptionBoolean, Value: false},
		},
	})
	v, present := boolOption(with, "enabled")
	if !present || v {
		t.Fatalf("option = %v, %v, want explicit false", v, present)
	}
}

func TestVoiceChoices_ExcludesReservedVoice(t *testing.T) {
	t.Parallel()

	cat := catalog.Builtin()
	c := NewCommands(nil, nil, nil, cat)
	gs := settings.Defaults(cat)

	choices := c.voiceChoices(gs, "")
	if len(choices) == 0 || choices[0].Value != "reset" {
		t.Fatalf("first choice = %+v, want reset sentinel", choices)
	}
	if len(choices) > maxChoices {
		t.Fatalf("choices = %d, want at most %d", len(choices), maxChoices)
	}
	for _, ch := range choices[1:] {
		if ch.Value == gs.DefaultVoiceID {
			t.Fatalf("reserved server voice %q offered", gs.DefaultVoiceID)
		}
	}
}

func TestVoiceChoices_HonorsRestriction(t *testing.T) {
	t.Parallel()

	cat := catalog.Builtin()
	c := NewCommands(nil, nil, nil, cat)
	gs := settings.Defaults(cat)
	gs.RestrictVoices = true
	gs.AllowedVoiceIDs = []string{gs.DefaultVoiceID, "en_us_002"}

	choices := c.voiceChoices(gs, "")
	if len(choices) != 2 {
		t.Fatalf("choices = %d, want reset + the single allowed voice", len(choices))
	}
	if choices[1].Value != "en_us_002" {
		t.Fatalf("choice = %q, want en_us_002", choices[1].Value)
	}
}

func TestChoiceLabel_Truncates(t *testing.T) {
	t.Parallel()

	v := catalog.Voice{ID: "x", Name: strings.Repeat("n", 200)}
	if got := choiceLabel(v); len(got) != 100 {
		t.Fatalf("label length = %d, want 100", len(got))
	}
	if got := choiceLabel(catalog.Voice{ID: "en_us_002", Name: "Jessie"}); got != "Jessie (en_us_002)" {
		t.Fatalf("label = %q", got)
	}
	if got := choiceLabel(catalog.Voice{ID: "raw_id"}); got != "raw_id" {
		t.Fatalf("label = %q, want bare id", got)
	}
}

func TestMemberDisplayName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		m    *discordgo.Member
		u    *discordgo.User
		want string
	}{
		{"nickname wins", &discordgo.Member{Nick: "DJ"}, &discordgo.User{Username: "u", GlobalName: "G"}, "DJ"},
		{"global name next", &discordgo.Member{}, &discordgo.User{Username: "u", GlobalName: "G"}, "G"},
		{"username last", nil, &discordgo.User{Username: "u"}, "u"},
		{"nil user", nil, nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := memberDisplayName(tt.m, tt.u); got != tt.want {
				t.Fatalf("memberDisplayName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInteractionUserID(t *testing.T) {
	t.Parallel()

	member := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Member: &discordgo.Member{User: &discordgo.User{ID: "42"}},
	}}
	if got := interactionUserID(member); got != "42" {
		t.Fatalf("member id = %q, want 42", got)
	}

	dm := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		User: &discordgo.User{ID: "7"},
	}}
	if got := interactionUserID(dm); got != "7" {
		t.Fatalf("dm id = %q, want 7", got)
	}
}
