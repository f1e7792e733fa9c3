package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/vexofm/vexo/internal/catalog"
	"github.com/vexofm/vexo/internal/config"
	"github.com/vexofm/vexo/internal/logbuf"
	"github.com/vexofm/vexo/internal/queue"
	"github.com/vexofm/vexo/internal/settings"
	"github.com/vexofm/vexo/internal/storage"
	"github.com/vexofm/vexo/internal/userprefs"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		DiscordToken:  "test-token",
		StoreFilePath: filepath.Join(t.TempDir(), "store.json"),
		TTSPrimaryURL: "http://127.0.0.1:0/tts",
		// TTS_FALLBACK_URL points nowhere reachable; nothing is synthesized
		// in these tests.
		TTSFallbackURL: "http://127.0.0.1:0/translate",
		QueueMaxSize:   10,
		DropPolicy:     queue.DropOldest,
		WebUIEnabled:   true,
		WebHost:        "127.0.0.1",
		WebPort:        18080,
	}
}

func TestNew_WiresSubsystems(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), logbuf.New(10))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown()

	if a.bot == nil || a.registry == nil {
		t.Fatal("bot or registry not wired")
	}
	if a.web == nil {
		t.Fatal("web server not created despite WebUIEnabled")
	}
	if cmds := a.bot.Router().ApplicationCommands(); len(cmds) == 0 {
		t.Fatal("no slash commands registered")
	}
}

func TestNew_WebDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.WebUIEnabled = false

	a, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown()

	if a.web != nil {
		t.Fatal("web server created despite WebUIEnabled=false")
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), logbuf.New(10))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Shutdown(); err != nil {
		t.Fatalf("first Shutdown: %v", err)
	}
	if err := a.Shutdown(); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}

func TestWireVoiceMigration_RewritesDefaultHolders(t *testing.T) {
	ctx := context.Background()
	persist, err := storage.NewFile(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	cat := catalog.Builtin()
	st := settings.NewStore(persist, settings.Defaults(cat))
	prefs := userprefs.NewStore(persist)
	wireVoiceMigration(st, prefs, cat)

	if _, err := st.Update(ctx, "g1", map[string]any{"default_voice_id": "en_us_c3po"}); err != nil {
		t.Fatalf("seed update: %v", err)
	}
	seed := map[string]string{
		"u1": "en_us_stitch",
		"u2": "en_us_001",
		"u3": "en_us_c3po",
	}
	for id, voice := range seed {
		if err := prefs.SetVoice(ctx, id, "User "+id, voice); err != nil {
			t.Fatalf("SetVoice(%s): %v", id, err)
		}
	}

	// Changing the server voice steers holders of the old default to the
	// user default (the tenant fallback here); other users keep theirs.
	if _, err := st.Update(ctx, "g1", map[string]any{"default_voice_id": "en_us_rocket"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	want := map[string]string{
		"u1": "en_us_stitch",
		"u2": "en_us_001",
		"u3": "en_us_001",
	}
	for id, wantVoice := range want {
		got, err := prefs.Voice(ctx, id)
		if err != nil {
			t.Fatalf("Voice(%s): %v", id, err)
		}
		if got != wantVoice {
			t.Errorf("Voice(%s) = %q, want %q", id, got, wantVoice)
		}
	}
}

func TestBuildAnnouncerProvider(t *testing.T) {
	if p := buildAnnouncerProvider(config.Config{}); p != nil {
		t.Fatal("provider built with no backend configured")
	}
	if p := buildAnnouncerProvider(config.Config{AnnouncerProvider: "openai"}); p != nil {
		t.Fatal("openai provider built without an api key")
	}
	p := buildAnnouncerProvider(config.Config{
		AnnouncerProvider: "openai",
		AnnouncerModel:    "gpt-4o-mini",
		OpenAIAPIKey:      "sk-test",
	})
	if p == nil {
		t.Fatal("openai provider not built")
	}
	if p.Name() != "openai" {
		t.Fatalf("Name() = %q", p.Name())
	}
}
