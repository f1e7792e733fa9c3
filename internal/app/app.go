// Package app wires all Vexo subsystems into a running application.
//
// New creates and connects everything: storage, the voice catalog, the TTS
// resilience chain, the Discord bot, the per-guild session registry, the
// event router, the announcer, and the web control plane. Run executes the
// long-lived loops, and Shutdown tears everything down in order.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/vexofm/vexo/internal/announcer"
	"github.com/vexofm/vexo/internal/catalog"
	"github.com/vexofm/vexo/internal/config"
	"github.com/vexofm/vexo/internal/discord"
	"github.com/vexofm/vexo/internal/health"
	"github.com/vexofm/vexo/internal/logbuf"
	"github.com/vexofm/vexo/internal/observe"
	"github.com/vexofm/vexo/internal/resilience"
	"github.com/vexofm/vexo/internal/router"
	"github.com/vexofm/vexo/internal/session"
	"github.com/vexofm/vexo/internal/settings"
	"github.com/vexofm/vexo/internal/storage"
	"github.com/vexofm/vexo/internal/userprefs"
	"github.com/vexofm/vexo/internal/web"
	"github.com/vexofm/vexo/pkg/audio"
	"github.com/vexofm/vexo/pkg/provider/llm"
	"github.com/vexofm/vexo/pkg/provider/llm/anyllm"
	llmopenai "github.com/vexofm/vexo/pkg/provider/llm/openai"
	"github.com/vexofm/vexo/pkg/provider/tts/gtranslate"
	"github.com/vexofm/vexo/pkg/provider/tts/tiktok"
)

// Version is the application version reported by /api/status. Overridden
// at build time with -ldflags.
var Version = "dev"

// App owns all subsystem lifetimes.
type App struct {
	cfg config.Config

	bot      *discord.Bot
	registry *session.Registry
	web      *web.Server

	// closers are called in reverse order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// New creates an App by wiring all subsystems together. logs receives the
// rendered log lines served by the control plane; it may be nil when the
// web UI is disabled.
func New(ctx context.Context, cfg config.Config, logs *logbuf.Buffer) (*App, error) {
	a := &App{cfg: cfg}

	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}

	persist, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, persist.Close)

	st := settings.NewStore(persist, settings.Defaults(cat))
	if err := st.Preload(ctx); err != nil {
		return nil, fmt.Errorf("app: preload settings: %w", err)
	}
	prefs := userprefs.NewStore(persist)
	wireVoiceMigration(st, prefs, cat)

	// The chain reads 0 as "use the default"; an explicit MAX_RETRIES=0
	// maps to the chain's no-retry sentinel.
	retries := cfg.MaxRetries
	if retries == 0 {
		retries = -1
	}
	chain := resilience.NewChain(resilience.ChainConfig{
		Primary:           tiktok.New(cfg.TTSPrimaryURL, tiktok.WithTimeout(cfg.TTSHTTPTimeout)),
		Fallback:          gtranslate.New(cfg.TTSFallbackURL),
		TranslatorVoiceID: "google_translate",
		MaxRetries:        retries,
	})

	bot, err := discord.New(discord.Config{Token: cfg.DiscordToken}, &audio.MP3Decoder{})
	if err != nil {
		return nil, err
	}
	a.bot = bot

	a.registry = session.NewRegistry(session.Deps{
		Platform:   bot.Platform(),
		Settings:   st,
		Prefs:      prefs,
		Catalog:    cat,
		Chain:      chain,
		Store:      persist,
		QueueSize:  cfg.QueueMaxSize,
		DropPolicy: cfg.DropPolicy,
		MaxAudio:   cfg.MaxAudio,
		Stuck:      cfg.Stuck,
	})

	events := router.New(router.Config{
		MaxMessageChars:     cfg.MaxMessageChars,
		MaxUtteranceChars:   cfg.MaxUtteranceChars,
		UserCooldown:        cfg.UserCooldown,
		Coalesce:            cfg.Coalesce,
		AllowedTextChannels: cfg.AllowlistTextChannels,
	}, a.registry, bot.Platform(), st, prefs, cat)

	bot.Wire(discord.Deps{
		Events:   events,
		Sessions: a.registry,
		Settings: st,
		Prefs:    prefs,
		Catalog:  cat,
	})

	ann := announcer.New(buildAnnouncerProvider(cfg))

	if cfg.MetricsEnabled {
		shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
			ServiceName:    "vexo",
			ServiceVersion: Version,
		})
		if err != nil {
			return nil, fmt.Errorf("app: init telemetry: %w", err)
		}
		a.closers = append(a.closers, func() error { return shutdown(context.Background()) })
	}

	if cfg.WebUIEnabled {
		deps := web.Deps{
			Bot:       bot,
			Sessions:  a.registry,
			Settings:  st,
			Catalog:   cat,
			Chain:     chain,
			Logs:      logs,
			Announcer: ann,
			Health: health.New(
				health.Check{Name: "discord", Probe: gatewayCheck(bot)},
				health.Check{Name: "storage", Probe: storageCheck(persist)},
			),
		}
		if cfg.MetricsEnabled {
			deps.Metrics = promhttp.Handler()
		}
		a.web = web.New(web.Config{
			Host:    cfg.WebHost,
			Port:    cfg.WebPort,
			Token:   cfg.WebUIToken,
			Version: Version,
		}, deps)
	}

	return a, nil
}

// Bot exposes the Discord bot, mainly for tests.
func (a *App) Bot() *discord.Bot { return a.bot }

// Run connects to Discord and blocks until ctx is cancelled or a subsystem
// fails.
func (a *App) Run(ctx context.Context) error {
	if err := a.bot.Open(); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.bot.Run(ctx) })
	g.Go(func() error { return a.registry.RunHealthLoop(ctx) })
	if a.web != nil {
		g.Go(func() error { return a.web.Run(ctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Shutdown disconnects every guild session, closes the bot and releases
// storage and telemetry. Safe to call more than once.
func (a *App) Shutdown() error {
	var errs []error
	a.stopOnce.Do(func() {
		if err := a.registry.Shutdown(); err != nil {
			errs = append(errs, err)
		}
		if err := a.bot.Close(); err != nil {
			errs = append(errs, err)
		}
		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

// wireVoiceMigration rewrites stored user voice preferences when a guild's
// server voice changes, so nobody is left holding the newly reserved voice
// or stranded on the old one.
func wireVoiceMigration(st *settings.Store, prefs *userprefs.Store, cat *catalog.Catalog) {
	st.OnDefaultVoiceChange(func(ctx context.Context, oldDefault string, updated settings.GuildSettings) {
		userDefault := settings.UserDefault(updated, cat)
		for _, voice := range []string{oldDefault, updated.DefaultVoiceID} {
			if _, err := prefs.MigrateDefaultVoice(ctx, voice, userDefault); err != nil {
				slog.Warn("default voice migration failed", "from", voice, "to", userDefault, "error", err)
			}
		}
	})
}

func loadCatalog(cfg config.Config) (*catalog.Catalog, error) {
	if cfg.VoicesFile == "" {
		return catalog.Builtin(), nil
	}
	cat, err := catalog.LoadFile(cfg.VoicesFile)
	if err != nil {
		return nil, fmt.Errorf("app: load voices file: %w", err)
	}
	slog.Info("voice catalog loaded from file", "path", cfg.VoicesFile, "voices", len(cat.Voices()))
	return cat, nil
}

func openStorage(ctx context.Context, cfg config.Config) (storage.Store, error) {
	if cfg.DatabaseURL != "" {
		pg, err := storage.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		slog.Info("using postgres storage")
		return pg, nil
	}
	f, err := storage.NewFile(cfg.StoreFilePath)
	if err != nil {
		return nil, err
	}
	slog.Info("using file storage", "path", cfg.StoreFilePath)
	return f, nil
}

// buildAnnouncerProvider selects the text generation backend. Misconfigured
// backends degrade to nil, which the announcer treats as fallback-only.
func buildAnnouncerProvider(cfg config.Config) llm.Provider {
	switch cfg.AnnouncerProvider {
	case "":
		return nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			slog.Info("announcer disabled: OPENAI_API_KEY not set")
			return nil
		}
		p, err := llmopenai.New(cfg.OpenAIAPIKey, cfg.AnnouncerModel)
		if err != nil {
			slog.Warn("announcer disabled", "err", err)
			return nil
		}
		return p
	default:
		p, err := anyllm.New(cfg.AnnouncerProvider, cfg.AnnouncerModel)
		if err != nil {
			slog.Warn("announcer disabled", "provider", cfg.AnnouncerProvider, "err", err)
			return nil
		}
		return p
	}
}

// gatewayCheck reports whether the Discord gateway session is live.
func gatewayCheck(bot *discord.Bot) func(context.Context) error {
	return func(context.Context) error {
		if bot.Session().State.User == nil {
			return errors.New("gateway not connected")
		}
		return nil
	}
}

// storageCheck probes the persistence backend with a cheap read.
func storageCheck(persist storage.Store) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := persist.MemberSeen(ctx, "healthcheck", "healthcheck")
		return err
	}
}
