// Command vexo is the Discord voice TTS bot and its web control plane.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/vexofm/vexo/internal/app"
	"github.com/vexofm/vexo/internal/config"
	"github.com/vexofm/vexo/internal/logbuf"
)

func main() {
	os.Exit(run())
}

func run() int {
	// A missing .env is fine; the environment may be set by the service
	// manager instead.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "vexo: %v\n", err)
		return 1
	}

	logs := logbuf.New(cfg.WebLogMaxLines)
	closeLog, err := setupLogger(cfg, logs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vexo: %v\n", err)
		return 1
	}
	defer closeLog()

	slog.Info("vexo starting",
		"version", app.Version,
		"log_level", cfg.LogLevel,
		"web_ui", cfg.WebUIEnabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logs)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	runErr := application.Run(ctx)

	slog.Info("shutting down")
	if err := application.Shutdown(); err != nil {
		slog.Warn("shutdown error", "err", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("run error", "err", runErr)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// setupLogger installs the default slog logger writing to stderr and
// optionally a log file, with every record teed into the control plane's
// log ring.
func setupLogger(cfg config.Config, logs *logbuf.Buffer) (close func(), err error) {
	writers := []io.Writer{os.Stderr}
	close = func() {}

	if cfg.LogFilePath != "" {
		f, err := os.OpenFile(cfg.LogFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, f)
		close = func() { _ = f.Close() }
	}

	text := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: cfg.LogLevel.SlogLevel(),
	})
	slog.SetDefault(slog.New(logbuf.NewHandler(text, logs)))
	return close, nil
}
