package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/recipescout/internal/config"
	"github.com/csheth/recipescout/internal/edamam"
	"github.com/csheth/recipescout/internal/favorites"
	"github.com/csheth/recipescout/internal/favorites/backend"
	"github.com/csheth/recipescout/internal/favorites/remote"
	"github.com/csheth/recipescout/internal/notify"
	"github.com/csheth/recipescout/internal/search"
	"github.com/csheth/recipescout/internal/telemetry"
	"github.com/csheth/recipescout/internal/tui"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "recipescout:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config.toml (default: user config dir)")
	noAltScreen := flag.Bool("no-alt-screen", false, "disable the alternate screen buffer")
	var o config.Overrides
	flag.StringVar(&o.Query, "q", "", "search for this query on start")
	flag.StringVar(&o.FavoritesMode, "favorites", "", "favorites store: memory, file, remote, redis, sql or s3")
	flag.StringVar(&o.FavoritesPath, "favorites-path", "", "favorites JSON file for the file store")
	flag.StringVar(&o.RemoteURL, "remote", "", "recipesd base URL for the remote store")
	flag.StringVar(&o.Token, "token", "", "bearer token for the remote store")
	flag.StringVar(&o.Owner, "owner", "", "owner id for local stores")
	flag.StringVar(&o.LogLevel, "log-level", "", "debug, info, warn or error")
	flag.StringVar(&o.LogFile, "log-file", "", "write logs to this file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	cfg.Apply(o)
	if err := cfg.ValidateClient(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	logger, closeLog := openLog(cfg.Log)
	defer closeLog()
	slog.SetDefault(logger)

	ctx := context.Background()
	providers, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.Endpoint,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", "err", err)
		}
	}()

	queue := notify.NewQueue(0)
	notifier := notify.Logged(queue, logger)

	client := edamam.New(cfg.Search.EdamamConfig())
	engine := search.NewEngine(client,
		search.WithNotifier(notifier),
		search.WithLogger(logger),
		search.WithTracer(providers.Tracer()),
		search.WithMeter(providers.Meter()),
	)
	feed := search.NewFeed(client, notifier, logger)

	gateway, closeStore, err := openGateway(ctx, cfg.Favorites, logger)
	if err != nil {
		return fmt.Errorf("favorites: %w", err)
	}
	defer closeStore()
	store := favorites.NewStore(gateway,
		favorites.WithNotifier(notifier),
		favorites.WithLogger(logger),
		favorites.WithTracer(providers.Tracer()),
		favorites.WithMeter(providers.Meter()),
	)

	opts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if !*noAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(tui.New(tui.Config{
		Engine:       engine,
		Feed:         feed,
		Favorites:    store,
		Notices:      queue,
		Logger:       logger,
		InitialQuery: cfg.Search.InitialQuery,
		PageWindow:   cfg.Search.PageThrottle.Std(),
	}), opts...)

	logger.Info("starting", "version", version, "favorites", cfg.Favorites.Mode)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("program error: %w", err)
	}
	return nil
}

func openGateway(ctx context.Context, cfg config.Favorites, logger *slog.Logger) (favorites.Gateway, func(), error) {
	if cfg.Mode == config.ModeRemote {
		return remote.NewClient(cfg.RemoteURL, cfg.Token, nil), func() {}, nil
	}
	repo, closeRepo, err := backend.Open(ctx, cfg.Backend())
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := closeRepo(); err != nil {
			logger.Warn("closing favorites store", "err", err)
		}
	}
	return &backend.Gateway{Repo: repo, Owner: cfg.Owner, Logger: logger}, closeFn, nil
}

// openLog writes logs to a file; stdout belongs to the terminal UI.
func openLog(cfg config.Log) (*slog.Logger, func()) {
	path := cfg.File
	if path == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			dir = os.TempDir()
		}
		path = filepath.Join(dir, "recipescout", "recipescout.log")
	}
	var w io.Writer = io.Discard
	closeFn := func() {}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err == nil {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			w = f
			closeFn = func() { f.Close() }
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()})), closeFn
}
