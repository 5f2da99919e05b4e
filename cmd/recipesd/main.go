package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/csheth/recipescout/internal/auth"
	"github.com/csheth/recipescout/internal/config"
	"github.com/csheth/recipescout/internal/edamam"
	"github.com/csheth/recipescout/internal/favorites/backend"
	"github.com/csheth/recipescout/internal/imagestore"
	"github.com/csheth/recipescout/internal/server"
	"github.com/csheth/recipescout/internal/telemetry"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("recipesd stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config.toml (default: user config dir)")
	mintFor := flag.String("mint-token", "", "print a bearer token for this owner id and exit")
	mintName := flag.String("mint-name", "", "display name stored in a minted token")
	var o config.Overrides
	flag.StringVar(&o.Addr, "addr", "", "listen address")
	flag.StringVar(&o.FavoritesMode, "favorites", "", "favorites store: memory, file, redis, sql or s3")
	flag.StringVar(&o.FavoritesPath, "favorites-path", "", "favorites JSON file for the file store")
	flag.StringVar(&o.LogLevel, "log-level", "", "debug, info, warn or error")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	cfg.Apply(o)

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)

	issuer, err := auth.NewIssuer(cfg.Server.JWTSecret, cfg.Server.TokenTTL.Std())
	if err != nil {
		return err
	}
	if *mintFor != "" {
		token, err := issuer.Mint(*mintFor, *mintName)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	}

	if err := cfg.ValidateServer(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName + "-server",
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

	upstreamCfg := cfg.Search.EdamamConfig()
	upstreamCfg.CursorParam = ""
	if upstreamCfg.SearchURL == "" {
		upstreamCfg.SearchURL = edamam.DefaultSearchURL
	}
	upstream := edamam.New(upstreamCfg)

	repo, closeRepo, err := backend.Open(ctx, cfg.Favorites.Backend())
	if err != nil {
		return fmt.Errorf("favorites: %w", err)
	}
	defer func() {
		if err := closeRepo(); err != nil {
			logger.Warn("closing favorites store", "err", err)
		}
	}()

	var images backend.ImageHoster
	if img := cfg.Favorites.Images; img.Bucket != "" {
		rehoster, err := newRehoster(ctx, cfg.Favorites, img)
		if err != nil {
			return fmt.Errorf("image rehosting: %w", err)
		}
		images = rehoster
		logger.Info("SETUP: favorite images rehosted", "bucket", img.Bucket)
	}

	srv, err := server.New(server.Config{
		Upstream:    upstream,
		UpstreamURL: upstreamCfg.SearchURL,
		Repo:        repo,
		Images:      images,
		Tokens:      issuer,
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	logger.Info("starting", "version", version, "favorites", cfg.Favorites.Mode)
	return srv.Run(ctx, cfg.Server.Addr)
}

func newRehoster(ctx context.Context, favs config.Favorites, img config.Images) (*imagestore.Rehoster, error) {
	cache, err := imagestore.NewCache(img.CacheDir, 0, nil)
	if err != nil {
		return nil, err
	}
	client, err := backend.NewS3Client(ctx, favs.Region, favs.Endpoint)
	if err != nil {
		return nil, err
	}
	return imagestore.NewRehoster(cache, client, img.Bucket, img.Prefix, img.PresignTTL.Std()), nil
}
