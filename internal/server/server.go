// Package server is recipesd: the HTTP API that proxies recipe search and
// autocomplete without exposing upstream keys, and stores favorites per
// authenticated owner.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/csheth/recipescout/internal/auth"
	"github.com/csheth/recipescout/internal/favorites/backend"
)

const shutdownTimeout = 5 * time.Second

// Upstream is the recipe API the search routes forward to.
type Upstream interface {
	SearchURL(query string) (string, error)
	Raw(ctx context.Context, target string) ([]byte, error)
	Autocomplete(ctx context.Context, partial string) ([]string, error)
}

// TokenValidator checks bearer tokens on the favorites routes.
type TokenValidator interface {
	ValidateToken(raw string) (*auth.Claims, error)
}

type Config struct {
	Upstream Upstream
	// UpstreamURL is the search endpoint; nextPage cursors must point at its host.
	UpstreamURL string
	Repo        backend.Repository
	Images      backend.ImageHoster
	Tokens      TokenValidator
	CORSOrigins []string
	Logger      *slog.Logger
}

type Server struct {
	router       *gin.Engine
	upstream     Upstream
	upstreamHost string
	repo         backend.Repository
	images       backend.ImageHoster
	tokens       TokenValidator
	logger       *slog.Logger
}

func New(cfg Config) (*Server, error) {
	if cfg.Upstream == nil || cfg.Repo == nil || cfg.Tokens == nil {
		return nil, errors.New("server: upstream, repository and token validator are required")
	}
	u, err := url.Parse(cfg.UpstreamURL)
	if err != nil || u.Host == "" {
		return nil, errors.New("server: upstream url must be absolute")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:       gin.New(),
		upstream:     cfg.Upstream,
		upstreamHost: u.Host,
		repo:         cfg.Repo,
		images:       cfg.Images,
		tokens:       cfg.Tokens,
		logger:       logger,
	}

	s.router.Use(requestID(), requestLogger(logger), recovery(logger))
	if len(cfg.CORSOrigins) > 0 {
		s.router.Use(corsMiddleware(cfg.CORSOrigins))
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.router.Group("/api")
	api.GET("/search", s.handleSearch)
	api.GET("/search/autocomplete", s.handleAutocomplete)

	favs := api.Group("/favorites", authMiddleware(s.tokens))
	{
		favs.GET("", s.handleListFavorites)
		favs.POST("", s.handleAddFavorite)
		favs.DELETE("", s.handleRemoveFavorite)
	}
}

func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
