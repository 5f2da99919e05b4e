package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/csheth/recipescout/internal/favorites"
	"github.com/csheth/recipescout/internal/favorites/backend"
	"github.com/csheth/recipescout/internal/search"
)

type failure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// GET /api/search?q= or ?nextPage=
func (s *Server) handleSearch(c *gin.Context) {
	var target string
	if next := c.Query("nextPage"); next != "" {
		if !s.followable(next) {
			c.JSON(http.StatusBadRequest, failure{Message: "nextPage must point at the recipe API"})
			return
		}
		target = next
	} else {
		q := strings.TrimSpace(c.Query("q"))
		if q == "" {
			c.JSON(http.StatusBadRequest, failure{Message: "q is required"})
			return
		}
		var err error
		target, err = s.upstream.SearchURL(q)
		if err != nil {
			c.JSON(http.StatusInternalServerError, failure{Message: search.SearchFailedMessage})
			return
		}
	}

	body, err := s.upstream.Raw(c.Request.Context(), target)
	if err != nil {
		s.upstreamFailure(c, err, search.SearchFailedMessage)
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

// GET /api/search/autocomplete?q=
func (s *Server) handleAutocomplete(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if utf8.RuneCountInString(q) < search.MinSuggestChars {
		c.JSON(http.StatusOK, gin.H{"data": []string{}})
		return
	}
	suggestions, err := s.upstream.Autocomplete(c.Request.Context(), q)
	if err != nil {
		s.upstreamFailure(c, err, search.SuggestFailedMessage)
		return
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"data": suggestions})
}

func (s *Server) upstreamFailure(c *gin.Context, err error, message string) {
	if errors.Is(err, search.ErrThrottled) {
		c.JSON(http.StatusTooManyRequests, failure{Message: search.ThrottledMessage})
		return
	}
	s.logger.Warn("upstream request failed", "path", c.FullPath(), "err", err)
	c.JSON(http.StatusBadGateway, failure{Message: message})
}

// followable reports whether a continuation cursor targets the upstream host.
func (s *Server) followable(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "https" || u.Scheme == "http") && u.Host == s.upstreamHost
}

func (s *Server) gateway(c *gin.Context) *backend.Gateway {
	return &backend.Gateway{
		Repo:   s.repo,
		Owner:  c.GetString(ownerKey),
		Images: s.images,
		Logger: s.logger,
	}
}

// GET /api/favorites
func (s *Server) handleListFavorites(c *gin.Context) {
	entries, err := s.gateway(c).Fetch(c.Request.Context())
	if err != nil {
		s.logger.Error("list favorites", "owner", c.GetString(ownerKey), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": favorites.LoadFailedMessage})
		return
	}
	if entries == nil {
		entries = []favorites.Entry{}
	}
	c.JSON(http.StatusOK, entries)
}

// POST /api/favorites
func (s *Server) handleAddFavorite(c *gin.Context) {
	var entry favorites.Entry
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, favorites.AddResult{Error: favorites.InvalidDataMessage})
		return
	}
	res, err := s.gateway(c).Add(c.Request.Context(), entry)
	if err != nil {
		s.logger.Error("add favorite", "owner", c.GetString(ownerKey), "link", entry.Link, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": favorites.AddFailedMessage})
		return
	}
	if res.Error != "" {
		c.JSON(http.StatusBadRequest, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DELETE /api/favorites?link=
func (s *Server) handleRemoveFavorite(c *gin.Context) {
	link := c.Query("link")
	if link == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "link is required"})
		return
	}
	err := s.gateway(c).Remove(c.Request.Context(), link)
	if err != nil && !errors.Is(err, favorites.ErrNotFound) {
		s.logger.Error("remove favorite", "owner", c.GetString(ownerKey), "link", link, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": favorites.RemoveFailedMessage})
		return
	}
	c.Status(http.StatusNoContent)
}
