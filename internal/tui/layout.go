package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/muesli/reflow/truncate"

	"github.com/csheth/recipescout/internal/favorites"
	"github.com/csheth/recipescout/internal/search"
)

// renderResults lays out one card per recipe and records the lines each
// card occupies so the sentinel's visibility can be measured.
func (m *model) renderResults() (string, []span) {
	items := m.results.Items
	if len(items) == 0 {
		return helperStyle.Render(m.emptyResultsText()), nil
	}

	width := m.viewport.Width
	spans := make([]span, 0, len(items))
	lines := make([]string, 0, len(items)*(cardHeight+cardGap))
	for i, r := range items {
		if i > 0 {
			for range cardGap {
				lines = append(lines, "")
			}
		}
		start := len(lines)
		title := fmt.Sprintf("%s %d. %s %s", m.pointer(i), i+1, r.Name, m.favoriteMark(r.Link))
		title = truncate.StringWithTail(title, uint(width), "…")
		if m.listFocused && i == m.selected {
			title = selectedStyle.Render(title)
		} else {
			title = cardTitleStyle.Render(title)
		}
		lines = append(lines, title)
		lines = append(lines, helperStyle.Render(truncate.StringWithTail("     "+recipeDetails(r), uint(width), "…")))
		spans = append(spans, span{start: start, end: len(lines)})
	}
	return strings.Join(lines, "\n"), spans
}

func (m *model) emptyResultsText() string {
	switch {
	case m.running[jobKindSearch] > 0:
		return "Searching…"
	case m.cursor.LastSearched != "":
		return fmt.Sprintf("No recipes found for %q.", m.cursor.LastSearched)
	default:
		return "Type a dish or ingredient and press Enter."
	}
}

func (m *model) renderFavorites() string {
	if m.store == nil {
		return helperStyle.Render("Favorites are not configured.")
	}
	if len(m.favRecords) == 0 {
		if strings.TrimSpace(m.filter.Value()) != "" {
			return helperStyle.Render("No favorites match this filter.")
		}
		return helperStyle.Render("No favorites yet. Press ctrl+f on a recipe to save it.")
	}
	width := m.viewport.Width
	lines := make([]string, 0, len(m.favRecords)*2)
	for i, rec := range m.favRecords {
		name := rec.Name
		if m.store.Provisional(rec.Link) {
			name += " (saving…)"
		}
		line := truncate.StringWithTail(fmt.Sprintf("%s %s", pointerFor(i == m.favSelected), name), uint(width), "…")
		if i == m.favSelected {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line, helperStyle.Render(truncate.StringWithTail("   "+rec.Link, uint(width), "…")))
	}
	return strings.Join(lines, "\n")
}

func (m *model) pointer(i int) string {
	return pointerFor(m.listFocused && i == m.selected)
}

func pointerFor(selected bool) string {
	if selected {
		return "▸"
	}
	return " "
}

func (m *model) favoriteMark(link string) string {
	switch {
	case m.store == nil:
		return ""
	case m.store.Provisional(link):
		return favoriteStyle.Render("☆")
	case m.store.Has(link):
		return favoriteStyle.Render("★")
	default:
		return ""
	}
}

func recipeDetails(r search.Recipe) string {
	parts := []string{}
	if r.Source != "" {
		parts = append(parts, r.Source)
	}
	if r.Calories > 0 {
		parts = append(parts, strconv.Itoa(int(r.Calories+0.5))+" kcal")
	}
	if r.TotalTime > 0 {
		parts = append(parts, strconv.Itoa(int(r.TotalTime))+" min")
	}
	if r.Yield > 0 {
		parts = append(parts, "serves "+strconv.Itoa(int(r.Yield)))
	}
	if len(r.CuisineType) > 0 {
		parts = append(parts, r.CuisineType[0])
	}
	return strings.Join(parts, " · ")
}

func favoriteFromSelection(items []search.Recipe, idx int) (favorites.Record, bool) {
	if idx < 0 || idx >= len(items) {
		return favorites.Record{}, false
	}
	return favorites.FromRecipe(items[idx]), true
}
