package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/csheth/recipescout/internal/notify"
	"github.com/csheth/recipescout/internal/scroll"
)

const heroTagline = "Find something good to cook."

var (
	titleStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	taglineStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#f4a261")).Italic(true)
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	tabActiveStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")).Padding(0, 1)
	tabInactiveStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Padding(0, 1)
	cardTitleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0def4"))
	selectedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6"))
	favoriteStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffd166"))
	suggestionStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#a3be8c"))
	helperStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	statusBarStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")).Padding(0, 1)
	keyStyle           = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166")).Padding(0, 1)
	keyDescStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0def4"))
)

var helpLines = [][2]string{
	{"enter", "search"},
	{"tab", "switch results / favorites"},
	{"ctrl+f", "toggle favorite"},
	{"esc", "leave the search box"},
	{"j/k ↑/↓", "move"},
	{"pgdn/pgup", "page"},
	{"/", "back to the search box"},
	{"ctrl+c", "quit"},
}

func (m *model) View() string {
	parts := []string{m.headerView(), m.tabsView()}
	switch m.pane {
	case paneResults:
		parts = append(parts, m.input.View())
		if s := m.suggestionsView(); s != "" {
			parts = append(parts, s)
		}
	case paneFavorites:
		parts = append(parts, m.filter.View())
	}
	parts = append(parts, m.viewport.View(), m.statusView())
	if t := m.toastView(); t != "" {
		parts = append(parts, t)
	}
	if m.helpVisible {
		parts = append(parts, m.helpView())
	}
	return strings.Join(parts, "\n")
}

func (m *model) headerView() string {
	return titleStyle.Render("RecipeScout") + "  " + taglineStyle.Render(heroTagline)
}

func (m *model) tabsView() string {
	results := fmt.Sprintf("Results (%d)", len(m.results.Items))
	favs := "Favorites"
	if m.store != nil {
		favs = fmt.Sprintf("Favorites (%d)", m.store.Len())
	}
	if m.pane == paneResults {
		return tabActiveStyle.Render(results) + " " + tabInactiveStyle.Render(favs)
	}
	return tabInactiveStyle.Render(results) + " " + tabActiveStyle.Render(favs)
}

func (m *model) suggestionsView() string {
	if len(m.suggestions) == 0 {
		return ""
	}
	lines := make([]string, 0, len(m.suggestions))
	for i, s := range m.suggestions {
		if i == m.suggestIdx {
			lines = append(lines, selectedStyle.Render("› "+s))
			continue
		}
		lines = append(lines, suggestionStyle.Render("  "+s))
	}
	return strings.Join(lines, "\n")
}

func (m *model) statusView() string {
	parts := []string{}
	if m.busy() {
		parts = append(parts, m.spinner.View()+" "+m.activityLabel())
	}
	if m.pane == paneResults && len(m.results.Items) > 0 {
		pos := scroll.Progress(m.viewport.YOffset, m.viewport.TotalLineCount(), m.viewport.Height, len(m.results.Items))
		parts = append(parts, fmt.Sprintf("recipe %d/%d · %.0f%%", pos.Card, len(m.results.Items), pos.Percent))
		if m.results.TotalCount > 0 {
			parts = append(parts, fmt.Sprintf("%d matches", m.results.TotalCount))
		}
		if !m.results.HasMore() {
			parts = append(parts, "end of results")
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "? help")
	}
	return statusBarStyle.Render(strings.Join(parts, " · "))
}

func (m *model) activityLabel() string {
	switch {
	case m.running[jobKindSearch] > 0:
		return "searching"
	case m.running[jobKindNextPage] > 0:
		return "loading more"
	case m.running[jobKindToggle] > 0:
		return "saving"
	case m.running[jobKindHydrate] > 0:
		return "loading favorites"
	default:
		return "working"
	}
}

func (m *model) toastView() string {
	if !m.hasToast {
		return ""
	}
	text := m.toast.Message
	if m.toastExtra > 0 {
		text = fmt.Sprintf("%s (+%d more)", text, m.toastExtra)
	}
	switch m.toast.Level() {
	case notify.LevelError:
		return errorStyle.Render("✗ " + text)
	case notify.LevelSuccess:
		return successStyle.Render("✓ " + text)
	default:
		return helperStyle.Render(text)
	}
}

func (m *model) helpView() string {
	lines := make([]string, 0, len(helpLines)+1)
	lines = append(lines, sectionHeaderStyle.Render("Keys"))
	for _, kv := range helpLines {
		lines = append(lines, keyStyle.Render(kv[0])+" "+keyDescStyle.Render(kv[1]))
	}
	return strings.Join(lines, "\n")
}
