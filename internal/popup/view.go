package popup

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/runnerr0/tabtrail/internal/activity"
	"github.com/runnerr0/tabtrail/internal/present"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	closedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Strikethrough(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	confirmStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	groupHdrStyle = lipgloss.NewStyle().Bold(true).MarginTop(1)
)

// View renders the popup.
func (m Model) View() string {
	if m.loading {
		return "\n  Loading tab history...\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("tabtrail"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d of %d · filter: %s", len(m.visible), len(m.records), m.settings.Filter)))
	if m.settings.GroupByDomain {
		b.WriteString(dimStyle.Render(" · grouped"))
	}
	if !m.settings.ShowClosed {
		b.WriteString(dimStyle.Render(" · open only"))
	}
	b.WriteString("\n")

	if m.searching || m.search.Value() != "" {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(m.visible) == 0 {
		b.WriteString(m.emptyText())
		b.WriteString("\n")
	} else {
		b.WriteString(m.renderRows())
	}

	b.WriteString("\n")
	switch {
	case m.confirmClear:
		b.WriteString(confirmStyle.Render(fmt.Sprintf("Delete all %d entries? y to confirm, any key to cancel", len(m.records))))
	case m.err != nil:
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
	case m.status != "":
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) emptyText() string {
	if len(m.records) == 0 {
		return dimStyle.Render("  No tab activity recorded yet.")
	}
	return dimStyle.Render("  Nothing matches the current search or filter.")
}

// window returns the slice bounds of rows that fit on screen around the
// cursor.
func (m Model) window() (int, int) {
	height := m.height - 8
	if m.settings.GroupByDomain {
		height /= 2
	}
	if height <= 0 || height >= len(m.visible) {
		return 0, len(m.visible)
	}
	start := m.cursor - height/2
	if start < 0 {
		start = 0
	}
	end := start + height
	if end > len(m.visible) {
		end = len(m.visible)
		start = end - height
	}
	return start, end
}

func (m Model) renderRows() string {
	now := m.now()
	start, end := m.window()

	var b strings.Builder
	lastDomain := ""
	for i := start; i < end; i++ {
		rec := m.visible[i]
		if m.settings.GroupByDomain {
			domain := activity.Domain(rec.URL)
			if i == start || domain != lastDomain {
				hdr := lipgloss.NewStyle().Foreground(lipgloss.Color(present.DomainColor(domain)))
				b.WriteString(groupHdrStyle.Render(hdr.Render(present.SiteName(domain))))
				b.WriteString(dimStyle.Render(" " + domain))
				b.WriteString("\n")
			}
			lastDomain = domain
		}
		b.WriteString(m.renderRow(rec, i == m.cursor, now))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderRow(rec activity.Record, selected bool, now time.Time) string {
	prefix := "  "
	if selected {
		prefix = cursorStyle.Render("> ")
	}
	icon := ""
	if m.settings.ShowFavicons {
		icon = present.ContentIcon(present.ContentType(rec.URL)) + " "
	}

	title := present.Truncate(rec.Title, 50)
	switch {
	case rec.IsClosed:
		title = closedStyle.Render(title)
	case selected:
		title = cursorStyle.Render(title)
	}

	when := time.UnixMilli(rec.LastUpdatedAt)
	meta := dimStyle.Render(fmt.Sprintf("  %s · %s", present.Truncate(present.CleanURL(rec.URL), 40), present.RelativeTime(now, when)))
	return prefix + icon + title + meta
}
