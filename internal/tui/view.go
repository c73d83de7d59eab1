package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spiecc/animetrack/internal/domain"
	"github.com/spiecc/animetrack/internal/tui/styles"
)

const progressWidth = 12

// View renders the application
func (m Model) View() string {
	if m.Width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	height := m.listHeight()
	if len(m.rows) == 0 {
		b.WriteString(styles.DimStyle.Render("  " + m.emptyText()))
		b.WriteString(strings.Repeat("\n", max(height, 1)))
	} else {
		end := min(m.offset+height, len(m.rows))
		for i := m.offset; i < end; i++ {
			b.WriteString(m.renderRow(m.rows[i], i == m.cursor))
			b.WriteString("\n")
		}
		b.WriteString(strings.Repeat("\n", max(height-(end-m.offset), 0)))
	}

	switch {
	case m.mode != inputNone:
		b.WriteString(m.input.View())
		b.WriteString("\n")
	case m.confirmTitle != "":
		b.WriteString(styles.ErrorStyle.Render(fmt.Sprintf("Delete watch list %q? ", m.confirmTitle)))
		b.WriteString(styles.DimStyle.Render("y/n"))
		b.WriteString("\n")
	}

	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderTabs() string {
	var parts []string
	for t := tab(0); t < tabCount; t++ {
		if t == m.tab {
			parts = append(parts, styles.ActiveTabStyle.Render(t.String()))
		} else {
			parts = append(parts, styles.InactiveTabStyle.Render(t.String()))
		}
	}
	bar := lipgloss.JoinHorizontal(lipgloss.Top, parts...)

	if m.detailID != 0 {
		if st, ok := m.Views.Snapshot().State(m.detailID); ok {
			bar += "  " + styles.TitleStyle.Render(st.AnimeItem.DisplayTitle())
		}
	}
	return bar
}

func (m Model) emptyText() string {
	switch {
	case m.phase == domain.PhaseLoading:
		return "Loading..."
	case m.filter != "":
		return "No matches"
	case m.detailID != 0:
		return "No episodes"
	case m.tab == tabToday:
		return "Nothing airs today"
	case m.tab == tabUnwatched:
		return "All caught up"
	default:
		return "Nothing here yet"
	}
}

func (m Model) renderRow(r row, selected bool) string {
	width := m.Width
	var parts []styles.RowPart

	switch r.kind {
	case rowList:
		style := styles.ListHeaderStyle
		if r.archived {
			style = styles.ArchivedHeaderStyle
		}
		title := r.title
		if r.archived {
			title += " (archived)"
		}
		line := style.Render(title) + "  " + styles.SubtitleStyle.Render(r.detail)
		if selected {
			return styles.RenderListRow([]styles.RowPart{{Text: title + "  " + r.detail}}, true, width)
		}
		return " " + line

	case rowAnime:
		indicator := "  "
		switch {
		case r.pending:
			indicator = styles.PendingChar + " "
		case !r.visible:
			indicator = styles.HiddenChar + " "
		}
		counts := fmt.Sprintf("%d/%d", r.progress[0], r.progress[1])
		rating := ""
		if r.rating != nil {
			rating = fmt.Sprintf("  ★%.1f", *r.rating)
		}
		titleWidth := width - progressWidth - len(counts) - len(rating) - 10
		title := styles.Truncate(r.title, titleWidth)
		if !selected && len(r.matched) > 0 {
			title = highlight(title, r.matched)
		}
		parts = append(parts,
			styles.RowPart{Text: indicator},
			styles.RowPart{Text: title},
			styles.RowPart{Text: strings.Repeat(" ", max(titleWidth-lipgloss.Width(title), 1))},
			styles.RowPart{Text: counts + " "},
			styles.RowPart{Text: styles.RenderProgressBar(r.progress[0], r.progress[1], progressWidth)},
			styles.RowPart{Text: rating},
		)

	case rowEpisode:
		mark := styles.UnwatchedChar
		fg := styles.Accent
		if r.watched {
			mark = styles.WatchedChar
			fg = styles.Green
		}
		titleWidth := width - len(r.detail) - 8
		title := styles.Truncate(r.title, titleWidth)
		parts = append(parts,
			styles.RowPart{Text: mark + " ", Foreground: &fg},
			styles.RowPart{Text: title},
			styles.RowPart{Text: strings.Repeat(" ", max(titleWidth-lipgloss.Width(title), 1))},
			styles.RowPart{Text: r.detail, Foreground: &styles.DimGray},
		)
	}
	return styles.RenderListRow(parts, selected, width)
}

// highlight renders matched byte positions of s in the match style
func highlight(s string, matched []int) string {
	var b strings.Builder
	for i, r := range s {
		if slices.Contains(matched, i) {
			b.WriteString(styles.AccentStyle.Bold(true).Render(string(r)))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (m Model) renderFooter() string {
	var left string
	switch {
	case m.phase == domain.PhaseLoading:
		left = m.spinner.View() + " Syncing"
	case m.StatusMsg != "" && m.StatusIsErr:
		left = styles.ErrorStyle.Render(m.StatusMsg)
	case m.StatusMsg != "":
		left = styles.SuccessStyle.Render(m.StatusMsg)
	}

	help := []string{
		helpItem(Keys.NextTab.Help().Key, "tabs"),
		helpItem(Keys.Filter.Help().Key, "filter"),
		helpItem(Keys.ToggleWatched.Help().Key, "watched"),
		helpItem(Keys.AddAnime.Help().Key, "add"),
		helpItem(Keys.Refresh.Help().Key, "refresh"),
		helpItem(Keys.Quit.Help().Key, "quit"),
	}
	right := strings.Join(help, "  ")

	gap := m.Width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		return " " + left
	}
	return " " + left + strings.Repeat(" ", gap) + right
}

func helpItem(k, desc string) string {
	return styles.HelpKeyStyle.Render(k) + " " + styles.HelpDescStyle.Render(desc)
}
