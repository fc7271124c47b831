package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/boardsync/boardsync/entity"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF")).
			MarginBottom(1)

	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)

	focusedColumnStyle = columnStyle.
				BorderForeground(lipgloss.Color("#5B8DEF"))

	cardStyle = lipgloss.NewStyle().
			Padding(0, 0, 1, 0)

	selectedCardStyle = cardStyle.
				Bold(true).
				Foreground(lipgloss.Color("#FFFFFF"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

var columnTitles = map[entity.Status]string{
	entity.StatusTodo:       "To Do",
	entity.StatusInProgress: "In Progress",
	entity.StatusDone:       "Done",
}

// View renders the current screen.
func (a *App) View() string {
	switch a.screen {
	case screenBoard:
		return a.viewBoard()
	default:
		return a.viewPicker()
	}
}

func (a *App) viewPicker() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Projects"))
	b.WriteString("\n")
	b.WriteString(a.search.View())
	b.WriteString("\n\n")

	if len(a.filtered) == 0 {
		b.WriteString(dimStyle.Render("No projects match."))
	}
	for i, p := range a.filtered {
		line := p.Name
		if p.Description != "" {
			line += dimStyle.Render("  " + p.Description)
		}
		if i == a.selection {
			line = "> " + line
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Enter → open board    Esc → quit"))
	b.WriteString(a.viewStatus())
	return b.String()
}

func (a *App) viewBoard() string {
	project, _ := a.tasks.Project()
	_, dragging := a.drag.Dragging()

	width := a.width
	if width <= 0 {
		width = 96
	}
	colWidth := max(24, width/3-4)

	rendered := make([]string, 0, len(a.columns))
	for ci, status := range a.columns {
		rendered = append(rendered, a.viewColumn(ci, status, colWidth, dragging))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Board · %s", project.Name)))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	b.WriteString("\n")
	if dragging {
		b.WriteString(dimStyle.Render("h/l → aim    Space → drop    Esc → cancel"))
	} else {
		b.WriteString(dimStyle.Render("h/l/j/k → navigate    Space → grab    n/p → move    x → delete    r → reload    Esc → back"))
	}
	b.WriteString(a.viewStatus())
	return b.String()
}

func (a *App) viewColumn(ci int, status entity.Status, width int, dragging bool) string {
	tasks := a.tasks.Column(status)
	header := fmt.Sprintf("%s (%d)", columnTitles[status], len(tasks))

	lines := []string{lipgloss.NewStyle().Bold(true).Render(header), ""}
	if len(tasks) == 0 {
		lines = append(lines, dimStyle.Render("empty"))
	}

	dragID, _ := a.drag.Dragging()
	for ri, t := range tasks {
		style := cardStyle
		prefix := "  "
		if ci == a.colIndex && ri == a.rowIndex && !dragging {
			style = selectedCardStyle
			prefix = "> "
		}
		if t.ID == dragID {
			prefix = "* "
		}
		card := prefix + t.Title
		if t.Priority == entity.PriorityHigh {
			card += " !"
		}
		if t.DueDate != nil {
			card += dimStyle.Render("  " + t.DueDate.Format("Jan 2"))
		}
		lines = append(lines, style.Render(card))
	}

	style := columnStyle
	focused := ci == a.colIndex
	if dragging {
		focused = ci == a.dragTarget
	}
	if focused {
		style = focusedColumnStyle
	}
	return style.Width(width).Render(strings.Join(lines, "\n"))
}

func (a *App) viewStatus() string {
	if a.statusMsg == "" {
		return ""
	}
	return "\n" + errorStyle.Render(a.statusMsg)
}
