package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/harrisonrobin/taskbox/pkg/colors"
	"github.com/harrisonrobin/taskbox/pkg/model"
	"github.com/harrisonrobin/taskbox/pkg/store"
)

const shortIDLen = 8

// categoryPalette is indexed by colour slot; slot 0 is for tasks without a
// category.
var categoryPalette = [colors.Slots + 1]lipgloss.Color{
	"245", "39", "42", "214", "205", "141", "51", "226", "208", "99", "160", "112",
}

var (
	faintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	overdueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Strikethrough(true)
	starStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	idStyle      = lipgloss.NewStyle().Width(shortIDLen).Foreground(lipgloss.Color("245"))

	priorityStyles = map[model.Priority]lipgloss.Style{
		model.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		model.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		model.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}
)

type renderer struct {
	colors *colors.Cache
	now    time.Time
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

func (r renderer) row(t model.Task) string {
	check := "[ ]"
	if t.Completed {
		check = "[x]"
	}
	star := " "
	if t.Favorite {
		star = starStyle.Render("★")
	}

	prio := string(t.Priority)
	if s, ok := priorityStyles[t.Priority]; ok {
		prio = s.Render(fmt.Sprintf("%-6s", prio))
	}

	title := t.Title
	if t.Completed {
		title = doneStyle.Render(title)
	}

	parts := []string{idStyle.Render(shortID(t.ID)), check, star, prio, title}
	if t.Category != "" {
		slot := colors.NoCategory
		if r.colors != nil {
			slot = r.colors.Slot(t.Category)
		}
		parts = append(parts, lipgloss.NewStyle().Foreground(categoryPalette[slot]).Render("#"+t.Category))
	}
	if t.DueDate != nil {
		due := "due " + t.DueDate.String()
		if t.Overdue(r.now) {
			parts = append(parts, overdueStyle.Render(due+" (overdue)"))
		} else {
			parts = append(parts, faintStyle.Render(due))
		}
	}
	return strings.Join(parts, " ")
}

func (r renderer) list(w io.Writer, tasks []model.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, faintStyle.Render("No tasks."))
		return
	}
	for _, t := range tasks {
		fmt.Fprintln(w, r.row(t))
		if t.Description != "" {
			fmt.Fprintln(w, faintStyle.Render("           "+strings.ReplaceAll(t.Description, "\n", "\n           ")))
		}
	}
}

func renderStats(w io.Writer, st store.Stats) {
	fmt.Fprintf(w, "Total:     %d\n", st.Total)
	fmt.Fprintf(w, "Open:      %d\n", st.Total-st.Completed)
	fmt.Fprintf(w, "Completed: %d\n", st.Completed)
	fmt.Fprintf(w, "Favorites: %d\n", st.Favorites)
	fmt.Fprintf(w, "Overdue:   %d\n", st.Overdue)
}
