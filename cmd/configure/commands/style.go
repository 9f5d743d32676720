package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/benvon/smart-agenda/internal/calendar"
	"github.com/benvon/smart-agenda/internal/database"
	"github.com/benvon/smart-agenda/internal/models"
	"github.com/benvon/smart-agenda/internal/registry"
)

var (
	cPrimary = lipgloss.Color("63")
	cAccent  = lipgloss.Color("205")
	cGood    = lipgloss.Color("42")
	cWarn    = lipgloss.Color("214")
	cMuted   = lipgloss.Color("244")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	h2Style    = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	keyStyle   = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	goodStyle  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	warnStyle  = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	mutedStyle = lipgloss.NewStyle().Foreground(cMuted)
	panelStyle = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(cMuted).Padding(0, 1)
)

func labelValue(label string, value any) string {
	return fmt.Sprintf("%s %v", keyStyle.Render(label+":"), value)
}

func okText(ok bool) string {
	if ok {
		return goodStyle.Render("ok")
	}
	return warnStyle.Render("failed")
}

// bucketLabels are the headings shown for agenda buckets
var bucketLabels = map[models.Bucket]string{
	models.BucketToday:       "Today",
	models.BucketTomorrow:    "Tomorrow",
	models.BucketThisWeek:    "This week",
	models.BucketThisMonth:   "This month",
	models.BucketNextMonth:   "Next month",
	models.BucketNextQuarter: "Next quarter",
	models.BucketThisYear:    "This year",
	models.BucketLater:       "Later",
	models.BucketNoDate:      "No date",
}

func renderAgenda(view models.AgendaView, day string, groups []models.AgendaGroup) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Agenda (%s) for %s", view, day)))
	b.WriteString("\n")
	if len(groups) == 0 {
		b.WriteString(mutedStyle.Render("Nothing scheduled."))
		b.WriteString("\n")
		return b.String()
	}
	for _, g := range groups {
		var lines []string
		lines = append(lines, h2Style.Render(bucketLabels[g.Bucket]))
		for _, t := range g.Tasks {
			lines = append(lines, "• "+t.Title+taskDates(t))
		}
		b.WriteString(panelStyle.Render(strings.Join(lines, "\n")))
		b.WriteString("\n")
	}
	return b.String()
}

func taskDates(t *models.Task) string {
	var parts []string
	if t.StartDate != nil {
		parts = append(parts, "starts "+calendar.Key(*t.StartDate))
	}
	if t.DueDate != nil {
		parts = append(parts, "due "+calendar.Key(*t.DueDate))
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + mutedStyle.Render("("+strings.Join(parts, ", ")+")")
}

func renderPending(day string, entries []models.PendingEntry, reg *registry.Registry) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Pending habits for " + day))
	b.WriteString("\n")
	if len(entries) == 0 {
		b.WriteString(goodStyle.Render("All caught up."))
		b.WriteString("\n")
		return b.String()
	}
	for _, e := range entries {
		label := e.ItemID
		if it, ok := reg.Lookup(e.Section, e.ItemID); ok {
			label = it.Label
		}
		progress := fmt.Sprintf("%d/%d", e.Completions, e.Frequency)
		line := fmt.Sprintf("%-10s %-18s %s", string(e.Section), label, progress)
		if e.CompletedToday {
			line += " " + goodStyle.Render("done today")
		}
		if e.FailedOpen {
			line += " " + warnStyle.Render("config error")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func renderConfigs(reg *registry.Registry, configs map[database.ItemKey]models.RecurrenceConfig) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Habit cadences"))
	b.WriteString("\n")
	for _, section := range reg.Sections() {
		b.WriteString(h2Style.Render(string(section)))
		b.WriteString("\n")
		for _, it := range reg.Items(section) {
			cfg, ok := configs[database.ItemKey{Section: section, ItemID: it.ID}]
			desc := mutedStyle.Render("not configured")
			if ok {
				cfg = cfg.WithDefaults()
				desc = fmt.Sprintf("%d× %s (%s)", cfg.Frequency, cfg.Type, cfg.Period)
				if !cfg.Active {
					desc += " " + mutedStyle.Render("inactive")
				}
			}
			b.WriteString(fmt.Sprintf("  %-10s %s\n", it.ID, desc))
		}
	}
	return b.String()
}
