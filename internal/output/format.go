// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"aide/internal/flow"
	"aide/internal/service"
)

// DueLayout is how due dates are shown.
const DueLayout = "Jan 2, 2006"

// FormatTask formats a task as two lines: number and title, then priority and due date.
// Format: "{N:>4}  {TITLE}  #{ID}\n      {PRIORITY} · due {DATE}\n"
func FormatTask(w io.Writer, num int, task service.Task) {
	title := normalizeTitle(task.Title)
	fmt.Fprintf(w, "%4d  %s  #%d\n", num, title, task.ID)
	fmt.Fprintf(w, "      %s · due %s\n", task.Priority, FormatDue(task.Due))
}

// FormatSaved formats the confirmation printed after a task is created.
func FormatSaved(w io.Writer, s flow.SavedTask) {
	fmt.Fprintf(w, "Created %q (%s, due %s)\n", normalizeTitle(s.Summary), s.Status, s.Date.Local().Format(DueLayout+" 15:04"))
	if s.Category != "" {
		fmt.Fprintf(w, "  category: %s\n", s.Category)
	}
}

// FormatDue renders a due date in the local zone, or "-" when unknown.
func FormatDue(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(DueLayout)
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
