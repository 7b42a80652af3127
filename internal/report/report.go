// Package report formats tracked time for people: clock strings, a Markdown
// history report and its HTML rendering.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/moiskillnadne/work-time-tracker/internal/history"
	"github.com/moiskillnadne/work-time-tracker/internal/tasks"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// FormatClock renders d as HH:MM:SS, flooring to whole seconds.
// Negative durations render as zero.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}

// FormatTimeShort renders the wall-clock time of t in loc, e.g. "3:04 PM".
func FormatTimeShort(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("3:04 PM")
}

// Markdown renders a task's history view as a Markdown document.
func Markdown(task tasks.Task, view history.View, loc *time.Location) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", escape(task.Title))
	if view.IsEmpty() {
		b.WriteString("No history yet.\n")
		return b.String()
	}

	noun := "entries"
	if view.EntryCount == 1 {
		noun = "entry"
	}
	fmt.Fprintf(&b, "Total: **%s** across %d %s\n", FormatClock(view.Total), view.EntryCount, noun)

	for _, g := range view.Groups {
		fmt.Fprintf(&b, "\n## %s\n\n", g.Label)
		fmt.Fprintf(&b, "Day total: **%s**\n\n", FormatClock(g.Total))
		b.WriteString("| Started | Duration | Saved |\n")
		b.WriteString("|---|---|---|\n")
		for _, e := range g.Entries {
			fmt.Fprintf(&b, "| %s | %s | %s |\n",
				FormatTimeShort(e.PortionStart, loc),
				FormatClock(e.Duration),
				FormatTimeShort(e.SavedAt, loc))
		}
	}
	return b.String()
}

// HTML converts Markdown to HTML.
func HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// escape neutralises characters that would break headings or table cells.
func escape(s string) string {
	r := strings.NewReplacer("|", `\|`, "\n", " ", "#", `\#`, "*", `\*`, "_", `\_`, "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
