package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"

	"github.com/runoshun/adr-sync/internal/domain"
)

// Column widths of the task table.
const (
	statusWidth  = 12
	elapsedWidth = 8
	nameWidth    = 28
	minMsgWidth  = 10
	defaultWidth = 100
)

// noElapsed is shown for tasks whose start time is unknown.
const noElapsed = "—"

// View renders the dashboard.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Header.Render("adr-sync"))
	b.WriteString("\n")
	b.WriteString(m.viewSummary())
	b.WriteString("\n\n")
	b.WriteString(m.viewTasks())
	b.WriteString(m.styles.Footer.Render(m.help.View(m.keys)))
	return b.String()
}

// viewSummary renders connection, queue and cache state.
func (m *Model) viewSummary() string {
	s := m.snapshot
	conn := m.styles.ConnStyle(s.Connection).Render("● " + s.Connection.Display())

	queue := fmt.Sprintf("%s %d active, %d pending, %d total  %s %d",
		m.styles.Label.Render("queue"), s.Queue.Active, s.Queue.Pending, s.Queue.Total,
		m.styles.Label.Render("workers"), s.Queue.WorkersOnline)

	cache := m.styles.Label.Render("cache") + " "
	switch {
	case s.Cache.IsRebuilding:
		cache += m.styles.ConnConnecting.Render("rebuilding")
	case s.Cache.LastSyncTime != nil:
		cache += "synced " + s.Cache.LastSyncTime.Local().Format("2006-01-02 15:04:05")
	default:
		cache += "unknown"
	}

	lines := []string{conn + "   " + queue, cache}
	if s.Generating {
		lines = append(lines, m.styles.ConnConnecting.Render("generating decision records…"))
	}
	if r := s.LastReload; r != nil {
		if r.Err != nil {
			lines = append(lines, m.styles.ConnClosed.Render("record reload failed: "+r.Err.Error()))
		} else {
			lines = append(lines, m.styles.Label.Render(fmt.Sprintf("records reloaded at %s (%d)", r.At.Local().Format("15:04:05"), r.Count)))
		}
	}
	return strings.Join(lines, "\n")
}

// viewTasks renders one row per tracked task in creation order.
func (m *Model) viewTasks() string {
	if len(m.snapshot.Tasks) == 0 {
		return m.styles.Empty.Render("No active tasks") + "\n"
	}

	width := m.width
	if width <= 0 {
		width = defaultWidth
	}
	msgWidth := width - 2 - statusWidth - elapsedWidth - nameWidth - 3
	if msgWidth < minMsgWidth {
		msgWidth = minMsgWidth
	}

	var b strings.Builder
	for i, rec := range m.snapshot.Tasks {
		isSelected := i == m.cursor
		cursor := m.styles.CursorNormal.Render("  ")
		text := m.styles.TaskNormal
		if isSelected {
			cursor = m.styles.CursorSelected.Render("> ")
			text = m.styles.TaskSelected
		}

		status := m.styles.StatusStyle(rec.Status).Render(pad(rec.Status.Display(), statusWidth))
		elapsed := m.styles.TaskMeta.Render(pad(formatElapsed(rec, m.now), elapsedWidth))
		name := text.Render(pad(taskLabel(rec), nameWidth))
		msg := m.styles.TaskMeta.Render(truncate.StringWithTail(taskMessage(rec), uint(msgWidth), "…"))

		b.WriteString(cursor + status + " " + elapsed + " " + name + " " + msg + "\n")
	}
	return b.String()
}

// taskLabel is the task name when known, otherwise its id.
func taskLabel(rec domain.TaskRecord) string {
	label := rec.Name
	if label == "" {
		label = rec.ID
	}
	if rec.Kind != "" {
		label = string(rec.Kind) + ": " + label
	}
	return label
}

// taskMessage is the status message, with the queue position while queued.
func taskMessage(rec domain.TaskRecord) string {
	if rec.Status == domain.StatusQueued && rec.Position != nil {
		if rec.Message == "" {
			return fmt.Sprintf("#%d in queue", *rec.Position)
		}
		return fmt.Sprintf("#%d in queue · %s", *rec.Position, rec.Message)
	}
	return rec.Message
}

// formatElapsed renders time since the task was started from this client.
func formatElapsed(rec domain.TaskRecord, now time.Time) string {
	d, ok := rec.Elapsed(now)
	if !ok {
		return noElapsed
	}
	s := int(d / time.Second)
	if s >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", s/3600, s/60%60, s%60)
	}
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}

// pad truncates or right-pads s to exactly width terminal cells.
func pad(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}
