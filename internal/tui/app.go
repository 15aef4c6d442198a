// Package tui implements the live dashboard.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/runoshun/adr-sync/internal/domain"
)

// tickInterval is how often elapsed times are redrawn.
const tickInterval = time.Second

// Session is the part of a live status session the dashboard uses.
type Session interface {
	Mount()
	Subscribe(fn func(domain.Snapshot)) func()
	Snapshot() domain.Snapshot
	Dismiss(id string)
	RefreshCache()
}

// Model is the main bubbletea model for the dashboard.
type Model struct {
	// Dependencies (pointers first for alignment)
	session     Session
	clock       domain.Clock
	snaps       chan domain.Snapshot
	unsubscribe func()

	// State
	snapshot domain.Snapshot
	now      time.Time

	// Components
	keys   KeyMap
	styles Styles
	help   help.Model

	// Numeric state (smaller types last)
	cursor int
	width  int
	height int
}

// New creates a new dashboard Model on the given session.
func New(session Session, clock domain.Clock) *Model {
	if clock == nil {
		clock = domain.RealClock{}
	}
	return &Model{
		session:  session,
		clock:    clock,
		snaps:    make(chan domain.Snapshot, 1),
		snapshot: session.Snapshot(),
		now:      clock.Now(),
		keys:     DefaultKeyMap(),
		styles:   DefaultStyles(),
		help:     help.New(),
	}
}

// Init subscribes to the session, mounts it and starts the redraw tick.
func (m *Model) Init() tea.Cmd {
	m.unsubscribe = m.session.Subscribe(m.publish)
	m.session.Mount()
	return tea.Batch(m.waitForSnapshot(), m.tick())
}

// publish keeps only the newest snapshot for the UI. It runs on the session
// loop and never blocks.
func (m *Model) publish(s domain.Snapshot) {
	for {
		select {
		case m.snaps <- s:
			return
		default:
		}
		select {
		case <-m.snaps:
		default:
		}
	}
}

// waitForSnapshot returns a command that waits for the next snapshot.
func (m *Model) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		return MsgSnapshot{Snapshot: <-m.snaps}
	}
}

// tick returns a command that fires after tickInterval.
func (m *Model) tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return MsgTick{Now: t}
	})
}

// selected returns the record under the cursor.
func (m *Model) selected() (domain.TaskRecord, bool) {
	if m.cursor < 0 || m.cursor >= len(m.snapshot.Tasks) {
		return domain.TaskRecord{}, false
	}
	return m.snapshot.Tasks[m.cursor], true
}

// clampCursor keeps the cursor on a visible row after the list changes.
func (m *Model) clampCursor() {
	if m.cursor >= len(m.snapshot.Tasks) {
		m.cursor = len(m.snapshot.Tasks) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}
