package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case MsgSnapshot:
		m.snapshot = msg.Snapshot
		m.now = m.clock.Now()
		m.clampCursor()
		return m, m.waitForSnapshot()

	case MsgTick:
		m.now = m.clock.Now()
		return m, m.tick()
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.snapshot.Tasks)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Dismiss):
		if rec, ok := m.selected(); ok {
			m.session.Dismiss(rec.ID)
		}

	case key.Matches(msg, m.keys.Refresh):
		m.session.RefreshCache()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}

	return m, nil
}
