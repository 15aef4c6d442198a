package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/adr-sync/internal/domain"
	"github.com/runoshun/adr-sync/internal/testutil"
)

// fakeSession records dashboard actions.
type fakeSession struct {
	listener  func(domain.Snapshot)
	snapshot  domain.Snapshot
	dismissed []string
	mounted   int
	refreshed int
}

func (s *fakeSession) Mount() { s.mounted++ }

func (s *fakeSession) Subscribe(fn func(domain.Snapshot)) func() {
	s.listener = fn
	return func() { s.listener = nil }
}

func (s *fakeSession) Snapshot() domain.Snapshot { return s.snapshot }
func (s *fakeSession) Dismiss(id string)         { s.dismissed = append(s.dismissed, id) }
func (s *fakeSession) RefreshCache()             { s.refreshed++ }

var testNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestModel(tasks ...domain.TaskRecord) (*Model, *fakeSession) {
	sess := &fakeSession{snapshot: domain.Snapshot{Tasks: tasks, Connection: domain.ConnOpen}}
	return New(sess, &testutil.MockClock{NowTime: testNow}), sess
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func tasks(ids ...string) []domain.TaskRecord {
	out := make([]domain.TaskRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.TaskRecord{ID: id, Status: domain.StatusProgress})
	}
	return out
}

func TestInit_MountsAndSubscribes(t *testing.T) {
	m, sess := newTestModel()

	cmd := m.Init()

	assert.NotNil(t, cmd)
	assert.Equal(t, 1, sess.mounted)
	require.NotNil(t, sess.listener)
}

func TestPublish_KeepsNewestSnapshot(t *testing.T) {
	m, sess := newTestModel()
	m.Init()

	sess.listener(domain.Snapshot{Tasks: tasks("a")})
	sess.listener(domain.Snapshot{Tasks: tasks("a", "b")})

	msg := m.waitForSnapshot()()
	snap, ok := msg.(MsgSnapshot)
	require.True(t, ok)
	assert.Len(t, snap.Snapshot.Tasks, 2)
}

func TestUpdate_MsgSnapshot(t *testing.T) {
	m, _ := newTestModel(tasks("a", "b", "c")...)
	m.cursor = 2

	updated, cmd := m.Update(MsgSnapshot{Snapshot: domain.Snapshot{Tasks: tasks("a")}})

	result, ok := updated.(*Model)
	require.True(t, ok, "Update should return *Model")
	assert.Len(t, result.snapshot.Tasks, 1)
	assert.Equal(t, 0, result.cursor, "cursor should be clamped")
	assert.NotNil(t, cmd, "should wait for the next snapshot")
}

func TestUpdate_Navigation(t *testing.T) {
	m, _ := newTestModel(tasks("a", "b")...)

	m.Update(keyMsg("j"))
	assert.Equal(t, 1, m.cursor)
	m.Update(keyMsg("j"))
	assert.Equal(t, 1, m.cursor, "cursor stops at last row")
	m.Update(keyMsg("k"))
	assert.Equal(t, 0, m.cursor)
	m.Update(keyMsg("k"))
	assert.Equal(t, 0, m.cursor, "cursor stops at first row")
}

func TestUpdate_Dismiss(t *testing.T) {
	m, sess := newTestModel(tasks("a", "b")...)
	m.cursor = 1

	m.Update(keyMsg("d"))

	assert.Equal(t, []string{"b"}, sess.dismissed)
}

func TestUpdate_DismissWithNoTasks(t *testing.T) {
	m, sess := newTestModel()

	m.Update(keyMsg("d"))

	assert.Empty(t, sess.dismissed)
}

func TestUpdate_Refresh(t *testing.T) {
	m, sess := newTestModel()

	m.Update(keyMsg("r"))

	assert.Equal(t, 1, sess.refreshed)
}

func TestUpdate_Quit(t *testing.T) {
	m, sess := newTestModel()
	m.Init()

	_, cmd := m.Update(keyMsg("q"))

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Nil(t, sess.listener, "quit should unsubscribe")
}

func TestUpdate_WindowSize(t *testing.T) {
	m, _ := newTestModel()

	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	assert.Equal(t, 80, m.width)
	assert.Equal(t, 24, m.height)
}

func TestUpdate_TickRefreshesNow(t *testing.T) {
	clock := &testutil.MockClock{NowTime: testNow}
	m := New(&fakeSession{}, clock)
	clock.NowTime = testNow.Add(5 * time.Second)

	_, cmd := m.Update(MsgTick{Now: clock.NowTime})

	assert.Equal(t, clock.NowTime, m.now)
	assert.NotNil(t, cmd)
}
