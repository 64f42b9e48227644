package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/maiasaura/internal/commit"
	"github.com/John-Robertt/maiasaura/internal/domain"
	"github.com/John-Robertt/maiasaura/internal/order"
)

type fakeSession struct {
	seq     *order.Sequence
	res     commit.Result
	err     error
	commits int
}

func newFakeSession(names ...string) *fakeSession {
	entries := make([]domain.FileEntry, 0, len(names))
	for _, n := range names {
		entries = append(entries, domain.FileEntry{Name: n, Size: 1024})
	}
	return &fakeSession{seq: order.New(entries)}
}

func (f *fakeSession) Dir() string                 { return "/sd/album" }
func (f *fakeSession) Entries() []domain.FileEntry { return f.seq.Snapshot() }
func (f *fakeSession) Names() []string             { return f.seq.Names() }
func (f *fakeSession) Move(src, dst int) bool      { return f.seq.Move(src, dst) }

// Commit 与 session.Session 一样：成功后按结果重置序列。
func (f *fakeSession) Commit(context.Context) (commit.Result, error) {
	f.commits++
	if f.err != nil {
		return commit.Result{}, f.err
	}
	res := f.res
	res.Entries = f.seq.Snapshot()
	f.seq.Reset(res.Entries)
	return res, nil
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(key(k))
		m = next.(Model)
	}
	return m, cmd
}

func TestModel_BrowseCursorClamps(t *testing.T) {
	m := New(context.Background(), newFakeSession("A", "B", "C", "D"))

	m, _ = press(t, m, "k")
	assert.Equal(t, 0, m.Cursor())
	m, _ = press(t, m, "G")
	assert.Equal(t, 3, m.Cursor())
	m, _ = press(t, m, "j", "down")
	assert.Equal(t, 3, m.Cursor())
	m, _ = press(t, m, "g")
	assert.Equal(t, 0, m.Cursor())
	assert.False(t, m.Dirty())
}

func TestModel_GrabMovesEntry(t *testing.T) {
	fs := newFakeSession("A", "B", "C", "D")
	m := New(context.Background(), fs)

	m, _ = press(t, m, "j", "enter")
	require.Equal(t, StateGrab, m.State())

	m, _ = press(t, m, "j")
	assert.Equal(t, []string{"A", "C", "B", "D"}, fs.Names())
	assert.Equal(t, 2, m.Cursor())

	m, _ = press(t, m, "G")
	assert.Equal(t, []string{"A", "C", "D", "B"}, fs.Names())
	assert.Equal(t, 3, m.Cursor())

	// 已在末尾，再下移不变。
	m, _ = press(t, m, "j")
	assert.Equal(t, []string{"A", "C", "D", "B"}, fs.Names())

	m, _ = press(t, m, "g", " ")
	assert.Equal(t, []string{"B", "A", "C", "D"}, fs.Names())
	assert.Equal(t, StateBrowse, m.State())
	assert.True(t, m.Dirty())
}

func TestModel_CommitFlow(t *testing.T) {
	fs := newFakeSession("A", "B")
	fs.res = commit.Result{ID: "c1", Dir: "/sd/album", BackupDir: "/sd/.maiasaura_backup_20261019_083005"}
	m := New(context.Background(), fs)

	m, _ = press(t, m, "enter", "j", "enter")
	require.True(t, m.Dirty())

	m, _ = press(t, m, "s")
	require.Equal(t, StateConfirm, m.State())
	assert.Contains(t, m.View(), "(y/n)")

	m, cmd := press(t, m, "y")
	require.Equal(t, StateCommitting, m.State())
	require.NotNil(t, cmd)

	// 提交进行中不响应退出。
	m, quit := press(t, m, "q")
	assert.Nil(t, quit)
	assert.Equal(t, StateCommitting, m.State())

	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.Equal(t, StateBrowse, m.State())
	assert.Equal(t, 1, fs.commits)
	assert.False(t, m.Dirty())

	res, committed, lastErr := m.Outcome()
	assert.True(t, committed)
	assert.NoError(t, lastErr)
	assert.Equal(t, "c1", res.ID)
	assert.Contains(t, m.View(), "/sd/.maiasaura_backup_20261019_083005")
}

// 提交命令在独立 goroutine 中运行，期间界面继续处理按键与渲染；
// 配合 go test -race 检查 Model 不会在提交期间读写会话。
func TestModel_CommitRunsConcurrentlyWithView(t *testing.T) {
	fs := newFakeSession("A", "B", "C")
	fs.res = commit.Result{ID: "c2", Dir: "/sd/album", BackupDir: "/sd/.maiasaura_backup_20261019_090000"}
	m := New(context.Background(), fs)

	m, _ = press(t, m, "enter", "j", "enter", "s")
	m, cmd := press(t, m, "y")
	require.NotNil(t, cmd)

	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	for i := 0; i < 200; i++ {
		next, _ := m.Update(key("j"))
		m = next.(Model)
		next, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 20 + i%5})
		m = next.(Model)
		_ = m.View()
		_ = m.Dirty()
	}

	next, _ := m.Update(<-done)
	m = next.(Model)
	assert.Equal(t, StateBrowse, m.State())
	assert.False(t, m.Dirty())
	assert.Equal(t, []string{"B", "A", "C"}, fs.Names())
	assert.Contains(t, m.View(), "B")
}

func TestModel_CommitFailureKeepsOrder(t *testing.T) {
	fs := newFakeSession("A", "B")
	fs.err = &commit.Error{Kind: commit.KindFilesystem, Step: commit.StepActivateRename, Err: errors.New("boom"), RolledBack: true}
	m := New(context.Background(), fs)

	m, _ = press(t, m, "enter", "j", "enter", "s")
	m, cmd := press(t, m, "enter")
	require.NotNil(t, cmd)

	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.Equal(t, StateBrowse, m.State())
	assert.True(t, m.Dirty())
	assert.Equal(t, []string{"B", "A"}, fs.Names())

	_, committed, lastErr := m.Outcome()
	assert.False(t, committed)
	assert.Error(t, lastErr)
	assert.Contains(t, m.View(), "提交失败")
}

func TestModel_ConfirmCancel(t *testing.T) {
	fs := newFakeSession("A")
	m := New(context.Background(), fs)

	m, _ = press(t, m, "s", "n")
	assert.Equal(t, StateBrowse, m.State())

	// 确认框里的 q 只取消，不退出。
	m, cmd := press(t, m, "s", "q")
	assert.Nil(t, cmd)
	assert.Equal(t, StateBrowse, m.State())
	assert.Zero(t, fs.commits)
}

func TestModel_EmptyDirectory(t *testing.T) {
	m := New(context.Background(), newFakeSession())

	m, _ = press(t, m, "enter", "s")
	assert.Equal(t, StateBrowse, m.State())
	assert.Contains(t, m.View(), "没有可排序的文件")
}

func TestModel_Quit(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c"} {
		m := New(context.Background(), newFakeSession("A"))
		m, cmd := press(t, m, k)
		require.NotNil(t, cmd, k)
		assert.IsType(t, tea.QuitMsg{}, cmd())
		assert.Empty(t, m.View())
	}
}

func TestModel_ViewScrollsWithCursor(t *testing.T) {
	names := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		names = append(names, string(rune('a'+i%26))+string(rune('0'+i/26))+".mp3")
	}
	m := New(context.Background(), newFakeSession(names...))
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 18})
	m = next.(Model)

	m, _ = press(t, m, "G")
	v := m.View()
	assert.Contains(t, v, names[29])
	assert.NotContains(t, v, names[0])
	assert.Contains(t, v, "/ 30)")
}
