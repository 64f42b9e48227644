package tui

import (
	"context"

	"github.com/John-Robertt/maiasaura/internal/commit"
	"github.com/John-Robertt/maiasaura/internal/domain"
)

// AppState 是界面状态。
type AppState int

const (
	StateBrowse AppState = iota
	StateGrab
	StateConfirm
	StateCommitting
)

// Session 是界面需要的会话能力（*session.Session 满足它）。
//
// 约束：Commit 在后台 goroutine 中执行；提交期间 Model 不得调用 Session 的任何方法。
type Session interface {
	Dir() string
	Entries() []domain.FileEntry
	Move(src, dst int) bool
	Commit(ctx context.Context) (commit.Result, error)
}

type Model struct {
	state    AppState
	sess     Session
	ctx      context.Context
	dir      string
	entries  []domain.FileEntry // 只由 Update 所在 goroutine 读写
	baseline []string           // 最近一次落盘的顺序，用于判断是否有未提交的改动

	cursor int
	offset int
	height int

	quitting bool
	status   string
	err      error

	committed bool
	result    commit.Result
	lastErr   error
}

// commitDoneMsg 由后台提交命令返回。
type commitDoneMsg struct {
	res commit.Result
	err error
}

func New(ctx context.Context, sess Session) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	m := Model{
		state:  StateBrowse,
		sess:   sess,
		ctx:    ctx,
		dir:    sess.Dir(),
		height: 20,
	}
	m.refresh()
	m.baseline = entryNames(m.entries)
	return m
}

func (m *Model) refresh() {
	m.setEntries(m.sess.Entries())
}

func (m *Model) setEntries(entries []domain.FileEntry) {
	m.entries = entries
	if m.cursor >= len(m.entries) {
		m.cursor = len(m.entries) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// Dirty 报告当前顺序是否与最近一次落盘的顺序不同。
func (m Model) Dirty() bool {
	names := entryNames(m.entries)
	if len(names) != len(m.baseline) {
		return true
	}
	for i := range names {
		if names[i] != m.baseline[i] {
			return true
		}
	}
	return false
}

// Outcome 返回会话期间最后一次提交的结果；committed=false 表示没有成功提交过。
func (m Model) Outcome() (res commit.Result, committed bool, lastErr error) {
	return m.result, m.committed, m.lastErr
}

func (m Model) State() AppState { return m.state }

func (m Model) Cursor() int { return m.cursor }

func entryNames(entries []domain.FileEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}
