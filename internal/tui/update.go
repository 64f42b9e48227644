package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// 头部、帮助与状态行大约占 8 行。
		m.height = max(msg.Height-8, 3)
		m.clampOffset()
		return m, nil

	case commitDoneMsg:
		m.state = StateBrowse
		if msg.err != nil {
			m.err = msg.err
			m.lastErr = msg.err
			m.status = ""
			return m, nil
		}
		m.err = nil
		m.committed = true
		m.result = msg.res
		// 会话已按 res.Entries 重置；直接采用结果，不回读 Session。
		m.setEntries(msg.res.Entries)
		m.setCursor(m.cursor)
		m.baseline = entryNames(m.entries)
		m.status = fmt.Sprintf("已写入新顺序；原目录备份在 %s", msg.res.BackupDir)
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		if m.state == StateCommitting {
			// 提交开始后不可取消，等待结果。
			return m, nil
		}
		if key == "ctrl+c" || (key == "q" && m.state != StateConfirm) {
			m.quitting = true
			return m, tea.Quit
		}

		switch m.state {
		case StateConfirm:
			return m.updateConfirm(key)
		case StateGrab:
			return m.updateGrab(key), nil
		default:
			return m.updateBrowse(key)
		}
	}
	return m, nil
}

func (m Model) updateBrowse(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		m.setCursor(m.cursor - 1)
	case "down", "j":
		m.setCursor(m.cursor + 1)
	case "home", "g":
		m.setCursor(0)
	case "end", "G":
		m.setCursor(len(m.entries) - 1)
	case "enter", " ":
		if len(m.entries) > 0 {
			m.state = StateGrab
			m.status = ""
		}
	case "s":
		if len(m.entries) == 0 {
			m.status = "目录中没有可排序的文件"
			return m, nil
		}
		m.state = StateConfirm
		m.err = nil
	}
	return m, nil
}

// updateGrab：抓起的条目随光标移动，松开（enter/space/esc）即落位。
func (m Model) updateGrab(key string) Model {
	last := len(m.entries) - 1
	dst := m.cursor
	switch key {
	case "up", "k":
		dst = m.cursor - 1
	case "down", "j":
		dst = m.cursor + 1
	case "home", "g":
		dst = 0
	case "end", "G":
		dst = last
	case "enter", " ", "esc":
		m.state = StateBrowse
		return m
	}
	if dst < 0 || dst > last || dst == m.cursor {
		return m
	}
	if m.sess.Move(m.cursor, dst) {
		m.refresh()
		m.setCursor(dst)
	}
	return m
}

func (m Model) updateConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "y", "Y", "enter":
		m.state = StateCommitting
		m.status = "正在提交……"
		sess, ctx := m.sess, m.ctx
		return m, func() tea.Msg {
			res, err := sess.Commit(ctx)
			return commitDoneMsg{res: res, err: err}
		}
	case "n", "N", "esc", "q":
		m.state = StateBrowse
	}
	return m, nil
}

func (m *Model) setCursor(i int) {
	if len(m.entries) == 0 {
		m.cursor = 0
		return
	}
	m.cursor = min(max(i, 0), len(m.entries)-1)
	m.clampOffset()
}

// clampOffset 保证光标在可视窗口内。
func (m *Model) clampOffset() {
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.height {
		m.offset = m.cursor - m.height + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}
