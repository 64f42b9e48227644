package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	title := "maiasaura"
	if m.Dirty() {
		title += " *"
	}
	header := titleBorderStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render(title),
			infoStyle.Render(m.dir),
		),
	)
	b.WriteString(header)
	b.WriteString("\n")

	if len(m.entries) == 0 {
		b.WriteString(infoStyle.Render("目录中没有匹配扩展名的音频文件。"))
		b.WriteString("\n")
	}

	end := min(m.offset+m.height, len(m.entries))
	for i := m.offset; i < end; i++ {
		e := m.entries[i]
		line := fmt.Sprintf("%3d  %s  %s", i, e.Name, infoStyle.Render(humanize.Bytes(uint64(max(e.Size, 0)))))
		switch {
		case i == m.cursor && m.state == StateGrab:
			b.WriteString(grabbedItemStyle.Render("≡ " + line))
		case i == m.cursor:
			b.WriteString(selectedItemStyle.Render("> " + line))
		default:
			b.WriteString(itemStyle.Render(line))
		}
		b.WriteString("\n")
	}
	if len(m.entries) > m.height {
		b.WriteString(infoStyle.Render(fmt.Sprintf("  (%d-%d / %d)", m.offset, end-1, len(m.entries))))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch m.state {
	case StateConfirm:
		b.WriteString(fmt.Sprintf("按新顺序重写 %d 个文件？原目录会保留为备份。 (y/n)", len(m.entries)))
	case StateCommitting:
		b.WriteString(infoStyle.Render(m.status))
	default:
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("提交失败：%v", m.err)))
			b.WriteString("\n")
		} else if m.status != "" {
			b.WriteString(successStyle.Render(m.status))
			b.WriteString("\n")
		}
		b.WriteString(infoStyle.Render(m.help()))
	}
	b.WriteString("\n")

	return appStyle.Render(b.String())
}

func (m Model) help() string {
	if m.state == StateGrab {
		return "↑/k ↓/j 移动条目 • g/G 移到开头/末尾 • enter/space 放下"
	}
	return "↑/k ↓/j 选择 • enter/space 抓起 • s 提交 • q 退出"
}
