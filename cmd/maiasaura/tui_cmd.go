package main

import (
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/maiasaura/internal/app/session"
	"github.com/John-Robertt/maiasaura/internal/commit"
	"github.com/John-Robertt/maiasaura/internal/notify"
	"github.com/John-Robertt/maiasaura/internal/tui"
)

func newTUICommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tui [dir]",
		Short: "交互式调整顺序（s 提交，q 退出）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTTY(a.stdout) {
				return &exitError{code: exitUsage, err: errors.New("tui 需要在交互终端中运行；脚本请使用 apply")}
			}

			s, err := session.Open(a.eff.Path, session.Options{
				Extensions: a.eff.Extensions,
				Committer:  a.committer(),
			})
			if err != nil {
				return &exitError{code: exitFailure, err: fmt.Errorf("扫描 %q 失败：%w", a.eff.Path, err)}
			}

			// 界面占用终端期间，日志只写文件（若配置了 log_dir）。
			a.log.SetOutput(io.Discard)
			final, err := tea.NewProgram(tui.New(cmd.Context(), s), tea.WithAltScreen()).Run()
			a.log.SetOutput(a.stderr)
			a.flushMetrics()
			if err != nil {
				return &exitError{code: exitFailure, err: fmt.Errorf("界面异常退出：%w", err)}
			}

			m, ok := final.(tui.Model)
			if !ok {
				return nil
			}
			res, committed, lastErr := m.Outcome()
			p := notify.NewPrinter(a.stdout)
			if committed {
				p.Success("已按新顺序重写目录", map[string]any{
					"dir":       res.Dir,
					"backup":    res.BackupDir,
					"files":     len(res.Entries),
					"commit_id": res.ID,
				})
			}
			if m.Dirty() {
				p.Warn("退出时仍有未提交的改动，目录未按这些改动变化", nil)
			}

			if lastErr != nil {
				if ce, ok := commit.AsError(lastErr); ok && ce.Kind == commit.KindUnrecoverable {
					return &exitError{code: exitUnrecoverable, err: lastErr}
				}
				if !committed {
					return &exitError{code: exitFailure, err: lastErr}
				}
			}
			return nil
		},
	}
}
