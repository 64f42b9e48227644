package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/maiasaura/internal/app/run"
	"github.com/John-Robertt/maiasaura/internal/commit"
)

type applyOpts struct {
	OrderFile  string
	Moves      []string
	DryRun     bool
	ReportFile string
}

func newApplyCommand(a *app) *cobra.Command {
	opts := &applyOpts{}
	cmd := &cobra.Command{
		Use:   "apply [dir]",
		Short: "按顺序文件和/或 --move 重排，并把新顺序写回目录",
		Long: `先应用 --order-file（每行一个文件名，列出的文件按此顺序排在最前），再依次应用 --move。
--move 的格式为 <原位置>:<新位置>，下标从 0 开始；新位置可写 end 表示末尾。
不加 --dry-run 时会提交：原目录保留为同级备份目录。`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			progressW, interactive := pickProgressWriter(a.stdout, a.stderr)
			var obs run.Observer
			if interactive {
				ui := newProgressUI(progressW)
				defer ui.Stop()
				obs = ui
			}

			rr := run.ExecuteWithObserver(cmd.Context(), a.eff, run.Request{
				OrderFile: absFrom(a.cwd, opts.OrderFile),
				Moves:     opts.Moves,
				DryRun:    opts.DryRun,
			}, run.Deps{
				Logger:    a.log,
				Observers: []commit.Observer{a.metrics},
			}, obs)
			a.flushMetrics()

			if opts.ReportFile != "" {
				if err := writeReportFile(absFrom(a.cwd, opts.ReportFile), rr); err != nil {
					emitReport(a.stdout, a.stderr, rr)
					return &exitError{code: exitFailure, err: fmt.Errorf("写入报告文件失败：%w", err)}
				}
			}

			emitReport(a.stdout, a.stderr, rr)
			if code := reportExitCode(rr); code != exitOK {
				return &exitError{code: code}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.OrderFile, "order-file", "", "顺序文件：每行一个文件名，# 开头为注释")
	cmd.Flags().StringArrayVar(&opts.Moves, "move", nil, "移动一个条目：<原位置>:<新位置>（可重复，按给出顺序应用）")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "只计算新顺序，不写入")
	cmd.Flags().StringVar(&opts.ReportFile, "report-file", "", "额外把 JSON 报告写到该文件")
	return cmd
}

func absFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
