package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/maiasaura/internal/app/backups"
	"github.com/John-Robertt/maiasaura/internal/commit"
	"github.com/John-Robertt/maiasaura/internal/notify"
)

type backupsOpts struct {
	Prune bool
	Keep  int
}

type backupListing struct {
	Backups   []backups.Backup `json:"backups"`
	Leftovers []string         `json:"leftovers"`
}

type pruneResult struct {
	Removed []backups.Backup `json:"removed"`
}

func newBackupsCommand(a *app) *cobra.Command {
	opts := &backupsOpts{}
	cmd := &cobra.Command{
		Use:   "backups [dir]",
		Short: "列出目录的同级备份；--prune 只保留最新的 N 个",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("keep") && !opts.Prune {
				return &exitError{code: exitUsage, err: errors.New("--keep 只能与 --prune 一起使用")}
			}
			if opts.Prune {
				return a.pruneBackups(opts.Keep)
			}

			list, err := backups.List(a.eff.Path, a.eff.Prefix)
			if err != nil {
				return &exitError{code: exitFailure, err: fmt.Errorf("列出备份失败：%w", err)}
			}
			leftovers, err := backups.Leftovers(a.eff.Path, a.eff.Prefix)
			if err != nil {
				return &exitError{code: exitFailure, err: fmt.Errorf("查找遗留暂存目录失败：%w", err)}
			}

			if !isTTY(a.stdout) {
				if leftovers == nil {
					leftovers = []string{}
				}
				return notify.EmitJSON(a.stdout, backupListing{Backups: list, Leftovers: leftovers})
			}
			if err := notify.NewPrinter(a.stdout).Backups(list, leftovers); err != nil {
				return &exitError{code: exitFailure, err: err}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Prune, "prune", false, "删除较旧的备份")
	cmd.Flags().IntVar(&opts.Keep, "keep", 3, "--prune 时保留的最新备份个数")
	return cmd
}

func (a *app) pruneBackups(keep int) error {
	removed, err := backups.Prune(a.eff.Path, a.eff.Prefix, keep)
	for _, b := range removed {
		a.log.WithField("path", b.Path).Info("已删除备份")
	}
	if err != nil {
		code := exitFailure
		if errors.Is(err, backups.ErrNegativeKeep) {
			code = exitUsage
		}
		if errors.Is(err, commit.ErrInFlight) {
			err = fmt.Errorf("%q 有提交正在进行，稍后再清理：%w", a.eff.Path, err)
		}
		return &exitError{code: code, err: err}
	}

	if !isTTY(a.stdout) {
		if removed == nil {
			removed = []backups.Backup{}
		}
		return notify.EmitJSON(a.stdout, pruneResult{Removed: removed})
	}
	notify.NewPrinter(a.stdout).Pruned(removed)
	return nil
}
