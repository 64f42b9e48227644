package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/maiasaura/internal/app/session"
	"github.com/John-Robertt/maiasaura/internal/domain"
	"github.com/John-Robertt/maiasaura/internal/notify"
)

type listing struct {
	Dir      string             `json:"dir"`
	Entries  []domain.FileEntry `json:"entries"`
	Unlisted []string           `json:"unlisted"`
}

func newListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [dir]",
		Short: "按目录的枚举顺序（即设备播放的顺序）列出音频文件",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := session.Open(a.eff.Path, session.Options{Extensions: a.eff.Extensions})
			if err != nil {
				return &exitError{code: exitFailure, err: fmt.Errorf("扫描 %q 失败：%w", a.eff.Path, err)}
			}
			unlisted, err := s.Unlisted()
			if err != nil {
				a.log.WithError(err).Warn("列出未参与排序的条目失败")
			}

			if !isTTY(a.stdout) {
				if unlisted == nil {
					unlisted = []string{}
				}
				return notify.EmitJSON(a.stdout, listing{Dir: s.Dir(), Entries: s.Entries(), Unlisted: unlisted})
			}

			p := notify.NewPrinter(a.stdout)
			p.Info(fmt.Sprintf("%s：%d 个音频文件", s.Dir(), s.Len()), nil)
			if err := p.Entries(s.Entries()); err != nil {
				return &exitError{code: exitFailure, err: err}
			}
			if len(unlisted) > 0 {
				p.Warn("以下条目不参与排序，提交后只保留在备份中", map[string]any{"unlisted": unlisted})
			}
			return nil
		},
	}
}
