package backups

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/John-Robertt/maiasaura/internal/commit"
	"github.com/John-Robertt/maiasaura/internal/infra/fsx"
)

var ErrNegativeKeep = errors.New("keep 不能为负数")

// Backup 是一个保留下来的原目录副本（.<prefix>_backup_<ts>）。
type Backup struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	Files     int       `json:"files"`
	Size      int64     `json:"size"`
}

// List 返回 dir 的同级备份目录，按时间从新到旧排列。
func List(dir, prefix string) ([]Backup, error) {
	parent, err := parentOf(dir)
	if err != nil {
		return nil, err
	}
	des, err := os.ReadDir(parent)
	if err != nil {
		return nil, err
	}

	out := make([]Backup, 0, 4)
	for _, d := range des {
		if !d.IsDir() {
			continue
		}
		ts, ok := commit.ParseBackupName(prefix, d.Name(), time.Local)
		if !ok {
			continue
		}
		b := Backup{Name: d.Name(), Path: filepath.Join(parent, d.Name()), CreatedAt: ts}
		b.Files, b.Size, err = usage(b.Path)
		if err != nil {
			return nil, fmt.Errorf("统计备份 %q 失败：%w", b.Path, err)
		}
		out = append(out, b)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Name > out[j].Name
	})
	return out, nil
}

// Prune 删除除最新 keep 个之外的全部备份，返回被删除的备份。
//
// 约束：
// - 仅由用户显式触发；提交流程本身从不删除备份
// - dir 有提交在进行中时拒绝执行
func Prune(dir, prefix string, keep int) ([]Backup, error) {
	if keep < 0 {
		return nil, ErrNegativeKeep
	}
	abs, err := commit.ResolveDir(dir)
	if err != nil {
		return nil, err
	}
	if commit.InFlight(abs) {
		return nil, commit.ErrInFlight
	}
	// 另一个进程正在提交时同样拒绝；目录不存在（例如交换的两次 rename 之间）也不清理。
	unlock, err := fsx.LockDir(abs)
	if err != nil {
		if errors.Is(err, fsx.ErrLocked) {
			return nil, commit.ErrInFlight
		}
		return nil, err
	}
	defer unlock()

	all, err := List(abs, prefix)
	if err != nil {
		return nil, err
	}
	if len(all) <= keep {
		return nil, nil
	}

	removed := make([]Backup, 0, len(all)-keep)
	for _, b := range all[keep:] {
		if err := fsx.RemoveAll(b.Path); err != nil {
			return removed, fmt.Errorf("删除备份 %q 失败：%w", b.Path, err)
		}
		removed = append(removed, b)
	}
	return removed, nil
}

// Leftovers 返回 dir 的同级暂存目录（.<prefix>_tmp_<ts>）。
// 正常提交结束时暂存目录总会被删除或提升，残留说明上次进程被中断，需要人工确认后清理。
func Leftovers(dir, prefix string) ([]string, error) {
	parent, err := parentOf(dir)
	if err != nil {
		return nil, err
	}
	des, err := os.ReadDir(parent)
	if err != nil {
		return nil, err
	}
	var out []string
	p := commit.StagingPrefix(prefix)
	for _, d := range des {
		if d.IsDir() && strings.HasPrefix(d.Name(), p) {
			out = append(out, filepath.Join(parent, d.Name()))
		}
	}
	return out, nil
}

func parentOf(dir string) (string, error) {
	abs, err := commit.ResolveDir(dir)
	if err != nil {
		return "", err
	}
	return filepath.Dir(abs), nil
}

func usage(root string) (files int, size int64, err error) {
	err = filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		files++
		size += fi.Size()
		return nil
	})
	return files, size, err
}
