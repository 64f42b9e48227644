//go:build unix

package commit

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/John-Robertt/maiasaura/internal/domain"
	"github.com/John-Robertt/maiasaura/internal/infra/fsx"
)

// 另一个进程持有目录锁时（这里用独立的 flock 描述符模拟），提交必须立即被拒绝且不改动磁盘。
func TestCommit_RejectsWhileDirectoryLockedElsewhere(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "album")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.mp3"), []byte("a"), 0o644); err != nil {
		t.Fatalf("写入失败：%v", err)
	}

	unlock, err := fsx.LockDir(dir)
	if err != nil {
		t.Fatalf("加锁失败：%v", err)
	}

	c := New(Options{})
	entries := []domain.FileEntry{{Path: filepath.Join(dir, "a.mp3"), Name: "a.mp3"}}
	_, err = c.Commit(context.Background(), dir, entries)
	ce, ok := AsError(err)
	if !ok || ce.Code() != "commit_in_flight" {
		t.Fatalf("期望 commit_in_flight，实际：%v", err)
	}
	des, _ := os.ReadDir(parent)
	if len(des) != 1 {
		t.Fatalf("被拒绝的提交不应创建同级目录：%v", des)
	}

	if err := unlock(); err != nil {
		t.Fatalf("解锁失败：%v", err)
	}
	if _, err := c.Commit(context.Background(), dir, entries); err != nil {
		t.Fatalf("锁释放后提交应成功：%v", err)
	}
}
