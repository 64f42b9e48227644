//go:build unix

package fsx

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// LockDir 对 dir 本身加非阻塞的排他 flock，返回的 unlock 释放锁并关闭描述符。
//
// 约束：
// - 锁跟随 inode：目录被重命名为备份后锁仍在原 inode 上，直到 unlock
// - 进程退出时内核自动释放，不会留下需要人工清理的锁文件
// - 已被其他描述符（包括其他进程）持有时立即返回 ErrLocked
func LockDir(dir string) (unlock func() error, err error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrLocked
		}
		return nil, &os.PathError{Op: "flock", Path: dir, Err: err}
	}
	return func() error {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		return f.Close()
	}, nil
}
