//go:build unix

package fsx

import (
	"errors"
	"os"
	"syscall"
)

// isEXDEV 识别目录交换时的跨文件系统 rename。暂存/备份目录与原目录同级，
// 正常情况下不会出现；出现通常说明原目录本身是挂载点（与父目录不在同一文件系统）。
func isEXDEV(err error) bool {
	var le *os.LinkError
	if errors.As(err, &le) {
		return errors.Is(le.Err, syscall.EXDEV)
	}
	return errors.Is(err, syscall.EXDEV)
}
