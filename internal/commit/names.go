package commit

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultPrefix 是暂存/备份目录名中的工具前缀。
	DefaultPrefix = "maiasaura"
	// StampLayout 对应 YYYYMMDD_HHMMSS（本地时间，秒级）。
	StampLayout = "20060102_150405"
)

// StagingName 返回 .<prefix>_tmp_<stamp>。
func StagingName(prefix string, t time.Time) string {
	return "." + prefix + "_tmp_" + t.Format(StampLayout)
}

// BackupName 返回 .<prefix>_backup_<stamp>。
func BackupName(prefix string, t time.Time) string {
	return "." + prefix + "_backup_" + t.Format(StampLayout)
}

// BackupPrefix 返回备份目录名的固定前缀部分，用于在父目录中识别备份。
func BackupPrefix(prefix string) string {
	return "." + prefix + "_backup_"
}

// StagingPrefix 返回暂存目录名的固定前缀部分（用于识别中断遗留的暂存目录）。
func StagingPrefix(prefix string) string {
	return "." + prefix + "_tmp_"
}

// ParseBackupName 从备份目录名中解析时间戳（按 loc 解释）；不是备份名返回 false。
func ParseBackupName(prefix, name string, loc *time.Location) (time.Time, bool) {
	p := BackupPrefix(prefix)
	if !strings.HasPrefix(name, p) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(StampLayout, strings.TrimPrefix(name, p), loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// siblings 计算与 dir 同级的暂存/备份路径。
func siblings(dir, prefix string, t time.Time) (staging, backup string) {
	parent := filepath.Dir(dir)
	return filepath.Join(parent, StagingName(prefix, t)), filepath.Join(parent, BackupName(prefix, t))
}

// ResolveDir 返回 dir 的 clean + absolute 路径，并解析其中的符号链接。
//
// 约束：
// - 交换与备份针对真实目录进行：经由符号链接给出时，被重写的是链接指向的目录，链接本身保持不变
// - 路径不存在时退化为 clean + absolute（由调用方报告缺失）
func ResolveDir(dir string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(strings.TrimSpace(dir)))
	if err != nil {
		return "", err
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return abs, nil
		}
		return "", err
	}
	return real, nil
}
