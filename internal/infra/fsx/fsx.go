package fsx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// 通过可替换的函数指针，让测试能稳定模拟 EXDEV / 写入失败等错误。
var (
	renameFunc = os.Rename
	copyFunc   = io.Copy
)

// ErrLocked 表示目录已被其他描述符（通常是另一个进程）锁定。
var ErrLocked = errors.New("目录已被锁定")

// PathTypeConflictError 表示目标路径类型冲突（例如期望文件但实际是目录）。
type PathTypeConflictError struct {
	Path string
	Want string
	Got  string
}

func (e *PathTypeConflictError) Error() string {
	return fmt.Sprintf("目标路径类型冲突：%q（期望 %s，实际 %s）", e.Path, e.Want, e.Got)
}

func IsPathTypeConflict(err error) bool {
	var e *PathTypeConflictError
	return errors.As(err, &e)
}

// CrossDeviceError 表示跨盘（EXDEV）导致的 rename 失败。
// 按产品契约：目录交换只依赖同一文件系统内的原子 rename，遇到 EXDEV 直接失败，不做 copy+delete。
type CrossDeviceError struct {
	Src string
	Dst string
	Err error
}

func (e *CrossDeviceError) Error() string {
	return fmt.Sprintf("跨盘重命名失败（EXDEV）：%q -> %q；请确保两者在同一文件系统（本工具不会隐式 copy+delete）：%v", e.Src, e.Dst, e.Err)
}

func (e *CrossDeviceError) Unwrap() error { return e.Err }

// IsCrossDevice 判断 err 是否为跨盘（EXDEV）错误。
func IsCrossDevice(err error) bool {
	var e *CrossDeviceError
	return errors.As(err, &e)
}

// Rename 封装 os.Rename，并把 EXDEV 显式标记为 CrossDeviceError。
func Rename(src, dst string) error {
	if err := renameFunc(src, dst); err != nil {
		if isEXDEV(err) {
			return &CrossDeviceError{Src: src, Dst: dst, Err: err}
		}
		return err
	}
	return nil
}

// Exists 用 Lstat 判断路径是否存在（不跟随符号链接）。
// 除 NotExist 之外的错误原样返回，调用方不得把它当作“不存在”。
func Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// CopyFile 把 src 的字节内容复制到新文件 dst，返回写入字节数。
//
// 约束：
// - dst 以 O_EXCL 创建：已存在即失败（返回 os.ErrExist 语义的错误），绝不覆盖
// - src 必须是普通文件；目录/设备等返回 PathTypeConflictError
// - 写完后 fsync，并保留权限位与修改时间
// - 任意一步失败都会删除已创建的 dst，不留下半个文件
func CopyFile(src, dst string) (n int64, err error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return 0, err
	}
	if !fi.Mode().IsRegular() {
		return 0, &PathTypeConflictError{Path: src, Want: "regular file", Got: fi.Mode().Type().String()}
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fi.Mode().Perm())
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(dst)
		}
	}()

	n, err = copyFunc(out, in)
	if err != nil {
		return n, err
	}
	if n != fi.Size() {
		return n, fmt.Errorf("复制不完整：%q 期望 %d 字节，实际 %d", src, fi.Size(), n)
	}
	if err = out.Sync(); err != nil {
		return n, err
	}
	if err = out.Close(); err != nil {
		return n, err
	}
	// OpenFile 的 perm 受 umask 影响，这里显式还原。
	if err = os.Chmod(dst, fi.Mode().Perm()); err != nil {
		return n, err
	}
	if err = os.Chtimes(dst, fi.ModTime(), fi.ModTime()); err != nil {
		return n, err
	}
	return n, nil
}

// RemoveAll 删除 path 及其内容；path 不存在不算错误。
func RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// WriteFileAtomicReplace 在 dir 下原子写入并覆盖 name（临时文件 + rename）。
//
// - 临时文件必须与目标文件在同目录，以保证 rename 的原子性
// - 对临时文件做 Sync；目录 Sync 采用 best-effort（避免平台差异导致误报失败）
func WriteFileAtomicReplace(dir, name string, data []byte) error {
	return writeFileAtomic(dir, name, data, 0o644)
}

func writeFileAtomic(dir, name string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	dst := filepath.Join(dir, name)
	if fi, err := os.Lstat(dst); err == nil && fi.IsDir() {
		return &PathTypeConflictError{Path: dst, Want: "file", Got: "dir"}
	}

	// 创建同目录临时文件（前缀带 '.'，避免被播放器当成曲目）。
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := writeAll(tmp, data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := Rename(tmpName, dst); err != nil {
		return err
	}

	_ = SyncDir(dir)
	return nil
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// SyncDir 对目录做 fsync，让目录项（新建/重命名）落盘。
// Windows 上目录 Sync 的语义与支持情况不稳定，直接跳过。
func SyncDir(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
