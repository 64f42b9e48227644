package fsx

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriteFileAtomicReplace_SuccessAndNoTempLeft(t *testing.T) {
	dir := t.TempDir()

	if err := WriteFileAtomicReplace(dir, "a.json", []byte("hello")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	// 覆盖写。
	if err := WriteFileAtomicReplace(dir, "a.json", []byte("world")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "a.json"))
	if err != nil {
		t.Fatalf("读取文件失败：%v", err)
	}
	if string(b) != "world" {
		t.Fatalf("内容不一致：%q", string(b))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".a.json.tmp-") {
			t.Fatalf("临时文件未清理：%q", e.Name())
		}
	}
}

func TestWriteFileAtomicReplace_RenameFail_CleanupTemp(t *testing.T) {
	dir := t.TempDir()

	old := renameFunc
	renameFunc = func(oldpath, newpath string) error {
		return os.ErrPermission
	}
	defer func() { renameFunc = old }()

	if err := WriteFileAtomicReplace(dir, "a.json", []byte("hello")); err == nil {
		t.Fatalf("期望失败，但得到 nil")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("rename 失败后目录应为空，实际：%v", entries)
	}
}

func TestWriteFileAtomicReplace_TargetIsDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "a.json"), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}

	err := WriteFileAtomicReplace(dir, "a.json", []byte("x"))
	if !IsPathTypeConflict(err) {
		t.Fatalf("期望 PathTypeConflictError，实际：%T %v", err, err)
	}
}

func TestCopyFile_ContentModeAndMtime(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.mp3")
	dst := filepath.Join(dir, "b.mp3")

	if err := os.WriteFile(src, []byte("ID3-data"), 0o600); err != nil {
		t.Fatalf("写入失败：%v", err)
	}
	mtime := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := os.Chtimes(src, mtime, mtime); err != nil {
		t.Fatalf("Chtimes 失败：%v", err)
	}

	n, err := CopyFile(src, dst)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if n != int64(len("ID3-data")) {
		t.Fatalf("字节数不一致：%d", n)
	}

	b, err := os.ReadFile(dst)
	if err != nil || string(b) != "ID3-data" {
		t.Fatalf("内容不一致：%q err=%v", string(b), err)
	}
	fi, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("Stat 失败：%v", err)
	}
	if !fi.ModTime().Equal(mtime) {
		t.Fatalf("mtime 未保留：%v", fi.ModTime())
	}
}

func TestCopyFile_NoOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.mp3")
	dst := filepath.Join(dir, "b.mp3")
	if err := os.WriteFile(src, []byte("new"), 0o644); err != nil {
		t.Fatalf("写入失败：%v", err)
	}
	if err := os.WriteFile(dst, []byte("old"), 0o644); err != nil {
		t.Fatalf("写入失败：%v", err)
	}

	_, err := CopyFile(src, dst)
	if !errors.Is(err, os.ErrExist) {
		t.Fatalf("期望 ErrExist，实际：%v", err)
	}
	b, _ := os.ReadFile(dst)
	if string(b) != "old" {
		t.Fatalf("已存在的目标被覆盖：%q", string(b))
	}
}

func TestCopyFile_SourceIsDir(t *testing.T) {
	dir := t.TempDir()
	_, err := CopyFile(dir, filepath.Join(t.TempDir(), "x"))
	if !IsPathTypeConflict(err) {
		t.Fatalf("期望 PathTypeConflictError，实际：%T %v", err, err)
	}
}

func TestCopyFile_WriteFail_NoPartialLeft(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.mp3")
	dst := filepath.Join(dir, "b.mp3")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatalf("写入失败：%v", err)
	}

	old := copyFunc
	copyFunc = func(w io.Writer, r io.Reader) (int64, error) {
		_, _ = w.Write([]byte("pay"))
		return 3, errors.New("disk full")
	}
	defer func() { copyFunc = old }()

	if _, err := CopyFile(src, dst); err == nil {
		t.Fatalf("期望失败，但得到 nil")
	}
	if _, err := os.Lstat(dst); !os.IsNotExist(err) {
		t.Fatalf("失败后不应留下半个文件，Lstat err=%v", err)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	ok, err := Exists(filepath.Join(dir, "nope"))
	if err != nil || ok {
		t.Fatalf("不存在的路径：ok=%v err=%v", ok, err)
	}
	ok, err = Exists(dir)
	if err != nil || !ok {
		t.Fatalf("存在的路径：ok=%v err=%v", ok, err)
	}
}
