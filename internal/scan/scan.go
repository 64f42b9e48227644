package scan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/John-Robertt/maiasaura/internal/domain"
)

// DefaultExtensions 是默认识别的音频后缀。
var DefaultExtensions = []string{".mp3", ".wav", ".m4a", ".aac", ".ogg", ".flac"}

// AudioFiles 列出 dir 下（不递归）后缀匹配 exts 的可读普通文件。
//
// 规则（硬约束）：
// - 保留目录自身的枚举顺序（也就是播放器看到的顺序），不做排序
// - 后缀匹配不区分大小写
// - 以 '.' 开头的隐藏文件一律跳过（例如 macOS 写到 SD 卡上的 ._xxx.mp3）
// - 指向普通文件的符号链接视为该文件（按目标的大小与修改时间）；悬空链接进入 Unlisted
// - 只做 stat + 一次只读 open 探测可读性，不读文件内容
func AudioFiles(dir string, exts []string) ([]domain.FileEntry, error) {
	entries, _, err := classify(dir, exts)
	return entries, err
}

// Unlisted 返回 dir 下不会进入排序序列的条目名（子目录、隐藏文件、非音频文件、不可读文件），按名字排序。
// 提交只会复制序列中的条目，这些条目在提交后只保留在备份目录里。
func Unlisted(dir string, exts []string) ([]string, error) {
	_, rest, err := classify(dir, exts)
	return rest, err
}

func classify(dir string, exts []string) (matched []domain.FileEntry, rest []string, err error) {
	dir, err = filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(dir)
	if err != nil {
		return nil, nil, err
	}
	// os.ReadDir 会按名字排序；这里必须用 File.ReadDir 拿到目录原始顺序。
	des, err := f.ReadDir(-1)
	_ = f.Close()
	if err != nil {
		return nil, nil, err
	}

	want := NormalizeExtensions(exts)
	matched = make([]domain.FileEntry, 0, len(des))
	rest = make([]string, 0, 8)

	for _, d := range des {
		name := d.Name()
		path := filepath.Join(dir, name)
		if strings.HasPrefix(name, ".") || !hasExt(name, want) {
			rest = append(rest, name)
			continue
		}

		info, err := fileInfo(path, d)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, nil, err
			}
			if d.Type()&os.ModeSymlink != 0 {
				rest = append(rest, name) // 悬空链接
			}
			continue // 否则是枚举与 stat 之间被删除
		}
		if !info.Mode().IsRegular() {
			rest = append(rest, name)
			continue
		}

		if !readable(path) {
			rest = append(rest, name)
			continue
		}

		matched = append(matched, domain.FileEntry{
			Path:       path,
			Name:       name,
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		})
	}

	sort.Strings(rest)
	return matched, rest, nil
}

// NormalizeExtensions 统一为小写、带前导 '.'，并去重（保持首次出现的顺序）。
func NormalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	seen := make(map[string]struct{}, len(exts))
	for _, x := range exts {
		x = strings.ToLower(strings.TrimSpace(x))
		x = strings.TrimPrefix(x, "*")
		if x == "" || x == "." {
			continue
		}
		if !strings.HasPrefix(x, ".") {
			x = "." + x
		}
		if _, ok := seen[x]; ok {
			continue
		}
		seen[x] = struct{}{}
		out = append(out, x)
	}
	return out
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, x := range exts {
		if ext == x {
			return true
		}
	}
	return false
}

// fileInfo 对符号链接跟随到目标（提交时复制的也是目标内容），其余条目用目录项自带的信息。
func fileInfo(path string, d os.DirEntry) (os.FileInfo, error) {
	if d.Type()&os.ModeSymlink != 0 {
		return os.Stat(path)
	}
	return d.Info()
}

func readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}
