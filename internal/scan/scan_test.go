package scan

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestAudioFiles_FilterByExtension(t *testing.T) {
	root := t.TempDir()

	touch(t, filepath.Join(root, "01.mp3"))
	touch(t, filepath.Join(root, "02.FLAC"))
	touch(t, filepath.Join(root, "cover.jpg"))
	touch(t, filepath.Join(root, "._01.mp3"))
	touch(t, filepath.Join(root, "sub", "03.mp3"))

	got, err := AudioFiles(root, DefaultExtensions)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 2 {
		t.Fatalf("期望 2 个音频文件，实际 %d：%+v", len(got), got)
	}

	names := map[string]bool{}
	for _, e := range got {
		names[e.Name] = true
		if !filepath.IsAbs(e.Path) || filepath.Base(e.Path) != e.Name {
			t.Fatalf("Path 必须是绝对路径且以 Name 结尾：%+v", e)
		}
		if e.Size != 1 {
			t.Fatalf("Size 不正确：%+v", e)
		}
	}
	if !names["01.mp3"] || !names["02.FLAC"] {
		t.Fatalf("结果不正确：%v", names)
	}
}

func TestAudioFiles_CustomExtensions(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.opus"))
	touch(t, filepath.Join(root, "b.mp3"))

	got, err := AudioFiles(root, []string{"opus"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 1 || got[0].Name != "a.opus" {
		t.Fatalf("期望只有 a.opus，实际 %+v", got)
	}
}

func TestAudioFiles_MissingDir(t *testing.T) {
	if _, err := AudioFiles(filepath.Join(t.TempDir(), "nope"), DefaultExtensions); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
}

func TestAudioFiles_KeepsDirectoryOrder(t *testing.T) {
	root := t.TempDir()
	for _, n := range []string{"c.mp3", "a.mp3", "notes.txt", "e.flac", "b.mp3", "d.wav"} {
		touch(t, filepath.Join(root, n))
	}

	f, err := os.Open(root)
	if err != nil {
		t.Fatalf("打开目录失败：%v", err)
	}
	des, err := f.ReadDir(-1)
	_ = f.Close()
	if err != nil {
		t.Fatalf("枚举目录失败：%v", err)
	}
	want := make([]string, 0, len(des))
	for _, d := range des {
		if hasExt(d.Name(), NormalizeExtensions(DefaultExtensions)) {
			want = append(want, d.Name())
		}
	}

	got, err := AudioFiles(root, DefaultExtensions)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("期望 %v，实际 %+v", want, got)
	}
	for i := range want {
		if got[i].Name != want[i] {
			t.Fatalf("第 %d 项期望 %q（目录枚举顺序），实际 %q", i, want[i], got[i].Name)
		}
	}
}

func TestAudioFiles_UnreadableFileGoesToUnlisted(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Windows 不支持 chmod 000")
	}
	if os.Geteuid() == 0 {
		t.Skip("root 不受文件权限限制")
	}
	root := t.TempDir()
	touch(t, filepath.Join(root, "01.mp3"))
	locked := filepath.Join(root, "02.mp3")
	touch(t, locked)
	if err := os.Chmod(locked, 0); err != nil {
		t.Fatalf("chmod 失败：%v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o644) })

	got, err := AudioFiles(root, DefaultExtensions)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 1 || got[0].Name != "01.mp3" {
		t.Fatalf("期望只有 01.mp3，实际 %+v", got)
	}

	rest, err := Unlisted(root, DefaultExtensions)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(rest) != 1 || rest[0] != "02.mp3" {
		t.Fatalf("期望 Unlisted 为 [02.mp3]，实际 %v", rest)
	}
}

func TestAudioFiles_FollowsSymlinkedAudio(t *testing.T) {
	root := t.TempDir()
	album := filepath.Join(root, "album")
	target := filepath.Join(root, "elsewhere", "real.mp3")
	touch(t, filepath.Join(album, "01.mp3"))
	touch(t, target)
	if err := os.WriteFile(target, []byte("xyz"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
	if err := os.Symlink(target, filepath.Join(album, "02.mp3")); err != nil {
		t.Skipf("当前平台无法创建符号链接：%v", err)
	}
	if err := os.Symlink(filepath.Join(root, "gone.mp3"), filepath.Join(album, "03.mp3")); err != nil {
		t.Fatalf("创建符号链接失败：%v", err)
	}

	got, err := AudioFiles(album, DefaultExtensions)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	byName := map[string]int64{}
	for _, e := range got {
		byName[e.Name] = e.Size
	}
	if len(got) != 2 {
		t.Fatalf("期望 2 个条目，实际 %+v", got)
	}
	if size, ok := byName["02.mp3"]; !ok || size != 3 {
		t.Fatalf("链接条目应按目标文件计入（size=3），实际 %+v", got)
	}

	rest, err := Unlisted(album, DefaultExtensions)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(rest) != 1 || rest[0] != "03.mp3" {
		t.Fatalf("悬空链接应进入 Unlisted，实际 %v", rest)
	}
}

func TestUnlisted(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "01.mp3"))
	touch(t, filepath.Join(root, "cover.jpg"))
	touch(t, filepath.Join(root, "sub", "x.mp3"))

	got, err := Unlisted(root, DefaultExtensions)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	want := []string{"cover.jpg", "sub"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("期望 %v，实际 %v", want, got)
	}
}

func TestNormalizeExtensions(t *testing.T) {
	got := NormalizeExtensions([]string{"MP3", ".mp3", "*.Flac", " ", "."})
	want := []string{".mp3", ".flac"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("期望 %v，实际 %v", want, got)
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
}
