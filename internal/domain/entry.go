package domain

import (
	"path/filepath"
	"time"
)

// FileEntry 描述目录中一个可排序的音频文件（扫描阶段只做 stat，不读内容）。
//
// 不变量（实现必须遵守）：
// - Path 必须是 clean + absolute；它只在扫描时刻有效，之后可能过期
// - Name 是目录内的 base name；同一次提交中不允许重名（由 committer 检查）
// - Size / ModifiedAt 仅用于展示，提交流程不读取
type FileEntry struct {
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Rebased 返回指向 dir/<Name> 的副本。提交成功后用它把条目改写到新位置。
func (e FileEntry) Rebased(dir string) FileEntry {
	e.Path = filepath.Join(dir, e.Name)
	return e
}
