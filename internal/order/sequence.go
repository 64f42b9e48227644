package order

import (
	"github.com/John-Robertt/maiasaura/internal/domain"
)

// Append 作为目标下标时表示“追加到末尾”。
const Append = -1

// Sequence 是内存中的有序条目列表；下标顺序即播放顺序。
//
// 约束：
// - 纯数据结构：不做任何文件系统访问
// - 不检查重名（它不知道目标目录）；重名由 committer 在提交时拒绝
// - 非并发安全：调用方（CLI/TUI）单线程驱动
type Sequence struct {
	entries []domain.FileEntry
}

// New 以 entries 的副本构造 Sequence（调用方之后修改入参不影响 Sequence）。
func New(entries []domain.FileEntry) *Sequence {
	return &Sequence{entries: append([]domain.FileEntry(nil), entries...)}
}

func (s *Sequence) Len() int { return len(s.entries) }

// At 返回下标 i 处的条目；越界返回 false。
func (s *Sequence) At(i int) (domain.FileEntry, bool) {
	if i < 0 || i >= len(s.entries) {
		return domain.FileEntry{}, false
	}
	return s.entries[i], true
}

// Move 把 src 处的元素移除后重新插入，使其最终位于 dst。
//
// dst 以“移除之后”的下标空间计量：Move(0,2) 作用于 [A,B,C,D] 得到 [B,C,A,D]。
// dst 为 Append 或不小于移除后长度时追加到末尾。
// 返回是否发生了结构变化：src 越界、或 src 与规范化后的 dst 相同，都返回 false。
func (s *Sequence) Move(src, dst int) bool {
	n := len(s.entries)
	if src < 0 || src >= n {
		return false
	}

	last := n - 1 // 移除后的末尾插入位置
	if dst == Append || dst > last {
		dst = last
	}
	if dst < 0 {
		dst = 0
	}
	if dst == src {
		return false
	}

	moved := s.entries[src]
	if src < dst {
		copy(s.entries[src:dst], s.entries[src+1:dst+1])
	} else {
		copy(s.entries[dst+1:src+1], s.entries[dst:src])
	}
	s.entries[dst] = moved
	return true
}

// DropAt 实现拖放语义：row 是“插入到 row 之前”的间隙（移除之前的下标空间），
// Append 表示放到末尾。
//
// 移除被拖动的元素会让其后的下标整体减一，因此 row > src 时先减一再交给 Move。
// DropAt(0,2) 作用于 [A,B,C,D] 得到 [B,A,C,D]。
func (s *Sequence) DropAt(src, row int) bool {
	if src < 0 || src >= len(s.entries) {
		return false
	}
	if row == Append || row > len(s.entries) {
		row = len(s.entries)
	}
	if row > src {
		row--
	}
	return s.Move(src, row)
}

// Snapshot 返回当前顺序的只读副本（提交使用）。
func (s *Sequence) Snapshot() []domain.FileEntry {
	return append([]domain.FileEntry(nil), s.entries...)
}

// Names 返回当前顺序的文件名列表。
func (s *Sequence) Names() []string {
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Name)
	}
	return out
}

// IndexOf 返回第一个名为 name 的条目下标；不存在返回 -1。
func (s *Sequence) IndexOf(name string) int {
	for i := range s.entries {
		if s.entries[i].Name == name {
			return i
		}
	}
	return -1
}

// Reset 用 entries 的副本整体替换内容（提交成功后改写路径时使用）。
func (s *Sequence) Reset(entries []domain.FileEntry) {
	s.entries = append(s.entries[:0:0], entries...)
}
