package planner

import (
	"sort"

	"github.com/John-Robertt/maiasaura/internal/domain"
)

// Plan 对比提交前后的顺序，返回位置发生变化的条目（不做任何写入）。
//
// - before/after 必须是同一组文件名的两个排列；只在一侧出现的名字被忽略
// - 结果按新位置（To）升序，便于逐行展示“第 N 首将是谁”
func Plan(before, after []string) []domain.PositionChange {
	from := make(map[string]int, len(before))
	for i, n := range before {
		from[n] = i
	}

	changes := make([]domain.PositionChange, 0, len(after))
	for to, n := range after {
		i, ok := from[n]
		if !ok || i == to {
			continue
		}
		changes = append(changes, domain.PositionChange{Name: n, From: i, To: to})
	}
	SortChanges(changes)
	return changes
}

// SortChanges 让上层在需要时可显式保证稳定顺序。
func SortChanges(changes []domain.PositionChange) {
	sort.SliceStable(changes, func(i, j int) bool { return changes[i].To < changes[j].To })
}
