package commit

import (
	"time"

	"github.com/John-Robertt/maiasaura/internal/domain"
)

// Observer 用于把“状态迁移/复制进度/最终结果”从提交流程中解耦出来。
//
// 约束：
// - commit 包只负责发事件，不做任何输出
// - 回调在提交所在 goroutine 中同步调用；实现不得阻塞过久
type Observer interface {
	OnState(id string, from, to State)
	OnFileCopied(idx, total int, e domain.FileEntry, bytes int64)
	OnDone(res Result, err error, dur time.Duration)
}

// Observers 把多个 Observer 合并为一个（nil 会被忽略）。
func Observers(obs ...Observer) Observer {
	out := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

type multiObserver []Observer

func (m multiObserver) OnState(id string, from, to State) {
	for _, o := range m {
		o.OnState(id, from, to)
	}
}

func (m multiObserver) OnFileCopied(idx, total int, e domain.FileEntry, bytes int64) {
	for _, o := range m {
		o.OnFileCopied(idx, total, e, bytes)
	}
}

func (m multiObserver) OnDone(res Result, err error, dur time.Duration) {
	for _, o := range m {
		o.OnDone(res, err, dur)
	}
}
