package run

import (
	"time"

	"github.com/John-Robertt/maiasaura/internal/commit"
	"github.com/John-Robertt/maiasaura/internal/config"
)

// Observer 用于把“运行进度/阶段/提交事件”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）
// - 提交阶段的事件（OnState/OnFileCopied/OnDone）直接来自 commit.Committer
type Observer interface {
	commit.Observer

	// OnStart 在 ExecuteWithObserver 开始时调用。
	OnStart(eff config.EffectiveConfig, req Request)
	// OnPhaseDone 在阶段结束时调用（用于打印阶段统计与耗时）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
}
