package run

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/John-Robertt/maiasaura/internal/commit"
	"github.com/John-Robertt/maiasaura/internal/config"
	"github.com/John-Robertt/maiasaura/internal/domain"
)

type recordObserver struct {
	mu sync.Mutex

	startCalls int
	phases     []string
	states     []commit.State
	copied     []string
	done       int
}

func (o *recordObserver) OnStart(eff config.EffectiveConfig, req Request) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.startCalls++
}

func (o *recordObserver) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.phases = append(o.phases, name)
}

func (o *recordObserver) OnState(id string, from, to commit.State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, to)
}

func (o *recordObserver) OnFileCopied(idx, total int, e domain.FileEntry, bytes int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.copied = append(o.copied, e.Name)
}

func (o *recordObserver) OnDone(res commit.Result, err error, dur time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.done++
}

func TestExecuteWithObserver_EmitsPhaseAndCommitEvents(t *testing.T) {
	dir := newAlbum(t, "a.mp3", "b.mp3", "c.mp3")
	eff := effective(t, dir)

	obs := &recordObserver{}
	extra := &recordObserver{}
	rr := ExecuteWithObserver(context.Background(), eff, Request{Moves: []string{"0:end"}}, Deps{Observers: []commit.Observer{extra}}, obs)
	if rr.Status != domain.StatusCommitted {
		t.Fatalf("期望 committed，实际 %+v", rr)
	}

	if obs.startCalls != 1 {
		t.Fatalf("OnStart 应调用 1 次，实际 %d", obs.startCalls)
	}
	if len(obs.phases) != 2 || obs.phases[0] != "scan" || obs.phases[1] != "reorder" {
		t.Fatalf("阶段事件不正确：%v", obs.phases)
	}
	want := []commit.State{commit.StateValidating, commit.StateStaging, commit.StateSwapping, commit.StateCommitted}
	if len(obs.states) != len(want) {
		t.Fatalf("状态事件不正确：%v", obs.states)
	}
	for i := range want {
		if obs.states[i] != want[i] {
			t.Fatalf("状态事件不正确：%v", obs.states)
		}
	}
	if len(obs.copied) != 3 || obs.done != 1 {
		t.Fatalf("复制/完成事件不正确：copied=%v done=%d", obs.copied, obs.done)
	}
	// 额外的 Observer（例如 metrics）收到同样的提交事件。
	if len(extra.copied) != 3 || extra.done != 1 {
		t.Fatalf("额外 Observer 未收到事件：copied=%v done=%d", extra.copied, extra.done)
	}
}

func TestExecuteWithObserver_DryRunHasNoCommitEvents(t *testing.T) {
	dir := newAlbum(t, "a.mp3", "b.mp3")
	obs := &recordObserver{}

	rr := ExecuteWithObserver(context.Background(), effective(t, dir), Request{DryRun: true}, Deps{}, obs)
	if rr.Status != domain.StatusDryRun {
		t.Fatalf("期望 dry_run，实际 %q", rr.Status)
	}
	if len(obs.states) != 0 || obs.done != 0 {
		t.Fatalf("dry-run 不应触发提交事件：states=%v done=%d", obs.states, obs.done)
	}
}
