package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/John-Robertt/maiasaura/internal/app/run"
	"github.com/John-Robertt/maiasaura/internal/commit"
	"github.com/John-Robertt/maiasaura/internal/config"
	"github.com/John-Robertt/maiasaura/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的简洁进度输出。
//
// 约束：
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：run/commit 只发事件，CLI 决定如何展示
// - keepalive：复制大文件时长时间没有新行，也会定期输出一行
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	total  int
	done   int
	bytes  int64
	copied int64

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:                  w,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig, req run.Request) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	mode := "commit"
	if req.DryRun {
		mode = "dry-run"
	}

	fmt.Fprintf(p.w, "[%s] maiasaura apply (%s)\n", now.Format("15:04:05"), mode)
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  path: %s\n", eff.Path)
	if eff.ConfigFile != "" {
		fmt.Fprintf(p.w, "  config: %s\n", eff.ConfigFile)
	}
	fmt.Fprintf(p.w, "  prefix: %s\n", eff.Prefix)
	fmt.Fprintf(p.w, "  extensions: %s\n", strings.Join(eff.Extensions, ","))
	if req.OrderFile != "" {
		fmt.Fprintf(p.w, "  order_file: %s\n", truncate(req.OrderFile, 120))
	}
	if len(req.Moves) > 0 {
		fmt.Fprintf(p.w, "  moves: %s\n", truncate(strings.Join(req.Moves, " "), 120))
	}
	fmt.Fprintln(p.w)

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "scan":
		fmt.Fprintf(p.w, "扫描: files=%d unlisted=%d (%s)\n",
			intField(fields, "files"), intField(fields, "unlisted"), formatShortDuration(dur),
		)
	case "reorder":
		fmt.Fprintf(p.w, "重排: moves=%d changed=%d (%s)\n",
			intField(fields, "moves"), intField(fields, "changed"), formatShortDuration(dur),
		)
	default:
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnState(id string, from, to commit.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch to {
	case commit.StateStaging:
		fmt.Fprintln(p.w, "复制到暂存目录:")
		if !p.tickerStarted {
			p.startTickerLocked()
		}
	case commit.StateSwapping:
		p.stopTickerLocked()
		fmt.Fprintln(p.w, "交换目录…")
	case commit.StateRollingBack:
		p.stopTickerLocked()
		fmt.Fprintln(p.w, "回滚…")
	default:
		return
	}
	p.lastPrinted = time.Now()
}

func (p *progressUI) OnFileCopied(idx, total int, e domain.FileEntry, bytes int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// idx 从 0 开始。
	p.done = idx + 1
	p.total = total
	p.copied += bytes

	fmt.Fprintf(p.w, "[%d/%d] %s (%s)\n", p.done, total, truncate(e.Name, 100), humanize.Bytes(uint64(max(bytes, 0))))
	p.lastPrinted = time.Now()
}

func (p *progressUI) OnDone(res commit.Result, err error, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopTickerLocked()
	if err != nil {
		fmt.Fprintf(p.w, "提交失败 (%s)\n\n", formatShortDuration(dur))
	} else {
		fmt.Fprintf(p.w, "提交完成: %s (%s)\n\n", humanize.Bytes(uint64(max(res.BytesCopied, 0))), formatShortDuration(dur))
	}
	p.lastPrinted = time.Now()
}

// Stop 停止 keepalive（提交未开始或中途 panic 时兜底）。
func (p *progressUI) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopTickerLocked()
}

func (p *progressUI) stopTickerLocked() {
	if p.tickerStarted {
		close(p.stopCh)
		p.tickerStarted = false
	}
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}

	stopCh := p.stopCh
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if time.Since(p.lastPrinted) > threshold {
					fmt.Fprintf(p.w, "进度: copied=%d/%d bytes=%s elapsed=%s\n",
						p.done, p.total, humanize.Bytes(uint64(max(p.copied, 0))), formatElapsed(time.Since(p.startedAt)),
					)
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-stopCh:
				return
			}
		}
	}()
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	v, ok := fields[key]
	if !ok {
		return 0
	}
	switch x := v.(type) {
	case int:
		return x
	case int32:
		return int(x)
	case int64:
		return int(x)
	case uint:
		return int(x)
	case uint32:
		return int(x)
	case uint64:
		return int(x)
	default:
		return 0
	}
}
