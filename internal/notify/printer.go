package notify

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"

	"github.com/John-Robertt/maiasaura/internal/app/backups"
	"github.com/John-Robertt/maiasaura/internal/domain"
)

// Printer 把结构化结果渲染成给人看的终端输出；不经过 logger。
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) Info(msg string, fields map[string]any) {
	p.printWith(pterm.Info, msg, fields)
}

func (p *Printer) Success(msg string, fields map[string]any) {
	p.printWith(pterm.Success, msg, fields)
}

func (p *Printer) Error(msg string, fields map[string]any) {
	p.printWith(pterm.Error, msg, fields)
}

func (p *Printer) Warn(msg string, fields map[string]any) {
	p.printWith(pterm.Warning, msg, fields)
}

func (p *Printer) printWith(prefix pterm.PrefixPrinter, msg string, fields map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prefix.WithWriter(p.w).Println(msg)
	if len(fields) == 0 {
		return
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(p.w, "  %s: %v\n", k, fields[k])
	}
}

func (p *Printer) table(data [][]string) error {
	s, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err = fmt.Fprintln(p.w, s)
	return err
}

// Entries 以表格列出当前顺序（序号从 0 开始，与 --move 一致）。
func (p *Printer) Entries(entries []domain.FileEntry) error {
	data := [][]string{{"#", "文件", "大小", "修改时间"}}
	for i, e := range entries {
		data = append(data, []string{
			strconv.Itoa(i),
			e.Name,
			humanize.Bytes(uint64(max(e.Size, 0))),
			e.ModifiedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return p.table(data)
}

// Backups 列出保留的备份，并提示中断遗留的暂存目录。
func (p *Printer) Backups(list []backups.Backup, leftovers []string) error {
	if len(list) == 0 {
		p.Info("没有保留的备份", nil)
	} else {
		data := [][]string{{"备份", "创建于", "文件数", "大小"}}
		for _, b := range list {
			data = append(data, []string{
				b.Name,
				humanize.Time(b.CreatedAt),
				strconv.Itoa(b.Files),
				humanize.Bytes(uint64(max(b.Size, 0))),
			})
		}
		if err := p.table(data); err != nil {
			return err
		}
	}
	for _, l := range leftovers {
		p.Warn("发现中断遗留的暂存目录（确认无用后可手动删除）", map[string]any{"path": l})
	}
	return nil
}

// Pruned 汇报被删除的备份。
func (p *Printer) Pruned(removed []backups.Backup) {
	if len(removed) == 0 {
		p.Info("无需清理", nil)
		return
	}
	var freed int64
	for _, b := range removed {
		freed += b.Size
	}
	p.Success(fmt.Sprintf("已删除 %d 个旧备份", len(removed)), map[string]any{
		"freed": humanize.Bytes(uint64(max(freed, 0))),
	})
}

// Report 渲染一次 apply 的结果。
func (p *Printer) Report(rr domain.CommitReport) {
	switch rr.Status {
	case domain.StatusDryRun:
		p.Info(fmt.Sprintf("dry-run：%d 个文件，%d 个位置变化（未写入）", rr.Files, len(rr.Changes)), map[string]any{"dir": rr.Dir})
		p.changes(rr.Changes)
	case domain.StatusCommitted:
		p.Success("已按新顺序重写目录", map[string]any{
			"dir":       rr.Dir,
			"backup":    rr.BackupDir,
			"files":     rr.Files,
			"copied":    humanize.Bytes(uint64(max(rr.BytesCopied, 0))),
			"commit_id": rr.CommitID,
		})
		p.changes(rr.Changes)
	default:
		fields := make(map[string]any, len(rr.Paths)+2)
		for k, v := range rr.Paths {
			fields["path."+k] = v
		}
		if rr.ErrorStep != "" {
			fields["step"] = rr.ErrorStep
		}
		if rr.CommitID != "" {
			fields["commit_id"] = rr.CommitID
		}
		p.Error(fmt.Sprintf("%s: %s", rr.ErrorCode, rr.ErrorMsg), fields)
		if rr.RolledBack {
			p.Info("已回滚：原目录保持提交前的内容", nil)
		}
	}

	if len(rr.Unlisted) > 0 && rr.Status != domain.StatusFailed {
		p.Warn("以下条目不会写入新目录，提交后只保留在备份中", map[string]any{"unlisted": rr.Unlisted})
	}
}

func (p *Printer) changes(changes []domain.PositionChange) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range changes {
		fmt.Fprintf(p.w, "  %3d <- %-3d %s\n", c.To, c.From, c.Name)
	}
}

// EmitJSON 输出单个 JSON 文档（stdout 非 TTY 时的机器可读契约）。
func EmitJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
