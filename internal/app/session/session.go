package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/John-Robertt/maiasaura/internal/commit"
	"github.com/John-Robertt/maiasaura/internal/domain"
	"github.com/John-Robertt/maiasaura/internal/order"
	"github.com/John-Robertt/maiasaura/internal/scan"
)

var (
	ErrUnknownName  = errors.New("目录中没有该文件")
	ErrRepeatedName = errors.New("顺序中重复出现同一文件")
	ErrOutOfRange   = errors.New("序号越界")
	ErrBadMoveSpec  = errors.New("无效的移动参数")
)

// Options 配置 Session；Committer 为空时使用默认 Committer。
type Options struct {
	Extensions []string
	Committer  *commit.Committer
}

// Session 持有一个目录的内存顺序：加载、重排、提交。
//
// 不变量：
// - seq 只包含 dir 下（提交后改写到 dir 下）的条目
// - 提交失败时 seq 保持提交前的顺序，调用方可修正后重试
type Session struct {
	dir       string
	exts      []string
	seq       *order.Sequence
	committer *commit.Committer
}

// Open 扫描 dir（按目录自身的枚举顺序）并建立序列。
func Open(dir string, opts Options) (*Session, error) {
	abs, err := commit.ResolveDir(dir)
	if err != nil {
		return nil, err
	}
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = scan.DefaultExtensions
	}
	exts = scan.NormalizeExtensions(exts)

	entries, err := scan.AudioFiles(abs, exts)
	if err != nil {
		return nil, err
	}

	c := opts.Committer
	if c == nil {
		c = commit.New(commit.Options{})
	}
	return &Session{
		dir:       abs,
		exts:      exts,
		seq:       order.New(entries),
		committer: c,
	}, nil
}

func (s *Session) Dir() string { return s.dir }

func (s *Session) Len() int { return s.seq.Len() }

// Entries 返回当前顺序的拷贝。
func (s *Session) Entries() []domain.FileEntry { return s.seq.Snapshot() }

// Names 返回当前顺序的文件名。
func (s *Session) Names() []string { return s.seq.Names() }

// Move 见 order.Sequence.Move（dst 为移除后的最终位置）。
func (s *Session) Move(src, dst int) bool { return s.seq.Move(src, dst) }

// DropAt 见 order.Sequence.DropAt（row 为拖放时指向的行）。
func (s *Session) DropAt(src, row int) bool { return s.seq.DropAt(src, row) }

// MoveSpec 是一条 "S:D" 形式的移动指令；Dst 可为 order.Append（"end"）。
type MoveSpec struct {
	Src int
	Dst int
}

func (m MoveSpec) String() string {
	if m.Dst == order.Append {
		return fmt.Sprintf("%d:end", m.Src)
	}
	return fmt.Sprintf("%d:%d", m.Src, m.Dst)
}

// ParseMoveSpec 解析 "3:0" / "1:end"（从 0 开始计数）。
func ParseMoveSpec(s string) (MoveSpec, error) {
	src, dst, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return MoveSpec{}, fmt.Errorf("%w：%q（应为 源:目标）", ErrBadMoveSpec, s)
	}
	from, err := strconv.Atoi(strings.TrimSpace(src))
	if err != nil || from < 0 {
		return MoveSpec{}, fmt.Errorf("%w：%q（源序号必须是非负整数）", ErrBadMoveSpec, s)
	}
	dst = strings.TrimSpace(dst)
	if strings.EqualFold(dst, "end") {
		return MoveSpec{Src: from, Dst: order.Append}, nil
	}
	to, err := strconv.Atoi(dst)
	if err != nil || to < 0 {
		return MoveSpec{}, fmt.Errorf("%w：%q（目标必须是非负整数或 end）", ErrBadMoveSpec, s)
	}
	return MoveSpec{Src: from, Dst: to}, nil
}

// ParseMoveSpecs 依次解析多条指令；任一失败即返回。
func ParseMoveSpecs(in []string) ([]MoveSpec, error) {
	out := make([]MoveSpec, 0, len(in))
	for _, s := range in {
		m, err := ParseMoveSpec(s)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// ApplyMoves 按顺序执行移动；每一步的序号都相对于上一步之后的序列。
// 任一源序号越界时返回错误，此前已执行的移动保留。
func (s *Session) ApplyMoves(specs []MoveSpec) error {
	for _, m := range specs {
		if m.Src < 0 || m.Src >= s.seq.Len() {
			return fmt.Errorf("%w：%s（共 %d 个文件）", ErrOutOfRange, m, s.seq.Len())
		}
		s.seq.Move(m.Src, m.Dst)
	}
	return nil
}

// ApplyOrder 把 names 依次移到序列最前面；未列出的条目保持相对顺序排在其后。
// names 先整体校验（未知/重复即失败，序列不变），再逐个 Move。
func (s *Session) ApplyOrder(names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if s.seq.IndexOf(n) < 0 {
			return fmt.Errorf("%w：%q", ErrUnknownName, n)
		}
		if _, dup := seen[n]; dup {
			return fmt.Errorf("%w：%q", ErrRepeatedName, n)
		}
		seen[n] = struct{}{}
	}
	for i, n := range names {
		s.seq.Move(s.seq.IndexOf(n), i)
	}
	return nil
}

// Unlisted 返回目录中不会被写入新目录的条目（非音频文件、子目录、隐藏文件）。
// 提交后它们只存在于备份目录中。
func (s *Session) Unlisted() ([]string, error) {
	return scan.Unlisted(s.dir, s.exts)
}

// Commit 把当前顺序事务性地写回目录；成功后序列改写为新目录下的条目。
func (s *Session) Commit(ctx context.Context) (commit.Result, error) {
	res, err := s.committer.Commit(ctx, s.dir, s.seq.Snapshot())
	if err != nil {
		return commit.Result{}, err
	}
	s.seq.Reset(res.Entries)
	return res, nil
}
