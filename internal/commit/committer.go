package commit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/John-Robertt/maiasaura/internal/domain"
	"github.com/John-Robertt/maiasaura/internal/infra/fsx"
	"github.com/John-Robertt/maiasaura/internal/logging"
)

// Result 是一次成功提交的结果。
type Result struct {
	ID         string
	Dir        string // 不变：提交前后是同一路径
	BackupDir  string // 保留的原目录；Committer 永不删除
	StagingDir string // 已被提升为 Dir 的暂存目录原路径

	// Entries 是按提交顺序改写到 Dir/<Name> 的条目。
	Entries     []domain.FileEntry
	BytesCopied int64

	StartedAt  time.Time
	FinishedAt time.Time
}

// Options 配置 Committer；零值可用。
type Options struct {
	// Prefix 是暂存/备份目录名中的工具前缀，默认 DefaultPrefix。
	Prefix string
	// Clock 用于生成时间戳目录名，默认真实时钟（本地时间）。
	Clock clockwork.Clock
	// Logger 默认丢弃所有日志。
	Logger logrus.FieldLogger
	// Observer 可为空。
	Observer Observer
}

// Committer 把内存中的顺序事务性地写回目录。
//
// 协议（与状态机一一对应）：
//  1. Validating：登记 in-flight；检查目录、序列、暂存/备份路径均可用。此前不做任何写入。
//  2. Staging：创建同级暂存目录，按序列顺序逐个复制文件（创建顺序 = 枚举顺序）。
//  3. Swapping：原目录 -> 备份名；暂存目录 -> 原目录名。两次整目录 rename。
//  4. RollingBack：仅当第二次 rename 失败且第一次已成功时，把备份改回原名。
//
// 前置条件（不做校验）：目标文件系统按创建顺序枚举目录项（FAT/exFAT 成立；
// ext4 哈希索引目录、APFS 等按名字或哈希返回的文件系统不成立）。
type Committer struct {
	prefix string
	clock  clockwork.Clock
	log    logrus.FieldLogger
	obs    Observer
	ops    ops
}

// ops 收拢提交过程用到的全部文件系统操作，测试可逐项替换以注入故障。
type ops struct {
	stat      func(string) (os.FileInfo, error)
	exists    func(string) (bool, error)
	mkdir     func(string, os.FileMode) error
	copyFile  func(src, dst string) (int64, error)
	rename    func(src, dst string) error
	removeAll func(string) error
	syncDir   func(string) error
	lockDir   func(string) (func() error, error)
}

func defaultOps() ops {
	return ops{
		stat:      os.Stat,
		exists:    fsx.Exists,
		mkdir:     os.Mkdir,
		copyFile:  fsx.CopyFile,
		rename:    fsx.Rename,
		removeAll: fsx.RemoveAll,
		syncDir:   fsx.SyncDir,
		lockDir:   fsx.LockDir,
	}
}

func New(opts Options) *Committer {
	c := &Committer{
		prefix: strings.TrimSpace(opts.Prefix),
		clock:  opts.Clock,
		log:    opts.Logger,
		obs:    opts.Observer,
		ops:    defaultOps(),
	}
	if c.prefix == "" {
		c.prefix = DefaultPrefix
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	if c.log == nil {
		c.log = logging.Discard()
	}
	if c.obs == nil {
		c.obs = Observers()
	}
	return c
}

// Prefix 返回生效的工具前缀。
func (c *Committer) Prefix() string { return c.prefix }

// txn 是一次提交的可变状态（只活在 Commit 调用期间）。
type txn struct {
	c     *Committer
	id    string
	log   *logrus.Entry
	state State

	dir     string
	parent  string
	staging string
	backup  string
	perm    os.FileMode
	unlock  func() error
}

func (t *txn) to(next State) {
	prev := t.state
	t.state = next
	// 终止状态按 info 记录，日志文件里每次提交至少留下一行结局。
	level := logrus.DebugLevel
	if next.Terminal() {
		level = logrus.InfoLevel
	}
	t.log.WithFields(logrus.Fields{"from": prev.String(), "state": next.String()}).Log(level, "提交状态迁移")
	t.c.obs.OnState(t.id, prev, next)
}

func (t *txn) paths() map[string]string {
	m := map[string]string{PathOriginal: t.dir}
	if t.staging != "" {
		m[PathStaging] = t.staging
	}
	if t.backup != "" {
		m[PathBackup] = t.backup
	}
	return m
}

// Commit 把 dir 重写为 entries 的顺序，返回备份目录路径等信息。
//
// 约束：
// - entries 必须覆盖调用方希望保留在 dir 中的全部文件；未列出的文件在提交后只存在于备份目录
// - 运行到终止状态才返回；ctx 只在校验阶段被检查，暂存开始后不可取消
// - 失败一律返回 *Error；除 KindUnrecoverable 外，返回时 dir 的内容与调用前一致
// - dir 为符号链接时改写其指向的真实目录；校验通过后到返回前持有该目录的 flock（unix）
func (c *Committer) Commit(ctx context.Context, dir string, entries []domain.FileEntry) (res Result, err error) {
	started := c.clock.Now()
	t := &txn{
		c:     c,
		id:    uuid.NewString(),
		state: StateIdle,
	}
	t.log = c.log.WithFields(logrus.Fields{"commit_id": t.id, "dir": dir})

	defer func() {
		if err != nil {
			t.to(StateFailed)
			fields := logrus.Fields{"kind": KindOf(err).String()}
			if ce, ok := AsError(err); ok {
				ce.ID = t.id
				fields["step"] = string(ce.Step)
			}
			if KindOf(err) == KindUnrecoverable {
				t.log.WithFields(fields).Error(err.Error())
			} else {
				t.log.WithFields(fields).Warn(err.Error())
			}
		}
		c.obs.OnDone(res, err, c.clock.Since(started))
	}()

	t.to(StateValidating)

	if strings.TrimSpace(dir) == "" {
		return Result{}, &Error{Kind: KindValidation, Step: StepValidate, Path: dir, Err: fmt.Errorf("%w：%q", ErrDirMissing, dir)}
	}
	abs, err := ResolveDir(dir)
	if err != nil {
		return Result{}, &Error{Kind: KindValidation, Step: StepValidate, Path: dir, Err: err}
	}
	t.dir = abs
	t.parent = filepath.Dir(abs)

	release, ok := acquire(abs)
	if !ok {
		return Result{}, &Error{Kind: KindValidation, Step: StepAcquire, Path: abs, Paths: t.paths(), Err: ErrInFlight}
	}
	defer release()
	defer func() {
		if t.unlock != nil {
			_ = t.unlock()
		}
	}()

	if err := c.validate(ctx, t, entries, started); err != nil {
		return Result{}, err
	}

	t.to(StateStaging)
	bytes, err := c.stage(t, entries)
	if err != nil {
		return Result{}, err
	}

	t.to(StateSwapping)
	if err := c.swap(t); err != nil {
		return Result{}, err
	}

	t.to(StateCommitted)
	_ = c.ops.syncDir(t.parent)

	res = Result{
		ID:          t.id,
		Dir:         t.dir,
		BackupDir:   t.backup,
		StagingDir:  t.staging,
		Entries:     make([]domain.FileEntry, 0, len(entries)),
		BytesCopied: bytes,
		StartedAt:   started,
		FinishedAt:  c.clock.Now(),
	}
	for _, e := range entries {
		res.Entries = append(res.Entries, e.Rebased(t.dir))
	}
	t.log.WithFields(logrus.Fields{"backup": t.backup, "files": len(entries), "bytes": bytes}).Info("提交完成")
	return res, nil
}

func (c *Committer) validate(ctx context.Context, t *txn, entries []domain.FileEntry, now time.Time) error {
	verr := func(err error, path string) error {
		return &Error{Kind: KindValidation, Step: StepValidate, Path: path, Paths: t.paths(), Err: err}
	}

	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return verr(err, t.dir)
		}
	}
	if t.parent == t.dir {
		return verr(ErrRootDir, t.dir)
	}

	fi, err := c.ops.stat(t.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return verr(ErrDirMissing, t.dir)
		}
		return verr(err, t.dir)
	}
	if !fi.IsDir() {
		return verr(ErrNotDirectory, t.dir)
	}
	t.perm = fi.Mode().Perm()

	// 跨进程互斥：另一个进程正在重写同一目录时立即拒绝。
	unlock, err := c.ops.lockDir(t.dir)
	if err != nil {
		if errors.Is(err, fsx.ErrLocked) {
			return &Error{Kind: KindValidation, Step: StepAcquire, Path: t.dir, Paths: t.paths(), Err: fmt.Errorf("%w（另一个进程）", ErrInFlight)}
		}
		return verr(err, t.dir)
	}
	t.unlock = unlock

	if len(entries) == 0 {
		return verr(ErrEmptySequence, t.dir)
	}
	for _, e := range entries {
		if !validName(e.Name) {
			return verr(fmt.Errorf("%w：%q", ErrInvalidName, e.Name), e.Path)
		}
	}

	staging, backup := siblings(t.dir, c.prefix, now)
	for _, p := range []string{staging, backup} {
		exists, err := c.ops.exists(p)
		if err != nil {
			return verr(err, p)
		}
		if exists {
			t.staging, t.backup = staging, backup
			return verr(fmt.Errorf("%w：%q（可能是上次中断遗留，请确认后手动清理）", ErrPathCollision, p), p)
		}
	}
	t.staging, t.backup = staging, backup
	return nil
}

// validName 要求 name 是单层文件名：非空、不含分隔符、不是 "." / ".."。
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		return false
	}
	return filepath.Base(name) == name
}

func (c *Committer) stage(t *txn, entries []domain.FileEntry) (int64, error) {
	if err := c.ops.mkdir(t.staging, t.perm|0o700); err != nil {
		return 0, &Error{Kind: KindFilesystem, Step: StepMkdirStaging, Path: t.staging, Paths: t.paths(), Err: err}
	}

	fail := func(kind Kind, err error, src, dst string) error {
		e := &Error{Kind: kind, Step: StepCopy, Path: src, Paths: t.paths(), Err: err}
		e.Paths[PathSource] = src
		if dst != "" {
			e.Paths[PathTarget] = dst
		}
		e.StagingLeft = c.discardStaging(t)
		return e
	}

	var total int64
	for i, e := range entries {
		src := e.Path
		dst := filepath.Join(t.staging, e.Name)

		fi, err := c.ops.stat(src)
		if err != nil {
			if os.IsNotExist(err) || strings.TrimSpace(src) == "" {
				return 0, fail(KindIntegrity, fmt.Errorf("%w：%q", ErrMissingSource, src), src, "")
			}
			return 0, fail(KindFilesystem, err, src, "")
		}
		if !fi.Mode().IsRegular() {
			return 0, fail(KindIntegrity, fmt.Errorf("%w：%q", ErrNotRegular, src), src, "")
		}

		// 重名：绝不静默丢弃或改名，整个提交失败。
		exists, err := c.ops.exists(dst)
		if err != nil {
			return 0, fail(KindFilesystem, err, src, dst)
		}
		if exists {
			return 0, fail(KindIntegrity, fmt.Errorf("%w：%q（同名文件不能共存）", ErrDuplicateName, e.Name), src, dst)
		}

		n, err := c.ops.copyFile(src, dst)
		if err != nil {
			switch {
			case errors.Is(err, os.ErrExist):
				return 0, fail(KindIntegrity, fmt.Errorf("%w：%q：%v", ErrDuplicateName, e.Name, err), src, dst)
			case os.IsNotExist(err):
				return 0, fail(KindIntegrity, fmt.Errorf("%w：%q：%v", ErrMissingSource, src, err), src, dst)
			case fsx.IsPathTypeConflict(err):
				return 0, fail(KindIntegrity, fmt.Errorf("%w：%v", ErrNotRegular, err), src, dst)
			default:
				return 0, fail(KindFilesystem, fmt.Errorf("复制失败：%w", err), src, dst)
			}
		}
		total += n
		c.obs.OnFileCopied(i, len(entries), e, n)
	}

	// 目录项落盘：best-effort（不同平台/文件系统的语义差异很大）。
	if err := c.ops.syncDir(t.staging); err != nil {
		t.log.WithError(err).Debug("暂存目录 fsync 失败（忽略）")
	}
	return total, nil
}

func (c *Committer) swap(t *txn) error {
	if err := c.ops.rename(t.dir, t.backup); err != nil {
		e := &Error{Kind: KindFilesystem, Step: StepBackupRename, Path: t.dir, Paths: t.paths(), Err: fmt.Errorf("原目录重命名为备份失败：%w", err)}
		e.StagingLeft = c.discardStaging(t)
		return e
	}

	if err := c.ops.rename(t.staging, t.dir); err != nil {
		t.to(StateRollingBack)
		activateErr := fmt.Errorf("启用新目录失败：%w", err)

		if rbErr := c.ops.rename(t.backup, t.dir); rbErr != nil {
			e := &Error{
				Kind:        KindUnrecoverable,
				Step:        StepRollback,
				Path:        t.backup,
				Paths:       t.paths(),
				Err:         activateErr,
				RollbackErr: rbErr,
			}
			e.StagingLeft = c.discardStaging(t)
			return e
		}

		e := &Error{Kind: KindFilesystem, Step: StepActivateRename, Path: t.staging, Paths: t.paths(), RolledBack: true, Err: activateErr}
		e.StagingLeft = c.discardStaging(t)
		return e
	}
	return nil
}

// discardStaging 删除暂存目录；失败时返回其路径（写入 Error.StagingLeft），成功返回空串。
func (c *Committer) discardStaging(t *txn) string {
	if t.staging == "" {
		return ""
	}
	if err := c.ops.removeAll(t.staging); err != nil {
		t.log.WithError(err).WithField("staging", t.staging).Error("清理暂存目录失败")
		return t.staging
	}
	return ""
}
