package run

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/John-Robertt/maiasaura/internal/app/planner"
	"github.com/John-Robertt/maiasaura/internal/app/session"
	"github.com/John-Robertt/maiasaura/internal/commit"
	"github.com/John-Robertt/maiasaura/internal/config"
	"github.com/John-Robertt/maiasaura/internal/domain"
	"github.com/John-Robertt/maiasaura/internal/infra/fsx"
)

// Request 描述一次 apply：先应用顺序文件，再依次应用 moves。
type Request struct {
	OrderFile string
	Moves     []string
	DryRun    bool
}

// Deps 是执行所需的外部依赖；零值可用。
type Deps struct {
	Logger logrus.FieldLogger
	Clock  clockwork.Clock
	// Observers 额外挂到 Committer 上（例如 metrics.Collector）。
	Observers []commit.Observer
}

// Execute 执行一次 apply（dry-run/commit），并返回对外稳定的 CommitReport。
func Execute(ctx context.Context, eff config.EffectiveConfig, req Request, deps Deps) domain.CommitReport {
	return ExecuteWithObserver(ctx, eff, req, deps, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息（由上层决定是否启用）。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, req Request, deps Deps, obs Observer) domain.CommitReport {
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	started := clock.Now()
	if obs != nil {
		obs.OnStart(eff, req)
	}

	rr := domain.CommitReport{
		Dir:       eff.Path,
		StartedAt: started,
	}
	finish := func() domain.CommitReport {
		rr.FinishedAt = clock.Now()
		rr.Finalize()
		return rr
	}

	observers := append([]commit.Observer(nil), deps.Observers...)
	if obs != nil {
		observers = append(observers, obs)
	}
	committer := commit.New(commit.Options{
		Prefix:   eff.Prefix,
		Clock:    clock,
		Logger:   deps.Logger,
		Observer: commit.Observers(observers...),
	})

	scanStarted := clock.Now()
	s, err := session.Open(eff.Path, session.Options{Extensions: eff.Extensions, Committer: committer})
	if err != nil {
		fail(&rr, domain.ErrCodeScanFailed, fmt.Sprintf("扫描失败：%v", err))
		return finish()
	}
	rr.Dir = s.Dir()
	if unlisted, err := s.Unlisted(); err == nil {
		rr.Unlisted = unlisted
	}
	if obs != nil {
		obs.OnPhaseDone("scan", map[string]any{
			"files":    s.Len(),
			"unlisted": len(rr.Unlisted),
		}, clock.Since(scanStarted))
	}

	reorderStarted := clock.Now()
	scanned := s.Names()
	if err := reorder(s, req); err != nil {
		rr.Order = s.Names()
		fail(&rr, domain.ErrCodeReorderFailed, err.Error())
		return finish()
	}
	rr.Order = s.Names()
	rr.Files = s.Len()
	rr.Changes = planner.Plan(scanned, rr.Order)
	if obs != nil {
		obs.OnPhaseDone("reorder", map[string]any{
			"moves":      len(req.Moves),
			"order_file": req.OrderFile != "",
			"changed":    len(rr.Changes),
		}, clock.Since(reorderStarted))
	}

	if req.DryRun {
		rr.Status = domain.StatusDryRun
		return finish()
	}

	res, err := s.Commit(ctx)
	if err != nil {
		fillCommitError(&rr, err)
		return finish()
	}
	rr.Status = domain.StatusCommitted
	rr.CommitID = res.ID
	rr.BackupDir = res.BackupDir
	rr.BytesCopied = res.BytesCopied
	rr.Paths = map[string]string{
		commit.PathOriginal: res.Dir,
		commit.PathBackup:   res.BackupDir,
	}
	return finish()
}

func reorder(s *session.Session, req Request) error {
	if strings.TrimSpace(req.OrderFile) != "" {
		names, err := session.ReadOrderFile(req.OrderFile)
		if err != nil {
			return err
		}
		if err := s.ApplyOrder(names); err != nil {
			return fmt.Errorf("应用顺序文件 %q 失败：%w", req.OrderFile, err)
		}
	}
	if len(req.Moves) > 0 {
		specs, err := session.ParseMoveSpecs(req.Moves)
		if err != nil {
			return err
		}
		if err := s.ApplyMoves(specs); err != nil {
			return err
		}
	}
	return nil
}

func fail(rr *domain.CommitReport, code, msg string) {
	rr.Status = domain.StatusFailed
	rr.ErrorCode = code
	rr.ErrorMsg = msg
}

func fillCommitError(rr *domain.CommitReport, err error) {
	rr.Status = domain.StatusFailed

	ce, ok := commit.AsError(err)
	if !ok {
		rr.ErrorCode = domain.ErrCodeFilesystem
		rr.ErrorMsg = err.Error()
		return
	}
	rr.CommitID = ce.ID
	rr.ErrorCode = ce.Code()
	rr.ErrorStep = string(ce.Step)
	rr.RolledBack = ce.RolledBack
	rr.Paths = make(map[string]string, len(ce.Paths))
	for k, v := range ce.Paths {
		rr.Paths[k] = v
	}
	rr.ErrorMsg = humanizeCommitError(ce)
}

// humanizeCommitError 在原始错误之后补一句可操作的提示（最常见的几类问题）。
func humanizeCommitError(ce *commit.Error) string {
	msg := ce.Error()
	switch {
	case ce.Kind == commit.KindUnrecoverable:
		return fmt.Sprintf("%s。恢复方法：mv %q %q", msg, ce.Paths[commit.PathBackup], ce.Paths[commit.PathOriginal])
	case errors.Is(ce, commit.ErrInFlight):
		return msg + "。请等待当前提交结束后重试。"
	case errors.Is(ce, commit.ErrPathCollision):
		return msg + "。可用 `maiasaura backups` 查看遗留目录。"
	case fsx.IsCrossDevice(ce):
		return msg + "。暂存/备份目录必须与原目录位于同一文件系统。"
	case errors.Is(ce, os.ErrPermission):
		return msg + "。请检查原目录及其父目录的写权限。"
	default:
		return msg
	}
}
