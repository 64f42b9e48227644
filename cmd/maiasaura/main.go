package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/John-Robertt/maiasaura/internal/config"
	"github.com/John-Robertt/maiasaura/internal/domain"
	"github.com/John-Robertt/maiasaura/internal/infra/fsx"
	"github.com/John-Robertt/maiasaura/internal/notify"
)

const (
	exitOK            = 0
	exitFailure       = 1
	exitUsage         = 2
	exitUnrecoverable = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// exitError 携带进程退出码；err 为空表示结果已经输出过，只需要退出码。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	defer a.close()

	root := newRootCommand(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			notify.NewPrinter(stderr).Error(ee.err.Error(), nil)
		}
		return ee.code
	}

	// 其余错误来自 cobra 的参数解析。
	fmt.Fprintf(stderr, "参数错误：%v\n使用 \"maiasaura --help\" 查看用法。\n", err)
	return exitUsage
}

// reportExitCode：0 成功（含 dry-run），2 输入有误，3 需要人工恢复，其余失败为 1。
func reportExitCode(rr domain.CommitReport) int {
	if rr.Status != domain.StatusFailed {
		return exitOK
	}
	switch rr.ErrorCode {
	case domain.ErrCodeUnrecoverable:
		return exitUnrecoverable
	case domain.ErrCodeReorderFailed, config.ErrCodeInvalid, config.ErrCodeNotFound:
		return exitUsage
	default:
		return exitFailure
	}
}

func emitReport(stdout, stderr io.Writer, rr domain.CommitReport) {
	if isTTY(stdout) {
		notify.NewPrinter(stdout).Report(rr)
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 CommitReport JSON（日志/摘要走 stderr）。
	_ = notify.EmitJSON(stdout, rr)
	fmt.Fprintf(stderr, "完成：status=%s files=%d changed=%d\n", rr.Status, rr.Files, len(rr.Changes))
}

func reportForConfigError(dir string, err error) domain.CommitReport {
	now := time.Now().UTC()
	rr := domain.CommitReport{
		Dir:        dir,
		Status:     domain.StatusFailed,
		ErrorCode:  config.Code(err),
		ErrorMsg:   err.Error(),
		StartedAt:  now,
		FinishedAt: now,
	}
	rr.Finalize()
	return rr
}

func writeReportFile(p string, rr domain.CommitReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomicReplace(filepath.Dir(p), filepath.Base(p), b)
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func pickProgressWriter(stdout, stderr io.Writer) (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(stderr) {
		return stderr, true
	}
	if isTTY(stdout) {
		return stdout, true
	}
	return nil, false
}
