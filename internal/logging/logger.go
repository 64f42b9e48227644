package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Options 描述日志的生效配置（由 config 层合并后传入）。
type Options struct {
	Level string
	// Dir 为空时只写 Out；非空时额外按小时滚动写文件。
	Dir          string
	MaxAge       time.Duration
	RotationTime time.Duration
	// Out 默认 os.Stderr（stdout 留给报告与列表输出）。
	Out io.Writer
}

// New 创建 logger。返回的 closer 用于关闭滚动日志文件；无文件时为 no-op。
func New(opts Options) (*logrus.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	l := logrus.New()
	l.Out = opts.Out
	if l.Out == nil {
		l.Out = os.Stderr
	}
	l.Formatter = &CommonLogFormatter{pid: os.Getpid()}
	l.Level = level
	l.SetReportCaller(true)

	closer := func() error { return nil }
	if strings.TrimSpace(opts.Dir) != "" {
		hook, c, err := newRotatelogHook(opts.Dir, opts.MaxAge, opts.RotationTime)
		if err != nil {
			return nil, nil, err
		}
		l.Hooks.Add(hook)
		closer = c
	}
	return l, closer, nil
}

// Discard 返回一个丢弃全部输出的 logger（测试与库内默认值使用）。
func Discard() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

// ParseLevel 在 logrus 的解析之上允许空串（= info）。
func ParseLevel(s string) (logrus.Level, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return logrus.InfoLevel, nil
	}
	lvl, err := logrus.ParseLevel(s)
	if err != nil {
		return logrus.InfoLevel, fmt.Errorf("未知日志级别 %q", s)
	}
	return lvl, nil
}

// CommonLogFormatter 输出单行日志：时间 pid 级别 消息 调用点 [字段]。
type CommonLogFormatter struct {
	pid int
}

func (f *CommonLogFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var caller string
	if e.HasCaller() {
		callerPath := path.Join(path.Base(path.Dir(e.Caller.File)), path.Base(e.Caller.File))
		caller = fmt.Sprintf("%s:%d", callerPath, e.Caller.Line)
	}
	timestamp := e.Time.Format("2006-01-02 15:04:05.000000") + " "
	ret := new(bytes.Buffer)
	fmt.Fprintf(ret, "%v%d %v %v", timestamp, f.pid, strings.ToUpper(e.Level.String()), e.Message)
	if caller != "" {
		ret.WriteString(" " + caller)
	}

	if len(e.Data) != 0 {
		ret.WriteString(" " + fmt.Sprint(e.Data))
	}

	ret.WriteString("\n")
	return ret.Bytes(), nil
}
