package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
)

const (
	logSuffix = "%Y%m%d-%H.log"

	defaultMaxAge       = 7 * 24 * time.Hour
	defaultRotationTime = time.Hour
)

func newRotatelogHook(logDir string, maxAge, rotationTime time.Duration) (logrus.Hook, func() error, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("创建日志目录失败：%w", err)
	}
	if maxAge <= 0 {
		maxAge = defaultMaxAge
	}
	if rotationTime <= 0 {
		rotationTime = defaultRotationTime
	}

	writer, err := rotatelogs.New(
		filepath.Join(logDir, "maiasaura-"+logSuffix),
		rotatelogs.WithMaxAge(maxAge),
		rotatelogs.WithRotationTime(rotationTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("创建滚动日志失败：%w", err)
	}

	writeMap := lfshook.WriterMap{
		logrus.InfoLevel:  writer,
		logrus.FatalLevel: writer,
		logrus.DebugLevel: writer,
		logrus.WarnLevel:  writer,
		logrus.ErrorLevel: writer,
		logrus.PanicLevel: writer,
	}

	formatter := &CommonLogFormatter{
		pid: os.Getpid(),
	}
	return lfshook.NewHook(writeMap, formatter), writer.Close, nil
}
