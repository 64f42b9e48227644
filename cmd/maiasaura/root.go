package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/maiasaura/internal/commit"
	"github.com/John-Robertt/maiasaura/internal/config"
	"github.com/John-Robertt/maiasaura/internal/logging"
	"github.com/John-Robertt/maiasaura/internal/metrics"
)

// app 是一次进程运行的共享状态：PersistentPreRunE 装配，子命令使用。
type app struct {
	stdout io.Writer
	stderr io.Writer

	cwd      string
	eff      config.EffectiveConfig
	log      *logrus.Logger
	closeLog func() error
	metrics  *metrics.Collector
}

type globalFlags struct {
	configFile  string
	prefix      string
	exts        []string
	logLevel    string
	logDir      string
	metricsFile string
}

func newRootCommand(a *app) *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "maiasaura",
		Short: "maiasaura 按指定顺序重写音频目录，让按目录顺序播放的设备照此播放",
		Long: `maiasaura 把目录中的音频文件按新顺序复制进同级暂存目录，再用两次 rename 与原目录交换。
原目录保留为 .<prefix>_backup_<时间戳>；任何一步失败都会回滚，原目录保持不变。`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, args, g)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.configFile, "config", "", "配置文件路径（YAML；默认尝试 <dir>/maiasaura.yaml 与 ./maiasaura.yaml）")
	pf.StringVar(&g.prefix, "prefix", "", "暂存/备份目录名前缀（默认 maiasaura）")
	pf.StringSliceVar(&g.exts, "ext", nil, "参与排序的扩展名，逗号分隔（默认 .mp3,.wav,.m4a,.aac,.ogg,.flac）")
	pf.StringVar(&g.logLevel, "log-level", "", "日志级别：error|warn|info|debug")
	pf.StringVar(&g.logDir, "log-dir", "", "额外写入按小时滚动的日志文件的目录")
	pf.StringVar(&g.metricsFile, "metrics-file", "", "提交后写出 Prometheus textfile 指标的路径")

	rootCmd.AddCommand(newListCommand(a))
	rootCmd.AddCommand(newApplyCommand(a))
	rootCmd.AddCommand(newTUICommand(a))
	rootCmd.AddCommand(newBackupsCommand(a))

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, args []string, g *globalFlags) error {
	cwd, err := os.Getwd()
	if err != nil {
		return &exitError{code: exitFailure, err: fmt.Errorf("读取当前目录失败：%w", err)}
	}
	a.cwd = cwd

	var path string
	if len(args) > 0 {
		path = args[0]
	}
	flags := cmd.Flags()
	eff, err := config.LoadEffective(cwd, config.CLIArgs{
		ConfigFile:     g.configFile,
		Path:           path,
		Prefix:         g.prefix,
		PrefixSet:      flags.Changed("prefix"),
		Extensions:     g.exts,
		ExtensionsSet:  flags.Changed("ext"),
		LogLevel:       g.logLevel,
		LogLevelSet:    flags.Changed("log-level"),
		LogDir:         g.logDir,
		LogDirSet:      flags.Changed("log-dir"),
		MetricsFile:    g.metricsFile,
		MetricsFileSet: flags.Changed("metrics-file"),
	})
	if err != nil {
		if cmd.Name() == "apply" {
			// apply 的输出契约是 CommitReport：配置错误也以报告形式给出。
			dir := cwd
			if path != "" {
				dir, _ = filepath.Abs(path)
			}
			emitReport(a.stdout, a.stderr, reportForConfigError(dir, err))
			return &exitError{code: exitUsage}
		}
		return &exitError{code: exitUsage, err: err}
	}
	a.eff = eff

	l, closer, err := logging.New(logging.Options{
		Level:        eff.LogLevel,
		Dir:          eff.LogDir,
		MaxAge:       eff.LogMaxAge,
		RotationTime: eff.LogRotationTime,
		Out:          a.stderr,
	})
	if err != nil {
		return &exitError{code: exitFailure, err: fmt.Errorf("初始化日志失败：%w", err)}
	}
	a.log = l
	a.closeLog = closer
	a.metrics = metrics.New()

	l.WithFields(logrus.Fields{
		"path":   eff.Path,
		"config": eff.ConfigFile,
		"prefix": eff.Prefix,
	}).Debug("配置已生效")
	return nil
}

func (a *app) committer() *commit.Committer {
	return commit.New(commit.Options{
		Prefix:   a.eff.Prefix,
		Logger:   a.log,
		Observer: a.metrics,
	})
}

// flushMetrics 写出指标文件；失败只记日志，不影响退出码。
func (a *app) flushMetrics() {
	if a.metrics == nil || a.eff.MetricsFile == "" {
		return
	}
	if err := a.metrics.WriteTextfile(a.eff.MetricsFile); err != nil {
		a.log.WithError(err).WithField("path", a.eff.MetricsFile).Warn("写入指标文件失败")
	}
}

func (a *app) close() {
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}
