package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/John-Robertt/maiasaura/internal/scan"
)

const (
	// ErrCodeNotFound 表示 --config 显式指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// FileName 是目录内/工作目录内自动发现的配置文件名。
	FileName = "maiasaura.yaml"
	// EnvPrefix：环境变量形如 MAIASAURA_LOG_LEVEL。
	EnvPrefix = "MAIASAURA"

	DefaultPrefix          = "maiasaura"
	DefaultLogLevel        = "info"
	DefaultLogMaxAge       = 7 * 24 * time.Hour
	DefaultLogRotationTime = time.Hour
)

// CLIArgs 是 CLI 暴露的入口，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --log-level= 必须能覆盖配置文件里的 debug。
type CLIArgs struct {
	// ConfigFile 非空时必须存在（不再做自动发现）。
	ConfigFile string

	Path string

	Prefix    string
	PrefixSet bool

	Extensions    []string
	ExtensionsSet bool

	LogLevel    string
	LogLevelSet bool

	LogDir    string
	LogDirSet bool

	MetricsFile    string
	MetricsFileSet bool
}

// FileConfig 对应 maiasaura.yaml 的解析结构（同时承载环境变量覆盖后的值）。
type FileConfig struct {
	Path            string        `mapstructure:"path"`
	Prefix          string        `mapstructure:"prefix"`
	Extensions      []string      `mapstructure:"extensions"`
	LogLevel        string        `mapstructure:"log_level"`
	LogDir          string        `mapstructure:"log_dir"`
	LogMaxAge       time.Duration `mapstructure:"log_max_age"`
	LogRotationTime time.Duration `mapstructure:"log_rotation_time"`
	MetricsFile     string        `mapstructure:"metrics_file"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// Path 是要重排的目录（clean + absolute）。
	Path string
	// ConfigFile 是实际读取的配置文件；未读取任何文件时为空。
	ConfigFile string

	Prefix     string
	Extensions []string

	LogLevel        string
	LogDir          string
	LogMaxAge       time.Duration
	LogRotationTime time.Duration

	MetricsFile string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，叠加环境变量，再与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) --config 给出：读取该文件（必须存在）
// 2) CLI 给出 path：尝试读取 <path>/maiasaura.yaml（可选）
// 3) 否则：尝试读取 <cwd>/maiasaura.yaml（可选）
//
// 覆盖优先级（固定）：CLI > 环境变量 MAIASAURA_* > 配置文件 > 默认值。
// path 最终兜底为 cwd；配置文件中的相对路径以配置文件所在目录为基准。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath  string
		required bool
	)
	switch {
	case strings.TrimSpace(cli.ConfigFile) != "":
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigFile)
		required = true
	case strings.TrimSpace(cli.Path) != "":
		cfgPath = filepath.Join(absCleanFrom(cwdAbs, cli.Path), FileName)
	default:
		cfgPath = filepath.Join(cwdAbs, FileName)
	}

	v, exists, err := initViper(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if required && !exists {
		return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}

	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("unmarshal config: %w", err)}
	}

	// 配置文件中的相对路径以文件所在目录为基准；未读取文件时退化为 cwd。
	fileBase := cwdAbs
	if exists {
		fileBase = filepath.Dir(cfgPath)
	} else {
		cfgPath = ""
	}
	return merge(cwdAbs, fileBase, cli, fc, cfgPath)
}

// initViper 按 grover 的方式装配 viper：YAML + 环境变量前缀 + 默认值。
// 文件不存在不算错误（由调用方根据 required 决定）。
func initViper(cfgPath string) (*viper.Viper, bool, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	// AutomaticEnv 只对“已知 key”生效，Unmarshal 依赖这些默认值登记全部字段。
	v.SetDefault("path", "")
	v.SetDefault("prefix", DefaultPrefix)
	v.SetDefault("extensions", scan.DefaultExtensions)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_dir", "")
	v.SetDefault("log_max_age", DefaultLogMaxAge)
	v.SetDefault("log_rotation_time", DefaultLogRotationTime)
	v.SetDefault("metrics_file", "")

	fi, err := os.Stat(cfgPath)
	if err != nil {
		if os.IsNotExist(err) {
			return v, false, nil
		}
		return nil, false, err
	}
	if fi.IsDir() {
		return nil, true, fmt.Errorf("配置路径是目录")
	}

	v.SetConfigFile(cfgPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, true, fmt.Errorf("read config: %w", err)
	}
	return v, true, nil
}

func merge(cwdAbs, fileBase string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(err error) (EffectiveConfig, error) {
		p := cfgPath
		if p == "" {
			p = cwdAbs
		}
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: p, Err: err}
	}

	// path：CLI > config > cwd
	path := cwdAbs
	if strings.TrimSpace(cli.Path) != "" {
		path = absCleanFrom(cwdAbs, cli.Path)
	} else if strings.TrimSpace(fc.Path) != "" {
		path = absCleanFrom(fileBase, fc.Path)
	}

	prefix := strings.TrimSpace(fc.Prefix)
	if cli.PrefixSet {
		prefix = strings.TrimSpace(cli.Prefix)
	}
	if err := validatePrefix(prefix); err != nil {
		return invalid(err)
	}

	exts := fc.Extensions
	if cli.ExtensionsSet {
		exts = cli.Extensions
	}
	exts = scan.NormalizeExtensions(exts)
	if len(exts) == 0 {
		return invalid(fmt.Errorf("extensions 不能为空"))
	}

	level := fc.LogLevel
	if cli.LogLevelSet {
		level = cli.LogLevel
	}
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		level = DefaultLogLevel
	}
	if err := validateLogLevel(level); err != nil {
		return invalid(err)
	}

	logDir := absCleanFrom(fileBase, fc.LogDir)
	if cli.LogDirSet {
		logDir = absCleanFrom(cwdAbs, cli.LogDir)
	}

	metricsFile := absCleanFrom(fileBase, fc.MetricsFile)
	if cli.MetricsFileSet {
		metricsFile = absCleanFrom(cwdAbs, cli.MetricsFile)
	}

	maxAge := fc.LogMaxAge
	if maxAge <= 0 {
		maxAge = DefaultLogMaxAge
	}
	rotation := fc.LogRotationTime
	if rotation <= 0 {
		rotation = DefaultLogRotationTime
	}
	if rotation > maxAge {
		return invalid(fmt.Errorf("log_rotation_time（%s）不能大于 log_max_age（%s）", rotation, maxAge))
	}

	return EffectiveConfig{
		Path:            path,
		ConfigFile:      cfgPath,
		Prefix:          prefix,
		Extensions:      exts,
		LogLevel:        level,
		LogDir:          logDir,
		LogMaxAge:       maxAge,
		LogRotationTime: rotation,
		MetricsFile:     metricsFile,
	}, nil
}

// validatePrefix：前缀直接拼进同级目录名，不能为空，也不能含路径分隔符或空白。
func validatePrefix(p string) error {
	if p == "" {
		return fmt.Errorf("prefix 不能为空")
	}
	if strings.ContainsAny(p, `/\ `+"\t") || p == "." || p == ".." {
		return fmt.Errorf("prefix 只能是单个目录名片段，实际是 %q", p)
	}
	return nil
}

func validateLogLevel(l string) error {
	switch l {
	case "trace", "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("log_level 只能是 trace/debug/info/warn/error，实际是 %q", l)
	}
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 为空：返回空串
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}
