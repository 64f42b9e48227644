package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/John-Robertt/maiasaura/internal/commit"
	"github.com/John-Robertt/maiasaura/internal/domain"
)

const namespacePrefix = "maiasaura_"

// Collector 统计提交结果；实现 commit.Observer，挂到 Committer 上即可。
//
// 它只是一次进程内的计数器集合：CLI 每次运行结束时写成 node-exporter
// textfile（*.prom），由外部 collector 采集。
type Collector struct {
	registry *prometheus.Registry

	commits     *prometheus.CounterVec
	transitions *prometheus.CounterVec
	files       prometheus.Counter
	bytes       prometheus.Counter
	duration    *prometheus.HistogramVec
	lastSuccess prometheus.Gauge
}

var _ commit.Observer = (*Collector)(nil)

func New() *Collector {
	registry := prometheus.NewRegistry()
	registerer := prometheus.WrapRegistererWithPrefix(namespacePrefix, registry)

	c := &Collector{
		registry: registry,
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "commits_total",
			Help: "Commits by outcome (committed or error code).",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "commit_state_transitions_total",
			Help: "Commit state machine transitions by target state.",
		}, []string{"state"}),
		files: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "files_copied_total",
			Help: "Files copied into staging directories.",
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bytes_copied_total",
			Help: "Bytes copied into staging directories.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "commit_duration_seconds",
			Help:    "Wall time of a commit from validation to terminal state.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"outcome"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "last_success_timestamp_seconds",
			Help: "Unix time of the last successful commit.",
		}),
	}

	registerer.MustRegister(c.commits, c.transitions, c.files, c.bytes, c.duration, c.lastSuccess)
	return c
}

// Registry 暴露底层 registry（测试与自定义导出使用）。
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) OnState(_ string, _, to commit.State) {
	c.transitions.WithLabelValues(to.String()).Inc()
}

func (c *Collector) OnFileCopied(_, _ int, _ domain.FileEntry, bytes int64) {
	c.files.Inc()
	c.bytes.Add(float64(bytes))
}

func (c *Collector) OnDone(res commit.Result, err error, dur time.Duration) {
	outcome := Outcome(err)
	c.commits.WithLabelValues(outcome).Inc()
	c.duration.WithLabelValues(outcome).Observe(dur.Seconds())
	if err == nil {
		finished := res.FinishedAt
		if finished.IsZero() {
			finished = time.Now()
		}
		c.lastSuccess.Set(float64(finished.Unix()))
	}
}

// Outcome 把提交结果映射为 outcome 标签值：成功为 committed，失败为 error_code。
func Outcome(err error) string {
	if err == nil {
		return domain.StatusCommitted
	}
	if ce, ok := commit.AsError(err); ok && ce.Code() != "" {
		return ce.Code()
	}
	return "unknown"
}

// WriteTextfile 以 node-exporter textfile 格式写出全部指标（原子替换目标文件）。
func (c *Collector) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建指标目录失败：%w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("写入指标文件失败：%w", err)
	}
	return nil
}
