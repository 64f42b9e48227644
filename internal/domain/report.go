package domain

import (
	"encoding/json"
	"time"
)

const (
	StatusCommitted = "committed"
	StatusFailed    = "failed"
	StatusDryRun    = "dry_run"
)

const (
	ErrCodeValidation    = "validation_failed"
	ErrCodeIntegrity     = "integrity_failed"
	ErrCodeFilesystem    = "filesystem_failed"
	ErrCodeUnrecoverable = "unrecoverable"
	ErrCodeInFlight      = "commit_in_flight"
	ErrCodeScanFailed    = "scan_failed"
	ErrCodeReorderFailed = "reorder_failed"
	ErrCodeConfigInvalid = "config_invalid"
)

// CommitReport 是对外稳定输出（stdout JSON）的结构。
//
// 约束：
// - 失败时 Paths 必须包含足以人工恢复的路径（original/backup/staging）
// - Order 是最终请求的播放顺序（文件名），dry-run 也输出
type CommitReport struct {
	CommitID string `json:"commit_id"`
	Dir      string `json:"dir"`
	Status   string `json:"status"`

	BackupDir string `json:"backup_dir"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Files       int   `json:"files"`
	BytesCopied int64 `json:"bytes_copied"`

	Order []string `json:"order"`
	// Changes 是相对扫描时顺序发生位置变化的条目（按新位置排列）。
	Changes []PositionChange `json:"changes"`

	ErrorCode  string            `json:"error_code"`
	ErrorStep  string            `json:"error_step"`
	ErrorMsg   string            `json:"error_msg"`
	RolledBack bool              `json:"rolled_back"`
	Paths      map[string]string `json:"paths"`

	// Unlisted 是目录内未参与排序的条目；提交后它们只保留在备份目录中。
	Unlisted []string `json:"unlisted"`
}

// PositionChange 描述一个文件在播放顺序中的位置变化（从 0 开始计数）。
type PositionChange struct {
	Name string `json:"name"`
	From int    `json:"from"`
	To   int    `json:"to"`
}

// Finalize 做两件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) nil 切片/映射规范化为空值（JSON 输出 [] / {} 而不是 null）
func (r *CommitReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()
	if r.Order == nil {
		r.Order = []string{}
	}
	if r.Changes == nil {
		r.Changes = []PositionChange{}
	}
	if r.Unlisted == nil {
		r.Unlisted = []string{}
	}
	if r.Paths == nil {
		r.Paths = map[string]string{}
	}
}

// OK 报告是否为非失败结果（committed 或 dry_run）。
func (r CommitReport) OK() bool {
	return r.Status != StatusFailed
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
func (r CommitReport) MarshalJSON() ([]byte, error) {
	type Alias CommitReport
	return json.Marshal(Alias(r))
}
