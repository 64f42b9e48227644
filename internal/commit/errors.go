package commit

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/John-Robertt/maiasaura/internal/domain"
)

// Kind 是提交失败的分类。上层只需按 Kind 决定如何呈现/退出码，不必解析错误文本。
type Kind int

const (
	KindNone Kind = iota
	// KindValidation：任何文件系统变更之前发现的问题；调用方修正输入后可直接重试。
	KindValidation
	// KindIntegrity：暂存阶段发现源文件缺失或重名；暂存目录已自动删除。
	KindIntegrity
	// KindFilesystem：复制/重命名的系统调用失败；已自动恢复（删除暂存或回滚）。
	KindFilesystem
	// KindUnrecoverable：回滚本身失败，原目录仍停留在备份名下，需要人工处理。
	KindUnrecoverable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindIntegrity:
		return "integrity"
	case KindFilesystem:
		return "filesystem"
	case KindUnrecoverable:
		return "unrecoverable"
	default:
		return "none"
	}
}

// Code 返回对外稳定的 error_code。
func (k Kind) Code() string {
	switch k {
	case KindValidation:
		return domain.ErrCodeValidation
	case KindIntegrity:
		return domain.ErrCodeIntegrity
	case KindFilesystem:
		return domain.ErrCodeFilesystem
	case KindUnrecoverable:
		return domain.ErrCodeUnrecoverable
	default:
		return ""
	}
}

// Step 标识失败发生在协议的哪一步。
type Step string

const (
	StepAcquire        Step = "acquire"
	StepValidate       Step = "validate"
	StepMkdirStaging   Step = "mkdir_staging"
	StepCopy           Step = "copy"
	StepBackupRename   Step = "backup_rename"
	StepActivateRename Step = "activate_rename"
	StepRollback       Step = "rollback_rename"
)

// Paths 中使用的键。
const (
	PathOriginal = "original"
	PathStaging  = "staging"
	PathBackup   = "backup"
	PathSource   = "source"
	PathTarget   = "target"
)

var (
	ErrInFlight      = errors.New("该目录已有提交在进行中")
	ErrEmptySequence = errors.New("序列为空")
	ErrNotDirectory  = errors.New("不是目录")
	ErrDirMissing    = errors.New("目录不存在")
	ErrRootDir       = errors.New("不能重排文件系统根目录")
	ErrInvalidName   = errors.New("非法文件名")
	ErrPathCollision = errors.New("暂存/备份目录已存在")
	ErrMissingSource = errors.New("源文件不存在")
	ErrNotRegular    = errors.New("源路径不是普通文件")
	ErrDuplicateName = errors.New("文件名重复")
)

// Error 是提交失败的结构化错误。
//
// 约束：
// - Paths 至少包含 original；swap 之后的失败还必须包含 backup 与 staging
// - KindUnrecoverable 时 Paths[original] 与 Paths[backup] 就是人工恢复所需的两条路径
// - StagingLeft 非空表示清理暂存目录本身也失败了（目录仍在该路径）
type Error struct {
	// ID 是本次提交的 commit_id（与日志字段一致）。
	ID    string
	Kind  Kind
	Step  Step
	Path  string
	Paths map[string]string

	RolledBack  bool
	StagingLeft string

	Err         error
	RollbackErr error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s（%s）", e.Code(), e.Step)
	if e.Path != "" {
		fmt.Fprintf(&b, "：%q", e.Path)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, "：%v", e.Err)
	}
	switch {
	case e.Kind == KindUnrecoverable:
		fmt.Fprintf(&b, "；回滚失败：%v；原目录当前位于 %q，请手动重命名回 %q", e.RollbackErr, e.Paths[PathBackup], e.Paths[PathOriginal])
	case e.RolledBack:
		b.WriteString("；已回滚到原目录，数据未丢失")
	}
	if e.StagingLeft != "" {
		fmt.Fprintf(&b, "；暂存目录未能清理：%q", e.StagingLeft)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Code 返回对外稳定的 error_code；in-flight 冲突单独成码，便于调用方稍后重试。
func (e *Error) Code() string {
	if errors.Is(e.Err, ErrInFlight) {
		return domain.ErrCodeInFlight
	}
	return e.Kind.Code()
}

// SortedPaths 以稳定顺序返回 Paths（用于展示）。
func (e *Error) SortedPaths() [][2]string {
	keys := make([]string, 0, len(e.Paths))
	for k := range e.Paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]string{k, e.Paths[k]})
	}
	return out
}

// KindOf 从 error 中提取 Kind；若不是 *Error 则返回 KindNone。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNone
}

// AsError 是 errors.As 的便捷封装。
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
