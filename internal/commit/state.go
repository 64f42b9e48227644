package commit

// State 是提交状态机的状态。
type State int

const (
	StateIdle State = iota
	StateValidating
	StateStaging
	StateSwapping
	StateRollingBack
	StateCommitted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateStaging:
		return "staging"
	case StateSwapping:
		return "swapping"
	case StateRollingBack:
		return "rolling_back"
	case StateCommitted:
		return "committed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal 报告 s 是否为终止状态。
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateFailed
}
