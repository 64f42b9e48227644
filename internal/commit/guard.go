package commit

import "sync"

// inflight 是进程级的“每目录至多一个进行中的提交”登记表，键为 clean + absolute 的目录路径。
// 它被所有 Committer 实例共享：即便调用方持有多个 Committer，同一目录也不会被并发重写。
var inflight = struct {
	mu   sync.Mutex
	dirs map[string]struct{}
}{dirs: map[string]struct{}{}}

// acquire 尝试登记 dir；已被占用时立即返回 false（不排队、不等待）。
func acquire(dir string) (release func(), ok bool) {
	inflight.mu.Lock()
	defer inflight.mu.Unlock()

	if _, busy := inflight.dirs[dir]; busy {
		return nil, false
	}
	inflight.dirs[dir] = struct{}{}
	return func() {
		inflight.mu.Lock()
		delete(inflight.dirs, dir)
		inflight.mu.Unlock()
	}, true
}

// InFlight 报告 dir（须为 clean + absolute）当前是否有提交在进行中。
func InFlight(dir string) bool {
	inflight.mu.Lock()
	defer inflight.mu.Unlock()
	_, busy := inflight.dirs[dir]
	return busy
}
