//go:build !unix

package fsx

// 非 unix 平台没有 flock：只依赖进程内的登记表。
func LockDir(dir string) (unlock func() error, err error) {
	return func() error { return nil }, nil
}
