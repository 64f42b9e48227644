//go:build !unix

package fsx

// 非 unix 平台不做 EXDEV 分类：跨卷失败按普通 rename 错误上报。
func isEXDEV(err error) bool { return false }
