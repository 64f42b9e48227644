package session

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path"
	"strings"
)

// ReadOrderFile 读取顺序文件：每行一个文件名。
//
// 规则：
// - 空行与 '#' 开头的行忽略（兼容 M3U 的 #EXTM3U / #EXTINF 头）
// - 路径部分一律去掉，只保留文件名（'/' 与 '\' 都视为分隔符）
// - 容忍 UTF-8 BOM 与 CRLF 换行
func ReadOrderFile(p string) ([]string, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("读取顺序文件失败：%w", err)
	}
	return ParseOrder(b), nil
}

// ParseOrder 是 ReadOrderFile 的纯解析部分。
func ParseOrder(b []byte) []string {
	b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))

	var names []string
	sc := bufio.NewScanner(bytes.NewReader(b))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name := path.Base(strings.ReplaceAll(line, `\`, "/"))
		if name == "." || name == "/" {
			continue
		}
		names = append(names, name)
	}
	return names
}
