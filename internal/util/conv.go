package util

import (
	"strconv"
	"strings"
)

// MustParseUint 将字符串转换为无符号整数，解析失败时返回 0
func MustParseUint(s string) uint {
	id, _ := strconv.ParseUint(s, 10, 32)
	return uint(id)
}

// NormalizeTag 标签名统一为去空白的小写形式
func NormalizeTag(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
