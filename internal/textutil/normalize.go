// Package textutil 提供简历文本的清洗与关键词排序
package textutil

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// 允许保留的字符：字母、数字、下划线、空白以及固定的标点集合(含断句标点)
	disallowedChars = regexp.MustCompile(`[^\p{L}\p{N}_\s\p{Z}\-+()（）@.#:：,，/。！？；;!?、]`)
	horizontalSpace = regexp.MustCompile(`[ \t\f\r\v\p{Z}]+`)
	newlineSpace    = regexp.MustCompile(`\s*\n\s*`)
)

// Normalize 清洗原始文本，返回归一化后的简历文本。
// 非法UTF-8会被丢弃，行内连续空白压缩为单个空格，换行两侧的空白压缩为单个换行。
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ToValidUTF8(text, "")
	text = strings.TrimPrefix(text, "\uFEFF")
	text = disallowedChars.ReplaceAllString(text, "")
	text = horizontalSpace.ReplaceAllString(text, " ")
	text = newlineSpace.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}

// NormalizePhone 只保留数字
func NormalizePhone(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeEmail 去除首尾空白并转为小写
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsNumeric 字符串非空且全部由数字组成
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// TruncateRunes 按字符数截取前缀
func TruncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
