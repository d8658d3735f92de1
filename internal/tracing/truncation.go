package tracing

import (
	"strings"
)

const (
	// DefaultMaxLength 默认最大属性长度
	DefaultMaxLength = 200

	// MaxCacheKeyLength 缓存键最大长度
	MaxCacheKeyLength = 100
)

// maskPIILookup 需要掩码处理的关键字
var maskPIILookup = []string{
	"email", "phone", "password", "身份证", "id_card",
	"address", "地址", "name", "姓名", "secret", "token",
}

// SafeAttributeValue 敏感字段返回掩码值，其余超长时截断
func SafeAttributeValue(name string, value string, maxLength int) string {
	lowerName := strings.ToLower(name)
	for _, keyword := range maskPIILookup {
		if strings.Contains(lowerName, keyword) {
			return MaskPII(value)
		}
	}
	return TruncateString(value, maxLength)
}

// MaskPII 对个人敏感信息进行掩码处理
func MaskPII(value string) string {
	if value == "" {
		return ""
	}

	runes := []rune(value)
	length := len(runes)

	if length <= 1 {
		return "*"
	}
	// "张三" -> "张*", "王小明" -> "王*明"
	if length <= 4 {
		if length == 2 {
			return string(runes[0:1]) + "*"
		}
		return string(runes[0:1]) + strings.Repeat("*", length-2) + string(runes[length-1:])
	}

	// "13812345678" -> "13*******78"
	return string(runes[0:2]) + strings.Repeat("*", length-4) + string(runes[length-2:])
}

// MaskPtr 对可能为空的字段做掩码，nil返回空串
func MaskPtr(value *string) string {
	if value == nil {
		return ""
	}
	return MaskPII(*value)
}

// TruncateString 截断字符串，保留首尾并以省略号连接
func TruncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}

	if maxLength <= 3 {
		return string(runes[:maxLength])
	}

	half := (maxLength - 3) / 2
	if half < 1 {
		half = 1
	}
	return string(runes[:half]) + "..." + string(runes[len(runes)-half:])
}

// SafeCacheKey 安全处理缓存键
func SafeCacheKey(key string) string {
	return TruncateString(key, MaxCacheKeyLength)
}
