package extractor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// cleanResponse 去除BOM并修复非法UTF-8
func cleanResponse(content string) string {
	content = strings.ToValidUTF8(content, "")
	return strings.TrimPrefix(strings.TrimSpace(content), "\uFEFF")
}

// extractJSONFragment 返回第一个括号配平的JSON片段，字符串内的括号不计入层级
func extractJSONFragment(text string, open, close byte) string {
	start := strings.IndexByte(text, open)
	if start == -1 {
		return ""
	}
	level := 0
	inStr := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case open:
			level++
		case close:
			level--
			if level == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// sanitizeJSON 将字符串字面量内部未转义的双引号改写为 \"。
// 通过检查下一个非空白字符是否为 :, ], }, 或 , 判断引号是否为字符串真正的结束
func sanitizeJSON(src string) string {
	var b strings.Builder
	inStr := false
	escaped := false

	for i := 0; i < len(src); i++ {
		c := src[i]

		switch {
		case c == '"' && !escaped:
			if !inStr {
				inStr = true
				b.WriteByte(c)
			} else {
				j := i + 1
				for j < len(src) && (src[j] == ' ' || src[j] == '\t' || src[j] == '\n' || src[j] == '\r') {
					j++
				}
				if j >= len(src) || src[j] == ':' || src[j] == ',' || src[j] == ']' || src[j] == '}' {
					inStr = false
					b.WriteByte(c)
				} else {
					b.WriteString("\\\"")
				}
			}
			escaped = false
		case c == '\\' && !escaped:
			escaped = true
			b.WriteByte(c)
		default:
			escaped = false
			b.WriteByte(c)
		}
	}
	return b.String()
}

// decodeFragment 从模型响应中找出JSON片段，按schema校验后解析到dest
func decodeFragment(content string, open, close byte, schema *gojsonschema.Schema, dest any) error {
	frag := extractJSONFragment(cleanResponse(content), open, close)
	if frag == "" {
		return ErrNoJSON
	}
	if !json.Valid([]byte(frag)) {
		frag = sanitizeJSON(frag)
		if !json.Valid([]byte(frag)) {
			return ErrMalformedJSON
		}
	}

	if schema != nil {
		result, err := schema.Validate(gojsonschema.NewStringLoader(frag))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
		}
		if !result.Valid() {
			desc := ""
			if errs := result.Errors(); len(errs) > 0 {
				desc = errs[0].String()
			}
			return fmt.Errorf("%w: %s", ErrSchemaMismatch, desc)
		}
	}

	if err := json.Unmarshal([]byte(frag), dest); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return nil
}
