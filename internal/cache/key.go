// Package cache 提供按内容寻址的两级结果缓存：优先Redis，失败时降级到进程内缓存
package cache

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnserializable 参数或值无法序列化为JSON
	ErrUnserializable = errors.New("无法序列化为JSON")
	// ErrInvalidDestination Get 的目标不是非nil指针
	ErrInvalidDestination = errors.New("缓存读取目标必须是非nil指针")
)

// GenerateKey 生成 "{prefix}:{md5}" 形式的缓存键。
// 参数按键排序后序列化，相同的参数总是得到相同的键，与map的构造顺序无关
func GenerateKey(prefix string, params map[string]any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(params); err != nil {
		return "", fmt.Errorf("生成缓存键失败: %w: %v", ErrUnserializable, err)
	}
	sum := md5.Sum(bytes.TrimSpace(buf.Bytes()))
	return prefix + ":" + hex.EncodeToString(sum[:]), nil
}
