package parser

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// PlainTextExtractor 读取纯文本文件，非UTF-8字节被替换
type PlainTextExtractor struct{}

// ExtractTextFromReader 读取全部文本
func (PlainTextExtractor) ExtractTextFromReader(_ context.Context, reader io.Reader, uri string) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("读取文本失败 %s: %w", uri, err)
	}
	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyDocument, uri)
	}
	return text, nil
}

// IsPDF 按扩展名判断是否为PDF
func IsPDF(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// ExtractFile 按扩展名选择提取器读取本地文件，.pdf 使用 pdfExtractor，其余按纯文本读取
func ExtractFile(ctx context.Context, pdfExtractor TextExtractor, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("打开文件失败 %s: %w", path, err)
	}
	defer f.Close()

	if IsPDF(path) {
		if pdfExtractor == nil {
			return "", fmt.Errorf("未配置PDF提取器，无法读取 %s", path)
		}
		return pdfExtractor.ExtractTextFromReader(ctx, f, path)
	}
	return PlainTextExtractor{}.ExtractTextFromReader(ctx, f, path)
}
