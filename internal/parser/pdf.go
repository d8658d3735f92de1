// Package parser 将上传的简历文件转换为纯文本
package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
	"github.com/rs/zerolog"

	"resume-matcher/internal/logger"
)

var (
	// ErrNotPDF 内容不是PDF
	ErrNotPDF = errors.New("文件不是有效的PDF")
	// ErrEmptyDocument 解析结果没有文本
	ErrEmptyDocument = errors.New("文档中没有可提取的文本")
)

// DefaultParseTimeout 单个文档的解析超时
const DefaultParseTimeout = 30 * time.Second

var pdfMagic = []byte("%PDF-")

// TextExtractor 文件到纯文本的转换器
type TextExtractor interface {
	ExtractTextFromReader(ctx context.Context, reader io.Reader, uri string) (string, error)
}

// EinoPDFTextExtractor 使用 Eino PDF Parser 提取文本
type EinoPDFTextExtractor struct {
	parser  *pdf.PDFParser
	logger  *zerolog.Logger
	timeout time.Duration
}

// EinoPDFOption PDF提取器的配置选项
type EinoPDFOption func(*EinoPDFTextExtractor)

// WithEinoLogger 配置自定义日志记录器
func WithEinoLogger(l *zerolog.Logger) EinoPDFOption {
	return func(e *EinoPDFTextExtractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithParseTimeout 配置单个文档的解析超时
func WithParseTimeout(d time.Duration) EinoPDFOption {
	return func(e *EinoPDFTextExtractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEinoPDFTextExtractor 初始化 Eino PDF 文本提取器
// 不按页面分割，获取整个文档的连续文本
func NewEinoPDFTextExtractor(ctx context.Context, options ...EinoPDFOption) (*EinoPDFTextExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: false,
	})
	if err != nil {
		return nil, fmt.Errorf("创建Eino PDF解析器失败: %w", err)
	}

	extractor := &EinoPDFTextExtractor{
		parser:  p,
		logger:  logger.Component("pdf_parser"),
		timeout: DefaultParseTimeout,
	}
	for _, option := range options {
		option(extractor)
	}
	return extractor, nil
}

// ExtractFromFile 从PDF文件路径提取文本
func (e *EinoPDFTextExtractor) ExtractFromFile(ctx context.Context, filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("打开PDF文件失败 %s: %w", filePath, err)
	}
	defer file.Close()

	if info, err := file.Stat(); err == nil {
		e.logger.Debug().
			Str("file", filePath).
			Float64("size_mb", float64(info.Size())/1024/1024).
			Msg("开始处理PDF文件")
	}
	return e.ExtractTextFromReader(ctx, file, filePath)
}

// ExtractTextFromBytes 从字节数组提取文本
func (e *EinoPDFTextExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, error) {
	return e.ExtractTextFromReader(ctx, bytes.NewReader(data), uri)
}

// ExtractTextFromReader 从 io.Reader 中提取文本。
// 先检查PDF文件头，非PDF内容直接返回 ErrNotPDF
func (e *EinoPDFTextExtractor) ExtractTextFromReader(ctx context.Context, reader io.Reader, uri string) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("读取PDF内容失败 %s: %w", uri, err)
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return "", fmt.Errorf("%w: %s", ErrNotPDF, uri)
	}

	startTime := time.Now()
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	docs, err := e.parser.Parse(ctx, bytes.NewReader(data),
		einoParser.WithURI(uri),
		einoParser.WithExtraMeta(map[string]any{
			"extraction_time": startTime.Format(time.RFC3339),
		}),
	)
	duration := time.Since(startTime)
	if err != nil {
		e.logger.Warn().Err(err).Str("uri", uri).Dur("duration", duration).Msg("PDF解析失败")
		return "", fmt.Errorf("eino PDF解析失败 %s: %w", uri, err)
	}

	// 正常情况下只返回一个文档，多个时用空行拼接
	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		if content := strings.TrimSpace(doc.Content); content != "" {
			parts = append(parts, content)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptyDocument, uri)
	}

	text := strings.Join(parts, "\n\n")
	e.logger.Info().
		Str("uri", uri).
		Int("documents", len(docs)).
		Int("chars", len([]rune(text))).
		Dur("duration", duration).
		Msg("PDF提取完成")
	return text, nil
}
