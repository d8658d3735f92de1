package parser

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEinoPDFTextExtractor(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	extractor, err := NewEinoPDFTextExtractor(ctx)
	require.NoError(t, err, "创建PDF提取器不应返回错误")
	require.NotNil(t, extractor.parser, "PDF提取器内部的parser不应为nil")
	require.NotNil(t, extractor.logger, "PDF提取器应该有默认的logger")
	assert.Equal(t, DefaultParseTimeout, extractor.timeout)

	custom := zerolog.Nop()
	withOpts, err := NewEinoPDFTextExtractor(ctx, WithEinoLogger(&custom), WithParseTimeout(time.Second))
	require.NoError(t, err)
	assert.Same(t, &custom, withOpts.logger, "应该使用提供的自定义logger")
	assert.Equal(t, time.Second, withOpts.timeout)
}

func TestExtractTextFromReader_RejectsNonPDF(t *testing.T) {
	extractor, err := NewEinoPDFTextExtractor(context.Background())
	require.NoError(t, err)

	_, err = extractor.ExtractTextFromReader(context.Background(), strings.NewReader("姓名：张伟"), "resume.pdf")
	assert.ErrorIs(t, err, ErrNotPDF, "没有PDF文件头")

	_, err = extractor.ExtractTextFromBytes(context.Background(), nil, "empty.pdf")
	assert.ErrorIs(t, err, ErrNotPDF, "空内容")
}

func TestExtractTextFromReader_BrokenPDF(t *testing.T) {
	extractor, err := NewEinoPDFTextExtractor(context.Background())
	require.NoError(t, err)

	mock := []byte("%PDF-1.5\nMock PDF content for testing\nThis is not a real PDF file\n")
	text, err := extractor.ExtractTextFromReader(context.Background(), bytes.NewReader(mock), "mock.pdf")
	assert.Error(t, err, "损坏的PDF应返回错误")
	assert.Empty(t, text)
}

func TestExtractFromNonExistentFile(t *testing.T) {
	extractor, err := NewEinoPDFTextExtractor(context.Background())
	require.NoError(t, err)

	_, err = extractor.ExtractFromFile(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "打开PDF文件失败")
}

func TestExtractFromTestdataPDF(t *testing.T) {
	files, _ := filepath.Glob(filepath.Join("testdata", "*.pdf"))
	if len(files) == 0 {
		t.Skip("找不到测试PDF文件，跳过测试")
	}
	extractor, err := NewEinoPDFTextExtractor(context.Background())
	require.NoError(t, err)

	for _, path := range files {
		t.Run(filepath.Base(path), func(t *testing.T) {
			text, err := extractor.ExtractFromFile(context.Background(), path)
			require.NoError(t, err)
			assert.NotEmpty(t, text)
		})
	}
}

func TestPlainTextExtractor(t *testing.T) {
	text, err := PlainTextExtractor{}.ExtractTextFromReader(context.Background(), strings.NewReader("姓名：张伟\n"), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "姓名：张伟\n", text)

	text, err = PlainTextExtractor{}.ExtractTextFromReader(context.Background(), bytes.NewReader([]byte{'a', 0xff, 'b'}), "b.txt")
	require.NoError(t, err)
	assert.Equal(t, "a�b", text, "非法UTF-8被替换")

	_, err = PlainTextExtractor{}.ExtractTextFromReader(context.Background(), strings.NewReader("  \n "), "c.txt")
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestExtractFile_DispatchByExtension(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "resume.txt")
	require.NoError(t, os.WriteFile(txt, []byte("熟悉 Go"), 0o644))

	text, err := ExtractFile(context.Background(), nil, txt)
	require.NoError(t, err)
	assert.Equal(t, "熟悉 Go", text)

	pdfPath := filepath.Join(dir, "resume.PDF")
	require.NoError(t, os.WriteFile(pdfPath, []byte("not a pdf"), 0o644))
	_, err = ExtractFile(context.Background(), nil, pdfPath)
	assert.Error(t, err, "未配置PDF提取器")

	extractor, err := NewEinoPDFTextExtractor(context.Background())
	require.NoError(t, err)
	_, err = ExtractFile(context.Background(), extractor, pdfPath)
	assert.ErrorIs(t, err, ErrNotPDF)

	assert.True(t, IsPDF("a.Pdf"))
	assert.False(t, IsPDF("a.txt"))
}
