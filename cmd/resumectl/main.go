// Package main 提供 resumectl 命令行工具，在本地提取简历信息并计算岗位匹配
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"resume-matcher/internal/config"
	"resume-matcher/internal/logger"
	"resume-matcher/internal/parser"
	"resume-matcher/internal/service"
	"resume-matcher/internal/textutil"
)

var (
	configPath string
	noLLM      bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "resumectl",
	Short:         "简历信息提取与岗位匹配工具",
	Long:          "resumectl 从 PDF 或文本简历中提取结构化信息，并计算简历与岗位描述的匹配度，结果以 JSON 输出。",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径，为空时使用默认配置与环境变量")
	rootCmd.PersistentFlags().BoolVar(&noLLM, "no-llm", false, "只使用规则提取，不调用大模型")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出调试日志")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

// newService 加载配置并创建只使用本地缓存的简历服务
func newService(ctx context.Context) (*service.ResumeService, func() error, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	// 日志写到stderr，stdout只输出JSON结果
	_ = logger.Init(logger.Config{Level: level, Format: "pretty", TimeFormat: "15:04:05", Out: os.Stderr})

	if noLLM {
		cfg.Aliyun.Enabled = false
	}
	cfg.Redis.Enabled = false
	cfg.MinIO.Enabled = false

	return service.NewFromConfig(ctx, cfg)
}

// readResume 读取 PDF 或纯文本简历并归一化
func readResume(ctx context.Context, pdfExtractor parser.TextExtractor, path string) (string, error) {
	text, err := parser.ExtractFile(ctx, pdfExtractor, path)
	if err != nil {
		return "", err
	}
	text = textutil.Normalize(text)
	if text == "" {
		return "", service.ErrEmptyText
	}
	return text, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
