package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"resume-matcher/internal/service"
	"resume-matcher/internal/types"
)

var matchCmd = &cobra.Command{
	Use:   "match <file.pdf|file.txt>",
	Short: "计算简历与岗位描述的匹配度",
	Long:  "提取简历信息后与岗位描述比较，输出技能、经验、文本相似度三项得分、综合得分与推荐等级。",
	Args:  cobra.ExactArgs(1),
	RunE:  runMatch,
}

var matchJD string

func init() {
	matchCmd.Flags().StringVarP(&matchJD, "jd", "j", "", "岗位描述文本，以@开头时读取文件 (必填)")
	if err := matchCmd.MarkFlagRequired("jd"); err != nil {
		panic(fmt.Sprintf("标记jd参数为必填失败: %v", err))
	}
	rootCmd.AddCommand(matchCmd)
}

// matchOutput 匹配结果附带推荐等级中文名
type matchOutput struct {
	types.MatchResult
	RecommendationLabel string `json:"recommendation_label"`
}

func runMatch(cmd *cobra.Command, args []string) error {
	jd, err := loadJobDescription(matchJD)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	svc, closeFn, err := newService(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	text, err := readResume(ctx, svc.PDFExtractor(), args[0])
	if err != nil {
		return err
	}
	result, err := svc.MatchText(ctx, text, jd)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), matchOutput{
		MatchResult:         result,
		RecommendationLabel: result.Recommendation.Label(),
	})
}

// loadJobDescription 解析 --jd 参数，@path 表示从文件读取
func loadJobDescription(value string) (string, error) {
	if path, ok := strings.CutPrefix(value, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("读取岗位描述文件失败 %s: %w", path, err)
		}
		value = string(data)
	}
	if strings.TrimSpace(value) == "" {
		return "", service.ErrEmptyJobDescription
	}
	return value, nil
}
