package main

import (
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file.pdf|file.txt>",
	Short: "提取简历信息",
	Long:  "读取 PDF 或纯文本简历，输出基础信息、可选信息、技能、关键词与摘要。",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
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
	result, err := svc.ExtractText(ctx, text)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}
