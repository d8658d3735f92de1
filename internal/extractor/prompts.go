package extractor

import (
	"fmt"

	"resume-matcher/internal/textutil"
)

// Task 提取任务
type Task string

const (
	TaskBaseInfo     Task = "base_info"
	TaskOptionalInfo Task = "optional_info"
	TaskSkills       Task = "skills"
	TaskSummary      Task = "summary"
)

// DefaultPromptCharLimit 提示词中嵌入的简历前缀长度
const DefaultPromptCharLimit = 2000

const systemPrompt = "你是一位专业的简历信息提取助手，只输出用户要求的格式，不要输出解释或Markdown标记。"

const baseInfoPrompt = `任务类型: %s
请从以下简历文本中提取基础信息，以JSON格式返回：
{
    "name": "姓名",
    "phone": "电话号码(仅返回数字和-)",
    "email": "邮箱地址",
    "address": "地址"
}

如果某个字段未找到，请返回null。字符串值内部的双引号必须转义。仅返回JSON，不要其他内容。

简历文本：
"""
%s
"""`

const optionalInfoPrompt = `任务类型: %s
请从以下简历文本中提取可选信息，以JSON格式返回：
{
    "job_intention": "求职意向",
    "work_experience_years": "工作年限(数字)",
    "education_background": "最高学历及毕业院校"
}

如果某个字段未找到，请返回null。work_experience_years 只能是整数或null。仅返回JSON，不要其他内容。

简历文本：
"""
%s
"""`

const skillsPrompt = `任务类型: %s
请从以下简历文本中提取专业技能(编程语言、框架、数据库、工具、领域能力等)，以JSON数组格式返回：
["技能1", "技能2", "技能3"]

每个技能尽量简短，不要重复。没有技能时返回 []。仅返回JSON数组，不要其他内容。

简历文本：
"""
%s
"""`

const summaryPrompt = `任务类型: %s
请为以下简历生成简洁的摘要(不超过100字)，突出候选人的核心经历与技能。
直接输出摘要文本，不要输出JSON或其他说明。

简历文本：
"""
%s
"""`

// buildPrompt 生成任务提示词，简历文本按字符数截断
func buildPrompt(task Task, text string, charLimit int) string {
	if charLimit <= 0 {
		charLimit = DefaultPromptCharLimit
	}
	text = textutil.TruncateRunes(text, charLimit)

	var tmpl string
	switch task {
	case TaskBaseInfo:
		tmpl = baseInfoPrompt
	case TaskOptionalInfo:
		tmpl = optionalInfoPrompt
	case TaskSkills:
		tmpl = skillsPrompt
	default:
		tmpl = summaryPrompt
	}
	return fmt.Sprintf(tmpl, task, text)
}

// TaskMarker 提示词中标识任务类型的行，便于日志排查
func TaskMarker(task Task) string {
	return "任务类型: " + string(task)
}
