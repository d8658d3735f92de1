package extractor

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"resume-matcher/internal/textutil"
	"resume-matcher/internal/types"
	"resume-matcher/internal/vocab"
)

var (
	// 手机与座机取文本中最靠前的一个
	barePhonePattern    = regexp.MustCompile(`1[3-9]\d{9}|0\d{2,3}-?\d{7,8}`)
	labeledPhonePattern = regexp.MustCompile(`(?i)(?:电话|手机|tel|phone)\s*[：:]\s*([0-9\-\s]+)`)
	emailPattern        = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`姓名\s*[：:]\s*([^\s，,]+)`),
		regexp.MustCompile(`(?i)name\s*[：:]\s*(\S+)`),
		regexp.MustCompile(`^([^\s，,]+)\s*\p{Han}`),
	}

	addressPatterns = []*regexp.Regexp{
		regexp.MustCompile(`地址\s*[：:]\s*([^\n]+)`),
		regexp.MustCompile(`(?i)address\s*[：:]\s*([^\n]+)`),
		regexp.MustCompile(`现住地\s*[：:]\s*([^\n]+)`),
	}

	jobIntentionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`求职意向\s*[：:]\s*([^\n]+)`),
		regexp.MustCompile(`目标岗位\s*[：:]\s*([^\n]+)`),
		regexp.MustCompile(`应聘岗位\s*[：:]\s*([^\n]+)`),
		regexp.MustCompile(`目标职位\s*[：:]\s*([^\n]+)`),
		regexp.MustCompile(`(?i)desired\s+position\s*[：:]\s*([^\n]+)`),
	}

	experiencePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+)\s*年\s*(?:以上)?工作经验`),
		regexp.MustCompile(`工作年限\s*[：:]\s*(\d+)`),
		regexp.MustCompile(`(?i)(\d+)\s*years?\s*(?:of\s+)?(?:work\s+)?experience`),
		regexp.MustCompile(`(?i)experience\s*[：:]\s*(\d+)\s*years?`),
	}

	educationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`最高学历\s*[：:]\s*([^\n]+)`),
		regexp.MustCompile(`学历\s*[：:]\s*([^\n]+)`),
		regexp.MustCompile(`(博士|硕士|本科|大专|专科|高中)`),
		regexp.MustCompile(`(?i)education\s*[：:]\s*([^\n]+)`),
	}

	// 单行文本中，"行尾"捕获截止到下一个字段标签
	nextLabelPattern = regexp.MustCompile(`(?i)\s+(?:姓名|电话|手机|邮箱|地址|现住地|求职意向|目标岗位|应聘岗位|目标职位|工作年限|最高学历|学历|技能|name|phone|tel|email|address|education)\s*[：:]`)

	sentenceSeparators = regexp.MustCompile(`[。！？\n]`)
)

const (
	minNameRunes      = 2
	maxNameRunes      = 20
	summarySentences  = 3
	summarySeparator  = "。"
	maxFieldValueRune = 100
)

// RuleExtractor 基于规则的确定性提取器，不访问网络，相同输入总是得到相同结果
type RuleExtractor struct {
	vocabulary vocab.Vocabulary
}

// NewRuleExtractor 使用给定词表创建规则提取器
func NewRuleExtractor(vocabulary vocab.Vocabulary) *RuleExtractor {
	return &RuleExtractor{vocabulary: vocabulary}
}

// ExtractBaseInfo 提取姓名、电话、邮箱、地址
func (r *RuleExtractor) ExtractBaseInfo(text string) types.BaseInfo {
	return types.BaseInfo{
		Name:    extractName(text),
		Phone:   extractPhone(text),
		Email:   extractEmail(text),
		Address: firstLabeledValue(addressPatterns, text),
	}
}

// ExtractOptionalInfo 提取求职意向、工作年限、学历
func (r *RuleExtractor) ExtractOptionalInfo(text string) types.OptionalInfo {
	return types.OptionalInfo{
		JobIntention:        firstLabeledValue(jobIntentionPatterns, text),
		WorkExperienceYears: extractYears(text),
		EducationBackground: firstLabeledValue(educationPatterns, text),
	}
}

// ExtractSkills 按词表顺序返回文本中出现的技能
func (r *RuleExtractor) ExtractSkills(text string) []string {
	return r.vocabulary.Match(text)
}

// Summarize 取前三个句子作为摘要，文本为空时返回nil
func (r *RuleExtractor) Summarize(text string) *string {
	parts := sentenceSeparators.Split(text, -1)
	sentences := make([]string, 0, summarySentences)
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		sentences = append(sentences, p)
		if len(sentences) == summarySentences {
			break
		}
	}
	if len(sentences) == 0 {
		return nil
	}
	return types.StringPtr(strings.Join(sentences, summarySeparator))
}

func extractPhone(text string) *string {
	if m := barePhonePattern.FindString(text); m != "" {
		return types.StringPtr(textutil.NormalizePhone(m))
	}
	if m := labeledPhonePattern.FindStringSubmatch(text); m != nil {
		return types.StringPtr(textutil.NormalizePhone(m[1]))
	}
	return nil
}

func extractEmail(text string) *string {
	m := emailPattern.FindString(text)
	if m == "" {
		return nil
	}
	return types.StringPtr(textutil.NormalizeEmail(m))
}

// extractName 依次尝试各模式，候选值长度不在[2,20]或为纯数字时继续下一个模式
func extractName(text string) *string {
	for _, p := range namePatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		n := utf8.RuneCountInString(name)
		if n < minNameRunes || n > maxNameRunes || textutil.IsNumeric(name) {
			continue
		}
		return &name
	}
	return nil
}

func extractYears(text string) *int {
	for _, p := range experiencePatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		years, err := strconv.Atoi(m[1])
		if err != nil || years < 0 {
			continue
		}
		return &years
	}
	return nil
}

// firstLabeledValue 第一个命中的模式即为结果，不合并多个模式
func firstLabeledValue(patterns []*regexp.Regexp, text string) *string {
	for _, p := range patterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		return types.StringPtr(trimFieldValue(m[1]))
	}
	return nil
}

// trimFieldValue 截断到下一个字段标签并去除首尾空白与分隔符
func trimFieldValue(v string) string {
	if loc := nextLabelPattern.FindStringIndex(v); loc != nil {
		v = v[:loc[0]]
	}
	v = strings.Trim(v, " \t，,;；")
	return textutil.TruncateRunes(v, maxFieldValueRune)
}
