// Package matcher 计算简历与岗位描述的匹配分数
package matcher

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"resume-matcher/internal/metrics"
	"resume-matcher/internal/types"
	"resume-matcher/internal/vocab"
)

// 综合分权重
const (
	SkillWeight      = 0.4
	ExperienceWeight = 0.3
	TextWeight       = 0.3
)

// 推荐等级阈值，包含下界
const (
	StronglyRecommendThreshold = 80.0
	RecommendThreshold         = 60.0
	NeutralThreshold           = 40.0
)

const (
	// NeutralExperienceScore 候选人工作年限未知时的经验分
	NeutralExperienceScore = 50.0
	// NoRequirementExperienceScore 岗位未写明年限要求时的经验分
	NoRequirementExperienceScore = 100.0
)

// 岗位描述中的年限要求，按顺序尝试，第一个命中的为准
var requiredYearsPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)\s*年\s*(?:以上)?(?:工作)?经验`),
	regexp.MustCompile(`(?i)(\d+)\s*\+?\s*years?\s+(?:of\s+)?(?:work\s+)?experience`),
	regexp.MustCompile(`(?i)experience[：:]?\s*(\d+)\+?\s*years?`),
	regexp.MustCompile(`工作年限[：:]?\s*(\d+)`),
}

// Engine 匹配引擎，只持有不可变词表，可并发使用
type Engine struct {
	jobVocabulary vocab.Vocabulary
}

// Option 匹配引擎配置选项
type Option func(*Engine)

// WithJobVocabulary 使用单独的岗位关键词词表
func WithJobVocabulary(v vocab.Vocabulary) Option {
	return func(e *Engine) {
		e.jobVocabulary = v
	}
}

// NewEngine 创建匹配引擎，默认与技能提取使用同一词表
func NewEngine(skillVocabulary vocab.Vocabulary, opts ...Option) *Engine {
	e := &Engine{jobVocabulary: skillVocabulary}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Match 计算简历视图与岗位描述的匹配结果
func (e *Engine) Match(view types.ResumeView, jobDescription string) types.MatchResult {
	jobKeywords := e.JobKeywords(jobDescription)
	skillMatch := SkillMatch(view.Skills, jobKeywords)
	experienceMatch := ExperienceMatch(view.OptionalInfo.WorkExperienceYears, jobDescription)
	textSimilarity := TextSimilarity(view.ResumeText, jobDescription)
	total := CompositeScore(skillMatch, experienceMatch, textSimilarity)

	metrics.MatchScore.Observe(total)

	return types.MatchResult{
		TotalScore:      total,
		SkillMatch:      skillMatch,
		ExperienceMatch: experienceMatch,
		TextSimilarity:  textSimilarity,
		MatchedSkills:   MatchedSkills(view.Skills, jobKeywords),
		JobKeywords:     jobKeywords,
		Recommendation:  Recommend(total),
	}
}

// JobKeywords 岗位描述中出现的词表词条，不排序
func (e *Engine) JobKeywords(jobDescription string) []string {
	return e.jobVocabulary.Match(jobDescription)
}

// SkillMatch 候选人技能覆盖岗位关键词的比例(0-100)，任一方为空时为0
func SkillMatch(candidateSkills, jobKeywords []string) float64 {
	if len(jobKeywords) == 0 || len(candidateSkills) == 0 {
		return 0
	}
	candidates := lowerSet(candidateSkills)
	jobs := uniqueLower(jobKeywords)
	matched := 0
	for _, k := range jobs {
		if _, ok := candidates[k]; ok {
			matched++
		}
	}
	return round2(float64(matched) / float64(len(jobs)) * 100)
}

// MatchedSkills 同时出现在岗位关键词中的候选人技能，保持候选人技能的顺序
func MatchedSkills(candidateSkills, jobKeywords []string) []string {
	jobs := lowerSet(jobKeywords)
	seen := make(map[string]struct{}, len(candidateSkills))
	matched := make([]string, 0)
	for _, s := range candidateSkills {
		l := strings.ToLower(strings.TrimSpace(s))
		if _, ok := jobs[l]; !ok {
			continue
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		matched = append(matched, s)
	}
	return matched
}

// TextSimilarity 小写后按字符计算的序列相似度(0-100)，任一方为空时为0
func TextSimilarity(resumeText, jobDescription string) float64 {
	if resumeText == "" || jobDescription == "" {
		return 0
	}
	a := splitRunes(strings.ToLower(resumeText))
	b := splitRunes(strings.ToLower(jobDescription))
	ratio := difflib.NewMatcher(a, b).Ratio()
	return round2(ratio * 100)
}

// RequiredYears 从岗位描述中解析年限要求，没有要求时返回false
func RequiredYears(jobDescription string) (int, bool) {
	for _, p := range requiredYearsPatterns {
		m := p.FindStringSubmatch(jobDescription)
		if m == nil {
			continue
		}
		years, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return years, true
	}
	return 0, false
}

// ExperienceMatch 经验匹配分。
// 候选人年限未知为50；岗位没有年限要求为100；
// 满足要求为100，差一年80，差两年60，否则按比例
func ExperienceMatch(candidateYears *int, jobDescription string) float64 {
	if candidateYears == nil {
		return NeutralExperienceScore
	}
	required, ok := RequiredYears(jobDescription)
	if !ok || required <= 0 {
		return NoRequirementExperienceScore
	}

	years := *candidateYears
	switch gap := required - years; {
	case gap <= 0:
		return 100
	case gap == 1:
		return 80
	case gap == 2:
		return 60
	default:
		return round2(math.Max(0, float64(years)/float64(required)*100))
	}
}

// CompositeScore 加权综合分
func CompositeScore(skillMatch, experienceMatch, textSimilarity float64) float64 {
	return round2(skillMatch*SkillWeight + experienceMatch*ExperienceWeight + textSimilarity*TextWeight)
}

// Recommend 按综合分划分推荐等级
func Recommend(total float64) types.Recommendation {
	switch {
	case total >= StronglyRecommendThreshold:
		return types.RecommendStrongly
	case total >= RecommendThreshold:
		return types.Recommend
	case total >= NeutralThreshold:
		return types.RecommendNeutral
	default:
		return types.RecommendNot
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func lowerSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[strings.ToLower(strings.TrimSpace(it))] = struct{}{}
	}
	return set
}

func uniqueLower(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		l := strings.ToLower(strings.TrimSpace(it))
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
