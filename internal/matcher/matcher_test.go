package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-matcher/internal/types"
	"resume-matcher/internal/vocab"
)

func TestEngine_ScenarioPythonDocker(t *testing.T) {
	engine := NewEngine(vocab.Default())
	jd := "需要3年以上经验，熟悉 Python, Docker"
	view := types.ResumeView{
		Skills:       []string{"Python", "Docker", "MySQL"},
		ResumeText:   "熟悉 Python 和 Docker，了解 MySQL",
		OptionalInfo: types.OptionalInfo{WorkExperienceYears: types.IntPtr(3)},
	}

	result := engine.Match(view, jd)

	assert.ElementsMatch(t, []string{"Python", "Docker"}, result.JobKeywords)
	assert.Equal(t, 100.0, result.SkillMatch)
	assert.Equal(t, 100.0, result.ExperienceMatch)
	assert.Equal(t, []string{"Python", "Docker"}, result.MatchedSkills, "保持候选人技能顺序")
	assert.Greater(t, result.TextSimilarity, 0.0)
	assert.Equal(t, CompositeScore(result.SkillMatch, result.ExperienceMatch, result.TextSimilarity), result.TotalScore)
	assert.Equal(t, Recommend(result.TotalScore), result.Recommendation)
}

func TestSkillMatch_EdgeCases(t *testing.T) {
	assert.Equal(t, 0.0, SkillMatch(nil, []string{"Go"}), "候选人无技能为0")
	assert.Equal(t, 0.0, SkillMatch([]string{}, []string{"Go", "Redis"}))
	assert.Equal(t, 0.0, SkillMatch([]string{"Go"}, nil), "岗位无关键词为0")
	assert.Equal(t, 0.0, SkillMatch([]string{"Go"}, []string{}))
}

func TestSkillMatch_Ratio(t *testing.T) {
	assert.Equal(t, 33.33, SkillMatch([]string{"go"}, []string{"Go", "Redis", "Kafka"}), "大小写不敏感，保留两位小数")
	assert.Equal(t, 66.67, SkillMatch([]string{"Go", "Kafka"}, []string{"Go", "Redis", "Kafka"}))
	assert.Equal(t, 100.0, SkillMatch([]string{"Go", "Redis", "Kafka", "Java"}, []string{"Go", "Redis"}))
}

func TestMatchedSkills_OrderAndDedupe(t *testing.T) {
	got := MatchedSkills([]string{"Redis", "Java", "go", "Go"}, []string{"Go", "Redis"})
	assert.Equal(t, []string{"Redis", "go"}, got)
	assert.Empty(t, MatchedSkills(nil, []string{"Go"}))
}

func TestExperienceMatch(t *testing.T) {
	tests := []struct {
		name  string
		years *int
		jd    string
		want  float64
	}{
		{"年限未知", nil, "需要5年以上经验", 50},
		{"年限未知且无要求", nil, "熟悉Go", 50},
		{"无明确要求", types.IntPtr(1), "熟悉Go", 100},
		{"满足要求", types.IntPtr(5), "需要3年以上经验", 100},
		{"刚好满足", types.IntPtr(3), "3年工作经验", 100},
		{"差一年", types.IntPtr(4), "5年以上工作经验", 80},
		{"差两年", types.IntPtr(3), "5年经验", 60},
		{"按比例", types.IntPtr(2), "需要10年以上经验", 20},
		{"零年", types.IntPtr(0), "需要5年经验", 0},
		{"英文描述", types.IntPtr(2), "at least 5+ years of experience", 40},
		{"英文标注", types.IntPtr(6), "Experience: 8 years", 60},
		{"工作年限", types.IntPtr(1), "工作年限：3", 60},
		{"要求为0视为无要求", types.IntPtr(0), "0年经验可投", 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExperienceMatch(tt.years, tt.jd))
		})
	}
}

func TestRequiredYears_FirstPatternWins(t *testing.T) {
	years, ok := RequiredYears("3年以上经验，其中 5 years of experience 优先")
	require.True(t, ok)
	assert.Equal(t, 3, years)

	_, ok = RequiredYears("熟悉Go与Redis")
	assert.False(t, ok)
}

func TestTextSimilarity(t *testing.T) {
	assert.Equal(t, 0.0, TextSimilarity("", "Go"))
	assert.Equal(t, 0.0, TextSimilarity("Go", ""))
	assert.Equal(t, 100.0, TextSimilarity("Go 开发", "go 开发"), "比较前转为小写")
	assert.Equal(t, 50.0, TextSimilarity("ab", "ac"))
	assert.Equal(t, 0.0, TextSimilarity("abc", "xyz"))
}

func TestCompositeScore(t *testing.T) {
	assert.Equal(t, 100.0, CompositeScore(100, 100, 100))
	assert.Equal(t, 70.0, CompositeScore(100, 100, 0))
	assert.Equal(t, 0.0, CompositeScore(0, 0, 0))
	assert.Equal(t, 46.43, CompositeScore(33.33, 60, 50.33))
}

func TestCompositeScore_Monotonic(t *testing.T) {
	steps := []float64{0, 12.5, 33.33, 50, 66.67, 80, 99.99, 100}
	fixed := []float64{0, 40, 100}
	for _, a := range fixed {
		for _, b := range fixed {
			prevSkill, prevExp, prevText := -1.0, -1.0, -1.0
			for _, x := range steps {
				skill := CompositeScore(x, a, b)
				exp := CompositeScore(a, x, b)
				text := CompositeScore(a, b, x)
				assert.GreaterOrEqual(t, skill, prevSkill)
				assert.GreaterOrEqual(t, exp, prevExp)
				assert.GreaterOrEqual(t, text, prevText)
				prevSkill, prevExp, prevText = skill, exp, text
			}
		}
	}
}

func TestRecommend_Thresholds(t *testing.T) {
	tests := []struct {
		total float64
		want  types.Recommendation
	}{
		{100, types.RecommendStrongly},
		{80, types.RecommendStrongly},
		{79.99, types.Recommend},
		{60, types.Recommend},
		{59.99, types.RecommendNeutral},
		{40, types.RecommendNeutral},
		{39.99, types.RecommendNot},
		{0, types.RecommendNot},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Recommend(tt.total), "总分 %.2f", tt.total)
	}
	assert.Equal(t, "强烈推荐", types.RecommendStrongly.Label())
	assert.Equal(t, "不推荐", types.RecommendNot.Label())
}

func TestEngine_JobVocabulary(t *testing.T) {
	engine := NewEngine(vocab.Default(), WithJobVocabulary(vocab.Default().Extend(vocab.EmploymentTerms...)))
	keywords := engine.JobKeywords("Go 实习生，可远程")
	assert.Equal(t, []string{"Go", "实习", "远程"}, keywords)

	plain := NewEngine(vocab.Default())
	assert.Equal(t, []string{"Go"}, plain.JobKeywords("Go 实习生，可远程"))
}

func TestEngine_EmptyInputs(t *testing.T) {
	engine := NewEngine(vocab.Default())
	result := engine.Match(types.ResumeView{}, "")
	assert.Equal(t, 0.0, result.SkillMatch)
	assert.Equal(t, 50.0, result.ExperienceMatch)
	assert.Equal(t, 0.0, result.TextSimilarity)
	assert.Equal(t, 15.0, result.TotalScore)
	assert.Equal(t, types.RecommendNot, result.Recommendation)
	assert.NotNil(t, result.MatchedSkills)
	assert.NotNil(t, result.JobKeywords)
}
