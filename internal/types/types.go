package types

import "time"

// BaseInfo 简历基础信息
// 所有字段均可缺失，缺失时序列化为 null
type BaseInfo struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"` // 仅包含数字
	Email   *string `json:"email"` // 小写且去除首尾空白
	Address *string `json:"address"`
}

// HasContact 电话或邮箱至少一项非空
func (b BaseInfo) HasContact() bool {
	return nonEmpty(b.Phone) || nonEmpty(b.Email)
}

// OptionalInfo 简历可选信息
type OptionalInfo struct {
	JobIntention        *string `json:"job_intention"`
	WorkExperienceYears *int    `json:"work_experience_years"`
	EducationBackground *string `json:"education_background"`
}

// HasSignal 求职意向或工作年限至少一项存在
func (o OptionalInfo) HasSignal() bool {
	return nonEmpty(o.JobIntention) || o.WorkExperienceYears != nil
}

// ExtractionResult 一次完整提取的结果，创建后不再修改
type ExtractionResult struct {
	BaseInfo     BaseInfo     `json:"base_info"`
	OptionalInfo OptionalInfo `json:"optional_info"`
	Skills       []string     `json:"skills"`
	Keywords     []string     `json:"keywords"`
	Summary      *string      `json:"summary"`
}

// ResumeView 匹配引擎所需的简历视图
type ResumeView struct {
	Skills       []string
	ResumeText   string
	OptionalInfo OptionalInfo
}

// ViewOf 从提取结果和归一化文本构造匹配视图
func ViewOf(result ExtractionResult, resumeText string) ResumeView {
	return ResumeView{
		Skills:       result.Skills,
		ResumeText:   resumeText,
		OptionalInfo: result.OptionalInfo,
	}
}

// Recommendation 推荐等级
type Recommendation string

const (
	RecommendStrongly Recommendation = "strongly_recommend"
	Recommend         Recommendation = "recommend"
	RecommendNeutral  Recommendation = "neutral"
	RecommendNot      Recommendation = "not_recommend"
)

// Label 返回推荐等级的中文展示名
func (r Recommendation) Label() string {
	switch r {
	case RecommendStrongly:
		return "强烈推荐"
	case Recommend:
		return "推荐"
	case RecommendNeutral:
		return "一般"
	default:
		return "不推荐"
	}
}

// MatchResult 简历与岗位的匹配结果
type MatchResult struct {
	TotalScore      float64        `json:"total_score"`
	SkillMatch      float64        `json:"skill_match"`
	ExperienceMatch float64        `json:"experience_match"`
	TextSimilarity  float64        `json:"text_similarity"`
	MatchedSkills   []string       `json:"matched_skills"`
	JobKeywords     []string       `json:"job_keywords"`
	Recommendation  Recommendation `json:"recommendation"`
}

// ResumeRecord 上传后缓存的简历记录
type ResumeRecord struct {
	ID         string           `json:"id"`
	Filename   string           `json:"filename"`
	Text       string           `json:"text"`
	Info       ExtractionResult `json:"info"`
	ObjectKey  string           `json:"object_key,omitempty"` // MinIO归档对象名，未启用归档时为空
	UploadedAt time.Time        `json:"uploaded_at"`
}

// StringPtr 返回s的指针，空字符串返回nil
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// IntPtr 返回n的指针
func IntPtr(n int) *int {
	return &n
}

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}
