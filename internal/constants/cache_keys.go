package constants

// 缓存键前缀，完整键格式为 {prefix}:{md5(参数JSON)}
const (
	// ResumeExtractPrefix 按文本内容缓存的提取结果
	// 参数: {"text": 归一化文本}
	ResumeExtractPrefix = "resume"

	// ResumeRecordPrefix 上传简历记录
	// 参数: {"resume_id": id}
	ResumeRecordPrefix = "resume"

	// MatchPrefix 匹配结果
	// 参数: {"resume_id": id, "job_description": jd} 或 {"resume_text": 文本, "job_description": jd}
	MatchPrefix = "match"
)

// 缓存参数字段名
const (
	ParamText           = "text"
	ParamResumeID       = "resume_id"
	ParamResumeText     = "resume_text"
	ParamJobDescription = "job_description"
)
