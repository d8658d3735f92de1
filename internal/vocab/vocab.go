// Package vocab 提供技能参考词表。
// Vocabulary 是不可变值，在构造时注入提取器与匹配引擎。
package vocab

import "strings"

// defaultSkills 默认技能词表：编程语言、框架、基础设施与领域术语
var defaultSkills = []string{
	"Python", "Java", "JavaScript", "C++", "C#", "Go", "Rust", "PHP",
	"React", "Vue", "Angular", "Django", "Flask", "Spring", "FastAPI",
	"MySQL", "MongoDB", "Redis", "PostgreSQL", "Oracle",
	"Docker", "Kubernetes", "AWS", "GCP", "Azure",
	"Git", "Linux", "SQL", "RESTful", "API",
	"HTML", "CSS", "Webpack", "Node.js", "Express",
	"TensorFlow", "PyTorch", "Keras", "Scikit-learn",
	"MQ", "Kafka", "RabbitMQ", "Elasticsearch",
	"微服务", "分布式", "高并发", "数据分析", "机器学习",
	"AI", "NLP", "深度学习", "计算机视觉", "大数据",
}

// EmploymentTerms 招聘描述中常见的用工类型词，可通过 Extend 加入岗位词表
var EmploymentTerms = []string{"实习", "校招", "社招", "全职", "兼职", "远程"}

// Vocabulary 不可变的技能词表
type Vocabulary struct {
	terms []string
	lower []string
}

// New 创建词表，忽略空白项并按首次出现去重(大小写不敏感)
func New(terms ...string) Vocabulary {
	v := Vocabulary{}
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		l := strings.ToLower(t)
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		v.terms = append(v.terms, t)
		v.lower = append(v.lower, l)
	}
	return v
}

// Default 返回默认技能词表
func Default() Vocabulary {
	return New(defaultSkills...)
}

// Extend 返回追加了额外词条的新词表，原词表不变
func (v Vocabulary) Extend(extra ...string) Vocabulary {
	all := make([]string, 0, len(v.terms)+len(extra))
	all = append(all, v.terms...)
	all = append(all, extra...)
	return New(all...)
}

// Terms 返回词条副本
func (v Vocabulary) Terms() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}

// Len 词条数量
func (v Vocabulary) Len() int {
	return len(v.terms)
}

// Match 对文本做大小写不敏感的子串匹配，按词表顺序返回命中的词条
func (v Vocabulary) Match(text string) []string {
	if text == "" {
		return []string{}
	}
	lowerText := strings.ToLower(text)
	matched := make([]string, 0)
	for i, l := range v.lower {
		if strings.Contains(lowerText, l) {
			matched = append(matched, v.terms[i])
		}
	}
	return matched
}
