package textutil

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/go-ego/gse"

	"resume-matcher/internal/logger"
)

// DefaultTopN 关键词排序默认返回数量
const DefaultTopN = 10

// Tokenizer 文本分词器
type Tokenizer interface {
	Cut(text string) ([]string, error)
}

// GseTokenizer 基于gse的中文分词器，首次使用时加载内置词典
type GseTokenizer struct {
	once    sync.Once
	seg     gse.Segmenter
	loadErr error
}

// NewGseTokenizer 创建gse分词器，词典延迟加载
func NewGseTokenizer() *GseTokenizer {
	return &GseTokenizer{}
}

// Cut 使用DAG+HMM模式分词
func (g *GseTokenizer) Cut(text string) ([]string, error) {
	g.once.Do(func() {
		if err := g.seg.LoadDictEmbed(); err != nil {
			g.loadErr = fmt.Errorf("加载gse词典失败: %w", err)
		}
	})
	if g.loadErr != nil {
		return nil, g.loadErr
	}
	return g.seg.Cut(text, true), nil
}

// KeywordRanker 统计词频并返回高频关键词
type KeywordRanker struct {
	tokenizer Tokenizer
}

// NewKeywordRanker 创建关键词排序器，tokenizer为nil时使用gse分词
func NewKeywordRanker(tokenizer Tokenizer) *KeywordRanker {
	if tokenizer == nil {
		tokenizer = NewGseTokenizer()
	}
	return &KeywordRanker{tokenizer: tokenizer}
}

// Rank 返回出现频率最高的topN个词，频率相同按首次出现顺序。
// 单字符词与纯标点/空白词会被丢弃；分词失败时返回空列表。
func (k *KeywordRanker) Rank(text string, topN int) (keywords []string) {
	keywords = []string{}
	if topN <= 0 || strings.TrimSpace(text) == "" {
		return keywords
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Component("textutil").Error().Interface("panic", r).Msg("关键词分词异常")
			keywords = []string{}
		}
	}()

	tokens, err := k.tokenizer.Cut(text)
	if err != nil {
		logger.Component("textutil").Warn().Err(err).Msg("关键词分词失败，返回空列表")
		return keywords
	}

	counts := make(map[string]int)
	order := make([]string, 0)
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if utf8.RuneCountInString(tok) <= 1 || !hasWordRune(tok) {
			continue
		}
		if _, ok := counts[tok]; !ok {
			order = append(order, tok)
		}
		counts[tok]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > topN {
		order = order[:topN]
	}
	return order
}

func hasWordRune(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
