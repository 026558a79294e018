package model

// AnalysisRequest 分析请求入参，content 与 url 至少给一个才有意义
type AnalysisRequest struct {
	Content  string `json:"content,omitempty"`
	URL      string `json:"url,omitempty"`
	Language string `json:"language,omitempty"` // ISO 639-1 或 "auto"
}

// 来源类型枚举
const (
	SourceTypeNews    = "news"
	SourceTypeYouTube = "youtube"
	SourceTypeBlog    = "blog"
)

// OpinionSource 第三方来源引用，构造后不再修改
type OpinionSource struct {
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	Source         string  `json:"source"`
	SourceType     string  `json:"sourceType"` // news / youtube / blog
	Snippet        string  `json:"snippet"`
	PublishedDate  string  `json:"publishedDate,omitempty"`
	RelevanceScore float64 `json:"relevanceScore,omitempty"`
}

// OriginalContent 被分析内容的元信息
type OriginalContent struct {
	Title            string `json:"title,omitempty"`
	Summary          string `json:"summary"`
	DetectedLanguage string `json:"detectedLanguage"`
}

// AnalysisResult 一次分析的完整产出，按 analysisId 整体落库
type AnalysisResult struct {
	AnalysisID          string          `json:"analysisId"`
	IsValid             bool            `json:"isValid"`
	InvalidReason       string          `json:"invalidReason,omitempty"`
	OriginalContent     OriginalContent `json:"originalContent"`
	Keywords            []string        `json:"keywords"`
	SupportOpinions     []OpinionSource `json:"supportOpinions"`
	OpposeOpinions      []OpinionSource `json:"opposeOpinions"`
	NeutralOpinions     []OpinionSource `json:"neutralOpinions"`
	AlternativeOpinions []OpinionSource `json:"alternativeOpinions"`
	FuturePrediction    string          `json:"futurePrediction"`
	Confidence          float64         `json:"confidence"`
	AnalyzedAt          string          `json:"analyzedAt"` // ISO-8601
}

// FilterResult 内容校验（第一次 LLM 调用）的结构化输出
type FilterResult struct {
	IsValid          bool     `json:"isValid"`
	InvalidReason    string   `json:"invalidReason,omitempty"`
	Summary          string   `json:"summary,omitempty"`
	DetectedLanguage string   `json:"detectedLanguage,omitempty"`
	Keywords         []string `json:"keywords,omitempty"`
}

// SourceSet 聚合器产出的三路来源
type SourceSet struct {
	News    []OpinionSource `json:"news"`
	YouTube []OpinionSource `json:"youtube"`
	Blogs   []OpinionSource `json:"blogs"`
}

// URLs 返回集合内全部来源的 URL，用于落地校验
func (s *SourceSet) URLs() map[string]struct{} {
	urls := make(map[string]struct{})
	for _, group := range [][]OpinionSource{s.News, s.YouTube, s.Blogs} {
		for _, src := range group {
			if src.URL != "" {
				urls[src.URL] = struct{}{}
			}
		}
	}
	return urls
}
