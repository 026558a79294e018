package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/gg/gson"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/opinion_radar/pkg/config"
	"github.com/iWorld-y/opinion_radar/pkg/extract"
	"github.com/iWorld-y/opinion_radar/pkg/keywords"
	"github.com/iWorld-y/opinion_radar/pkg/logger"
	dm "github.com/iWorld-y/opinion_radar/pkg/model"
	"github.com/iWorld-y/opinion_radar/pkg/search/factory"
	"github.com/iWorld-y/opinion_radar/pkg/storage"
)

// ErrLLMNotConfigured 未配置 LLM 凭证，属于部署配置错误而非请求错误
var ErrLLMNotConfigured = errors.New("OPENAI_API_KEY is not configured on the server")

// ErrModelResponse 模型返回为空或无法解析为要求的 JSON 结构
var ErrModelResponse = errors.New("llm response unusable")

const (
	// 校验阶段送入模型的内容上限
	validateExcerptRunes = 4000
	// 无关键词可用时取内容前缀作为检索词
	queryPrefixRunes = 80
	// 内容为空时的兜底检索词
	fallbackQuery = "AI 정책 논의"
	// 校验不通过时固定的低置信度
	invalidConfidence = 0.2

	maxSupportOpinions     = 5
	maxOpposeOpinions      = 5
	maxNeutralOpinions     = 3
	maxAlternativeOpinions = 3
)

// SourceAggregator 三路来源聚合能力，聚合永不失败，只会降级
type SourceAggregator interface {
	Aggregate(ctx context.Context, query, language string) *dm.SourceSet
}

// ExtractFunc URL 正文抽取能力
type ExtractFunc func(url string) (*extract.Article, error)

// Engine 观点分析核心引擎
// 流水线：内容解析 → LLM 校验 → （有效时）来源聚合 → LLM 综合分析 → 归一化 → 落库
type Engine struct {
	cfg           *config.Config
	store         storage.Store
	validateModel model.ChatModel // temperature 0，分类任务
	analyzeModel  model.ChatModel // temperature 0.2，允许自然措辞
	sources       SourceAggregator
	extract       ExtractFunc
	limiter       *rate.Limiter
}

// NewEngine 创建引擎实例
// 未配置 LLM 凭证时仍可创建成功，分析请求到达时返回 ErrLLMNotConfigured，
// 以保证健康检查与查询接口不受影响
func NewEngine(cfg *config.Config, store storage.Store) (*Engine, error) {
	ctx := context.Background()

	var validateModel, analyzeModel model.ChatModel
	if cfg.LLM.APIKey != "" {
		validateTemp := float32(0)
		vm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: &validateTemp,
		})
		if err != nil {
			return nil, fmt.Errorf("LLM 初始化失败: %w", err)
		}
		analyzeTemp := float32(0.2)
		am, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: &analyzeTemp,
		})
		if err != nil {
			return nil, fmt.Errorf("LLM 初始化失败: %w", err)
		}
		validateModel = vm
		analyzeModel = am
	} else {
		logger.Log.Warn("未配置 OPENAI_API_KEY，/api/analyze 将直接报配置错误")
	}

	limit := rate.Limit(float64(cfg.Concurrency.RPM) / 60.0)
	limiter := rate.NewLimiter(limit, cfg.Concurrency.QPS)

	return &Engine{
		cfg:           cfg,
		store:         store,
		validateModel: validateModel,
		analyzeModel:  analyzeModel,
		sources:       factory.NewAggregator(cfg),
		extract:       extract.FromURL,
		limiter:       limiter,
	}, nil
}

// Analyze 执行一次完整的观点分析
// 校验不通过是正常结果（isValid=false 并落库）；LLM 调用失败才是错误
func (e *Engine) Analyze(ctx context.Context, req *dm.AnalysisRequest) (*dm.AnalysisResult, error) {
	if e.validateModel == nil || e.analyzeModel == nil {
		return nil, ErrLLMNotConfigured
	}

	// 1. 解析有效内容：content 优先，缺失时尽力从 URL 抽取
	resolved := *req
	var extractedTitle string
	if strings.TrimSpace(resolved.Content) == "" && resolved.URL != "" && e.extract != nil {
		art, err := e.extract(resolved.URL)
		if err != nil {
			logger.Log.Warnf("正文抽取失败 [%s]: %v", resolved.URL, err)
		} else if art != nil {
			if art.Title != "" {
				resolved.Content = art.Title + "\n\n" + art.Text
			} else {
				resolved.Content = art.Text
			}
			extractedTitle = art.Title
		}
	}

	// 2. 内容校验
	filter, err := e.validateContent(ctx, &resolved)
	if err != nil {
		return nil, fmt.Errorf("内容校验失败: %w", err)
	}

	// 3. 校验不通过：跳过聚合与综合分析，直接构造最小结果落库
	if !filter.IsValid {
		result := buildInvalidResult(filter)
		normalizeResult(result)
		if err := e.store.Save(ctx, result); err != nil {
			return nil, fmt.Errorf("保存分析结果失败: %w", err)
		}
		logger.Log.Infof("内容校验不通过 [%s]: %s", result.AnalysisID, result.InvalidReason)
		return result, nil
	}

	// 4. 派生检索词并发起三路聚合
	query := deriveQuery(resolved.Content, resolved.URL)
	sources := e.sources.Aggregate(ctx, query, resolved.Language)
	logger.Log.Debugf("聚合来源 [query=%s]: %s", query, gson.ToString(sources))

	// 5. 综合分析
	result, err := e.synthesize(ctx, &resolved, sources)
	if err != nil {
		return nil, fmt.Errorf("综合分析失败: %w", err)
	}

	// 6. 模型输出视为不可信输入：落地校验、裁剪、补齐
	sanitizeResult(result, sources)
	if result.OriginalContent.Title == "" && extractedTitle != "" {
		result.OriginalContent.Title = extractedTitle
	}
	normalizeResult(result)

	// 7. 落库
	if err := e.store.Save(ctx, result); err != nil {
		return nil, fmt.Errorf("保存分析结果失败: %w", err)
	}
	logger.Log.Infof("分析完成 [%s]: 支持 %d / 反对 %d / 中立 %d / 替代 %d, confidence=%.2f",
		result.AnalysisID, len(result.SupportOpinions), len(result.OpposeOpinions),
		len(result.NeutralOpinions), len(result.AlternativeOpinions), result.Confidence)
	return result, nil
}

// validateContent 第一次 LLM 调用：判定内容是否可分析并提取最小元信息
func (e *Engine) validateContent(ctx context.Context, req *dm.AnalysisRequest) (*dm.FilterResult, error) {
	excerpt := truncateRunes(req.Content, validateExcerptRunes)
	language := req.Language
	if language == "" {
		language = "auto"
	}

	raw, err := e.generate(ctx, e.validateModel, validatorSystemPrompt,
		fmt.Sprintf(validatorUserTemplate, req.URL, language, excerpt))
	if err != nil {
		return nil, err
	}

	var filter dm.FilterResult
	if err := json.Unmarshal([]byte(raw), &filter); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelResponse, err)
	}
	return &filter, nil
}

// synthesize 第二次 LLM 调用：基于聚合来源产出完整的观点分析
func (e *Engine) synthesize(ctx context.Context, req *dm.AnalysisRequest, sources *dm.SourceSet) (*dm.AnalysisResult, error) {
	language := req.Language
	if language == "" {
		language = "auto"
	}

	ytJSON, _ := json.Marshal(sources.YouTube)
	blogJSON, _ := json.Marshal(sources.Blogs)
	newsJSON, _ := json.Marshal(sources.News)

	raw, err := e.generate(ctx, e.analyzeModel, analystSystemPrompt,
		fmt.Sprintf(analystUserTemplate, language, req.URL, req.Content, ytJSON, blogJSON, newsJSON))
	if err != nil {
		return nil, err
	}

	var result dm.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelResponse, err)
	}
	return &result, nil
}

// generate 统一的模型调用入口：限流、调用、剥离代码围栏
func (e *Engine) generate(ctx context.Context, cm model.ChatModel, system, user string) (string, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return "", err
	}

	messages := []*schema.Message{
		{Role: schema.System, Content: system},
		{Role: schema.User, Content: user},
	}

	resp, err := cm.Generate(ctx, messages)
	if err != nil {
		return "", err
	}

	clean := strings.TrimSpace(resp.Content)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return "", fmt.Errorf("%w: empty content", ErrModelResponse)
	}
	return clean, nil
}

// deriveQuery 派生检索词：关键词优于内容前缀，其次 URL，最后兜底
func deriveQuery(content, url string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		if url != "" {
			return url
		}
		return fallbackQuery
	}

	if kws := keywords.ExtractTop(trimmed, 6); len(kws) >= 2 {
		if len(kws) > 5 {
			kws = kws[:5]
		}
		return strings.Join(kws, " ")
	}
	return truncateRunes(trimmed, queryPrefixRunes)
}

// buildInvalidResult 校验不通过时的最小结果，形态与有效结果一致以便统一存取
func buildInvalidResult(filter *dm.FilterResult) *dm.AnalysisResult {
	reason := filter.InvalidReason
	if reason == "" {
		reason = "Not a valid news article"
	}
	language := filter.DetectedLanguage
	if language == "" {
		language = "auto"
	}
	kws := filter.Keywords
	if kws == nil {
		kws = []string{}
	}

	return &dm.AnalysisResult{
		IsValid:       false,
		InvalidReason: reason,
		OriginalContent: dm.OriginalContent{
			Summary:          filter.Summary,
			DetectedLanguage: language,
		},
		Keywords:            kws,
		SupportOpinions:     []dm.OpinionSource{},
		OpposeOpinions:      []dm.OpinionSource{},
		NeutralOpinions:     []dm.OpinionSource{},
		AlternativeOpinions: []dm.OpinionSource{},
		Confidence:          invalidConfidence,
	}
}

// sanitizeResult 对模型输出做落地校验：
// 观点只保留 URL 确实来自聚合来源的条目（模型不得编造来源），
// 桶大小按约束上限截断，confidence 收敛到 [0,1]
func sanitizeResult(result *dm.AnalysisResult, sources *dm.SourceSet) {
	urls := sources.URLs()
	result.SupportOpinions = filterGrounded(result.SupportOpinions, urls, maxSupportOpinions)
	result.OpposeOpinions = filterGrounded(result.OpposeOpinions, urls, maxOpposeOpinions)
	result.NeutralOpinions = filterGrounded(result.NeutralOpinions, urls, maxNeutralOpinions)
	result.AlternativeOpinions = filterGrounded(result.AlternativeOpinions, urls, maxAlternativeOpinions)

	if result.Confidence < 0 {
		result.Confidence = 0
	} else if result.Confidence > 1 {
		result.Confidence = 1
	}
	if result.Keywords == nil {
		result.Keywords = []string{}
	}
	if result.OriginalContent.DetectedLanguage == "" {
		result.OriginalContent.DetectedLanguage = "auto"
	}
}

func filterGrounded(opinions []dm.OpinionSource, urls map[string]struct{}, max int) []dm.OpinionSource {
	out := make([]dm.OpinionSource, 0, len(opinions))
	for _, op := range opinions {
		if op.URL == "" {
			continue
		}
		if _, ok := urls[op.URL]; !ok {
			continue
		}
		out = append(out, op)
		if len(out) == max {
			break
		}
	}
	return out
}

// normalizeResult 补齐 id 与时间戳
func normalizeResult(result *dm.AnalysisResult) {
	if result.AnalysisID == "" {
		result.AnalysisID = uuid.NewString()
	}
	if result.AnalyzedAt == "" {
		result.AnalyzedAt = time.Now().UTC().Format(time.RFC3339)
	}
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
