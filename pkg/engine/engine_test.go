package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/opinion_radar/pkg/config"
	"github.com/iWorld-y/opinion_radar/pkg/extract"
	dm "github.com/iWorld-y/opinion_radar/pkg/model"
	"github.com/iWorld-y/opinion_radar/pkg/storage"
)

// fakeChatModel 按脚本返回固定内容的 ChatModel
type fakeChatModel struct {
	content  string
	err      error
	calls    int
	lastUser string
}

func (f *fakeChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.calls++
	for _, m := range messages {
		if m.Role == schema.User {
			f.lastUser = m.Content
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &schema.Message{Role: schema.Assistant, Content: f.content}, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func (f *fakeChatModel) BindTools(tools []*schema.ToolInfo) error {
	return nil
}

// fakeAggregator 返回固定来源集合并记录调用次数
type fakeAggregator struct {
	set   *dm.SourceSet
	calls int
	query string
}

func (f *fakeAggregator) Aggregate(ctx context.Context, query, language string) *dm.SourceSet {
	f.calls++
	f.query = query
	if f.set != nil {
		return f.set
	}
	return &dm.SourceSet{News: []dm.OpinionSource{}, YouTube: []dm.OpinionSource{}, Blogs: []dm.OpinionSource{}}
}

func testConfig() *config.Config {
	return &config.Config{
		LLM:         config.LLMConfig{APIKey: "test-key", Model: "gpt-4o-mini"},
		Concurrency: config.ConcurrencyConfig{QPS: 10, RPM: 600},
	}
}

func newTestEngine(store storage.Store, validate, analyze *fakeChatModel, agg SourceAggregator) *Engine {
	e := &Engine{
		cfg:     testConfig(),
		store:   store,
		sources: agg,
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	if validate != nil {
		e.validateModel = validate
	}
	if analyze != nil {
		e.analyzeModel = analyze
	}
	return e
}

func validFilterJSON() string {
	return `{"isValid": true, "summary": "탄소세 법안을 둘러싼 논쟁", "detectedLanguage": "ko", "keywords": ["탄소세", "법안", "환경", "산업계", "국회"]}`
}

func fixedSources() *dm.SourceSet {
	return &dm.SourceSet{
		News: []dm.OpinionSource{
			{Title: "탄소세 법안 통과", URL: "https://news.example/1", Source: "Example Times", SourceType: dm.SourceTypeNews, Snippet: "국회 통과", RelevanceScore: 0.7},
			{Title: "산업계 반발", URL: "https://news.example/2", Source: "Daily News", SourceType: dm.SourceTypeNews, Snippet: "비용 부담", RelevanceScore: 0.7},
		},
		YouTube: []dm.OpinionSource{
			{Title: "탄소세 해설", URL: "https://www.youtube.com/watch?v=abc", Source: "YouTube", SourceType: dm.SourceTypeYouTube, Snippet: "영상 해설", RelevanceScore: 0.7},
		},
		Blogs: []dm.OpinionSource{
			{Title: "탄소세 찬반", URL: "https://blog.example/1", Source: "Naver Blog", SourceType: dm.SourceTypeBlog, Snippet: "블로그 의견", RelevanceScore: 0.7},
		},
	}
}

func synthesisJSON(t *testing.T, mutate func(*dm.AnalysisResult)) string {
	t.Helper()
	src := fixedSources()
	result := &dm.AnalysisResult{
		IsValid: true,
		OriginalContent: dm.OriginalContent{
			Summary:          "탄소세 도입 법안에 대한 찬반 분석",
			DetectedLanguage: "ko",
		},
		Keywords:            []string{"탄소세", "법안", "환경", "산업계", "국회"},
		SupportOpinions:     []dm.OpinionSource{src.News[0]},
		OpposeOpinions:      []dm.OpinionSource{src.News[1]},
		NeutralOpinions:     []dm.OpinionSource{src.YouTube[0]},
		AlternativeOpinions: []dm.OpinionSource{src.Blogs[0]},
		FuturePrediction:    "시행령 논의가 이어질 전망이다.",
		Confidence:          0.82,
	}
	if mutate != nil {
		mutate(result)
	}
	data, err := json.Marshal(result)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

const longArticle = `정부가 발의한 탄소세 법안을 두고 찬반 논쟁이 격화되고 있다. 환경 단체는 배출량 감축을 위한
필수 정책이라고 지지하는 반면, 산업계는 비용 부담과 경쟁력 약화를 이유로 강하게 반발하고 있다.
국회는 다음 달 공청회를 열어 각계 의견을 수렴할 예정이며, 전문가들은 세율과 감면 조항이 쟁점이 될
것으로 내다보고 있다.`

func TestAnalyze_ValidContent(t *testing.T) {
	store := storage.NewMemoryStore()
	validate := &fakeChatModel{content: validFilterJSON()}
	analyze := &fakeChatModel{content: synthesisJSON(t, nil)}
	agg := &fakeAggregator{set: fixedSources()}
	e := newTestEngine(store, validate, analyze, agg)

	before := time.Now().UTC().Add(-time.Second)
	result, err := e.Analyze(context.Background(), &dm.AnalysisRequest{Content: longArticle})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	after := time.Now().UTC().Add(time.Second)

	if !result.IsValid {
		t.Error("IsValid = false, want true")
	}
	if result.AnalysisID == "" {
		t.Error("AnalysisID not generated")
	}
	ts, err := time.Parse(time.RFC3339, result.AnalyzedAt)
	if err != nil {
		t.Fatalf("AnalyzedAt %q not RFC3339: %v", result.AnalyzedAt, err)
	}
	if ts.Before(before) || ts.After(after) {
		t.Errorf("AnalyzedAt %v outside test window", ts)
	}
	if len(result.SupportOpinions) == 0 || result.SupportOpinions[0].URL != "https://news.example/1" {
		t.Errorf("SupportOpinions = %+v, want mocked news url first", result.SupportOpinions)
	}
	if agg.calls != 1 {
		t.Errorf("aggregator calls = %d, want 1", agg.calls)
	}

	// 结果必须已落库
	stored, err := store.Get(context.Background(), result.AnalysisID)
	if err != nil || stored == nil {
		t.Fatalf("result not persisted: %v", err)
	}
	if stored.AnalysisID != result.AnalysisID {
		t.Errorf("stored id = %q, want %q", stored.AnalysisID, result.AnalysisID)
	}
}

func TestAnalyze_KeywordQueryDerivation(t *testing.T) {
	store := storage.NewMemoryStore()
	validate := &fakeChatModel{content: validFilterJSON()}
	analyze := &fakeChatModel{content: synthesisJSON(t, nil)}
	agg := &fakeAggregator{set: fixedSources()}
	e := newTestEngine(store, validate, analyze, agg)

	if _, err := e.Analyze(context.Background(), &dm.AnalysisRequest{Content: longArticle}); err != nil {
		t.Fatal(err)
	}
	if agg.query == "" || len(agg.query) >= len(longArticle) {
		t.Errorf("query = %q, want compact keyword query", agg.query)
	}
	if strings.Contains(agg.query, "\n") {
		t.Errorf("query %q should be keywords joined by spaces", agg.query)
	}
}

func TestAnalyze_InvalidShortCircuit(t *testing.T) {
	store := storage.NewMemoryStore()
	validate := &fakeChatModel{content: `{"isValid": false, "invalidReason": "Not a valid news article"}`}
	analyze := &fakeChatModel{content: synthesisJSON(t, nil)}
	agg := &fakeAggregator{set: fixedSources()}
	e := newTestEngine(store, validate, analyze, agg)

	result, err := e.Analyze(context.Background(), &dm.AnalysisRequest{Content: "buy cheap shoes now!!!"})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if result.IsValid {
		t.Error("IsValid = true, want false")
	}
	if result.InvalidReason != "Not a valid news article" {
		t.Errorf("InvalidReason = %q", result.InvalidReason)
	}
	if len(result.SupportOpinions) != 0 {
		t.Errorf("SupportOpinions = %v, want empty", result.SupportOpinions)
	}
	if result.Confidence > 0.3 {
		t.Errorf("Confidence = %v, want <= 0.3", result.Confidence)
	}
	// 聚合器与综合分析不应被调用
	if agg.calls != 0 {
		t.Errorf("aggregator calls = %d, want 0", agg.calls)
	}
	if analyze.calls != 0 {
		t.Errorf("synthesizer calls = %d, want 0", analyze.calls)
	}
	// 无效结果同样落库以供审计
	stored, err := store.Get(context.Background(), result.AnalysisID)
	if err != nil || stored == nil {
		t.Fatalf("invalid result not persisted: %v", err)
	}
}

func TestAnalyze_MissingLLMKey(t *testing.T) {
	store := storage.NewMemoryStore()
	e := newTestEngine(store, nil, nil, &fakeAggregator{})

	_, err := e.Analyze(context.Background(), &dm.AnalysisRequest{Content: "anything"})
	if !errors.Is(err, ErrLLMNotConfigured) {
		t.Fatalf("Analyze() error = %v, want ErrLLMNotConfigured", err)
	}

	results, _ := store.List(context.Background(), 1, 10)
	if len(results) != 0 {
		t.Errorf("nothing should be persisted, got %d results", len(results))
	}
}

func TestAnalyze_URLOnlyInput(t *testing.T) {
	store := storage.NewMemoryStore()
	validate := &fakeChatModel{content: validFilterJSON()}
	analyze := &fakeChatModel{content: synthesisJSON(t, nil)}
	e := newTestEngine(store, validate, analyze, &fakeAggregator{set: fixedSources()})
	e.extract = func(url string) (*extract.Article, error) {
		return &extract.Article{Title: "T", Text: "body text"}, nil
	}

	if _, err := e.Analyze(context.Background(), &dm.AnalysisRequest{URL: "https://example.com/article"}); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if !strings.Contains(validate.lastUser, "T\n\nbody text") {
		t.Errorf("resolved content not passed downstream, prompt = %q", validate.lastUser)
	}
}

func TestAnalyze_ExtractionFailureDegrades(t *testing.T) {
	store := storage.NewMemoryStore()
	validate := &fakeChatModel{content: `{"isValid": false, "invalidReason": "Too short"}`}
	e := newTestEngine(store, validate, &fakeChatModel{}, &fakeAggregator{})
	e.extract = func(url string) (*extract.Article, error) {
		return nil, errors.New("fetch failed")
	}

	result, err := e.Analyze(context.Background(), &dm.AnalysisRequest{URL: "https://example.com/dead-link"})
	if err != nil {
		t.Fatalf("Analyze() error = %v, extraction failure must not abort", err)
	}
	if result.IsValid {
		t.Error("IsValid = true, want false for empty content")
	}
}

func TestAnalyze_EmptyInputStillCompletes(t *testing.T) {
	store := storage.NewMemoryStore()
	validate := &fakeChatModel{content: `{"isValid": false, "invalidReason": "Empty content"}`}
	e := newTestEngine(store, validate, &fakeChatModel{}, &fakeAggregator{})

	result, err := e.Analyze(context.Background(), &dm.AnalysisRequest{})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if result.IsValid {
		t.Error("empty input should be judged invalid")
	}
}

func TestAnalyze_GroundingFiltersFabricatedURLs(t *testing.T) {
	store := storage.NewMemoryStore()
	validate := &fakeChatModel{content: validFilterJSON()}
	analyze := &fakeChatModel{content: synthesisJSON(t, func(r *dm.AnalysisResult) {
		r.SupportOpinions = append(r.SupportOpinions, dm.OpinionSource{
			Title: "날조된 기사", URL: "https://fabricated.example/x", SourceType: dm.SourceTypeNews,
		})
		r.OpposeOpinions = append(r.OpposeOpinions, dm.OpinionSource{Title: "빈 URL"})
	})}
	agg := &fakeAggregator{set: fixedSources()}
	e := newTestEngine(store, validate, analyze, agg)

	result, err := e.Analyze(context.Background(), &dm.AnalysisRequest{Content: longArticle})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	known := fixedSources().URLs()
	for _, bucket := range [][]dm.OpinionSource{result.SupportOpinions, result.OpposeOpinions, result.NeutralOpinions, result.AlternativeOpinions} {
		for _, op := range bucket {
			if _, ok := known[op.URL]; !ok {
				t.Errorf("opinion url %q not in aggregated set", op.URL)
			}
		}
	}
}

func TestAnalyze_BucketTruncation(t *testing.T) {
	store := storage.NewMemoryStore()
	validate := &fakeChatModel{content: validFilterJSON()}
	analyze := &fakeChatModel{content: synthesisJSON(t, func(r *dm.AnalysisResult) {
		src := fixedSources()
		// 重复引用超过上限的条目
		for i := 0; i < 8; i++ {
			r.SupportOpinions = append(r.SupportOpinions, src.News[0])
		}
		r.Confidence = 1.7
	})}
	e := newTestEngine(store, validate, analyze, &fakeAggregator{set: fixedSources()})

	result, err := e.Analyze(context.Background(), &dm.AnalysisRequest{Content: longArticle})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(result.SupportOpinions) > 5 {
		t.Errorf("SupportOpinions = %d, want <= 5", len(result.SupportOpinions))
	}
	if result.Confidence > 1 {
		t.Errorf("Confidence = %v, want clamped to 1", result.Confidence)
	}
}

func TestAnalyze_ValidatorHardFailure(t *testing.T) {
	store := storage.NewMemoryStore()
	validate := &fakeChatModel{content: "this is not json"}
	e := newTestEngine(store, validate, &fakeChatModel{}, &fakeAggregator{})

	_, err := e.Analyze(context.Background(), &dm.AnalysisRequest{Content: longArticle})
	if !errors.Is(err, ErrModelResponse) {
		t.Fatalf("Analyze() error = %v, want ErrModelResponse", err)
	}
	results, _ := store.List(context.Background(), 1, 10)
	if len(results) != 0 {
		t.Errorf("failed analysis must not persist, got %d", len(results))
	}
}

func TestAnalyze_AllProvidersDegraded(t *testing.T) {
	store := storage.NewMemoryStore()
	validate := &fakeChatModel{content: validFilterJSON()}
	analyze := &fakeChatModel{content: synthesisJSON(t, func(r *dm.AnalysisResult) {
		// 无来源可引用时各桶为空
		r.SupportOpinions = nil
		r.OpposeOpinions = nil
		r.NeutralOpinions = nil
		r.AlternativeOpinions = nil
	})}
	agg := &fakeAggregator{} // 三路均为空
	e := newTestEngine(store, validate, analyze, agg)

	result, err := e.Analyze(context.Background(), &dm.AnalysisRequest{Content: longArticle})
	if err != nil {
		t.Fatalf("Analyze() error = %v, degraded sources must not abort", err)
	}
	if !result.IsValid {
		t.Error("IsValid = false, want true")
	}
	if agg.calls != 1 || analyze.calls != 1 {
		t.Errorf("pipeline did not reach synthesis: agg=%d analyze=%d", agg.calls, analyze.calls)
	}
}

func TestDeriveQuery(t *testing.T) {
	if got := deriveQuery("", ""); got != fallbackQuery {
		t.Errorf("deriveQuery(empty) = %q, want fallback", got)
	}
	if got := deriveQuery("", "https://example.com/a"); got != "https://example.com/a" {
		t.Errorf("deriveQuery(url only) = %q", got)
	}
	// 单个有效词不足以构成关键词查询，退回内容前缀
	if got := deriveQuery("hello", ""); got != "hello" {
		t.Errorf("deriveQuery(single word) = %q", got)
	}
}
