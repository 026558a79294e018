package service

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/uuid"

	"github.com/iWorld-y/opinion_radar/pkg/config"
	dm "github.com/iWorld-y/opinion_radar/pkg/model"
	"github.com/iWorld-y/opinion_radar/pkg/storage"
)

// API 层分页边界，严于存储层
const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxBodyBytes    = 1 << 20 // 1MB
)

// Analyzer 分析流水线能力
type Analyzer interface {
	Analyze(ctx context.Context, req *dm.AnalysisRequest) (*dm.AnalysisResult, error)
}

// AnalysisService 观点分析 HTTP 服务
type AnalysisService struct {
	engine Analyzer
	store  storage.Store
	env    string
	log    *log.Helper
}

// NewAnalysisService 创建服务实例
func NewAnalysisService(engine Analyzer, store storage.Store, cfg *config.Config, logger log.Logger) *AnalysisService {
	return &AnalysisService{
		engine: engine,
		store:  store,
		env:    cfg.Server.Env,
		log:    log.NewHelper(logger),
	}
}

// analyzeRequest 请求体，text 为 content 的别名
type analyzeRequest struct {
	Content  string `json:"content"`
	Text     string `json:"text"`
	URL      string `json:"url"`
	Language string `json:"language"`
}

func (r *analyzeRequest) toModel() *dm.AnalysisRequest {
	content := r.Content
	if content == "" {
		content = r.Text
	}
	return &dm.AnalysisRequest{
		Content:  content,
		URL:      r.URL,
		Language: r.Language,
	}
}

// Analyze POST /api/analyze
func (s *AnalysisService) Analyze(ctx khttp.Context) error {
	ctx.Request().Body = http.MaxBytesReader(ctx.Response(), ctx.Request().Body, maxBodyBytes)

	var req analyzeRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, errBody("invalid request body: "+err.Error()))
	}

	result, err := s.engine.Analyze(ctx, req.toModel())
	if err != nil {
		s.log.Errorf("analyze failed: %v", err)
		return ctx.JSON(http.StatusInternalServerError, errBody(err.Error()))
	}
	return ctx.Result(http.StatusOK, result)
}

// GetAnalysis GET /api/analysis/{id}
func (s *AnalysisService) GetAnalysis(ctx khttp.Context) error {
	id := ctx.Vars().Get("id")

	result, err := s.store.Get(ctx, id)
	if err != nil {
		s.log.Errorf("get analysis failed [%s]: %v", id, err)
		return ctx.JSON(http.StatusInternalServerError, errBody(err.Error()))
	}
	if result == nil {
		return ctx.JSON(http.StatusNotFound, errBody("Not found"))
	}
	return ctx.Result(http.StatusOK, result)
}

// listReply GET /api/analyses/all 响应体
type listReply struct {
	Page     int                  `json:"page"`
	PageSize int                  `json:"pageSize"`
	Items    []*dm.AnalysisResult `json:"items"`
}

// ListAnalyses GET /api/analyses/all?page=&pageSize=
func (s *AnalysisService) ListAnalyses(ctx khttp.Context) error {
	page, pageSize := parsePagination(ctx.Query().Get("page"), ctx.Query().Get("pageSize"))

	items, err := s.store.List(ctx, page, pageSize)
	if err != nil {
		s.log.Errorf("list analyses failed: %v", err)
		return ctx.JSON(http.StatusInternalServerError, errBody(err.Error()))
	}
	if items == nil {
		items = []*dm.AnalysisResult{}
	}
	return ctx.Result(http.StatusOK, &listReply{Page: page, PageSize: pageSize, Items: items})
}

// SaveAnalysis POST /api/analysis/save
func (s *AnalysisService) SaveAnalysis(ctx khttp.Context) error {
	ctx.Request().Body = http.MaxBytesReader(ctx.Response(), ctx.Request().Body, maxBodyBytes)

	var payload dm.AnalysisResult
	if err := ctx.Bind(&payload); err != nil {
		return ctx.JSON(http.StatusBadRequest, errBody("invalid request body: "+err.Error()))
	}
	if payload.AnalysisID == "" {
		payload.AnalysisID = uuid.NewString()
	}
	if payload.AnalyzedAt == "" {
		payload.AnalyzedAt = time.Now().UTC().Format(time.RFC3339)
	}

	if err := s.store.Save(ctx, &payload); err != nil {
		s.log.Errorf("save analysis failed [%s]: %v", payload.AnalysisID, err)
		return ctx.JSON(http.StatusInternalServerError, errBody(err.Error()))
	}
	return ctx.Result(http.StatusOK, map[string]interface{}{
		"ok":         true,
		"analysisId": payload.AnalysisID,
	})
}

// Health GET /health
func (s *AnalysisService) Health(ctx khttp.Context) error {
	return ctx.Result(http.StatusOK, map[string]interface{}{
		"ok":  true,
		"env": s.env,
	})
}

func errBody(detail string) map[string]string {
	return map[string]string{"detail": detail}
}

// parsePagination 解析并收敛分页参数：page >= 1，pageSize ∈ [1, 100]
func parsePagination(pageStr, pageSizeStr string) (int, int) {
	page := 1
	if v, err := strconv.Atoi(pageStr); err == nil && v >= 1 {
		page = v
	}

	pageSize := defaultPageSize
	if v, err := strconv.Atoi(pageSizeStr); err == nil {
		pageSize = v
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
