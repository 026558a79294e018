package storage

import (
	"context"

	"github.com/iWorld-y/opinion_radar/pkg/config"
	"github.com/iWorld-y/opinion_radar/pkg/logger"
	"github.com/iWorld-y/opinion_radar/pkg/model"
)

// Store 分析结果存储接口
// Get 未命中时返回 (nil, nil)，不作为错误处理
type Store interface {
	// Save 按 analysisId 整体插入或覆盖
	Save(ctx context.Context, result *model.AnalysisResult) error
	// Get 按 id 查询，未命中返回 (nil, nil)
	Get(ctx context.Context, id string) (*model.AnalysisResult, error)
	// List 分页查询，page 从 1 开始
	List(ctx context.Context, page, pageSize int) ([]*model.AnalysisResult, error)
	Close() error
}

// NewStore 根据配置选择存储实现
// 未配置 DSN 或数据库连接失败时降级为内存存储，保证服务可用性优先于持久性
func NewStore(cfg *config.Config) Store {
	if cfg.DB.DSN == "" {
		logger.Log.Warn("未配置 DATABASE_URL，使用内存存储（重启后数据丢失）")
		return NewMemoryStore()
	}

	pg, err := NewPostgresStore(cfg.DB.DSN)
	if err != nil {
		logger.Log.Warnf("数据库初始化失败，降级为内存存储: %v", err)
		return NewMemoryStore()
	}
	logger.Log.Info("已连接 PostgreSQL 存储")
	return pg
}

// 分页参数边界，读路径独立收敛
const (
	defaultPageSize = 20
	maxPageSize     = 200
)

func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
