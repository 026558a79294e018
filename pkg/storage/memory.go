package storage

import (
	"context"
	"sync"

	"github.com/iWorld-y/opinion_radar/pkg/model"
)

// MemoryStore 内存存储，未配置数据库时的降级实现
// 列表按首次写入顺序返回，分页为尽力而为的切片
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]model.AnalysisResult
	order []string
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]model.AnalysisResult)}
}

func (s *MemoryStore) Save(ctx context.Context, result *model.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[result.AnalysisID]; !exists {
		s.order = append(s.order, result.AnalysisID)
	}
	s.items[result.AnalysisID] = *result
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*model.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	return &result, nil
}

func (s *MemoryStore) List(ctx context.Context, page, pageSize int) ([]*model.AnalysisResult, error) {
	page, pageSize = clampPage(page, pageSize)
	offset := (page - 1) * pageSize

	s.mu.RLock()
	defer s.mu.RUnlock()

	if offset >= len(s.order) {
		return nil, nil
	}
	end := offset + pageSize
	if end > len(s.order) {
		end = len(s.order)
	}

	results := make([]*model.AnalysisResult, 0, end-offset)
	for _, id := range s.order[offset:end] {
		result := s.items[id]
		results = append(results, &result)
	}
	return results, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
