package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/iWorld-y/opinion_radar/pkg/model"
)

const connectTimeout = 10 * time.Second

// PostgresStore 基于 JSONB 的持久化存储，按 analysisId 主键覆盖写
type PostgresStore struct {
	db *sql.DB
}

// Ensure PostgresStore implements Store
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore 连接数据库并初始化表结构，连接不可用时快速失败
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS analyses (
			id TEXT PRIMARY KEY,
			data JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init analyses table: %w", err)
	}
	// created_at 索引仅用于列表排序
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses (created_at)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init analyses index: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Save(ctx context.Context, result *model.AnalysisResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result failed: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, data) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
		result.AnalysisID, data)
	if err != nil {
		return fmt.Errorf("save analysis failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*model.AnalysisResult, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM analyses WHERE id = $1`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis failed: %w", err)
	}

	var result model.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal stored analysis failed: %w", err)
	}
	return &result, nil
}

func (s *PostgresStore) List(ctx context.Context, page, pageSize int) ([]*model.AnalysisResult, error) {
	page, pageSize = clampPage(page, pageSize)
	offset := (page - 1) * pageSize

	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM analyses ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list analyses failed: %w", err)
	}
	defer rows.Close()

	var results []*model.AnalysisResult
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var result model.AnalysisResult
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("unmarshal stored analysis failed: %w", err)
		}
		results = append(results, &result)
	}
	return results, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
