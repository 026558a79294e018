package storage

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/iWorld-y/opinion_radar/pkg/model"
)

func sampleResult(id string) *model.AnalysisResult {
	return &model.AnalysisResult{
		AnalysisID: id,
		IsValid:    true,
		OriginalContent: model.OriginalContent{
			Summary:          "탄소세 도입을 둘러싼 논쟁 요약",
			DetectedLanguage: "ko",
		},
		Keywords: []string{"탄소세", "정책"},
		SupportOpinions: []model.OpinionSource{
			{Title: "지지 기사", URL: "https://news.example/1", Source: "Example Times", SourceType: model.SourceTypeNews, Snippet: "..."},
		},
		OpposeOpinions:      []model.OpinionSource{},
		NeutralOpinions:     []model.OpinionSource{},
		AlternativeOpinions: []model.OpinionSource{},
		FuturePrediction:    "입법 논의가 이어질 전망이다.",
		Confidence:          0.8,
		AnalyzedAt:          "2025-08-30T09:00:00Z",
	}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	saved := sampleResult("id-1")
	if err := s.Save(ctx, saved); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.Get(ctx, "id-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !reflect.DeepEqual(got, saved) {
		t.Errorf("Get() = %+v, want %+v", got, saved)
	}
}

func TestMemoryStore_GetAbsent(t *testing.T) {
	s := NewMemoryStore()
	got, err := s.Get(context.Background(), "nonexistent-id")
	if err != nil {
		t.Fatalf("Get() error = %v, want nil", err)
	}
	if got != nil {
		t.Errorf("Get() = %+v, want nil marker", got)
	}
}

func TestMemoryStore_UpsertKeepsPosition(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.Save(ctx, sampleResult(fmt.Sprintf("id-%d", i))); err != nil {
			t.Fatal(err)
		}
	}
	updated := sampleResult("id-0")
	updated.Confidence = 0.4
	if err := s.Save(ctx, updated); err != nil {
		t.Fatal(err)
	}

	results, err := s.List(ctx, 1, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("List() returned %d items, want 3", len(results))
	}
	if results[0].AnalysisID != "id-0" || results[0].Confidence != 0.4 {
		t.Errorf("upsert should overwrite in place, got %+v", results[0])
	}
}

func TestMemoryStore_Pagination(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := s.Save(ctx, sampleResult(fmt.Sprintf("id-%d", i))); err != nil {
			t.Fatal(err)
		}
	}

	page2, err := s.List(ctx, 2, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(page2) != 2 || page2[0].AnalysisID != "id-2" {
		t.Errorf("List(page=2, size=2) = %v", ids(page2))
	}

	beyond, err := s.List(ctx, 10, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(beyond) != 0 {
		t.Errorf("List() past the end = %v, want empty", ids(beyond))
	}
}

func TestMemoryStore_ListClampsPageSize(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.Save(ctx, sampleResult("id-1")); err != nil {
		t.Fatal(err)
	}

	// 非法分页参数收敛到默认值
	results, err := s.List(ctx, 0, -3)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(results) != 1 {
		t.Errorf("List() = %v, want single item", ids(results))
	}
}

func ids(results []*model.AnalysisResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.AnalysisID)
	}
	return out
}
