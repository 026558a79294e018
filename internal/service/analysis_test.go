package service

import "testing"

func TestParsePagination_Defaults(t *testing.T) {
	page, pageSize := parsePagination("", "")
	if page != 1 || pageSize != defaultPageSize {
		t.Errorf("parsePagination(\"\", \"\") = (%d, %d), want (1, %d)", page, pageSize, defaultPageSize)
	}
}

func TestParsePagination_ClampsUpper(t *testing.T) {
	_, pageSize := parsePagination("1", "500")
	if pageSize != maxPageSize {
		t.Errorf("pageSize = %d, want clamped to %d", pageSize, maxPageSize)
	}
}

func TestParsePagination_ClampsLower(t *testing.T) {
	_, pageSize := parsePagination("1", "0")
	if pageSize != 1 {
		t.Errorf("pageSize(0) = %d, want 1", pageSize)
	}
	_, pageSize = parsePagination("1", "-5")
	if pageSize != 1 {
		t.Errorf("pageSize(-5) = %d, want 1", pageSize)
	}
	page, _ := parsePagination("-2", "20")
	if page != 1 {
		t.Errorf("page(-2) = %d, want 1", page)
	}
}

func TestAnalyzeRequest_TextAlias(t *testing.T) {
	req := analyzeRequest{Text: "본문 텍스트", Language: "ko"}
	m := req.toModel()
	if m.Content != "본문 텍스트" {
		t.Errorf("Content = %q, want text alias resolved", m.Content)
	}

	req = analyzeRequest{Content: "a", Text: "b"}
	if m := req.toModel(); m.Content != "a" {
		t.Errorf("Content = %q, content must win over text", m.Content)
	}
}
