package search

import (
	"context"
	"html"
	"regexp"
	"strings"
)

// Request 通用搜索请求
type Request struct {
	Query    string
	Language string // 语言提示，目前仅新闻搜索使用
	Limit    int
}

// Item 单条原始搜索结果
type Item struct {
	Title         string
	URL           string
	Snippet       string
	PublishedDate string
	SourceName    string
}

// Provider 定义通用的搜索接口
type Provider interface {
	Search(ctx context.Context, req *Request) ([]Item, error)
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// StripHTML 去除文本中的 HTML 标签与实体
func StripHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.TrimSpace(s)
}
