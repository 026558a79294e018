package search

import (
	"context"
	"sync"

	"github.com/iWorld-y/opinion_radar/pkg/logger"
	"github.com/iWorld-y/opinion_radar/pkg/model"
)

// 相关度占位值，真实相关度由下游分析模型重新评估
const defaultRelevance = 0.7

// Aggregator 并发聚合三路搜索来源
// 任一来源缺失凭证（Provider 为 nil）或调用失败时只降级为空列表，聚合本身永不报错
type Aggregator struct {
	youtube Provider
	blog    Provider
	news    Provider
	limit   int
}

// NewAggregator 创建聚合器，未配置的来源传入 nil
func NewAggregator(youtube, blog, news Provider, limit int) *Aggregator {
	if limit <= 0 {
		limit = 5
	}
	return &Aggregator{
		youtube: youtube,
		blog:    blog,
		news:    news,
		limit:   limit,
	}
}

// Aggregate 并发发起三路搜索并归一化为 OpinionSource
func (a *Aggregator) Aggregate(ctx context.Context, query, language string) *model.SourceSet {
	set := &model.SourceSet{
		News:    []model.OpinionSource{},
		YouTube: []model.OpinionSource{},
		Blogs:   []model.OpinionSource{},
	}

	req := &Request{Query: query, Language: language, Limit: a.limit}

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		items := a.fetch(ctx, a.youtube, req, "youtube")
		set.YouTube = normalize(items, model.SourceTypeYouTube, "YouTube")
	}()
	go func() {
		defer wg.Done()
		items := a.fetch(ctx, a.blog, req, "naver blog")
		set.Blogs = normalize(items, model.SourceTypeBlog, "Naver Blog")
	}()
	go func() {
		defer wg.Done()
		items := a.fetch(ctx, a.news, req, "news")
		set.News = normalize(items, model.SourceTypeNews, "News")
	}()

	wg.Wait()
	return set
}

// fetch 单路查询，凭证缺失或重试后仍失败时返回空列表
func (a *Aggregator) fetch(ctx context.Context, p Provider, req *Request, name string) []Item {
	if p == nil {
		return nil
	}
	items, err := p.Search(ctx, req)
	if err != nil {
		logger.Log.Warnf("搜索来源 [%s] 降级为空: %v", name, err)
		return nil
	}
	return items
}

// normalize 将原始条目映射为统一的 OpinionSource 形态
func normalize(items []Item, sourceType, defaultSource string) []model.OpinionSource {
	out := make([]model.OpinionSource, 0, len(items))
	for _, it := range items {
		if it.URL == "" {
			continue
		}
		source := it.SourceName
		if source == "" {
			source = defaultSource
		}
		out = append(out, model.OpinionSource{
			Title:          StripHTML(it.Title),
			URL:            it.URL,
			Source:         source,
			SourceType:     sourceType,
			Snippet:        StripHTML(it.Snippet),
			PublishedDate:  it.PublishedDate,
			RelevanceScore: defaultRelevance,
		})
	}
	return out
}
