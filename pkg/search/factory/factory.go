package factory

import (
	"github.com/iWorld-y/opinion_radar/pkg/config"
	"github.com/iWorld-y/opinion_radar/pkg/logger"
	"github.com/iWorld-y/opinion_radar/pkg/search"
	"github.com/iWorld-y/opinion_radar/pkg/search/naver"
	"github.com/iWorld-y/opinion_radar/pkg/search/newsapi"
	"github.com/iWorld-y/opinion_radar/pkg/search/youtube"
)

// NewAggregator 根据配置创建聚合器，凭证缺失的来源保持 nil 并在聚合时降级为空
func NewAggregator(cfg *config.Config) *search.Aggregator {
	var yt, blog, news search.Provider

	if cfg.Search.YouTube.APIKey != "" {
		yt = youtube.NewClient(cfg.Search.YouTube.APIKey)
	} else {
		logger.Log.Warn("未配置 YOUTUBE_API_KEY，视频搜索将返回空结果")
	}

	if cfg.Search.Naver.ClientID != "" && cfg.Search.Naver.ClientSecret != "" {
		blog = naver.NewClient(cfg.Search.Naver.ClientID, cfg.Search.Naver.ClientSecret)
	} else {
		logger.Log.Warn("未配置 Naver 凭证，博客搜索将返回空结果")
	}

	if cfg.Search.News.APIKey != "" {
		news = newsapi.NewClient(cfg.Search.News.APIKey)
	} else {
		logger.Log.Warn("未配置 NEWS_API_KEY，新闻搜索将返回空结果")
	}

	return search.NewAggregator(yt, blog, news, cfg.Search.Limit)
}
