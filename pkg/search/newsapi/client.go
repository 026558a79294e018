package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/iWorld-y/opinion_radar/pkg/search"
)

const defaultBaseURL = "https://newsapi.org/v2/everything"

const (
	attempts   = 2
	retryDelay = 300 * time.Millisecond
)

// Client NewsAPI 客户端
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient 创建一个新的 NewsAPI 客户端
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// Ensure Client implements search.Provider
var _ search.Provider = (*Client)(nil)

// searchResponse NewsAPI /v2/everything 响应
type searchResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Description string `json:"description"`
		Content     string `json:"content"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

// Search 执行新闻搜索，失败后固定间隔重试一次
func (c *Client) Search(ctx context.Context, req *search.Request) ([]search.Item, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}

	language := req.Language
	if language == "" || language == "auto" {
		language = "ko"
	}

	q := u.Query()
	q.Set("q", req.Query)
	q.Set("language", language)
	q.Set("sortBy", "publishedAt")
	q.Set("pageSize", fmt.Sprintf("%d", req.Limit))
	q.Set("apiKey", c.apiKey)
	u.RawQuery = q.Encode()

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		items, err := c.doSearch(ctx, u.String())
		if err != nil {
			lastErr = err
			continue
		}
		return items, nil
	}
	return nil, lastErr
}

func (c *Client) doSearch(ctx context.Context, rawURL string) ([]search.Item, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("newsapi error (status %d): %s", res.StatusCode, string(body))
	}

	var resp searchResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response failed: %w", err)
	}

	items := make([]search.Item, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		title := a.Title
		if title == "" {
			title = "Untitled"
		}
		snippet := a.Description
		if snippet == "" {
			snippet = a.Content
		}
		items = append(items, search.Item{
			Title:         title,
			URL:           a.URL,
			Snippet:       snippet,
			PublishedDate: a.PublishedAt,
			SourceName:    a.Source.Name,
		})
	}
	return items, nil
}
