package naver

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

const blogSearchURL = "https://openapi.naver.com/v1/search/blog.json"

const (
	attempts   = 2
	retryDelay = 300 * time.Millisecond
)

// Client Naver 博客搜索客户端
type Client struct {
	clientID     string
	clientSecret string
	client       *http.Client
}

// NewClient 创建一个新的 Naver 客户端
func NewClient(clientID, clientSecret string) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       &http.Client{Timeout: 5 * time.Second},
	}
}

// Ensure Client implements search.Provider
var _ search.Provider = (*Client)(nil)

// searchResponse Naver 博客搜索响应
type searchResponse struct {
	Items []struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		Description string `json:"description"`
		PostDate    string `json:"postdate"` // YYYYMMDD
	} `json:"items"`
}

// Search 执行博客搜索，按相似度排序
func (c *Client) Search(ctx context.Context, req *search.Request) ([]search.Item, error) {
	u, err := url.Parse(blogSearchURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("query", req.Query)
	q.Set("display", fmt.Sprintf("%d", req.Limit))
	q.Set("sort", "sim")
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
	httpReq.Header.Set("X-Naver-Client-Id", c.clientID)
	httpReq.Header.Set("X-Naver-Client-Secret", c.clientSecret)

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("naver api error (status %d): %s", res.StatusCode, string(body))
	}

	var resp searchResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response failed: %w", err)
	}

	items := make([]search.Item, 0, len(resp.Items))
	for _, it := range resp.Items {
		title := it.Title
		if title == "" {
			title = "Untitled"
		}
		items = append(items, search.Item{
			Title:         title,
			URL:           it.Link,
			Snippet:       it.Description,
			PublishedDate: it.PostDate,
		})
	}
	return items, nil
}
