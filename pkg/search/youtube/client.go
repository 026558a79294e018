package youtube

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

const searchURL = "https://www.googleapis.com/youtube/v3/search"

const (
	attempts   = 2
	retryDelay = 300 * time.Millisecond
)

// Client YouTube Data API v3 客户端
type Client struct {
	apiKey string
	client *http.Client
}

// NewClient 创建一个新的 YouTube 客户端
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey: apiKey,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Ensure Client implements search.Provider
var _ search.Provider = (*Client)(nil)

// searchResponse YouTube 搜索响应
type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			PublishedAt string `json:"publishedAt"`
		} `json:"snippet"`
	} `json:"items"`
}

// Search 执行视频搜索，失败后固定间隔重试一次
func (c *Client) Search(ctx context.Context, req *search.Request) ([]search.Item, error) {
	u, err := url.Parse(searchURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("part", "snippet")
	q.Set("q", req.Query)
	q.Set("type", "video")
	q.Set("maxResults", fmt.Sprintf("%d", req.Limit))
	q.Set("key", c.apiKey)
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
		return nil, fmt.Errorf("youtube api error (status %d): %s", res.StatusCode, string(body))
	}

	var resp searchResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response failed: %w", err)
	}

	items := make([]search.Item, 0, len(resp.Items))
	for _, it := range resp.Items {
		if it.ID.VideoID == "" {
			continue
		}
		title := it.Snippet.Title
		if title == "" {
			title = "Untitled"
		}
		items = append(items, search.Item{
			Title:         title,
			URL:           "https://www.youtube.com/watch?v=" + it.ID.VideoID,
			Snippet:       it.Snippet.Description,
			PublishedDate: it.Snippet.PublishedAt,
		})
	}
	return items, nil
}
