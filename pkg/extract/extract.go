package extract

import (
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

const (
	fetchTimeout = 30 * time.Second
	maxTextRunes = 12000
)

// Article 从网页中抽取到的可读内容
type Article struct {
	Title string
	Text  string
}

// FromURL 抓取 URL 并提取正文，失败时返回 error，由调用方决定是否降级
func FromURL(url string) (*Article, error) {
	art, err := readability.FromURL(url, fetchTimeout)
	if err != nil {
		return nil, err
	}

	text := strings.Join(strings.Fields(art.TextContent), " ")
	if runes := []rune(text); len(runes) > maxTextRunes {
		text = string(runes[:maxTextRunes])
	}

	return &Article{
		Title: art.Title,
		Text:  text,
	}, nil
}
