package keywords

import (
	"sort"
	"strings"
	"unicode"
)

// 英文停用词
var enStop = toSet([]string{
	"the", "is", "are", "a", "an", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by",
	"with", "as", "from", "that", "this", "it", "its", "be", "been", "was", "were", "will", "would", "can", "could",
	"should", "may", "might", "we", "you", "they", "he", "she", "i", "me", "my", "our", "your", "their", "them", "his",
	"her", "about", "into", "over", "under", "than", "so", "not",
})

// 韩文停用词（助词与高频虚词）
var koStop = toSet([]string{
	"그리고", "또는", "그러나", "하지만", "만약", "그러면", "그", "이", "저", "것", "수", "등", "및", "에서", "으로",
	"에게", "을", "를", "은", "는", "가", "도", "하다", "했다", "된다", "대한", "대해", "관련", "통해", "까지",
	"보다", "같은", "있다", "없다", "위해", "더", "또", "때문", "때", "중", "바", "이번", "최근",
})

func toSet(words []string) map[string]struct{} {
	s := make(map[string]struct{}, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

// ExtractTop 提取文本中最高频的关键词，纯函数、结果确定
// 规则：小写化、去掉非字母数字字符（保留任意语言文字）、丢弃长度小于 2 的词与停用词、
// 按词频降序排序，同频按首次出现顺序稳定排序，最多返回 max 个
func ExtractTop(text string, max int) []string {
	if max <= 0 {
		return nil
	}

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)

	type entry struct {
		word  string
		count int
		first int
	}

	index := make(map[string]*entry)
	var order []*entry

	for _, w := range strings.Fields(cleaned) {
		if len([]rune(w)) < 2 {
			continue
		}
		if _, ok := enStop[w]; ok {
			continue
		}
		if _, ok := koStop[w]; ok {
			continue
		}
		if e, ok := index[w]; ok {
			e.count++
			continue
		}
		e := &entry{word: w, count: 1, first: len(order)}
		index[w] = e
		order = append(order, e)
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].count != order[j].count {
			return order[i].count > order[j].count
		}
		return order[i].first < order[j].first
	})

	if len(order) > max {
		order = order[:max]
	}
	out := make([]string, 0, len(order))
	for _, e := range order {
		out = append(out, e.word)
	}
	return out
}
