package douban

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/top250/internal/domain"
)

// ParseListing 从榜单页文档中抽取全部条目（div.item）。
// 条目缺少子元素时对应字段为空串，不丢弃条目。
func ParseListing(doc *goquery.Document, pageURL string) []domain.ListingSummary {
	out := make([]domain.ListingSummary, 0, 25)
	doc.Find("div.item").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Find("a").First().Attr("href")
		info := strings.TrimSpace(s.Find("div.bd").First().Find("p").First().Text())

		item := domain.ListingSummary{
			Title:  strings.TrimSpace(s.Find("span.title").First().Text()),
			URL:    resolveURL(pageURL, href),
			Rating: strings.TrimSpace(s.Find("span.rating_num").First().Text()),
			Info:   info,
		}
		item.Director, item.Cast, item.Year = ParseInfoBlock(info)
		out = append(out, item)
	})
	return out
}

// ParseInfoBlock 解析信息块：
// 第 1 个非空行是“导演: X 主演: Y”，第 2 个非空行是“年份 / 地区 / 类型”。
func ParseInfoBlock(info string) (director, cast, year string) {
	var lines []string
	for _, l := range strings.Split(info, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}

	if len(lines) > 0 && strings.Contains(lines[0], "导演:") {
		parts := strings.SplitN(lines[0], "主演:", 2)
		director = strings.TrimSpace(strings.Replace(parts[0], "导演:", "", 1))
		if len(parts) > 1 {
			cast = strings.TrimSpace(parts[1])
		}
	}
	if len(lines) > 1 {
		year = strings.TrimSpace(strings.SplitN(lines[1], "/", 2)[0])
	}
	return director, cast, year
}

func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	ru, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(ru).String()
}
