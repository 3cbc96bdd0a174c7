package douban

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/top250/internal/domain"
)

// ExtractDetail 从详情页文档中抽取票房、重映年份、热评与海报。
// 各字段独立降级：缺失时取默认值，不返回错误。
func ExtractDetail(doc *goquery.Document) domain.DetailInfo {
	d := domain.DefaultDetailInfo()
	info := doc.Find("div#info").First()

	if text := info.Text(); strings.Contains(text, "票房") {
		for _, line := range strings.Split(text, "\n") {
			if strings.Contains(line, "票房") {
				d.BoxOffice = strings.TrimSpace(line)
				break
			}
		}
	}

	d.ReleaseYears = releaseYears(info)
	d.HotComments = hotComments(doc)

	if src, ok := doc.Find("div#mainpic img").First().Attr("src"); ok {
		d.PosterURL = strings.TrimSpace(src)
	}
	return d
}

// releaseYears 取每个上映日期的前 4 个字符，去重保序；不足两个不同年份时返回 nil。
func releaseYears(info *goquery.Selection) []string {
	var years []string
	seen := map[string]struct{}{}
	info.Find(`span[property="v:initialReleaseDate"]`).Each(func(_ int, s *goquery.Selection) {
		y := firstRunes(strings.TrimSpace(s.Text()), 4)
		if y == "" {
			return
		}
		if _, ok := seen[y]; ok {
			return
		}
		seen[y] = struct{}{}
		years = append(years, y)
	})
	if len(years) < 2 {
		return nil
	}
	return years
}

// hotComments 只看前 MaxHotComments 个 div.comment-item；没有 span.short 的容器跳过。
func hotComments(doc *goquery.Document) []string {
	var out []string
	doc.Find("div.comment-item").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= domain.MaxHotComments {
			return false
		}
		short := s.Find("span.short").First()
		if short.Length() == 0 {
			return true
		}
		out = append(out, strings.TrimSpace(short.Text()))
		return true
	})
	return out
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
