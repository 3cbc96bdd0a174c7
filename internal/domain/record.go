package domain

import (
	"strconv"
	"strings"
)

// BoxOfficeUnknown 是票房缺失时的占位文本。
const BoxOfficeUnknown = "暂无数据"

// MaxHotComments 是每部电影最多保留的热评条数。
const MaxHotComments = 3

// MaxRecords 是一次爬取最多产出的记录数。
const MaxRecords = 250

// ListingSummary 是榜单页单个条目的摘要（只在爬取过程中存在，不单独落盘）。
type ListingSummary struct {
	Title  string
	URL    string // 详情页绝对 URL
	Rating string
	Info   string // 原始信息块（多行：导演/主演、年份/地区/类型）

	// 由 Info 解析得到；规则见 douban.ParseInfoBlock。
	Director string
	Cast     string
	Year     string
}

// DetailInfo 是详情页抽取结果。各字段相互独立：任一字段缺失不影响其它字段。
type DetailInfo struct {
	BoxOffice    string
	ReleaseYears []string // 仅当出现 >=2 个不同年份时非空
	HotComments  []string // 0..3 条，文档顺序
	PosterURL    string
}

// DefaultDetailInfo 返回“详情完全不可用”时的默认值。
func DefaultDetailInfo() DetailInfo {
	return DetailInfo{BoxOffice: BoxOfficeUnknown}
}

// RereleaseText 把重映年份拼成一段文本；不足两个年份时为空串。
func (d DetailInfo) RereleaseText() string {
	if len(d.ReleaseYears) < 2 {
		return ""
	}
	return strings.Join(d.ReleaseYears, ", ")
}

// MovieRecord 是最终输出单元。
//
// 不变量：Rank 在追加到集合时分配，等于其在集合中的 1-based 位置，
// 与源页面上显示的排名无关。
type MovieRecord struct {
	Rank           int    `json:"排名"`
	Title          string `json:"电影名称"`
	Year           string `json:"首次上映年份"`
	RereleaseYears string `json:"重映年份"`
	Rating         string `json:"评分"`
	Director       string `json:"导演"`
	Cast           string `json:"主演"`
	BoxOffice      string `json:"票房"`
	Comment1       string `json:"热评1"`
	Comment2       string `json:"热评2"`
	Comment3       string `json:"热评3"`
	PosterURL      string `json:"海报链接"`
	URL            string `json:"豆瓣链接"`
}

// RecordFields 是导出时的列名（顺序即字段顺序）。
var RecordFields = []string{
	"排名", "电影名称", "首次上映年份", "重映年份", "评分", "导演", "主演",
	"票房", "热评1", "热评2", "热评3", "海报链接", "豆瓣链接",
}

// NewMovieRecord 合并摘要与详情，构造一条记录。
func NewMovieRecord(rank int, s ListingSummary, d DetailInfo) MovieRecord {
	comment := func(i int) string {
		if i < len(d.HotComments) {
			return d.HotComments[i]
		}
		return ""
	}
	box := d.BoxOffice
	if box == "" {
		box = BoxOfficeUnknown
	}
	return MovieRecord{
		Rank:           rank,
		Title:          s.Title,
		Year:           s.Year,
		RereleaseYears: d.RereleaseText(),
		Rating:         s.Rating,
		Director:       s.Director,
		Cast:           s.Cast,
		BoxOffice:      box,
		Comment1:       comment(0),
		Comment2:       comment(1),
		Comment3:       comment(2),
		PosterURL:      d.PosterURL,
		URL:            s.URL,
	}
}

// Row 按 RecordFields 的顺序返回字段值。
func (r MovieRecord) Row() []string {
	return []string{
		strconv.Itoa(r.Rank), r.Title, r.Year, r.RereleaseYears, r.Rating, r.Director, r.Cast,
		r.BoxOffice, r.Comment1, r.Comment2, r.Comment3, r.PosterURL, r.URL,
	}
}

// HotComments 返回非空热评（保持顺序）。
func (r MovieRecord) HotComments() []string {
	out := make([]string, 0, MaxHotComments)
	for _, c := range []string{r.Comment1, r.Comment2, r.Comment3} {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}
