package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/John-Robertt/top250/internal/domain"
)

// WriteMarkdown 写出一份便于在仓库/笔记里浏览的榜单表格。
func WriteMarkdown(w io.Writer, recs []domain.MovieRecord, title string) error {
	if strings.TrimSpace(title) == "" {
		title = "豆瓣电影 Top 250"
	}
	md := markdown.NewMarkdown(w)
	md.H1(title)
	md.PlainText("")
	md.PlainText(fmt.Sprintf("共 %d 部电影。", len(recs)))
	md.PlainText("")

	if len(recs) == 0 {
		return md.Build()
	}

	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		name := cell(r.Title)
		if r.URL != "" {
			name = "[" + name + "](" + r.URL + ")"
		}
		rows = append(rows, []string{
			strconv.Itoa(r.Rank),
			name,
			cell(r.Year),
			cell(r.Rating),
			cell(r.Director),
			cell(r.BoxOffice),
			cell(r.Comment1),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"排名", "电影名称", "首次上映年份", "评分", "导演", "票房", "热评"},
		Rows:   rows,
	})
	md.PlainText("")
	return md.Build()
}

// cell 让单元格不破坏表格结构：竖线转义，换行折叠为空格。
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
