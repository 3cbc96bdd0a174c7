// Package gallery 把电影记录渲染为单文件 HTML 海报墙（带客户端筛选，无网络请求）。
package gallery

import (
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/top250/internal/domain"
	"github.com/John-Robertt/top250/internal/export"
	"github.com/John-Robertt/top250/internal/infra/fsx"
)

const DefaultTitle = "豆瓣电影 Top 250"

// castPreview 是卡片上主演预览的最大字符数。
const castPreview = 15

//go:embed gallery.html.tmpl
var pageTemplate string

var page = template.Must(template.New("gallery").Parse(pageTemplate))

// ErrNoData 表示找不到可渲染的电影数据文件。
var ErrNoData = errors.New("找不到电影数据")

type card struct {
	Rank          int
	Rating        string
	Title         string
	Year          string
	Director      string
	DirectorShort string
	CastShort     string
	Comment       string
	Link          string
	Poster        string
}

type pageData struct {
	Title string
	Cards []card
}

func newCard(r domain.MovieRecord, p Posters) card {
	link := r.URL
	if link == "" {
		link = "#"
	}
	return card{
		Rank:          r.Rank,
		Rating:        r.Rating,
		Title:         r.Title,
		Year:          r.Year,
		Director:      r.Director,
		DirectorShort: firstToken(r.Director),
		CastShort:     preview(r.Cast, castPreview),
		Comment:       r.Comment1,
		Link:          link,
		Poster:        p.Source(r),
	}
}

// Render 把记录写成完整 HTML 页面。所有字段都经过 html/template 转义。
func Render(w io.Writer, recs []domain.MovieRecord, title string, p Posters) error {
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}
	data := pageData{Title: title, Cards: make([]card, 0, len(recs))}
	for _, r := range recs {
		data.Cards = append(data.Cards, newCard(r, p))
	}
	return page.Execute(w, data)
}

// Options 描述一次画廊生成。
type Options struct {
	Output     string // 输出 HTML 的路径
	PostersDir string // 本地海报目录；为空时只用网络海报
	Title      string
}

// Build 渲染记录并原子写入 opt.Output。
func Build(recs []domain.MovieRecord, opt Options) error {
	if strings.TrimSpace(opt.Output) == "" {
		return errors.New("gallery 输出路径不能为空")
	}
	p := postersFor(opt.Output, opt.PostersDir)
	return fsx.WriteAtomic(filepath.Dir(opt.Output), filepath.Base(opt.Output), func(w io.Writer) error {
		return Render(w, recs, opt.Title, p)
	})
}

// BuildFromJSON 读取结构化导出文件并生成画廊。数据文件不存在时返回 ErrNoData。
func BuildFromJSON(jsonPath string, opt Options) (int, error) {
	recs, err := export.LoadJSON(jsonPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%w：%s", ErrNoData, jsonPath)
		}
		return 0, err
	}
	if err := Build(recs, opt); err != nil {
		return 0, err
	}
	return len(recs), nil
}

func firstToken(s string) string {
	f := strings.Fields(s)
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
