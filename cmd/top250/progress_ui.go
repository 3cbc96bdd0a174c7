package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/John-Robertt/top250/internal/app/crawl"
	"github.com/John-Robertt/top250/internal/domain"
	"github.com/John-Robertt/top250/internal/provider"
)

var _ crawl.Observer = (*progressUI)(nil)

// progressUI 把页/条目进度写成纯文本行，终端与重定向时都启用。
//
// 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约；
// crawl 层只发事件，CLI 决定如何展示。
type progressUI struct {
	w io.Writer

	startedAt time.Time
	ok        int
	fail      int
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{w: w}
}

func (p *progressUI) OnStart(pages int, baseURL string) {
	p.startedAt = time.Now()
	fmt.Fprintf(p.w, "[%s] 开始爬取豆瓣电影Top250...\n", p.startedAt.Format("15:04:05"))
	fmt.Fprintf(p.w, "  base_url: %s\n", truncate(baseURL, 120))
	fmt.Fprintf(p.w, "  pages: %d\n\n", pages)
}

func (p *progressUI) OnPageStart(idx, total int, _ string) {
	fmt.Fprintf(p.w, "正在爬取第 %d/%d 页...\n", idx, total)
}

func (p *progressUI) OnPageDone(idx, total int, res domain.PageResult, dur time.Duration) {
	switch res.Status {
	case domain.PageStatusFailed:
		fmt.Fprintf(p.w, "第 %d/%d 页 FAIL %s: %s (%s)\n",
			idx, total, res.ErrorCode, truncate(res.ErrorMsg, 160), formatShortDuration(dur),
		)
	case domain.PageStatusEmpty:
		fmt.Fprintf(p.w, "第 %d/%d 页没有条目 (%s)\n", idx, total, formatShortDuration(dur))
	default:
		fmt.Fprintf(p.w, "第 %d/%d 页完成：items=%d ok=%d fail=%d elapsed=%s\n",
			idx, total, res.Items, p.ok, p.fail, formatElapsed(time.Since(p.startedAt)),
		)
	}
}

func (p *progressUI) OnItemDone(rec domain.MovieRecord, detailErr error, dur time.Duration) {
	if detailErr == nil {
		p.ok++
		fmt.Fprintf(p.w, "[%d] 《%s》 OK (%s)\n", rec.Rank, rec.Title, formatShortDuration(dur))
		return
	}
	p.fail++
	fmt.Fprintf(p.w, "[%d] 《%s》 FAIL %s: %s (%s)\n",
		rec.Rank, rec.Title, provider.ErrorCode(detailErr), truncate(detailErr.Error(), 160), formatShortDuration(dur),
	)
}

// truncate 按 rune 截断，超出时以 "..." 结尾。
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
