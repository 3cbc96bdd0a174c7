package crawl

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/John-Robertt/top250/internal/domain"
	"github.com/John-Robertt/top250/internal/provider/douban"
)

type fakeMovie struct {
	id    string
	title string
	year  string
	// detailStatus 为 0 表示 200。
	detailStatus int
	box          string
}

// fakeSite 模拟豆瓣：/top250?start=N 返回榜单页，/subject/<id>/ 返回详情页。
type fakeSite struct {
	mu    sync.Mutex
	pages map[int][]fakeMovie
	// pageStatus 为某个 offset 指定非 200 状态码。
	pageStatus map[int]int
	hits       []string
}

func (s *fakeSite) handler(t *testing.T) http.Handler {
	byID := map[string]fakeMovie{}
	for _, ms := range s.pages {
		for _, m := range ms {
			byID[m.id] = m
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits = append(s.hits, r.URL.RequestURI())
		s.mu.Unlock()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch {
		case r.URL.Path == "/top250":
			off, err := strconv.Atoi(r.URL.Query().Get("start"))
			if err != nil {
				http.Error(w, "bad start", http.StatusBadRequest)
				return
			}
			if code := s.pageStatus[off]; code != 0 {
				w.WriteHeader(code)
				return
			}
			_, _ = w.Write([]byte(listingHTML(s.pages[off])))
		case strings.HasPrefix(r.URL.Path, "/subject/"):
			id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/subject/"), "/")
			m, ok := byID[id]
			if !ok {
				http.NotFound(w, r)
				return
			}
			if m.detailStatus != 0 {
				w.WriteHeader(m.detailStatus)
				return
			}
			_, _ = w.Write([]byte(detailHTML(m)))
		default:
			t.Errorf("意外的请求：%s", r.URL.RequestURI())
			http.NotFound(w, r)
		}
	})
}

func listingHTML(ms []fakeMovie) string {
	var b strings.Builder
	b.WriteString("<html><body><ol class=\"grid_view\">\n")
	for _, m := range ms {
		fmt.Fprintf(&b, `<li><div class="item">
  <div class="pic"><a href="/subject/%s/"><img src="x.jpg"></a></div>
  <div class="info">
    <div class="hd"><a href="/subject/%s/"><span class="title">%s</span></a></div>
    <div class="bd">
      <p>
        导演: 导演%s&nbsp;&nbsp;&nbsp;主演: 主演%s<br>
        %s&nbsp;/&nbsp;美国&nbsp;/&nbsp;剧情
      </p>
      <div class="star"><span class="rating_num">9.%s</span></div>
    </div>
  </div>
</div></li>
`, m.id, m.id, m.title, m.id, m.id, m.year, m.id)
	}
	b.WriteString("</ol></body></html>")
	return b.String()
}

func detailHTML(m fakeMovie) string {
	box := ""
	if m.box != "" {
		box = `<span class="pl">票房:</span> ` + m.box + "<br/>\n"
	}
	return `<html><body>
<div id="mainpic"><img src="https://img.example/` + m.id + `.jpg"></div>
<div id="info">
<span class="pl">上映日期:</span> <span property="v:initialReleaseDate">` + m.year + `-01-01(美国)</span><br/>
` + box + `</div>
<div class="comment-item"><span class="short">` + m.title + `好看</span></div>
</body></html>`
}

type recordingObserver struct {
	starts int
	pages  []domain.PageResult
	items  []domain.MovieRecord
	errs   []error
}

func (o *recordingObserver) OnStart(int, string)          { o.starts++ }
func (o *recordingObserver) OnPageStart(int, int, string) {}
func (o *recordingObserver) OnPageDone(_, _ int, res domain.PageResult, _ time.Duration) {
	o.pages = append(o.pages, res)
}
func (o *recordingObserver) OnItemDone(rec domain.MovieRecord, err error, _ time.Duration) {
	o.items = append(o.items, rec)
	o.errs = append(o.errs, err)
}

func newTestCrawler(t *testing.T, site *fakeSite, offsets []int, opts ...Option) (*Crawler, *int) {
	t.Helper()
	srv := httptest.NewServer(site.handler(t))
	t.Cleanup(srv.Close)

	p := douban.Provider{BaseURL: srv.URL + "/top250"}
	c := New(p, srv.Client(), append([]Option{WithOffsets(offsets), WithDelay(time.Second)}, opts...)...)
	sleeps := 0
	c.sleep = func(ctx context.Context, d time.Duration) error {
		if d != time.Second {
			t.Errorf("期望 delay=1s，实际 %v", d)
		}
		sleeps++
		return ctx.Err()
	}
	return c, &sleeps
}

func assertRanks(t *testing.T, recs []domain.MovieRecord) {
	t.Helper()
	for i, r := range recs {
		if r.Rank != i+1 {
			t.Fatalf("排名不连续：位置 %d 的 rank=%d", i, r.Rank)
		}
	}
}

func TestRun_TwoEntriesEndToEnd(t *testing.T) {
	site := &fakeSite{pages: map[int][]fakeMovie{
		0: {
			{id: "1", title: "电影一", year: "1994", box: "1亿"},
			{id: "2", title: "电影二", year: "1993"},
		},
	}}
	obs := &recordingObserver{}
	c, sleeps := newTestCrawler(t, site, []int{0}, WithObserver(obs))

	res := c.Run(context.Background())

	if len(res.Records) != 2 {
		t.Fatalf("期望 2 条记录，实际 %d", len(res.Records))
	}
	assertRanks(t, res.Records)

	r1 := res.Records[0]
	if r1.Title != "电影一" || r1.Year != "1994" || r1.Rating != "9.1" || r1.Director != "导演1" || r1.Cast != "主演1" {
		t.Fatalf("记录 1 摘要字段不符合预期：%+v", r1)
	}
	if r1.BoxOffice != "票房: 1亿" || r1.Comment1 != "电影一好看" || r1.PosterURL != "https://img.example/1.jpg" {
		t.Fatalf("记录 1 详情字段不符合预期：%+v", r1)
	}
	if !strings.HasSuffix(r1.URL, "/subject/1/") {
		t.Fatalf("详情链接应为绝对地址：%q", r1.URL)
	}
	if res.Records[1].BoxOffice != domain.BoxOfficeUnknown {
		t.Fatalf("无票房时应为占位文本：%q", res.Records[1].BoxOffice)
	}

	if *sleeps != 2 {
		t.Fatalf("期望每条目后等待一次（2 次），实际 %d", *sleeps)
	}
	if obs.starts != 1 || len(obs.items) != 2 || len(obs.pages) != 1 {
		t.Fatalf("observer 事件数不符合预期：starts=%d items=%d pages=%d", obs.starts, len(obs.items), len(obs.pages))
	}

	want := domain.ReportSummary{Pages: 1, Records: 2}
	if res.Report.Summary != want {
		t.Fatalf("summary 不符合预期：%+v", res.Report.Summary)
	}
	if res.Report.Pages[0].Status != domain.PageStatusOK || res.Report.Pages[0].Items != 2 {
		t.Fatalf("页结果不符合预期：%+v", res.Report.Pages[0])
	}
}

func TestRun_PageFailureIsIsolated(t *testing.T) {
	site := &fakeSite{pages: map[int][]fakeMovie{}, pageStatus: map[int]int{50: http.StatusInternalServerError}}
	offsets := make([]int, 0, 10)
	for i := 0; i < 10; i++ {
		off := i * 25
		offsets = append(offsets, off)
		site.pages[off] = []fakeMovie{{id: strconv.Itoa(i + 1), title: "p" + strconv.Itoa(i+1), year: "2000"}}
	}
	c, _ := newTestCrawler(t, site, offsets)

	res := c.Run(context.Background())

	if len(res.Records) != 9 {
		t.Fatalf("期望 9 条记录（第 3 页失败），实际 %d", len(res.Records))
	}
	assertRanks(t, res.Records)
	if res.Records[2].Title != "p4" {
		t.Fatalf("第 3 页失败后，rank=3 应来自第 4 页，实际 %q", res.Records[2].Title)
	}

	p3 := res.Report.Pages[2]
	if p3.Index != 3 || p3.Status != domain.PageStatusFailed || p3.ErrorCode != domain.ErrCodeFetchFailed {
		t.Fatalf("第 3 页结果不符合预期：%+v", p3)
	}
	if res.Report.Summary.Pages != 10 || res.Report.Summary.PagesFailed != 1 || res.Report.Summary.Records != 9 {
		t.Fatalf("summary 不符合预期：%+v", res.Report.Summary)
	}
}

func TestRun_SingleDetailFailureUsesDefaults(t *testing.T) {
	site := &fakeSite{pages: map[int][]fakeMovie{
		0: {
			{id: "1", title: "a", year: "2001", box: "1"},
			{id: "2", title: "b", year: "2002", box: "2", detailStatus: http.StatusNotFound},
			{id: "3", title: "c", year: "2003", box: "3"},
		},
	}}
	obs := &recordingObserver{}
	c, sleeps := newTestCrawler(t, site, []int{0}, WithObserver(obs))

	res := c.Run(context.Background())

	if len(res.Records) != 3 {
		t.Fatalf("期望 3 条记录，实际 %d", len(res.Records))
	}
	assertRanks(t, res.Records)

	r2 := res.Records[1]
	if r2.Title != "b" || r2.Year != "2002" {
		t.Fatalf("失败条目仍应保留摘要字段：%+v", r2)
	}
	if r2.BoxOffice != domain.BoxOfficeUnknown || r2.Comment1 != "" || r2.PosterURL != "" || r2.RereleaseYears != "" {
		t.Fatalf("失败条目的详情字段应为默认值：%+v", r2)
	}
	if res.Records[2].BoxOffice != "票房: 3" {
		t.Fatalf("后续条目不应受影响：%+v", res.Records[2])
	}
	if *sleeps != 3 {
		t.Fatalf("失败条目后也应等待，期望 3 次，实际 %d", *sleeps)
	}
	if obs.errs[1] == nil || obs.errs[0] != nil || obs.errs[2] != nil {
		t.Fatalf("observer 收到的详情错误不符合预期：%v", obs.errs)
	}

	if len(res.Report.Failures) != 1 {
		t.Fatalf("期望 1 条详情失败，实际 %+v", res.Report.Failures)
	}
	f := res.Report.Failures[0]
	if f.Rank != 2 || f.Title != "b" || f.ErrorCode != domain.ErrCodeFetchFailed || !strings.Contains(f.ErrorMsg, "404") {
		t.Fatalf("详情失败记录不符合预期：%+v", f)
	}
}

func TestRun_EmptyPageContinues(t *testing.T) {
	site := &fakeSite{pages: map[int][]fakeMovie{
		0:  nil,
		25: {{id: "1", title: "a", year: "2001"}},
	}}
	c, _ := newTestCrawler(t, site, []int{0, 25})

	res := c.Run(context.Background())

	if len(res.Records) != 1 || res.Records[0].Rank != 1 {
		t.Fatalf("空页之后应继续爬取：%+v", res.Records)
	}
	if res.Report.Pages[0].Status != domain.PageStatusEmpty {
		t.Fatalf("期望第 1 页为 empty，实际 %+v", res.Report.Pages[0])
	}
}

func TestRun_BlockedDetailIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if r.URL.Path == "/top250" {
			_, _ = w.Write([]byte(listingHTML([]fakeMovie{{id: "1", title: "a", year: "2001"}})))
			return
		}
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("<html><body>检测到有异常请求从你的 IP 发出</body></html>"))
	}))
	defer srv.Close()

	c := New(douban.Provider{BaseURL: srv.URL + "/top250"}, srv.Client(), WithOffsets([]int{0}), WithDelay(0))
	res := c.Run(context.Background())

	if len(res.Records) != 1 {
		t.Fatalf("期望 1 条记录，实际 %d", len(res.Records))
	}
	if got := res.Report.Failures[0].ErrorCode; got != domain.ErrCodeBlocked {
		t.Fatalf("期望 error_code=blocked，实际 %q", got)
	}
}

func TestRun_CancelReturnsPartial(t *testing.T) {
	site := &fakeSite{pages: map[int][]fakeMovie{
		0:  {{id: "1", title: "a", year: "2001"}, {id: "2", title: "b", year: "2002"}},
		25: {{id: "3", title: "c", year: "2003"}},
	}}
	c, _ := newTestCrawler(t, site, []int{0, 25})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	res := c.Run(ctx)

	if len(res.Records) != 1 || res.Records[0].Title != "a" {
		t.Fatalf("取消后应返回已收集的部分：%+v", res.Records)
	}
	for _, h := range site.hits {
		if strings.Contains(h, "start=25") {
			t.Fatalf("取消后不应再请求后续页：%v", site.hits)
		}
	}
	if res.Report.Summary.Records != 1 {
		t.Fatalf("report 应与部分结果一致：%+v", res.Report.Summary)
	}
}

func TestRun_NeverExceedsMaxRecords(t *testing.T) {
	ms := make([]fakeMovie, 0, 30)
	for i := 0; i < 30; i++ {
		ms = append(ms, fakeMovie{id: strconv.Itoa(i + 1), title: "m", year: "2000"})
	}
	site := &fakeSite{pages: map[int][]fakeMovie{}}
	offsets := make([]int, 0, 10)
	for i := 0; i < 10; i++ {
		offsets = append(offsets, i*25)
		site.pages[i*25] = ms
	}
	c, _ := newTestCrawler(t, site, offsets)

	res := c.Run(context.Background())
	if len(res.Records) != domain.MaxRecords {
		t.Fatalf("期望最多 %d 条记录，实际 %d", domain.MaxRecords, len(res.Records))
	}
	assertRanks(t, res.Records)
}

func TestSleepCtx(t *testing.T) {
	if err := sleepCtx(context.Background(), 0); err != nil {
		t.Fatalf("delay=0 不应报错：%v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepCtx(ctx, time.Hour); err == nil {
		t.Fatalf("ctx 已取消时应立即返回错误")
	}
}
