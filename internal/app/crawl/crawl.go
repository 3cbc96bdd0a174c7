package crawl

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/John-Robertt/top250/internal/config"
	"github.com/John-Robertt/top250/internal/domain"
	"github.com/John-Robertt/top250/internal/infra/httpx"
	"github.com/John-Robertt/top250/internal/infra/logx"
	"github.com/John-Robertt/top250/internal/provider"
	"github.com/John-Robertt/top250/internal/provider/douban"
)

// Result 是一次爬取的产出：有序记录集合 + 运行报告。
type Result struct {
	Records []domain.MovieRecord
	Report  domain.RunReport
}

// Crawler 严格串行地遍历榜单页与详情页。
//
// 失败只影响当前页或当前条目；唯一的提前结束是 ctx 被取消，此时返回已收集的部分。
type Crawler struct {
	provider provider.Provider
	client   *http.Client

	offsets  []int
	delay    time.Duration
	observer Observer
	log      *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// Option 配置 Crawler。
type Option func(*Crawler)

// WithOffsets 设置榜单页的 start 偏移序列。
func WithOffsets(offsets []int) Option {
	return func(c *Crawler) { c.offsets = append([]int(nil), offsets...) }
}

// WithDelay 设置每条目处理后的礼貌等待；0 表示不等待。
func WithDelay(d time.Duration) Option {
	return func(c *Crawler) { c.delay = d }
}

func WithObserver(obs Observer) Option {
	return func(c *Crawler) {
		if obs != nil {
			c.observer = obs
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Crawler) { c.log = logx.OrNop(l) }
}

// New 构造 Crawler。默认 10 页 × 25 条、每条目后等待 2 秒。
func New(p provider.Provider, client *http.Client, opts ...Option) *Crawler {
	c := &Crawler{
		provider: p,
		client:   client,
		offsets:  config.EffectiveConfig{Pages: config.DefaultPages, PageSize: config.DefaultPageSize}.Offsets(),
		delay:    config.DefaultDelay,
		observer: nopObserver{},
		log:      zap.NewNop(),
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute 按最终配置构造 douban provider 与 HTTP client，执行一次爬取。
// 只有 client 无法构造时返回错误；爬取过程中的失败都记录在 Report 里。
func Execute(ctx context.Context, eff config.EffectiveConfig, obs Observer, log *zap.Logger) (Result, error) {
	client, err := httpx.NewClient(httpx.Options{
		UserAgent: eff.UserAgent,
		ProxyURL:  eff.ProxyURL,
		Timeout:   eff.Timeout,
	})
	if err != nil {
		return Result{}, err
	}
	p := douban.Provider{BaseURL: eff.BaseURL, MaxBodySize: eff.MaxBodySize}
	c := New(p, client,
		WithOffsets(eff.Offsets()),
		WithDelay(eff.Delay),
		WithObserver(obs),
		WithLogger(log),
	)
	return c.Run(ctx), nil
}

// Run 执行爬取。
//
// 不变量：
// - Records[i].Rank == i+1（排名按到达顺序分配）
// - 每个条目（无论详情成功与否）处理完后都等待 delay
// - len(Records) <= domain.MaxRecords
func (c *Crawler) Run(ctx context.Context) Result {
	total := len(c.offsets)
	baseURL, _ := c.provider.ListingURL(0)

	rr := domain.RunReport{
		BaseURL:   baseURL,
		StartedAt: time.Now().UTC(),
		Pages:     make([]domain.PageResult, 0, total),
	}
	records := make([]domain.MovieRecord, 0, total*config.DefaultPageSize)

	c.observer.OnStart(total, baseURL)

	for i, off := range c.offsets {
		if ctx.Err() != nil || len(records) >= domain.MaxRecords {
			break
		}
		idx := i + 1
		pageStarted := time.Now()
		pr := domain.PageResult{Index: idx, Offset: off}

		summaries, err := c.listing(ctx, off, &pr)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			pr.Status = domain.PageStatusFailed
			pr.ErrorCode = provider.ErrorCode(err)
			pr.ErrorMsg = err.Error()
			c.log.Warn("榜单页处理失败，已跳过",
				zap.Int("page", idx),
				zap.Int("offset", off),
				zap.String("url", pr.URL),
				zap.Error(err),
			)
			rr.Pages = append(rr.Pages, pr)
			c.observer.OnPageDone(idx, total, pr, time.Since(pageStarted))
			continue
		}

		pr.Status = domain.PageStatusOK
		if len(summaries) == 0 {
			pr.Status = domain.PageStatusEmpty
			c.log.Warn("榜单页没有条目", zap.Int("page", idx), zap.String("url", pr.URL))
		}

		stopped := false
		for _, s := range summaries {
			if len(records) >= domain.MaxRecords {
				break
			}
			itemStarted := time.Now()
			rank := len(records) + 1

			detail, derr := c.detail(ctx, s.URL)
			if derr != nil {
				if ctx.Err() != nil {
					stopped = true
					break
				}
				detail = domain.DefaultDetailInfo()
				rr.Failures = append(rr.Failures, domain.ItemFailure{
					Rank:      rank,
					Title:     s.Title,
					URL:       s.URL,
					ErrorCode: provider.ErrorCode(derr),
					ErrorMsg:  derr.Error(),
				})
				c.log.Warn("详情获取失败，使用默认值",
					zap.Int("page", idx),
					zap.Int("rank", rank),
					zap.String("title", s.Title),
					zap.String("url", s.URL),
					zap.Error(derr),
				)
			}

			rec := domain.NewMovieRecord(rank, s, detail)
			records = append(records, rec)
			pr.Items++
			c.observer.OnItemDone(rec, derr, time.Since(itemStarted))

			if err := c.sleep(ctx, c.delay); err != nil {
				stopped = true
				break
			}
		}

		rr.Pages = append(rr.Pages, pr)
		c.observer.OnPageDone(idx, total, pr, time.Since(pageStarted))
		if stopped {
			break
		}
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return Result{Records: records, Report: rr}
}

func (c *Crawler) listing(ctx context.Context, off int, pr *domain.PageResult) ([]domain.ListingSummary, error) {
	name := c.provider.Name()
	pageURL, err := c.provider.ListingURL(off)
	if err != nil {
		return nil, &provider.Error{Provider: name, Stage: provider.StageFetch, Err: err}
	}
	pr.URL = pageURL
	c.observer.OnPageStart(pr.Index, len(c.offsets), pageURL)
	c.log.Debug("抓取榜单页", zap.Int("page", pr.Index), zap.String("url", pageURL))

	html, err := c.provider.Fetch(ctx, c.client, pageURL)
	if err != nil {
		return nil, &provider.Error{Provider: name, Stage: provider.StageFetch, Err: err}
	}
	out, err := c.provider.ParseListing(html, pageURL)
	if err != nil {
		return nil, &provider.Error{Provider: name, Stage: provider.StageParse, Err: err}
	}
	return out, nil
}

func (c *Crawler) detail(ctx context.Context, detailURL string) (domain.DetailInfo, error) {
	name := c.provider.Name()
	if detailURL == "" {
		return domain.DetailInfo{}, &provider.Error{Provider: name, Stage: provider.StageFetch, Err: errors.New("详情链接为空")}
	}
	c.log.Debug("抓取详情页", zap.String("url", detailURL))

	html, err := c.provider.Fetch(ctx, c.client, detailURL)
	if err != nil {
		return domain.DetailInfo{}, &provider.Error{Provider: name, Stage: provider.StageFetch, Err: err}
	}
	d, err := c.provider.ParseDetail(html, detailURL)
	if err != nil {
		return domain.DetailInfo{}, &provider.Error{Provider: name, Stage: provider.StageParse, Err: err}
	}
	return d, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
