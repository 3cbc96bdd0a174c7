package crawl

import (
	"time"

	"github.com/John-Robertt/top250/internal/domain"
)

// Observer 用于把“页/条目进度”从爬取流程中解耦出来。
//
// 约束：
// - crawl 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）
// - 事件按发生顺序在爬取 goroutine 上同步调用；实现不应阻塞
type Observer interface {
	// OnStart 在第一次请求之前调用。
	OnStart(pages int, baseURL string)
	// OnPageStart 在抓取第 idx 页（1-based）之前调用。
	OnPageStart(idx, total int, pageURL string)
	// OnPageDone 在第 idx 页处理完（含其全部条目）后调用。
	OnPageDone(idx, total int, res domain.PageResult, dur time.Duration)
	// OnItemDone 在一条记录追加到集合后调用；detailErr 非空表示详情已降级为默认值。
	OnItemDone(rec domain.MovieRecord, detailErr error, dur time.Duration)
}

type nopObserver struct{}

func (nopObserver) OnStart(int, string) {}
func (nopObserver) OnPageStart(int, int, string) {}
func (nopObserver) OnPageDone(int, int, domain.PageResult, time.Duration) {}
func (nopObserver) OnItemDone(domain.MovieRecord, error, time.Duration) {}
