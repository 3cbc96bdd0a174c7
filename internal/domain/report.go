package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	PageStatusOK     = "ok"
	PageStatusEmpty  = "empty"
	PageStatusFailed = "failed"
)

const (
	ErrCodeFetchFailed = "fetch_failed"
	ErrCodeBlocked     = "blocked"
	ErrCodeParseFailed = "parse_failed"
)

// RunReport 是一次爬取的对外稳定摘要（report.json / stdout JSON）。
type RunReport struct {
	BaseURL string `json:"base_url"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary  ReportSummary `json:"summary"`
	Pages    []PageResult  `json:"pages"`
	Failures []ItemFailure `json:"detail_failures"`
}

type ReportSummary struct {
	Pages        int `json:"pages"`
	PagesFailed  int `json:"pages_failed"`
	Records      int `json:"records"`
	DetailFailed int `json:"detail_failed"`
}

// PageResult 记录一页榜单的处理结果。Index 从 1 开始。
type PageResult struct {
	Index     int    `json:"index"`
	Offset    int    `json:"offset"`
	URL       string `json:"url"`
	Status    string `json:"status"`
	Items     int    `json:"items"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

// ItemFailure 记录详情抓取/解析失败的条目；该条目仍以摘要字段入库。
type ItemFailure struct {
	Rank      int    `json:"rank"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC
// 2) pages 按 index、failures 按 rank 稳定排序
// 3) summary 由明细计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	if r.Pages == nil {
		r.Pages = []PageResult{}
	}
	if r.Failures == nil {
		r.Failures = []ItemFailure{}
	}
	sort.SliceStable(r.Pages, func(i, j int) bool { return r.Pages[i].Index < r.Pages[j].Index })
	sort.SliceStable(r.Failures, func(i, j int) bool { return r.Failures[i].Rank < r.Failures[j].Rank })

	s := ReportSummary{Pages: len(r.Pages), DetailFailed: len(r.Failures)}
	for _, p := range r.Pages {
		if p.Status == PageStatusFailed {
			s.PagesFailed++
			continue
		}
		s.Records += p.Items
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
