package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/John-Robertt/top250/internal/domain"
	"github.com/John-Robertt/top250/internal/provider"
)

func TestProgressUI_Lines(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressUI(&buf)

	p.OnStart(10, "https://movie.douban.com/top250")
	p.OnPageStart(1, 10, "https://movie.douban.com/top250?start=0")
	p.OnItemDone(domain.MovieRecord{Rank: 1, Title: "肖申克的救赎"}, nil, 1500*time.Millisecond)
	blocked := &provider.Error{Provider: "douban", Stage: provider.StageFetch, Err: &provider.BlockedError{URL: "u", Via: "验证页"}}
	p.OnItemDone(domain.MovieRecord{Rank: 2, Title: "霸王别姬"}, blocked, time.Second)
	p.OnPageDone(1, 10, domain.PageResult{Index: 1, Status: domain.PageStatusOK, Items: 2}, 3*time.Second)
	p.OnPageDone(2, 10, domain.PageResult{Index: 2, Status: domain.PageStatusFailed, ErrorCode: domain.ErrCodeFetchFailed, ErrorMsg: "HTTP 500"}, time.Second)

	got := buf.String()
	for _, want := range []string{
		"开始爬取豆瓣电影Top250",
		"正在爬取第 1/10 页...",
		"[1] 《肖申克的救赎》 OK (1.5s)",
		"[2] 《霸王别姬》 FAIL blocked:",
		"items=2 ok=1 fail=1",
		"第 2/10 页 FAIL fetch_failed: HTTP 500",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("进度输出缺少 %q：\n%s", want, got)
		}
	}
}

func TestTruncate_RuneSafe(t *testing.T) {
	if got := truncate("一二三四五六", 5); got != "一二..." {
		t.Fatalf("期望按 rune 截断，实际=%q", got)
	}
	if got := truncate("  短  ", 5); got != "短" {
		t.Fatalf("期望去掉首尾空白，实际=%q", got)
	}
}

func TestFormatElapsed(t *testing.T) {
	if got := formatElapsed(3723 * time.Second); got != "01:02:03" {
		t.Fatalf("期望 01:02:03，实际=%q", got)
	}
	if got := formatShortDuration(-time.Second); got != "0.0s" {
		t.Fatalf("负数应视为 0，实际=%q", got)
	}
}

func TestEmitReport_NonTTYWritesSingleJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	rr := domain.RunReport{Pages: []domain.PageResult{{Index: 1, Status: domain.PageStatusOK, Items: 3}}}
	rr.Finalize()

	emitReport(&stdout, &stderr, rr, []string{"a.csv"})

	if strings.Count(stdout.String(), "\n") != 1 || !strings.HasPrefix(stdout.String(), "{") {
		t.Fatalf("stdout 应只有一行 JSON：%q", stdout.String())
	}
	if strings.Contains(stdout.String(), "a.csv") {
		t.Fatalf("非 TTY 时不应输出文件列表到 stdout")
	}
	if !strings.Contains(stderr.String(), "records=3") {
		t.Fatalf("stderr 缺少摘要：%q", stderr.String())
	}
}

func TestPickProgressWriter_NonTTYUsesStderr(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if w := pickProgressWriter(&stdout, &stderr); w != &stderr {
		t.Fatalf("非 TTY 时进度应写到 stderr")
	}
}
