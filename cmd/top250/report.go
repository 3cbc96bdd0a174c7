package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/John-Robertt/top250/internal/domain"
)

// emitReport 输出一次爬取的结果。
//
// stdout 是 TTY：打印人类可读的摘要；否则 stdout 必须且仅输出一个 RunReport JSON，
// 摘要改走 stderr。
func emitReport(stdout, stderr io.Writer, rr domain.RunReport, files []string) {
	s := rr.Summary
	if isTTY(stdout) {
		fmt.Fprintf(stdout, "爬取完成！共获取 %d 部电影。\n", s.Records)
		if s.PagesFailed > 0 || s.DetailFailed > 0 {
			fmt.Fprintf(stdout, "失败：pages=%d detail=%d（详情见 report.json）\n", s.PagesFailed, s.DetailFailed)
			for _, p := range rr.Pages {
				if p.Status == domain.PageStatusFailed {
					fmt.Fprintf(stderr, "page %d %s: %s\n", p.Index, p.ErrorCode, p.ErrorMsg)
				}
			}
			for _, f := range rr.Failures {
				fmt.Fprintf(stderr, "[%d] %s %s: %s\n", f.Rank, f.Title, f.ErrorCode, f.ErrorMsg)
			}
		}
		for _, f := range files {
			fmt.Fprintf(stdout, "  %s\n", f)
		}
		return
	}

	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(rr)
	fmt.Fprintf(stderr, "完成：records=%d pages_failed=%d detail_failed=%d\n",
		s.Records, s.PagesFailed, s.DetailFailed,
	)
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// pickProgressWriter 选择进度输出目标：默认走 stderr，不污染 stdout 的 JSON。
func pickProgressWriter(stdout, stderr io.Writer) io.Writer {
	// 仅重定向 stderr 时 stdout 仍是 TTY：退化输出到 stdout。
	if !isTTY(stderr) && isTTY(stdout) {
		return stdout
	}
	return stderr
}
