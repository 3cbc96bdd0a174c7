package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/John-Robertt/top250/internal/domain"
)

// Provider 把“站点变化”限制在 provider 包内部；爬取流程只依赖统一接口与稳定的 domain 类型。
//
// 约束：
// - Fetch 不做缓存、不做重试、不做限速（限速由 crawl 统一实现）
// - ParseListing/ParseDetail 必须是纯函数：相同输入 => 相同输出
// - ParseListing 返回的 URL 必须是绝对地址
type Provider interface {
	Name() string
	ListingURL(offset int) (string, error)
	Fetch(ctx context.Context, c *http.Client, pageURL string) ([]byte, error)
	ParseListing(html []byte, pageURL string) ([]domain.ListingSummary, error)
	ParseDetail(html []byte, pageURL string) (domain.DetailInfo, error)
}

const (
	StageFetch = "fetch"
	StageParse = "parse"
)

// Error 是 provider 阶段的可追溯错误。
// 上层据此把失败归类为 fetch_failed / blocked / parse_failed，并写入 report。
type Error struct {
	Provider string
	Stage    string // StageFetch 或 StageParse
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider=%s stage=%s: %v", e.Provider, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorCode 把错误映射为 report 里的 error_code。
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var be *BlockedError
	if errors.As(err, &be) {
		return domain.ErrCodeBlocked
	}
	var pe *Error
	if errors.As(err, &pe) && pe.Stage == StageParse {
		return domain.ErrCodeParseFailed
	}
	return domain.ErrCodeFetchFailed
}
