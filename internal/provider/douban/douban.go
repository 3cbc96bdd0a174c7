package douban

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/top250/internal/domain"
	providerx "github.com/John-Robertt/top250/internal/provider"
)

// DefaultBaseURL 是豆瓣电影 Top 250 榜单地址。
const DefaultBaseURL = "https://movie.douban.com/top250"

// blockMarker 出现在豆瓣“检测到有异常请求”的验证页中。
const blockMarker = "检测到有异常请求"

// Provider 实现豆瓣榜单页/详情页的抓取与解析。
//
// 约束：
// - Fetch 不做重试；拦截页归类为 BlockedError，不尝试绕过
// - ParseListing/ParseDetail 是纯函数（只依赖 html + pageURL）
type Provider struct {
	BaseURL     string // 为空时使用 DefaultBaseURL
	MaxBodySize int64  // <=0 时使用 provider.DefaultMaxBodySize
}

func (Provider) Name() string { return "douban" }

func (p Provider) baseURL() string {
	u := strings.TrimSpace(p.BaseURL)
	if u == "" {
		return DefaultBaseURL
	}
	return u
}

// ListingURL 返回 offset 对应的榜单页地址：{base}?start={offset}。
// base 原有的其它 query 参数保留。
func (p Provider) ListingURL(offset int) (string, error) {
	if offset < 0 {
		return "", errors.New("offset 不能为负数")
	}
	u, err := url.Parse(p.baseURL())
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.New("base_url 必须是绝对地址：" + p.baseURL())
	}
	q := u.Query()
	q.Set("start", strconv.Itoa(offset))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch 抓取任意豆瓣页面（榜单页或详情页）。
func (p Provider) Fetch(ctx context.Context, c *http.Client, pageURL string) ([]byte, error) {
	resp, err := providerx.Get(ctx, c, pageURL, p.MaxBodySize)
	if via := blockedVia(resp); via != "" {
		return nil, &providerx.BlockedError{URL: pageURL, Via: via}
	}
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func blockedVia(resp providerx.Response) string {
	if u, err := url.Parse(resp.URL); err == nil && strings.EqualFold(u.Hostname(), "sec.douban.com") {
		return "sec.douban.com"
	}
	// 正常页面（例如短评）也可能引用这句提示，只在非 2xx 响应里认它。
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok && bytes.Contains(resp.Body, []byte(blockMarker)) {
		return "异常请求"
	}
	return ""
}

// ParseListing 解析榜单页；条目按文档顺序返回。无条目时返回空切片。
func (Provider) ParseListing(html []byte, pageURL string) ([]domain.ListingSummary, error) {
	doc, err := newDocument(html)
	if err != nil {
		return nil, err
	}
	return ParseListing(doc, pageURL), nil
}

// ParseDetail 解析详情页。
func (Provider) ParseDetail(html []byte, pageURL string) (domain.DetailInfo, error) {
	doc, err := newDocument(html)
	if err != nil {
		return domain.DetailInfo{}, err
	}
	return ExtractDetail(doc), nil
}

func newDocument(html []byte) (*goquery.Document, error) {
	if len(bytes.TrimSpace(html)) == 0 {
		return nil, errors.New("html 为空")
	}
	return goquery.NewDocumentFromReader(bytes.NewReader(html))
}
