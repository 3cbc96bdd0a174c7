package provider

import (
	"fmt"
	"net/url"
)

// HTTPStatusError 是榜单页/详情页的非 2xx 响应。
//
// 豆瓣对不存在的条目回 404，对限流中的客户端回 403 或 302 到 sec.douban.com；
// RedirectTo 仅在 3xx 且未被 client 跟随时有值。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	RedirectTo string
}

func (e *HTTPStatusError) Error() string {
	msg := fmt.Sprintf("HTTP %d %s", e.StatusCode, shortURL(e.URL))
	if e.RedirectTo != "" {
		msg += " -> " + e.RedirectTo
	}
	return msg
}

// BlockedError 表示拿到的是豆瓣的验证页而不是内容页。
// Via 说明判定依据：验证页域名或提示文案。
type BlockedError struct {
	URL string
	Via string
}

func (e *BlockedError) Error() string {
	if e.Via == "" {
		return "被豆瓣拦截：" + shortURL(e.URL)
	}
	return fmt.Sprintf("被豆瓣拦截（%s）：%s", e.Via, shortURL(e.URL))
}

// BodyTooLargeError 表示响应体超过了 max_body_size。
type BodyTooLargeError struct {
	URL   string
	Limit int64
}

func (e *BodyTooLargeError) Error() string {
	return fmt.Sprintf("响应体超过上限 %d 字节：%s", e.Limit, shortURL(e.URL))
}

// shortURL 只保留 path 与 query，报告里的长地址读起来更省事。
func shortURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return raw
	}
	return u.RequestURI()
}
