package provider

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"golang.org/x/net/html/charset"
)

// DefaultMaxBodySize 是单个页面允许读取的最大字节数。
const DefaultMaxBodySize int64 = 5 << 20

// Response 是一次 GET 的结果。Body 已解码为 UTF-8。
type Response struct {
	URL        string // 跟随重定向后的最终地址
	StatusCode int
	Body       []byte
}

// Get 发起一次 GET 并读取响应体（按 Content-Type/meta 声明转码为 UTF-8）。
//
// 非 2xx 时同时返回 Response 与 *HTTPStatusError：站点的拦截页常以 403 返回，
// 调用方需要看到响应体才能识别。
func Get(ctx context.Context, c *http.Client, u string, maxBody int64) (Response, error) {
	if c == nil {
		return Response{}, errors.New("http client 不能为空")
	}
	if maxBody <= 0 {
		maxBody = DefaultMaxBodySize
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Response{}, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	out := Response{URL: u, StatusCode: resp.StatusCode}
	if resp.Request != nil && resp.Request.URL != nil {
		out.URL = resp.Request.URL.String()
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return out, err
	}
	if int64(len(raw)) > maxBody {
		return out, &BodyTooLargeError{URL: u, Limit: maxBody}
	}
	// 空响应体不经过 charset：NewReader 对空输入返回 io.EOF，会盖住状态码。
	if len(raw) > 0 {
		r, err := charset.NewReader(bytes.NewReader(raw), resp.Header.Get("Content-Type"))
		if err != nil {
			return out, err
		}
		if out.Body, err = io.ReadAll(r); err != nil {
			return out, err
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return out, &HTTPStatusError{URL: u, StatusCode: resp.StatusCode, RedirectTo: resp.Header.Get("Location")}
	}
	return out, nil
}
