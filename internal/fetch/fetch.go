// 包 fetch 封装出站 HTTP 客户端（代理/超时/可选重试），
// 供上游搜索 API 与关注列表抓取共用。
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"
)

const defaultUA = "rss-scn/1.0 (+https://github.com/marianfoo/rss-scn)"

// maxBody 限制单个响应体读取上限。
const maxBody = 8 << 20

// Client 为带可选重试的 HTTP 客户端，重试次数为 0 时每次调用只发出一个请求。
type Client struct {
	http  *http.Client
	retry int
	ua    string
}

type Options struct {
	ProxyHTTP  string
	ProxyHTTPS string
	Timeout    time.Duration
	Retry      int
	UserAgent  string
}

// New 创建客户端，支持 http/https 代理与超时配置。
func New(opts Options) (*Client, error) {
	var httpProxy, httpsProxy *url.URL
	var err error
	if opts.ProxyHTTP != "" {
		if httpProxy, err = url.Parse(opts.ProxyHTTP); err != nil {
			return nil, fmt.Errorf("parse http proxy: %w", err)
		}
	}
	if opts.ProxyHTTPS != "" {
		if httpsProxy, err = url.Parse(opts.ProxyHTTPS); err != nil {
			return nil, fmt.Errorf("parse https proxy: %w", err)
		}
	}
	transport := &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "https" && httpsProxy != nil {
				return httpsProxy, nil
			}
			if req.URL.Scheme == "http" && httpProxy != nil {
				return httpProxy, nil
			}
			return http.ProxyFromEnvironment(req)
		},
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConnsPerHost:   8,
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.Retry < 0 {
		opts.Retry = 0
	}
	ua := opts.UserAgent
	if v := os.Getenv("RSSSCN_UA"); v != "" {
		ua = v
	}
	if ua == "" {
		ua = defaultUA
	}
	return &Client{
		http:  &http.Client{Transport: transport, Timeout: opts.Timeout},
		retry: opts.Retry,
		ua:    ua,
	}, nil
}

// Get 发出 GET 请求，非 2xx 视为错误。
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	return c.GetWith(ctx, rawURL, nil)
}

// GetWith 与 Get 相同，但附加自定义请求头（如 Accept/Referer）。
// 失败时按 300ms 线性回退重试 retry 次。
func (c *Client) GetWith(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	var lastErr error
	for i := 0; i <= c.retry; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(i) * 300 * time.Millisecond):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("new request: %w", err)
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		if req.Header.Get("User-Agent") == "" {
			req.Header.Set("User-Agent", c.ua)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}
		lastErr = &StatusError{URL: rawURL, Code: resp.StatusCode, Status: resp.Status}
		resp.Body.Close()
	}
	return nil, lastErr
}

// GetJSON 请求并将响应体解码到 out。
func (c *Client) GetJSON(ctx context.Context, rawURL string, header http.Header, out any) error {
	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	if h.Get("Accept") == "" {
		h.Set("Accept", "application/json, text/plain, */*")
	}
	resp, err := c.GetWith(ctx, rawURL, h)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(out); err != nil {
		return fmt.Errorf("decode json from %s: %w", rawURL, err)
	}
	return nil
}

// GetBody 请求并返回（受限长度的）响应体。
func (c *Client) GetBody(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	resp, err := c.GetWith(ctx, rawURL, header)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body %s: %w", rawURL, err)
	}
	return b, nil
}

// StatusError 表示上游返回了非 2xx 状态码。
type StatusError struct {
	URL    string
	Code   int
	Status string
}

func (e *StatusError) Error() string { return fmt.Sprintf("GET %s: http status %s", e.URL, e.Status) }
