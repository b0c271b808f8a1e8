// 包 community 封装 SAP Community 搜索 API（/api/2.0/search?q=<LiQL>）。
package community

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rss-scn/internal/liql"
	"rss-scn/internal/model"
)

// Getter 为发出 JSON GET 请求的最小接口（由 *fetch.Client 实现）。
type Getter interface {
	GetJSON(ctx context.Context, rawURL string, header http.Header, out any) error
}

// Observer 接收每次上游调用的结果，用于指标统计；可为 nil。
type Observer func(outcome string, took time.Duration)

// Client 调用搜索 API；每次 Search 只发出一个请求。
type Client struct {
	base    string
	get     Getter
	timeout time.Duration
	observe Observer
}

type Options struct {
	BaseURL string
	Timeout time.Duration
	Observe Observer
}

func New(get Getter, opts Options) *Client {
	return &Client{
		base:    opts.BaseURL,
		get:     get,
		timeout: opts.Timeout,
		observe: opts.Observe,
	}
}

// ErrNoAuthor 表示作者查询没有返回结果。
var ErrNoAuthor = errors.New("no author found")

// Search 执行 LiQL 查询。上游 status 非 success 时返回 *model.UpstreamError，
// 网络/解码失败返回普通包装错误。
func (c *Client) Search(ctx context.Context, q string) (*model.SearchResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	start := time.Now()
	var resp model.SearchResponse
	err := c.get.GetJSON(ctx, c.searchURL(q), nil, &resp)
	if err == nil {
		err = resp.Err()
	}
	c.record(err, time.Since(start))
	if err != nil {
		var ue *model.UpstreamError
		if errors.As(err, &ue) {
			return nil, err
		}
		return nil, fmt.Errorf("search community: %w", err)
	}
	return &resp, nil
}

// AuthorID 按消息 id 查询作者 id。
func (c *Client) AuthorID(ctx context.Context, messageID string) (string, error) {
	resp, err := c.Search(ctx, liql.AuthorLookup(messageID))
	if err != nil {
		return "", err
	}
	if len(resp.Data.Items) == 0 || resp.Data.Items[0].Author.ID == "" {
		return "", fmt.Errorf("message %s: %w", messageID, ErrNoAuthor)
	}
	return resp.Data.Items[0].Author.ID, nil
}

func (c *Client) searchURL(q string) string {
	sep := "?"
	if strings.Contains(c.base, "?") {
		sep = "&"
	}
	return c.base + sep + url.Values{"q": {q}}.Encode()
}

func (c *Client) record(err error, took time.Duration) {
	if c.observe == nil {
		return
	}
	var ue *model.UpstreamError
	switch {
	case err == nil:
		c.observe("success", took)
	case errors.As(err, &ue):
		c.observe("upstream_error", took)
	default:
		c.observe("failure", took)
	}
}
