package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rss-scn/internal/config"
	"rss-scn/internal/metrics"
	"rss-scn/internal/model"
	"rss-scn/internal/products"
)

// fakeSearch 记录收到的查询并返回预设结果。
type fakeSearch struct {
	mu      sync.Mutex
	queries []string
	resp    *model.SearchResponse
	err     error
	panics  bool
}

func (f *fakeSearch) Search(_ context.Context, q string) (*model.SearchResponse, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.panics {
		panic("boom")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeSearch) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func okResponse() *model.SearchResponse {
	r := &model.SearchResponse{Status: "success"}
	r.Data.Items = []model.Message{{
		ID:       "13576",
		Subject:  "Hello & welcome",
		ViewHref: "/t5/technology-blogs-by-members/hello/ba-p/13576",
		Body:     "<p>hi</p>",
		PostTime: "2024-03-15T10:30:00.000+01:00",
		Author:   model.Author{Login: "marian"},
	}}
	return r
}

func newTestServer(t *testing.T, fs *fakeSearch, m *metrics.Metrics) *httptest.Server {
	t.Helper()
	tags := products.New([]products.Tag{{ID: "833755570260738661924709785639136", Title: "ABAP Development"}})
	srv := httptest.NewServer(New(config.Default(), tags, fs, m).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestMessages_AuthorFeed(t *testing.T) {
	fs := &fakeSearch{resp: okResponse()}
	srv := newTestServer(t, fs, nil)

	resp, body := get(t, srv.URL+"/api/messages?author.id=abc123")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "application/rss+xml", resp.Header.Get("Content-Type"))

	require.Len(t, fs.calls(), 1)
	assert.Equal(t, "select id, subject, view_href, search_snippet, body, post_time, author.login, author.view_href, metrics.views from messages WHERE author.id = 'abc123' ORDER BY id DESC LIMIT 25", fs.calls()[0])

	parsed, err := gofeed.NewParser().ParseString(body)
	require.NoError(t, err)
	assert.Equal(t, "SAP Community Messages RSS Feed", parsed.Title)
	require.Len(t, parsed.Items, 1)
	it := parsed.Items[0]
	assert.Equal(t, "Hello & welcome", it.Title)
	assert.Equal(t, "https://community.sap.com/t5/technology-blogs-by-members/hello/ba-p/13576", it.Link)
	require.NotNil(t, it.DublinCoreExt)
	assert.Equal(t, []string{"marian"}, it.DublinCoreExt.Creator)
}

func TestMessages_ManagedTagTitle(t *testing.T) {
	fs := &fakeSearch{resp: okResponse()}
	srv := newTestServer(t, fs, nil)

	resp, body := get(t, srv.URL+"/api/messages?managedTag.title=ABAP+Development&conversation.style=blog")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	require.Len(t, fs.calls(), 1)
	q := fs.calls()[0]
	assert.Contains(t, q, "conversation.style = 'blog'")
	assert.Contains(t, q, "products.id = '833755570260738661924709785639136'")
	assert.True(t, strings.HasSuffix(q, " ORDER BY id DESC LIMIT 25"), q)
}

func TestMessages_BadRequests(t *testing.T) {
	tests := []struct {
		name  string
		query string
		msg   string
	}{
		{"no filters", "", "at least one filter parameter is required"},
		{"unknown filter only", "?foo=bar", "at least one filter parameter is required"},
		{"unknown tag title", "?managedTag.title=Unknown", "managed tag with title 'Unknown' not found"},
		{"tag without style", "?managedTag.id=42", "conversation.style must be 'blog' or 'qanda'"},
		{"tag with bad style", "?managedTag.id=42&conversation.style=idea", "conversation.style must be 'blog' or 'qanda'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := &fakeSearch{resp: okResponse()}
			srv := newTestServer(t, fs, nil)
			resp, body := get(t, srv.URL+"/api/messages"+tt.query)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, body, tt.msg)
			assert.Empty(t, fs.calls(), "no upstream call on validation failure")
		})
	}
}

func TestMessages_UpstreamFailures(t *testing.T) {
	tests := []struct {
		name string
		fs   *fakeSearch
		msg  string
	}{
		{"upstream status", &fakeSearch{err: &model.UpstreamError{Status: "error", Message: "bad"}}, msgUpstream},
		{"wrapped upstream", &fakeSearch{err: errors.Join(errors.New("ctx"), &model.UpstreamError{Status: "error"})}, msgUpstream},
		{"transport", &fakeSearch{err: errors.New("dial tcp: refused")}, msgInternal},
		{"error response body", &fakeSearch{resp: &model.SearchResponse{Status: "error", Message: "nope"}}, msgUpstream},
		{"panic", &fakeSearch{panics: true}, msgInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.fs, nil)
			resp, body := get(t, srv.URL+"/api/messages?board.id=x")
			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			assert.Equal(t, tt.msg, strings.TrimSpace(body))
		})
	}
}

func TestMessages_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &fakeSearch{resp: okResponse()}, nil)
	resp, err := http.Post(srv.URL+"/api/messages?author.id=a", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRequestID(t *testing.T) {
	srv := newTestServer(t, &fakeSearch{resp: okResponse()}, nil)

	resp, _ := get(t, srv.URL+"/healthz")
	assert.Len(t, resp.Header.Get(headerRequestID), 36)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(headerRequestID, "trace-1")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "trace-1", resp.Header.Get(headerRequestID))
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	srv := newTestServer(t, &fakeSearch{resp: okResponse()}, m)

	get(t, srv.URL+"/api/messages?author.id=a")
	get(t, srv.URL+"/api/messages")

	resp, body := get(t, srv.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `rssscn_http_requests_total{code="200",route="/api/messages"} 1`)
	assert.Contains(t, body, `rssscn_http_requests_total{code="400",route="/api/messages"} 1`)
}

func TestServe_GracefulShutdown(t *testing.T) {
	cfg := config.Default()
	cfg.Listen = "127.0.0.1:0"
	hs := NewHTTPServer(cfg, http.NotFoundHandler())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- ListenAndServe(ctx, hs) }()
	cancel()
	assert.NoError(t, <-done)
}
