// 包 server 提供 HTTP 入口：
// - GET /api/messages：过滤参数 → LiQL → 上游搜索 → RSS
// - GET /healthz 与 GET /metrics
package server

import (
	"context"
	"errors"
	"net/http"

	"rss-scn/internal/config"
	"rss-scn/internal/feed"
	"rss-scn/internal/liql"
	"rss-scn/internal/metrics"
	"rss-scn/internal/model"
)

const (
	msgUpstream = "Error fetching data from SAP Community API"
	msgInternal = "Internal Server Error"
	rssType     = "application/rss+xml"
)

// Searcher 执行一次上游查询（由 *community.Client 实现）。
type Searcher interface {
	Search(ctx context.Context, q string) (*model.SearchResponse, error)
}

// API 持有只读依赖，可被并发请求共享。
type API struct {
	tags     liql.TagResolver
	search   Searcher
	metrics  *metrics.Metrics
	feedOpts feed.Options
}

// New 创建 API；tags 为启动时加载的标签目录，m 可为 nil。
func New(cfg *config.Config, tags liql.TagResolver, search Searcher, m *metrics.Metrics) *API {
	return &API{
		tags:    tags,
		search:  search,
		metrics: m,
		feedOpts: feed.Options{
			Title:          cfg.Feed.Title,
			Description:    cfg.Feed.Description,
			SiteURL:        cfg.Community.SiteURL,
			Language:       cfg.Feed.Language,
			Generator:      "rss-scn",
			IncludeContent: cfg.Feed.IncludeContent,
		},
	}
}

func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /api/messages", a.instrument("/api/messages", http.HandlerFunc(a.handleMessages)))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	if a.metrics != nil {
		mux.Handle("GET /metrics", a.metrics.Handler())
	}
	return withRequestID(withAccessLog(withRecover(mux)))
}

func (a *API) handleMessages(w http.ResponseWriter, r *http.Request) {
	log := loggerFrom(r.Context())
	filters := liql.FromValues(r.URL.Query())
	q, err := liql.Compile(filters, a.tags)
	if err != nil {
		var ve *liql.ValidationError
		if errors.As(err, &ve) {
			http.Error(w, ve.Msg, http.StatusBadRequest)
			return
		}
		log.Error("compile query", "error", err)
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}
	log.Debug("compiled query", "q", q)

	body, err := a.buildFeed(r.Context(), q)
	if err != nil {
		var ue *model.UpstreamError
		if errors.As(err, &ue) {
			log.Error("community api returned failure", "status", ue.Status, "message", ue.Message, "q", q)
			http.Error(w, msgUpstream, http.StatusInternalServerError)
			return
		}
		log.Error("build feed", "error", err, "q", q)
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", rssType)
	_, _ = w.Write(body)
}

func (a *API) buildFeed(ctx context.Context, q string) ([]byte, error) {
	resp, err := a.search.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	doc, err := feed.Project(resp, a.feedOpts)
	if err != nil {
		return nil, err
	}
	return feed.Render(doc)
}
