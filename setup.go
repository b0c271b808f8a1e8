package main

import (
	"fmt"
	"time"

	"rss-scn/internal/community"
	"rss-scn/internal/config"
	"rss-scn/internal/fetch"
	"rss-scn/internal/logx"
	"rss-scn/internal/metrics"
)

// loadConfig 读取配置并初始化日志；--log-level 优先于文件中的 LOG_LEVEL。
func loadConfig(g *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	logx.Init(cfg.LogLevel, cfg.LogFormat, cfg.LogLocale, cfg.LogColor)
	return cfg, nil
}

// newCommunity 构造出站 HTTP 客户端与搜索 API 客户端。
func newCommunity(cfg *config.Config, retry int, m *metrics.Metrics) (*fetch.Client, *community.Client, error) {
	timeout := time.Duration(cfg.Community.TimeoutSec) * time.Second
	cl, err := fetch.New(fetch.Options{
		ProxyHTTP:  cfg.Proxy.HTTP,
		ProxyHTTPS: cfg.Proxy.HTTPS,
		Timeout:    timeout,
		Retry:      retry,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("http client: %w", err)
	}
	opts := community.Options{BaseURL: cfg.Community.BaseURL, Timeout: timeout}
	if m != nil {
		opts.Observe = m.ObserveUpstream
	}
	return cl, community.New(cl, opts), nil
}
