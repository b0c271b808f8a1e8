// 包 config 负责加载与校验应用配置（settings.yaml），
// 对外提供结构体 Config 及默认值/合法性校验。
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultSearchAPI = "https://community.sap.com/api/2.0/search"
	DefaultSiteURL   = "https://community.sap.com"
)

type Config struct {
	Listen       string    `yaml:"LISTEN"`
	ProductsFile string    `yaml:"PRODUCTS_FILE"`
	Community    Community `yaml:"COMMUNITY"`
	Feed         Feed      `yaml:"FEED"`
	HTTP         HTTP      `yaml:"HTTP"`
	OPML         OPML      `yaml:"OPML"`
	Proxy        Proxy     `yaml:"PROXY"`
	LogLevel     string    `yaml:"LOG_LEVEL"`
	LogFormat    string    `yaml:"LOG_FORMAT"` // pretty|json|text
	LogLocale    string    `yaml:"LOG_LOCALE"` // en|zh-CN
	LogColor     string    `yaml:"LOG_COLOR"`  // auto|always|never
}

// Community 描述上游搜索 API。Retry 默认 0：每个请求只访问上游一次。
type Community struct {
	BaseURL    string `yaml:"base_url"`
	SiteURL    string `yaml:"site_url"`
	TimeoutSec int    `yaml:"timeout_sec"`
	Retry      int    `yaml:"retry"`
}

type Feed struct {
	Title          string `yaml:"title"`
	Description    string `yaml:"description"`
	Language       string `yaml:"language"`
	IncludeContent bool   `yaml:"include_content"`
}

type HTTP struct {
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	IdleTimeoutSec  int `yaml:"idle_timeout_sec"`
}

// OPML 为关注列表导出（opml 子命令）的参数。
type OPML struct {
	ProfileID   string `yaml:"profile_id"`
	ProfileAPI  string `yaml:"profile_api"`
	ProfileSite string `yaml:"profile_site"`
	SearchProxy string `yaml:"search_proxy"`
	FeedBaseURL string `yaml:"feed_base_url"`
	Output      string `yaml:"output"`
	Concurrency int    `yaml:"concurrency"`
	Retry       int    `yaml:"retry"`
}

type Proxy struct {
	HTTP  string `yaml:"http"`
	HTTPS string `yaml:"https"`
}

// Default 返回已填充默认值的配置。
func Default() *Config {
	c := &Config{}
	_ = c.Validate()
	return c
}

// Load 读取 YAML 并校验；文件不存在时使用默认值。PORT 环境变量覆盖监听地址。
func Load(path string) (*Config, error) {
	var c Config
	f, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("open config %s: %w", path, err)
	default:
		defer f.Close()
		b, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
		}
	}
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		c.Listen = ":" + port
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Validate 负责合法性检查与默认值设置，避免在业务层分散判空逻辑。
func (c *Config) Validate() error {
	if c.Community.TimeoutSec < 0 || c.Community.Retry < 0 {
		return errors.New("COMMUNITY.timeout_sec and COMMUNITY.retry must be >= 0")
	}
	if c.OPML.Concurrency < 0 || c.OPML.Retry < 0 {
		return errors.New("OPML.concurrency and OPML.retry must be >= 0")
	}
	if c.Listen == "" {
		c.Listen = ":3100"
	}
	if c.ProductsFile == "" {
		c.ProductsFile = "products.json"
	}
	if c.Community.BaseURL == "" {
		c.Community.BaseURL = DefaultSearchAPI
	}
	if c.Community.SiteURL == "" {
		c.Community.SiteURL = DefaultSiteURL
	}
	c.Community.SiteURL = strings.TrimRight(c.Community.SiteURL, "/")
	if c.Community.TimeoutSec == 0 {
		c.Community.TimeoutSec = 20
	}
	if c.Feed.Title == "" {
		c.Feed.Title = "SAP Community Messages RSS Feed"
	}
	if c.Feed.Description == "" {
		c.Feed.Description = "Latest messages from the SAP Community"
	}
	if c.Feed.Language == "" {
		c.Feed.Language = "en"
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.IdleTimeoutSec <= 0 {
		c.HTTP.IdleTimeoutSec = 60
	}
	if c.OPML.ProfileAPI == "" {
		c.OPML.ProfileAPI = "https://api.profile.sap.com"
	}
	if c.OPML.ProfileSite == "" {
		c.OPML.ProfileSite = "https://profile.sap.com"
	}
	if c.OPML.SearchProxy == "" {
		c.OPML.SearchProxy = "https://searchproxy.api.community.sap.com"
	}
	if c.OPML.FeedBaseURL == "" {
		c.OPML.FeedBaseURL = "https://rss-scn.marianzeis.de"
	}
	if c.OPML.Output == "" {
		c.OPML.Output = "followers_feeds.opml"
	}
	if c.OPML.Concurrency == 0 {
		c.OPML.Concurrency = 1
	}
	if c.LogFormat == "" {
		c.LogFormat = "pretty"
	}
	if c.LogLocale == "" {
		c.LogLocale = "en"
	}
	if c.LogColor == "" {
		c.LogColor = "auto"
	}
	return nil
}
