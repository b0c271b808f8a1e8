// 包 feed 将上游搜索结果投影为 RSS 2.0 文档：
// - Project：字段映射、日期选择、频道发布时间计算（纯函数，无 I/O）
// - Render：序列化为带 content/dc/rdf/taxo 命名空间的 XML
package feed

import (
	"strings"
	"time"

	"rss-scn/internal/model"
)

// Options 为频道级元数据与可选行为。
type Options struct {
	Title          string
	Description    string
	SiteURL        string
	Language       string
	Generator      string
	IncludeContent bool
	// Now 返回生成时间，测试中可替换；为 nil 时使用 time.Now。
	Now func() time.Time
}

// Document 为一次请求生成的 feed。
type Document struct {
	Title          string
	Description    string
	Link           string
	Language       string
	Generator      string
	PubDate        time.Time
	BuildDate      time.Time
	IncludeContent bool
	Items          []Item
}

// Item 为一条 feed 条目。GUID 固定取消息 id。
type Item struct {
	Title       string
	Link        string
	Description string
	Content     string
	Creator     string
	GUID        string
	Date        time.Time
}

// Project 将上游响应映射为 Document；上游状态非 success 时返回 *model.UpstreamError。
func Project(resp *model.SearchResponse, opts Options) (*Document, error) {
	if err := resp.Err(); err != nil {
		return nil, err
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	built := now().UTC()
	site := strings.TrimRight(opts.SiteURL, "/")

	doc := &Document{
		Title:          opts.Title,
		Description:    opts.Description,
		Link:           site,
		Language:       opts.Language,
		Generator:      opts.Generator,
		BuildDate:      built,
		IncludeContent: opts.IncludeContent,
		Items:          make([]Item, 0, len(resp.Data.Items)),
	}
	var latest time.Time
	for _, m := range resp.Data.Items {
		it := Item{
			Title:       xmlText(m.Subject),
			Link:        absURL(site, m.ViewHref),
			Description: xmlText(m.SearchSnippet),
			Creator:     xmlText(m.Author.Login),
			GUID:        xmlText(m.ID),
			Date:        parseTime(m.PostTime),
		}
		if it.Description == "" {
			it.Description = xmlText(m.Body)
		}
		if opts.IncludeContent {
			it.Content = xmlText(m.Body)
		}
		if it.GUID == "" {
			it.GUID = it.Link
		}
		if it.Date.After(latest) {
			latest = it.Date
		}
		doc.Items = append(doc.Items, it)
	}
	if latest.IsZero() {
		latest = built
	}
	doc.PubDate = latest
	return doc, nil
}

// xmlText 将非法 UTF-8 替换为 U+FFFD，并去掉 XML 1.0 Char 之外的字符（如 \x0b），
// 否则 CDATA 中的控制字符会使整个文档无法解析。
func xmlText(s string) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	return strings.Map(func(r rune) rune {
		if isXMLChar(r) {
			return r
		}
		return -1
	}, s)
}

func isXMLChar(r rune) bool {
	switch {
	case r == 0x09 || r == 0x0A || r == 0x0D:
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}

// absURL 将 view_href（通常是站内路径）拼接为绝对链接。
func absURL(site, href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if href == "" {
		return site
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return site + href
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime 解析上游 post_time；无法解析时返回零值（该条目不输出日期）。
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
