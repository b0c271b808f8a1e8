// 包 model 定义上游消息、关注者与 OPML 条目等数据模型。
package model

// Message 为上游搜索 API 返回的单条社区消息（字段名与 LiQL 列一致）。
type Message struct {
	ID            string  `json:"id"`
	Subject       string  `json:"subject"`
	ViewHref      string  `json:"view_href"`
	SearchSnippet string  `json:"search_snippet"`
	Body          string  `json:"body"`
	PostTime      string  `json:"post_time"`
	Author        Author  `json:"author"`
	Metrics       Metrics `json:"metrics"`
}

type Author struct {
	ID       string `json:"id"`
	Login    string `json:"login"`
	ViewHref string `json:"view_href"`
}

type Metrics struct {
	Views int `json:"views"`
}

// SearchResponse 为上游 {status, data:{items}} 响应体。
type SearchResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    struct {
		Items []Message `json:"items"`
	} `json:"data"`
}

// Follower 为关注列表中的一项。
type Follower struct {
	ProfileID string `json:"profileId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// DisplayName 返回 "名 姓"，缺省时回退到 profileId。
func (f Follower) DisplayName() string {
	name := f.FirstName
	if f.LastName != "" {
		if name != "" {
			name += " "
		}
		name += f.LastName
	}
	if name == "" {
		return f.ProfileID
	}
	return name
}

// OPMLFeed 为导出文件中的一个订阅 outline。
type OPMLFeed struct {
	Title   string
	XMLURL  string
	HTMLURL string
}

// Err 在上游 status 不是 "success" 时返回 *UpstreamError。
func (r *SearchResponse) Err() error {
	if r == nil {
		return &UpstreamError{Status: "empty response"}
	}
	if r.Status != "success" {
		return &UpstreamError{Status: r.Status, Message: r.Message}
	}
	return nil
}

// UpstreamError 表示搜索 API 报告了失败状态，对应 HTTP 500。
type UpstreamError struct {
	Status  string
	Message string
}

func (e *UpstreamError) Error() string {
	msg := "community api status " + quoteOrEmpty(e.Status)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func quoteOrEmpty(s string) string {
	if s == "" {
		return `""`
	}
	return `"` + s + `"`
}
