package liql

import (
	"net/url"
	"strconv"
	"strings"
)

// 可识别的过滤参数名（即 /api/messages 的查询参数）。
const (
	KeyAuthorID          = "author.id"
	KeyBoardID           = "board.id"
	KeyID                = "id"
	KeySubject           = "subject"
	KeyConversationStyle = "conversation.style"
	KeyPostTimeFrom      = "post_time_from"
	KeyPostTimeTo        = "post_time_to"
	KeyMinViews          = "min_views"
	KeyManagedTagID      = "managedTag.id"
	KeyManagedTagTitle   = "managedTag.title"
	KeyFeedsReplies      = "feeds.replies"
)

// Keys 为全部可识别参数，顺序即条件的拼接顺序。
var Keys = []string{
	KeyAuthorID, KeyBoardID, KeyID, KeySubject, KeyConversationStyle,
	KeyPostTimeFrom, KeyPostTimeTo, KeyMinViews,
	KeyManagedTagID, KeyManagedTagTitle, KeyFeedsReplies,
}

// MessageFields 为 feed 查询固定选取的列。
var MessageFields = []string{
	"id", "subject", "view_href", "search_snippet", "body", "post_time",
	"author.login", "author.view_href", "metrics.views",
}

const (
	// FeedLimit 为每次查询返回的固定条数，调用方无法修改。
	FeedLimit = 25
	// FeedSuffix 为每条 feed 查询的固定结尾。
	FeedSuffix = "ORDER BY id DESC LIMIT 25"
)

// FilterSet 为调用方提供的过滤参数，仅保留可识别的键；值为空视为未提供。
type FilterSet map[string]string

// FromValues 从查询字符串中提取可识别参数（同名参数取第一个值）。
func FromValues(v url.Values) FilterSet {
	fs := FilterSet{}
	for _, k := range Keys {
		if s := v.Get(k); s != "" {
			fs[k] = s
		}
	}
	return fs
}

func (fs FilterSet) get(k string) (string, bool) {
	v, ok := fs[k]
	return v, ok && v != ""
}

// Empty 报告是否不含任何可识别参数。
func (fs FilterSet) Empty() bool {
	for _, k := range Keys {
		if _, ok := fs.get(k); ok {
			return false
		}
	}
	return true
}

// TagResolver 按标题查找托管标签 id（由 products.Catalog 实现）。
type TagResolver interface {
	LookupTitle(title string) (string, bool)
}

// ValidationError 表示调用方输入不足或不合法，对应 HTTP 400。
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(msg string) error { return &ValidationError{Msg: msg} }

// Compile 将过滤参数翻译为 feed 查询语句。
// 结尾总是 ORDER BY id DESC LIMIT 25；唯一的失败类型为 *ValidationError。
func Compile(fs FilterSet, tags TagResolver) (string, error) {
	q, err := Build(fs, tags)
	if err != nil {
		return "", err
	}
	return q.String(), nil
}

// Build 与 Compile 相同，但返回未渲染的 Query。
func Build(fs FilterSet, tags TagResolver) (*Query, error) {
	if fs.Empty() {
		return nil, invalid("at least one filter parameter is required: " + strings.Join(Keys, ", "))
	}
	tagID, hasTagID := fs.get(KeyManagedTagID)
	tagTitle, hasTagTitle := fs.get(KeyManagedTagTitle)
	style, hasStyle := fs.get(KeyConversationStyle)
	// 先解析标题，再校验 style：未知标题优先报告为 "not found"。
	if hasTagTitle && !hasTagID {
		id, ok := "", false
		if tags != nil {
			id, ok = tags.LookupTitle(tagTitle)
		}
		if !ok {
			return nil, invalid("managed tag with title '" + tagTitle + "' not found")
		}
		tagID = id
	}
	if (hasTagID || hasTagTitle) && style != "blog" && style != "qanda" {
		return nil, invalid("conversation.style must be 'blog' or 'qanda' when filtering by managedTag.id or managedTag.title")
	}

	q := Select("messages", MessageFields...)
	for _, k := range []string{KeyAuthorID, KeyBoardID, KeyID} {
		if v, ok := fs.get(k); ok {
			q.Where(Eq(k, v))
		}
	}
	if v, ok := fs.get(KeySubject); ok {
		q.Where(Contains("subject", v))
	}
	if hasStyle {
		q.Where(Eq("conversation.style", style))
	}
	if v, ok := fs.get(KeyPostTimeFrom); ok {
		q.Where(GTE("post_time", v))
	}
	if v, ok := fs.get(KeyPostTimeTo); ok {
		q.Where(LTE("post_time", v))
	}
	if v, ok := fs.get(KeyMinViews); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			q.Where(IntGTE("metrics.views", n))
		}
	}
	if tagID != "" {
		q.Where(Eq("products.id", tagID))
	}
	if v, _ := fs.get(KeyFeedsReplies); v == "false" {
		q.Where(IntEq("depth", 0))
	}
	return q.OrderBy("id", true).Limit(FeedLimit), nil
}

// AuthorLookup 生成按消息 id 查询作者 id 的语句。
func AuthorLookup(messageID string) string {
	return Select("messages", "author.id").Where(Eq("id", messageID)).String()
}
