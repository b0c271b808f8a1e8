// 包 follow 将个人主页的关注列表解析为 OPML 订阅条目：
// - 关注列表 → 个人主页 __NEXT_DATA__ 中的 uid
// - uid → 最近内容 → 内容 id → 社区作者 id
// - 作者 id → 本服务 /api/messages?author.id= 订阅地址
package follow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"rss-scn/internal/model"
)

// Step 标识单个关注者处理失败时所处的阶段。
type Step string

const (
	StepProfile   Step = "profile"
	StepContent   Step = "content"
	StepContentID Step = "content_id"
	StepAuthor    Step = "author"
)

// Outcome 为单个关注者的处理结果：Feed 非空表示成功，否则 Step/Reason 说明跳过原因。
type Outcome struct {
	Follower model.Follower
	Feed     *model.OPMLFeed
	Step     Step
	Reason   string
}

func (o Outcome) Skipped() bool { return o.Feed == nil }

func skip(f model.Follower, step Step, format string, args ...any) Outcome {
	return Outcome{Follower: f, Step: step, Reason: fmt.Sprintf(format, args...)}
}

// Fetcher 为发出 GET 请求的最小接口（由 *fetch.Client 实现）。
type Fetcher interface {
	GetJSON(ctx context.Context, rawURL string, header http.Header, out any) error
	GetBody(ctx context.Context, rawURL string, header http.Header) ([]byte, error)
}

// AuthorResolver 按消息 id 查询社区作者 id（由 *community.Client 实现）。
type AuthorResolver interface {
	AuthorID(ctx context.Context, messageID string) (string, error)
}

type Options struct {
	ProfileAPI  string
	ProfileSite string
	SearchProxy string
	FeedBaseURL string
	Concurrency int
	// Observe 接收每个关注者的结果（resolved|skipped），可为 nil。
	Observe func(result string)
}

// Resolver 负责 HTTP 交互；可被多个 goroutine 并发使用。
type Resolver struct {
	get     Fetcher
	authors AuthorResolver
	opts    Options
}

func New(get Fetcher, authors AuthorResolver, opts Options) *Resolver {
	opts.ProfileAPI = strings.TrimRight(opts.ProfileAPI, "/")
	opts.ProfileSite = strings.TrimRight(opts.ProfileSite, "/")
	opts.SearchProxy = strings.TrimRight(opts.SearchProxy, "/")
	opts.FeedBaseURL = strings.TrimRight(opts.FeedBaseURL, "/")
	return &Resolver{get: get, authors: authors, opts: opts}
}

const profileReferer = "https://profile.sap.com/"

func jsonHeader() http.Header {
	return http.Header{
		"Accept":  {"application/json, text/plain, */*"},
		"Referer": {profileReferer},
	}
}

// ListFollowing 获取 profileID 关注的人（单页，最多 200 个）。
func (r *Resolver) ListFollowing(ctx context.Context, profileID string) ([]model.Follower, error) {
	u := fmt.Sprintf("%s/profile/api/v1/profiles/following/%s?size=200&page=0",
		r.opts.ProfileAPI, url.PathEscape(profileID))
	var page struct {
		Content []model.Follower `json:"content"`
	}
	if err := r.get.GetJSON(ctx, u, jsonHeader(), &page); err != nil {
		return nil, fmt.Errorf("list following of %s: %w", profileID, err)
	}
	return page.Content, nil
}

// Resolve 依次执行各阶段；任何一步失败都返回跳过结果，不返回 error。
func (r *Resolver) Resolve(ctx context.Context, f model.Follower) Outcome {
	uid, err := r.profileUID(ctx, f.ProfileID)
	if err != nil {
		return skip(f, StepProfile, "%v", err)
	}
	contentURL, err := r.latestContent(ctx, uid)
	if err != nil {
		return skip(f, StepContent, "%v", err)
	}
	contentID, ok := ExtractContentID(contentURL)
	if !ok {
		return skip(f, StepContentID, "cannot extract content id from %s", contentURL)
	}
	authorID, err := r.authors.AuthorID(ctx, contentID)
	if err != nil {
		return skip(f, StepAuthor, "content %s: %v", contentID, err)
	}
	return Outcome{Follower: f, Feed: &model.OPMLFeed{
		Title:   f.DisplayName(),
		XMLURL:  r.FeedURL(authorID),
		HTMLURL: contentURL,
	}}
}

// FeedURL 返回某作者在本服务上的订阅地址。
func (r *Resolver) FeedURL(authorID string) string {
	return r.opts.FeedBaseURL + "/api/messages?" + url.Values{"author.id": {authorID}}.Encode()
}

// profileUID 从个人主页 <script id="__NEXT_DATA__"> 中取 props.pageProps.user.uid。
func (r *Resolver) profileUID(ctx context.Context, profileID string) (string, error) {
	u := r.opts.ProfileSite + "/profile/" + url.PathEscape(profileID)
	body, err := r.get.GetBody(ctx, u, http.Header{
		"Accept":  {"text/html"},
		"Referer": {profileReferer},
	})
	if err != nil {
		return "", err
	}
	return uidFromPage(body)
}

func uidFromPage(html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse profile html: %w", err)
	}
	script := doc.Find("script#__NEXT_DATA__").First()
	if script.Length() == 0 {
		return "", errors.New("profile page has no __NEXT_DATA__ script")
	}
	var data struct {
		Props struct {
			PageProps struct {
				User struct {
					UID any `json:"uid"`
				} `json:"user"`
			} `json:"pageProps"`
		} `json:"props"`
	}
	if err := json.Unmarshal([]byte(script.Text()), &data); err != nil {
		return "", fmt.Errorf("decode __NEXT_DATA__: %w", err)
	}
	uid := scalarString(data.Props.PageProps.User.UID)
	if uid == "" {
		return "", errors.New("__NEXT_DATA__ has no user uid")
	}
	return uid, nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

type contentPage struct {
	TotalCount   int `json:"totalCount"`
	ContentItems []struct {
		URL string `json:"url"`
	} `json:"contentItems"`
}

// latestContent 返回作者最新一篇内容的 URL。
func (r *Resolver) latestContent(ctx context.Context, uid string) (string, error) {
	q := url.Values{
		"limit":    {"3"},
		"orderBy":  {"CREATE_TIME"},
		"order":    {"DESC"},
		"authorId": {uid},
	}
	u := r.opts.SearchProxy + "/api/v1/search?" + q.Encode()
	var page contentPage
	if err := r.get.GetJSON(ctx, u, jsonHeader(), &page); err != nil {
		return "", err
	}
	if page.TotalCount == 0 || len(page.ContentItems) == 0 || page.ContentItems[0].URL == "" {
		return "", fmt.Errorf("no content for uid %s", uid)
	}
	return page.ContentItems[0].URL, nil
}

var contentIDRe = regexp.MustCompile(`(?:ba-p|td-p|qaq-p|ev-p)/(\d+)`)

// ExtractContentID 从内容 URL 中提取消息 id：
// 先匹配 ba-p/td-p/qaq-p/ev-p 后的数字，否则取纯数字的最后一段路径。
func ExtractContentID(contentURL string) (string, bool) {
	if m := contentIDRe.FindStringSubmatch(contentURL); m != nil {
		return m[1], true
	}
	last := contentURL
	if i := strings.LastIndex(contentURL, "/"); i >= 0 {
		last = contentURL[i+1:]
	}
	if last == "" {
		return "", false
	}
	for _, c := range last {
		if c < '0' || c > '9' {
			return "", false
		}
	}
	return last, true
}
