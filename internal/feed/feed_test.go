package feed

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mmcdole/gofeed"

	"rss-scn/internal/model"
)

func msg(id, subject, postTime string) model.Message {
	return model.Message{
		ID:       id,
		Subject:  subject,
		ViewHref: "/t5/blogs/ba-p/" + id,
		Body:     "<p>body " + id + "</p>",
		PostTime: postTime,
		Author:   model.Author{Login: "user" + id},
	}
}

func success(items ...model.Message) *model.SearchResponse {
	r := &model.SearchResponse{Status: "success"}
	r.Data.Items = items
	return r
}

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func opts() Options {
	return Options{
		Title:       "SAP Community Messages RSS Feed",
		Description: "Latest messages from the SAP Community",
		SiteURL:     "https://community.sap.com/",
		Language:    "en",
		Now:         func() time.Time { return fixedNow },
	}
}

func TestProject_PubDateIsLatestItem(t *testing.T) {
	doc, err := Project(success(
		msg("1", "a", "2024-01-01T08:00:00.000+01:00"),
		msg("2", "b", "2024-03-15T10:30:00.000+00:00"),
		msg("3", "c", "2024-02-10T00:00:00Z"),
	), opts())
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	want := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	if !doc.PubDate.Equal(want) {
		t.Fatalf("pubDate = %v, want %v", doc.PubDate, want)
	}
	if len(doc.Items) != 3 || doc.Items[0].GUID != "1" {
		t.Fatalf("items not kept in upstream order: %+v", doc.Items)
	}
}

func TestProject_EmptyUsesNow(t *testing.T) {
	doc, err := Project(success(), Options{})
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if len(doc.Items) != 0 {
		t.Fatalf("items = %d, want 0", len(doc.Items))
	}
	if d := time.Since(doc.PubDate); d < 0 || d > 5*time.Second {
		t.Fatalf("pubDate %v not within tolerance of now", doc.PubDate)
	}
}

func TestProject_ItemMapping(t *testing.T) {
	withSnippet := msg("7", "Hello", "2024-02-01T00:00:00Z")
	withSnippet.SearchSnippet = "snippet"
	absolute := msg("8", "Abs", "not a date")
	absolute.ViewHref = "https://other.example/x"

	o := opts()
	o.IncludeContent = true
	doc, err := Project(success(withSnippet, msg("9", "NoSnippet", ""), absolute), o)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	want := []Item{
		{
			Title: "Hello", Link: "https://community.sap.com/t5/blogs/ba-p/7", Description: "snippet",
			Content: "<p>body 7</p>", Creator: "user7", GUID: "7", Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			Title: "NoSnippet", Link: "https://community.sap.com/t5/blogs/ba-p/9", Description: "<p>body 9</p>",
			Content: "<p>body 9</p>", Creator: "user9", GUID: "9",
		},
		{
			Title: "Abs", Link: "https://other.example/x", Description: "<p>body 8</p>",
			Content: "<p>body 8</p>", Creator: "user8", GUID: "8",
		},
	}
	if diff := cmp.Diff(want, doc.Items); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
	if doc.Link != "https://community.sap.com" {
		t.Fatalf("channel link = %q", doc.Link)
	}
}

func TestProject_UpstreamError(t *testing.T) {
	_, err := Project(&model.SearchResponse{Status: "error", Message: "bad query"}, opts())
	var ue *model.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("want *model.UpstreamError, got %v", err)
	}
	if ue.Status != "error" || !strings.Contains(err.Error(), "bad query") {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := Project(nil, opts()); !errors.As(err, &ue) {
		t.Fatalf("nil response must be an upstream error, got %v", err)
	}
}

func TestRender_Namespaces(t *testing.T) {
	doc, _ := Project(success(), opts())
	b, err := Render(doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	out := string(b)
	for _, want := range []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`xmlns:content="http://purl.org/rss/1.0/modules/content/"`,
		`xmlns:dc="http://purl.org/dc/elements/1.1/"`,
		`xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"`,
		`xmlns:taxo="http://purl.org/rss/1.0/modules/taxonomy/"`,
		`version="2.0"`,
		`<pubDate>Sat, 01 Jun 2024 12:00:00 GMT</pubDate>`,
		`<dc:date>2024-06-01T12:00:00.000Z</dc:date>`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "<item>") {
		t.Fatalf("expect no items:\n%s", out)
	}
}

func TestRender_ParsesWithGofeed(t *testing.T) {
	special := msg("42", "Tips & <tricks> for CAP", "2024-03-15T10:30:00Z")
	o := opts()
	o.IncludeContent = true
	doc, err := Project(success(special, msg("43", "second", "2024-01-01T00:00:00Z")), o)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	b, err := Render(doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	f, err := gofeed.NewParser().ParseString(string(b))
	if err != nil {
		t.Fatalf("gofeed parse: %v\n%s", err, b)
	}
	if f.Title != "SAP Community Messages RSS Feed" || f.Language != "en" {
		t.Fatalf("channel = %q/%q", f.Title, f.Language)
	}
	if f.PublishedParsed == nil || !f.PublishedParsed.Equal(time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)) {
		t.Fatalf("channel pubDate = %v", f.PublishedParsed)
	}
	if len(f.Items) != 2 {
		t.Fatalf("items = %d", len(f.Items))
	}
	it := f.Items[0]
	if it.Title != special.Subject {
		t.Fatalf("title = %q", it.Title)
	}
	if it.GUID != "42" || it.Link != "https://community.sap.com/t5/blogs/ba-p/42" {
		t.Fatalf("guid/link = %q/%q", it.GUID, it.Link)
	}
	if it.DublinCoreExt == nil || len(it.DublinCoreExt.Creator) == 0 || it.DublinCoreExt.Creator[0] != "user42" {
		t.Fatalf("dc:creator = %+v", it.DublinCoreExt)
	}
	if it.Content != "<p>body 42</p>" {
		t.Fatalf("content:encoded = %q", it.Content)
	}
	if !strings.Contains(string(b), `<guid isPermaLink="false">42</guid>`) {
		t.Fatalf("guid not rendered as non-permalink:\n%s", b)
	}
}

func TestRender_NoContentUnlessEnabled(t *testing.T) {
	doc, _ := Project(success(msg("1", "a", "2024-01-01T00:00:00Z")), opts())
	b, err := Render(doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(string(b), "content:encoded") {
		t.Fatalf("content:encoded must be omitted by default:\n%s", b)
	}
}

func TestRender_StripsInvalidXMLChars(t *testing.T) {
	bad := msg("9", "bad\x0bsubject", "2024-01-01T00:00:00Z")
	bad.Body = "b\x08ody\xff"
	bad.Author.Login = "user\x00nine"
	o := opts()
	o.IncludeContent = true
	doc, err := Project(success(bad), o)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	b, err := Render(doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	f, err := gofeed.NewParser().ParseString(string(b))
	if err != nil {
		t.Fatalf("gofeed parse: %v\n%q", err, b)
	}
	if len(f.Items) != 1 {
		t.Fatalf("items = %d", len(f.Items))
	}
	it := f.Items[0]
	if it.Title != "badsubject" {
		t.Errorf("title = %q", it.Title)
	}
	if it.Description != "body\uFFFD" || it.Content != "body\uFFFD" {
		t.Errorf("description/content = %q/%q", it.Description, it.Content)
	}
	if it.DublinCoreExt == nil || len(it.DublinCoreExt.Creator) != 1 || it.DublinCoreExt.Creator[0] != "usernine" {
		t.Errorf("dc:creator = %+v", it.DublinCoreExt)
	}
}

func TestXMLText(t *testing.T) {
	tests := []struct{ in, want string }{
		{"plain", "plain"},
		{"tab\tnl\ncr\r", "tab\tnl\ncr\r"},
		{"a\x01b\x1fc", "abc"},
		{"bad\xffutf8", "bad\uFFFDutf8"},
		{"\uFFFE\uFFFFkeep\U0001F600", "keep\U0001F600"},
	}
	for _, tt := range tests {
		if got := xmlText(tt.in); got != tt.want {
			t.Errorf("xmlText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
