// 包 opml 负责导出 OPML 2.0 订阅列表（followers_feeds.opml）。
package opml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"rss-scn/internal/model"
)

const (
	docTitle   = "Followers RSS Feeds"
	groupTitle = "Followers Feeds"
)

type document struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    head     `xml:"head"`
	Body    body     `xml:"body"`
}

type head struct {
	Title       string `xml:"title"`
	DateCreated string `xml:"dateCreated,omitempty"`
}

type body struct {
	Outlines []outline `xml:"outline"`
}

type outline struct {
	Type     string    `xml:"type,attr,omitempty"`
	Text     string    `xml:"text,attr"`
	Title    string    `xml:"title,attr,omitempty"`
	XMLURL   string    `xml:"xmlUrl,attr,omitempty"`
	HTMLURL  string    `xml:"htmlUrl,attr,omitempty"`
	Outlines []outline `xml:"outline"`
}

// Build 生成 OPML 文档；所有订阅位于同一个分组 outline 下，顺序保持不变。
func Build(feeds []model.OPMLFeed, created time.Time) ([]byte, error) {
	group := outline{Text: groupTitle, Outlines: make([]outline, 0, len(feeds))}
	for _, f := range feeds {
		group.Outlines = append(group.Outlines, outline{
			Type:    "rss",
			Text:    f.Title,
			Title:   f.Title,
			XMLURL:  f.XMLURL,
			HTMLURL: f.HTMLURL,
		})
	}
	doc := document{
		Version: "2.0",
		Head:    head{Title: docTitle},
		Body:    body{Outlines: []outline{group}},
	}
	if !created.IsZero() {
		doc.Head.DateCreated = created.UTC().Format(time.RFC1123Z)
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode opml: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// WriteFile 生成文档并原子写入 path（同目录临时文件 + rename）。
func WriteFile(path string, feeds []model.OPMLFeed, created time.Time) error {
	b, err := Build(feeds, created)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".opml-*")
	if err != nil {
		return fmt.Errorf("create temp in %s: %w", dir, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
