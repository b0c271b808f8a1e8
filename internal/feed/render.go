package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"time"
)

// 频道上声明的命名空间；rdf 与 taxo 未被使用，但为兼容旧阅读器保留声明。
const (
	NSContent = "http://purl.org/rss/1.0/modules/content/"
	NSDC      = "http://purl.org/dc/elements/1.1/"
	NSRDF     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NSTaxo    = "http://purl.org/rss/1.0/modules/taxonomy/"
)

const (
	rfc822GMT = "Mon, 02 Jan 2006 15:04:05 GMT"
	isoMillis = "2006-01-02T15:04:05.000Z"
)

type rssXML struct {
	XMLName   xml.Name   `xml:"rss"`
	NSContent string     `xml:"xmlns:content,attr"`
	NSDC      string     `xml:"xmlns:dc,attr"`
	NSRDF     string     `xml:"xmlns:rdf,attr"`
	NSTaxo    string     `xml:"xmlns:taxo,attr"`
	Version   string     `xml:"version,attr"`
	Channel   channelXML `xml:"channel"`
}

type channelXML struct {
	Title         cdata     `xml:"title"`
	Description   cdata     `xml:"description"`
	Link          string    `xml:"link"`
	Generator     string    `xml:"generator,omitempty"`
	LastBuildDate string    `xml:"lastBuildDate"`
	PubDate       string    `xml:"pubDate"`
	Language      cdata     `xml:"language"`
	DCDate        string    `xml:"dc:date"`
	Items         []itemXML `xml:"item"`
}

type itemXML struct {
	Title       cdata   `xml:"title"`
	Description cdata   `xml:"description"`
	Link        string  `xml:"link"`
	GUID        guidXML `xml:"guid"`
	Creator     *cdata  `xml:"dc:creator,omitempty"`
	PubDate     string  `xml:"pubDate,omitempty"`
	DCDate      string  `xml:"dc:date,omitempty"`
	Content     *cdata  `xml:"content:encoded,omitempty"`
}

type guidXML struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type cdata struct {
	Text string `xml:",cdata"`
}

// Render 将 Document 序列化为带 XML 声明、两空格缩进的 RSS 2.0 文本。
func Render(doc *Document) ([]byte, error) {
	out := rssXML{
		NSContent: NSContent,
		NSDC:      NSDC,
		NSRDF:     NSRDF,
		NSTaxo:    NSTaxo,
		Version:   "2.0",
		Channel: channelXML{
			Title:         cdata{doc.Title},
			Description:   cdata{doc.Description},
			Link:          doc.Link,
			Generator:     doc.Generator,
			LastBuildDate: formatRFC822(doc.BuildDate),
			PubDate:       formatRFC822(doc.PubDate),
			Language:      cdata{doc.Language},
			DCDate:        formatISO(doc.PubDate),
			Items:         make([]itemXML, 0, len(doc.Items)),
		},
	}
	for _, it := range doc.Items {
		x := itemXML{
			Title:       cdata{it.Title},
			Description: cdata{it.Description},
			Link:        it.Link,
			GUID:        guidXML{IsPermaLink: false, Value: it.GUID},
			PubDate:     formatRFC822(it.Date),
			DCDate:      formatISO(it.Date),
		}
		if it.Creator != "" {
			x.Creator = &cdata{it.Creator}
		}
		if doc.IncludeContent && it.Content != "" {
			x.Content = &cdata{it.Content}
		}
		out.Channel.Items = append(out.Channel.Items, x)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("encode rss: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func formatRFC822(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(rfc822GMT)
}

func formatISO(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(isoMillis)
}
