// 包 products 负责加载托管标签目录（products.json），
// 启动时加载一次，之后只读，用于按标题解析标签 id。
package products

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Tag 为目录中的一条 {id, title} 记录。
type Tag struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Catalog 为不可变的有序标签目录。零值表示空目录。
type Catalog struct {
	tags    []Tag
	byTitle map[string]string
}

// UnmarshalJSON 兼容数字与字符串两种 id 写法。
func (t *Tag) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID    json.RawMessage `json:"id"`
		Title string          `json:"title"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	t.Title = raw.Title
	t.ID = ""
	id := bytes.TrimSpace(raw.ID)
	switch {
	case len(id) == 0 || bytes.Equal(id, []byte("null")):
	case id[0] == '"':
		return json.Unmarshal(id, &t.ID)
	default:
		t.ID = string(id)
	}
	return nil
}

// New 从给定记录构建目录；标题重复时保留第一条。
func New(tags []Tag) *Catalog {
	c := &Catalog{
		tags:    append([]Tag(nil), tags...),
		byTitle: make(map[string]string, len(tags)),
	}
	for _, t := range c.tags {
		if _, ok := c.byTitle[t.Title]; !ok {
			c.byTitle[t.Title] = t.ID
		}
	}
	return c
}

// Load 从 JSON 文件读取标签数组。
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open products %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read products %s: %w", path, err)
	}
	return Parse(b)
}

// Parse 解析 JSON 数组 [{"id":..,"title":..}]。
func Parse(b []byte) (*Catalog, error) {
	var tags []Tag
	if err := json.Unmarshal(b, &tags); err != nil {
		return nil, fmt.Errorf("unmarshal products: %w", err)
	}
	for i, t := range tags {
		if t.ID == "" {
			return nil, fmt.Errorf("products: entry %d (%q) has empty id", i, t.Title)
		}
	}
	return New(tags), nil
}

// LookupTitle 按标题精确（区分大小写）查找 id。
func (c *Catalog) LookupTitle(title string) (string, bool) {
	if c == nil {
		return "", false
	}
	id, ok := c.byTitle[title]
	return id, ok
}

// Len 返回目录条目数。
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.tags)
}

// Tags 返回条目副本。
func (c *Catalog) Tags() []Tag {
	if c == nil {
		return nil
	}
	return append([]Tag(nil), c.tags...)
}
