// 包 liql 构造社区搜索 API 使用的 LiQL 查询语句（类 SQL 的 SELECT）。
//
// 所有字符串字面量统一经由 Quote 渲染，单引号转义规则只在此处实现。
package liql

import (
	"strconv"
	"strings"
)

// Quote 将 s 渲染为单引号字面量，其中每个 ' 替换为 \'。
// 上游只识别这一种转义，不做字符集或长度校验。
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

// Value 为可以出现在谓词右侧的字面量。
type Value interface {
	literal() string
}

// String 为字符串字面量，渲染时经过 Quote。
type String string

func (s String) literal() string { return Quote(string(s)) }

// Int 为整数字面量，原样输出。
type Int int

func (n Int) literal() string { return strconv.Itoa(int(n)) }

// Op 为比较运算符。
type Op string

const (
	OpEq   Op = "="
	OpLike Op = "LIKE"
	OpGTE  Op = ">="
	OpLTE  Op = "<="
)

// Predicate 为 "field op value" 形式的单个条件。
type Predicate struct {
	Field string
	Op    Op
	Value Value
}

func (p Predicate) String() string {
	return p.Field + " " + string(p.Op) + " " + p.Value.literal()
}

func Eq(field, v string) Predicate         { return Predicate{Field: field, Op: OpEq, Value: String(v)} }
func GTE(field, v string) Predicate        { return Predicate{Field: field, Op: OpGTE, Value: String(v)} }
func LTE(field, v string) Predicate        { return Predicate{Field: field, Op: OpLTE, Value: String(v)} }
func IntEq(field string, n int) Predicate  { return Predicate{Field: field, Op: OpEq, Value: Int(n)} }
func IntGTE(field string, n int) Predicate { return Predicate{Field: field, Op: OpGTE, Value: Int(n)} }

// Contains 生成部分匹配条件 field LIKE '%v%'。
func Contains(field, v string) Predicate {
	return Predicate{Field: field, Op: OpLike, Value: String("%" + v + "%")}
}

// Query 累积列、来源与条件，最后由 String 一次性渲染。
type Query struct {
	fields  []string
	from    string
	where   []Predicate
	orderBy string
	desc    bool
	limit   int
}

// Select 开始一个针对 from 集合的查询。
func Select(from string, fields ...string) *Query {
	return &Query{from: from, fields: fields}
}

// Where 追加一个条件，多个条件之间为 AND。
func (q *Query) Where(p Predicate) *Query {
	q.where = append(q.where, p)
	return q
}

// OrderBy 设置排序列。
func (q *Query) OrderBy(field string, desc bool) *Query {
	q.orderBy, q.desc = field, desc
	return q
}

// Limit 设置返回条数上限，0 表示不输出 LIMIT。
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Predicates 返回已累积条件的副本。
func (q *Query) Predicates() []Predicate {
	return append([]Predicate(nil), q.where...)
}

func (q *Query) String() string {
	var b strings.Builder
	b.WriteString("select ")
	b.WriteString(strings.Join(q.fields, ", "))
	b.WriteString(" from ")
	b.WriteString(q.from)
	for i, p := range q.where {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		b.WriteString(p.String())
	}
	if q.orderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(q.orderBy)
		if q.desc {
			b.WriteString(" DESC")
		}
	}
	if q.limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(q.limit))
	}
	return b.String()
}
