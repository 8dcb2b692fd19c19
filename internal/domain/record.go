package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrNotArray 表示 JSON 顶层不是数组（Record Set 只能来自数组）。
var ErrNotArray = errors.New("顶层 JSON 不是数组")

// Record 是 Record Set 中的一个元素。
//
// 不变量：
// - 对象元素保持字段顺序，字段值按原始 JSON 字节保存（不做数字/字符串的重新格式化）
// - 重复字段：后出现的值覆盖，位置保持首次出现处
// - 非对象元素（字符串/数字/null/数组）原样保留，只参与写回
type Record struct {
	raw  json.RawMessage
	keys []string
	vals map[string]json.RawMessage
}

// NewRecord 构造一个空对象记录。
func NewRecord() *Record {
	return &Record{vals: map[string]json.RawMessage{}}
}

// ParseRecord 解析单个数组元素。
func ParseRecord(b []byte) (*Record, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, errors.New("空的 JSON 值")
	}
	if b[0] != '{' {
		if !json.Valid(b) {
			return nil, fmt.Errorf("非法的 JSON 值：%q", truncate(b, 40))
		}
		return &Record{raw: append(json.RawMessage(nil), b...)}, nil
	}

	r := NewRecord()
	dec := json.NewDecoder(bytes.NewReader(b))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("对象字段名不是字符串：%v", tok)
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		r.SetRaw(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return r, nil
}

// IsObject 报告该元素是否为 JSON 对象（只有对象才有字段）。
func (r *Record) IsObject() bool { return r != nil && r.vals != nil }

// Keys 返回字段名（按出现顺序）。
func (r *Record) Keys() []string { return append([]string(nil), r.keys...) }

func (r *Record) Has(key string) bool {
	if !r.IsObject() {
		return false
	}
	_, ok := r.vals[key]
	return ok
}

// Get 返回字段的原始 JSON。
func (r *Record) Get(key string) (json.RawMessage, bool) {
	if !r.IsObject() {
		return nil, false
	}
	v, ok := r.vals[key]
	return v, ok
}

// GetString 读取字符串字段；字段不存在或不是字符串时 ok=false。
func (r *Record) GetString(key string) (s string, ok bool) {
	v, exists := r.Get(key)
	if !exists {
		return "", false
	}
	if err := json.Unmarshal(v, &s); err != nil {
		return "", false
	}
	return s, true
}

// SetRaw 写入字段的原始 JSON；已存在的字段原位覆盖，新字段追加到末尾。
// 对非对象元素调用会 panic（调用方必须先检查 IsObject）。
func (r *Record) SetRaw(key string, v json.RawMessage) {
	if r.vals == nil {
		panic("domain: SetRaw 作用于非对象记录")
	}
	if _, ok := r.vals[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.vals[key] = append(json.RawMessage(nil), v...)
}

// Set 把 v 编码为 JSON（不转义 HTML 字符）后写入字段。
func (r *Record) Set(key string, v any) error {
	b, err := marshalNoEscape(v)
	if err != nil {
		return err
	}
	r.SetRaw(key, b)
	return nil
}

// Clone 深拷贝记录，保证变换不会改动已加载的输入。
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	if !r.IsObject() {
		return &Record{raw: append(json.RawMessage(nil), r.raw...)}
	}
	c := &Record{
		keys: append([]string(nil), r.keys...),
		vals: make(map[string]json.RawMessage, len(r.vals)),
	}
	for k, v := range r.vals {
		c.vals[k] = append(json.RawMessage(nil), v...)
	}
	return c
}

func (r *Record) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	if !r.IsObject() {
		return append([]byte(nil), r.raw...), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := marshalNoEscape(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(r.vals[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// RecordSet 是从一个 JSON 数组加载的有序记录序列。
// 任何操作都不得隐式重排、去重或丢弃记录。
type RecordSet []*Record

// ParseRecordSet 解析顶层数组；顶层不是数组时返回 ErrNotArray。
// 语法错误原样返回（调用方据此区分 malformed_json 与 shape_mismatch）。
func ParseRecordSet(b []byte) (RecordSet, error) {
	dec := json.NewDecoder(bytes.NewReader(b))

	var top json.RawMessage
	if err := dec.Decode(&top); err != nil {
		return nil, err
	}
	// 顶层值之后只允许空白。
	if _, err := dec.Token(); err == nil {
		return nil, errors.New("顶层 JSON 值之后存在多余内容")
	} else if !errors.Is(err, io.EOF) {
		return nil, err
	}

	top = bytes.TrimSpace(top)
	if len(top) == 0 || top[0] != '[' {
		return nil, ErrNotArray
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(top, &elems); err != nil {
		return nil, err
	}
	rs := make(RecordSet, 0, len(elems))
	for i, e := range elems {
		r, err := ParseRecord(e)
		if err != nil {
			return nil, fmt.Errorf("第 %d 条记录：%w", i, err)
		}
		rs = append(rs, r)
	}
	return rs, nil
}

// Clone 深拷贝整个 Record Set（顺序不变）。
func (rs RecordSet) Clone() RecordSet {
	out := make(RecordSet, len(rs))
	for i, r := range rs {
		out[i] = r.Clone()
	}
	return out
}

// Encode 以固定缩进输出 UTF-8 JSON（不转义 <>&），末尾带换行。
func (rs RecordSet) Encode(indent int) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", spaces(indent))
	if rs == nil {
		rs = RecordSet{}
	}
	if err := enc.Encode(rs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func spaces(n int) string {
	if n <= 0 {
		return ""
	}
	return string(bytes.Repeat([]byte{' '}, n))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
