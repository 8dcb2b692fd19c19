package app

import (
	"encoding/json"

	"github.com/John-Robertt/catalogfix/internal/domain"
)

// ReferenceMap 是从一个 Record Set 临时构造的 key → value 查找表。
// key 为 key 字段值的规范化 JSON（"A" 与 "A" 视为同一个 title）。
type ReferenceMap map[string]json.RawMessage

// BuildReferenceMap 从 rs 抽取 keyField → valueField。
//
// 每条记录都必须是对象且同时包含两个字段，否则返回 *RecordError（整批失败）。
// key 重复时后出现的值覆盖先前的值。
func BuildReferenceMap(rs domain.RecordSet, keyField, valueField string) (ReferenceMap, error) {
	m := make(ReferenceMap, len(rs))
	for i, r := range rs {
		if !r.IsObject() {
			return nil, &RecordError{Code: domain.ErrCodeShapeMismatch, Set: "original", Index: i}
		}
		k, ok := r.Get(keyField)
		if !ok {
			return nil, &RecordError{Code: domain.ErrCodeMissingKey, Set: "original", Index: i, Field: keyField}
		}
		v, ok := r.Get(valueField)
		if !ok {
			return nil, &RecordError{Code: domain.ErrCodeMissingKey, Set: "original", Index: i, Field: valueField}
		}
		ck, err := canonicalKey(k)
		if err != nil {
			return nil, err
		}
		m[ck] = v
	}
	return m, nil
}

// Lookup 按 key 字段的原始 JSON 查找。
func (m ReferenceMap) Lookup(key json.RawMessage) (json.RawMessage, bool) {
	ck, err := canonicalKey(key)
	if err != nil {
		return nil, false
	}
	v, ok := m[ck]
	return v, ok
}

// ReconcileCategories 返回 target 的副本：title 能在 original 中找到的记录，其 category
// 被覆盖为 original 中的值；找不到的记录保持原样。original 与 target 都不会被修改。
//
// target 中的记录必须是对象；缺少 title 的记录按 title=null 查找，
// 只有 original 里存在 title 为 null 的记录时才会被覆盖。
func ReconcileCategories(original, target domain.RecordSet, keyField, valueField string) (domain.RecordSet, []domain.ItemResult, error) {
	ref, err := BuildReferenceMap(original, keyField, valueField)
	if err != nil {
		return nil, nil, err
	}

	out := target.Clone()
	items := make([]domain.ItemResult, 0, len(out))
	for i, r := range out {
		if !r.IsObject() {
			return nil, nil, &RecordError{Code: domain.ErrCodeShapeMismatch, Set: "target", Index: i}
		}
		it := domain.ItemResult{Index: i, Status: domain.RecordUnchanged}

		k, ok := r.Get(keyField)
		if ok {
			it.Key = displayKey(k)
		} else {
			k = jsonNull
		}
		if v, hit := ref.Lookup(k); hit {
			r.SetRaw(valueField, v)
			it.Status = domain.RecordUpdated
			it.Value = displayKey(v)
		}
		items = append(items, it)
	}
	return out, items, nil
}

var jsonNull = json.RawMessage("null")

func canonicalKey(raw json.RawMessage) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// displayKey 把字段值转成便于阅读的文本：字符串去掉引号，其它保持 JSON 形态。
func displayKey(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
