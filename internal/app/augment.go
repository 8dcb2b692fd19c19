package app

import (
	"github.com/John-Robertt/catalogfix/internal/domain"
)

// locatorField 只用于在 ItemResult 里标出是哪条记录，不参与变换。
const locatorField = "title"

// AugmentField 返回 rs 的副本：每个缺少 field 的对象记录追加 field=""。
//
// 已有该字段的记录（无论值是 ""、null 还是其它）保持原样；非对象元素原样保留。
// 因为只增不改，对同一输入重复执行的结果完全一致。
func AugmentField(rs domain.RecordSet, field string) (domain.RecordSet, []domain.ItemResult) {
	out := rs.Clone()
	items := make([]domain.ItemResult, 0, len(out))
	for i, r := range out {
		it := domain.ItemResult{Index: i}
		switch {
		case !r.IsObject():
			it.Status = domain.RecordSkipped
		case r.Has(field):
			it.Status = domain.RecordUnchanged
		default:
			// 空字符串的编码不会失败。
			_ = r.Set(field, "")
			it.Status = domain.RecordUpdated
		}
		if s, ok := r.GetString(locatorField); ok {
			it.Key = s
		}
		items = append(items, it)
	}
	return out, items
}
