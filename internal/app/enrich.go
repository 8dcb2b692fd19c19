package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/John-Robertt/catalogfix/internal/domain"
	"github.com/John-Robertt/catalogfix/internal/provider"
)

// EnrichTitles 返回 rs 的副本：为每条记录写入 sourceField。
//
// 规则（逐条、严格串行）：
// - linkField 缺失或为假值（null/""/false/0/[]/{}）：写 "No Video Link"，不发请求
// - linkField 不是字符串：写 "Title Not Found"，不发请求
// - 否则调用一次 src.Title；任何失败都写 "Title Not Found" 并继续下一条
//
// 只有两类错误会让整批失败：某个元素不是对象（*RecordError），或 ctx 被取消。
// onItem 可为 nil；非 nil 时每条记录处理完立即回调一次（按下标顺序）。
func EnrichTitles(ctx context.Context, rs domain.RecordSet, linkField, sourceField string, src provider.TitleSource, onItem func(domain.ItemResult, time.Duration)) (domain.RecordSet, []domain.ItemResult, error) {
	if src == nil {
		return nil, nil, errors.New("title source 不能为空")
	}

	out := rs.Clone()
	for i, r := range out {
		if !r.IsObject() {
			return nil, nil, &RecordError{Code: domain.ErrCodeShapeMismatch, Set: "input", Index: i}
		}
	}

	items := make([]domain.ItemResult, 0, len(out))
	for i, r := range out {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		started := time.Now()
		it := enrichOne(ctx, i, r, linkField, sourceField, src)
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		items = append(items, it)
		if onItem != nil {
			onItem(it, time.Since(started))
		}
	}
	return out, items, nil
}

func enrichOne(ctx context.Context, idx int, r *domain.Record, linkField, sourceField string, src provider.TitleSource) domain.ItemResult {
	it := domain.ItemResult{Index: idx}

	raw, ok := r.Get(linkField)
	if !ok || !truthy(raw) {
		_ = r.Set(sourceField, domain.SourceNoVideoLink)
		it.Status = domain.RecordSkipped
		it.Value = domain.SourceNoVideoLink
		it.ErrorCode = domain.ErrCodeNoVideoLink
		it.ErrorMsg = "记录没有 " + linkField
		return it
	}

	link, isString := r.GetString(linkField)
	if !isString {
		it.Key = string(raw)
		return failTitle(r, sourceField, it, domain.ErrCodeFetchFailed, linkField+" 不是字符串，无法请求")
	}
	it.Key = link

	title, err := src.Title(ctx, link)
	if err != nil {
		code := domain.ErrCodeFetchFailed
		if errors.Is(err, provider.ErrTitleNotFound) {
			code = domain.ErrCodeTagNotFound
		}
		return failTitle(r, sourceField, it, code, err.Error())
	}

	_ = r.Set(sourceField, title)
	it.Status = domain.RecordUpdated
	it.Value = title
	return it
}

func failTitle(r *domain.Record, sourceField string, it domain.ItemResult, code, msg string) domain.ItemResult {
	_ = r.Set(sourceField, domain.SourceTitleNotFound)
	it.Status = domain.RecordFailed
	it.Value = domain.SourceTitleNotFound
	it.ErrorCode = code
	it.ErrorMsg = msg
	return it
}

// truthy 判断字段值是否“有内容”：null、false、0、空字符串、空数组、空对象都视为无。
func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}
