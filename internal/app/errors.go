package app

import (
	"errors"
	"fmt"
)

// RecordError 是变换阶段的批量致命错误：某条记录不满足前置条件，整批放弃、不写输出。
type RecordError struct {
	Code  string // domain.ErrCodeMissingKey / domain.ErrCodeShapeMismatch
	Set   string // "original" / "target" / "input"
	Index int
	Field string // Code=missing_key 时为缺失的字段名
}

func (e *RecordError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s：%s 第 %d 条记录缺少字段 %q", e.Code, e.Set, e.Index, e.Field)
	}
	return fmt.Sprintf("%s：%s 第 %d 条记录不是 JSON 对象", e.Code, e.Set, e.Index)
}

// Code 从 error 中提取 error_code；若不是 *RecordError 则返回空串。
func Code(err error) string {
	var e *RecordError
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
