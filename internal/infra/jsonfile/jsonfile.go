package jsonfile

import (
	"errors"
	"fmt"
	"os"

	"github.com/John-Robertt/catalogfix/internal/domain"
	"github.com/John-Robertt/catalogfix/internal/infra/fsx"
)

// Error 是加载/写出阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case domain.ErrCodeFileNotFound:
		return fmt.Sprintf("%s：文件 %q 不存在", e.Code, e.Path)
	case domain.ErrCodeMalformedJSON:
		return fmt.Sprintf("%s：文件 %q 不是合法的 JSON：%v", e.Code, e.Path, e.Err)
	case domain.ErrCodeShapeMismatch:
		return fmt.Sprintf("%s：文件 %q 的顶层不是对象数组", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%q：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：%q", e.Code, e.Path)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Load 读取整个 JSON 文件并解析为 Record Set。
//
// 错误分类：
// - 文件不存在：file_not_found
// - 语法错误 / 空文件：malformed_json
// - 顶层不是数组：shape_mismatch
// - 其它读取失败：io_failed
func Load(path string) (domain.RecordSet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &Error{Code: domain.ErrCodeFileNotFound, Path: path, Err: err}
		}
		return nil, &Error{Code: domain.ErrCodeIOFailed, Path: path, Err: err}
	}

	rs, err := domain.ParseRecordSet(b)
	if err != nil {
		if errors.Is(err, domain.ErrNotArray) {
			return nil, &Error{Code: domain.ErrCodeShapeMismatch, Path: path, Err: err}
		}
		return nil, &Error{Code: domain.ErrCodeMalformedJSON, Path: path, Err: err}
	}
	return rs, nil
}

// Write 以固定缩进原子写出 Record Set；失败时目标文件保持原状。
func Write(path string, rs domain.RecordSet, indent int) error {
	b, err := rs.Encode(indent)
	if err != nil {
		return &Error{Code: domain.ErrCodeUnexpected, Path: path, Err: err}
	}
	if err := fsx.WriteFileAtomic(path, b); err != nil {
		return &Error{Code: domain.ErrCodeIOFailed, Path: path, Err: err}
	}
	return nil
}
