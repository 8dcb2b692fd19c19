package provider

import (
	"context"
	"errors"
)

// ErrTitleNotFound 表示页面已取回，但其中没有可用的标题标签。
var ErrTitleNotFound = errors.New("页面中未找到 og:title")

// TitleSource 根据视频页面 URL 查出展示标题。
//
// 约束：
// - 一次调用至多发起一次网络请求；不做缓存、不做重试、不做限速
// - 非 2xx 返回 *HTTPStatusError；找不到标签返回 ErrTitleNotFound（可用 errors.Is 判断）
type TitleSource interface {
	Title(ctx context.Context, pageURL string) (string, error)
}
