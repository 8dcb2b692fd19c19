package ogtitle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/catalogfix/internal/provider"
)

// Source 通过页面里的 <meta property="og:title" content="..."> 取得视频标题。
//
// 约束：
// - 每次 Title 调用恰好一次 GET（不缓存、不重试）
// - Parse 是纯函数：相同 HTML => 相同结果
type Source struct {
	Client *http.Client
}

var _ provider.TitleSource = Source{}

func (s Source) Title(ctx context.Context, pageURL string) (string, error) {
	if s.Client == nil {
		return "", errors.New("http client 不能为空")
	}
	if strings.TrimSpace(pageURL) == "" {
		return "", errors.New("pageURL 不能为空")
	}
	html, err := fetchURL(ctx, s.Client, pageURL)
	if err != nil {
		return "", err
	}
	return Parse(html)
}

// Parse 返回文档中第一个 og:title 标签的 content 属性。
//
// content 为空字符串时原样返回；标签不存在或缺少 content 属性时返回 provider.ErrTitleNotFound。
func Parse(html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", err
	}
	sel := doc.Find(`meta[property="og:title"]`).First()
	if sel.Length() == 0 {
		return "", provider.ErrTitleNotFound
	}
	content, ok := sel.Attr("content")
	if !ok {
		return "", fmt.Errorf("og:title 缺少 content 属性：%w", provider.ErrTitleNotFound)
	}
	return content, nil
}

func fetchURL(ctx context.Context, c *http.Client, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &provider.HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}
	return io.ReadAll(resp.Body)
}
