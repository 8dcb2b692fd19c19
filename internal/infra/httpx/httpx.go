package httpx

import (
	"errors"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Transport 在启用 UA 池时给每个请求补上浏览器 UA，并在代理模式下禁用连接复用。
//
// 约束：不做重试、不做限速、不做缓存。一次 RoundTrip 就是一次网络请求，
// 调用方看到的请求次数与记录里的链接次数一一对应。
type Transport struct {
	Base *http.Transport

	// ua 为 nil 时不改动任何请求头。
	ua *uaPool

	// DisableKeepAlives 决定是否对 Request 设置 Close=true。
	// 真正禁用 keep-alive 依赖 Base.DisableKeepAlives。
	DisableKeepAlives bool
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// Clone：不污染调用方的 request。
	r := req.Clone(req.Context())
	if r.Header.Get("User-Agent") == "" && t.ua != nil {
		r.Header.Set("User-Agent", t.ua.random())
	}
	if t.DisableKeepAlives {
		r.Close = true
	}
	return t.Base.RoundTrip(r)
}

// NewPageClient 构造抓取视频页面用的 HTTP client。
//
// 规则：
// - proxyURL 非空：走代理，且每请求新连接
// - browserUA=true：每个请求随机浏览器 UA；否则请求头保持 net/http 默认
// - timeout<=0：不设总超时
func NewPageClient(proxyURL string, timeout time.Duration, browserUA bool) (*http.Client, error) {
	proxyURL = strings.TrimSpace(proxyURL)
	if timeout < 0 {
		timeout = 0
	}

	base := &http.Transport{
		Proxy:               nil,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	disableKeepAlives := false
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, err
		}
		base.Proxy = http.ProxyURL(u)
		base.DisableKeepAlives = true
		disableKeepAlives = true
	}

	tr := &Transport{
		Base:              base,
		DisableKeepAlives: disableKeepAlives,
	}
	if browserUA {
		tr.ua = globalUA
	}
	return &http.Client{Transport: tr, Timeout: timeout}, nil
}

type uaPool struct {
	mu  sync.Mutex
	rnd *rand.Rand
	uas []string
}

func (p *uaPool) random() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uas[p.rnd.Intn(len(p.uas))]
}

var globalUA = newUAPool()

func newUAPool() *uaPool {
	// 视频站对非浏览器 UA 常返回精简页面（没有 og:title）。
	uas := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_6) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	}
	return &uaPool{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		uas: uas,
	}
}
