package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/John-Robertt/catalogfix/internal/domain"
	"github.com/John-Robertt/catalogfix/internal/provider"
)

type stubSource struct {
	titles map[string]string
	errs   map[string]error

	calls []string
}

func (s *stubSource) Title(ctx context.Context, pageURL string) (string, error) {
	s.calls = append(s.calls, pageURL)
	if err, ok := s.errs[pageURL]; ok {
		return "", err
	}
	if t, ok := s.titles[pageURL]; ok {
		return t, nil
	}
	return "", provider.ErrTitleNotFound
}

func TestEnrichTitles_NoLinkMakesNoCalls(t *testing.T) {
	rs := mustSet(t, `[{"id":1},{"videoLink":""},{"videoLink":null},{"videoLink":0},{"videoLink":[]}]`)
	src := &stubSource{}

	out, items, err := EnrichTitles(context.Background(), rs, "videoLink", "source", src, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(src.calls) != 0 {
		t.Fatalf("没有链接时不应发请求：calls=%v", src.calls)
	}
	for i, r := range out {
		if s, _ := r.GetString("source"); s != domain.SourceNoVideoLink {
			t.Fatalf("记录 %d 的 source 应为 %q，实际 %q", i, domain.SourceNoVideoLink, s)
		}
		if items[i].Status != domain.RecordSkipped || items[i].ErrorCode != domain.ErrCodeNoVideoLink {
			t.Fatalf("item[%d] 不符合预期：%+v", i, items[i])
		}
	}
}

func TestEnrichTitles_FailureIsRecordLocal(t *testing.T) {
	rs := mustSet(t, `[
		{"videoLink":"https://v.test/1"},
		{"videoLink":"https://v.test/down"},
		{"videoLink":"https://v.test/notag"},
		{"videoLink":"https://v.test/1"},
		{"videoLink":true}
	]`)
	src := &stubSource{
		titles: map[string]string{"https://v.test/1": "First Video"},
		errs: map[string]error{
			"https://v.test/down": fmt.Errorf("dial tcp: connection refused"),
		},
	}

	var seen []int
	out, items, err := EnrichTitles(context.Background(), rs, "videoLink", "source", src, func(it domain.ItemResult, _ time.Duration) {
		seen = append(seen, it.Index)
	})
	if err != nil {
		t.Fatalf("单条失败不应中止整批：%v", err)
	}

	assertJSON(t, out, `[{"videoLink":"https://v.test/1","source":"First Video"},{"videoLink":"https://v.test/down","source":"Title Not Found"},{"videoLink":"https://v.test/notag","source":"Title Not Found"},{"videoLink":"https://v.test/1","source":"First Video"},{"videoLink":true,"source":"Title Not Found"}]`)

	// 串行 + 不缓存：重复链接也会再次请求；非字符串链接不会请求。
	wantCalls := []string{"https://v.test/1", "https://v.test/down", "https://v.test/notag", "https://v.test/1"}
	if fmt.Sprint(src.calls) != fmt.Sprint(wantCalls) {
		t.Fatalf("请求顺序不符合预期：got=%v want=%v", src.calls, wantCalls)
	}
	if fmt.Sprint(seen) != "[0 1 2 3 4]" {
		t.Fatalf("回调应按下标顺序逐条触发：%v", seen)
	}

	if items[1].ErrorCode != domain.ErrCodeFetchFailed || items[1].Status != domain.RecordFailed {
		t.Fatalf("item[1] 应为 fetch_failed：%+v", items[1])
	}
	if items[2].ErrorCode != domain.ErrCodeTagNotFound {
		t.Fatalf("item[2] 应为 tag_not_found：%+v", items[2])
	}
	if items[4].ErrorCode != domain.ErrCodeFetchFailed {
		t.Fatalf("item[4] 应为 fetch_failed：%+v", items[4])
	}
}

func TestEnrichTitles_OverwritesExistingSourceInPlace(t *testing.T) {
	rs := mustSet(t, `[{"source":"stale","videoLink":"https://v.test/1","x":1}]`)
	src := &stubSource{titles: map[string]string{"https://v.test/1": "Fresh"}}

	out, _, err := EnrichTitles(context.Background(), rs, "videoLink", "source", src, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	assertJSON(t, out, `[{"source":"Fresh","videoLink":"https://v.test/1","x":1}]`)
}

func TestEnrichTitles_NonObjectAbortsBeforeAnyFetch(t *testing.T) {
	rs := mustSet(t, `[{"videoLink":"https://v.test/1"},"oops"]`)
	src := &stubSource{titles: map[string]string{"https://v.test/1": "T"}}

	_, _, err := EnrichTitles(context.Background(), rs, "videoLink", "source", src, nil)
	if Code(err) != domain.ErrCodeShapeMismatch {
		t.Fatalf("期望 %q，实际 err=%v", domain.ErrCodeShapeMismatch, err)
	}
	if len(src.calls) != 0 {
		t.Fatalf("整批失败时不应发起任何请求：%v", src.calls)
	}
}

func TestEnrichTitles_CanceledContextAborts(t *testing.T) {
	rs := mustSet(t, `[{"videoLink":"https://v.test/1"}]`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := EnrichTitles(ctx, rs, "videoLink", "source", &stubSource{}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("期望 context.Canceled，实际：%v", err)
	}
}

func TestTruthy(t *testing.T) {
	cases := map[string]bool{
		`null`: false, `false`: false, `0`: false, `0.0`: false, `""`: false, `[]`: false, `{}`: false,
		`true`: true, `1`: true, `"x"`: true, `[0]`: true, `{"a":1}`: true,
	}
	for in, want := range cases {
		if got := truthy([]byte(in)); got != want {
			t.Fatalf("truthy(%s) 期望 %v，实际 %v", in, want, got)
		}
	}
}
