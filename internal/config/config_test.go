package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEffective_NoFileUsesDefaults(t *testing.T) {
	cwd := t.TempDir()

	eff, err := LoadEffective(cwd)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	if eff.Categories.Original != filepath.Join(cwd, DefaultCategoriesOriginal) ||
		eff.Categories.Target != filepath.Join(cwd, DefaultCategoriesTarget) ||
		eff.Categories.Output != filepath.Join(cwd, DefaultCategoriesOutput) {
		t.Fatalf("categories 默认路径不正确：%+v", eff.Categories)
	}
	if eff.Categories.KeyField != "title" || eff.Categories.ValueField != "category" {
		t.Fatalf("categories 默认字段不正确：%+v", eff.Categories)
	}
	if eff.GameLinks.Field != "gameLink" || eff.GameLinks.Output != filepath.Join(cwd, DefaultGameLinksOutput) {
		t.Fatalf("game_links 默认值不正确：%+v", eff.GameLinks)
	}
	if eff.Titles.LinkField != "videoLink" || eff.Titles.SourceField != "source" {
		t.Fatalf("titles 默认字段不正确：%+v", eff.Titles)
	}
	if eff.Titles.Timeout != 0 {
		t.Fatalf("默认不应设置超时，实际 %v", eff.Titles.Timeout)
	}
	if eff.Titles.BrowserUserAgent {
		t.Fatalf("默认不应附加浏览器 UA")
	}
	if eff.ReportPath != "" {
		t.Fatalf("默认不应写 report，实际 %q", eff.ReportPath)
	}
}

func TestDefault_SameAsMissingFile(t *testing.T) {
	cwd := t.TempDir()
	a, err := Default(cwd)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	b, err := LoadEffective(cwd)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if a.Categories != b.Categories || a.GameLinks != b.GameLinks || a.Titles != b.Titles {
		t.Fatalf("Default 与无配置文件时的结果应一致：\n%+v\n%+v", a, b)
	}
}

func TestLoadEffective_FileOverrides(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{
  "categories": {"original": "data/orig.json", "output": "/abs/out.json"},
  "titles": {"input": "feed.json", "source_field": "videoTitle", "browser_user_agent": true},
  "proxy": {"url": "http://127.0.0.1:7890"},
  "timeout_seconds": 5,
  "report_path": "reports/last.json"
}`))

	eff, err := LoadEffective(cwd)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Categories.Original != filepath.Join(cwd, "data", "orig.json") {
		t.Fatalf("相对路径应以 cwd 为基准：%q", eff.Categories.Original)
	}
	if eff.Categories.Output != filepath.Clean("/abs/out.json") {
		t.Fatalf("绝对路径应保持不变：%q", eff.Categories.Output)
	}
	if eff.Categories.Target != filepath.Join(cwd, DefaultCategoriesTarget) {
		t.Fatalf("未指定的字段应回退默认值：%q", eff.Categories.Target)
	}
	if eff.Titles.SourceField != "videoTitle" || eff.Titles.LinkField != DefaultLinkField {
		t.Fatalf("titles 字段合并不正确：%+v", eff.Titles)
	}
	if eff.Titles.ProxyURL != "http://127.0.0.1:7890" || eff.Titles.Timeout != 5*time.Second || !eff.Titles.BrowserUserAgent {
		t.Fatalf("网络配置合并不正确：%+v", eff.Titles)
	}
	if eff.ReportPath != filepath.Join(cwd, "reports", "last.json") {
		t.Fatalf("report_path 不正确：%q", eff.ReportPath)
	}
}

func TestLoadEffective_InvalidJSON(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{`))

	_, err := LoadEffective(cwd)
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
	}
}

func TestLoadEffective_OutputEqualsInput(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{"game_links":{"input":"a.json","output":"./a.json"}}`))

	_, err := LoadEffective(cwd)
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
	}
}

func TestLoadEffective_CategoriesOutputEqualsTarget(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{"categories":{"output":"consult_videos.json"}}`))

	_, err := LoadEffective(cwd)
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
	}
}

func TestLoadEffective_SameKeyAndValueField(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{"categories":{"key_field":"title","value_field":"title"}}`))

	_, err := LoadEffective(cwd)
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
	}
}

func TestLoadEffective_InvalidProxyURL(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{"proxy":{"url":"http://[::1"}}`))

	_, err := LoadEffective(cwd)
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
	}
}

func TestLoadEffective_ProxyURLNonHTTPScheme(t *testing.T) {
	for _, u := range []string{"socks5://127.0.0.1:1080", "ftp://proxy.local:21"} {
		cwd := t.TempDir()
		writeFile(t, filepath.Join(cwd, FileName), []byte(`{"proxy":{"url":"`+u+`"}}`))

		_, err := LoadEffective(cwd)
		if Code(err) != ErrCodeInvalid {
			t.Fatalf("%s：期望 %q，实际 err=%v (code=%q)", u, ErrCodeInvalid, err, Code(err))
		}
	}
}

func TestLoadEffective_ProxyURLHTTPS(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{"proxy":{"url":"https://proxy.local:8443"}}`))

	eff, err := LoadEffective(cwd)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Titles.ProxyURL != "https://proxy.local:8443" {
		t.Fatalf("proxy.url 不正确：%q", eff.Titles.ProxyURL)
	}
}

func TestLoadEffective_ReportPathEqualsInputOrOutput(t *testing.T) {
	for _, rp := range []string{
		"consult_videos.json",            // game_links / categories 的输入
		"./consult_videos_original.json", // categories 的原始输入
		"consult_videos_with_links.json", // game_links 的输出
		"feed_1.9_with_titles.json",      // titles 的输出
	} {
		cwd := t.TempDir()
		writeFile(t, filepath.Join(cwd, FileName), []byte(`{"report_path":"`+rp+`"}`))

		_, err := LoadEffective(cwd)
		if Code(err) != ErrCodeInvalid {
			t.Fatalf("report_path=%q：期望 %q，实际 err=%v (code=%q)", rp, ErrCodeInvalid, err, Code(err))
		}
	}
}

func TestLoadEffective_ReportPathFollowsOverriddenPaths(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{"titles":{"input":"in.json"},"report_path":"in.json"}`))

	_, err := LoadEffective(cwd)
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
	}
}

func TestLoadEffective_NonPositiveTimeout(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{"timeout_seconds":0}`))

	_, err := LoadEffective(cwd)
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
	}
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写入文件失败 %q：%v", path, err)
	}
}
