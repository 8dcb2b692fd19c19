package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

// FileName 是工作目录下可选配置文件的固定文件名。
const FileName = "catalogfix.json"

// 各工具的默认文件名与字段名（不存在配置文件时即为最终值）。
const (
	DefaultCategoriesOriginal = "consult_videos_original.json"
	DefaultCategoriesTarget   = "consult_videos.json"
	DefaultCategoriesOutput   = "consult_videos_updated.json"
	DefaultKeyField           = "title"
	DefaultValueField         = "category"

	DefaultGameLinksInput  = "consult_videos.json"
	DefaultGameLinksOutput = "consult_videos_with_links.json"
	DefaultGameLinkField   = "gameLink"

	DefaultTitlesInput  = "feed_1.9.json"
	DefaultTitlesOutput = "feed_1.9_with_titles.json"
	DefaultLinkField    = "videoLink"
	DefaultSourceField  = "source"

	// DefaultTimeout 为 0：不设总超时，timeout_seconds 显式配置后才生效。
	DefaultTimeout time.Duration = 0
)

// FileConfig 对应 catalogfix.json 的解析结构；所有字段可选。
type FileConfig struct {
	Categories     *CategoriesFile `json:"categories"`
	GameLinks      *GameLinksFile  `json:"game_links"`
	Titles         *TitlesFile     `json:"titles"`
	Proxy          *ProxyConfig    `json:"proxy"`
	TimeoutSeconds *int            `json:"timeout_seconds"`
	ReportPath     string          `json:"report_path"`
}

type CategoriesFile struct {
	Original   string `json:"original"`
	Target     string `json:"target"`
	Output     string `json:"output"`
	KeyField   string `json:"key_field"`
	ValueField string `json:"value_field"`
}

type GameLinksFile struct {
	Input  string `json:"input"`
	Output string `json:"output"`
	Field  string `json:"field"`
}

type TitlesFile struct {
	Input            string `json:"input"`
	Output           string `json:"output"`
	LinkField        string `json:"link_field"`
	SourceField      string `json:"source_field"`
	BrowserUserAgent bool   `json:"browser_user_agent"`
}

type ProxyConfig struct {
	URL string `json:"url"`
}

// Categories 是 Category Reconciler 的最终配置。
type Categories struct {
	Original   string
	Target     string
	Output     string
	KeyField   string
	ValueField string
}

// GameLinks 是 Field Augmenter 的最终配置。
type GameLinks struct {
	Input  string
	Output string
	Field  string
}

// Titles 是 Title Enricher 的最终配置。
type Titles struct {
	Input       string
	Output      string
	LinkField   string
	SourceField string

	ProxyURL string
	// Timeout 为 0 表示不设总超时。
	Timeout time.Duration
	// BrowserUserAgent 为 true 时每个请求带随机浏览器 UA；默认不附加任何请求头。
	BrowserUserAgent bool
}

// EffectiveConfig 是合并默认值并规范化后的最终配置，路径全部为 clean + absolute。
type EffectiveConfig struct {
	Categories Categories
	GameLinks  GameLinks
	Titles     Titles

	// ReportPath 非空时，每次运行后把 RunReport 写入该文件。
	ReportPath string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
	}
	return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
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

// Default 返回不读取任何配置文件时的最终配置（路径相对 cwd 解析）。
func Default(cwd string) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}
	return merge(cwdAbs, FileConfig{}, filepath.Join(cwdAbs, FileName))
}

// LoadEffective 读取 <cwd>/catalogfix.json（可选）并与默认值合并为最终配置。
//
// 覆盖优先级（固定）：配置文件中的非空字段 > 内置默认值。
// 文件不存在不是错误；文件存在但无法解析则返回 config_invalid。
func LoadEffective(cwd string) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	cfgPath := filepath.Join(cwdAbs, FileName)
	fc, _, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	return merge(cwdAbs, fc, cfgPath)
}

func merge(cwdAbs string, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(format string, args ...any) error {
		return &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf(format, args...)}
	}

	var cf CategoriesFile
	if fc.Categories != nil {
		cf = *fc.Categories
	}
	cat := Categories{
		Original:   absCleanFrom(cwdAbs, orDefault(cf.Original, DefaultCategoriesOriginal)),
		Target:     absCleanFrom(cwdAbs, orDefault(cf.Target, DefaultCategoriesTarget)),
		Output:     absCleanFrom(cwdAbs, orDefault(cf.Output, DefaultCategoriesOutput)),
		KeyField:   orDefault(cf.KeyField, DefaultKeyField),
		ValueField: orDefault(cf.ValueField, DefaultValueField),
	}
	if cat.KeyField == cat.ValueField {
		return EffectiveConfig{}, invalid("categories.key_field 与 value_field 不能相同：%q", cat.KeyField)
	}
	if cat.Output == cat.Original || cat.Output == cat.Target {
		return EffectiveConfig{}, invalid("categories.output 不能与输入文件相同：%q", cat.Output)
	}

	var gf GameLinksFile
	if fc.GameLinks != nil {
		gf = *fc.GameLinks
	}
	gl := GameLinks{
		Input:  absCleanFrom(cwdAbs, orDefault(gf.Input, DefaultGameLinksInput)),
		Output: absCleanFrom(cwdAbs, orDefault(gf.Output, DefaultGameLinksOutput)),
		Field:  orDefault(gf.Field, DefaultGameLinkField),
	}
	if gl.Output == gl.Input {
		return EffectiveConfig{}, invalid("game_links.output 不能与输入文件相同：%q", gl.Output)
	}

	var tf TitlesFile
	if fc.Titles != nil {
		tf = *fc.Titles
	}
	ti := Titles{
		Input:       absCleanFrom(cwdAbs, orDefault(tf.Input, DefaultTitlesInput)),
		Output:      absCleanFrom(cwdAbs, orDefault(tf.Output, DefaultTitlesOutput)),
		LinkField:   orDefault(tf.LinkField, DefaultLinkField),
		SourceField: orDefault(tf.SourceField, DefaultSourceField),
		Timeout:     DefaultTimeout,

		BrowserUserAgent: tf.BrowserUserAgent,
	}
	if ti.Output == ti.Input {
		return EffectiveConfig{}, invalid("titles.output 不能与输入文件相同：%q", ti.Output)
	}
	if ti.LinkField == ti.SourceField {
		return EffectiveConfig{}, invalid("titles.link_field 与 source_field 不能相同：%q", ti.LinkField)
	}

	if fc.Proxy != nil {
		ti.ProxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if ti.ProxyURL != "" {
		u, err := url.Parse(ti.ProxyURL)
		if err != nil {
			return EffectiveConfig{}, invalid("proxy.url 无效：%w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return EffectiveConfig{}, invalid("proxy.url 缺少 scheme 或 host：%q", ti.ProxyURL)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return EffectiveConfig{}, invalid("proxy.url 只支持 http/https，实际是 %q", u.Scheme)
		}
	}

	if fc.TimeoutSeconds != nil {
		if *fc.TimeoutSeconds <= 0 {
			return EffectiveConfig{}, invalid("timeout_seconds 必须为正数，实际是 %d", *fc.TimeoutSeconds)
		}
		ti.Timeout = time.Duration(*fc.TimeoutSeconds) * time.Second
	}

	report := ""
	if strings.TrimSpace(fc.ReportPath) != "" {
		report = absCleanFrom(cwdAbs, fc.ReportPath)
		// report 在每次运行后写出，不能覆盖任何工具的输入或输出。
		for _, p := range []string{cat.Original, cat.Target, cat.Output, gl.Input, gl.Output, ti.Input, ti.Output} {
			if report == p {
				return EffectiveConfig{}, invalid("report_path 不能与输入/输出文件相同：%q", report)
			}
		}
	}

	return EffectiveConfig{
		Categories: cat,
		GameLinks:  gl,
		Titles:     ti,
		ReportPath: report,
	}, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
