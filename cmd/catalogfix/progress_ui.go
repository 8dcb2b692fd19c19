package main

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/John-Robertt/catalogfix/internal/app/run"
	"github.com/John-Robertt/catalogfix/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 把 run 的事件转成终端输出。
//
// - 标题抓取失败总是写到 out（与状态行同一个流），因为这是用户需要处理的结果
// - 逐条进度只在交互终端写到 progress；progress 为 nil 时完全静默
// - 只有 titles 会打印逐条进度，其余工具是纯内存变换，逐条输出没有意义
type progressUI struct {
	tool     string
	out      io.Writer
	progress io.Writer

	startedAt time.Time
}

func newProgressUI(tool string, out, progress io.Writer) *progressUI {
	return &progressUI{tool: tool, out: out, progress: progress}
}

func (p *progressUI) OnStart(tool string, inputs []string, output string) {
	p.startedAt = time.Now()
	if p.progress == nil {
		return
	}
	fmt.Fprintf(p.progress, "[%s] catalogfix %s\n", p.startedAt.Format("15:04:05"), tool)
	for _, in := range inputs {
		fmt.Fprintf(p.progress, "  input: %s\n", in)
	}
	fmt.Fprintf(p.progress, "  output: %s\n", output)
}

func (p *progressUI) OnRecordDone(idx, total int, res domain.ItemResult, dur time.Duration) {
	if p.tool != run.ToolTitles {
		return
	}
	if res.Status == domain.RecordFailed {
		fmt.Fprintf(p.out, "获取标题失败 %s：%s\n", res.Key, truncate(res.ErrorMsg, 200))
	}
	if p.progress == nil {
		return
	}

	status := "OK"
	switch res.Status {
	case domain.RecordSkipped:
		status = "SKIP"
	case domain.RecordFailed:
		status = "FAIL " + res.ErrorCode
	}
	fmt.Fprintf(p.progress, "[%d/%d] %s %s -> %s (%s)\n",
		idx+1, total, status, truncate(res.Key, 80), truncate(res.Value, 80), formatShortDuration(dur),
	)
}

// truncate 按字节上限截断，但只在 UTF-8 字符边界处切，避免中文标题被切出半个字符。
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:runeBoundary(s, max)]
	}
	return s[:runeBoundary(s, max-3)] + "..."
}

// runeBoundary 返回不超过 n 的最大字符边界下标。
func runeBoundary(s string, n int) int {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
