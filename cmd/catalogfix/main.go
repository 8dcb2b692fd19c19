package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/John-Robertt/catalogfix/internal/app/run"
	"github.com/John-Robertt/catalogfix/internal/config"
	"github.com/John-Robertt/catalogfix/internal/domain"
	"github.com/John-Robertt/catalogfix/internal/infra/fsx"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage(os.Stdout)
		return
	}

	tool, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printUsage(os.Stderr)
		os.Exit(2)
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stdout, "失败：读取当前目录失败：%v\n", err)
		os.Exit(1)
	}

	var progress io.Writer
	if isTTY(os.Stderr) {
		progress = os.Stderr
	}
	if code := runTool(context.Background(), cwd, tool, os.Stdout, progress); code != 0 {
		os.Exit(code)
	}
}

// parseArgs 只接受一个子命令名；文件名全部来自配置（默认为固定文件名），不接受任何 flag。
func parseArgs(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("缺少子命令")
	}
	if len(args) > 1 {
		return "", fmt.Errorf("多余的参数：%q", args[1:])
	}
	switch args[0] {
	case run.ToolCategories, run.ToolGameLinks, run.ToolTitles:
		return args[0], nil
	default:
		return "", fmt.Errorf("未知命令：%q", args[0])
	}
}

// runTool 执行一个工具并输出状态行，返回进程退出码（0 成功，1 失败）。
// progress 为 nil 时不输出逐条进度。
func runTool(ctx context.Context, cwd, tool string, stdout, progress io.Writer) int {
	eff, err := config.LoadEffective(cwd)
	if err != nil {
		fmt.Fprintf(stdout, "失败：%v\n", err)
		return 1
	}

	obs := newProgressUI(tool, stdout, progress)

	var rr domain.RunReport
	switch tool {
	case run.ToolCategories:
		rr = run.Categories(ctx, eff.Categories, obs)
	case run.ToolGameLinks:
		rr = run.GameLinks(ctx, eff.GameLinks, obs)
	case run.ToolTitles:
		rr = run.Titles(ctx, eff.Titles, nil, obs)
	default:
		fmt.Fprintf(stdout, "失败：未知命令 %q\n", tool)
		return 2
	}

	if eff.ReportPath != "" {
		if err := writeReportFile(eff.ReportPath, rr); err != nil {
			fmt.Fprintf(stdout, "写入 report 失败：%v\n", err)
		}
	}

	fmt.Fprintln(stdout, formatStatus(rr))
	if rr.OK() {
		return 0
	}
	return 1
}

// formatStatus 生成面向人的单行结果。
func formatStatus(rr domain.RunReport) string {
	if !rr.OK() {
		return fmt.Sprintf("失败：%s 未写出输出文件（%s）：%s", rr.Tool, rr.ErrorCode, rr.ErrorMsg)
	}
	s := rr.Summary
	switch rr.Tool {
	case run.ToolCategories:
		return fmt.Sprintf("完成：已更新分类并写入 %q（records=%d updated=%d unchanged=%d）",
			rr.Output, s.Records, s.Updated, s.Unchanged)
	case run.ToolGameLinks:
		return fmt.Sprintf("完成：已补全 gameLink 字段并写入 %q（records=%d added=%d kept=%d skipped=%d）",
			rr.Output, s.Records, s.Updated, s.Unchanged, s.Skipped)
	default:
		return fmt.Sprintf("完成：已写入标题到 %q（records=%d found=%d no_link=%d not_found=%d）",
			rr.Output, s.Records, s.Updated, s.Skipped, s.Failed)
	}
}

func writeReportFile(path string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomic(path, b)
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func isTTY(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `用法：
  catalogfix <命令>

命令：
  categories   按 %s 中的 title 修正 %s 的 category，写入 %s
  game-links   为 %s 的每条记录补全空的 gameLink 字段，写入 %s
  titles       抓取 %s 中每个 videoLink 的页面标题写入 source，写入 %s

文件名与字段名可在当前目录的 %s 中覆盖。
`,
		config.DefaultCategoriesOriginal, config.DefaultCategoriesTarget, config.DefaultCategoriesOutput,
		config.DefaultGameLinksInput, config.DefaultGameLinksOutput,
		config.DefaultTitlesInput, config.DefaultTitlesOutput,
		config.FileName,
	)
}
