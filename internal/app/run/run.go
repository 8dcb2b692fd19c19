package run

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/John-Robertt/catalogfix/internal/app"
	"github.com/John-Robertt/catalogfix/internal/config"
	"github.com/John-Robertt/catalogfix/internal/domain"
	"github.com/John-Robertt/catalogfix/internal/infra/fsx"
	"github.com/John-Robertt/catalogfix/internal/infra/httpx"
	"github.com/John-Robertt/catalogfix/internal/infra/jsonfile"
	"github.com/John-Robertt/catalogfix/internal/provider"
	"github.com/John-Robertt/catalogfix/internal/provider/ogtitle"
)

const (
	ToolCategories = "categories"
	ToolGameLinks  = "game-links"
	ToolTitles     = "titles"
)

// 输出缩进按工具固定。
const (
	IndentCategories = 4
	IndentGameLinks  = 4
	IndentTitles     = 2
)

// Categories 执行 Category Reconciler：load(original) → load(target) → 覆盖 category → write。
//
// 任何批量致命错误都返回 Status=failed 的报告，且不会写出输出文件。
func Categories(ctx context.Context, cfg config.Categories, obs Observer) domain.RunReport {
	rr := newReport(ToolCategories, []string{cfg.Original, cfg.Target}, cfg.Output, obs)
	return execute(&rr, obs, func() ([]domain.ItemResult, error) {
		original, err := jsonfile.Load(cfg.Original)
		if err != nil {
			return nil, err
		}
		target, err := jsonfile.Load(cfg.Target)
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out, items, err := app.ReconcileCategories(original, target, cfg.KeyField, cfg.ValueField)
		if err != nil {
			return nil, err
		}
		emitAll(obs, items)

		if err := jsonfile.Write(cfg.Output, out, IndentCategories); err != nil {
			return nil, err
		}
		return items, nil
	})
}

// GameLinks 执行 Field Augmenter：load → 为缺失字段的记录补 "" → write。
func GameLinks(ctx context.Context, cfg config.GameLinks, obs Observer) domain.RunReport {
	rr := newReport(ToolGameLinks, []string{cfg.Input}, cfg.Output, obs)
	return execute(&rr, obs, func() ([]domain.ItemResult, error) {
		rs, err := jsonfile.Load(cfg.Input)
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out, items := app.AugmentField(rs, cfg.Field)
		emitAll(obs, items)

		if err := jsonfile.Write(cfg.Output, out, IndentGameLinks); err != nil {
			return nil, err
		}
		return items, nil
	})
}

// Titles 执行 Title Enricher：load → 逐条串行查询标题 → 全部完成后一次性 write。
//
// src 为 nil 时按 cfg 的代理/超时/UA 设置构造默认的 og:title 抓取器。
// 单条记录的网络/解析失败只体现在 item 上（写入哨兵值），不影响整批成功。
func Titles(ctx context.Context, cfg config.Titles, src provider.TitleSource, obs Observer) domain.RunReport {
	rr := newReport(ToolTitles, []string{cfg.Input}, cfg.Output, obs)
	return execute(&rr, obs, func() ([]domain.ItemResult, error) {
		rs, err := jsonfile.Load(cfg.Input)
		if err != nil {
			return nil, err
		}

		if src == nil {
			c, err := httpx.NewPageClient(cfg.ProxyURL, cfg.Timeout, cfg.BrowserUserAgent)
			if err != nil {
				return nil, &configError{err: err}
			}
			src = ogtitle.Source{Client: c}
		}

		total := len(rs)
		out, items, err := app.EnrichTitles(ctx, rs, cfg.LinkField, cfg.SourceField, src, func(it domain.ItemResult, dur time.Duration) {
			if obs != nil {
				obs.OnRecordDone(it.Index, total, it, dur)
			}
		})
		if err != nil {
			return nil, err
		}

		if err := jsonfile.Write(cfg.Output, out, IndentTitles); err != nil {
			return nil, err
		}
		return items, nil
	})
}

func newReport(tool string, inputs []string, output string, obs Observer) domain.RunReport {
	if obs != nil {
		obs.OnStart(tool, inputs, output)
	}
	return domain.RunReport{
		Tool:      tool,
		Inputs:    inputs,
		Output:    output,
		Status:    domain.StatusOK,
		StartedAt: time.Now().UTC(),
		Items:     []domain.ItemResult{},
	}
}

// execute 运行 fn 并把结果/错误统一落到报告上；fn 内的 panic 也被归类为 unexpected。
func execute(rr *domain.RunReport, obs Observer, fn func() ([]domain.ItemResult, error)) (out domain.RunReport) {
	defer func() {
		if p := recover(); p != nil {
			rr.Items = []domain.ItemResult{}
			rr.Status = domain.StatusFailed
			rr.ErrorCode = domain.ErrCodeUnexpected
			rr.ErrorMsg = fmt.Sprintf("意外错误：%v", p)
			rr.FinishedAt = time.Now().UTC()
			rr.Finalize()
			out = *rr
		}
	}()

	items, err := fn()
	if err != nil {
		rr.Items = []domain.ItemResult{}
		rr.Status = domain.StatusFailed
		rr.ErrorCode = classify(err)
		rr.ErrorMsg = err.Error()
	} else {
		rr.Items = items
	}
	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return *rr
}

func emitAll(obs Observer, items []domain.ItemResult) {
	if obs == nil {
		return
	}
	for _, it := range items {
		obs.OnRecordDone(it.Index, len(items), it, 0)
	}
}

type configError struct{ err error }

func (e *configError) Error() string { return fmt.Sprintf("网络配置无效：%v", e.err) }

func (e *configError) Unwrap() error { return e.err }

// classify 把错误映射为 error_code。fsx 的写出错误被 jsonfile.Error 包裹，需先于 jsonfile.Code 识别。
func classify(err error) string {
	if fsx.IsPathTypeConflict(err) {
		return domain.ErrCodeOutputConflict
	}
	if fsx.IsCrossDevice(err) {
		return domain.ErrCodeCrossDevice
	}
	if c := jsonfile.Code(err); c != "" {
		return c
	}
	if c := app.Code(err); c != "" {
		return c
	}
	var ce *configError
	if errors.As(err, &ce) {
		return domain.ErrCodeConfigInvalid
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrCodeCanceled
	}
	return domain.ErrCodeUnexpected
}
