package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

const (
	RecordUpdated   = "updated"
	RecordUnchanged = "unchanged"
	RecordSkipped   = "skipped"
	RecordFailed    = "failed"
)

const (
	ErrCodeFileNotFound   = "file_not_found"
	ErrCodeMalformedJSON  = "malformed_json"
	ErrCodeMissingKey     = "missing_key"
	ErrCodeShapeMismatch  = "shape_mismatch"
	ErrCodeFetchFailed    = "fetch_failed"
	ErrCodeTagNotFound    = "tag_not_found"
	ErrCodeNoVideoLink    = "no_video_link"
	ErrCodeIOFailed       = "io_failed"
	ErrCodeOutputConflict = "output_conflict"
	ErrCodeCrossDevice    = "cross_device"
	ErrCodeCanceled       = "canceled"
	ErrCodeUnexpected     = "unexpected"
	ErrCodeConfigInvalid  = "config_invalid"
)

// Title Enricher 写入 source 字段的哨兵值。
const (
	SourceNoVideoLink   = "No Video Link"
	SourceTitleNotFound = "Title Not Found"
)

// RunReport 是一次工具运行的结构化结果（report_path / 状态行都由它生成）。
//
// Status=failed 时必然没有写出输出文件；Items 只在变换阶段完成后才有意义。
type RunReport struct {
	Tool   string   `json:"tool"`
	Inputs []string `json:"inputs"`
	Output string   `json:"output"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	Records   int `json:"records"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// ItemResult 描述单条记录的处理结果。
type ItemResult struct {
	Index     int    `json:"index"`
	Key       string `json:"key"` // title / videoLink 等定位信息，可能为空
	Status    string `json:"status"`
	Value     string `json:"value"` // 最终写入的值（未写入时为空）
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

// OK 报告本次运行是否成功写出了输出文件。
func (r RunReport) OK() bool { return r.Status == StatusOK }

// Finalize 统一时间为 UTC、按记录下标稳定排序，并由 items 计算 summary。
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()
	if r.Inputs == nil {
		r.Inputs = []string{}
	}
	if r.Items == nil {
		r.Items = []ItemResult{}
	}

	sort.SliceStable(r.Items, func(i, j int) bool {
		return r.Items[i].Index < r.Items[j].Index
	})

	s := ReportSummary{Records: len(r.Items)}
	for _, it := range r.Items {
		switch it.Status {
		case RecordUpdated:
			s.Updated++
		case RecordUnchanged:
			s.Unchanged++
		case RecordSkipped:
			s.Skipped++
		case RecordFailed:
			s.Failed++
		}
	}
	r.Summary = s
}

// MarshalJSON 集中约束输出的稳定性；当前只是透传 encoding/json 的默认行为。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
