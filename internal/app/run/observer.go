package run

import (
	"time"

	"github.com/John-Robertt/catalogfix/internal/domain"
)

// Observer 把“运行进度/条目结果”从核心执行流程中解耦出来。
//
// 约束：run 包只负责发事件，不做任何输出；打印什么、打印到哪里由 CLI 决定。
// 事件总是在调用方的 goroutine 上按记录顺序同步发出。
type Observer interface {
	// OnStart 在加载输入之前调用。
	OnStart(tool string, inputs []string, output string)
	// OnRecordDone 在每条记录处理完成时调用；Title Enricher 在网络请求返回后立即调用。
	OnRecordDone(idx, total int, res domain.ItemResult, dur time.Duration)
}
