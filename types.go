package flubber

import "time"

type Type string

const (
	// JavaScriptType JavaScript 脚本引擎类型
	JavaScriptType Type = "javascript"
)

// State 脚本运行时的生命周期状态
type State = string

const (
	// StateConstructed 运行时已创建，内置模块与 op 已安装
	StateConstructed State = "constructed"
	// StateEntryExecuted 入口脚本的顶层代码已执行
	StateEntryExecuted State = "entry_executed"
	// StateDraining 正在排空事件循环
	StateDraining State = "draining"
	// StateDrained 事件循环已排空；只有新调度的工作会再次进入 draining
	StateDrained State = "drained"
	// StateFaulted 发生致命错误（终态）
	StateFaulted State = "faulted"
)

// StateTransitions 运行时状态机允许的状态迁移
var StateTransitions = map[string][]string{
	StateConstructed:   {StateEntryExecuted},
	StateEntryExecuted: {StateDraining, StateFaulted},
	StateDraining:      {StateDrained, StateFaulted},
	StateDrained:       {StateDraining},
	StateFaulted:       {},
}

// DrainStats 事件循环排空统计
type DrainStats struct {
	// Iterations 至少运行了一个续体的轮次数
	Iterations int
	// Continuations 运行的续体总数（定时器、外部完成回调、入队任务）
	Continuations int
	// Duration 排空耗时
	Duration time.Duration
}

// LoopStats 事件循环的即时快照
type LoopStats struct {
	Ready       int `json:"ready"`
	Timers      int `json:"timers"`
	Outstanding int `json:"outstanding"`
}

// Idle 没有就绪续体、没有定时器、也没有进行中的外部操作
func (s LoopStats) Idle() bool {
	return s.Ready == 0 && s.Timers == 0 && s.Outstanding == 0
}
