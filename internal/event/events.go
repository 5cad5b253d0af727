package event

import (
	"time"

	"github.com/wfunc/slot-client/internal/outcome"
)

// Name 事件名，字符串值是对外稳定的协议
type Name string

// 转动生命周期
const (
	SpinStarted          Name = "spin.started"             // SpinStartedPayload
	SpinRejected         Name = "spin.rejected"            // SpinRejectedPayload
	SpinError            Name = "spin.error"               // SpinErrorPayload
	ReelStopped          Name = "reel.stopped"             // ReelStoppedPayload
	ReelsStoppedVisually Name = "reels.stopped_visually"   // ReelsStoppedPayload
	SpinEvaluate         Name = "spin.evaluate"            // SpinEvaluatePayload
	EvaluationComplete   Name = "spin.evaluation_complete" // EvaluationCompletePayload
)

// 表现层
const (
	PaylinesShow        Name = "paylines.show"         // PaylinesShowPayload
	PaylinesClear       Name = "paylines.clear"        // PaylinesClearPayload
	AnimationsInterrupt Name = "animations.interrupt"  // InterruptPayload
	WinValidated        Name = "win.validated"         // WinValidatedPayload
	WinSequenceComplete Name = "win.sequence_complete" // SequenceCompletePayload
	NotificationShow    Name = "notification.show"     // NotificationPayload
	ReelsFrame          Name = "reels.frame"           // ReelsFramePayload
)

// 免费旋转
const (
	FreeSpinsTrigger   Name = "feature.free_spins.trigger" // FreeSpinsTriggerPayload
	FreeSpinsEntry     Name = "free_spins.entry"           // FreeSpinsEntryPayload
	FreeSpinsStarted   Name = "free_spins.started"         // FreeSpinsStartedPayload
	FreeSpinsRetrigger Name = "free_spins.retrigger"       // FreeSpinsRetriggerPayload
	FreeSpinsEnded     Name = "free_spins.ended"           // FreeSpinsEndedPayload
)

// 自动旋转
const (
	AutoplayStarted     Name = "autoplay.started"      // AutoplayStartedPayload
	AutoplayRequestStop Name = "autoplay.request_stop" // AutoplayStopRequestPayload
	AutoplayStopped     Name = "autoplay.stopped"      // AutoplayStoppedPayload
)

// 状态
const (
	StateChanged Name = "state.changed" // StateChangedPayload
)

// FieldChanged 单字段变更事件名 state.changed.<key>，负载为 FieldChangedPayload
func FieldChanged(key string) Name {
	return Name(string(StateChanged) + "." + key)
}

// SpinSource 转动请求来源
type SpinSource string

const (
	SourceUser     SpinSource = "user"
	SourceAutoplay SpinSource = "autoplay"
	SourceFreeSpin SpinSource = "free_spin"
)

// SpinStartedPayload 转动开始
type SpinStartedPayload struct {
	SpinID   string     `json:"spin_id"`
	Source   SpinSource `json:"source"`
	TotalBet int64      `json:"total_bet"` // 免费旋转为0
	Turbo    bool       `json:"turbo"`
}

// SpinRejectedPayload 转动请求被拒绝
type SpinRejectedPayload struct {
	Source SpinSource `json:"source"`
	Reason string     `json:"reason"`
}

// SpinErrorPayload 结果获取失败，转动已放弃
type SpinErrorPayload struct {
	SpinID   string `json:"spin_id"`
	Error    string `json:"error"`
	Refunded int64  `json:"refunded"`
}

// ReelStoppedPayload 单个卷轴停止
type ReelStoppedPayload struct {
	ReelIndex int `json:"reel_index"`
	Position  int `json:"position"`
}

// ReelsStoppedPayload 全部卷轴视觉停止
type ReelsStoppedPayload struct {
	SpinID string `json:"spin_id"`
}

// SpinEvaluatePayload 请求结果处理器计算本次转动
type SpinEvaluatePayload struct {
	SpinID  string               `json:"spin_id"`
	Source  SpinSource           `json:"source"`
	Outcome *outcome.SpinOutcome `json:"outcome"`
}

// EvaluationCompletePayload 结果处理完毕，每次转动只发一次
type EvaluationCompletePayload struct {
	SpinID   string     `json:"spin_id"`
	Source   SpinSource `json:"source"`
	TotalWin int64      `json:"total_win"`
}

// PaylinesShowPayload 绘制中奖线
type PaylinesShowPayload struct {
	SpinID string            `json:"spin_id"`
	Lines  []outcome.WinLine `json:"lines"`
}

// PaylinesClearPayload 清除中奖线
type PaylinesClearPayload struct{}

// InterruptPayload 打断正在播放的动画
type InterruptPayload struct {
	Reason string `json:"reason"`
}

// WinValidatedPayload 中奖动画输入
type WinValidatedPayload struct {
	SpinID           string            `json:"spin_id"`
	TotalWin         int64             `json:"total_win"`
	WinningLines     []outcome.WinLine `json:"winning_lines"`
	SymbolsToAnimate []outcome.Cell    `json:"symbols_to_animate"`
	CurrentTotalBet  int64             `json:"current_total_bet"`
}

// SequenceCompletePayload 中奖动画序列结束
type SequenceCompletePayload struct {
	SpinID      string `json:"spin_id"`
	Tier        string `json:"tier"`
	Interrupted bool   `json:"interrupted"`
}

// NotificationPayload 用户提示
type NotificationPayload struct {
	Level    string        `json:"level"` // info, warn, error
	Message  string        `json:"message"`
	Duration time.Duration `json:"duration"`
}

// ReelFrame 单个卷轴的渲染快照
type ReelFrame struct {
	Index    int      `json:"index"`
	State    string   `json:"state"`
	Position float64  `json:"position"`
	Symbols  []string `json:"symbols"`
}

// ReelsFramePayload 节流后的卷轴快照
type ReelsFramePayload struct {
	Time  time.Duration `json:"time"`
	Reels []ReelFrame   `json:"reels"`
}

// FreeSpinsTriggerPayload 结果中触发免费旋转
type FreeSpinsTriggerPayload struct {
	SpinID       string `json:"spin_id"`
	SpinsAwarded int    `json:"spins_awarded"`
	ScatterCount int    `json:"scatter_count"`
}

// FreeSpinsEntryPayload 开始进入免费旋转
type FreeSpinsEntryPayload struct {
	SpinsAwarded int `json:"spins_awarded"`
}

// FreeSpinsStartedPayload 入场结束，免费旋转开始
type FreeSpinsStartedPayload struct {
	SpinsRemaining int   `json:"spins_remaining"`
	Multiplier     int64 `json:"multiplier"`
}

// FreeSpinsRetriggerPayload 免费旋转中再次触发
type FreeSpinsRetriggerPayload struct {
	SpinsAwarded   int `json:"spins_awarded"`
	SpinsRemaining int `json:"spins_remaining"`
}

// FreeSpinsEndedPayload 免费旋转结束
type FreeSpinsEndedPayload struct {
	TotalWin    int64 `json:"total_win"`
	SpinsPlayed int   `json:"spins_played"`
}

// AutoplayStartedPayload 自动旋转开始
type AutoplayStartedPayload struct {
	Spins int `json:"spins"`
}

// AutoplayStopRequestPayload 外部请求停止自动旋转
type AutoplayStopRequestPayload struct {
	Reason string `json:"reason"`
}

// AutoplayStoppedPayload 自动旋转停止
type AutoplayStoppedPayload struct {
	Reason      string `json:"reason"`
	SpinsPlayed int    `json:"spins_played"`
}

// StateChangedPayload 聚合状态变更
type StateChangedPayload struct {
	Keys []string `json:"keys"`
}

// FieldChangedPayload 单字段变更
type FieldChangedPayload struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}
