package feature

import (
	"context"
	"fmt"
	"time"

	"github.com/wfunc/slot-client/internal/animation"
	"github.com/wfunc/slot-client/internal/event"
	"github.com/wfunc/slot-client/internal/fsm"
	"github.com/wfunc/slot-client/internal/scheduler"
	"github.com/wfunc/slot-client/internal/state"
	"go.uber.org/zap"
)

// FreeSpinsName 免费旋转插件名
const FreeSpinsName = "free_spins"

// 免费旋转状态
const (
	FreeSpinsInactive fsm.State = "inactive"
	FreeSpinsEntering fsm.State = "entering"
	FreeSpinsActive   fsm.State = "active"
	FreeSpinsExiting  fsm.State = "exiting"
)

// FreeSpins 免费旋转：入场动画后连续发起免费转动，中奖乘以固定倍数，次数用完后退场
type FreeSpins struct {
	ctx     *Context
	machine *fsm.Machine
	logger  *zap.Logger

	multiplier int64
	remaining  int
	totalWin   int64
	played     int
	pending    *scheduler.Task
	spinID     string
}

// NewFreeSpins 创建免费旋转插件
func NewFreeSpins() *FreeSpins {
	return &FreeSpins{}
}

// Name 实现Plugin接口
func (f *FreeSpins) Name() string { return FreeSpinsName }

// Events 实现Plugin接口
func (f *FreeSpins) Events() []event.Name {
	return []event.Name{
		event.FreeSpinsTrigger,
		event.EvaluationComplete,
		event.WinSequenceComplete,
		event.SpinError,
	}
}

// Init 实现Plugin接口
func (f *FreeSpins) Init(ctx *Context) error {
	f.ctx = ctx
	f.logger = ctx.Logger.With(zap.String("component", "free_spins"))
	f.multiplier = ctx.Config.FreeSpins.Multiplier
	if f.multiplier < 1 {
		f.multiplier = 1
	}
	f.machine = fsm.New(FreeSpinsName, FreeSpinsInactive, f.logger).Add(
		fsm.Transition{From: FreeSpinsInactive, Event: "enter", To: FreeSpinsEntering},
		fsm.Transition{From: FreeSpinsEntering, Event: "entered", To: FreeSpinsActive},
		fsm.Transition{From: FreeSpinsActive, Event: "exit", To: FreeSpinsExiting},
		fsm.Transition{From: FreeSpinsExiting, Event: "exited", To: FreeSpinsInactive},
	)
	return nil
}

// State 当前状态
func (f *FreeSpins) State() fsm.State {
	return f.machine.Current()
}

// Remaining 剩余免费次数
func (f *FreeSpins) Remaining() int {
	return f.remaining
}

// OnEvent 实现Plugin接口
func (f *FreeSpins) OnEvent(e event.Event) {
	switch e.Name {
	case event.FreeSpinsTrigger:
		if p, ok := decode[event.FreeSpinsTriggerPayload](f.logger, e); ok {
			f.handleTrigger(p)
		}
	case event.EvaluationComplete:
		if p, ok := decode[event.EvaluationCompletePayload](f.logger, e); ok {
			f.handleEvaluation(p)
		}
	case event.WinSequenceComplete:
		if p, ok := decode[event.SequenceCompletePayload](f.logger, e); ok {
			f.handleSequenceComplete(p)
		}
	case event.SpinError:
		if p, ok := decode[event.SpinErrorPayload](f.logger, e); ok {
			f.handleSpinError(p)
		}
	}
}

// Destroy 实现Plugin接口
func (f *FreeSpins) Destroy() {
	f.cancelPending()
}

func (f *FreeSpins) handleTrigger(p event.FreeSpinsTriggerPayload) {
	if p.SpinsAwarded <= 0 {
		return
	}
	switch f.State() {
	case FreeSpinsActive, FreeSpinsEntering:
		f.retrigger(p.SpinsAwarded)
	case FreeSpinsInactive:
		f.enter(p.SpinsAwarded)
	default:
		f.logger.Warn("退场中忽略免费旋转触发", zap.Int("awarded", p.SpinsAwarded))
	}
}

// retrigger 已在免费旋转中：只追加次数并短暂提示，不重新入场
func (f *FreeSpins) retrigger(awarded int) {
	f.remaining += awarded
	remaining := f.remaining
	f.ctx.Store.Update(func(gs *state.GameState) {
		gs.FreeSpinsRemaining = remaining
	})
	f.ctx.Bus.Publish(event.NotificationShow, event.NotificationPayload{
		Level:    "info",
		Message:  fmt.Sprintf("再次触发，追加 %d 次免费旋转", awarded),
		Duration: f.ctx.Config.FreeSpins.RetriggerNotice,
	})
	f.ctx.Bus.Publish(event.FreeSpinsRetrigger, event.FreeSpinsRetriggerPayload{
		SpinsAwarded:   awarded,
		SpinsRemaining: remaining,
	})
	f.logger.Info("免费旋转再次触发", zap.Int("awarded", awarded), zap.Int("remaining", remaining))
}

// enter 入场：背景切换和入场动画并发执行，全部结束后开始第一次免费转动
func (f *FreeSpins) enter(awarded int) {
	if err := f.machine.Trigger("enter"); err != nil {
		f.logger.Error("进入免费旋转失败", zap.Error(err))
		return
	}
	f.remaining = awarded
	f.totalWin = 0
	f.played = 0
	f.spinID = ""

	f.ctx.Store.Update(func(gs *state.GameState) {
		gs.IsInFreeSpins = true
		gs.IsFeatureTransitioning = true
		gs.FreeSpinsRemaining = awarded
		gs.TotalFreeSpinsWin = 0
	})
	payload := event.FreeSpinsEntryPayload{SpinsAwarded: awarded}
	f.ctx.Bus.Publish(event.FreeSpinsEntry, payload)
	f.logger.Info("进入免费旋转", zap.Int("awarded", awarded), zap.Int64("multiplier", f.multiplier))

	f.play([]string{animation.CueFreeSpinsEntry, animation.CueFreeSpinsBackground}, payload, f.finishEntry)
}

func (f *FreeSpins) finishEntry() {
	if !f.machine.Is(FreeSpinsEntering) {
		return
	}
	if err := f.machine.Trigger("entered"); err != nil {
		f.logger.Error("免费旋转入场失败", zap.Error(err))
		return
	}
	f.ctx.Store.Update(func(gs *state.GameState) {
		gs.IsFeatureTransitioning = false
	})
	f.ctx.Bus.Publish(event.NotificationShow, event.NotificationPayload{
		Level:   "info",
		Message: fmt.Sprintf("获得 %d 次免费旋转", f.remaining),
	})
	f.ctx.Bus.Publish(event.FreeSpinsStarted, event.FreeSpinsStartedPayload{
		SpinsRemaining: f.remaining,
		Multiplier:     f.multiplier,
	})
	f.schedule()
}

// handleEvaluation 免费转动结算：中奖乘以倍数，差额补入余额
func (f *FreeSpins) handleEvaluation(p event.EvaluationCompletePayload) {
	if !f.machine.Is(FreeSpinsActive) || p.Source != event.SourceFreeSpin || p.SpinID != f.spinID {
		return
	}
	win := p.TotalWin * f.multiplier
	extra := win - p.TotalWin
	f.totalWin += win
	if f.remaining > 0 {
		f.remaining--
	}
	f.played++

	total, remaining := f.totalWin, f.remaining
	f.ctx.Store.Update(func(gs *state.GameState) {
		gs.Balance += extra
		gs.LastTotalWin = win
		gs.TotalFreeSpinsWin = total
		gs.FreeSpinsRemaining = remaining
	})
	f.logger.Info("免费转动结算",
		zap.String("spin_id", p.SpinID),
		zap.Int64("win", win),
		zap.Int64("total", total),
		zap.Int("remaining", remaining))
}

func (f *FreeSpins) handleSequenceComplete(p event.SequenceCompletePayload) {
	if !f.machine.Is(FreeSpinsActive) || f.spinID == "" || p.SpinID != f.spinID {
		return
	}
	f.spinID = ""
	if f.remaining > 0 {
		f.schedule()
		return
	}
	f.exit()
}

// handleSpinError 本次免费转动被放弃，不计次数，稍后重试
func (f *FreeSpins) handleSpinError(p event.SpinErrorPayload) {
	if !f.machine.Is(FreeSpinsActive) || p.SpinID != f.spinID {
		return
	}
	f.spinID = ""
	f.schedule()
}

// exit 退场：总奖金提示，背景还原，清除免费旋转状态
func (f *FreeSpins) exit() {
	if err := f.machine.Trigger("exit"); err != nil {
		f.logger.Error("退出免费旋转失败", zap.Error(err))
		return
	}
	f.cancelPending()
	f.ctx.Store.Update(func(gs *state.GameState) {
		gs.IsFeatureTransitioning = true
	})
	f.ctx.Bus.Publish(event.NotificationShow, event.NotificationPayload{
		Level:   "info",
		Message: fmt.Sprintf("免费旋转结束，共赢得 %d", f.totalWin),
	})
	payload := event.FreeSpinsEndedPayload{TotalWin: f.totalWin, SpinsPlayed: f.played}
	f.play([]string{animation.CueFreeSpinsExit, animation.CueBackgroundRevert}, payload, func() {
		f.finishExit(payload)
	})
}

func (f *FreeSpins) finishExit(payload event.FreeSpinsEndedPayload) {
	if err := f.machine.Trigger("exited"); err != nil {
		f.logger.Error("免费旋转退场失败", zap.Error(err))
		return
	}
	f.remaining = 0
	f.ctx.Store.Update(func(gs *state.GameState) {
		gs.IsInFreeSpins = false
		gs.IsFeatureTransitioning = false
		gs.FreeSpinsRemaining = 0
		gs.TotalFreeSpinsWin = 0
	})
	f.ctx.Bus.Publish(event.FreeSpinsEnded, payload)
	f.logger.Info("免费旋转结束", zap.Int64("total_win", payload.TotalWin), zap.Int("played", payload.SpinsPlayed))
}

// play 在循环外播放动画，结束后回到循环执行 then
func (f *FreeSpins) play(cues []string, data interface{}, then func()) {
	timeout := f.ctx.Config.Animation.CueTimeout
	f.ctx.Sched.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if f.ctx.Animator != nil {
			if err := f.ctx.Animator.PlayAll(ctx, cues, data); err != nil {
				f.logger.Warn("免费旋转动画存在失败", zap.Strings("cues", cues), zap.Error(err))
			}
		}
		f.ctx.Sched.Post(then)
	})
}

func (f *FreeSpins) delay() time.Duration {
	turbo := f.ctx.Store.Snapshot().IsTurboMode
	return f.ctx.Config.Spin.Scaled(f.ctx.Config.FreeSpins.SpinDelay, turbo)
}

func (f *FreeSpins) schedule() {
	f.cancelPending()
	f.pending = f.ctx.Sched.After(f.delay(), f.wake)
}

// wake 延迟结束后重新校验，流水线忙时稍后重试
func (f *FreeSpins) wake() {
	f.pending = nil
	if !f.machine.Is(FreeSpinsActive) || f.remaining <= 0 {
		return
	}
	if !f.ctx.Store.Snapshot().ReadyToSpin() {
		f.logger.Debug("转动流水线忙，稍后重试")
		f.schedule()
		return
	}
	id, err := f.ctx.Spinner.RequestSpin(event.SourceFreeSpin)
	if err != nil {
		f.logger.Error("免费转动请求失败，稍后重试", zap.Error(err))
		f.schedule()
		return
	}
	f.spinID = id
}

func (f *FreeSpins) cancelPending() {
	if f.pending != nil {
		f.pending.Cancel()
		f.pending = nil
	}
}
