package feature

import (
	"time"

	"github.com/wfunc/slot-client/internal/errors"
	"github.com/wfunc/slot-client/internal/event"
	"github.com/wfunc/slot-client/internal/fsm"
	"github.com/wfunc/slot-client/internal/scheduler"
	"github.com/wfunc/slot-client/internal/state"
	"go.uber.org/zap"
)

// AutoplayName 自动旋转插件名
const AutoplayName = "autoplay"

// 自动旋转状态
const (
	AutoplayInactive fsm.State = "inactive"
	AutoplayRunning  fsm.State = "running"
)

// 停止原因
const (
	StopReasonCompleted    = "completed"
	StopReasonUser         = "user"
	StopReasonFreeSpins    = "free_spins"
	StopReasonInsufficient = "insufficient_balance"
	StopReasonSpinError    = "spin_error"
	StopReasonRejected     = "rejected"
)

// Autoplay 自动旋转：每次中奖动画结束后扣减剩余次数并安排下一次转动
type Autoplay struct {
	ctx     *Context
	machine *fsm.Machine
	logger  *zap.Logger

	pending *scheduler.Task
	spinID  string // 本插件发起、等待动画结束的转动
	played  int
}

// NewAutoplay 创建自动旋转插件
func NewAutoplay() *Autoplay {
	return &Autoplay{}
}

// Name 实现Plugin接口
func (a *Autoplay) Name() string { return AutoplayName }

// Events 实现Plugin接口
func (a *Autoplay) Events() []event.Name {
	return []event.Name{
		event.WinSequenceComplete,
		event.AutoplayRequestStop,
		event.FreeSpinsTrigger,
		event.SpinError,
	}
}

// Init 实现Plugin接口
func (a *Autoplay) Init(ctx *Context) error {
	a.ctx = ctx
	a.logger = ctx.Logger.With(zap.String("component", "autoplay"))
	a.machine = fsm.New(AutoplayName, AutoplayInactive, a.logger).Add(
		fsm.Transition{From: AutoplayInactive, Event: "start", To: AutoplayRunning},
		fsm.Transition{From: AutoplayRunning, Event: "stop", To: AutoplayInactive},
	)
	return nil
}

// Running 是否在自动旋转中
func (a *Autoplay) Running() bool {
	return a.machine.Is(AutoplayRunning)
}

// Start 开始自动旋转并立即发起第一次转动
func (a *Autoplay) Start(spins int) error {
	if a.Running() {
		return errors.New(errors.ErrAutoplayNotAllowed, "自动旋转已在运行")
	}
	if spins <= 0 || spins > a.ctx.Config.Autoplay.MaxSpins {
		return errors.Newf(errors.ErrInvalidParam, "自动旋转次数 %d 超出范围 [1,%d]", spins, a.ctx.Config.Autoplay.MaxSpins)
	}

	s := a.ctx.Store.Snapshot()
	switch {
	case !s.ReadyToSpin():
		return errors.New(errors.ErrAutoplayNotAllowed, "转动进行中")
	case s.IsInFreeSpins:
		return errors.New(errors.ErrAutoplayNotAllowed, "免费旋转中")
	case !s.CanAfford():
		return errors.New(errors.ErrAutoplayNotAllowed, "余额不足")
	}

	if err := a.machine.Trigger("start"); err != nil {
		return err
	}
	a.played = 0
	a.ctx.Store.Update(func(gs *state.GameState) {
		gs.IsAutoplaying = true
		gs.AutoplaySpinsRemaining = spins
	})
	a.ctx.Bus.Publish(event.AutoplayStarted, event.AutoplayStartedPayload{Spins: spins})
	a.logger.Info("开始自动旋转", zap.Int("spins", spins))

	return a.spin()
}

// Stop 停止自动旋转，取消等待中的下一次转动
func (a *Autoplay) Stop(reason string) {
	if !a.Running() {
		return
	}
	a.cancelPending()
	a.spinID = ""
	if err := a.machine.Trigger("stop"); err != nil {
		a.logger.Error("停止自动旋转失败", zap.Error(err))
		return
	}
	a.ctx.Store.Update(func(gs *state.GameState) {
		gs.IsAutoplaying = false
		gs.AutoplaySpinsRemaining = 0
	})
	a.ctx.Bus.Publish(event.AutoplayStopped, event.AutoplayStoppedPayload{Reason: reason, SpinsPlayed: a.played})
	a.ctx.Bus.Publish(event.NotificationShow, event.NotificationPayload{
		Level:   "info",
		Message: "自动旋转已停止",
	})
	a.logger.Info("自动旋转停止", zap.String("reason", reason), zap.Int("played", a.played))
}

// OnEvent 实现Plugin接口
func (a *Autoplay) OnEvent(e event.Event) {
	switch e.Name {
	case event.WinSequenceComplete:
		if p, ok := decode[event.SequenceCompletePayload](a.logger, e); ok {
			a.handleSequenceComplete(p)
		}
	case event.AutoplayRequestStop:
		reason := StopReasonUser
		if p, ok := decode[event.AutoplayStopRequestPayload](a.logger, e); ok && p.Reason != "" {
			reason = p.Reason
		}
		a.Stop(reason)
	case event.FreeSpinsTrigger:
		a.Stop(StopReasonFreeSpins)
	case event.SpinError:
		if p, ok := decode[event.SpinErrorPayload](a.logger, e); ok && p.SpinID == a.spinID && a.Running() {
			a.Stop(StopReasonSpinError)
		}
	}
}

// Destroy 实现Plugin接口
func (a *Autoplay) Destroy() {
	a.cancelPending()
}

// handleSequenceComplete 只为本插件发起的转动扣减一次
func (a *Autoplay) handleSequenceComplete(p event.SequenceCompletePayload) {
	if !a.Running() || a.spinID == "" || p.SpinID != a.spinID {
		return
	}
	a.spinID = ""
	a.played++

	var remaining int
	a.ctx.Store.Update(func(gs *state.GameState) {
		if gs.AutoplaySpinsRemaining > 0 {
			gs.AutoplaySpinsRemaining--
		}
		remaining = gs.AutoplaySpinsRemaining
	})

	if remaining <= 0 {
		a.Stop(StopReasonCompleted)
		return
	}
	if reason, ok := a.canContinue(); !ok {
		a.Stop(reason)
		return
	}
	a.schedule()
}

// canContinue 免费旋转或余额不足时不能继续
func (a *Autoplay) canContinue() (string, bool) {
	s := a.ctx.Store.Snapshot()
	switch {
	case s.IsInFreeSpins:
		return StopReasonFreeSpins, false
	case !s.CanAfford():
		return StopReasonInsufficient, false
	}
	return "", true
}

func (a *Autoplay) delay() time.Duration {
	turbo := a.ctx.Store.Snapshot().IsTurboMode
	return a.ctx.Config.Spin.Scaled(a.ctx.Config.Autoplay.Delay, turbo)
}

func (a *Autoplay) schedule() {
	a.cancelPending()
	a.pending = a.ctx.Sched.After(a.delay(), a.wake)
}

// wake 延迟结束后重新校验状态，转动流水线忙时稍后重试
func (a *Autoplay) wake() {
	a.pending = nil
	if !a.Running() {
		return
	}
	if reason, ok := a.canContinue(); !ok {
		a.Stop(reason)
		return
	}
	if !a.ctx.Store.Snapshot().ReadyToSpin() {
		a.logger.Debug("转动流水线忙，稍后重试")
		a.schedule()
		return
	}
	_ = a.spin()
}

func (a *Autoplay) spin() error {
	id, err := a.ctx.Spinner.RequestSpin(event.SourceAutoplay)
	if err != nil {
		a.logger.Warn("自动旋转请求被拒绝", zap.Error(err))
		reason := StopReasonRejected
		if errors.Is(err, errors.ErrInsufficientBalance) {
			reason = StopReasonInsufficient
		}
		a.Stop(reason)
		return err
	}
	a.spinID = id
	return nil
}

func (a *Autoplay) cancelPending() {
	if a.pending != nil {
		a.pending.Cancel()
		a.pending = nil
	}
}
