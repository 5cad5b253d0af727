package spin

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/slot-client/internal/config"
	"github.com/wfunc/slot-client/internal/errors"
	"github.com/wfunc/slot-client/internal/event"
	"github.com/wfunc/slot-client/internal/fsm"
	"github.com/wfunc/slot-client/internal/metrics"
	"github.com/wfunc/slot-client/internal/outcome"
	"github.com/wfunc/slot-client/internal/scheduler"
	"github.com/wfunc/slot-client/internal/state"
	"go.uber.org/zap"
)

// 转动流水线阶段
const (
	PhaseIdle            fsm.State = "idle"
	PhaseAwaitingOutcome fsm.State = "awaiting_outcome"
	PhaseStopping        fsm.State = "stopping"
	PhaseEvaluating      fsm.State = "evaluating"
)

const (
	evRequest = "request"
	evOutcome = "outcome"
	evStopped = "stopped"
	evDone    = "done"
	evAbort   = "abort"
)

// 拒绝原因
const (
	ReasonSpinning          = "spinning"
	ReasonTransitioning     = "transitioning"
	ReasonFeatureTransition = "feature_transitioning"
	ReasonInFreeSpins       = "in_free_spins"
	ReasonNotInFreeSpins    = "not_in_free_spins"
	ReasonInsufficientFunds = "insufficient_funds"
	ReasonPipelineBusy      = "pipeline_busy"
)

// Reels 编排器需要的卷轴能力
type Reels interface {
	StartAll()
	ScheduleStop(index int, at time.Duration)
	AllStopped() bool
	AnyActive() bool
	HaltAll(now time.Duration)
	StripLens() []int
	Len() int
	OnReelStopped(fn func(index, position int))
}

// StopAssigner 把结果中的停止位置写入卷轴
type StopAssigner interface {
	AssignStops(out *outcome.SpinOutcome)
}

// Orchestrator 转动编排器，同一时间只允许一条转动流水线
type Orchestrator struct {
	store    *state.Store
	bus      *event.Bus
	reels    Reels
	assigner StopAssigner
	provider outcome.Provider
	sched    *scheduler.Scheduler
	timing   config.SpinConfig
	logger   *zap.Logger
	machine  *fsm.Machine

	ctx       context.Context
	spinID    string
	source    event.SpinSource
	startedAt time.Duration
	debited   int64
	pending   *outcome.SpinOutcome
}

// NewOrchestrator 创建编排器
func NewOrchestrator(
	store *state.Store,
	bus *event.Bus,
	reels Reels,
	assigner StopAssigner,
	provider outcome.Provider,
	sched *scheduler.Scheduler,
	timing config.SpinConfig,
	logger *zap.Logger,
) *Orchestrator {
	logger = logger.With(zap.String("component", "spin_orchestrator"))
	o := &Orchestrator{
		store:    store,
		bus:      bus,
		reels:    reels,
		assigner: assigner,
		provider: provider,
		sched:    sched,
		timing:   timing,
		logger:   logger,
		ctx:      context.Background(),
	}
	o.machine = fsm.New("spin", PhaseIdle, logger).Add(
		fsm.Transition{From: PhaseIdle, Event: evRequest, To: PhaseAwaitingOutcome},
		fsm.Transition{From: PhaseAwaitingOutcome, Event: evOutcome, To: PhaseStopping},
		fsm.Transition{From: PhaseAwaitingOutcome, Event: evAbort, To: PhaseIdle},
		fsm.Transition{From: PhaseStopping, Event: evStopped, To: PhaseEvaluating},
		fsm.Transition{From: PhaseEvaluating, Event: evDone, To: PhaseIdle},
	)
	reels.OnReelStopped(o.handleReelStopped)
	return o
}

// SetContext 设置结果请求使用的父context
func (o *Orchestrator) SetContext(ctx context.Context) {
	o.ctx = ctx
}

// SetTiming 热更新转动时序，下一次转动生效
func (o *Orchestrator) SetTiming(timing config.SpinConfig) {
	o.timing = timing
}

// Phase 当前阶段
func (o *Orchestrator) Phase() fsm.State {
	return o.machine.Current()
}

// CurrentSpinID 正在进行的转动ID
func (o *Orchestrator) CurrentSpinID() string {
	return o.spinID
}

// RequestSpin 发起一次转动，被拒绝时返回 *errors.AppError 且不修改状态
func (o *Orchestrator) RequestSpin(source event.SpinSource) (string, error) {
	s := o.store.Snapshot()
	if err := o.guard(s, source); err != nil {
		reason := err.Details
		metrics.SpinRejections.WithLabelValues(reason).Inc()
		o.logger.Info("拒绝转动请求",
			zap.String("source", string(source)),
			zap.String("reason", reason),
			zap.Int64("balance", s.Balance),
			zap.Int64("total_bet", s.CurrentTotalBet))
		o.bus.Publish(event.SpinRejected, event.SpinRejectedPayload{Source: source, Reason: reason})
		if err.Code == errors.ErrInsufficientBalance {
			o.bus.Publish(event.NotificationShow, event.NotificationPayload{
				Level:   "warn",
				Message: "余额不足",
			})
		}
		return "", err
	}

	if err := o.machine.Trigger(evRequest); err != nil {
		metrics.SpinRejections.WithLabelValues(ReasonPipelineBusy).Inc()
		o.logger.Warn("转动流水线忙", zap.String("phase", string(o.Phase())), zap.Error(err))
		return "", errors.New(errors.ErrSpinInProgress, ReasonPipelineBusy)
	}

	// 先打断上一轮的中奖表现，再修改状态
	o.bus.Publish(event.AnimationsInterrupt, event.InterruptPayload{Reason: "new_spin"})
	o.bus.Publish(event.PaylinesClear, event.PaylinesClearPayload{})

	o.spinID = uuid.NewString()
	o.source = source
	o.pending = nil
	o.debited = 0
	if source != event.SourceFreeSpin {
		o.debited = s.CurrentTotalBet
	}

	debit := o.debited
	o.store.Update(func(gs *state.GameState) {
		gs.IsSpinning = true
		gs.Balance -= debit
		gs.LastTotalWin = 0
	})

	o.startedAt = o.sched.Now()
	o.reels.StartAll()

	metrics.SpinsTotal.WithLabelValues(string(source)).Inc()
	o.bus.Publish(event.SpinStarted, event.SpinStartedPayload{
		SpinID:   o.spinID,
		Source:   source,
		TotalBet: debit,
		Turbo:    s.IsTurboMode,
	})
	o.logger.Info("开始转动",
		zap.String("spin_id", o.spinID),
		zap.String("source", string(source)),
		zap.Int64("debited", debit))

	o.fetch(o.spinID, outcome.Request{
		SpinID:     o.spinID,
		BetPerLine: s.CurrentBetPerLine,
		Lines:      s.Lines,
		TotalBet:   s.CurrentTotalBet,
		ForceWin:   s.ForceWin,
		FreeSpin:   source == event.SourceFreeSpin,
	})
	return o.spinID, nil
}

// guard 检查转动前置条件
func (o *Orchestrator) guard(s state.GameState, source event.SpinSource) *errors.AppError {
	switch {
	case s.IsSpinning:
		return errors.New(errors.ErrSpinInProgress, ReasonSpinning)
	case s.IsTransitioning:
		return errors.New(errors.ErrSpinInProgress, ReasonTransitioning)
	case s.IsFeatureTransitioning:
		return errors.New(errors.ErrFeatureTransition, ReasonFeatureTransition)
	}

	// 免费旋转由免费旋转插件发起，不扣费
	if source == event.SourceFreeSpin {
		if !s.IsInFreeSpins {
			return errors.New(errors.ErrNotInFreeSpins, ReasonNotInFreeSpins)
		}
		return nil
	}
	if s.IsInFreeSpins {
		return errors.New(errors.ErrInFreeSpins, ReasonInFreeSpins)
	}
	if !s.CanAfford() {
		return errors.New(errors.ErrInsufficientBalance, ReasonInsufficientFunds)
	}
	return nil
}

// fetch 在循环外请求结果，完成后投递回循环
func (o *Orchestrator) fetch(spinID string, req outcome.Request) {
	ctx := o.ctx
	timeout := o.timing.OutcomeTimeout
	lens := o.reels.StripLens()

	o.sched.Go(func() {
		cctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		out, err := o.provider.Spin(cctx, req)
		if err == nil {
			err = outcome.Validate(out, lens)
		}
		if err != nil {
			code := errors.ErrOutcomeFetch
			if cctx.Err() == context.DeadlineExceeded {
				code = errors.ErrOutcomeTimeout
			}
			err = errors.Wrap(err, code)
		}

		o.sched.Post(func() {
			if err != nil {
				o.handleFailure(spinID, err)
				return
			}
			o.handleOutcome(spinID, out)
		})
	})
}

// handleOutcome 结果到达后安排每个卷轴的错峰停止
func (o *Orchestrator) handleOutcome(spinID string, out *outcome.SpinOutcome) {
	if spinID != o.spinID || !o.machine.Is(PhaseAwaitingOutcome) {
		o.logger.Warn("忽略过期的转动结果", zap.String("spin_id", spinID), zap.String("current", o.spinID))
		return
	}
	if err := o.machine.Trigger(evOutcome); err != nil {
		o.logger.Error("处理转动结果失败", zap.Error(err))
		return
	}
	o.pending = out

	// 最终位置必须在 stopAt-StopTween 之前写入
	o.assigner.AssignStops(out)

	turbo := o.store.Snapshot().IsTurboMode
	base := o.timing.Scaled(o.timing.BaseDuration, turbo)
	stagger := o.timing.Scaled(o.timing.Stagger, turbo)
	for i := 0; i < o.reels.Len(); i++ {
		at := o.startedAt + base + time.Duration(i)*stagger
		o.reels.ScheduleStop(i, at)
	}
	o.logger.Debug("安排停止",
		zap.String("spin_id", spinID),
		zap.Ints("stops", out.StopPositions),
		zap.Duration("base", base),
		zap.Duration("stagger", stagger),
		zap.Bool("turbo", turbo))
}

// handleFailure 结果获取失败：退还投注，放弃本次转动，不做结算
func (o *Orchestrator) handleFailure(spinID string, err error) {
	if spinID != o.spinID || !o.machine.Is(PhaseAwaitingOutcome) {
		o.logger.Warn("忽略过期的转动错误", zap.String("spin_id", spinID), zap.Error(err))
		return
	}
	metrics.OutcomeErrors.Inc()
	o.logger.Error("获取转动结果失败",
		zap.String("spin_id", spinID),
		zap.Int64("refund", o.debited),
		zap.Error(err))

	refund := o.debited
	o.debited = 0
	o.reels.HaltAll(o.sched.Now())
	o.store.Update(func(gs *state.GameState) {
		gs.Balance += refund
		gs.IsSpinning = false
	})
	if terr := o.machine.Trigger(evAbort); terr != nil {
		o.logger.Error("放弃转动失败", zap.Error(terr))
		o.machine.Reset(PhaseIdle)
	}

	o.bus.Publish(event.SpinError, event.SpinErrorPayload{SpinID: spinID, Error: err.Error(), Refunded: refund})
	o.bus.Publish(event.NotificationShow, event.NotificationPayload{
		Level:   "error",
		Message: "网络异常，本次投注已退还",
	})
}

func (o *Orchestrator) handleReelStopped(index, position int) {
	o.bus.Publish(event.ReelStopped, event.ReelStoppedPayload{ReelIndex: index, Position: position})
}

// Poll 每帧由游戏循环调用，所有卷轴都停稳后进入结算
func (o *Orchestrator) Poll() {
	if !o.machine.Is(PhaseStopping) {
		return
	}
	if o.reels.AnyActive() || !o.reels.AllStopped() {
		return
	}
	o.handleSpinEnd()
}

// handleSpinEnd 转动结束：清除转动标记，请求结算，最后清除过渡标记
func (o *Orchestrator) handleSpinEnd() {
	if err := o.machine.Trigger(evStopped); err != nil {
		o.logger.Error("转动结束状态错误", zap.Error(err))
		return
	}
	spinID := o.spinID
	out := o.pending
	o.pending = nil

	o.store.Update(func(gs *state.GameState) {
		gs.IsSpinning = false
		gs.IsTransitioning = true
	})
	o.bus.Publish(event.ReelsStoppedVisually, event.ReelsStoppedPayload{SpinID: spinID})
	o.bus.Publish(event.SpinEvaluate, event.SpinEvaluatePayload{SpinID: spinID, Source: o.source, Outcome: out})

	// 先回到 idle，清除过渡标记时的订阅者才能立即发起下一次转动
	if err := o.machine.Trigger(evDone); err != nil {
		o.logger.Error("结算完成状态错误", zap.Error(err))
		o.machine.Reset(PhaseIdle)
	}
	o.store.Update(func(gs *state.GameState) {
		gs.IsTransitioning = false
	})
	o.logger.Info("转动结束", zap.String("spin_id", spinID))
}
