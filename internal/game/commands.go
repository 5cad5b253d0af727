package game

import (
	"github.com/wfunc/slot-client/internal/config"
	"github.com/wfunc/slot-client/internal/errors"
	"github.com/wfunc/slot-client/internal/event"
	"github.com/wfunc/slot-client/internal/state"
	"go.uber.org/zap"
)

// 以下命令必须在游戏循环协程上调用（测试中直接调用，服务中通过 Do）

// Spin 用户发起转动
func (g *Game) Spin() (string, error) {
	if g.autoplay.Running() {
		return "", errors.New(errors.ErrAutoplayNotAllowed, "自动旋转进行中")
	}
	return g.orch.RequestSpin(event.SourceUser)
}

// SetBetPerLine 修改单线投注，转动或特性进行中不允许修改
func (g *Game) SetBetPerLine(bet int64) error {
	b := g.cfg.Bet
	if bet < b.MinBetPerLine || bet > b.MaxBetPerLine {
		return errors.Newf(errors.ErrInvalidBet, "单线投注 %d 超出范围 [%d,%d]", bet, b.MinBetPerLine, b.MaxBetPerLine)
	}
	s := g.store.Snapshot()
	switch {
	case !s.ReadyToSpin():
		return errors.New(errors.ErrSpinInProgress, "转动中不能修改投注")
	case s.IsInFreeSpins:
		return errors.New(errors.ErrInFreeSpins, "免费旋转中不能修改投注")
	case s.IsAutoplaying:
		return errors.New(errors.ErrAutoplayNotAllowed, "自动旋转中不能修改投注")
	}

	g.store.Update(func(gs *state.GameState) {
		gs.CurrentBetPerLine = bet
		gs.CurrentTotalBet = bet * int64(gs.Lines)
	})
	g.logger.Info("修改投注", zap.Int64("bet_per_line", bet))
	return nil
}

// SetTurbo 开关加速模式，下一次安排停止时生效
func (g *Game) SetTurbo(enabled bool) {
	g.store.Update(func(gs *state.GameState) {
		gs.IsTurboMode = enabled
	})
}

// StartAutoplay 开始自动旋转
func (g *Game) StartAutoplay(spins int) error {
	return g.autoplay.Start(spins)
}

// StopAutoplay 请求停止自动旋转
func (g *Game) StopAutoplay() {
	g.bus.Publish(event.AutoplayRequestStop, event.AutoplayStopRequestPayload{Reason: "user"})
}

// ApplyConfig 热更新转动时序、自动旋转、免费旋转和动画超时。
// 投注、卷轴、赔付线和循环间隔需重启生效
func (g *Game) ApplyConfig(cfg config.GameConfig) {
	g.orch.SetTiming(cfg.Spin)
	g.registry.SetConfig(cfg)
	g.anim.SetCueTimeout(cfg.Animation.CueTimeout)
	g.logger.Info("游戏配置已更新",
		zap.Duration("base_duration", cfg.Spin.BaseDuration),
		zap.Duration("autoplay_delay", cfg.Autoplay.Delay),
		zap.Duration("free_spin_delay", cfg.FreeSpins.SpinDelay))
}

// SetDebug 开关调试模式，关闭时同时关闭强制中奖
func (g *Game) SetDebug(enabled bool) {
	g.store.Update(func(gs *state.GameState) {
		gs.IsDebugMode = enabled
		if !enabled {
			gs.ForceWin = false
		}
	})
	g.logger.Info("调试模式", zap.Bool("enabled", enabled))
}

// SetForceWin 强制下一次转动中奖，仅调试模式可用
func (g *Game) SetForceWin(enabled bool) error {
	if !g.store.Snapshot().IsDebugMode {
		return errors.New(errors.ErrInvalidState, "需要开启调试模式")
	}
	g.store.Update(func(gs *state.GameState) {
		gs.ForceWin = enabled
	})
	return nil
}

// SetOutcomeFailureRate 模拟结果服务故障注入，仅调试模式且使用模拟服务时可用
func (g *Game) SetOutcomeFailureRate(rate float64) error {
	if !g.store.Snapshot().IsDebugMode {
		return errors.New(errors.ErrInvalidState, "需要开启调试模式")
	}
	if g.mock == nil {
		return errors.New(errors.ErrNotImplemented, "当前结果服务不支持故障注入")
	}
	if rate < 0 || rate > 1 {
		return errors.Newf(errors.ErrInvalidParam, "故障概率 %v 超出范围 [0,1]", rate)
	}
	g.mock.SetFailureRate(rate)
	return nil
}

// State 状态快照，任意协程可调用
func (g *Game) State() state.GameState {
	return g.store.Snapshot()
}

// Status 状态快照加上各组件的阶段
func (g *Game) Status() Status {
	return Status{
		State:          g.store.Snapshot(),
		Phase:          string(g.orch.Phase()),
		SpinID:         g.orch.CurrentSpinID(),
		Autoplay:       g.autoplay.Running(),
		FreeSpinsState: string(g.freeSpins.State()),
		Reels:          g.Frame().Reels,
	}
}
