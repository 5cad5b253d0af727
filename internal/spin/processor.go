package spin

import (
	"github.com/wfunc/slot-client/internal/event"
	"github.com/wfunc/slot-client/internal/metrics"
	"github.com/wfunc/slot-client/internal/outcome"
	"github.com/wfunc/slot-client/internal/state"
	"go.uber.org/zap"
)

// StopSetter 卷轴协调器的停止位置入口
type StopSetter interface {
	SetReelStopPosition(index, position int) error
}

// Processor 结果处理器：写入停止位置，结算余额并分发表现事件
type Processor struct {
	store  *state.Store
	bus    *event.Bus
	reels  StopSetter
	logger *zap.Logger
	unsub  func()
}

// NewProcessor 创建结果处理器并订阅结算请求
func NewProcessor(store *state.Store, bus *event.Bus, reels StopSetter, logger *zap.Logger) *Processor {
	p := &Processor{
		store:  store,
		bus:    bus,
		reels:  reels,
		logger: logger.With(zap.String("component", "result_processor")),
	}
	p.unsub = event.On(bus, event.SpinEvaluate, p.handleEvaluate)
	return p
}

// Close 取消订阅
func (p *Processor) Close() {
	if p.unsub != nil {
		p.unsub()
		p.unsub = nil
	}
}

// AssignStops 把 stopPositions[i] 写入第 i 个卷轴
func (p *Processor) AssignStops(out *outcome.SpinOutcome) {
	for i, pos := range out.StopPositions {
		if err := p.reels.SetReelStopPosition(i, pos); err != nil {
			p.logger.Error("写入停止位置失败", zap.Int("reel", i), zap.Int("position", pos), zap.Error(err))
		}
	}
}

func (p *Processor) handleEvaluate(payload event.SpinEvaluatePayload) {
	out := payload.Outcome
	if out == nil {
		p.logger.Error("结算请求缺少转动结果", zap.String("spin_id", payload.SpinID))
		return
	}
	p.Process(payload.SpinID, payload.Source, out)
}

// Process 结算一次转动。余额以客户端计算为准：扣注后余额 + totalWin
func (p *Processor) Process(spinID string, source event.SpinSource, out *outcome.SpinOutcome) {
	lines := append([]outcome.WinLine(nil), out.WinningLines...)

	var totalBet int64
	p.store.Update(func(gs *state.GameState) {
		gs.Balance += out.TotalWin
		gs.LastTotalWin = out.TotalWin
		gs.WinningLinesInfo = lines
		totalBet = gs.CurrentTotalBet
	})
	if out.TotalWin > 0 {
		metrics.WinAmountTotal.Add(float64(out.TotalWin))
	}
	p.logger.Info("转动结算",
		zap.String("spin_id", spinID),
		zap.String("source", string(source)),
		zap.Int64("total_win", out.TotalWin),
		zap.Int("lines", len(lines)),
		zap.Int("scatters", out.ScatterCount))

	if len(lines) > 0 {
		p.bus.Publish(event.PaylinesShow, event.PaylinesShowPayload{SpinID: spinID, Lines: lines})
	}

	p.bus.Publish(event.WinValidated, event.WinValidatedPayload{
		SpinID:           spinID,
		TotalWin:         out.TotalWin,
		WinningLines:     lines,
		SymbolsToAnimate: append([]outcome.Cell(nil), out.SymbolsToAnimate...),
		CurrentTotalBet:  totalBet,
	})

	if awarded := out.FreeSpinsAwarded(); awarded > 0 {
		metrics.FreeSpinsTriggered.Inc()
		p.bus.Publish(event.FreeSpinsTrigger, event.FreeSpinsTriggerPayload{
			SpinID:       spinID,
			SpinsAwarded: awarded,
			ScatterCount: out.ScatterCount,
		})
	}

	// 不等待动画完成
	p.bus.Publish(event.EvaluationComplete, event.EvaluationCompletePayload{
		SpinID:   spinID,
		Source:   source,
		TotalWin: out.TotalWin,
	})
}
