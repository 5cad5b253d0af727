package outcome

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/wfunc/slot-client/internal/config"
	"github.com/wfunc/slot-client/internal/errors"
	"go.uber.org/zap"
)

// forceWinAttempts 强制中奖时随机搜索的最大次数
const forceWinAttempts = 200

// MockProvider 模拟结果服务，本地随机生成停止位置并计算中奖
type MockProvider struct {
	mu          sync.Mutex
	strips      [][]string
	rows        int
	evaluator   *Evaluator
	rng         *rand.Rand
	latency     time.Duration
	failureRate float64
	logger      *zap.Logger
}

// NewMockProvider 创建模拟结果服务
func NewMockProvider(cfg config.GameConfig, logger *zap.Logger) *MockProvider {
	seed := cfg.Mock.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	wild := cfg.Mock.WildSymbol
	if wild == "" {
		wild = "WILD"
	}

	return &MockProvider{
		strips:      cfg.Reels.Strips,
		rows:        cfg.Reels.VisibleRows,
		evaluator:   NewEvaluator(cfg, wild),
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		latency:     cfg.Mock.Latency,
		failureRate: cfg.Mock.FailureRate,
		logger:      logger.With(zap.String("component", "mock_provider")),
	}
}

// NewEvaluator 根据游戏配置创建中奖计算器
func NewEvaluator(cfg config.GameConfig, wild string) *Evaluator {
	table := make(Paytable)
	for _, p := range cfg.Paytable {
		if table[p.Symbol] == nil {
			table[p.Symbol] = make(map[int]float64)
		}
		table[p.Symbol][p.Count] = p.Multiplier
	}
	return &Evaluator{
		Paylines:      cfg.Paylines,
		Paytable:      table,
		WildSymbol:    wild,
		ScatterSymbol: cfg.FreeSpins.ScatterSymbol,
		Awards:        cfg.FreeSpins.Awards,
	}
}

// SetFailureRate 设置故障注入概率（调试用）
func (p *MockProvider) SetFailureRate(rate float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failureRate = rate
}

// SetLatency 设置模拟延迟
func (p *MockProvider) SetLatency(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latency = d
}

// Spin 实现Provider接口
func (p *MockProvider) Spin(ctx context.Context, req Request) (*SpinOutcome, error) {
	p.mu.Lock()
	latency := p.latency
	fail := p.failureRate > 0 && p.rng.Float64() < p.failureRate
	p.mu.Unlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), errors.ErrOutcomeTimeout, req.SpinID)
		case <-timer.C:
		}
	}

	if fail {
		p.logger.Warn("模拟结果服务故障", zap.String("spin_id", req.SpinID))
		return nil, errors.New(errors.ErrOutcomeFetch, "模拟故障", req.SpinID)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	out := p.generate(req.BetPerLine, req.ForceWin)
	out.SpinID = req.SpinID

	p.logger.Debug("生成转动结果",
		zap.String("spin_id", req.SpinID),
		zap.Ints("stops", out.StopPositions),
		zap.Int64("total_win", out.TotalWin),
		zap.Int("scatters", out.ScatterCount),
	)
	return out, nil
}

// generate 随机停止位置，forceWin时搜索一个中奖组合
func (p *MockProvider) generate(betPerLine int64, forceWin bool) *SpinOutcome {
	attempts := 1
	if forceWin {
		attempts = forceWinAttempts
	}

	var out *SpinOutcome
	var stops []int
	for i := 0; i < attempts; i++ {
		stops = p.randomStops()
		out = p.evaluator.Evaluate(Window(p.strips, stops, p.rows), betPerLine)
		if !forceWin || out.TotalWin > 0 {
			out.StopPositions = stops
			return out
		}
	}

	// 随机搜索失败，直接对齐第一条支付线
	if aligned, ok := p.alignFirstLine(); ok {
		stops = aligned
		out = p.evaluator.Evaluate(Window(p.strips, stops, p.rows), betPerLine)
	}
	out.StopPositions = stops
	return out
}

func (p *MockProvider) randomStops() []int {
	stops := make([]int, len(p.strips))
	for i, strip := range p.strips {
		if len(strip) > 0 {
			stops[i] = p.rng.IntN(len(strip))
		}
	}
	return stops
}

// alignFirstLine 找一个在每个卷轴上都出现的可赔付符号，把它放到第一条支付线上
func (p *MockProvider) alignFirstLine() ([]int, bool) {
	if len(p.evaluator.Paylines) == 0 {
		return nil, false
	}
	rows := p.evaluator.Paylines[0]

	for symbol := range p.evaluator.Paytable {
		stops := make([]int, len(p.strips))
		found := true
		for i, strip := range p.strips {
			idx := indexOf(strip, symbol)
			if idx < 0 || i >= len(rows) {
				found = false
				break
			}
			stops[i] = ((idx-rows[i])%len(strip) + len(strip)) % len(strip)
		}
		if found {
			return stops, true
		}
	}
	return nil, false
}

func indexOf(strip []string, symbol string) int {
	for i, s := range strip {
		if s == symbol {
			return i
		}
	}
	return -1
}
