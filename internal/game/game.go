package game

import (
	"context"
	"time"

	"github.com/wfunc/slot-client/internal/animation"
	"github.com/wfunc/slot-client/internal/config"
	"github.com/wfunc/slot-client/internal/errors"
	"github.com/wfunc/slot-client/internal/event"
	"github.com/wfunc/slot-client/internal/feature"
	"github.com/wfunc/slot-client/internal/outcome"
	"github.com/wfunc/slot-client/internal/reel"
	"github.com/wfunc/slot-client/internal/scheduler"
	"github.com/wfunc/slot-client/internal/spin"
	"github.com/wfunc/slot-client/internal/state"
	"go.uber.org/zap"
)

type options struct {
	provider   outcome.Provider
	surface    reel.Surface
	schedOpts  []scheduler.Option
	initial    *state.GameState
	commandBuf int
}

// Option 游戏选项
type Option func(*options)

// WithProvider 使用指定的结果服务，默认使用模拟结果服务
func WithProvider(p outcome.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithSurface 下游表现层
func WithSurface(s reel.Surface) Option {
	return func(o *options) { o.surface = s }
}

// WithSchedulerOptions 调度器选项
func WithSchedulerOptions(opts ...scheduler.Option) Option {
	return func(o *options) { o.schedOpts = append(o.schedOpts, opts...) }
}

// WithInitialState 覆盖由配置推导的初始状态
func WithInitialState(s state.GameState) Option {
	return func(o *options) { o.initial = &s }
}

// Game 组装所有核心组件，并驱动单线程游戏循环
type Game struct {
	cfg    config.GameConfig
	logger *zap.Logger

	bus       *event.Bus
	store     *state.Store
	sched     *scheduler.Scheduler
	surface   *frameSurface
	reels     *reel.Coordinator
	mock      *outcome.MockProvider
	processor *spin.Processor
	orch      *spin.Orchestrator
	anim      *animation.Controller
	registry  *feature.Registry
	autoplay  *feature.Autoplay
	freeSpins *feature.FreeSpins

	cmds      chan func()
	lastFrame time.Duration
	framed    bool
}

// New 创建游戏
func New(cfg config.GameConfig, logger *zap.Logger, opts ...Option) (*Game, error) {
	o := &options{commandBuf: 64}
	for _, opt := range opts {
		opt(o)
	}

	g := &Game{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "game")),
		cmds:   make(chan func(), o.commandBuf),
	}

	g.bus = event.NewBus(logger)
	initial := InitialState(cfg)
	if o.initial != nil {
		initial = *o.initial
	}
	g.store = state.NewStore(initial, g.bus, logger)
	g.sched = scheduler.New(logger, o.schedOpts...)
	g.surface = newFrameSurface(o.surface)
	g.reels = reel.NewCoordinator(cfg.Reels, g.surface, logger)
	if g.reels.Len() == 0 {
		return nil, errors.New(errors.ErrMissingReelStrip, "没有可用的卷轴")
	}

	provider := o.provider
	if provider == nil {
		// 模拟结果服务与卷轴使用同一份卷轴条
		mockCfg := cfg
		mockCfg.Reels.Strips = g.reels.Strips()
		g.mock = outcome.NewMockProvider(mockCfg, logger)
		provider = g.mock
	}

	g.processor = spin.NewProcessor(g.store, g.bus, g.reels, logger)
	g.orch = spin.NewOrchestrator(g.store, g.bus, g.reels, g.processor, provider, g.sched, cfg.Spin, logger)
	g.anim = animation.NewController(g.bus, g.sched, cfg, logger)

	g.registry = feature.NewRegistry(&feature.Context{
		Bus:      g.bus,
		Store:    g.store,
		Sched:    g.sched,
		Spinner:  g.orch,
		Animator: g.anim,
		Config:   cfg,
		Logger:   logger,
	})
	g.autoplay = feature.NewAutoplay()
	g.freeSpins = feature.NewFreeSpins()
	// 自动旋转先于免费旋转处理触发事件
	for _, p := range []feature.Plugin{g.autoplay, g.freeSpins} {
		if err := g.registry.Register(p); err != nil {
			return nil, err
		}
	}

	g.logger.Info("游戏初始化完成",
		zap.Int("reels", g.reels.Len()),
		zap.Int("paylines", len(cfg.Paylines)),
		zap.Int64("balance", initial.Balance))
	return g, nil
}

// InitialState 由配置推导初始状态
func InitialState(cfg config.GameConfig) state.GameState {
	lines := len(cfg.Paylines)
	return state.GameState{
		Balance:           cfg.Bet.InitialBalance,
		CurrentBetPerLine: cfg.Bet.BetPerLine,
		Lines:             lines,
		CurrentTotalBet:   cfg.Bet.TotalBet(lines),
	}
}

// Bus 事件总线
func (g *Game) Bus() *event.Bus { return g.bus }

// Store 状态容器
func (g *Game) Store() *state.Store { return g.store }

// Scheduler 调度器
func (g *Game) Scheduler() *scheduler.Scheduler { return g.sched }

// Reels 卷轴协调器
func (g *Game) Reels() *reel.Coordinator { return g.reels }

// Animations 动画控制器，表现层在这里注册动画
func (g *Game) Animations() *animation.Controller { return g.anim }

// Orchestrator 转动编排器
func (g *Game) Orchestrator() *spin.Orchestrator { return g.orch }

// Autoplay 自动旋转插件
func (g *Game) Autoplay() *feature.Autoplay { return g.autoplay }

// FreeSpins 免费旋转插件
func (g *Game) FreeSpins() *feature.FreeSpins { return g.freeSpins }

// Mask 卷轴遮罩
func (g *Game) Mask() Rect { return g.surface.Mask() }

// Tick 推进一帧：调度器 -> 卷轴 -> 完成检测 -> 帧推送
func (g *Game) Tick(delta time.Duration) {
	g.sched.Advance(delta)
	now := g.sched.Now()
	active := g.reels.Update(delta, now)
	g.orch.Poll()
	g.publishFrame(now, active)
}

// publishFrame 按间隔推送卷轴快照，卷轴静止时立即推送最后一帧
func (g *Game) publishFrame(now time.Duration, active bool) {
	if active && g.framed && now-g.lastFrame < g.cfg.Tick.FramePushInterval {
		return
	}
	if !g.surface.takeDirty() {
		return
	}
	g.lastFrame = now
	g.framed = true
	g.bus.Publish(event.ReelsFrame, g.Frame())
}

// Frame 当前卷轴快照
func (g *Game) Frame() event.ReelsFramePayload {
	snaps := g.reels.Snapshot()
	frames := make([]event.ReelFrame, len(snaps))
	for i, s := range snaps {
		frames[i] = event.ReelFrame{
			Index:    s.Index,
			State:    string(s.State),
			Position: s.Position,
			Symbols:  s.Symbols,
		}
	}
	return event.ReelsFramePayload{Time: g.sched.Now(), Reels: frames}
}

// Run 以配置的帧间隔驱动游戏循环，直到ctx结束。命令通过 Do 在循环内执行
func (g *Game) Run(ctx context.Context) error {
	g.orch.SetContext(ctx)
	ticker := time.NewTicker(g.cfg.Tick.Interval)
	defer ticker.Stop()

	last := time.Now()
	g.logger.Info("游戏循环启动", zap.Duration("interval", g.cfg.Tick.Interval))
	for {
		select {
		case <-ctx.Done():
			g.logger.Info("游戏循环退出")
			return ctx.Err()
		case fn := <-g.cmds:
			fn()
		case now := <-ticker.C:
			delta := now.Sub(last)
			last = now
			g.Tick(delta)
		}
	}
}

// Do 在游戏循环协程上执行 fn 并等待结果
func (g *Game) Do(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrTimeout, "提交命令")
	}
	done := make(chan error, 1)
	select {
	case g.cmds <- func() { done <- fn() }:
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.ErrTimeout, "提交命令")
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.ErrTimeout, "等待命令")
	}
}

// Close 销毁插件并等待后台请求结束
func (g *Game) Close() {
	g.registry.Destroy()
	g.anim.Close()
	g.processor.Close()
	g.sched.Wait()
	g.logger.Info("游戏已关闭")
}
