package animation

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/wfunc/slot-client/internal/config"
	"github.com/wfunc/slot-client/internal/errors"
	"github.com/wfunc/slot-client/internal/event"
	"github.com/wfunc/slot-client/internal/metrics"
	"github.com/wfunc/slot-client/internal/scheduler"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// 动画名称
const (
	CueSymbolWin           = "symbol_win"
	CueRollup              = "win_rollup"
	CueBigWin              = "big_win"
	CueMegaWin             = "mega_win"
	CueFreeSpinsEntry      = "free_spins_entry"
	CueFreeSpinsBackground = "free_spins_background"
	CueFreeSpinsExit       = "free_spins_exit"
	CueBackgroundRevert    = "background_revert"
)

// 中奖等级
const (
	TierNone   = "none"
	TierNormal = "normal"
	TierBig    = "big"
	TierMega   = "mega"
)

// Handler 动画处理器，需在 ctx 结束时尽快返回
type Handler interface {
	Play(ctx context.Context, data interface{}) error
}

// HandlerFunc 函数适配器
type HandlerFunc func(ctx context.Context, data interface{}) error

// Play 实现Handler接口
func (f HandlerFunc) Play(ctx context.Context, data interface{}) error {
	return f(ctx, data)
}

type entry struct {
	id      uint64
	handler Handler
}

// Controller 动画注册表，并在中奖后编排中奖动画序列
type Controller struct {
	mu     sync.RWMutex
	cues   map[string][]entry
	nextID uint64

	bus     *event.Bus
	sched   *scheduler.Scheduler
	tiers   config.WinTierConfig
	timeout time.Duration
	logger  *zap.Logger
	unsubs  []func()

	// 以下只在循环协程上访问
	generation uint64
	cancel     context.CancelFunc
	current    string
}

// NewController 创建动画控制器并订阅中奖与打断事件
func NewController(bus *event.Bus, sched *scheduler.Scheduler, cfg config.GameConfig, logger *zap.Logger) *Controller {
	c := &Controller{
		cues:    make(map[string][]entry),
		bus:     bus,
		sched:   sched,
		tiers:   cfg.WinTiers,
		timeout: cfg.Animation.CueTimeout,
		logger:  logger.With(zap.String("component", "animation")),
	}
	c.unsubs = append(c.unsubs,
		event.On(bus, event.WinValidated, c.handleWinValidated),
		event.On(bus, event.AnimationsInterrupt, c.handleInterrupt),
	)
	return c
}

// Close 取消订阅并打断正在播放的序列
func (c *Controller) Close() {
	for _, unsub := range c.unsubs {
		unsub()
	}
	c.unsubs = nil
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// SetCueTimeout 修改单个动画序列的超时，下一个序列生效
func (c *Controller) SetCueTimeout(d time.Duration) {
	c.timeout = d
}

// Register 注册动画处理器，同一个处理器重复注册只保留一份（判断规则见 sameHandler）。返回注销函数
func (c *Controller) Register(name string, h Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.cues[name] {
		if sameHandler(e.handler, h) {
			return c.unregisterFunc(name, e.id)
		}
	}
	c.nextID++
	id := c.nextID
	c.cues[name] = append(c.cues[name], entry{id: id, handler: h})
	return c.unregisterFunc(name, id)
}

func (c *Controller) unregisterFunc(name string, id uint64) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			entries := c.cues[name]
			for i, e := range entries {
				if e.id == id {
					c.cues[name] = append(entries[:i:i], entries[i+1:]...)
					break
				}
			}
			if len(c.cues[name]) == 0 {
				delete(c.cues, name)
			}
		})
	}
}

// sameHandler 可比较类型按值判断；函数类型按代码地址判断，
// 同一处函数字面量创建的闭包即使捕获不同变量也视为同一个处理器
func sameHandler(a, b Handler) bool {
	ta := reflect.TypeOf(a)
	if ta == nil || ta != reflect.TypeOf(b) {
		return false
	}
	if ta.Kind() == reflect.Func {
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	if !ta.Comparable() {
		return false
	}
	return a == b
}

// Handlers 某个动画的处理器数量
func (c *Controller) Handlers(name string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cues[name])
}

// Play 并发执行某个动画的全部处理器，等全部结束或 ctx 结束后返回。
// 单个处理器失败只记录日志，不影响其他处理器，错误合并返回
func (c *Controller) Play(ctx context.Context, name string, data interface{}) error {
	c.mu.RLock()
	entries := append([]entry(nil), c.cues[name]...)
	c.mu.RUnlock()
	if len(entries) == 0 {
		return nil
	}

	errs := make([]error, len(entries))
	var wg sync.WaitGroup
	for i, e := range entries {
		wg.Add(1)
		go func(i int, h Handler) {
			defer wg.Done()
			errs[i] = c.invoke(ctx, name, i, h, data)
		}(i, e.handler)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		var result error
		for _, err := range errs {
			result = multierr.Append(result, err)
		}
		return result
	case <-ctx.Done():
		err := errors.Wrap(ctx.Err(), errors.ErrTimeout, "动画 "+name)
		metrics.AnimationCueErrors.WithLabelValues(name).Inc()
		c.logger.Warn("动画未在限定时间内完成", zap.String("cue", name), zap.Error(ctx.Err()))
		return err
	}
}

// PlayAll 并发执行多个动画
func (c *Controller) PlayAll(ctx context.Context, names []string, data interface{}) error {
	errs := make([]error, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			errs[i] = c.Play(ctx, name, data)
		}(i, name)
	}
	wg.Wait()
	return multierr.Combine(errs...)
}

func (c *Controller) invoke(ctx context.Context, name string, index int, h Handler, data interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.ErrCuePanic, "动画 %s 处理器 %d: %v", name, index, r)
		}
		if err != nil {
			metrics.AnimationCueErrors.WithLabelValues(name).Inc()
			c.logger.Error("动画处理器失败",
				zap.String("cue", name),
				zap.Int("handler", index),
				zap.Error(err))
		}
	}()

	if e := h.Play(ctx, data); e != nil {
		return errors.Wrap(e, errors.ErrCueFailed, fmt.Sprintf("动画 %s 处理器 %d", name, index))
	}
	return nil
}

// Tier 按总投注倍数计算中奖等级
func (c *Controller) Tier(totalWin, totalBet int64) string {
	return TierFor(totalWin, totalBet, c.tiers)
}

// TierFor 中奖等级：>=mega倍为mega，>=big倍为big
func TierFor(totalWin, totalBet int64, tiers config.WinTierConfig) string {
	switch {
	case totalWin <= 0:
		return TierNone
	case totalBet <= 0:
		return TierNormal
	}
	ratio := float64(totalWin) / float64(totalBet)
	switch {
	case ratio >= tiers.Mega:
		return TierMega
	case ratio >= tiers.Big:
		return TierBig
	default:
		return TierNormal
	}
}

// cuesFor 中奖等级对应的动画，基础动画始终播放
func cuesFor(tier string) []string {
	switch tier {
	case TierNone:
		return nil
	case TierMega:
		return []string{CueSymbolWin, CueRollup, CueMegaWin}
	case TierBig:
		return []string{CueSymbolWin, CueRollup, CueBigWin}
	default:
		return []string{CueSymbolWin, CueRollup}
	}
}

// handleWinValidated 启动中奖动画序列，结束后发出 win.sequence_complete。
// 没有中奖也会发出完成事件，自动旋转和免费旋转依赖它继续
func (c *Controller) handleWinValidated(p event.WinValidatedPayload) {
	if c.cancel != nil {
		c.cancel()
	}
	c.generation++
	gen := c.generation
	c.current = p.SpinID

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	c.cancel = cancel

	tier := c.Tier(p.TotalWin, p.CurrentTotalBet)
	cues := cuesFor(tier)
	c.logger.Debug("开始中奖动画",
		zap.String("spin_id", p.SpinID),
		zap.String("tier", tier),
		zap.Int64("total_win", p.TotalWin),
		zap.Strings("cues", cues))

	c.sched.Go(func() {
		err := c.PlayAll(ctx, cues, p)
		interrupted := ctx.Err() == context.Canceled
		c.sched.Post(func() {
			cancel()
			c.finish(gen, p.SpinID, tier, interrupted, err)
		})
	})
}

func (c *Controller) finish(gen uint64, spinID, tier string, interrupted bool, err error) {
	if gen != c.generation {
		// 已被新的序列取代
		c.logger.Debug("丢弃过期的动画序列", zap.String("spin_id", spinID))
		return
	}
	c.cancel = nil
	if err != nil {
		c.logger.Warn("中奖动画存在失败",
			zap.String("spin_id", spinID),
			zap.Int("errors", len(multierr.Errors(err))),
			zap.Error(err))
	}
	c.bus.Publish(event.WinSequenceComplete, event.SequenceCompletePayload{
		SpinID:      spinID,
		Tier:        tier,
		Interrupted: interrupted,
	})
}

func (c *Controller) handleInterrupt(p event.InterruptPayload) {
	if c.cancel == nil {
		return
	}
	c.logger.Debug("打断中奖动画", zap.String("spin_id", c.current), zap.String("reason", p.Reason))
	c.cancel()
}
