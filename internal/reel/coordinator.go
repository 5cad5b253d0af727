package reel

import (
	"time"

	"github.com/wfunc/slot-client/internal/config"
	"github.com/wfunc/slot-client/internal/errors"
	"go.uber.org/zap"
)

// Coordinator 管理全部卷轴，汇总每帧的活跃状态
type Coordinator struct {
	reels   []*Reel
	params  Params
	surface Surface
	logger  *zap.Logger

	onStopped func(index, position int)
}

// NewCoordinator 按配置创建卷轴。缺失的卷轴条用符号集代替并记录错误，不中断启动
func NewCoordinator(cfg config.ReelsConfig, surface Surface, logger *zap.Logger) *Coordinator {
	if surface == nil {
		surface = NopSurface{}
	}
	c := &Coordinator{
		params:  ParamsFromConfig(cfg),
		surface: surface,
		logger:  logger.With(zap.String("component", "reel_coordinator")),
	}
	atlas := NewAtlas(cfg.Symbols)

	for i := 0; i < cfg.Count; i++ {
		var strip []string
		if i < len(cfg.Strips) {
			strip = cfg.Strips[i]
		}
		if len(strip) == 0 {
			strip = fallbackStrip(cfg.Symbols)
			c.logger.Error("卷轴条缺失，使用符号集代替",
				zap.Int("reel", i),
				zap.Int("code", int(errors.ErrMissingReelStrip)),
				zap.Int("fallback_len", len(strip)))
		}

		r, err := New(i, strip, c.params, surface, atlas, logger)
		if err != nil {
			c.logger.Error("创建卷轴失败", zap.Int("reel", i), zap.Error(err))
			continue
		}
		r.OnStopped(c.handleStopped)
		c.reels = append(c.reels, r)
	}

	// 卷轴横向排列，遮罩只露出可见行
	c.surface.SetMask(0, 0, float64(len(c.reels))*c.params.ReelWidth, float64(c.params.VisibleRows)*c.params.SymbolHeight)
	return c
}

func fallbackStrip(symbols []string) []string {
	if len(symbols) == 0 {
		return []string{""}
	}
	return append([]string(nil), symbols...)
}

// Len 卷轴数量
func (c *Coordinator) Len() int { return len(c.reels) }

// Reel 获取卷轴
func (c *Coordinator) Reel(index int) *Reel {
	if index < 0 || index >= len(c.reels) {
		return nil
	}
	return c.reels[index]
}

// StripLens 每个卷轴条的长度
func (c *Coordinator) StripLens() []int {
	lens := make([]int, len(c.reels))
	for i, r := range c.reels {
		lens[i] = r.Len()
	}
	return lens
}

// Strips 每个卷轴条的副本
func (c *Coordinator) Strips() [][]string {
	strips := make([][]string, len(c.reels))
	for i, r := range c.reels {
		strips[i] = r.Strip()
	}
	return strips
}

// OnReelStopped 设置单个卷轴停稳回调
func (c *Coordinator) OnReelStopped(fn func(index, position int)) {
	c.onStopped = fn
}

func (c *Coordinator) handleStopped(index, position int) {
	if c.onStopped != nil {
		c.onStopped(index, position)
	}
}

// StartAll 启动全部卷轴
func (c *Coordinator) StartAll() {
	for _, r := range c.reels {
		r.StartSpinning()
	}
}

// SetReelStopPosition 透传最终停止位置
func (c *Coordinator) SetReelStopPosition(index, position int) error {
	r := c.Reel(index)
	if r == nil {
		c.logger.Error("卷轴索引越界", zap.Int("reel", index))
		return errors.Newf(errors.ErrInvalidParam, "卷轴索引 %d 越界", index)
	}
	r.SetFinalStopPosition(position)
	return nil
}

// ScheduleStop 设置某个卷轴的目标停止时间
func (c *Coordinator) ScheduleStop(index int, at time.Duration) {
	if r := c.Reel(index); r != nil {
		r.ScheduleStop(at)
	}
}

// Update 推进全部卷轴，任一卷轴活跃即返回 true
func (c *Coordinator) Update(delta, now time.Duration) bool {
	active := false
	for _, r := range c.reels {
		if r.Update(delta, now) {
			active = true
		}
	}
	return active
}

// AllStopped 每个卷轴都处于 stopped 状态
func (c *Coordinator) AllStopped() bool {
	if len(c.reels) == 0 {
		return false
	}
	for _, r := range c.reels {
		if r.State() != StateStopped {
			return false
		}
	}
	return true
}

// AnyActive 是否有卷轴在运动
func (c *Coordinator) AnyActive() bool {
	for _, r := range c.reels {
		if r.Active() {
			return true
		}
	}
	return false
}

// HaltAll 放弃本次转动，所有转动中的卷轴减速到最近的整数位置
func (c *Coordinator) HaltAll(now time.Duration) {
	for _, r := range c.reels {
		r.Halt(now)
	}
}

// Snapshot 全部卷轴快照
func (c *Coordinator) Snapshot() []Snapshot {
	out := make([]Snapshot, len(c.reels))
	for i, r := range c.reels {
		out[i] = r.Snapshot()
	}
	return out
}
