package reel

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/slot-client/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

const tick = 16 * time.Millisecond

func testParams() Params {
	return Params{
		VisibleRows:  3,
		ReelWidth:    100,
		SymbolHeight: 50,
		MaxSpeed:     30,
		Acceleration: 120,
		StopTween:    500 * time.Millisecond,
	}
}

func testStrip(n int) []string {
	strip := make([]string, n)
	for i := range strip {
		strip[i] = fmt.Sprintf("s%d", i)
	}
	return strip
}

type slotCall struct {
	reel, slot int
	symbol     string
	visible    bool
}

type recordingSurface struct {
	symbols []slotCall
	effects map[int]bool
	mask    [4]float64
	placed  map[int][2]float64
}

func newRecordingSurface() *recordingSurface {
	return &recordingSurface{effects: map[int]bool{}, placed: map[int][2]float64{}}
}

func (s *recordingSurface) SetSymbol(reel, slot int, symbol string, visible bool) {
	s.symbols = append(s.symbols, slotCall{reel, slot, symbol, visible})
}
func (s *recordingSurface) SetSpinEffects(reel int, enabled bool) { s.effects[reel] = enabled }
func (s *recordingSurface) PlaceReel(reel int, x, offsetY float64) {
	s.placed[reel] = [2]float64{x, offsetY}
}
func (s *recordingSurface) SetMask(x, y, w, h float64) { s.mask = [4]float64{x, y, w, h} }

func newTestReel(t *testing.T, n int) *Reel {
	r, err := New(0, testStrip(n), testParams(), nil, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	return r
}

// spinUp 让卷轴进入匀速转动
func spinUp(t *testing.T, r *Reel, now *time.Duration) {
	r.StartSpinning()
	for r.State() != StateSpinning {
		*now += tick
		r.Update(tick, *now)
	}
}

func TestReel_FullCycleInvariants(t *testing.T) {
	r := newTestReel(t, 20)
	var now time.Duration

	r.StartSpinning()
	require.Equal(t, StateAccelerating, r.State())
	r.SetFinalStopPosition(7)
	r.ScheduleStop(2 * time.Second)

	lastSpeed := 0.0
	for i := 0; i < 300 && r.State() != StateStopped; i++ {
		now += tick
		r.Update(tick, now)

		pos := r.Position()
		assert.GreaterOrEqual(t, pos, 0.0)
		assert.Less(t, pos, 20.0)

		if r.State() == StateAccelerating || r.State() == StateSpinning {
			assert.GreaterOrEqual(t, r.Speed(), lastSpeed)
			assert.LessOrEqual(t, r.Speed(), testParams().MaxSpeed)
			lastSpeed = r.Speed()
		}
	}

	require.Equal(t, StateStopped, r.State())
	assert.Equal(t, 7.0, r.Position())
	assert.False(t, r.Update(tick, now+tick))
	assert.GreaterOrEqual(t, now, 2*time.Second-tick)
}

func TestReel_ExactRoundTrip(t *testing.T) {
	for _, k := range []int{0, 1, 13, 19} {
		t.Run(fmt.Sprintf("停止位置%d", k), func(t *testing.T) {
			r := newTestReel(t, 20)
			var now time.Duration
			spinUp(t, r, &now)

			r.SetFinalStopPosition(k)
			r.ScheduleStop(now + 700*time.Millisecond)
			for i := 0; i < 200 && r.Active(); i++ {
				now += 7 * time.Millisecond
				r.Update(7*time.Millisecond, now)
			}

			require.Equal(t, StateStopped, r.State())
			assert.Equal(t, float64(k), r.Position())
			final, ok := r.FinalStopPosition()
			assert.True(t, ok)
			assert.Equal(t, k, final)
		})
	}
}

func TestReel_WrapForwardThroughStripEnd(t *testing.T) {
	r := newTestReel(t, 20)
	var now time.Duration
	spinUp(t, r, &now)

	r.position = 18.5
	r.SetFinalStopPosition(2)
	r.ScheduleStop(now + testParams().StopTween)
	r.Update(0, now)
	require.Equal(t, StateStopping, r.State())
	assert.Equal(t, 22.0, r.tween.Target())

	prev := r.Position()
	assert.Equal(t, 18.5, prev)
	for i := 0; i < 100 && r.Active(); i++ {
		now += 10 * time.Millisecond
		r.Update(10*time.Millisecond, now)
		pos := r.Position()

		// 只会出现在 18.5→20 和 0→2 两段上
		inPath := (pos >= 18.5 && pos < 20) || (pos >= 0 && pos <= 2)
		assert.True(t, inPath, "位置 %v 不在前进路径上", pos)

		// 展开后的位移始终非负，不会倒转
		step := math.Mod(pos-prev+20, 20)
		assert.Less(t, step, 3.5, "位置从 %v 跳到 %v", prev, pos)
		prev = pos
	}

	require.Equal(t, StateStopped, r.State())
	assert.Equal(t, 2.0, r.Position())
}

func TestReel_StartSpinningIsIdempotent(t *testing.T) {
	r := newTestReel(t, 20)
	var now time.Duration

	r.StartSpinning()
	r.SetFinalStopPosition(4)
	r.ScheduleStop(3 * time.Second)
	for i := 0; i < 5; i++ {
		now += tick
		r.Update(tick, now)
	}
	require.Equal(t, StateAccelerating, r.State())
	require.Greater(t, r.Speed(), 0.0)

	// 加速中再次启动：速度归零，旧的停止计划被清除
	r.StartSpinning()
	assert.Equal(t, StateAccelerating, r.State())
	assert.Equal(t, 0.0, r.Speed())
	_, hasFinal := r.FinalStopPosition()
	assert.False(t, hasFinal)

	for i := 0; i < 200; i++ {
		now += tick
		r.Update(tick, now)
		require.NotEqual(t, StateStopping, r.State(), "旧的停止计划不应生效")
	}
	assert.Equal(t, StateSpinning, r.State())
}

func TestReel_RestartDuringStoppingKillsTween(t *testing.T) {
	r := newTestReel(t, 20)
	var now time.Duration
	spinUp(t, r, &now)

	r.SetFinalStopPosition(10)
	r.ScheduleStop(now + testParams().StopTween)
	now += tick
	r.Update(tick, now)
	require.Equal(t, StateStopping, r.State())

	assert.NotPanics(t, func() { r.StartSpinning() })
	assert.Equal(t, StateAccelerating, r.State())
	assert.Nil(t, r.tween)

	now += tick
	assert.True(t, r.Update(tick, now))
}

func TestReel_MissingFinalPositionFallsBack(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r, err := New(0, testStrip(20), testParams(), nil, nil, zap.New(core))
	require.NoError(t, err)

	var now time.Duration
	r.StartSpinning()
	r.ScheduleStop(time.Second)
	for i := 0; i < 200 && r.State() != StateStopped; i++ {
		now += tick
		r.Update(tick, now)
	}

	require.Equal(t, StateStopped, r.State())
	pos := r.Position()
	assert.Equal(t, math.Floor(pos), pos)

	entries := logs.FilterMessage("到达停止时间但未设置最终位置，回退到最近的整数位置").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "reel", entries[0].ContextMap()["component"])
}

func TestReel_WindowAlignment(t *testing.T) {
	surface := newRecordingSurface()
	r, err := New(2, testStrip(20), testParams(), surface, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	// 位置0：第一可见行是 s0，上方缓冲是 s19
	assert.Equal(t, []string{"s19", "s0", "s1", "s2", "s3"}, r.Snapshot().Symbols)
	assert.Len(t, surface.symbols, 5)

	r.position = 5.25
	r.sync()
	assert.Equal(t, []string{"s4", "s5", "s6", "s7", "s8"}, r.Snapshot().Symbols)
	assert.Equal(t, [2]float64{200, 12.5}, surface.placed[2])

	// 位置不变时不重复替换
	before := len(surface.symbols)
	r.sync()
	assert.Equal(t, before, len(surface.symbols))
}

func TestReel_MissingTextureHidesSlot(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	surface := newRecordingSurface()
	atlas := NewAtlas([]string{"s0", "s1", "s2", "s3"})

	r, err := New(0, testStrip(20), testParams(), surface, atlas, zap.New(core))
	require.NoError(t, err)

	var hidden []string
	for _, c := range surface.symbols {
		if !c.visible {
			hidden = append(hidden, c.symbol)
		}
	}
	assert.Equal(t, []string{"s19"}, hidden)
	assert.Equal(t, 1, logs.FilterMessage("符号贴图缺失，隐藏该格").Len())

	// 转动中不会抛出，同一符号只记录一次
	var now time.Duration
	r.StartSpinning()
	for i := 0; i < 100; i++ {
		now += tick
		r.Update(tick, now)
	}
	assert.Equal(t, 16, logs.FilterMessage("符号贴图缺失，隐藏该格").Len())
}

func TestReel_EmptyStrip(t *testing.T) {
	_, err := New(0, nil, testParams(), nil, nil, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestReel_SpinEffectsToggle(t *testing.T) {
	surface := newRecordingSurface()
	r, err := New(0, testStrip(20), testParams(), surface, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	var now time.Duration
	r.StartSpinning()
	assert.True(t, surface.effects[0])

	r.SetFinalStopPosition(1)
	r.ScheduleStop(600 * time.Millisecond)
	for i := 0; i < 100 && r.Active(); i++ {
		now += tick
		r.Update(tick, now)
	}
	assert.False(t, surface.effects[0])
}

func TestTween(t *testing.T) {
	assert.Equal(t, 0.0, EaseOutCubic(0))
	assert.Equal(t, 1.0, EaseOutCubic(1))
	assert.Greater(t, EaseOutCubic(0.5), 0.5)

	tw := NewTween(10, 20, time.Second, time.Second, nil)
	v, done := tw.Value(500 * time.Millisecond)
	assert.Equal(t, 10.0, v)
	assert.False(t, done)
	v, done = tw.Value(2 * time.Second)
	assert.Equal(t, 20.0, v)
	assert.True(t, done)

	instant := NewTween(1, 2, 0, 0, nil)
	v, done = instant.Value(0)
	assert.Equal(t, 2.0, v)
	assert.True(t, done)
}

func TestForwardTargetAndWrap(t *testing.T) {
	tests := []struct {
		name     string
		position float64
		final    int
		want     float64
	}{
		{name: "正向不跨界", position: 3.2, final: 7, want: 7},
		{name: "跨越末尾", position: 18.5, final: 2, want: 22},
		{name: "已经对齐", position: 5, final: 5, want: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, forwardTarget(tt.position, tt.final, 20))
		})
	}

	assert.Equal(t, 1.5, wrap(21.5, 20))
	assert.Equal(t, 19.0, wrap(-1, 20))
	assert.Equal(t, 0.0, wrap(20, 20))
}

func testReelsConfig() config.ReelsConfig {
	return config.ReelsConfig{
		Count:        3,
		VisibleRows:  3,
		ReelWidth:    100,
		SymbolHeight: 50,
		MaxSpeed:     30,
		Acceleration: 120,
		StopTween:    500 * time.Millisecond,
		Symbols:      testStrip(20),
		Strips:       [][]string{testStrip(20), testStrip(20), testStrip(20)},
	}
}

func TestCoordinator_StaggeredStopOrder(t *testing.T) {
	c := NewCoordinator(testReelsConfig(), nil, zaptest.NewLogger(t))
	require.Equal(t, 3, c.Len())

	var order []int
	c.OnReelStopped(func(index, position int) { order = append(order, index) })

	var now time.Duration
	c.StartAll()
	for i := 0; i < 3; i++ {
		require.NoError(t, c.SetReelStopPosition(i, i*3))
		c.ScheduleStop(i, time.Second+time.Duration(i)*250*time.Millisecond)
	}

	assert.False(t, c.AllStopped())
	for i := 0; i < 500; i++ {
		now += tick
		if !c.Update(tick, now) {
			break
		}
	}

	assert.Equal(t, []int{0, 1, 2}, order)
	assert.True(t, c.AllStopped())
	for i, snap := range c.Snapshot() {
		assert.Equal(t, float64(i*3), snap.Position)
		assert.Equal(t, StateStopped, snap.State)
	}
}

func TestCoordinator_AggregateActivity(t *testing.T) {
	c := NewCoordinator(testReelsConfig(), nil, zaptest.NewLogger(t))
	assert.False(t, c.Update(tick, tick))
	assert.False(t, c.AllStopped())

	c.StartAll()
	c.SetReelStopPosition(0, 0)
	c.ScheduleStop(0, 600*time.Millisecond)

	var now time.Duration
	for i := 0; i < 100; i++ {
		now += tick
		active := c.Update(tick, now)
		// 其余卷轴仍在转动
		assert.True(t, active)
	}
	assert.Equal(t, StateStopped, c.Reel(0).State())
	assert.False(t, c.AllStopped())
}

func TestCoordinator_MissingStripAndMask(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	surface := newRecordingSurface()
	cfg := testReelsConfig()
	cfg.Strips = cfg.Strips[:2]

	c := NewCoordinator(cfg, surface, zap.New(core))

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []int{20, 20, 20}, c.StripLens())
	assert.Equal(t, 1, logs.FilterMessage("卷轴条缺失，使用符号集代替").Len())
	assert.Equal(t, [4]float64{0, 0, 300, 150}, surface.mask)
}

func TestCoordinator_SetReelStopPositionOutOfRange(t *testing.T) {
	c := NewCoordinator(testReelsConfig(), nil, zaptest.NewLogger(t))
	assert.Error(t, c.SetReelStopPosition(9, 1))
	assert.Nil(t, c.Reel(-1))
}

func TestCoordinator_HaltAll(t *testing.T) {
	c := NewCoordinator(testReelsConfig(), nil, zaptest.NewLogger(t))
	var now time.Duration
	c.StartAll()
	for i := 0; i < 20; i++ {
		now += tick
		c.Update(tick, now)
	}

	c.HaltAll(now)
	for i := 0; i < 100 && c.AnyActive(); i++ {
		now += tick
		c.Update(tick, now)
	}
	assert.True(t, c.AllStopped())
	for _, snap := range c.Snapshot() {
		assert.Equal(t, math.Floor(snap.Position), snap.Position)
	}
}
