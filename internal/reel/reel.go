package reel

import (
	"math"
	"time"

	"github.com/wfunc/slot-client/internal/config"
	"github.com/wfunc/slot-client/internal/errors"
	"github.com/wfunc/slot-client/internal/fsm"
	"go.uber.org/zap"
)

// 卷轴状态
const (
	StateIdle         fsm.State = "idle"
	StateAccelerating fsm.State = "accelerating"
	StateSpinning     fsm.State = "spinning"
	StateStopping     fsm.State = "stopping"
	StateStopped      fsm.State = "stopped"
)

// 卷轴事件
const (
	evStart    = "start"
	evMaxSpeed = "max_speed"
	evStop     = "stop"
	evSettled  = "settled"
)

// Params 卷轴运动参数
type Params struct {
	VisibleRows  int
	ReelWidth    float64
	SymbolHeight float64
	MaxSpeed     float64       // 符号/秒
	Acceleration float64       // 符号/秒²
	StopTween    time.Duration // 减速插值时长
}

// ParamsFromConfig 从配置读取运动参数
func ParamsFromConfig(cfg config.ReelsConfig) Params {
	return Params{
		VisibleRows:  cfg.VisibleRows,
		ReelWidth:    cfg.ReelWidth,
		SymbolHeight: cfg.SymbolHeight,
		MaxSpeed:     cfg.MaxSpeed,
		Acceleration: cfg.Acceleration,
		StopTween:    cfg.StopTween,
	}
}

// Snapshot 卷轴只读快照
type Snapshot struct {
	Index    int       `json:"index"`
	State    fsm.State `json:"state"`
	Position float64   `json:"position"`
	Speed    float64   `json:"speed"`
	Symbols  []string  `json:"symbols"`
}

// Reel 单列卷轴。位置 k 表示 strip[k] 位于可见区第一行，
// 窗口比可见行多上下各一格缓冲。
type Reel struct {
	index   int
	strip   []string
	params  Params
	surface Surface
	atlas   Atlas
	logger  *zap.Logger
	machine *fsm.Machine

	position float64
	speed    float64

	final    int
	hasFinal bool
	stopAt   time.Duration
	hasStop  bool
	tween    *Tween

	window  []string
	missing map[string]bool // 已记录过的缺失贴图

	onStopped func(index, position int)
}

// New 创建卷轴，卷轴条为空时返回 ErrMissingReelStrip
func New(index int, strip []string, params Params, surface Surface, atlas Atlas, logger *zap.Logger) (*Reel, error) {
	if len(strip) == 0 {
		return nil, errors.Newf(errors.ErrMissingReelStrip, "卷轴 %d", index)
	}
	if surface == nil {
		surface = NopSurface{}
	}
	logger = logger.With(zap.String("component", "reel"), zap.Int("reel", index))

	r := &Reel{
		index:   index,
		strip:   append([]string(nil), strip...),
		params:  params,
		surface: surface,
		atlas:   atlas,
		logger:  logger,
		window:  make([]string, params.VisibleRows+2),
		missing: make(map[string]bool),
	}

	all := []fsm.State{StateIdle, StateAccelerating, StateSpinning, StateStopping, StateStopped}
	r.machine = fsm.New("reel", StateIdle, logger).
		AddFrom(all, evStart, StateAccelerating).
		AddFrom([]fsm.State{StateAccelerating, StateSpinning}, evStop, StateStopping).
		Add(
			fsm.Transition{From: StateAccelerating, Event: evMaxSpeed, To: StateSpinning},
			fsm.Transition{From: StateStopping, Event: evSettled, To: StateStopped},
		)

	r.sync()
	return r, nil
}

// Index 卷轴索引
func (r *Reel) Index() int { return r.index }

// Strip 卷轴条副本
func (r *Reel) Strip() []string { return append([]string(nil), r.strip...) }

// Len 卷轴条长度
func (r *Reel) Len() int { return len(r.strip) }

// State 当前状态
func (r *Reel) State() fsm.State { return r.machine.Current() }

// Position 当前位置，始终在 [0,Len)
func (r *Reel) Position() float64 { return r.position }

// Speed 当前速度
func (r *Reel) Speed() float64 { return r.speed }

// FinalStopPosition 最终停止位置
func (r *Reel) FinalStopPosition() (int, bool) { return r.final, r.hasFinal }

// Active 是否仍需要逐帧推进
func (r *Reel) Active() bool {
	return r.machine.Is(StateAccelerating, StateSpinning, StateStopping)
}

// StartSpinning 进入加速状态，可重复调用：速度归零，
// 清除上一轮的停止计划和最终位置，正在进行的减速插值被丢弃
func (r *Reel) StartSpinning() {
	r.tween = nil
	r.speed = 0
	r.hasStop = false
	r.hasFinal = false
	r.stopAt = 0
	if err := r.machine.Trigger(evStart); err != nil {
		r.logger.Error("启动卷轴失败", zap.Error(err))
		return
	}
	r.surface.SetSpinEffects(r.index, true)
}

// SetFinalStopPosition 设置最终停止位置，进入减速后再设置会被忽略
func (r *Reel) SetFinalStopPosition(k int) {
	if r.machine.Is(StateStopping, StateStopped) {
		r.logger.Warn("卷轴已在减速或停止，忽略最终位置", zap.Int("final", k))
		return
	}
	r.final = mod(k, len(r.strip))
	r.hasFinal = true
}

// ScheduleStop 记录目标停止时间，减速在 at-StopTween 开始
func (r *Reel) ScheduleStop(at time.Duration) {
	if !r.machine.Is(StateAccelerating, StateSpinning) {
		r.logger.Warn("卷轴未在转动，忽略停止计划",
			zap.String("state", string(r.State())),
			zap.Duration("at", at))
		return
	}
	r.stopAt = at
	r.hasStop = true
}

// OnStopped 设置停稳回调
func (r *Reel) OnStopped(fn func(index, position int)) {
	r.onStopped = fn
}

// Update 推进一帧，返回卷轴是否仍然活跃
func (r *Reel) Update(delta time.Duration, now time.Duration) bool {
	dt := delta.Seconds()
	if dt < 0 {
		dt = 0
	}

	switch r.State() {
	case StateAccelerating:
		r.speed += r.params.Acceleration * dt
		if r.speed >= r.params.MaxSpeed {
			r.speed = r.params.MaxSpeed
			r.trigger(evMaxSpeed)
		}
		r.advance(r.speed * dt)
		r.maybeBeginStop(now)

	case StateSpinning:
		r.speed = r.params.MaxSpeed
		r.advance(r.speed * dt)
		r.maybeBeginStop(now)

	case StateStopping:
		r.stepTween(now)

	default:
		return false
	}

	r.sync()
	return r.Active()
}

// Halt 立即开始减速到运动方向上最近的整数位置，用于放弃本次转动
func (r *Reel) Halt(now time.Duration) {
	if !r.machine.Is(StateAccelerating, StateSpinning) {
		return
	}
	r.SetFinalStopPosition(r.nextIntegral())
	r.stopAt = now + r.params.StopTween
	r.hasStop = true
	r.maybeBeginStop(now)
}

// Snapshot 只读快照
func (r *Reel) Snapshot() Snapshot {
	return Snapshot{
		Index:    r.index,
		State:    r.State(),
		Position: r.position,
		Speed:    r.speed,
		Symbols:  append([]string(nil), r.window...),
	}
}

func (r *Reel) advance(distance float64) {
	r.position = wrap(r.position+distance, len(r.strip))
}

// maybeBeginStop 到达 stopAt-StopTween 时开始减速插值
func (r *Reel) maybeBeginStop(now time.Duration) {
	if !r.hasStop || now < r.stopAt-r.params.StopTween {
		return
	}
	if !r.hasFinal {
		fallback := r.nextIntegral()
		r.logger.Error("到达停止时间但未设置最终位置，回退到最近的整数位置",
			zap.Float64("position", r.position),
			zap.Int("fallback", fallback))
		r.final = fallback
		r.hasFinal = true
	}

	target := forwardTarget(r.position, r.final, len(r.strip))
	r.tween = NewTween(r.position, target, now, r.params.StopTween, EaseOutCubic)
	r.trigger(evStop)
	r.logger.Debug("开始减速",
		zap.Float64("from", r.position),
		zap.Float64("to", target),
		zap.Int("final", r.final))
	// 时长为0时同一帧内完成
	r.stepTween(now)
}

func (r *Reel) stepTween(now time.Duration) {
	if r.tween == nil {
		r.logger.Error("减速状态缺少插值，直接停止")
		r.settle()
		return
	}
	v, done := r.tween.Value(now)
	if done {
		r.settle()
		return
	}
	r.position = wrap(v, len(r.strip))
}

// settle 精确对齐到最终位置
func (r *Reel) settle() {
	r.position = float64(r.final)
	r.speed = 0
	r.tween = nil
	r.hasStop = false
	r.surface.SetSpinEffects(r.index, false)
	r.trigger(evSettled)
	if r.onStopped != nil {
		r.onStopped(r.index, r.final)
	}
}

// nextIntegral 运动方向上最近的整数位置
func (r *Reel) nextIntegral() int {
	return mod(int(math.Ceil(r.position)), len(r.strip))
}

func (r *Reel) trigger(event string) {
	if err := r.machine.Trigger(event); err != nil {
		r.logger.Error("卷轴状态转换失败", zap.String("event", event), zap.Error(err))
	}
}

// sync 让窗口与 floor(position) 对齐，只替换发生变化的格子
func (r *Reel) sync() {
	n := len(r.strip)
	base := math.Floor(r.position)
	top := int(base) - 1

	for slot := range r.window {
		symbol := r.strip[mod(top+slot, n)]
		if r.window[slot] == symbol {
			continue
		}
		r.window[slot] = symbol
		visible := r.atlas.Has(symbol)
		if !visible && !r.missing[symbol] {
			r.missing[symbol] = true
			r.logger.Error("符号贴图缺失，隐藏该格",
				zap.String("symbol", symbol),
				zap.Int("code", int(errors.ErrMissingTexture)))
		}
		r.surface.SetSymbol(r.index, slot, symbol, visible)
	}

	offset := (r.position - base) * r.params.SymbolHeight
	r.surface.PlaceReel(r.index, float64(r.index)*r.params.ReelWidth, offset)
}
