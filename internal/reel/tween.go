package reel

import (
	"math"
	"time"
)

// Easing 缓动函数，输入输出都在 [0,1]
type Easing func(float64) float64

// EaseOutCubic 先快后慢
func EaseOutCubic(x float64) float64 {
	inv := 1 - x
	return 1 - inv*inv*inv
}

// Tween 在模拟时间上的插值
type Tween struct {
	from     float64
	to       float64
	start    time.Duration
	duration time.Duration
	ease     Easing
}

// NewTween 创建插值，duration<=0 时立即完成
func NewTween(from, to float64, start, duration time.Duration, ease Easing) *Tween {
	if ease == nil {
		ease = EaseOutCubic
	}
	return &Tween{from: from, to: to, start: start, duration: duration, ease: ease}
}

// Value 返回 now 时刻的值，以及是否已经结束
func (t *Tween) Value(now time.Duration) (float64, bool) {
	if t.duration <= 0 || now >= t.start+t.duration {
		return t.to, true
	}
	if now <= t.start {
		return t.from, false
	}
	progress := float64(now-t.start) / float64(t.duration)
	return t.from + (t.to-t.from)*t.ease(progress), false
}

// Target 插值终点
func (t *Tween) Target() float64 {
	return t.to
}

// forwardTarget 沿转动方向到达 final 的展开终点，跨越卷轴条末尾时加一圈
func forwardTarget(position float64, final int, length int) float64 {
	delta := float64(final) - position
	if delta < 0 {
		delta += float64(length)
	}
	return position + delta
}

// wrap 把位置归一化到 [0,length)
func wrap(position float64, length int) float64 {
	l := float64(length)
	m := math.Mod(position, l)
	if m < 0 {
		m += l
	}
	if m >= l {
		m = 0
	}
	return m
}

// mod 非负取模
func mod(i, n int) int {
	return ((i % n) + n) % n
}
