package game

import (
	"sync"

	"github.com/wfunc/slot-client/internal/reel"
)

// Rect 遮罩矩形
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// frameSurface 记录哪些卷轴需要推送新帧，同时转发给可选的下游表现层
type frameSurface struct {
	mu     sync.Mutex
	next   reel.Surface
	dirty  bool
	mask   Rect
	hidden map[[2]int]bool // reel,slot -> 贴图缺失
}

func newFrameSurface(next reel.Surface) *frameSurface {
	if next == nil {
		next = reel.NopSurface{}
	}
	return &frameSurface{next: next, hidden: make(map[[2]int]bool)}
}

func (s *frameSurface) SetSymbol(index, slot int, symbol string, visible bool) {
	s.mu.Lock()
	s.dirty = true
	if visible {
		delete(s.hidden, [2]int{index, slot})
	} else {
		s.hidden[[2]int{index, slot}] = true
	}
	s.mu.Unlock()
	s.next.SetSymbol(index, slot, symbol, visible)
}

func (s *frameSurface) SetSpinEffects(index int, enabled bool) {
	s.markDirty()
	s.next.SetSpinEffects(index, enabled)
}

func (s *frameSurface) PlaceReel(index int, x, offsetY float64) {
	s.markDirty()
	s.next.PlaceReel(index, x, offsetY)
}

func (s *frameSurface) SetMask(x, y, width, height float64) {
	s.mu.Lock()
	s.mask = Rect{X: x, Y: y, Width: width, Height: height}
	s.mu.Unlock()
	s.next.SetMask(x, y, width, height)
}

func (s *frameSurface) markDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// takeDirty 读取并清除脏标记
func (s *frameSurface) takeDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.dirty
	s.dirty = false
	return d
}

// Mask 当前遮罩
func (s *frameSurface) Mask() Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mask
}

// Hidden 贴图缺失被隐藏的格子数
func (s *frameSurface) Hidden() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hidden)
}
