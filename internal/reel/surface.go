package reel

// Surface 表现层，卷轴只通过它下发渲染指令
type Surface interface {
	// SetSymbol 替换窗口中某一格的符号，visible=false 表示贴图缺失需要隐藏
	SetSymbol(reel, slot int, symbol string, visible bool)
	// SetSpinEffects 开关转动特效（模糊等）
	SetSpinEffects(reel int, enabled bool)
	// PlaceReel 放置卷轴，offsetY 为窗口内的滚动偏移（像素）
	PlaceReel(reel int, x, offsetY float64)
	// SetMask 设置可视区域遮罩
	SetMask(x, y, width, height float64)
}

// NopSurface 不做任何渲染
type NopSurface struct{}

func (NopSurface) SetSymbol(int, int, string, bool)            {}
func (NopSurface) SetSpinEffects(int, bool)                    {}
func (NopSurface) PlaceReel(int, float64, float64)             {}
func (NopSurface) SetMask(float64, float64, float64, float64) {}

// Atlas 已加载贴图的符号集合
type Atlas map[string]struct{}

// NewAtlas 创建贴图集合
func NewAtlas(symbols []string) Atlas {
	a := make(Atlas, len(symbols))
	for _, s := range symbols {
		a[s] = struct{}{}
	}
	return a
}

// Has 空集合视为全部可用
func (a Atlas) Has(symbol string) bool {
	if len(a) == 0 {
		return true
	}
	_, ok := a[symbol]
	return ok
}
