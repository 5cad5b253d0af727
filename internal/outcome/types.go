package outcome

import (
	"context"
	"fmt"

	"github.com/wfunc/slot-client/internal/errors"
)

// FeatureType 特殊功能类型
type FeatureType string

const (
	FeatureFreeSpins FeatureType = "FREE_SPINS" // 免费旋转
)

// Cell 窗口中的符号位置
type Cell struct {
	Reel int `json:"reel"` // 卷轴索引 (0-based)
	Row  int `json:"row"`  // 可见行索引 (0-based)
}

// WinLine 中奖线，创建后不可修改
type WinLine struct {
	LineIndex  int    `json:"line_index"`  // 支付线索引
	SymbolID   string `json:"symbol_id"`   // 中奖符号
	MatchCount int    `json:"match_count"` // 连续个数
	WinAmount  int64  `json:"win_amount"`  // 中奖金额
}

// Feature 结果中触发的特殊功能
type Feature struct {
	Type         FeatureType `json:"type"`
	SpinsAwarded int         `json:"spins_awarded,omitempty"`
}

// SpinOutcome 结果服务返回的一次转动结果
type SpinOutcome struct {
	SpinID           string    `json:"spin_id"`
	StopPositions    []int     `json:"stop_positions"`    // 每个卷轴的停止位置
	WinningLines     []WinLine `json:"winning_lines"`     // 中奖线
	TotalWin         int64     `json:"total_win"`         // 总中奖金额
	ScatterCount     int       `json:"scatter_count"`     // 分散符号数量
	Features         []Feature `json:"features"`          // 触发的功能
	SymbolsToAnimate []Cell    `json:"symbols_to_animate"` // 需要播放中奖动画的位置
}

// FreeSpinsAwarded 返回本次结果奖励的免费次数，0表示未触发
func (o *SpinOutcome) FreeSpinsAwarded() int {
	for _, f := range o.Features {
		if f.Type == FeatureFreeSpins {
			return f.SpinsAwarded
		}
	}
	return 0
}

// Request 转动结果请求
type Request struct {
	SpinID     string `json:"spin_id"`
	BetPerLine int64  `json:"bet_per_line"`
	Lines      int    `json:"lines"`
	TotalBet   int64  `json:"total_bet"`
	ForceWin   bool   `json:"force_win"`
	FreeSpin   bool   `json:"free_spin"`
}

// Provider 结果服务
type Provider interface {
	// Spin 请求一次转动结果，失败时必须返回错误
	Spin(ctx context.Context, req Request) (*SpinOutcome, error)
}

// ProviderFunc 函数适配器
type ProviderFunc func(ctx context.Context, req Request) (*SpinOutcome, error)

// Spin 实现Provider接口
func (f ProviderFunc) Spin(ctx context.Context, req Request) (*SpinOutcome, error) {
	return f(ctx, req)
}

// Validate 校验结果能否被卷轴消费，stripLens为每个卷轴条的长度
func Validate(o *SpinOutcome, stripLens []int) error {
	if o == nil {
		return errors.New(errors.ErrInvalidOutcome, "结果为空")
	}
	if len(o.StopPositions) != len(stripLens) {
		return errors.Newf(errors.ErrInvalidOutcome, "停止位置数量 %d 与卷轴数 %d 不一致", len(o.StopPositions), len(stripLens))
	}
	for i, pos := range o.StopPositions {
		if pos < 0 || pos >= stripLens[i] {
			return errors.Newf(errors.ErrInvalidOutcome, "卷轴 %d 停止位置 %d 越界 [0,%d)", i, pos, stripLens[i])
		}
	}
	if o.TotalWin < 0 {
		return errors.Newf(errors.ErrInvalidOutcome, "总中奖金额为负: %d", o.TotalWin)
	}
	var sum int64
	for _, line := range o.WinningLines {
		if line.WinAmount < 0 {
			return errors.New(errors.ErrInvalidOutcome, fmt.Sprintf("支付线 %d 中奖金额为负", line.LineIndex))
		}
		sum += line.WinAmount
	}
	if sum > o.TotalWin {
		return errors.Newf(errors.ErrInvalidOutcome, "中奖线合计 %d 超过总中奖 %d", sum, o.TotalWin)
	}
	return nil
}
