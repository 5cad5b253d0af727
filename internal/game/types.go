package game

import (
	"github.com/wfunc/slot-client/internal/event"
	"github.com/wfunc/slot-client/internal/state"
)

// Status 游戏状态概览
type Status struct {
	State          state.GameState   `json:"state"`
	Phase          string            `json:"phase"`
	SpinID         string            `json:"spin_id,omitempty"`
	Autoplay       bool              `json:"autoplay"`
	FreeSpinsState string            `json:"free_spins_state"`
	Reels          []event.ReelFrame `json:"reels"`
}

// SpinResponse 转动响应
type SpinResponse struct {
	SpinID   string `json:"spin_id"`
	Balance  int64  `json:"balance"`
	TotalBet int64  `json:"total_bet"`
}

// BetRequest 修改投注请求
type BetRequest struct {
	BetPerLine int64 `json:"bet_per_line" binding:"required,min=1"`
}

// ToggleRequest 开关请求
type ToggleRequest struct {
	Enabled bool `json:"enabled"`
}

// AutoplayRequest 自动旋转请求
type AutoplayRequest struct {
	Spins int `json:"spins" binding:"required,min=1"`
}

// FailureRateRequest 故障注入请求
type FailureRateRequest struct {
	Rate float64 `json:"rate" binding:"gte=0,lte=1"`
}
