package state

import "github.com/wfunc/slot-client/internal/outcome"

// 状态字段名，同时是 state.changed.<key> 的后缀
const (
	KeyBalance                = "balance"
	KeyCurrentBetPerLine      = "currentBetPerLine"
	KeyCurrentTotalBet        = "currentTotalBet"
	KeyLastTotalWin           = "lastTotalWin"
	KeyLines                  = "lines"
	KeyIsSpinning             = "isSpinning"
	KeyIsTransitioning        = "isTransitioning"
	KeyIsFeatureTransitioning = "isFeatureTransitioning"
	KeyIsAutoplaying          = "isAutoplaying"
	KeyIsTurboMode            = "isTurboMode"
	KeyIsInFreeSpins          = "isInFreeSpins"
	KeyIsDebugMode            = "isDebugMode"
	KeyForceWin               = "forceWin"
	KeyAutoplaySpinsRemaining = "autoplaySpinsRemaining"
	KeyFreeSpinsRemaining     = "freeSpinsRemaining"
	KeyTotalFreeSpinsWin      = "totalFreeSpinsWin"
	KeyWinningLinesInfo       = "winningLinesInfo"
)

// GameState 游戏共享状态
type GameState struct {
	Balance           int64 `json:"balance" diff:"balance"`
	CurrentBetPerLine int64 `json:"currentBetPerLine" diff:"currentBetPerLine"`
	CurrentTotalBet   int64 `json:"currentTotalBet" diff:"currentTotalBet"`
	LastTotalWin      int64 `json:"lastTotalWin" diff:"lastTotalWin"`
	Lines             int   `json:"lines" diff:"lines"`

	IsSpinning             bool `json:"isSpinning" diff:"isSpinning"`
	IsTransitioning        bool `json:"isTransitioning" diff:"isTransitioning"`
	IsFeatureTransitioning bool `json:"isFeatureTransitioning" diff:"isFeatureTransitioning"`
	IsAutoplaying          bool `json:"isAutoplaying" diff:"isAutoplaying"`
	IsTurboMode            bool `json:"isTurboMode" diff:"isTurboMode"`
	IsInFreeSpins          bool `json:"isInFreeSpins" diff:"isInFreeSpins"`
	IsDebugMode            bool `json:"isDebugMode" diff:"isDebugMode"`
	ForceWin               bool `json:"forceWin" diff:"forceWin"`

	AutoplaySpinsRemaining int   `json:"autoplaySpinsRemaining" diff:"autoplaySpinsRemaining"`
	FreeSpinsRemaining     int   `json:"freeSpinsRemaining" diff:"freeSpinsRemaining"`
	TotalFreeSpinsWin      int64 `json:"totalFreeSpinsWin" diff:"totalFreeSpinsWin"`

	// 每次转动整体替换，不原地修改
	WinningLinesInfo []outcome.WinLine `json:"winningLinesInfo" diff:"winningLinesInfo"`
}

// ReadyToSpin 是否可以开始新的转动（不含余额检查）
func (s GameState) ReadyToSpin() bool {
	return !s.IsSpinning && !s.IsTransitioning && !s.IsFeatureTransitioning
}

// CanAfford 余额是否足够一次投注
func (s GameState) CanAfford() bool {
	return s.CurrentTotalBet <= s.Balance
}

// Clone 深拷贝
func (s GameState) Clone() GameState {
	c := s
	if s.WinningLinesInfo != nil {
		c.WinningLinesInfo = append([]outcome.WinLine(nil), s.WinningLinesInfo...)
	}
	return c
}

// Field 按字段名取值，用于单字段变更事件
func (s GameState) Field(key string) interface{} {
	switch key {
	case KeyBalance:
		return s.Balance
	case KeyCurrentBetPerLine:
		return s.CurrentBetPerLine
	case KeyCurrentTotalBet:
		return s.CurrentTotalBet
	case KeyLastTotalWin:
		return s.LastTotalWin
	case KeyLines:
		return s.Lines
	case KeyIsSpinning:
		return s.IsSpinning
	case KeyIsTransitioning:
		return s.IsTransitioning
	case KeyIsFeatureTransitioning:
		return s.IsFeatureTransitioning
	case KeyIsAutoplaying:
		return s.IsAutoplaying
	case KeyIsTurboMode:
		return s.IsTurboMode
	case KeyIsInFreeSpins:
		return s.IsInFreeSpins
	case KeyIsDebugMode:
		return s.IsDebugMode
	case KeyForceWin:
		return s.ForceWin
	case KeyAutoplaySpinsRemaining:
		return s.AutoplaySpinsRemaining
	case KeyFreeSpinsRemaining:
		return s.FreeSpinsRemaining
	case KeyTotalFreeSpinsWin:
		return s.TotalFreeSpinsWin
	case KeyWinningLinesInfo:
		return append([]outcome.WinLine(nil), s.WinningLinesInfo...)
	default:
		return nil
	}
}
