package outcome

import (
	"math"
	"sort"
)

// Paytable 赔率表，符号 -> 连续个数 -> 单线投注倍数
type Paytable map[string]map[int]float64

// Evaluator 根据窗口符号计算中奖线和分散符号
type Evaluator struct {
	Paylines      [][]int     // 每条支付线在各卷轴上的行号
	Paytable      Paytable
	WildSymbol    string
	ScatterSymbol string
	Awards        map[int]int // 分散数量 -> 免费次数
}

// Window 根据停止位置取出可见窗口，window[reel][row]
func Window(strips [][]string, stops []int, rows int) [][]string {
	window := make([][]string, len(strips))
	for i, strip := range strips {
		window[i] = make([]string, rows)
		if len(strip) == 0 || i >= len(stops) {
			continue
		}
		for r := 0; r < rows; r++ {
			window[i][r] = strip[(stops[i]+r)%len(strip)]
		}
	}
	return window
}

// Evaluate 计算一次转动的全部中奖信息
func (e *Evaluator) Evaluate(window [][]string, betPerLine int64) *SpinOutcome {
	out := &SpinOutcome{}
	animate := make(map[Cell]struct{})

	for lineIndex, rows := range e.Paylines {
		line, cells := e.evaluateLine(window, rows, lineIndex, betPerLine)
		if line == nil {
			continue
		}
		out.WinningLines = append(out.WinningLines, *line)
		out.TotalWin += line.WinAmount
		for _, c := range cells {
			animate[c] = struct{}{}
		}
	}

	// 分散符号不需要在支付线上
	var scatterCells []Cell
	for reel, col := range window {
		for row, sym := range col {
			if sym == e.ScatterSymbol {
				scatterCells = append(scatterCells, Cell{Reel: reel, Row: row})
			}
		}
	}
	out.ScatterCount = len(scatterCells)
	if spins := e.awardFor(out.ScatterCount); spins > 0 {
		out.Features = append(out.Features, Feature{Type: FeatureFreeSpins, SpinsAwarded: spins})
		for _, c := range scatterCells {
			animate[c] = struct{}{}
		}
	}

	out.SymbolsToAnimate = sortedCells(animate)
	return out
}

// evaluateLine 从左到右检查连续符号，WILD替代除分散外的任何符号
func (e *Evaluator) evaluateLine(window [][]string, rows []int, lineIndex int, betPerLine int64) (*WinLine, []Cell) {
	if len(rows) == 0 || len(rows) > len(window) {
		return nil, nil
	}
	symbols := make([]string, len(rows))
	for reel, row := range rows {
		if row < 0 || row >= len(window[reel]) {
			return nil, nil
		}
		symbols[reel] = window[reel][row]
	}

	// 第一个非Wild符号决定本线符号
	target := ""
	for _, s := range symbols {
		if s != e.WildSymbol {
			target = s
			break
		}
	}
	if target == "" || target == e.ScatterSymbol {
		return nil, nil
	}

	count := 0
	for _, s := range symbols {
		if s != target && s != e.WildSymbol {
			break
		}
		count++
	}

	mult := e.multiplier(target, count)
	if mult <= 0 {
		return nil, nil
	}
	cells := make([]Cell, count)
	for reel := 0; reel < count; reel++ {
		cells[reel] = Cell{Reel: reel, Row: rows[reel]}
	}
	return &WinLine{
		LineIndex:  lineIndex,
		SymbolID:   target,
		MatchCount: count,
		WinAmount:  int64(math.Round(float64(betPerLine) * mult)),
	}, cells
}

// multiplier 取不超过count的最长赔付项
func (e *Evaluator) multiplier(symbol string, count int) float64 {
	pays := e.Paytable[symbol]
	for c := count; c >= 2; c-- {
		if m, ok := pays[c]; ok {
			return m
		}
	}
	return 0
}

// awardFor 取不超过count的最大奖励档位
func (e *Evaluator) awardFor(count int) int {
	best, spins := -1, 0
	for need, n := range e.Awards {
		if count >= need && need > best {
			best, spins = need, n
		}
	}
	return spins
}

func sortedCells(set map[Cell]struct{}) []Cell {
	cells := make([]Cell, 0, len(set))
	for c := range set {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Reel != cells[j].Reel {
			return cells[i].Reel < cells[j].Reel
		}
		return cells[i].Row < cells[j].Row
	})
	return cells
}
