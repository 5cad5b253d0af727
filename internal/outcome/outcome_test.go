package outcome

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/slot-client/internal/config"
	"github.com/wfunc/slot-client/internal/errors"
	"go.uber.org/zap/zaptest"
)

func testEvaluator() *Evaluator {
	return &Evaluator{
		Paylines: [][]int{{1, 1, 1}, {0, 0, 0}},
		Paytable: Paytable{
			"A": {3: 5},
			"B": {3: 2},
		},
		WildSymbol:    "W",
		ScatterSymbol: "S",
		Awards:        map[int]int{3: 5, 4: 8},
	}
}

func TestWindow(t *testing.T) {
	strips := [][]string{{"s0", "s1", "s2", "s3", "s4"}}

	tests := []struct {
		name string
		stop int
		want []string
	}{
		{name: "从头开始", stop: 0, want: []string{"s0", "s1", "s2"}},
		{name: "跨越卷轴条末尾", stop: 4, want: []string{"s4", "s0", "s1"}},
		{name: "中间位置", stop: 2, want: []string{"s2", "s3", "s4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Window(strips, []int{tt.stop}, 3)
			assert.Equal(t, tt.want, w[0])
		})
	}
}

func TestEvaluator_Evaluate(t *testing.T) {
	e := testEvaluator()
	window := [][]string{
		{"B", "A", "S"},
		{"B", "W", "S"},
		{"C", "A", "S"},
	}

	out := e.Evaluate(window, 2)

	require.Len(t, out.WinningLines, 1)
	assert.Equal(t, WinLine{LineIndex: 0, SymbolID: "A", MatchCount: 3, WinAmount: 10}, out.WinningLines[0])
	assert.Equal(t, int64(10), out.TotalWin)
	assert.Equal(t, 3, out.ScatterCount)
	assert.Equal(t, 5, out.FreeSpinsAwarded())
	assert.Equal(t, []Cell{
		{Reel: 0, Row: 1}, {Reel: 0, Row: 2},
		{Reel: 1, Row: 1}, {Reel: 1, Row: 2},
		{Reel: 2, Row: 1}, {Reel: 2, Row: 2},
	}, out.SymbolsToAnimate)
}

func TestEvaluator_Lines(t *testing.T) {
	e := testEvaluator()

	tests := []struct {
		name    string
		middle  []string
		wantWin int64
	}{
		{name: "Wild开头", middle: []string{"W", "W", "A"}, wantWin: 5},
		{name: "分散符号不计线", middle: []string{"S", "W", "S"}, wantWin: 0},
		{name: "全部Wild不计线", middle: []string{"W", "W", "W"}, wantWin: 0},
		{name: "中断", middle: []string{"A", "B", "A"}, wantWin: 0},
		{name: "B三连", middle: []string{"B", "B", "W"}, wantWin: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			window := [][]string{
				{"X", tt.middle[0], "X"},
				{"Y", tt.middle[1], "Y"},
				{"Z", tt.middle[2], "Z"},
			}
			out := e.Evaluate(window, 1)
			assert.Equal(t, tt.wantWin, out.TotalWin)
		})
	}
}

func TestEvaluator_AwardTiers(t *testing.T) {
	e := testEvaluator()
	assert.Equal(t, 0, e.awardFor(2))
	assert.Equal(t, 5, e.awardFor(3))
	assert.Equal(t, 8, e.awardFor(4))
	assert.Equal(t, 8, e.awardFor(6))
}

func TestValidate(t *testing.T) {
	lens := []int{20, 20, 20}

	tests := []struct {
		name    string
		out     *SpinOutcome
		wantErr bool
	}{
		{name: "有效结果", out: &SpinOutcome{StopPositions: []int{0, 5, 19}, TotalWin: 10, WinningLines: []WinLine{{WinAmount: 10}}}},
		{name: "空结果", out: nil, wantErr: true},
		{name: "数量不一致", out: &SpinOutcome{StopPositions: []int{0, 1}}, wantErr: true},
		{name: "停止位置越界", out: &SpinOutcome{StopPositions: []int{0, 20, 1}}, wantErr: true},
		{name: "负数停止位置", out: &SpinOutcome{StopPositions: []int{-1, 0, 1}}, wantErr: true},
		{name: "中奖线合计超过总额", out: &SpinOutcome{StopPositions: []int{0, 0, 0}, TotalWin: 5, WinningLines: []WinLine{{WinAmount: 10}}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.out, lens)
			if tt.wantErr {
				assert.True(t, errors.Is(err, errors.ErrInvalidOutcome))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func testMock(t *testing.T) *MockProvider {
	cfg := config.Default().Game
	cfg.Mock.Latency = 0
	cfg.Mock.Seed = 42
	return NewMockProvider(cfg, zaptest.NewLogger(t))
}

func TestMockProvider_Spin(t *testing.T) {
	p := testMock(t)
	cfg := config.Default().Game

	for i := 0; i < 50; i++ {
		out, err := p.Spin(context.Background(), Request{SpinID: "s", BetPerLine: 1, Lines: 10, TotalBet: 10})
		require.NoError(t, err)
		assert.Equal(t, "s", out.SpinID)

		lens := make([]int, len(cfg.Reels.Strips))
		for j, s := range cfg.Reels.Strips {
			lens[j] = len(s)
		}
		assert.NoError(t, Validate(out, lens))
	}
}

func TestMockProvider_ForceWin(t *testing.T) {
	p := testMock(t)
	for i := 0; i < 10; i++ {
		out, err := p.Spin(context.Background(), Request{SpinID: "f", BetPerLine: 1, Lines: 10, TotalBet: 10, ForceWin: true})
		require.NoError(t, err)
		assert.Greater(t, out.TotalWin, int64(0))
		assert.NotEmpty(t, out.WinningLines)
	}
}

func TestMockProvider_Failure(t *testing.T) {
	p := testMock(t)
	p.SetFailureRate(1)

	_, err := p.Spin(context.Background(), Request{SpinID: "x"})
	assert.True(t, errors.Is(err, errors.ErrOutcomeFetch))
}

func TestMockProvider_ContextTimeout(t *testing.T) {
	p := testMock(t)
	p.SetLatency(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Spin(ctx, Request{SpinID: "slow"})
	assert.True(t, errors.Is(err, errors.ErrOutcomeTimeout))
}
