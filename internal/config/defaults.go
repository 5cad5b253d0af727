package config

// DefaultSymbols 默认符号集（经典水果机）
func DefaultSymbols() []string {
	return []string{
		"CHERRY", "LEMON", "ORANGE", "PLUM", "GRAPE",
		"WATERMELON", "BAR", "SEVEN", "WILD", "SCATTER",
	}
}

// DefaultStrips 默认卷轴条，每条20格
func DefaultStrips() [][]string {
	return [][]string{
		{
			"CHERRY", "LEMON", "ORANGE", "PLUM", "GRAPE",
			"WATERMELON", "BAR", "SEVEN", "WILD", "SCATTER",
			"CHERRY", "LEMON", "ORANGE", "PLUM", "GRAPE",
			"CHERRY", "LEMON", "BAR", "ORANGE", "PLUM",
		},
		{
			"LEMON", "ORANGE", "PLUM", "GRAPE", "WATERMELON",
			"BAR", "SEVEN", "WILD", "SCATTER", "CHERRY",
			"LEMON", "ORANGE", "PLUM", "GRAPE", "WATERMELON",
			"CHERRY", "ORANGE", "LEMON", "PLUM", "GRAPE",
		},
		{
			"ORANGE", "PLUM", "GRAPE", "WATERMELON", "BAR",
			"SEVEN", "WILD", "SCATTER", "CHERRY", "LEMON",
			"ORANGE", "PLUM", "GRAPE", "WATERMELON", "BAR",
			"CHERRY", "LEMON", "GRAPE", "ORANGE", "PLUM",
		},
		{
			"PLUM", "GRAPE", "WATERMELON", "BAR", "SEVEN",
			"WILD", "SCATTER", "CHERRY", "LEMON", "ORANGE",
			"PLUM", "GRAPE", "WATERMELON", "BAR", "SEVEN",
			"CHERRY", "LEMON", "ORANGE", "GRAPE", "PLUM",
		},
		{
			"GRAPE", "WATERMELON", "BAR", "SEVEN", "WILD",
			"SCATTER", "CHERRY", "LEMON", "ORANGE", "PLUM",
			"GRAPE", "WATERMELON", "BAR", "SEVEN", "CHERRY",
			"LEMON", "ORANGE", "PLUM", "CHERRY", "GRAPE",
		},
	}
}

// DefaultPaylines 默认支付线（每个卷轴上的行号）
func DefaultPaylines() [][]int {
	return [][]int{
		{1, 1, 1, 1, 1}, // 中线
		{0, 0, 0, 0, 0}, // 上线
		{2, 2, 2, 2, 2}, // 下线
		{0, 1, 2, 1, 0}, // V型
		{2, 1, 0, 1, 2}, // 倒V型
		{0, 0, 1, 2, 2}, // 左上到右下
		{2, 2, 1, 0, 0}, // 左下到右上
		{1, 0, 0, 0, 1},
		{1, 2, 2, 2, 1},
		{0, 1, 0, 1, 0}, // 之字形
	}
}

// DefaultPaytable 默认赔率表（单线投注倍数）
func DefaultPaytable() []PayConfig {
	return []PayConfig{
		{Symbol: "CHERRY", Count: 3, Multiplier: 5},
		{Symbol: "CHERRY", Count: 4, Multiplier: 10},
		{Symbol: "CHERRY", Count: 5, Multiplier: 25},
		{Symbol: "LEMON", Count: 3, Multiplier: 5},
		{Symbol: "LEMON", Count: 4, Multiplier: 12},
		{Symbol: "LEMON", Count: 5, Multiplier: 30},
		{Symbol: "ORANGE", Count: 3, Multiplier: 8},
		{Symbol: "ORANGE", Count: 4, Multiplier: 15},
		{Symbol: "ORANGE", Count: 5, Multiplier: 40},
		{Symbol: "PLUM", Count: 3, Multiplier: 8},
		{Symbol: "PLUM", Count: 4, Multiplier: 20},
		{Symbol: "PLUM", Count: 5, Multiplier: 50},
		{Symbol: "GRAPE", Count: 3, Multiplier: 10},
		{Symbol: "GRAPE", Count: 4, Multiplier: 25},
		{Symbol: "GRAPE", Count: 5, Multiplier: 60},
		{Symbol: "WATERMELON", Count: 3, Multiplier: 15},
		{Symbol: "WATERMELON", Count: 4, Multiplier: 40},
		{Symbol: "WATERMELON", Count: 5, Multiplier: 100},
		{Symbol: "BAR", Count: 3, Multiplier: 25},
		{Symbol: "BAR", Count: 4, Multiplier: 75},
		{Symbol: "BAR", Count: 5, Multiplier: 200},
		{Symbol: "SEVEN", Count: 3, Multiplier: 50},
		{Symbol: "SEVEN", Count: 4, Multiplier: 150},
		{Symbol: "SEVEN", Count: 5, Multiplier: 500},
	}
}
