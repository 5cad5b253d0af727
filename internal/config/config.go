package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Log       LogConfig       `mapstructure:"log"`
	Game      GameConfig      `mapstructure:"game"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"gt=0,lt=65536"`
	Mode            string        `mapstructure:"mode" validate:"oneof=debug release test"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// WebSocketConfig WebSocket配置
type WebSocketConfig struct {
	Path            string        `mapstructure:"path"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size" validate:"gt=0"`
	WriteBufferSize int           `mapstructure:"write_buffer_size" validate:"gt=0"`
	SendQueueSize   int           `mapstructure:"send_queue_size" validate:"gt=0"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level   string            `mapstructure:"level"`
	Format  string            `mapstructure:"format"`
	Output  string            `mapstructure:"output"`
	File    LogFileConfig     `mapstructure:"file"`
	Modules map[string]string `mapstructure:"modules"`
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// GameConfig 游戏配置
type GameConfig struct {
	Reels     ReelsConfig     `mapstructure:"reels"`
	Spin      SpinConfig      `mapstructure:"spin"`
	Bet       BetConfig       `mapstructure:"bet"`
	Paylines  [][]int         `mapstructure:"paylines" validate:"min=1"`
	Paytable  []PayConfig     `mapstructure:"paytable" validate:"min=1,dive"`
	WinTiers  WinTierConfig   `mapstructure:"win_tiers"`
	Autoplay  AutoplayConfig  `mapstructure:"autoplay"`
	FreeSpins FreeSpinsConfig `mapstructure:"free_spins"`
	Animation AnimationConfig `mapstructure:"animation"`
	Tick      TickConfig      `mapstructure:"tick"`
	Mock      MockConfig      `mapstructure:"mock"`
}

// ReelsConfig 卷轴配置
type ReelsConfig struct {
	Count        int           `mapstructure:"count" validate:"gt=0"`
	VisibleRows  int           `mapstructure:"visible_rows" validate:"gt=0"`
	ReelWidth    float64       `mapstructure:"reel_width" validate:"gt=0"`
	SymbolHeight float64       `mapstructure:"symbol_height" validate:"gt=0"`
	MaxSpeed     float64       `mapstructure:"max_speed" validate:"gt=0"`    // 符号/秒
	Acceleration float64       `mapstructure:"acceleration" validate:"gt=0"` // 符号/秒²
	StopTween    time.Duration `mapstructure:"stop_tween" validate:"gt=0"`
	Symbols      []string      `mapstructure:"symbols" validate:"min=1"` // 已加载贴图的符号
	Strips       [][]string    `mapstructure:"strips"`
}

// SpinConfig 转动时序配置
type SpinConfig struct {
	BaseDuration   time.Duration `mapstructure:"base_duration" validate:"gt=0"`
	Stagger        time.Duration `mapstructure:"stagger" validate:"gte=0"`
	TurboScale     float64       `mapstructure:"turbo_scale" validate:"gt=0,lt=1"`
	OutcomeTimeout time.Duration `mapstructure:"outcome_timeout" validate:"gt=0"`
}

// BetConfig 投注配置
type BetConfig struct {
	InitialBalance int64 `mapstructure:"initial_balance" validate:"gte=0"`
	BetPerLine     int64 `mapstructure:"bet_per_line" validate:"gt=0"`
	MinBetPerLine  int64 `mapstructure:"min_bet_per_line" validate:"gt=0"`
	MaxBetPerLine  int64 `mapstructure:"max_bet_per_line" validate:"gtefield=MinBetPerLine"`
}

// PayConfig 赔率表项
type PayConfig struct {
	Symbol     string  `mapstructure:"symbol" validate:"required"`
	Count      int     `mapstructure:"count" validate:"gte=2"`
	Multiplier float64 `mapstructure:"multiplier" validate:"gt=0"` // 单线投注倍数
}

// WinTierConfig 中奖等级阈值（总投注倍数）
type WinTierConfig struct {
	Big  float64 `mapstructure:"big" validate:"gt=0"`
	Mega float64 `mapstructure:"mega" validate:"gtfield=Big"`
}

// AutoplayConfig 自动旋转配置
type AutoplayConfig struct {
	Delay    time.Duration `mapstructure:"delay" validate:"gte=0"`
	MaxSpins int           `mapstructure:"max_spins" validate:"gt=0"`
}

// FreeSpinsConfig 免费旋转配置
type FreeSpinsConfig struct {
	Multiplier      int64         `mapstructure:"multiplier" validate:"gte=1"`
	SpinDelay       time.Duration `mapstructure:"spin_delay" validate:"gte=0"`
	RetriggerNotice time.Duration `mapstructure:"retrigger_notice"`
	ScatterSymbol   string        `mapstructure:"scatter_symbol" validate:"required"`
	Awards          map[int]int   `mapstructure:"awards"` // scatter数量 -> 免费次数
}

// AnimationConfig 动画配置
type AnimationConfig struct {
	CueTimeout time.Duration `mapstructure:"cue_timeout" validate:"gt=0"`
}

// TickConfig 游戏循环配置
type TickConfig struct {
	Interval          time.Duration `mapstructure:"interval" validate:"gt=0"`
	FramePushInterval time.Duration `mapstructure:"frame_push_interval" validate:"gt=0"`
}

// MockConfig 模拟结果服务配置
type MockConfig struct {
	Latency     time.Duration `mapstructure:"latency"`
	FailureRate float64       `mapstructure:"failure_rate" validate:"gte=0,lte=1"`
	Seed        uint64        `mapstructure:"seed"`
	WildSymbol  string        `mapstructure:"wild_symbol"`
}

// TotalBet 计算总投注
func (b BetConfig) TotalBet(lines int) int64 {
	return b.BetPerLine * int64(lines)
}

// Scaled 按turbo系数缩放时长
func (s SpinConfig) Scaled(d time.Duration, turbo bool) time.Duration {
	if !turbo {
		return d
	}
	return time.Duration(float64(d) * s.TurboScale)
}

var (
	cfg      *Config
	once     sync.Once
	mu       sync.RWMutex
	v        *viper.Viper
	validate = validator.New()
)

// Init 初始化配置
func Init(configPath string) error {
	var err error
	once.Do(func() {
		v = newViper(configPath)

		if err = v.ReadInConfig(); err != nil {
			// 配置文件不存在时使用默认配置
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return
			}
			err = nil
		}

		var loaded *Config
		if loaded, err = decode(v); err != nil {
			return
		}
		cfg = loaded
	})
	return err
}

// Default 返回默认配置（不读取文件）
func Default() *Config {
	c, err := decode(newViper(""))
	if err != nil {
		panic(fmt.Sprintf("默认配置无效: %v", err))
	}
	return c
}

// Validate 验证配置
func Validate(c *Config) error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("配置验证失败: %w", err)
	}
	g := c.Game
	for i, line := range g.Paylines {
		if len(line) != g.Reels.Count {
			return fmt.Errorf("配置验证失败: 支付线 %d 长度 %d 与卷轴数 %d 不一致", i, len(line), g.Reels.Count)
		}
		for _, row := range line {
			if row < 0 || row >= g.Reels.VisibleRows {
				return fmt.Errorf("配置验证失败: 支付线 %d 行号 %d 越界", i, row)
			}
		}
	}
	return nil
}

func newViper(configPath string) *viper.Viper {
	nv := viper.New()
	if configPath != "" {
		nv.SetConfigFile(configPath)
	} else {
		nv.SetConfigName("config")
		nv.SetConfigType("yaml")
		nv.AddConfigPath("./config")
		nv.AddConfigPath(".")
	}

	nv.SetEnvPrefix("SLOT_CLIENT")
	nv.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	nv.AutomaticEnv()

	setDefaults(nv)
	return nv
}

func decode(nv *viper.Viper) (*Config, error) {
	c := &Config{}
	if err := nv.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("配置解析失败: %w", err)
	}
	if err := Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// WebSocket默认配置
	v.SetDefault("websocket.path", "/ws")
	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)
	v.SetDefault("websocket.send_queue_size", 256)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_timeout", "60s")
	v.SetDefault("websocket.write_timeout", "10s")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.filename", "slot-client.log")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_age", 30)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.compress", true)

	// 卷轴默认配置
	v.SetDefault("game.reels.count", 5)
	v.SetDefault("game.reels.visible_rows", 3)
	v.SetDefault("game.reels.reel_width", 160.0)
	v.SetDefault("game.reels.symbol_height", 150.0)
	v.SetDefault("game.reels.max_speed", 30.0)
	v.SetDefault("game.reels.acceleration", 120.0)
	v.SetDefault("game.reels.stop_tween", "500ms")
	v.SetDefault("game.reels.symbols", DefaultSymbols())
	v.SetDefault("game.reels.strips", DefaultStrips())

	// 转动时序默认配置
	v.SetDefault("game.spin.base_duration", "1500ms")
	v.SetDefault("game.spin.stagger", "250ms")
	v.SetDefault("game.spin.turbo_scale", 0.4)
	v.SetDefault("game.spin.outcome_timeout", "5s")

	// 投注默认配置
	v.SetDefault("game.bet.initial_balance", 1000)
	v.SetDefault("game.bet.bet_per_line", 1)
	v.SetDefault("game.bet.min_bet_per_line", 1)
	v.SetDefault("game.bet.max_bet_per_line", 100)

	v.SetDefault("game.paylines", DefaultPaylines())
	v.SetDefault("game.paytable", DefaultPaytable())

	v.SetDefault("game.win_tiers.big", 5.0)
	v.SetDefault("game.win_tiers.mega", 20.0)

	v.SetDefault("game.autoplay.delay", "600ms")
	v.SetDefault("game.autoplay.max_spins", 100)

	v.SetDefault("game.free_spins.multiplier", 3)
	v.SetDefault("game.free_spins.spin_delay", "800ms")
	v.SetDefault("game.free_spins.retrigger_notice", "1500ms")
	v.SetDefault("game.free_spins.scatter_symbol", "SCATTER")
	v.SetDefault("game.free_spins.awards", map[int]int{3: 10, 4: 15, 5: 20})

	v.SetDefault("game.animation.cue_timeout", "8s")

	v.SetDefault("game.tick.interval", "16ms")
	v.SetDefault("game.tick.frame_push_interval", "100ms")

	v.SetDefault("game.mock.latency", "150ms")
	v.SetDefault("game.mock.failure_rate", 0.0)
	v.SetDefault("game.mock.wild_symbol", "WILD")
}

// Get 获取配置实例
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Watch 监听配置文件变化
func Watch(callback func(*Config)) {
	if v == nil {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		newCfg, err := decode(v)
		if err != nil {
			fmt.Printf("配置重载失败: %v\n", err)
			return
		}

		mu.Lock()
		cfg = newCfg
		mu.Unlock()

		if callback != nil {
			callback(newCfg)
		}
	})
	v.WatchConfig()
}
