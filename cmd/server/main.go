package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"sync"
	"syscall"

	"github.com/wfunc/slot-client/internal/api"
	"github.com/wfunc/slot-client/internal/config"
	"github.com/wfunc/slot-client/internal/errors"
	"github.com/wfunc/slot-client/internal/game"
	"github.com/wfunc/slot-client/internal/logger"
	"github.com/wfunc/slot-client/internal/websocket"
	"go.uber.org/zap"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Server 服务器实例
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	game   *game.Game
	hub    *websocket.Hub
	bridge *websocket.Bridge
	http   *http.Server

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func main() {
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
	)
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	// 加载配置
	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Get()

	// 初始化日志系统
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Cleanup()

	server, err := NewServer(cfg)
	if err != nil {
		logger.GetLogger().Fatal("服务器初始化失败", zap.Error(err))
	}
	if err := server.Start(); err != nil {
		logger.GetLogger().Fatal("服务器启动失败", zap.Error(err))
	}

	server.WaitForShutdown()
	if err := server.Shutdown(); err != nil {
		logger.GetLogger().Error("服务器关闭失败", zap.Error(err))
		os.Exit(1)
	}
	logger.GetLogger().Info("服务器已安全关闭")
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) (*Server, error) {
	log := logger.GetLogger()
	g, err := game.New(cfg.Game, logger.WithModule("game"))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrUnknown, "创建游戏失败")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:    cfg,
		logger: log,
		game:   g,
		hub:    websocket.NewHub(cfg.WebSocket, logger.WithModule("websocket")),
		ctx:    ctx,
		cancel: cancel,
	}
	s.bridge = websocket.NewBridge(g.Bus(), s.hub)

	router := api.NewRouter(g, s.hub, cfg, logger.WithModule("http"))
	s.http = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s, nil
}

// Start 启动游戏循环、WebSocket Hub和HTTP服务
func (s *Server) Start() error {
	s.logger.Info("正在启动老虎机客户端核心...",
		zap.String("version", Version),
		zap.String("mode", s.cfg.Server.Mode))

	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return errors.Wrap(err, errors.ErrUnknown, "监听端口失败")
	}

	s.wg.Add(3)
	go func() {
		defer s.wg.Done()
		if err := s.game.Run(s.ctx); err != nil && err != context.Canceled {
			s.logger.Error("游戏循环异常退出", zap.Error(err))
		}
	}()
	go func() {
		defer s.wg.Done()
		s.hub.Run(s.ctx)
	}()
	go func() {
		defer s.wg.Done()
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP服务异常退出", zap.Error(err))
		}
	}()

	// 监听配置变化
	config.Watch(func(newCfg *config.Config) {
		s.logger.Info("配置已更新，正在重新加载...")
		s.reloadConfig(newCfg)
	})

	s.logger.Info("服务器启动成功",
		zap.String("http", s.http.Addr),
		zap.String("websocket", s.cfg.WebSocket.Path))
	return nil
}

// WaitForShutdown 等待关闭信号
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	sig := <-sigCh
	s.logger.Info("收到退出信号", zap.String("signal", sig.String()))
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() error {
	s.logger.Info("正在优雅关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	// 先停止接收新请求，再停止游戏循环
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP服务关闭失败", zap.Error(err))
	}
	s.bridge.Close()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("所有服务已正常关闭")
	case <-shutdownCtx.Done():
		s.logger.Warn("关闭超时，强制退出")
		return errors.New(errors.ErrTimeout, "关闭超时")
	}

	s.game.Close()
	return nil
}

// reloadConfig 热更新日志级别和游戏时序（见 Game.ApplyConfig），其余配置需重启生效
func (s *Server) reloadConfig(newCfg *config.Config) {
	logger.SetLevel(newCfg.Log.Level)

	err := s.game.Do(s.ctx, func() error {
		s.game.ApplyConfig(newCfg.Game)
		return nil
	})
	if err != nil {
		s.logger.Warn("应用游戏配置失败", zap.Error(err))
		return
	}
	s.logger.Info("配置重新加载完成",
		zap.String("log_level", newCfg.Log.Level),
		zap.Duration("base_duration", newCfg.Game.Spin.BaseDuration),
		zap.Duration("autoplay_delay", newCfg.Game.Autoplay.Delay))
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("老虎机客户端核心\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
