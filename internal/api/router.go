package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wfunc/slot-client/internal/config"
	"github.com/wfunc/slot-client/internal/errors"
	"github.com/wfunc/slot-client/internal/game"
	"github.com/wfunc/slot-client/internal/middleware"
	"github.com/wfunc/slot-client/internal/websocket"
	"go.uber.org/zap"
)

// 命令在游戏循环上执行的最长等待时间
const commandTimeout = 5 * time.Second

// Router API路由器
type Router struct {
	engine *gin.Engine
	game   *game.Game
	hub    *websocket.Hub
	log    *zap.Logger
}

// NewRouter 创建路由器，hub 为 nil 时不注册 WebSocket 路由
func NewRouter(g *game.Game, hub *websocket.Hub, cfg *config.Config, log *zap.Logger) *Router {
	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()

	// 全局中间件
	engine.Use(middleware.Recovery(log))
	engine.Use(middleware.Logger(log))
	engine.Use(middleware.Metrics())
	engine.Use(middleware.CORS())

	router := &Router{
		engine: engine,
		game:   g,
		hub:    hub,
		log:    log.With(zap.String("component", "api")),
	}
	if hub != nil {
		hub.SetMessageHandler(router.handleSocketMessage)
	}

	router.setupRoutes(cfg.WebSocket.Path)
	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes(wsPath string) {
	r.engine.GET("/health", r.healthCheck)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.engine.Group("/api")
	{
		api.GET("/state", r.getState)
		api.POST("/spin", r.spin)
		api.POST("/bet", r.setBet)
		api.POST("/turbo", r.setTurbo)
		api.POST("/autoplay", r.startAutoplay)
		api.DELETE("/autoplay", r.stopAutoplay)

		debug := api.Group("/debug")
		{
			debug.POST("", r.setDebug)
			debug.POST("/force-win", r.setForceWin)
			debug.POST("/failure-rate", r.setFailureRate)
		}
	}

	if r.hub != nil {
		r.engine.GET(wsPath, gin.WrapH(r.hub))
	}

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errors.NewErrorResponse(errors.New(errors.ErrNotFound, "接口不存在")))
	})
}

// Handler 获取HTTP处理器
func (r *Router) Handler() http.Handler {
	return r.engine
}

// do 在游戏循环上执行命令
func (r *Router) do(ctx context.Context, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	return r.game.Do(ctx, fn)
}

// fail 按错误码写出统一错误响应
func (r *Router) fail(c *gin.Context, err error) {
	appErr := errors.Wrap(err, errors.ErrUnknown)
	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		r.log.Error("请求处理失败", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, errors.NewErrorResponse(appErr))
}

// bind 解析请求体，失败时已写出错误响应
func (r *Router) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		r.fail(c, errors.Wrap(err, errors.ErrInvalidParam, "请求参数错误"))
		return false
	}
	return true
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	err := r.do(c.Request.Context(), func() error { return nil })
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"message": "游戏循环无响应",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "服务运行正常",
	})
}
