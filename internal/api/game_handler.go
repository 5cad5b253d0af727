package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/slot-client/internal/game"
	"github.com/wfunc/slot-client/internal/websocket"
	"go.uber.org/zap"
)

// SuccessResponse 通用成功响应
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: data})
}

// getState 状态快照
func (r *Router) getState(c *gin.Context) {
	var status game.Status
	err := r.do(c.Request.Context(), func() error {
		status = r.game.Status()
		return nil
	})
	if err != nil {
		r.fail(c, err)
		return
	}
	ok(c, status)
}

func (r *Router) doSpin(ctx context.Context) (*game.SpinResponse, error) {
	var resp game.SpinResponse
	err := r.do(ctx, func() error {
		id, err := r.game.Spin()
		if err != nil {
			return err
		}
		s := r.game.State()
		resp = game.SpinResponse{SpinID: id, Balance: s.Balance, TotalBet: s.CurrentTotalBet}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// spin 发起转动，扣款后立即返回，结果通过WebSocket推送
func (r *Router) spin(c *gin.Context) {
	resp, err := r.doSpin(c.Request.Context())
	if err != nil {
		r.fail(c, err)
		return
	}
	ok(c, resp)
}

// setBet 修改单线投注
func (r *Router) setBet(c *gin.Context) {
	var req game.BetRequest
	if !r.bind(c, &req) {
		return
	}
	var state interface{}
	err := r.do(c.Request.Context(), func() error {
		if err := r.game.SetBetPerLine(req.BetPerLine); err != nil {
			return err
		}
		state = r.game.State()
		return nil
	})
	if err != nil {
		r.fail(c, err)
		return
	}
	ok(c, state)
}

// setTurbo 开关加速模式
func (r *Router) setTurbo(c *gin.Context) {
	var req game.ToggleRequest
	if !r.bind(c, &req) {
		return
	}
	err := r.do(c.Request.Context(), func() error {
		r.game.SetTurbo(req.Enabled)
		return nil
	})
	if err != nil {
		r.fail(c, err)
		return
	}
	ok(c, req)
}

// startAutoplay 开始自动旋转
func (r *Router) startAutoplay(c *gin.Context) {
	var req game.AutoplayRequest
	if !r.bind(c, &req) {
		return
	}
	err := r.do(c.Request.Context(), func() error {
		return r.game.StartAutoplay(req.Spins)
	})
	if err != nil {
		r.fail(c, err)
		return
	}
	ok(c, req)
}

// stopAutoplay 停止自动旋转，当前转动完成后生效
func (r *Router) stopAutoplay(c *gin.Context) {
	err := r.do(c.Request.Context(), func() error {
		r.game.StopAutoplay()
		return nil
	})
	if err != nil {
		r.fail(c, err)
		return
	}
	ok(c, nil)
}

// setDebug 开关调试模式
func (r *Router) setDebug(c *gin.Context) {
	var req game.ToggleRequest
	if !r.bind(c, &req) {
		return
	}
	err := r.do(c.Request.Context(), func() error {
		r.game.SetDebug(req.Enabled)
		return nil
	})
	if err != nil {
		r.fail(c, err)
		return
	}
	ok(c, req)
}

// setForceWin 强制下一次转动中奖
func (r *Router) setForceWin(c *gin.Context) {
	var req game.ToggleRequest
	if !r.bind(c, &req) {
		return
	}
	err := r.do(c.Request.Context(), func() error {
		return r.game.SetForceWin(req.Enabled)
	})
	if err != nil {
		r.fail(c, err)
		return
	}
	ok(c, req)
}

// setFailureRate 设置模拟结果服务的故障概率
func (r *Router) setFailureRate(c *gin.Context) {
	var req game.FailureRateRequest
	if !r.bind(c, &req) {
		return
	}
	err := r.do(c.Request.Context(), func() error {
		return r.game.SetOutcomeFailureRate(req.Rate)
	})
	if err != nil {
		r.fail(c, err)
		return
	}
	ok(c, req)
}

// handleSocketMessage 处理WebSocket上行命令，ctx 随连接结束取消
func (r *Router) handleSocketMessage(ctx context.Context, client *websocket.Client, msg *websocket.Message) *websocket.Message {
	var (
		data interface{}
		err  error
	)
	switch msg.Type {
	case "state":
		var status game.Status
		err = r.do(ctx, func() error {
			status = r.game.Status()
			return nil
		})
		data = status
	case "spin":
		data, err = r.doSpin(ctx)
	default:
		data = map[string]string{"error": "不支持的消息类型: " + msg.Type}
		reply, _ := websocket.NewMessage(websocket.MessageTypeError, data)
		return reply
	}

	if err != nil {
		r.log.Debug("WebSocket命令失败", zap.String("client_id", client.ID), zap.String("type", msg.Type), zap.Error(err))
		reply, _ := websocket.NewMessage(websocket.MessageTypeError, map[string]string{"error": err.Error()})
		return reply
	}
	reply, encErr := websocket.NewMessage(msg.Type, data)
	if encErr != nil {
		r.log.Error("WebSocket回复编码失败", zap.Error(encErr))
		return nil
	}
	return reply
}
