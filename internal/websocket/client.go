package websocket

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// 最大上行消息大小，上行只有控制类小消息
const maxMessageSize = 64 * 1024

// Client WebSocket客户端
type Client struct {
	ID     string          // 客户端ID
	Remote string          // 远端地址
	Hub    *Hub            // Hub引用
	Conn   *websocket.Conn // WebSocket连接
	Send   chan []byte     // 发送通道，只由Hub关闭

	ctx    context.Context
	cancel context.CancelFunc
}

func newClient(hub *Hub, conn *websocket.Conn, remote string) *Client {
	ctx, cancel := context.WithCancel(hub.ctx)
	return &Client{
		ID:     uuid.New().String(),
		Remote: remote,
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan []byte, hub.cfg.SendQueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// readPump 读取消息
func (c *Client) readPump() {
	defer func() {
		c.cancel()
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	cfg := c.Hub.cfg
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(cfg.PongTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(cfg.PongTimeout))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Error("WebSocket读取错误",
					zap.String("client_id", c.ID),
					zap.Error(err))
			}
			return
		}
		c.handleMessage(data)
	}
}

// writePump 写入消息，连接上唯一的写协程
func (c *Client) writePump() {
	cfg := c.Hub.cfg
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if !ok {
				// Hub关闭了通道
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 处理上行消息，格式错误只回复错误不断开
func (c *Client) handleMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
		c.Hub.logger.Warn("WebSocket消息格式错误", zap.String("client_id", c.ID), zap.Error(err))
		c.sendError("消息格式错误")
		return
	}

	if msg.Type == MessageTypePing {
		if reply, err := NewMessage(MessageTypePong, nil); err == nil {
			c.Hub.SendToClient(c, reply)
		}
		return
	}

	if c.Hub.handler == nil {
		c.sendError("不支持的消息类型: " + msg.Type)
		return
	}
	if reply := c.Hub.handler(c.ctx, c, &msg); reply != nil {
		c.Hub.SendToClient(c, reply)
	}
}

// sendError 发送错误消息
func (c *Client) sendError(message string) {
	if msg, err := NewMessage(MessageTypeError, map[string]string{"error": message}); err == nil {
		c.Hub.SendToClient(c, msg)
	}
}
