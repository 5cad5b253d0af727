package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/wfunc/slot-client/internal/config"
	"github.com/wfunc/slot-client/internal/metrics"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Message WebSocket消息
type Message struct {
	Type      string              `json:"type"`           // 消息类型，推送时为事件名
	Data      jsoniter.RawMessage `json:"data,omitempty"` // 消息数据
	Timestamp int64               `json:"timestamp"`      // 毫秒时间戳
}

// MessageType 消息类型
const (
	MessageTypeConnected = "connected"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeError     = "error"
)

// NewMessage 创建消息，data 为 nil 时不带数据
func NewMessage(msgType string, data interface{}) (*Message, error) {
	msg := &Message{Type: msgType, Timestamp: time.Now().UnixMilli()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		msg.Data = raw
	}
	return msg, nil
}

// MessageHandler 处理客户端上行消息，返回值不为nil时回复给该客户端。
// ctx 在客户端断开或 Hub 停止时取消
type MessageHandler func(ctx context.Context, c *Client, msg *Message) *Message

// Hub WebSocket连接管理中心
type Hub struct {
	cfg      config.WebSocketConfig
	upgrader websocket.Upgrader

	clients   map[string]*Client
	clientsMu sync.RWMutex

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// ctx 在 Run 退出时取消，客户端的 ctx 由它派生
	ctx    context.Context
	cancel context.CancelFunc

	handler MessageHandler
	logger  *zap.Logger
}

// NewHub 创建Hub
func NewHub(cfg config.WebSocketConfig, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			// 表现层与核心通常不同源
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:    make(map[string]*Client),
		broadcast:  make(chan []byte, cfg.SendQueueSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger.With(zap.String("component", "websocket")),
	}
}

// SetMessageHandler 设置上行消息处理器，需在 Run 之前调用
func (h *Hub) SetMessageHandler(handler MessageHandler) {
	h.handler = handler
}

// Run 运行Hub直到ctx结束，退出时关闭所有客户端
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	defer h.cancel()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case data := <-h.broadcast:
			h.broadcastMessage(data)
		}
	}
}

// registerClient 注册客户端
func (h *Hub) registerClient(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	count := len(h.clients)
	h.clientsMu.Unlock()
	metrics.WebSocketClients.Set(float64(count))

	h.logger.Info("WebSocket客户端连接",
		zap.String("client_id", client.ID),
		zap.String("remote", client.Remote),
		zap.Int("online", count))

	if msg, err := NewMessage(MessageTypeConnected, map[string]string{"client_id": client.ID}); err == nil {
		h.SendToClient(client, msg)
	}
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.Send)
	}
	count := len(h.clients)
	h.clientsMu.Unlock()
	metrics.WebSocketClients.Set(float64(count))

	h.logger.Info("WebSocket客户端断开",
		zap.String("client_id", client.ID),
		zap.Int("online", count))
}

func (h *Hub) closeAll() {
	h.clientsMu.Lock()
	for id, client := range h.clients {
		delete(h.clients, id)
		close(client.Send)
	}
	h.clientsMu.Unlock()
	metrics.WebSocketClients.Set(0)
	h.logger.Info("WebSocket Hub已关闭")
}

// broadcastMessage 广播消息，发送缓冲区满的客户端丢弃本条
func (h *Hub) broadcastMessage(data []byte) {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("客户端发送缓冲区满",
				zap.String("client_id", client.ID))
		}
	}
}

// Broadcast 广播消息，不阻塞调用方（事件总线在游戏循环上回调）
func (h *Hub) Broadcast(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("序列化消息失败", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	default:
		h.logger.Warn("广播队列已满，丢弃消息", zap.String("type", msg.Type))
	}
}

// SendToClient 发送消息给指定客户端，客户端已断开或缓冲区满时返回false
func (h *Hub) SendToClient(client *Client, msg *Message) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("序列化消息失败", zap.String("type", msg.Type), zap.Error(err))
		return false
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	if h.clients[client.ID] != client {
		return false
	}
	select {
	case client.Send <- data:
		return true
	default:
		h.logger.Warn("客户端发送缓冲区满", zap.String("client_id", client.ID))
		return false
	}
}

// Count 在线连接数
func (h *Hub) Count() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// ServeHTTP 升级为WebSocket连接
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket升级失败", zap.Error(err))
		return
	}

	client := newClient(h, conn, r.RemoteAddr)
	select {
	case h.register <- client:
	case <-h.done:
		client.cancel()
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
