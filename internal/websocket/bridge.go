package websocket

import (
	"strings"

	"github.com/wfunc/slot-client/internal/event"
	"go.uber.org/zap"
)

// Source 可订阅全部事件的事件源
type Source interface {
	SubscribeAll(h event.Handler) func()
}

// Bridge 把事件总线上的事件转发给所有WebSocket客户端
type Bridge struct {
	hub      *Hub
	excluded []string
	unsub    func()
}

// NewBridge 创建桥接，excluded 为不转发的事件名前缀
func NewBridge(src Source, hub *Hub, excluded ...string) *Bridge {
	b := &Bridge{hub: hub, excluded: excluded}
	b.unsub = src.SubscribeAll(b.forward)
	return b
}

func (b *Bridge) forward(e event.Event) {
	name := string(e.Name)
	for _, prefix := range b.excluded {
		if strings.HasPrefix(name, prefix) {
			return
		}
	}
	msg, err := NewMessage(name, e.Payload)
	if err != nil {
		b.hub.logger.Error("事件编码失败", zap.String("event", name), zap.Error(err))
		return
	}
	b.hub.Broadcast(msg)
}

// Close 取消订阅
func (b *Bridge) Close() {
	b.unsub()
}
