package event

import (
	"fmt"
	"runtime/debug"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/wfunc/slot-client/internal/metrics"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Event 总线上传递的事件
type Event struct {
	Name    Name        `json:"name"`
	Payload interface{} `json:"payload"`
}

// Handler 事件处理函数
type Handler func(Event)

// Publisher 只能发布事件的一端
type Publisher interface {
	Publish(name Name, payload interface{})
}

type subscription struct {
	id      uint64
	handler Handler
}

// Bus 同步事件总线，按注册顺序分发
type Bus struct {
	mu     sync.RWMutex
	subs   map[Name][]subscription
	all    []subscription
	nextID uint64
	logger *zap.Logger
}

// NewBus 创建事件总线
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		subs:   make(map[Name][]subscription),
		logger: logger.With(zap.String("component", "event_bus")),
	}
}

// Subscribe 订阅指定事件，返回取消订阅函数
func (b *Bus) Subscribe(name Name, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], subscription{id: id, handler: h})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.subs[name] = remove(b.subs[name], id)
		if len(b.subs[name]) == 0 {
			delete(b.subs, name)
		}
	}
}

// SubscribeAll 订阅全部事件，在按名订阅者之后调用
func (b *Bus) SubscribeAll(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.all = append(b.all, subscription{id: id, handler: h})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.all = remove(b.all, id)
	}
}

// Publish 同步发布事件，处理函数中的panic会被恢复并记录
func (b *Bus) Publish(name Name, payload interface{}) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[name])+len(b.all))
	for _, s := range b.subs[name] {
		handlers = append(handlers, s.handler)
	}
	for _, s := range b.all {
		handlers = append(handlers, s.handler)
	}
	b.mu.RUnlock()

	metrics.EventsPublished.WithLabelValues(string(name)).Inc()

	e := Event{Name: name, Payload: payload}
	for _, h := range handlers {
		b.dispatch(h, e)
	}
}

// HasSubscribers 是否有按名订阅者
func (b *Bus) HasSubscribers(name Name) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name]) > 0
}

func (b *Bus) dispatch(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			metrics.EventHandlerPanics.WithLabelValues(string(e.Name)).Inc()
			b.logger.Error("事件处理函数panic",
				zap.String("event", string(e.Name)),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()
	h(e)
}

func remove(subs []subscription, id uint64) []subscription {
	out := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}

// DecodePayload 把负载转换为T，进程内直接断言，序列化来源走JSON回退
func DecodePayload[T any](input interface{}) (T, error) {
	if v, ok := input.(T); ok {
		return v, nil
	}
	if p, ok := input.(*T); ok && p != nil {
		return *p, nil
	}
	var result T
	data, err := json.Marshal(input)
	if err != nil {
		return result, fmt.Errorf("编码事件负载失败: %w", err)
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("解码事件负载失败: %w", err)
	}
	return result, nil
}

// On 订阅并按类型解码负载，解码失败记录日志并跳过
func On[T any](b *Bus, name Name, fn func(T)) func() {
	return b.Subscribe(name, func(e Event) {
		p, err := DecodePayload[T](e.Payload)
		if err != nil {
			b.logger.Error("事件负载类型不匹配",
				zap.String("event", string(name)),
				zap.String("payload_type", fmt.Sprintf("%T", e.Payload)),
				zap.Error(err),
			)
			return
		}
		fn(p)
	})
}
