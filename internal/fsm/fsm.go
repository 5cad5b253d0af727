package fsm

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/wfunc/slot-client/internal/errors"
	"go.uber.org/zap"
)

// State 状态
type State string

// Transition 状态转换定义
type Transition struct {
	From   State
	Event  string
	To     State
	Action func() error // 返回错误时保持原状态
}

// Machine 转换表驱动的状态机
type Machine struct {
	mu          sync.RWMutex
	name        string
	current     State
	transitions map[string]Transition
	logger      *zap.Logger

	onStateChange func(from, to State, event string)
}

// New 创建状态机
func New(name string, initial State, logger *zap.Logger) *Machine {
	return &Machine{
		name:        name,
		current:     initial,
		transitions: make(map[string]Transition),
		logger:      logger,
	}
}

// Add 添加状态转换，同一状态同一事件只保留最后一次定义
func (m *Machine) Add(transitions ...Transition) *Machine {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range transitions {
		m.transitions[transitionKey(t.From, t.Event)] = t
	}
	return m
}

// AddFrom 为多个起始状态添加同一事件
func (m *Machine) AddFrom(froms []State, event string, to State) *Machine {
	for _, from := range froms {
		m.Add(Transition{From: from, Event: event, To: to})
	}
	return m
}

// transitionKey 生成转换键
func transitionKey(state State, event string) string {
	return fmt.Sprintf("%s:%s", state, event)
}

// Trigger 触发事件
func (m *Machine) Trigger(event string) error {
	m.mu.RLock()
	from := m.current
	t, ok := m.transitions[transitionKey(from, event)]
	m.mu.RUnlock()

	if !ok {
		return errors.Newf(errors.ErrInvalidState, "%s: 无效的状态转换 状态=%s 事件=%s", m.name, from, event)
	}

	if t.Action != nil {
		if err := t.Action(); err != nil {
			m.logger.Warn("状态转换动作失败",
				zap.String("machine", m.name),
				zap.String("from", string(from)),
				zap.String("event", event),
				zap.Error(err))
			return fmt.Errorf("状态转换失败: %w", err)
		}
	}

	m.mu.Lock()
	m.current = t.To
	cb := m.onStateChange
	m.mu.Unlock()

	m.logger.Debug("状态转换",
		zap.String("machine", m.name),
		zap.String("from", string(from)),
		zap.String("to", string(t.To)),
		zap.String("event", event))

	if cb != nil {
		cb(from, t.To, event)
	}
	return nil
}

// Current 当前状态
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Is 当前状态是否为给定状态之一
func (m *Machine) Is(states ...State) bool {
	cur := m.Current()
	for _, s := range states {
		if s == cur {
			return true
		}
	}
	return false
}

// Can 检查当前状态能否响应事件
func (m *Machine) Can(event string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.transitions[transitionKey(m.current, event)]
	return ok
}

// ValidEvents 当前状态下的有效事件（已排序）
func (m *Machine) ValidEvents() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var events []string
	prefix := string(m.current) + ":"
	for key := range m.transitions {
		if strings.HasPrefix(key, prefix) {
			events = append(events, key[len(prefix):])
		}
	}
	sort.Strings(events)
	return events
}

// OnStateChange 设置状态变更回调
func (m *Machine) OnStateChange(fn func(from, to State, event string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStateChange = fn
}

// Reset 强制回到指定状态，不触发回调
func (m *Machine) Reset(state State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = state
}
