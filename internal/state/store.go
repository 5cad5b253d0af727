package state

import (
	"sync"

	"github.com/r3labs/diff/v3"
	"github.com/wfunc/slot-client/internal/event"
	"go.uber.org/zap"
)

// Store 共享状态容器，唯一的写入口是 Update
type Store struct {
	mu     sync.RWMutex
	state  GameState
	pub    event.Publisher
	differ *diff.Differ
	logger *zap.Logger
}

// NewStore 创建状态容器
func NewStore(initial GameState, pub event.Publisher, logger *zap.Logger) *Store {
	logger = logger.With(zap.String("component", "state_store"))
	differ, err := diff.NewDiffer(diff.SliceOrdering(true))
	if err != nil {
		// 仅在选项非法时出现
		logger.Error("创建状态比较器失败", zap.Error(err))
	}
	return &Store{
		state:  initial.Clone(),
		pub:    pub,
		differ: differ,
		logger: logger,
	}
}

// Snapshot 返回当前状态的副本
func (s *Store) Snapshot() GameState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Update 在副本上执行修改，比较差异后提交，
// 然后为每个变化的字段发布 state.changed.<key>，最后发布一次 state.changed
func (s *Store) Update(mutate func(*GameState)) []string {
	s.mu.Lock()
	next := s.state.Clone()
	mutate(&next)
	// 提交副本，mutate 中赋值的切片不与已提交状态共享
	next = next.Clone()
	keys := s.changedKeys(s.state, next)
	s.state = next
	s.mu.Unlock()

	if len(keys) == 0 || s.pub == nil {
		return keys
	}

	for _, key := range keys {
		s.pub.Publish(event.FieldChanged(key), event.FieldChangedPayload{Key: key, Value: next.Field(key)})
	}
	s.pub.Publish(event.StateChanged, event.StateChangedPayload{Keys: keys})
	return keys
}

// changedKeys 取变更路径的第一段作为字段名，保持字段声明顺序并去重
func (s *Store) changedKeys(prev, next GameState) []string {
	if s.differ == nil {
		return nil
	}
	changelog, err := s.differ.Diff(prev, next)
	if err != nil {
		s.logger.Error("计算状态差异失败", zap.Error(err))
		return nil
	}

	var keys []string
	seen := make(map[string]struct{}, len(changelog))
	for _, change := range changelog {
		if len(change.Path) == 0 {
			continue
		}
		key := change.Path[0]
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}
