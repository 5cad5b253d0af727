package scheduler

import (
	"container/heap"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task 可取消的定时任务
type Task struct {
	due      time.Duration
	seq      uint64
	fn       func()
	index    int
	canceled bool
	fired    bool
	s        *Scheduler
}

// Cancel 取消任务，已执行或已取消返回false
func (t *Task) Cancel() bool {
	if t == nil {
		return false
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.canceled || t.fired {
		return false
	}
	t.canceled = true
	if t.index >= 0 {
		heap.Remove(&t.s.tasks, t.index)
	}
	return true
}

// Pending 任务是否仍在等待
func (t *Task) Pending() bool {
	if t == nil {
		return false
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return !t.canceled && !t.fired
}

// Due 计划执行的模拟时间
func (t *Task) Due() time.Duration {
	return t.due
}

type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].due != h[j].due {
		return h[i].due < h[j].due
	}
	return h[i].seq < h[j].seq
}
func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *taskHeap) Push(x interface{}) {
	t := x.(*Task)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// Option 调度器选项
type Option func(*Scheduler)

// WithInlineAsync Go() 在调用方同步执行，测试中获得确定性顺序
func WithInlineAsync() Option {
	return func(s *Scheduler) {
		s.inline = true
	}
}

// Scheduler 模拟时钟和单线程任务队列。
// 时间只由 Advance 推进；After 的任务和 Post 的回调都在调用 Advance 的协程上执行。
type Scheduler struct {
	mu     sync.Mutex
	now    time.Duration
	tasks  taskHeap
	seq    uint64
	inbox  []func()
	inline bool
	wg     sync.WaitGroup
	logger *zap.Logger
}

// New 创建调度器
func New(logger *zap.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		logger: logger.With(zap.String("component", "scheduler")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now 当前模拟时间
func (s *Scheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// After 在 d 之后执行 fn，d<=0 时在下一次 Advance 执行
func (s *Scheduler) After(d time.Duration, fn func()) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d < 0 {
		d = 0
	}
	s.seq++
	t := &Task{due: s.now + d, seq: s.seq, fn: fn, s: s}
	heap.Push(&s.tasks, t)
	return t
}

// Post 把回调投递到循环协程，可在任意协程调用
func (s *Scheduler) Post(fn func()) {
	s.mu.Lock()
	s.inbox = append(s.inbox, fn)
	s.mu.Unlock()
}

// Go 在循环外执行阻塞工作，结果需要通过 Post 送回
func (s *Scheduler) Go(fn func()) {
	if s.inline {
		s.safeRun("go", fn)
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.safeRun("go", fn)
	}()
}

// Wait 等待所有 Go 启动的协程结束
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Pending 等待中的定时任务数
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Advance 先执行投递的回调，再推进时钟并按到期顺序执行任务
func (s *Scheduler) Advance(delta time.Duration) {
	s.drainInbox()

	s.mu.Lock()
	if delta > 0 {
		s.now += delta
	}
	now := s.now
	s.mu.Unlock()

	for {
		s.mu.Lock()
		if len(s.tasks) == 0 || s.tasks[0].due > now {
			s.mu.Unlock()
			return
		}
		t := heap.Pop(&s.tasks).(*Task)
		t.fired = true
		s.mu.Unlock()

		s.safeRun("task", t.fn)
	}
}

func (s *Scheduler) drainInbox() {
	for {
		s.mu.Lock()
		batch := s.inbox
		s.inbox = nil
		s.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, fn := range batch {
			s.safeRun("post", fn)
		}
	}
}

func (s *Scheduler) safeRun(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("调度任务panic",
				zap.String("kind", kind),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()
	fn()
}
