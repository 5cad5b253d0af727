package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestScheduler_OrderAndClock(t *testing.T) {
	s := New(zaptest.NewLogger(t))

	var got []string
	s.After(300*time.Millisecond, func() { got = append(got, "c") })
	s.After(100*time.Millisecond, func() { got = append(got, "a") })
	s.After(100*time.Millisecond, func() { got = append(got, "b") })

	s.Advance(50 * time.Millisecond)
	assert.Empty(t, got)
	assert.Equal(t, 50*time.Millisecond, s.Now())

	s.Advance(50 * time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, got)

	s.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, 0, s.Pending())
}

func TestScheduler_Cancel(t *testing.T) {
	s := New(zaptest.NewLogger(t))

	fired := false
	task := s.After(10*time.Millisecond, func() { fired = true })
	assert.True(t, task.Pending())
	assert.True(t, task.Cancel())
	assert.False(t, task.Cancel())
	assert.False(t, task.Pending())

	s.Advance(time.Second)
	assert.False(t, fired)

	// 已执行的任务不能取消
	done := s.After(0, func() {})
	s.Advance(0)
	assert.False(t, done.Cancel())

	var nilTask *Task
	assert.False(t, nilTask.Cancel())
}

func TestScheduler_TaskSchedulesTask(t *testing.T) {
	s := New(zaptest.NewLogger(t))

	var got []time.Duration
	s.After(10*time.Millisecond, func() {
		got = append(got, s.Now())
		s.After(0, func() { got = append(got, s.Now()) })
		s.After(time.Second, func() { got = append(got, s.Now()) })
	})

	s.Advance(20 * time.Millisecond)
	assert.Equal(t, []time.Duration{20 * time.Millisecond, 20 * time.Millisecond}, got)
}

func TestScheduler_PostRunsBeforeTasks(t *testing.T) {
	s := New(zaptest.NewLogger(t))

	var got []string
	s.After(10*time.Millisecond, func() { got = append(got, "task") })
	done := make(chan struct{})
	go func() {
		s.Post(func() { got = append(got, "post") })
		close(done)
	}()
	<-done

	s.Advance(10 * time.Millisecond)
	assert.Equal(t, []string{"post", "task"}, got)
}

func TestScheduler_InlineAsync(t *testing.T) {
	s := New(zaptest.NewLogger(t), WithInlineAsync())

	var got []string
	s.Go(func() {
		got = append(got, "work")
		s.Post(func() { got = append(got, "result") })
	})
	assert.Equal(t, []string{"work"}, got)

	s.Advance(0)
	assert.Equal(t, []string{"work", "result"}, got)
}

func TestScheduler_Goroutine(t *testing.T) {
	s := New(zaptest.NewLogger(t))

	result := make(chan int, 1)
	s.Go(func() { result <- 42 })
	s.Wait()
	assert.Equal(t, 42, <-result)
}

func TestScheduler_PanicRecovered(t *testing.T) {
	s := New(zaptest.NewLogger(t))

	after := false
	s.After(0, func() { panic("boom") })
	s.After(0, func() { after = true })

	assert.NotPanics(t, func() { s.Advance(0) })
	assert.True(t, after)
}
