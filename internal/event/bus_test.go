package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestBus_OrderedDispatch(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t))

	var got []string
	bus.Subscribe(SpinStarted, func(Event) { got = append(got, "a") })
	bus.Subscribe(SpinStarted, func(Event) { got = append(got, "b") })
	bus.SubscribeAll(func(e Event) { got = append(got, "all:"+string(e.Name)) })
	bus.Subscribe(SpinError, func(Event) { got = append(got, "error") })

	bus.Publish(SpinStarted, SpinStartedPayload{SpinID: "1"})

	assert.Equal(t, []string{"a", "b", "all:spin.started"}, got)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t))

	calls := 0
	unsubscribe := bus.Subscribe(PaylinesClear, func(Event) { calls++ })
	bus.Publish(PaylinesClear, PaylinesClearPayload{})
	unsubscribe()
	bus.Publish(PaylinesClear, PaylinesClearPayload{})

	assert.Equal(t, 1, calls)
	assert.False(t, bus.HasSubscribers(PaylinesClear))

	// 重复取消不影响其他订阅者
	other := 0
	bus.Subscribe(PaylinesClear, func(Event) { other++ })
	unsubscribe()
	bus.Publish(PaylinesClear, PaylinesClearPayload{})
	assert.Equal(t, 1, other)
}

func TestBus_PanicIsolation(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	bus := NewBus(zap.New(core))

	reached := false
	bus.Subscribe(WinValidated, func(Event) { panic("boom") })
	bus.Subscribe(WinValidated, func(Event) { reached = true })

	assert.NotPanics(t, func() { bus.Publish(WinValidated, WinValidatedPayload{}) })
	assert.True(t, reached)

	entries := logs.FilterMessage("事件处理函数panic").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "event_bus", entries[0].ContextMap()["component"])
	assert.Equal(t, "win.validated", entries[0].ContextMap()["event"])
}

func TestBus_ReentrantPublish(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t))

	var got []Name
	bus.Subscribe(ReelsStoppedVisually, func(Event) {
		got = append(got, ReelsStoppedVisually)
		bus.Publish(SpinEvaluate, SpinEvaluatePayload{})
	})
	bus.Subscribe(SpinEvaluate, func(Event) { got = append(got, SpinEvaluate) })

	bus.Publish(ReelsStoppedVisually, ReelsStoppedPayload{})

	assert.Equal(t, []Name{ReelsStoppedVisually, SpinEvaluate}, got)
}

func TestOn_TypedPayload(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	bus := NewBus(zap.New(core))

	var got []int
	On(bus, FreeSpinsTrigger, func(p FreeSpinsTriggerPayload) {
		got = append(got, p.SpinsAwarded)
	})

	bus.Publish(FreeSpinsTrigger, FreeSpinsTriggerPayload{SpinsAwarded: 10})
	bus.Publish(FreeSpinsTrigger, &FreeSpinsTriggerPayload{SpinsAwarded: 5})
	bus.Publish(FreeSpinsTrigger, map[string]interface{}{"spins_awarded": 3})
	bus.Publish(FreeSpinsTrigger, "not a payload")

	assert.Equal(t, []int{10, 5, 3}, got)
	assert.Equal(t, 1, logs.FilterMessage("事件负载类型不匹配").Len())
}

func TestFieldChanged(t *testing.T) {
	assert.Equal(t, Name("state.changed.balance"), FieldChanged("balance"))
}
