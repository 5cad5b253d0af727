package fsm

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/slot-client/internal/errors"
	"go.uber.org/zap/zaptest"
)

const (
	idle    State = "idle"
	running State = "running"
	done    State = "done"
)

func newMachine(t *testing.T) *Machine {
	return New("test", idle, zaptest.NewLogger(t)).Add(
		Transition{From: idle, Event: "start", To: running},
		Transition{From: running, Event: "finish", To: done},
		Transition{From: running, Event: "abort", To: idle},
	)
}

func TestMachine_Trigger(t *testing.T) {
	m := newMachine(t)

	var changes []string
	m.OnStateChange(func(from, to State, event string) {
		changes = append(changes, string(from)+"->"+string(to)+"@"+event)
	})

	require.NoError(t, m.Trigger("start"))
	assert.Equal(t, running, m.Current())
	require.NoError(t, m.Trigger("finish"))
	assert.True(t, m.Is(done))

	assert.Equal(t, []string{"idle->running@start", "running->done@finish"}, changes)
}

func TestMachine_InvalidTransition(t *testing.T) {
	m := newMachine(t)

	err := m.Trigger("finish")
	assert.True(t, errors.Is(err, errors.ErrInvalidState))
	assert.Equal(t, idle, m.Current())
}

func TestMachine_ActionFailureKeepsState(t *testing.T) {
	m := newMachine(t)
	m.Add(Transition{From: idle, Event: "guarded", To: running, Action: func() error {
		return stderrors.New("拒绝")
	}})

	err := m.Trigger("guarded")
	assert.Error(t, err)
	assert.Equal(t, idle, m.Current())
}

func TestMachine_ValidEvents(t *testing.T) {
	m := newMachine(t)
	assert.Equal(t, []string{"start"}, m.ValidEvents())
	assert.True(t, m.Can("start"))
	assert.False(t, m.Can("abort"))

	require.NoError(t, m.Trigger("start"))
	assert.Equal(t, []string{"abort", "finish"}, m.ValidEvents())
}

func TestMachine_AddFromAndReset(t *testing.T) {
	m := newMachine(t)
	m.AddFrom([]State{idle, running, done}, "reset", idle)

	require.NoError(t, m.Trigger("start"))
	require.NoError(t, m.Trigger("reset"))
	assert.Equal(t, idle, m.Current())

	m.Reset(done)
	assert.Equal(t, done, m.Current())
}

func TestMachine_CallbackCanReadState(t *testing.T) {
	m := newMachine(t)
	var seen State
	m.OnStateChange(func(from, to State, event string) {
		seen = m.Current()
	})
	require.NoError(t, m.Trigger("start"))
	assert.Equal(t, running, seen)
}
