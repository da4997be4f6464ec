package ws

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/home-energy-foundry/hem0424/pkg/logging"
)

func testLogger() *logging.Logger {
	l := logging.New("ws-test", logging.ErrorLevel)
	l.SetOutput(io.Discard)
	return l
}

func TestNewEnvelope(t *testing.T) {
	payload := RunStartedPayload{
		RunID:      "run-1",
		Zones:      []string{"living", "bedroom"},
		StepHours:  0.5,
		TotalSteps: 17520,
	}

	msg, err := NewEnvelope(TypeRunStarted, payload)
	require.NoError(t, err)

	var env Envelope
	err = json.Unmarshal(msg, &env)
	require.NoError(t, err)

	assert.Equal(t, TypeRunStarted, env.Type)

	var parsed RunStartedPayload
	err = json.Unmarshal(env.Payload, &parsed)
	require.NoError(t, err)

	assert.Equal(t, "run-1", parsed.RunID)
	assert.Equal(t, []string{"living", "bedroom"}, parsed.Zones)
	assert.Equal(t, 0.5, parsed.StepHours)
	assert.Equal(t, 17520, parsed.TotalSteps)
}

func TestNewEnvelope_NoPayload(t *testing.T) {
	msg, err := NewEnvelope(TypeRunFinished, nil)
	require.NoError(t, err)

	var env Envelope
	err = json.Unmarshal(msg, &env)
	require.NoError(t, err)

	assert.Equal(t, TypeRunFinished, env.Type)
	assert.Nil(t, env.Payload)
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub(testLogger())

	var counts []int
	hub.OnClientCount = func(n int) { counts = append(counts, n) }

	c := &Client{
		hub:  hub,
		send: make(chan []byte, 16),
	}

	hub.Register(c)
	assert.Equal(t, 1, hub.ClientCount())

	hub.Unregister(c)
	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, []int{1, 0}, counts)
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(testLogger())

	c1 := &Client{hub: hub, send: make(chan []byte, 16)}
	c2 := &Client{hub: hub, send: make(chan []byte, 16)}

	hub.Register(c1)
	hub.Register(c2)

	msg := []byte(`{"type":"test"}`)
	hub.Broadcast(msg)

	assert.Equal(t, msg, <-c1.send)
	assert.Equal(t, msg, <-c2.send)
}

func TestHub_BroadcastDropsWhenClientBufferFull(t *testing.T) {
	hub := NewHub(testLogger())

	c := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.Register(c)

	hub.Broadcast([]byte(`first`))
	hub.Broadcast([]byte(`second`)) // buffer full, dropped

	assert.Equal(t, []byte(`first`), <-c.send)
	select {
	case msg := <-c.send:
		t.Fatalf("expected dropped message, got %s", msg)
	default:
	}
}

func TestMessageTypes(t *testing.T) {
	assert.Equal(t, "run:started", TypeRunStarted)
	assert.Equal(t, "run:step", TypeStepResult)
	assert.Equal(t, "run:finished", TypeRunFinished)
	assert.Equal(t, "run:error", TypeRunError)
}
