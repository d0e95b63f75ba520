package engine

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openforum/chatsync/internal/store"
)

// The reconnection schedule is part of the engine's contract: consecutive
// failures back off exactly 1s, 2s, 4s, doubling up to the 10s cap, with no
// jitter.
func TestBackoffSchedule(t *testing.T) {
	e := New(Params{
		Config: Config{Host: "chat.test"},
		Store:  store.New(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	defer e.Close()

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second, // capped
		10 * time.Second,
	}
	for i, exp := range want {
		assert.Equal(t, exp, e.retry.NextBackOff(), "delay %d", i+1)
	}

	// A successful connect resets the schedule.
	e.retry.Reset()
	assert.Equal(t, 1*time.Second, e.retry.NextBackOff())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "unknown", State(99).String())
}
