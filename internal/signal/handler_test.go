package signal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestHandler_FirstSignalInterruptsOnly(t *testing.T) {
	h := NewHandler(context.Background())
	defer h.Stop()

	h.handleSignal()

	assert.True(t, isClosed(h.Interrupted()))
	require.NoError(t, h.Context().Err())
}

func TestHandler_SecondSignalCancels(t *testing.T) {
	h := NewHandler(context.Background())
	defer h.Stop()

	h.handleSignal()
	h.handleSignal()

	require.ErrorIs(t, h.Context().Err(), context.Canceled)
}

func TestHandler_FurtherSignalsAreIgnored(t *testing.T) {
	h := NewHandler(context.Background())
	defer h.Stop()

	assert.NotPanics(t, func() {
		for range 5 {
			h.handleSignal()
		}
	})
}

func TestHandler_StopCancelsAndIsIdempotent(t *testing.T) {
	h := NewHandler(context.Background())
	h.Stop()
	h.Stop()

	require.ErrorIs(t, h.Context().Err(), context.Canceled)
	assert.False(t, isClosed(h.Interrupted()))
}

func TestHandler_ParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	h := NewHandler(parent)
	defer h.Stop()

	cancel()

	select {
	case <-h.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("context not canceled with parent")
	}
}
