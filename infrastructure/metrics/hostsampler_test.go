package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewHostSampler(t *testing.T) {
	hs, err := NewHostSampler(nil, time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, hs)

	hs.sampleOnce()
}

func TestHostSampler_RunStopsOnContextCancel(t *testing.T) {
	hs, err := NewHostSampler(nil, time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		hs.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestSystemCPUPercent(t *testing.T) {
	pct, err := SystemCPUPercent(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, pct, 0.0)
}
