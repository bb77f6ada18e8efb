package connectivity

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetOnline_SignalsOnlyOnRestore(t *testing.T) {
	m := NewMonitor(nil, time.Minute, time.Second)
	assert.True(t, m.Online())

	m.SetOnline(true)
	select {
	case <-m.Restored():
		t.Fatal("no transition, no signal")
	default:
	}

	m.SetOnline(false)
	assert.False(t, m.Online())

	m.SetOnline(true)
	select {
	case <-m.Restored():
	default:
		t.Fatal("expected restored signal")
	}
}

func TestSignalsCoalesce(t *testing.T) {
	m := NewMonitor(nil, time.Minute, time.Second)
	for i := 0; i < 3; i++ {
		m.SetOnline(false)
		m.SetOnline(true)
	}
	<-m.Restored()
	select {
	case <-m.Restored():
		t.Fatal("signals should coalesce")
	default:
	}
}

func TestCheck_UsesProbe(t *testing.T) {
	var fail atomic.Bool
	m := NewMonitor(func(ctx context.Context) error {
		if fail.Load() {
			return errors.New("unreachable")
		}
		return nil
	}, time.Minute, time.Second)

	fail.Store(true)
	assert.False(t, m.Check(context.Background()))
	assert.False(t, m.Online())

	fail.Store(false)
	assert.True(t, m.Check(context.Background()))
	assert.True(t, m.Online())
	<-m.Restored()
}

func TestCheck_AppliesTimeout(t *testing.T) {
	m := NewMonitor(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, time.Minute, 10*time.Millisecond)

	assert.False(t, m.Check(context.Background()))
}

func TestRun_StopsWithContext(t *testing.T) {
	var probes atomic.Int32
	m := NewMonitor(func(ctx context.Context) error {
		probes.Add(1)
		return nil
	}, 5*time.Millisecond, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return probes.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}
