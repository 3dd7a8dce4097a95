package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEvery_RunsRepeatedly(t *testing.T) {
	s := New()
	defer s.StopAll()

	var n atomic.Int32
	s.Every("tick", 10*time.Millisecond, func(ctx context.Context) {
		n.Add(1)
	})

	require.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestAfter_FiresOnce(t *testing.T) {
	s := New()
	defer s.StopAll()

	var n atomic.Int32
	s.After("once", 10*time.Millisecond, func(ctx context.Context) {
		n.Add(1)
	})

	require.Eventually(t, func() bool { return n.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, int32(1), n.Load())
}

func TestStop_CancelsBeforeFire(t *testing.T) {
	s := New()
	defer s.StopAll()

	var n atomic.Int32
	s.After("slow", 200*time.Millisecond, func(ctx context.Context) {
		n.Add(1)
	})
	s.Stop("slow")

	time.Sleep(250 * time.Millisecond)
	require.Equal(t, int32(0), n.Load(), "stopped task must not fire")
	require.False(t, s.Active("slow"))
}

func TestCancel_ReleasesNameWithoutWaiting(t *testing.T) {
	s := New()
	defer s.StopAll()

	var once sync.Once
	started := make(chan struct{})
	release := make(chan struct{})
	s.Every("poll", time.Millisecond, func(ctx context.Context) {
		once.Do(func() { close(started) })
		<-release
	})
	<-started

	// The task body is blocked, but Cancel must return and free the name.
	s.Cancel("poll")
	require.False(t, s.Active("poll"))

	var n atomic.Int32
	s.Every("poll", 5*time.Millisecond, func(ctx context.Context) { n.Add(1) })
	require.Eventually(t, func() bool { return n.Load() >= 2 }, time.Second, 5*time.Millisecond,
		"replacement registered after Cancel must keep running")

	close(release)
}

func TestCancel_FromInsideTask(t *testing.T) {
	s := New()
	defer s.StopAll()

	var n atomic.Int32
	s.Every("poll", 5*time.Millisecond, func(ctx context.Context) {
		n.Add(1)
		s.Cancel("poll")
	})

	require.Eventually(t, func() bool {
		return n.Load() == 1 && !s.Active("poll")
	}, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, int32(1), n.Load(), "cancelled task must not tick again")
}

func TestRegister_ReplacesPrevious(t *testing.T) {
	s := New()
	defer s.StopAll()

	var first, second atomic.Int32
	s.Every("poll", 10*time.Millisecond, func(ctx context.Context) { first.Add(1) })
	s.Every("poll", 10*time.Millisecond, func(ctx context.Context) { second.Add(1) })

	require.Eventually(t, func() bool { return second.Load() >= 2 }, time.Second, 5*time.Millisecond)
	got := first.Load()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, got, first.Load(), "replaced task must stop running")
}

func TestStopAll_StopsEverything(t *testing.T) {
	s := New()

	var n atomic.Int32
	s.Every("a", 10*time.Millisecond, func(ctx context.Context) { n.Add(1) })
	s.Every("b", 10*time.Millisecond, func(ctx context.Context) { n.Add(1) })

	s.StopAll()
	require.False(t, s.Active("a"))
	require.False(t, s.Active("b"))

	got := n.Load()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, got, n.Load())
}
