package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
)

type tickRecorder struct {
	mu    sync.Mutex
	ticks map[string]int
}

func newTickRecorder() *tickRecorder {
	return &tickRecorder{ticks: map[string]int{}}
}

func (r *tickRecorder) tick(_ context.Context, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks[key]++
}

func (r *tickRecorder) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ticks[key]
}

func TestScheduler_ArmTicks(t *testing.T) {
	rec := newTickRecorder()
	s := NewScheduler(rec.tick)
	defer s.Stop()

	require.NoError(t, s.Arm("a", 10*time.Millisecond, false))
	assert.True(t, s.Armed("a"))

	assert.Eventually(t, func() bool { return rec.count("a") >= 3 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_Immediate(t *testing.T) {
	rec := newTickRecorder()
	s := NewScheduler(rec.tick)
	defer s.Stop()

	require.NoError(t, s.Arm("a", time.Hour, true))
	assert.Eventually(t, func() bool { return rec.count("a") == 1 }, time.Second, 5*time.Millisecond)

	next, ok := s.NextRun("a")
	require.True(t, ok)
	assert.True(t, next.After(time.Now().Add(30*time.Minute)))
}

func TestScheduler_DisarmStopsTicks(t *testing.T) {
	rec := newTickRecorder()
	s := NewScheduler(rec.tick)
	defer s.Stop()

	require.NoError(t, s.Arm("a", 5*time.Millisecond, false))
	assert.Eventually(t, func() bool { return rec.count("a") >= 1 }, time.Second, time.Millisecond)

	s.Disarm("a")
	assert.False(t, s.Armed("a"))
	after := rec.count("a")
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, rec.count("a"))

	_, ok := s.NextRun("a")
	assert.False(t, ok)
}

func TestScheduler_RearmReplacesTimer(t *testing.T) {
	rec := newTickRecorder()
	s := NewScheduler(rec.tick)
	defer s.Stop()

	require.NoError(t, s.Arm("a", time.Hour, false))
	require.NoError(t, s.Arm("a", 5*time.Millisecond, false))
	assert.Eventually(t, func() bool { return rec.count("a") >= 2 }, time.Second, time.Millisecond)
}

func TestScheduler_InvalidInterval(t *testing.T) {
	s := NewScheduler(newTickRecorder().tick)
	defer s.Stop()
	assert.ErrorIs(t, s.Arm("a", 0, false), domain.ErrInvalidInput)
}

func TestScheduler_ArmAfterStop(t *testing.T) {
	s := NewScheduler(newTickRecorder().tick)
	s.Stop()
	assert.ErrorIs(t, s.Arm("a", time.Second, false), domain.ErrRuntimeClosed)
}

func TestScheduler_SourcesAreIndependent(t *testing.T) {
	block := make(chan struct{})
	var fast sync.WaitGroup
	fast.Add(1)

	var once sync.Once
	s := NewScheduler(func(_ context.Context, key string) {
		switch key {
		case "slow":
			<-block
		case "fast":
			once.Do(fast.Done)
		}
	})

	require.NoError(t, s.Arm("slow", time.Hour, true))
	require.NoError(t, s.Arm("fast", 5*time.Millisecond, false))

	done := make(chan struct{})
	go func() {
		fast.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("fast source starved by slow source")
	}

	close(block)
	s.Stop()
}
