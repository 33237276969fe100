package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTick_RunsCommentsReviewsComments(t *testing.T) {
	var order []string

	comments := CycleFunc(func(ctx context.Context) error {
		order = append(order, "comments")
		return nil
	})
	reviews := CycleFunc(func(ctx context.Context) error {
		order = append(order, "reviews")
		return nil
	})

	s := New(comments, reviews, time.Minute, nil)
	s.Tick(context.Background())

	assert.Equal(t, []string{"comments", "reviews", "comments"}, order)
}

func TestTick_CycleErrorDoesNotStopTick(t *testing.T) {
	var reviewRan bool

	comments := CycleFunc(func(ctx context.Context) error {
		return errors.New("listing failed")
	})
	reviews := CycleFunc(func(ctx context.Context) error {
		reviewRan = true
		return nil
	})

	s := New(comments, reviews, time.Minute, nil)
	s.Tick(context.Background())

	assert.True(t, reviewRan)
}

func TestTick_CancelledContextSkipsCycles(t *testing.T) {
	var ran bool
	cycle := CycleFunc(func(ctx context.Context) error {
		ran = true
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(cycle, cycle, time.Minute, nil)
	s.Tick(ctx)

	assert.False(t, ran)
}

func TestRun_StopsOnCancel(t *testing.T) {
	var ticks atomic.Int32
	cycle := CycleFunc(func(ctx context.Context) error {
		ticks.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	s := New(cycle, cycle, 10*time.Millisecond, nil)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Let at least the immediate first tick happen, then cancel.
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}

	assert.GreaterOrEqual(t, ticks.Load(), int32(1))
}

func TestRun_TicksRepeat(t *testing.T) {
	var ticks atomic.Int32
	cycle := CycleFunc(func(ctx context.Context) error {
		ticks.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(cycle, nil, 5*time.Millisecond, nil)
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(40 * time.Millisecond)
	cancel()
	<-done

	// Two comment cycles per tick, and more than one tick ran.
	assert.Greater(t, ticks.Load(), int32(2))
}
