package group

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBarrierCountsEachServiceOnce(t *testing.T) {
	b := newBarrier(2)
	require.False(t, b.isUp(), "fresh barrier must not be up")

	first, _ := b.release("a")
	require.True(t, first, "first release must count")

	// repeated notifications never count twice
	for i := 1; i <= 3; i++ {
		first, prev := b.release("a")
		require.False(t, first, "repeat release %d counted", i)
		require.Equal(t, i, prev)
	}
	require.False(t, b.isUp(), "barrier released by a single service of two")

	b.release("b")
	require.True(t, b.isUp())
	require.NoError(t, b.wait(context.Background()))
}

func TestBarrierZeroCountIsUpImmediately(t *testing.T) {
	b := newBarrier(0)
	require.True(t, b.isUp())
	require.NoError(t, b.wait(context.Background()))
}

func TestBarrierFailAbortsWaiters(t *testing.T) {
	b := newBarrier(1)
	boom := errors.New("boom")
	go func() {
		time.Sleep(20 * time.Millisecond)
		b.fail(boom)
	}()
	require.ErrorIs(t, b.wait(context.Background()), boom)

	// only the first failure sticks
	b.fail(errors.New("later"))
	require.ErrorIs(t, b.wait(context.Background()), boom)
}

func TestBarrierWaitHonorsContext(t *testing.T) {
	b := newBarrier(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, b.wait(ctx), context.DeadlineExceeded)
}
