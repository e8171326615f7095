package rendezvous

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWait_AlreadyCompleted(t *testing.T) {
	b := New()
	b.Release(3)

	got, err := b.Wait(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), got)
}

func TestWait_BlocksUntilRelease(t *testing.T) {
	b := New()

	result := make(chan uint64, 1)
	go func() {
		got, err := b.Wait(context.Background(), 1)
		assert.NoError(t, err)
		result <- got
	}()

	select {
	case <-result:
		t.Fatal("Wait returned before the tick completed")
	case <-time.After(50 * time.Millisecond):
	}

	b.Release(1)

	select {
	case got := <-result:
		assert.Equal(t, uint64(1), got)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Release")
	}
}

func TestWait_IgnoresEarlierTicks(t *testing.T) {
	b := New()

	result := make(chan uint64, 1)
	go func() {
		got, _ := b.Wait(context.Background(), 3)
		result <- got
	}()

	b.Release(1)
	b.Release(2)

	select {
	case <-result:
		t.Fatal("Wait returned before its target tick")
	case <-time.After(50 * time.Millisecond):
	}

	b.Release(3)

	select {
	case got := <-result:
		assert.Equal(t, uint64(3), got)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return")
	}
}

// Every waiter blocked on the same tick must be released by that tick, no
// matter how many there are or in what order they wake.
func TestWait_SingleReleaseWakesAllWaiters(t *testing.T) {
	b := New()

	const n = 200
	var (
		wg    sync.WaitGroup
		ready sync.WaitGroup
	)
	results := make([]uint64, n)

	ready.Add(n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ready.Done()
			got, err := b.Wait(context.Background(), 1)
			assert.NoError(t, err)
			results[i] = got
		}()
	}
	ready.Wait()

	b.Release(1)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("not every waiter observed the single release")
	}

	for _, got := range results {
		assert.Equal(t, uint64(1), got)
	}
	assert.Equal(t, uint64(1), b.Completed())
}

func TestRelease_NeverMovesBackwards(t *testing.T) {
	b := New()
	b.Release(5)
	b.Release(2)
	assert.Equal(t, uint64(5), b.Completed())
}

func TestTerminate_UnblocksWaiters(t *testing.T) {
	b := New()
	cause := errors.New("render exploded")

	errs := make(chan error, 3)
	for range 3 {
		go func() {
			_, err := b.Wait(context.Background(), 1)
			errs <- err
		}()
	}

	time.Sleep(20 * time.Millisecond)
	b.Terminate(cause)

	for range 3 {
		select {
		case err := <-errs:
			require.ErrorIs(t, err, ErrTerminated)
			assert.ErrorIs(t, err, cause)
		case <-time.After(time.Second):
			t.Fatal("waiter left hanging after Terminate")
		}
	}
}

func TestTerminate_FutureWaitsFailFast(t *testing.T) {
	b := New()
	b.Release(1)
	b.Terminate(errors.New("stopped"))

	_, err := b.Wait(context.Background(), 2)
	require.ErrorIs(t, err, ErrTerminated)

	// A target that was already reached is still reported as success.
	got, err := b.Wait(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got)

	select {
	case <-b.Done():
	default:
		t.Fatal("Done should be closed")
	}
}

func TestTerminate_FirstCauseWins(t *testing.T) {
	b := New()
	first := errors.New("first")
	b.Terminate(first)
	b.Terminate(errors.New("second"))

	err := b.Err()
	require.ErrorIs(t, err, first)
	assert.NotContains(t, err.Error(), "second")
}

func TestTerminate_NilCause(t *testing.T) {
	b := New()
	b.Terminate(nil)
	assert.ErrorIs(t, b.Err(), ErrTerminated)
}

func TestRelease_AfterTerminateIsIgnored(t *testing.T) {
	b := New()
	b.Terminate(errors.New("x"))
	b.Release(10)
	assert.Zero(t, b.Completed())
}

func TestWait_ContextCancelled(t *testing.T) {
	b := New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := b.Wait(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NoError(t, b.Err())
}

func TestZeroValue(t *testing.T) {
	var b Barrier
	b.Release(1)

	got, err := b.Wait(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got)
}
