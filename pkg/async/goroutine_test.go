package async

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/conceptdoc/pkg/observability"
)

func testLogger() (*observability.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return observability.NewLogger(observability.DebugLevel, buf), buf
}

// syncBuffer is a bytes.Buffer safe for concurrent writers
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSafeGo_Success(t *testing.T) {
	logger, logs := testLogger()
	done := make(chan struct{})

	SafeGo(context.Background(), time.Second, "test task", logger, func(ctx context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SafeGo did not run the task")
	}
	assert.NotContains(t, logs.String(), "Background task failed")
}

func TestSafeGo_LogsErrors(t *testing.T) {
	logger, logs := testLogger()

	SafeGo(context.Background(), time.Second, "failing task", logger, func(ctx context.Context) error {
		return errors.New("boom")
	})

	assert.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "Background task failed")
	}, time.Second, 10*time.Millisecond)
	assert.Contains(t, logs.String(), `"task":"failing task"`)
	assert.Contains(t, logs.String(), "boom")
}

func TestSafeGo_RecoversPanic(t *testing.T) {
	logger, logs := testLogger()

	SafeGo(context.Background(), 0, "panicking task", logger, func(ctx context.Context) error {
		panic("kaboom")
	})

	assert.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "PANIC recovered")
	}, time.Second, 10*time.Millisecond)
	assert.Contains(t, logs.String(), "kaboom")
}

func TestSafeGo_Timeout(t *testing.T) {
	logger, _ := testLogger()
	result := make(chan error, 1)

	SafeGo(context.Background(), 20*time.Millisecond, "slow task", logger, func(ctx context.Context) error {
		<-ctx.Done()
		result <- ctx.Err()
		return ctx.Err()
	})

	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("timeout was not enforced")
	}
}

func TestPool_RunsAllTasks(t *testing.T) {
	logger, _ := testLogger()
	pool := NewPool(context.Background(), 3, "count", time.Second, logger)

	var count atomic.Int32
	for i := 0; i < 20; i++ {
		require.NoError(t, pool.Submit(func(ctx context.Context) error {
			count.Add(1)
			return nil
		}))
	}

	assert.Empty(t, pool.Wait())
	assert.Equal(t, int32(20), count.Load())
}

func TestPool_CollectsErrorsAndPanics(t *testing.T) {
	logger, logs := testLogger()
	pool := NewPool(context.Background(), 2, "mixed", time.Second, logger)

	require.NoError(t, pool.Submit(func(ctx context.Context) error { return errors.New("first") }))
	require.NoError(t, pool.Submit(func(ctx context.Context) error { panic("second") }))
	require.NoError(t, pool.Submit(func(ctx context.Context) error { return nil }))

	errs := pool.Wait()
	require.Len(t, errs, 2)

	var messages []string
	for _, err := range errs {
		messages = append(messages, err.Error())
	}
	assert.Contains(t, messages, "first")
	assert.Contains(t, messages, "panic in mixed: second")
	assert.Contains(t, logs.String(), "PANIC recovered")
}

func TestPool_SubmitAfterWait(t *testing.T) {
	pool := NewPool(context.Background(), 1, "closed", 0, nil)
	assert.Empty(t, pool.Wait())
	assert.Empty(t, pool.Wait())

	err := pool.Submit(func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPool_TaskTimeout(t *testing.T) {
	pool := NewPool(context.Background(), 1, "timeout", 20*time.Millisecond, nil)
	require.NoError(t, pool.Submit(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	errs := pool.Wait()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], context.DeadlineExceeded)
}

func TestBatch(t *testing.T) {
	logger, _ := testLogger()
	items := []int{1, 2, 3, 4, 5, 6}

	var sum atomic.Int64
	errs := Batch(context.Background(), items, 4, "sum", time.Second, logger, func(ctx context.Context, n int) error {
		sum.Add(int64(n))
		if n%3 == 0 {
			return errors.New("divisible by three")
		}
		return nil
	})

	assert.Equal(t, int64(21), sum.Load())
	assert.Len(t, errs, 2)
}

func TestBatch_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	errs := Batch(ctx, []int{1, 2, 3}, 1, "canceled", time.Second, nil, func(ctx context.Context, n int) error {
		return ctx.Err()
	})
	assert.NotEmpty(t, errs)
}
