package cli

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"checkdelta/internal/shared/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchLoop_AnalyzesInitiallyAndPerTrigger(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	triggers := make(chan []string)
	var runs atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watchLoop(ctx, triggers, util.NewThrottle(0), func(context.Context) {
			runs.Add(1)
		})
	}()

	triggers <- []string{"target/checkstyle-result.xml"}
	triggers <- []string{"target/checkstyle-result.xml"}
	require.Eventually(t, func() bool { return runs.Load() == 3 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch loop did not stop")
	}
}

func TestWatchLoop_StopsWhileThrottled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	triggers := make(chan []string, 1)
	var runs atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watchLoop(ctx, triggers, util.NewThrottle(time.Hour), func(context.Context) {
			runs.Add(1)
		})
	}()

	triggers <- []string{"checkstyle-result.xml"}
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch loop did not stop")
	}
	assert.Equal(t, int32(1), runs.Load())
}
