package usage_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatekit/pkg/usage"
)

func TestTryConsume_ConcurrentSafety(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping race condition test in short mode")
	}

	t.Parallel()

	ctx := context.Background()

	t.Run("admissions never exceed quota for one principal", func(t *testing.T) {
		t.Parallel()

		const quota = 50
		ledger := usage.NewLedger(staticPlanResolver(hourlyPlan(quota)), usage.WithCleanupInterval(0))
		defer ledger.Close()

		goroutines := 100
		callsPerGoroutine := 20

		var wg sync.WaitGroup
		wg.Add(goroutines)

		var admitted, denied atomic.Int64

		for range goroutines {
			go func() {
				defer wg.Done()
				for range callsPerGoroutine {
					_, err := ledger.TryConsume(ctx, "hot-principal", 1)
					switch {
					case err == nil:
						admitted.Add(1)
					case errors.Is(err, usage.ErrQuotaExhausted):
						denied.Add(1)
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}
			}()
		}

		wg.Wait()

		total := int64(goroutines * callsPerGoroutine)
		assert.Equal(t, total, admitted.Load()+denied.Load())
		assert.Equal(t, int64(quota), admitted.Load(), "exactly the quota must be admitted")

		w, err := ledger.CurrentWindow(ctx, "hot-principal")
		require.NoError(t, err)
		assert.Equal(t, int64(quota), w.Count)
	})

	t.Run("principals are metered independently", func(t *testing.T) {
		t.Parallel()

		const quota = 10
		ledger := usage.NewLedger(staticPlanResolver(hourlyPlan(quota)), usage.WithCleanupInterval(0))
		defer ledger.Close()

		principals := 20

		var wg sync.WaitGroup
		wg.Add(principals)

		for i := range principals {
			go func(id string) {
				defer wg.Done()
				for range quota + 5 {
					_, _ = ledger.TryConsume(ctx, id, 1)
				}
			}(fmt.Sprintf("principal-%d", i))
		}

		wg.Wait()

		for i := range principals {
			w, err := ledger.CurrentWindow(ctx, fmt.Sprintf("principal-%d", i))
			require.NoError(t, err)
			assert.Equal(t, int64(quota), w.Count)
		}
	})

	t.Run("concurrent rollover creates a single fresh window", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		ledger := usage.NewLedger(staticPlanResolver(hourlyPlan(100)),
			usage.WithClock(clock.Now), usage.WithCleanupInterval(0))
		defer ledger.Close()

		_, err := ledger.TryConsume(ctx, "p1", 1)
		require.NoError(t, err)

		clock.Advance(2 * time.Hour)

		var wg sync.WaitGroup
		wg.Add(50)
		for range 50 {
			go func() {
				defer wg.Done()
				_, err := ledger.TryConsume(ctx, "p1", 1)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		w, err := ledger.CurrentWindow(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, int64(50), w.Count, "old window's count must not leak into the new one")
	})
}
