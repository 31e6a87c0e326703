package gate_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatekit/pkg/gate"
)

func TestAuthorize_ConcurrentQuotaSafety(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping race condition test in short mode")
	}

	t.Parallel()

	ctx := context.Background()
	s := newTestStack(t)
	tok := tokenFor(t, "cust-1") // basic plan, quota 3

	goroutines := 60
	callsPerGoroutine := 5

	var wg sync.WaitGroup
	wg.Add(goroutines)

	var admitted, quotaDenied, other atomic.Int64

	for range goroutines {
		go func() {
			defer wg.Done()
			for range callsPerGoroutine {
				v := s.engine.Authorize(ctx, tok, "read")
				switch v.Reason {
				case gate.ReasonAdmitted:
					admitted.Add(1)
				case gate.ReasonQuotaExhausted:
					quotaDenied.Add(1)
				default:
					other.Add(1)
				}
			}
		}()
	}

	wg.Wait()

	total := int64(goroutines * callsPerGoroutine)
	assert.Equal(t, total, admitted.Load()+quotaDenied.Load())
	assert.Zero(t, other.Load())
	assert.Equal(t, int64(3), admitted.Load(), "admissions must never exceed the quota")

	w, err := s.ledger.CurrentWindow(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), w.Count)

	// One audit record per call, admit or deny alike.
	assert.Len(t, s.recorder.all(), int(total))
}
