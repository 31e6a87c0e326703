package gate_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatekit/pkg/audit"
	"github.com/dmitrymomot/gatekit/pkg/credential"
	"github.com/dmitrymomot/gatekit/pkg/gate"
	"github.com/dmitrymomot/gatekit/pkg/plan"
	"github.com/dmitrymomot/gatekit/pkg/principal"
	"github.com/dmitrymomot/gatekit/pkg/usage"
)

const testSecret = "gate-test-secret"

// fakeClock drives window rollover deterministically.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// collectingRecorder is a synchronous AuditRecorder for assertions.
type collectingRecorder struct {
	mu      sync.Mutex
	records []audit.Record
}

func (r *collectingRecorder) Record(rec audit.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *collectingRecorder) all() []audit.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.Record, len(r.records))
	copy(out, r.records)
	return out
}

type testStack struct {
	engine   *gate.Engine
	registry *plan.Registry
	ledger   *usage.Ledger
	store    *principal.MemoryStore
	recorder *collectingRecorder
	clock    *fakeClock
}

// newTestStack wires memory implementations of every collaborator:
// plans "basic" (quota 3/h, read-only) and "power" (quota 5/h, read+write),
// customer "cust-1" on basic, admin "adm-1" on basic.
func newTestStack(t *testing.T) *testStack {
	t.Helper()

	ctx := context.Background()
	clock := newFakeClock()

	plans := map[string]plan.Plan{
		"basic": {
			ID:                "basic",
			Name:              "Basic",
			QuotaLimit:        3,
			WindowDuration:    time.Hour,
			AllowedOperations: []plan.Operation{"read"},
		},
		"power": {
			ID:                "power",
			Name:              "Power",
			QuotaLimit:        5,
			WindowDuration:    time.Hour,
			AllowedOperations: []plan.Operation{"read", "write"},
		},
	}
	assignments := map[string]string{"cust-1": "basic", "adm-1": "basic"}

	registry, err := plan.NewRegistry(ctx, plan.NewInMemSource(plans, assignments))
	require.NoError(t, err)

	store := principal.NewMemoryStore()
	require.NoError(t, store.CreateIdentity(ctx, principal.Identity{ID: "cust-1", Role: principal.RoleCustomer}))
	require.NoError(t, store.CreateIdentity(ctx, principal.Identity{ID: "adm-1", Role: principal.RoleAdmin}))

	resolver := principal.NewResolver(store, testSecret,
		principal.WithPlanIDResolver(registry.ActivePlanID))

	ledger := usage.NewLedger(registry.ActivePlan,
		usage.WithClock(clock.Now), usage.WithCleanupInterval(0))
	t.Cleanup(ledger.Close)

	recorder := &collectingRecorder{}

	engine := gate.NewEngine(resolver, registry, ledger,
		gate.WithAuditRecorder(recorder),
		gate.WithClock(clock.Now))

	return &testStack{
		engine:   engine,
		registry: registry,
		ledger:   ledger,
		store:    store,
		recorder: recorder,
		clock:    clock,
	}
}

func tokenFor(t *testing.T, id string) string {
	t.Helper()
	tok, err := credential.Issue(id, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestAuthorize(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("quota scenario: three admits, one deny, reset after window", func(t *testing.T) {
		t.Parallel()

		s := newTestStack(t)
		tok := tokenFor(t, "cust-1")

		for i := int64(1); i <= 3; i++ {
			v := s.engine.Authorize(ctx, tok, "read")
			require.True(t, v.Allowed, "call %d should be admitted", i)
			assert.Equal(t, gate.ReasonAdmitted, v.Reason)
			assert.Equal(t, 3-i, v.Remaining)
		}

		v := s.engine.Authorize(ctx, tok, "read")
		assert.False(t, v.Allowed)
		assert.Equal(t, gate.ReasonQuotaExhausted, v.Reason)
		assert.Equal(t, int64(0), v.Remaining)
		assert.Positive(t, v.RetryAfter(s.clock.Now()))

		s.clock.Advance(time.Hour)

		v = s.engine.Authorize(ctx, tok, "read")
		require.True(t, v.Allowed)
		assert.Equal(t, int64(2), v.Remaining, "fresh window counts from zero")
	})

	t.Run("invalid credential", func(t *testing.T) {
		t.Parallel()

		s := newTestStack(t)

		v := s.engine.Authorize(ctx, "garbage", "read")
		assert.False(t, v.Allowed)
		assert.Equal(t, gate.ReasonInvalidCredential, v.Reason)
		assert.Empty(t, v.PrincipalID)
	})

	t.Run("expired credential", func(t *testing.T) {
		t.Parallel()

		s := newTestStack(t)
		tok, err := credential.Issue("cust-1", testSecret, -time.Minute)
		require.NoError(t, err)

		v := s.engine.Authorize(ctx, tok, "read")
		assert.False(t, v.Allowed)
		assert.Equal(t, gate.ReasonExpiredCredential, v.Reason)
	})

	t.Run("forbidden operation consumes no quota", func(t *testing.T) {
		t.Parallel()

		s := newTestStack(t)
		tok := tokenFor(t, "cust-1")

		before, err := s.ledger.CurrentWindow(ctx, "cust-1")
		require.NoError(t, err)

		v := s.engine.Authorize(ctx, tok, "write")
		assert.False(t, v.Allowed)
		assert.Equal(t, gate.ReasonOperationNotAllowed, v.Reason)

		after, err := s.ledger.CurrentWindow(ctx, "cust-1")
		require.NoError(t, err)
		assert.Equal(t, before.Count, after.Count, "denied-by-role request must not be metered")
		assert.Equal(t, int64(0), after.Count)
	})

	t.Run("admin bypasses operation set but is metered", func(t *testing.T) {
		t.Parallel()

		s := newTestStack(t)
		tok := tokenFor(t, "adm-1")

		// "write" is outside the basic plan's operation set.
		v := s.engine.Authorize(ctx, tok, "write")
		require.True(t, v.Allowed)

		w, err := s.ledger.CurrentWindow(ctx, "adm-1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), w.Count, "admin calls still consume quota")

		// Quota still binds admins.
		for range 2 {
			v = s.engine.Authorize(ctx, tok, "write")
			require.True(t, v.Allowed)
		}
		v = s.engine.Authorize(ctx, tok, "write")
		assert.False(t, v.Allowed)
		assert.Equal(t, gate.ReasonQuotaExhausted, v.Reason)
	})

	t.Run("principal without plan assignment", func(t *testing.T) {
		t.Parallel()

		s := newTestStack(t)
		require.NoError(t, s.store.CreateIdentity(ctx, principal.Identity{ID: "plan-less", Role: principal.RoleCustomer}))

		v := s.engine.Authorize(ctx, tokenFor(t, "plan-less"), "read")
		assert.False(t, v.Allowed)
		assert.Equal(t, gate.ReasonUnknownPlan, v.Reason)
	})

	t.Run("plan reassignment applies at next window", func(t *testing.T) {
		t.Parallel()

		s := newTestStack(t)
		tok := tokenFor(t, "cust-1")

		v := s.engine.Authorize(ctx, tok, "read")
		require.True(t, v.Allowed)

		// Upgrade mid-window; current window keeps the basic snapshot,
		// so "write" stays forbidden until rollover.
		require.NoError(t, s.registry.AssignPlan(ctx, "cust-1", "power"))

		v = s.engine.Authorize(ctx, tok, "write")
		assert.False(t, v.Allowed)
		assert.Equal(t, gate.ReasonOperationNotAllowed, v.Reason)

		s.clock.Advance(time.Hour)

		v = s.engine.Authorize(ctx, tok, "write")
		require.True(t, v.Allowed)
		assert.Equal(t, int64(4), v.Remaining, "power plan quota applies in the new window")
	})

	t.Run("audit records emitted for every outcome", func(t *testing.T) {
		t.Parallel()

		s := newTestStack(t)
		tok := tokenFor(t, "cust-1")

		s.engine.Authorize(ctx, tok, "read")    // admitted
		s.engine.Authorize(ctx, tok, "write")   // forbidden
		s.engine.Authorize(ctx, "junk", "read") // invalid credential

		recs := s.recorder.all()
		require.Len(t, recs, 3)

		assert.True(t, recs[0].Allowed)
		assert.Equal(t, string(gate.ReasonAdmitted), recs[0].Reason)
		assert.Equal(t, "cust-1", recs[0].PrincipalID)

		assert.False(t, recs[1].Allowed)
		assert.Equal(t, string(gate.ReasonOperationNotAllowed), recs[1].Reason)

		assert.False(t, recs[2].Allowed)
		assert.Equal(t, string(gate.ReasonInvalidCredential), recs[2].Reason)
		assert.Empty(t, recs[2].PrincipalID)

		for _, rec := range recs {
			assert.NotEmpty(t, rec.ID)
			assert.False(t, rec.CreatedAt.IsZero())
		}
	})

	t.Run("storage fault denies service_unavailable", func(t *testing.T) {
		t.Parallel()

		s := newTestStack(t)
		// Break the persistence path: every SaveWindow fails.
		ledger := usage.NewLedger(s.registry.ActivePlan,
			usage.WithStore(failingUsageStore{}),
			usage.WithClock(s.clock.Now),
			usage.WithCleanupInterval(0))
		defer ledger.Close()

		resolver := principal.NewResolver(s.store, testSecret,
			principal.WithPlanIDResolver(s.registry.ActivePlanID))
		engine := gate.NewEngine(resolver, s.registry, ledger)

		v := engine.Authorize(ctx, tokenFor(t, "cust-1"), "read")
		assert.False(t, v.Allowed)
		assert.Equal(t, gate.ReasonServiceUnavailable, v.Reason)

		w, err := ledger.CurrentWindow(ctx, "cust-1")
		require.NoError(t, err)
		assert.Equal(t, int64(0), w.Count, "failed admit must not charge quota")
	})
}

type failingUsageStore struct{}

func (failingUsageStore) SaveWindow(ctx context.Context, w usage.Window) error {
	return context.DeadlineExceeded
}
