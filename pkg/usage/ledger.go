package usage

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/dmitrymomot/gatekit/pkg/plan"
)

// PlanResolver returns the effective plan for a principal. The registry's
// ActivePlan method satisfies this; the ledger calls it only when opening a
// fresh window.
type PlanResolver func(ctx context.Context, principalID string) (plan.Plan, error)

// entry is the independently lockable per-principal record. Holding e.mu is
// what makes check-and-increment indivisible for one principal.
type entry struct {
	mu         sync.Mutex
	window     Window
	hasWindow  bool
	lastAccess time.Time
}

// Ledger maps principals to their active usage windows.
type Ledger struct {
	mu      sync.RWMutex
	entries map[string]*entry

	resolvePlan PlanResolver
	store       Store
	now         func() time.Time

	cleanupInterval time.Duration
	staleAfter      time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithStore makes the ledger write every mutated window through to storage.
func WithStore(s Store) LedgerOption {
	return func(l *Ledger) { l.store = s }
}

// WithClock overrides the time source; used by tests to drive rollover.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithCleanupInterval sets how often stale entries are evicted.
// Zero disables the background cleanup goroutine.
func WithCleanupInterval(d time.Duration) LedgerOption {
	return func(l *Ledger) { l.cleanupInterval = d }
}

// NewLedger creates a Ledger that resolves window parameters through the
// given PlanResolver.
func NewLedger(resolvePlan PlanResolver, opts ...LedgerOption) *Ledger {
	if resolvePlan == nil {
		panic("usage: plan resolver cannot be nil")
	}

	l := &Ledger{
		entries:         make(map[string]*entry),
		resolvePlan:     resolvePlan,
		now:             time.Now,
		cleanupInterval: 10 * time.Minute,
		staleAfter:      time.Hour,
		stopCleanup:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.cleanupInterval > 0 {
		go l.cleanup()
	}

	return l
}

// CurrentWindow returns the principal's active window, opening a fresh one
// when none exists or the existing one has expired. Opening a window does not
// consume quota.
func (l *Ledger) CurrentWindow(ctx context.Context, principalID string) (Window, error) {
	e := l.entryFor(principalID)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := l.rolloverLocked(ctx, e, principalID); err != nil {
		return Window{}, err
	}
	return e.window, nil
}

// TryConsume atomically checks remaining quota and charges amount calls to
// the principal's current window. It returns the updated window on
// admission; on ErrQuotaExhausted the window is returned unmutated so
// callers can report remaining quota and reset time.
//
// Quota is charged on admission: a caller cancelling after TryConsume
// returned does not get its increment rolled back.
func (l *Ledger) TryConsume(ctx context.Context, principalID string, amount int64) (Window, error) {
	if amount <= 0 {
		return Window{}, ErrInvalidAmount
	}

	e := l.entryFor(principalID)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := l.rolloverLocked(ctx, e, principalID); err != nil {
		return Window{}, err
	}

	w := e.window
	if w.Plan.QuotaLimit != plan.Unlimited {
		// An overflowing count can only mean exhaustion; never wrap silently.
		if w.Count > math.MaxInt64-amount || w.Count+amount > w.Plan.QuotaLimit {
			return w, ErrQuotaExhausted
		}
	}

	updated := w
	updated.Count += amount

	if l.store != nil {
		if err := l.store.SaveWindow(ctx, updated); err != nil {
			// All-or-nothing: the in-memory count stays where storage left it.
			return w, errors.Join(ErrPersistFailed, err)
		}
	}

	e.window = updated
	return updated, nil
}

// entryFor returns the per-principal entry, creating it on first access.
func (l *Ledger) entryFor(principalID string) *entry {
	l.mu.RLock()
	e, ok := l.entries[principalID]
	l.mu.RUnlock()
	if ok {
		return e
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok = l.entries[principalID]; ok {
		return e
	}
	e = &entry{}
	l.entries[principalID] = e
	return e
}

// rolloverLocked ensures the entry holds a live window. Callers must hold
// e.mu. The plan is resolved only here, never mid-window.
func (l *Ledger) rolloverLocked(ctx context.Context, e *entry, principalID string) error {
	now := l.now()
	e.lastAccess = now

	if e.hasWindow && !e.window.Expired(now) {
		return nil
	}

	p, err := l.resolvePlan(ctx, principalID)
	if err != nil {
		return err
	}

	e.window = Window{
		PrincipalID: principalID,
		Plan:        p,
		StartedAt:   now,
		Count:       0,
	}
	e.hasWindow = true
	return nil
}

// cleanup periodically drops entries whose windows expired and that have not
// been touched for staleAfter, so dormant principals do not pin memory.
func (l *Ledger) cleanup() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.removeStale()
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *Ledger) removeStale() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for id, e := range l.entries {
		// TryLock: a contended entry is by definition not stale.
		if !e.mu.TryLock() {
			continue
		}
		stale := e.hasWindow && e.window.Expired(now) && now.Sub(e.lastAccess) > l.staleAfter
		e.mu.Unlock()

		if stale {
			delete(l.entries, id)
		}
	}
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (l *Ledger) Close() {
	l.closeOnce.Do(func() {
		close(l.stopCleanup)
	})
}
