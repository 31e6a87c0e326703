package principal_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatekit/pkg/credential"
	"github.com/dmitrymomot/gatekit/pkg/principal"
)

const testSecret = "resolver-test-secret"

func issueFor(t *testing.T, id string) string {
	t.Helper()
	tok, err := credential.Issue(id, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func seedStore(t *testing.T) *principal.MemoryStore {
	t.Helper()
	store := principal.NewMemoryStore()
	require.NoError(t, store.CreateIdentity(context.Background(), principal.Identity{
		ID:   "user-1",
		Name: "Customer One",
		Role: principal.RoleCustomer,
	}))
	require.NoError(t, store.CreateIdentity(context.Background(), principal.Identity{
		ID:   "admin-1",
		Name: "Admin One",
		Role: principal.RoleAdmin,
	}))
	return store
}

func TestResolverResolve(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("valid credential", func(t *testing.T) {
		t.Parallel()

		store := seedStore(t)
		resolver := principal.NewResolver(store, testSecret,
			principal.WithPlanIDResolver(func(ctx context.Context, id string) (string, error) {
				return "pro", nil
			}))

		p, err := resolver.Resolve(ctx, issueFor(t, "user-1"))
		require.NoError(t, err)
		assert.Equal(t, "user-1", p.ID)
		assert.Equal(t, principal.RoleCustomer, p.Role)
		assert.Equal(t, "pro", p.PlanID)
		assert.False(t, p.IsAdmin())
	})

	t.Run("malformed credential", func(t *testing.T) {
		t.Parallel()

		resolver := principal.NewResolver(seedStore(t), testSecret)

		_, err := resolver.Resolve(ctx, "not-a-token")
		assert.ErrorIs(t, err, credential.ErrInvalidCredential)
	})

	t.Run("expired credential", func(t *testing.T) {
		t.Parallel()

		resolver := principal.NewResolver(seedStore(t), testSecret)
		tok, err := credential.Issue("user-1", testSecret, -time.Minute)
		require.NoError(t, err)

		_, err = resolver.Resolve(ctx, tok)
		assert.ErrorIs(t, err, credential.ErrExpiredCredential)
	})

	t.Run("unknown identity resolves as invalid", func(t *testing.T) {
		t.Parallel()

		resolver := principal.NewResolver(seedStore(t), testSecret)

		_, err := resolver.Resolve(ctx, issueFor(t, "ghost"))
		assert.ErrorIs(t, err, credential.ErrInvalidCredential)
		assert.ErrorIs(t, err, principal.ErrIdentityNotFound)
	})

	t.Run("deactivated identity resolves as invalid", func(t *testing.T) {
		t.Parallel()

		store := seedStore(t)
		require.NoError(t, store.SetDeactivated(ctx, "user-1", true))
		resolver := principal.NewResolver(store, testSecret)

		_, err := resolver.Resolve(ctx, issueFor(t, "user-1"))
		assert.ErrorIs(t, err, credential.ErrInvalidCredential)
		assert.ErrorIs(t, err, principal.ErrIdentityDeactivated)
	})

	t.Run("role change visible to existing credentials", func(t *testing.T) {
		t.Parallel()

		store := seedStore(t)
		resolver := principal.NewResolver(store, testSecret)
		tok := issueFor(t, "user-1")

		p, err := resolver.Resolve(ctx, tok)
		require.NoError(t, err)
		require.Equal(t, principal.RoleCustomer, p.Role)

		require.NoError(t, store.SetRole(ctx, "user-1", principal.RoleAdmin))

		p, err = resolver.Resolve(ctx, tok)
		require.NoError(t, err)
		assert.Equal(t, principal.RoleAdmin, p.Role)
	})

	t.Run("store failure surfaces as unavailable", func(t *testing.T) {
		t.Parallel()

		resolver := principal.NewResolver(failingStore{}, testSecret)

		_, err := resolver.Resolve(ctx, issueFor(t, "user-1"))
		assert.ErrorIs(t, err, principal.ErrStoreUnavailable)
		assert.NotErrorIs(t, err, credential.ErrInvalidCredential)
	})
}

type failingStore struct{}

func (failingStore) Identity(ctx context.Context, id string) (principal.Identity, error) {
	return principal.Identity{}, errors.New("connection refused")
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("duplicate create rejected", func(t *testing.T) {
		t.Parallel()

		store := principal.NewMemoryStore()
		ident := principal.Identity{ID: "dup", Role: principal.RoleCustomer}
		require.NoError(t, store.CreateIdentity(ctx, ident))
		assert.ErrorIs(t, store.CreateIdentity(ctx, ident), principal.ErrIdentityExists)
	})

	t.Run("unknown identity", func(t *testing.T) {
		t.Parallel()

		store := principal.NewMemoryStore()
		_, err := store.Identity(ctx, "missing")
		assert.ErrorIs(t, err, principal.ErrIdentityNotFound)

		assert.ErrorIs(t, store.SetDeactivated(ctx, "missing", true), principal.ErrIdentityNotFound)
		assert.ErrorIs(t, store.SetRole(ctx, "missing", principal.RoleAdmin), principal.ErrIdentityNotFound)
	})

	t.Run("secret hash is copied", func(t *testing.T) {
		t.Parallel()

		store := principal.NewMemoryStore()
		hash := []byte("bcrypt-hash")
		require.NoError(t, store.CreateIdentity(ctx, principal.Identity{ID: "u", Role: principal.RoleCustomer, SecretHash: hash}))

		hash[0] = 'X'

		got, err := store.Identity(ctx, "u")
		require.NoError(t, err)
		assert.Equal(t, []byte("bcrypt-hash"), got.SecretHash)
	})
}
