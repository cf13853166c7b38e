package invite

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryAttrs struct {
	attrs map[string][]string
}

func newMemoryAttrs() *memoryAttrs {
	return &memoryAttrs{attrs: map[string][]string{}}
}

func (m *memoryAttrs) UserAttribute(_ context.Context, _, key string) ([]string, error) {
	return m.attrs[key], nil
}

func (m *memoryAttrs) SetUserAttribute(_ context.Context, _, key string, values []string) error {
	m.attrs[key] = values
	return nil
}

func newTestLog() (*Log, *memoryAttrs) {
	store := newMemoryAttrs()
	return NewLog(store, "system-user", zerolog.Nop()), store
}

func TestLogAddAndListPending(t *testing.T) {
	ctx := context.Background()
	log, _ := newTestLog()

	inv, err := log.Add(ctx, Invitation{Email: "user@acme.test", TenantHost: "acme.tenants.example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, inv.ID)
	assert.Equal(t, StatusPending, inv.Status)
	assert.False(t, inv.CreatedAt.IsZero())

	pending, err := log.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "user@acme.test", pending[0].Email)
}

func TestLogAddRejectsEmptyEmail(t *testing.T) {
	log, _ := newTestLog()
	_, err := log.Add(context.Background(), Invitation{Email: "   "})
	assert.Error(t, err)
}

func TestLogPendingCap(t *testing.T) {
	ctx := context.Background()
	log, _ := newTestLog()

	for i := 0; i < maxPendingPerInvitee; i++ {
		_, err := log.Add(ctx, Invitation{Email: "user@acme.test"})
		require.NoError(t, err)
	}

	_, err := log.Add(ctx, Invitation{Email: "user@acme.test"})
	assert.ErrorIs(t, err, ErrTooManyPending)

	// The cap is per invitee, case-insensitively.
	_, err = log.Add(ctx, Invitation{Email: "USER@acme.test"})
	assert.ErrorIs(t, err, ErrTooManyPending)

	_, err = log.Add(ctx, Invitation{Email: "other@acme.test"})
	assert.NoError(t, err)
}

func TestLogRemove(t *testing.T) {
	ctx := context.Background()
	log, _ := newTestLog()

	inv, err := log.Add(ctx, Invitation{Email: "user@acme.test"})
	require.NoError(t, err)

	require.NoError(t, log.Remove(ctx, inv.ID))

	pending, err := log.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.ErrorIs(t, log.Remove(ctx, inv.ID), ErrInvitationNotFound)
}

func TestLogSkipsCorruptEntries(t *testing.T) {
	ctx := context.Background()
	log, store := newTestLog()

	store.attrs["invitations"] = []string{"{not json"}

	_, err := log.Add(ctx, Invitation{Email: "user@acme.test"})
	require.NoError(t, err)

	pending, err := log.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}
