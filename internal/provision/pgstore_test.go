package provision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/marit/provisioner/internal/model"
)

type mockDB struct {
	mock.Mock
}

func (m *mockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDB) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Rows), args.Error(1)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

type mockRow struct {
	scanFunc func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	return m.scanFunc(dest...)
}

// mockRows iterates through a list of scan functions, one per row.
type mockRows struct {
	callIndex int
	scanFuncs []func(dest ...any) error
	err       error
}

func (m *mockRows) Next() bool {
	return m.callIndex < len(m.scanFuncs)
}

func (m *mockRows) Scan(dest ...any) error {
	if m.callIndex < len(m.scanFuncs) {
		fn := m.scanFuncs[m.callIndex]
		m.callIndex++
		return fn(dest...)
	}
	return nil
}

func (m *mockRows) Err() error                                   { return m.err }
func (m *mockRows) Close()                                       {}
func (m *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (m *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (m *mockRows) RawValues() [][]byte                          { return nil }
func (m *mockRows) Values() ([]any, error)                       { return nil, nil }
func (m *mockRows) Conn() *pgx.Conn                              { return nil }

func scanJob(host string) func(dest ...any) error {
	return func(dest ...any) error {
		*dest[0].(*string) = host
		*dest[2].(*time.Time) = time.Now()
		*dest[3].(*string) = model.JobInProgress
		return nil
	}
}

func TestPostgresStoreAdd(t *testing.T) {
	ctx := context.Background()
	db := &mockDB{}
	store := NewPostgresStore(db)

	db.On("Exec", ctx, mock.Anything, mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	err := store.Add(ctx, newJob("acme.example.com"))
	assert.NoError(t, err)
}

func TestPostgresStoreAddActiveConflict(t *testing.T) {
	ctx := context.Background()
	db := &mockDB{}
	store := NewPostgresStore(db)

	// Zero rows affected means the upsert hit an in-progress row.
	db.On("Exec", ctx, mock.Anything, mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 0"), nil)

	err := store.Add(ctx, newJob("acme.example.com"))
	assert.ErrorIs(t, err, ErrJobExists)
}

func TestPostgresStoreGetActiveNotFound(t *testing.T) {
	ctx := context.Background()
	db := &mockDB{}
	store := NewPostgresStore(db)

	db.On("QueryRow", ctx, mock.Anything, mock.Anything).
		Return(&mockRow{scanFunc: func(...any) error { return pgx.ErrNoRows }})

	_, err := store.GetActive(ctx, "acme.example.com")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestPostgresStoreGetActive(t *testing.T) {
	ctx := context.Background()
	db := &mockDB{}
	store := NewPostgresStore(db)

	db.On("QueryRow", ctx, mock.Anything, mock.Anything).
		Return(&mockRow{scanFunc: scanJob("acme.example.com")})

	job, err := store.GetActive(ctx, "acme.example.com")
	require.NoError(t, err)
	assert.Equal(t, "acme.example.com", job.TenantHost)
	assert.Equal(t, model.JobInProgress, job.Status)
}

func TestPostgresStoreListActive(t *testing.T) {
	ctx := context.Background()
	db := &mockDB{}
	store := NewPostgresStore(db)

	rows := &mockRows{scanFuncs: []func(dest ...any) error{
		scanJob("a.example.com"),
		scanJob("b.example.com"),
	}}
	db.On("Query", ctx, mock.Anything, mock.Anything).Return(rows, nil)

	jobs, err := store.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "a.example.com", jobs[0].TenantHost)
	assert.Equal(t, "b.example.com", jobs[1].TenantHost)
}

func TestPostgresStoreListActiveQueryError(t *testing.T) {
	ctx := context.Background()
	db := &mockDB{}
	store := NewPostgresStore(db)

	db.On("Query", ctx, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	_, err := store.ListActive(ctx)
	assert.Error(t, err)
}

func TestPostgresStoreFinish(t *testing.T) {
	ctx := context.Background()
	db := &mockDB{}
	store := NewPostgresStore(db)

	db.On("Exec", ctx, mock.Anything,
		[]any{model.JobFinished, "acme", "acme.example.com", model.JobInProgress}).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	assert.NoError(t, store.Finish(ctx, "acme.example.com", model.JobFinished, "acme"))
}

func TestPostgresStoreFinishNotFound(t *testing.T) {
	ctx := context.Background()
	db := &mockDB{}
	store := NewPostgresStore(db)

	db.On("Exec", ctx, mock.Anything, mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	err := store.Finish(ctx, "missing.example.com", model.JobFinished, "")
	assert.ErrorIs(t, err, ErrJobNotFound)
}
