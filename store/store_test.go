package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"github.com/kbukum/chatstream/chat"
	"github.com/kbukum/chatstream/component"
	apperrors "github.com/kbukum/chatstream/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := Config{DSN: "file:" + filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"}
	cfg.ApplyDefaults()
	s, err := Open(context.Background(), sqlite.Open(cfg.DSN), cfg, nil)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// clock returns a now func that advances by step on every call.
func clock(start time.Time, step time.Duration) func() time.Time {
	cur := start.Add(-step)
	return func() time.Time {
		cur = cur.Add(step)
		return cur
	}
}

func create(t *testing.T, s *Store, content string) chat.Message {
	t.Helper()
	m, err := s.Create(context.Background(), chat.NewMessage{Sender: "1", Receiver: "2", Content: content})
	require.NoError(t, err)
	return m
}

func TestCreateAndGet(t *testing.T) {
	s := openTestStore(t)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	s.now = func() time.Time { return at }

	m := create(t, s, "hello")
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, chat.Ref("1"), m.Sender)
	assert.Equal(t, time.UTC, m.CreatedAt.Location())
	assert.True(t, m.CreatedAt.Equal(at))
	assert.Equal(t, m.CreatedAt, m.UpdatedAt)

	got, err := s.Get(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, "hello", got.Content)
	assert.True(t, got.UpdatedAt.Equal(at))
}

func TestGetNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "missing")
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeNotFound, appErr.Code)
}

func TestUpdateBumpsUpdatedAt(t *testing.T) {
	s := openTestStore(t)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return at }
	m := create(t, s, "hello")

	s.now = func() time.Time { return at.Add(time.Second) }
	edited := "hello, edited"
	got, err := s.Update(context.Background(), m.ID, chat.MessageUpdate{Content: &edited})
	require.NoError(t, err)
	assert.Equal(t, edited, got.Content)
	assert.Equal(t, chat.Ref("1"), got.Sender)
	assert.True(t, got.CreatedAt.Equal(at))
	assert.True(t, got.UpdatedAt.Equal(at.Add(time.Second)))

	stored, err := s.Get(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, edited, stored.Content)
	assert.True(t, stored.UpdatedAt.Equal(got.UpdatedAt))

	found, err := s.Find(context.Background(), chat.Query{
		Filter: &chat.Filter{Field: chat.FieldUpdatedAt, Operator: chat.OpGreaterThan, Value: at},
		Sort:   chat.SortUpdatedAtDesc,
		Limit:  10,
	})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, m.ID, found[0].ID)
}

func TestUpdateMovesForwardWhenClockStalls(t *testing.T) {
	s := openTestStore(t)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return at }
	m := create(t, s, "hello")

	receiver := chat.Ref("9")
	got, err := s.Update(context.Background(), m.ID, chat.MessageUpdate{Receiver: &receiver})
	require.NoError(t, err)
	assert.Equal(t, receiver, got.Receiver)
	assert.True(t, got.UpdatedAt.After(m.UpdatedAt))
}

func TestUpdateNotFound(t *testing.T) {
	s := openTestStore(t)
	content := "x"
	_, err := s.Update(context.Background(), "missing", chat.MessageUpdate{Content: &content})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeNotFound, appErr.Code)
}

func TestFindFilterSortLimit(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = clock(base, 250*time.Millisecond)

	var created []chat.Message
	for _, c := range []string{"a", "b", "c", "d"} {
		created = append(created, create(t, s, c))
	}

	got, err := s.Find(context.Background(), chat.Query{
		Filter: &chat.Filter{Field: chat.FieldUpdatedAt, Operator: chat.OpGreaterThanEqual, Value: created[1].UpdatedAt},
		Sort:   chat.SortUpdatedAtDesc,
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"d", "c", "b"}, contents(got))

	got, err = s.Find(context.Background(), chat.Query{
		Filter: &chat.Filter{Field: chat.FieldUpdatedAt, Operator: chat.OpGreaterThan, Value: created[1].UpdatedAt},
		Sort:   chat.SortUpdatedAtAsc,
		Limit:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, contents(got))

	got, err = s.Find(context.Background(), chat.Query{
		Filter: &chat.Filter{Field: chat.FieldCreatedAt, Operator: chat.OpLessThan, Value: created[2].CreatedAt},
		Sort:   chat.SortCreatedAtDesc,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, contents(got))
}

func TestFindSubSecondOrdering(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = clock(base, 7*time.Microsecond)
	for _, c := range []string{"a", "b", "c"} {
		create(t, s, c)
	}
	got, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, contents(got))
}

func TestFindRejectsUnknownQuery(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Find(context.Background(), chat.Query{Sort: "content"})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, appErr.Code)
}

func TestFindAfterCloseIsDatabaseError(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.Find(context.Background(), chat.Query{})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeDatabaseError, appErr.Code)
	assert.True(t, appErr.Retryable)
}

func TestConfig(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	assert.Equal(t, "sqlite", cfg.Driver)
	assert.True(t, cfg.Migrate())
	require.NoError(t, cfg.Validate())

	cfg.Driver = "postgres"
	assert.Error(t, cfg.Validate())

	cfg = Config{MaxOpenConns: 1, MaxIdleConns: 3}
	cfg.ApplyDefaults()
	assert.Error(t, cfg.Validate())

	off := false
	cfg = Config{AutoMigrate: &off}
	cfg.ApplyDefaults()
	assert.False(t, cfg.Migrate())
	assert.Equal(t, MigrationsVersioned, cfg.Migrations)

	cfg.Migrations = "manual"
	assert.Error(t, cfg.Validate())
}

func TestVersionedMigrations(t *testing.T) {
	s := openTestStore(t)

	version, dirty, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)
	assert.False(t, dirty)

	require.NoError(t, s.Migrate(context.Background()), "re-running migrations is a no-op")
	create(t, s, "after migrate")
}

func TestAutoMigrations(t *testing.T) {
	cfg := Config{
		DSN:        "file:" + filepath.Join(t.TempDir(), "auto.db") + "?_busy_timeout=5000",
		Migrations: MigrationsAuto,
	}
	cfg.ApplyDefaults()
	s, err := Open(context.Background(), sqlite.Open(cfg.DSN), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	create(t, s, "auto")

	version, _, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Zero(t, version)
}

func TestComponentLifecycle(t *testing.T) {
	c := NewComponent(Config{DSN: "file:" + filepath.Join(t.TempDir(), "c.db")}, nil)
	ctx := context.Background()

	assert.Equal(t, component.StatusUnhealthy, c.Health(ctx).Status)
	require.NoError(t, c.Start(ctx))
	assert.Equal(t, component.StatusHealthy, c.Health(ctx).Status)
	assert.Contains(t, c.Describe().Details, "migrations=versioned")

	_, err := c.Store().Create(ctx, chat.NewMessage{Sender: "a", Receiver: "b", Content: "x"})
	require.NoError(t, err)

	require.NoError(t, c.Stop(ctx))
	assert.Equal(t, component.StatusUnhealthy, c.Health(ctx).Status)
}

func contents(msgs []chat.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}
