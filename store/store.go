package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kbukum/chatstream/chat"
	apperrors "github.com/kbukum/chatstream/errors"
	"github.com/kbukum/chatstream/logger"
	"github.com/kbukum/chatstream/resilience"
)

// Store reads and writes chat messages.
type Store struct {
	db         *gorm.DB
	log        *logger.Logger
	migrations string
	now        func() time.Time
	mu         sync.Mutex
	closed     bool
}

var _ chat.Finder = (*Store)(nil)

// Dialector builds the GORM dialect for cfg.Driver.
func Dialector(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Open connects through dialector, retrying up to cfg.MaxRetries times with
// backoff, and configures the connection pool.
func Open(ctx context.Context, dialector gorm.Dialector, cfg Config, log *logger.Logger) (*Store, error) {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}

	gormCfg := &gorm.Config{
		Logger: newGormLogger(log, cfg.SlowQueryThreshold, parseLogLevel(cfg.LogLevel)),
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxRetries
	retry.InitialBackoff = 500 * time.Millisecond
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		log.Warn("Database connection attempt failed, retrying", map[string]interface{}{
			"attempt": attempt,
			"error":   err.Error(),
			"backoff": backoff.String(),
		})
	}

	db, err := resilience.Retry(ctx, retry, func() (*gorm.DB, error) {
		db, err := gorm.Open(dialector, gormCfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		return db, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", cfg.MaxRetries, err)
	}

	log.Info("Database connection established", map[string]interface{}{
		"driver": cfg.Driver,
	})
	return &Store{db: db, log: log, migrations: cfg.Migrations, now: time.Now}, nil
}

// Migrate brings the messages table up to date using the configured
// migration mode.
func (s *Store) Migrate(ctx context.Context) error {
	if s.migrations == MigrationsAuto {
		if err := s.db.WithContext(ctx).AutoMigrate(&messageRecord{}); err != nil {
			return fmt.Errorf("failed to migrate messages: %w", err)
		}
		s.log.Info("Auto-migration completed")
		return nil
	}

	if err := migrateUp(s.db.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to migrate messages: %w", err)
	}
	version, _, err := schemaVersion(s.db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	s.log.Info("Schema migrations applied", map[string]interface{}{"version": version})
	return nil
}

// SchemaVersion returns the applied versioned migration and whether it
// was left dirty by a failed run.
func (s *Store) SchemaVersion() (uint, bool, error) {
	return schemaVersion(s.db)
}

// Find returns the messages matching q.
func (s *Store) Find(ctx context.Context, q chat.Query) ([]chat.Message, error) {
	if err := q.Validate(); err != nil {
		return nil, apperrors.InvalidInput("query", err.Error())
	}

	tx := s.db.WithContext(ctx).Model(&messageRecord{})
	if f := q.Filter; f != nil {
		tx = tx.Where(fmt.Sprintf("%s %s ?", columns[f.Field], operators[f.Operator]), f.Value.UTC())
	}
	if q.Sort != "" {
		tx = tx.Order(orders[q.Sort])
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var records []messageRecord
	if err := tx.Find(&records).Error; err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	out := make([]chat.Message, len(records))
	for i, r := range records {
		out[i] = r.toMessage()
	}
	return out, nil
}

// Recent returns up to limit messages, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]chat.Message, error) {
	return s.Find(ctx, chat.Query{Sort: chat.SortUpdatedAtDesc, Limit: limit})
}

// Get returns one message by ID.
func (s *Store) Get(ctx context.Context, id string) (chat.Message, error) {
	var r messageRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return chat.Message{}, apperrors.NotFound("message", id)
	}
	if err != nil {
		return chat.Message{}, apperrors.DatabaseError(err)
	}
	return r.toMessage(), nil
}

// Create stores a new message. CreatedAt and UpdatedAt are both set to the
// current UTC time.
func (s *Store) Create(ctx context.Context, in chat.NewMessage) (chat.Message, error) {
	now := s.now().UTC()
	r := messageRecord{
		ID:        uuid.NewString(),
		Sender:    in.Sender.String(),
		Receiver:  in.Receiver.String(),
		Content:   in.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return chat.Message{}, apperrors.DatabaseError(err)
	}
	return r.toMessage(), nil
}

// Update applies the non-nil fields of upd to message id and bumps
// UpdatedAt so watermark pollers deliver the edit. UpdatedAt always moves
// strictly forward, even when the clock has not.
func (s *Store) Update(ctx context.Context, id string, upd chat.MessageUpdate) (chat.Message, error) {
	var out messageRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).Take(&out).Error; err != nil {
			return err
		}

		now := s.now().UTC()
		if !now.After(out.UpdatedAt) {
			now = out.UpdatedAt.Add(time.Microsecond)
		}
		changes := map[string]interface{}{"updated_at": now}
		if upd.Sender != nil {
			out.Sender = upd.Sender.String()
			changes["sender"] = out.Sender
		}
		if upd.Receiver != nil {
			out.Receiver = upd.Receiver.String()
			changes["receiver"] = out.Receiver
		}
		if upd.Content != nil {
			out.Content = *upd.Content
			changes["content"] = out.Content
		}
		out.UpdatedAt = now
		// UpdateColumns keeps gorm from overwriting updated_at with its own clock.
		return tx.Model(&messageRecord{}).Where("id = ?", id).UpdateColumns(changes).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return chat.Message{}, apperrors.NotFound("message", id)
	}
	if err != nil {
		return chat.Message{}, apperrors.DatabaseError(err)
	}
	return out.toMessage(), nil
}

// PingContext verifies the connection is alive.
func (s *Store) PingContext(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool. Safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	s.log.Info("Closing database connection")
	s.closed = true
	return sqlDB.Close()
}
