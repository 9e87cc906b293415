package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerConfig configures the embedded key-value backend.
type BadgerConfig struct {
	// Path is the directory holding the database files. Ignored when
	// InMemory is set.
	Path string

	// InMemory keeps the whole database in memory, for tests.
	InMemory bool

	// SyncWrites forces an fsync on every write.
	SyncWrites bool

	// Logger receives badger's internal log output. Nil means
	// slog.Default().
	Logger *slog.Logger
}

// DefaultBadgerConfig returns a disk-backed configuration rooted at path.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{Path: path}
}

// InMemoryBadgerConfig returns a configuration for an in-memory database.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true}
}

// Badger stores blobs as values in an embedded badger database. It
// suits single-host installs that want persistence without an external
// service.
type Badger struct {
	db *badger.DB
}

// NewBadger opens the database described by cfg.
func NewBadger(cfg BadgerConfig) (*Badger, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(badgerSlog{logger})
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &Badger{db: db}, nil
}

// Close closes the underlying database.
func (b *Badger) Close() error {
	return b.db.Close()
}

// GetContentStream returns a reader over the stored value.
func (b *Badger) GetContentStream(ctx context.Context, key string) (io.ReadCloser, error) {
	data, err := b.GetObjectContent(ctx, key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// GetObjectContent reads the stored value for key.
func (b *Badger) GetObjectContent(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", key, err)
	}
	return data, nil
}

// WriteFileObj reads r fully and stores it under key. Badger values are
// written in one transaction, so the stream is buffered first.
func (b *Badger) WriteFileObj(ctx context.Context, r io.Reader, key string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content for blob %s: %w", key, err)
	}
	return b.WriteBytes(ctx, data, key)
}

// WriteBytes stores data under key.
func (b *Badger) WriteBytes(ctx context.Context, data []byte, key string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("failed to write blob %s: %w", key, err)
	}
	return nil
}

// Delete removes the value stored under key.
func (b *Badger) Delete(ctx context.Context, key string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	return nil
}

// badgerSlog adapts slog to badger's Logger interface.
type badgerSlog struct {
	l *slog.Logger
}

func (b badgerSlog) Errorf(format string, args ...interface{}) {
	b.l.Error(fmt.Sprintf(format, args...))
}

func (b badgerSlog) Warningf(format string, args ...interface{}) {
	b.l.Warn(fmt.Sprintf(format, args...))
}

func (b badgerSlog) Infof(format string, args ...interface{}) {
	b.l.Info(fmt.Sprintf(format, args...))
}

func (b badgerSlog) Debugf(format string, args ...interface{}) {
	b.l.Debug(fmt.Sprintf(format, args...))
}

var _ Storage = (*Badger)(nil)
