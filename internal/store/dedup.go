package store

import (
	"context"
	"database/sql"
	"log"
	"time"
)

// DedupStore tracks processed message IDs in Postgres so event consumers
// stay idempotent across restarts.
type DedupStore struct {
	db          *sql.DB
	cleanupDone chan struct{}
}

type DedupConfig struct {
	MessageTTL      time.Duration // How long to keep message records
	CleanupInterval time.Duration // How often to run cleanup
}

func DefaultDedupConfig() *DedupConfig {
	return &DedupConfig{
		MessageTTL:      7 * 24 * time.Hour,
		CleanupInterval: 1 * time.Hour,
	}
}

func NewDedupStore(db *sql.DB, config *DedupConfig) *DedupStore {
	if config == nil {
		config = DefaultDedupConfig()
	}

	store := &DedupStore{
		db:          db,
		cleanupDone: make(chan struct{}),
	}

	if db != nil {
		go store.startCleanup(config.CleanupInterval, config.MessageTTL)
	}

	return store
}

func (s *DedupStore) Stop() {
	close(s.cleanupDone)
}

func (s *DedupStore) startCleanup(interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.cleanupDone:
			return
		case <-ticker.C:
			if err := s.cleanup(context.Background(), ttl); err != nil {
				log.Printf("⚠️ Dedup cleanup failed: %v", err)
			}
		}
	}
}

func (s *DedupStore) cleanup(ctx context.Context, ttl time.Duration) error {
	query := `DELETE FROM processed_messages WHERE processed_at < $1`
	_, err := s.db.ExecContext(ctx, query, time.Now().Add(-ttl))
	return err
}

// IsProcessed reports whether the message ID has been seen before.
func (s *DedupStore) IsProcessed(ctx context.Context, messageID string) (bool, error) {
	if s.db == nil {
		return false, nil
	}
	query := `SELECT EXISTS(SELECT 1 FROM processed_messages WHERE message_id = $1)`
	var exists bool
	err := s.db.QueryRowContext(ctx, query, messageID).Scan(&exists)
	return exists, err
}

// MarkProcessed records the message ID; marking twice is harmless.
func (s *DedupStore) MarkProcessed(ctx context.Context, messageID string) error {
	if s.db == nil {
		return nil
	}
	query := `
		INSERT INTO processed_messages (message_id)
		VALUES ($1)
		ON CONFLICT (message_id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query, messageID)
	return err
}
