package storage

import (
	"fmt"
	"time"

	"boltalka/internal/models"

	"go.etcd.io/bbolt"
)

var (
	bucketSessions = []byte("sessions")
)

// BboltStorage keeps the authenticated session on disk between runs. Chat
// messages are deliberately not persisted here; the log lives in memory for
// the duration of a room activation.
type BboltStorage struct {
	db *bbolt.DB
}

func NewBboltStorage(path string) (*BboltStorage, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSessions)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BboltStorage{db: db}, nil
}

func (s *BboltStorage) Close() error {
	return s.db.Close()
}

// SaveSession persists the authenticated session so the next run can resume it.
func (s *BboltStorage) SaveSession(record SessionRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		data, err := record.MarshalBinary()
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}
		return b.Put(record.Key(), data)
	})
}

func (s *BboltStorage) LoadSession() (SessionRecord, error) {
	var record SessionRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		data := b.Get(record.Key())
		if data == nil {
			return models.ErrNotFound
		}
		return record.UnmarshalBinary(data)
	})
	return record, err
}

func (s *BboltStorage) DeleteSession() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		var record SessionRecord
		return b.Delete(record.Key())
	})
}
