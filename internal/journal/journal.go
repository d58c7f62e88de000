// Package journal keeps a local history of attendance attempts in a bbolt
// file. The journal is observational only; the duplicate guard never consults
// it and the automation toggle is never persisted here.
package journal

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/jonesrussell/gopunch/internal/domain"
	"github.com/jonesrussell/gopunch/internal/logger"
)

var attemptsBucket = []byte("attempts")

// Journal records attempts to a bbolt database.
type Journal struct {
	db     *bolt.DB
	logger logger.Interface
}

// Open opens or creates the journal file.
func Open(path string, log logger.Interface) (*Journal, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, createErr := tx.CreateBucketIfNotExists(attemptsBucket)
		return createErr
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize journal: %w", err)
	}

	return &Journal{db: db, logger: log.WithComponent("journal")}, nil
}

// Close closes the journal file.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends an attempt. Write failures are logged and swallowed; history
// is best effort and never blocks an attempt.
func (j *Journal) Record(attempt domain.Attempt) {
	value, err := json.Marshal(attempt)
	if err != nil {
		j.logger.Warn("failed to encode attempt", "error", err)
		return
	}

	// Keys sort chronologically so a reverse cursor yields newest first.
	key := []byte(attempt.At.UTC().Format("2006-01-02T15:04:05.000000000") + "_" + attempt.ID)

	err = j.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(attemptsBucket).Put(key, value)
	})
	if err != nil {
		j.logger.Warn("failed to record attempt", "error", err)
	}
}

// Recent returns up to limit attempts, newest first.
func (j *Journal) Recent(limit int) ([]domain.Attempt, error) {
	if limit <= 0 {
		limit = 20
	}

	attempts := make([]domain.Attempt, 0, limit)
	err := j.db.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(attemptsBucket).Cursor()
		for k, v := cursor.Last(); k != nil && len(attempts) < limit; k, v = cursor.Prev() {
			var attempt domain.Attempt
			if unmarshalErr := json.Unmarshal(v, &attempt); unmarshalErr != nil {
				j.logger.Warn("skipping unreadable attempt record", "key", string(k))
				continue
			}
			attempts = append(attempts, attempt)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}

	return attempts, nil
}
