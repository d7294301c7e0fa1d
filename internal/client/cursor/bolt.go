//go:build !js

package cursor

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/dmitrijs2005/habitsync/internal/logging"
)

// BoltStore keeps cursors in a bbolt file, one bucket per namespace (the
// authenticated user id), so ResetCursors touches only the current user.
type BoltStore struct {
	db     *bbolt.DB
	bucket []byte
}

// Open opens (or creates) the cursor database at path. Any failure falls
// back to the in-memory store rather than propagating: losing cursor
// durability only means the next pull starts from scratch.
func Open(ctx context.Context, path, namespace string, log logging.Logger) Store {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		log.Warn(ctx, "failed to open cursor store, falling back to memory", "path", path, "error", err)
		return NewMemoryStore()
	}

	s := &BoltStore{db: db, bucket: []byte(namespace)}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.bucket)
		return err
	}); err != nil {
		log.Warn(ctx, "failed to initialize cursor bucket, falling back to memory", "error", err)
		db.Close()
		return NewMemoryStore()
	}
	return s
}

func (s *BoltStore) GetCursor(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return fmt.Errorf("cursor bucket not found")
		}
		value = string(b.Get([]byte(key)))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to get cursor %q: %w", key, err)
	}
	return value, nil
}

func (s *BoltStore) SetCursor(ctx context.Context, key, value string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return fmt.Errorf("cursor bucket not found")
		}
		return b.Put([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("failed to set cursor %q: %w", key, err)
	}
	return nil
}

func (s *BoltStore) ClearCursor(ctx context.Context, key string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("failed to clear cursor %q: %w", key, err)
	}
	return nil
}

func (s *BoltStore) ResetCursors(ctx context.Context) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(s.bucket) == nil {
			return nil
		}
		if err := tx.DeleteBucket(s.bucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(s.bucket)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to reset cursors: %w", err)
	}
	return nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
