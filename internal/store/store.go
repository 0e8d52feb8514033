package store

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"qrt/internal/codec"
)

const (
	SessionsBucket = "sessions"
	RecordsBucket  = "records"
)

// SessionStore persists scan sessions and their ingested records in bbolt.
type SessionStore struct {
	db         *bbolt.DB
	mu         sync.RWMutex
	serializer Serializer
}

// Config contains the configuration for a SessionStore.
type Config struct {
	Path       string
	FileMode   os.FileMode
	Options    *bbolt.Options
	Serializer Serializer
}

func NewSessionStore(cfg Config) (*SessionStore, error) {
	if cfg.Serializer == nil {
		cfg.Serializer = &GobSerializer{}
	}

	if cfg.FileMode == 0 {
		cfg.FileMode = 0666
	}

	db, err := bbolt.Open(cfg.Path, cfg.FileMode, cfg.Options)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{SessionsBucket, RecordsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	return &SessionStore{
		db:         db,
		serializer: cfg.Serializer,
	}, nil
}

func (s *SessionStore) Close() error {
	if s.db == nil {
		return ErrNilDB
	}
	return s.db.Close()
}

// CreateSession opens a new scan session and returns it.
func (s *SessionStore) CreateSession(label string) (Session, error) {
	session := Session{
		ID:        uuid.NewString(),
		Label:     label,
		CreatedAt: time.Now().UTC(),
	}

	data, err := s.serializer.Serialize(session)
	if err != nil {
		return Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(SessionsBucket))
		if bucket == nil {
			return ErrBucketNotFound
		}
		return bucket.Put([]byte(session.ID), data)
	})
	if err != nil {
		return Session{}, err
	}
	return session, nil
}

// GetSession loads one session's metadata.
func (s *SessionStore) GetSession(id string) (Session, error) {
	var session Session

	s.mu.RLock()
	defer s.mu.RUnlock()

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(SessionsBucket))
		if bucket == nil {
			return ErrBucketNotFound
		}

		data := bucket.Get([]byte(id))
		if data == nil {
			return ErrSessionNotFound
		}
		return s.serializer.Deserialize(data, &session)
	})
	if err != nil {
		return Session{}, err
	}
	return session, nil
}

// Sessions returns every stored session, newest first.
func (s *SessionStore) Sessions() ([]Session, error) {
	var sessions []Session

	s.mu.RLock()
	defer s.mu.RUnlock()

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(SessionsBucket))
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			var session Session
			if err := s.serializer.Deserialize(v, &session); err != nil {
				return err
			}
			sessions = append(sessions, session)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// PutRecord stores one parsed record under a session. Re-ingesting the same
// filename and index overwrites, matching the reassembler's last-write-wins.
func (s *SessionStore) PutRecord(sessionID string, rec codec.WireRecord, source string) error {
	stored := StoredRecord{
		Record:  rec,
		Source:  source,
		AddedAt: time.Now().UTC(),
	}

	data, err := s.serializer.Serialize(stored)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		parent := tx.Bucket([]byte(RecordsBucket))
		if parent == nil {
			return ErrBucketNotFound
		}
		if tx.Bucket([]byte(SessionsBucket)).Get([]byte(sessionID)) == nil {
			return ErrSessionNotFound
		}

		bucket, err := parent.CreateBucketIfNotExists([]byte(sessionID))
		if err != nil {
			return fmt.Errorf("failed to create session records bucket: %w", err)
		}
		return bucket.Put(recordKey(rec), data)
	})
}

// Records returns every record of one session.
func (s *SessionStore) Records(sessionID string) ([]StoredRecord, error) {
	var records []StoredRecord

	s.mu.RLock()
	defer s.mu.RUnlock()

	err := s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(SessionsBucket)).Get([]byte(sessionID)) == nil {
			return ErrSessionNotFound
		}

		parent := tx.Bucket([]byte(RecordsBucket))
		if parent == nil {
			return ErrBucketNotFound
		}
		bucket := parent.Bucket([]byte(sessionID))
		if bucket == nil {
			return nil // session exists but nothing ingested yet
		}

		return bucket.ForEach(func(k, v []byte) error {
			var stored StoredRecord
			if err := s.serializer.Deserialize(v, &stored); err != nil {
				return err
			}
			records = append(records, stored)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteSession removes a session and all its records.
func (s *SessionStore) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		sessions := tx.Bucket([]byte(SessionsBucket))
		if sessions == nil || sessions.Get([]byte(id)) == nil {
			return ErrSessionNotFound
		}
		if err := sessions.Delete([]byte(id)); err != nil {
			return err
		}

		parent := tx.Bucket([]byte(RecordsBucket))
		if parent != nil && parent.Bucket([]byte(id)) != nil {
			return parent.DeleteBucket([]byte(id))
		}
		return nil
	})
}

// recordKey orders records by filename, then index.
func recordKey(rec codec.WireRecord) []byte {
	return []byte(fmt.Sprintf("%s/%06d", rec.Filename, rec.Index))
}
