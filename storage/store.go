// Package storage persists emails, threads and analysis results in a
// local BoltDB file. The pipeline core never touches this package; the
// request layer writes what the core returns and rehydrates the
// agent's registry at startup.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"mailagent/models"
)

var (
	emailBucket    = []byte("Emails")
	threadBucket   = []byte("Threads")
	analysisBucket = []byte("Analyses")
)

// Store wraps the BoltDB handle.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the database under dataDir.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "mailagent.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{emailBucket, threadBucket, analysisBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveEmail stores an email, assigning an id when it has none.
func (s *Store) SaveEmail(email *models.Email) error {
	if email.ID == "" {
		email.ID = uuid.New().String()
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		encoded, err := json.Marshal(email)
		if err != nil {
			return fmt.Errorf("failed to encode email: %w", err)
		}
		return tx.Bucket(emailBucket).Put([]byte(email.ID), encoded)
	})
}

// GetEmail fetches one email by id.
func (s *Store) GetEmail(id string) (*models.Email, error) {
	var email models.Email
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(emailBucket).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("email %s not found", id)
		}
		return json.Unmarshal(data, &email)
	})
	if err != nil {
		return nil, err
	}
	return &email, nil
}

// ListEmails returns all stored emails sorted newest first.
func (s *Store) ListEmails() ([]*models.Email, error) {
	var emails []*models.Email
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(emailBucket).ForEach(func(_, v []byte) error {
			var email models.Email
			if err := json.Unmarshal(v, &email); err != nil {
				return err
			}
			emails = append(emails, &email)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(emails, func(i, j int) bool {
		return emails[i].Timestamp.After(emails[j].Timestamp)
	})
	return emails, nil
}

// SaveThread stores a thread snapshot.
func (s *Store) SaveThread(thread *models.EmailThread) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		encoded, err := json.Marshal(thread)
		if err != nil {
			return fmt.Errorf("failed to encode thread: %w", err)
		}
		return tx.Bucket(threadBucket).Put([]byte(thread.ID), encoded)
	})
}

// GetThread fetches one thread by id.
func (s *Store) GetThread(id string) (*models.EmailThread, error) {
	var thread models.EmailThread
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(threadBucket).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("thread %s not found", id)
		}
		return json.Unmarshal(data, &thread)
	})
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// SaveAnalysis stores the pipeline result for an email.
func (s *Store) SaveAnalysis(result *models.ProcessResult) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		encoded, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to encode analysis: %w", err)
		}
		return tx.Bucket(analysisBucket).Put([]byte(result.EmailID), encoded)
	})
}

// GetAnalysis fetches the stored pipeline result for an email, or nil
// when the email was never processed.
func (s *Store) GetAnalysis(emailID string) (*models.ProcessResult, error) {
	var result *models.ProcessResult
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(analysisBucket).Get([]byte(emailID))
		if data == nil {
			return nil
		}
		result = &models.ProcessResult{}
		return json.Unmarshal(data, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListAnalyses returns all stored pipeline results keyed by email id.
func (s *Store) ListAnalyses() (map[string]*models.ProcessResult, error) {
	results := make(map[string]*models.ProcessResult)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(analysisBucket).ForEach(func(k, v []byte) error {
			var result models.ProcessResult
			if err := json.Unmarshal(v, &result); err != nil {
				return err
			}
			results[string(k)] = &result
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
