package db

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var sessionBucket = []byte("Session")

// lockTimeout bounds the wait for the file lock held by another process.
const lockTimeout = time.Second

type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	boltDB, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: lockTimeout})
	if err != nil {
		return nil, err
	}
	err = boltDB.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionBucket)
		return err
	})
	if err != nil {
		_ = boltDB.Close()
		return nil, err
	}
	return &BoltStore{db: boltDB}, nil
}

func (s *BoltStore) Load(_ context.Context) (string, error) {
	var token string
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		if b == nil {
			return ErrNoToken
		}
		v := b.Get([]byte(TokenKey))
		if v == nil {
			return ErrNoToken
		}
		token = string(v)
		return nil
	})
	return token, err
}

func (s *BoltStore) Save(_ context.Context, token string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(sessionBucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(TokenKey), []byte(token))
	})
}

func (s *BoltStore) Clear(_ context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(TokenKey))
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
