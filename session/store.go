// Package session maps opaque tokens to user identities with an expiry,
// backed by an embedded BadgerDB so sessions survive restarts.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// ErrNoSession is returned when a token is unknown or has expired. The two
// cases are deliberately indistinguishable.
var ErrNoSession = errors.New("session not found")

// keyPrefix namespaces session entries; the full key is auth_<token>.
const keyPrefix = "auth_"

// Store is a token -> user id map with per-entry TTL.
type Store struct {
	db *badger.DB
}

// NewStore opens (or creates) the session database at path.
func NewStore(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open session db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func sessionKey(token string) []byte {
	return []byte(keyPrefix + token)
}

// Set stores a token for the given user with the given lifetime.
func (s *Store) Set(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(sessionKey(token), []byte(userID.String())).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
}

// Get resolves a token to its user id. Expired entries are reclaimed by
// Badger and read back as ErrKeyNotFound, so expiry and absence collapse
// into the same ErrNoSession.
func (s *Store) Get(ctx context.Context, token string) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}

	var userID uuid.UUID
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(token))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNoSession
		}
		if err != nil {
			return fmt.Errorf("failed to get session: %w", err)
		}
		return item.Value(func(val []byte) error {
			id, err := uuid.ParseBytes(val)
			if err != nil {
				return fmt.Errorf("corrupt session value: %w", err)
			}
			userID = id
			return nil
		})
	})
	if err != nil {
		return uuid.Nil, err
	}
	return userID, nil
}

// Delete removes a token. Deleting an absent token is not an error.
func (s *Store) Delete(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(sessionKey(token))
	})
}

// Alive reports whether the store is usable.
func (s *Store) Alive() bool {
	return s.db != nil && !s.db.IsClosed()
}
