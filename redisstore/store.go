package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/stampauth/stampauth"
)

const maxTxRetries = 4

// Store defines a public type used by stampauth APIs.
//
// Store instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Store struct {
	client *redis.Client
	prefix string
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "stampauth"
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) userKey(id string) string {
	return s.prefix + ":user:" + id
}

func (s *Store) emailKey(email string) string {
	return s.prefix + ":email:" + strings.ToLower(email)
}

// FindByID describes the findbyid operation and its observable behavior.
//
// FindByID may return an error when input validation, dependency calls, or security checks fail.
// FindByID does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) FindByID(ctx context.Context, id string) (*stampauth.UserAccount, error) {
	raw, err := s.client.Get(ctx, s.userKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, stampauth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", stampauth.ErrStoreUnavailable, err)
	}

	return decodeUser(raw)
}

// FindByEmail describes the findbyemail operation and its observable behavior.
//
// FindByEmail may return an error when input validation, dependency calls, or security checks fail.
// FindByEmail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) FindByEmail(ctx context.Context, email string) (*stampauth.UserAccount, error) {
	id, err := s.client.Get(ctx, s.emailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, stampauth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", stampauth.ErrStoreUnavailable, err)
	}

	return s.FindByID(ctx, id)
}

// Add describes the add operation and its observable behavior.
//
// Add may return an error when input validation, dependency calls, or security checks fail.
// Add does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) Add(ctx context.Context, user *stampauth.UserAccount) (*stampauth.UserAccount, error) {
	record := user.Clone()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.Version = 1

	raw, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}

	// The email index is the uniqueness guard; claim it first.
	claimed, err := s.client.SetNX(ctx, s.emailKey(record.Email), record.ID, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", stampauth.ErrStoreUnavailable, err)
	}
	if !claimed {
		return nil, stampauth.ErrAccountExists
	}

	if err := s.client.Set(ctx, s.userKey(record.ID), raw, 0).Err(); err != nil {
		_ = s.client.Del(context.WithoutCancel(ctx), s.emailKey(record.Email)).Err()
		return nil, fmt.Errorf("%w: %v", stampauth.ErrStoreUnavailable, err)
	}

	return record, nil
}

// Update performs a compare-and-swap on the record version under WATCH. A
// concurrent writer, or a stale in-memory version, surfaces as
// [stampauth.ErrConcurrencyConflict]. On success the caller's Version is
// advanced to the stored value.
//
// Update may return an error when input validation, dependency calls, or security checks fail.
// Update does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) Update(ctx context.Context, user *stampauth.UserAccount) error {
	key := s.userKey(user.ID)

	txn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return stampauth.ErrUserNotFound
		}
		if err != nil {
			return err
		}

		current, err := decodeUser(raw)
		if err != nil {
			return err
		}
		if current.Version != user.Version {
			return stampauth.ErrConcurrencyConflict
		}
		if current.Email != user.Email {
			return errors.New("email is immutable")
		}

		next := user.Clone()
		next.Version = user.Version + 1
		encoded, err := json.Marshal(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := s.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, stampauth.ErrUserNotFound) || errors.Is(err, stampauth.ErrConcurrencyConflict) {
				return err
			}
			return fmt.Errorf("%w: %v", stampauth.ErrStoreUnavailable, err)
		}
		user.Version++
		return nil
	}

	return stampauth.ErrConcurrencyConflict
}

// Delete describes the delete operation and its observable behavior.
//
// Delete may return an error when input validation, dependency calls, or security checks fail.
// Delete does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) Delete(ctx context.Context, id string) error {
	key := s.userKey(id)

	txn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return stampauth.ErrUserNotFound
		}
		if err != nil {
			return err
		}

		user, err := decodeUser(raw)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.Del(ctx, s.emailKey(user.Email))
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := s.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, stampauth.ErrUserNotFound) {
			return err
		}
		if err != nil {
			return fmt.Errorf("%w: %v", stampauth.ErrStoreUnavailable, err)
		}
		return nil
	}

	return stampauth.ErrConcurrencyConflict
}

func decodeUser(raw []byte) (*stampauth.UserAccount, error) {
	var user stampauth.UserAccount
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("corrupt user record: %w", err)
	}
	return &user, nil
}
