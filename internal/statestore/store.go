// internal/statestore/store.go

// Package statestore provides a durable key -> JSON document store with
// per-key atomic read-modify-write updates. Concurrent updates to the same
// key serialize; updates to different keys proceed independently.
package statestore

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	stderrors "hireflow/internal/common/errors"
	"hireflow/internal/common/logger"
)

// Mutator transforms the current document bytes into the next version.
// It must not retain or mutate the input slice after returning.
type Mutator func(current []byte) ([]byte, error)

type Store struct {
	client *redis.Client
	prefix string
	logger logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(client *redis.Client, prefix string, log logger.Logger) *Store {
	return &Store{
		client: client,
		prefix: prefix,
		logger: log.WithFields(map[string]interface{}{"component": "statestore"}),
		locks:  map[string]*sync.Mutex{},
	}
}

// keyLock returns the mutex guarding one key, creating it on first use.
// Locks are never removed; the key population is small and long-lived.
func (s *Store) keyLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

func (s *Store) redisKey(key string) string {
	return s.prefix + key
}

// Get fetches the current document for key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if err == redis.Nil {
		return nil, stderrors.NewNotFoundError(key)
	}
	if err != nil {
		return nil, stderrors.NewStorageIOError("get", err)
	}
	return val, nil
}

// CreateIfAbsent stores doc under key only when the key does not exist yet.
// Returns true when the record was created, false when it already existed.
func (s *Store) CreateIfAbsent(ctx context.Context, key string, doc []byte) (bool, error) {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	created, err := s.client.SetNX(ctx, s.redisKey(key), doc, 0).Result()
	if err != nil {
		return false, stderrors.NewStorageIOError("create", err)
	}
	return created, nil
}

// Update applies mutator to the current document under the key's mutex and
// persists the result. The sequence read-mutate-write is atomic with respect
// to every other Update and CreateIfAbsent on the same key in this process.
//
// Updating an absent key is a no-op returning NotFound; records are never
// created implicitly. A panicking mutator is recovered: the update is
// discarded, the stored document is unchanged, and a MutatorPanic error is
// returned.
func (s *Store) Update(ctx context.Context, key string, mutator Mutator) (result []byte, err error) {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	current, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if err == redis.Nil {
		return nil, stderrors.NewNotFoundError(key)
	}
	if err != nil {
		return nil, stderrors.NewStorageIOError("update.read", err)
	}

	next, err := s.applyMutator(key, current, mutator)
	if err != nil {
		return nil, err
	}

	if err := s.client.Set(ctx, s.redisKey(key), next, 0).Err(); err != nil {
		return nil, stderrors.NewStorageIOError("update.write", err)
	}
	return next, nil
}

// applyMutator isolates the mutator call so a panic discards the update
// instead of unwinding through the caller.
func (s *Store) applyMutator(key string, current []byte, mutator Mutator) (next []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("mutator panicked, update discarded", map[string]interface{}{
				"key":   key,
				"panic": fmt.Sprintf("%v", r),
			})
			next = nil
			err = stderrors.NewMutatorPanicError(key, r)
		}
	}()

	snapshot := make([]byte, len(current))
	copy(snapshot, current)

	next, err = mutator(snapshot)
	if err != nil {
		return nil, err
	}
	return next, nil
}

// Keys returns a snapshot of all record identifiers, prefix stripped.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val()[len(s.prefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, stderrors.NewStorageIOError("keys", err)
	}
	return keys, nil
}
