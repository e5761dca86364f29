// Package cachetest provides an in-memory cache.Store for unit tests.
// TTLs are honored lazily against the wall clock, so tests can use short
// expirations or delete keys directly to simulate a lapsed TTL.
package cachetest

import (
	"context"
	"sort"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

type scoredMember struct {
	member string
	score  float64
}

// Store is an in-memory implementation of cache.Store.
type Store struct {
	mu       sync.Mutex
	kv       map[string]entry
	sets     map[string]map[string]struct{}
	zsets    map[string][]scoredMember
	failWith error
}

func New() *Store {
	return &Store{
		kv:    make(map[string]entry),
		sets:  make(map[string]map[string]struct{}),
		zsets: make(map[string][]scoredMember),
	}
}

// FailWith makes every subsequent operation return err. Pass nil to heal.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

func (s *Store) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return false, s.failWith
	}
	if e, ok := s.kv[key]; ok && !e.expired(time.Now()) {
		return false, nil
	}
	s.kv[key] = newEntry(value, ttl)
	return true, nil
}

func (s *Store) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.kv[key] = newEntry(value, ttl)
	return nil
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return "", false, s.failWith
	}
	e, ok := s.kv[key]
	if !ok || e.expired(time.Now()) {
		delete(s.kv, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *Store) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	for _, key := range keys {
		delete(s.kv, key)
	}
	return nil
}

func (s *Store) DelIfEquals(_ context.Context, key, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return false, s.failWith
	}
	e, ok := s.kv[key]
	if !ok || e.expired(time.Now()) || e.value != value {
		return false, nil
	}
	delete(s.kv, key)
	return true, nil
}

func (s *Store) SAdd(_ context.Context, key, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	if s.sets[key] == nil {
		s.sets[key] = make(map[string]struct{})
	}
	s.sets[key][member] = struct{}{}
	return nil
}

func (s *Store) SRem(_ context.Context, key, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	delete(s.sets[key], member)
	return nil
}

func (s *Store) SCard(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return 0, s.failWith
	}
	return int64(len(s.sets[key])), nil
}

func (s *Store) SMembers(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	members := make([]string, 0, len(s.sets[key]))
	for m := range s.sets[key] {
		members = append(members, m)
	}
	sort.Strings(members)
	return members, nil
}

func (s *Store) ZAdd(_ context.Context, key string, score float64, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	for i, sm := range s.zsets[key] {
		if sm.member == member {
			s.zsets[key][i].score = score
			s.sortZSet(key)
			return nil
		}
	}
	s.zsets[key] = append(s.zsets[key], scoredMember{member: member, score: score})
	s.sortZSet(key)
	return nil
}

func (s *Store) ZRank(_ context.Context, key, member string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return 0, false, s.failWith
	}
	for i, sm := range s.zsets[key] {
		if sm.member == member {
			return int64(i), true, nil
		}
	}
	return 0, false, nil
}

func (s *Store) ZRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	zs := s.zsets[key]
	n := int64(len(zs))
	if stop < 0 {
		stop = n + stop
	}
	if start < 0 {
		start = n + start
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop {
		return nil, nil
	}
	members := make([]string, 0, stop-start+1)
	for _, sm := range zs[start : stop+1] {
		members = append(members, sm.member)
	}
	return members, nil
}

func (s *Store) ZRem(_ context.Context, key, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	zs := s.zsets[key]
	for i, sm := range zs {
		if sm.member == member {
			s.zsets[key] = append(zs[:i], zs[i+1:]...)
			return nil
		}
	}
	return nil
}

// sortZSet keeps members ordered by score, insertion order on ties.
func (s *Store) sortZSet(key string) {
	sort.SliceStable(s.zsets[key], func(i, j int) bool {
		return s.zsets[key][i].score < s.zsets[key][j].score
	})
}

func newEntry(value string, ttl time.Duration) entry {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	return e
}
