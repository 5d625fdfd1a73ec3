package oauthstate

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const TTL = 10 * time.Minute

// Store keeps the opaque state values round-tripped through OAuth
// redirects. Entries are one-shot: a state is consumed on first use, so a
// replayed callback finds nothing.
type Store struct {
	c *cache.Cache
}

func New() *Store {
	return &Store{c: cache.New(TTL, 5*time.Minute)}
}

// Issue stores v under a fresh random state and returns the state.
func (s *Store) Issue(v any) string {
	state := uuid.NewString()
	s.c.Set(state, v, cache.DefaultExpiration)
	return state
}

// Put stores v under a caller-chosen key (the Twitter request token, whose
// secret must survive until the callback).
func (s *Store) Put(key string, v any) {
	s.c.Set(key, v, cache.DefaultExpiration)
}

func (s *Store) Consume(key string) (any, bool) {
	v, ok := s.c.Get(key)
	if ok {
		s.c.Delete(key)
	}
	return v, ok
}

// ConsumeUserID is Consume for the common case of a state carrying the
// logged-in application user id.
func (s *Store) ConsumeUserID(key string) (uint, bool) {
	v, ok := s.Consume(key)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
