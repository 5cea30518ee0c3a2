package planEditor

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/types"
)

// Store keeps sessions in memory. A session expires after ttl without access.
type Store struct {
	cache *cache.Cache
	now   func() time.Time
}

func NewStore(ttl, cleanup time.Duration) *Store {
	return &Store{
		cache: cache.New(ttl, cleanup),
		now:   time.Now,
	}
}

func (s *Store) Create() *Session {
	sess := newSession(s.now())
	s.cache.Set(sess.id.String(), sess, cache.DefaultExpiration)
	return sess
}

// Get returns the session and slides its expiry.
func (s *Store) Get(id uuid.UUID) (*Session, error) {
	key := id.String()
	v, found := s.cache.Get(key)
	if !found {
		return nil, fmt.Errorf("%w: %s", types.ErrSessionNotFound, id)
	}
	s.cache.Set(key, v, cache.DefaultExpiration)
	return v.(*Session), nil
}

func (s *Store) Delete(id uuid.UUID) error {
	key := id.String()
	if _, found := s.cache.Get(key); !found {
		return fmt.Errorf("%w: %s", types.ErrSessionNotFound, id)
	}
	s.cache.Delete(key)
	return nil
}

func (s *Store) Len() int { return s.cache.ItemCount() }
