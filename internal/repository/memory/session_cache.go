package memory

import (
	"time"

	"notebook-sync-be/internal/entity"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// SessionCache keeps recently validated sessions so the JWT middleware does
// not hit the database on every request.
type SessionCache struct {
	cache *cache.Cache
}

func NewSessionCache(ttl time.Duration) *SessionCache {
	return &SessionCache{
		cache: cache.New(ttl, 2*ttl),
	}
}

func (r *SessionCache) Save(session *entity.UserSession) {
	r.cache.Set(session.Id.String(), session, cache.DefaultExpiration)
}

func (r *SessionCache) Get(sessionID uuid.UUID) (*entity.UserSession, bool) {
	if x, found := r.cache.Get(sessionID.String()); found {
		return x.(*entity.UserSession), true
	}
	return nil, false
}

func (r *SessionCache) Delete(sessionID uuid.UUID) {
	r.cache.Delete(sessionID.String())
}
