// Package session keeps the last successful extraction per browser session.
package session

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/pdfextract/internal/pipeline"
	"github.com/jackzampolin/pdfextract/internal/render"
)

// CookieName is the session cookie.
const CookieName = "pdfextract_session"

// DefaultTTL is how long an idle session's result is kept.
const DefaultTTL = 2 * time.Hour

// DefaultMaxEntries bounds the number of stored sessions. The least recently
// updated session is evicted first.
const DefaultMaxEntries = 1000

type entry struct {
	result    *pipeline.Result
	updatedAt time.Time
}

// Store is an in-memory, mutex-guarded map of session ID to last result.
// Entries idle longer than the TTL are dropped.
type Store struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]*entry
	now        func() time.Time
}

// NewStore creates a store. ttl <= 0 uses DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		ttl:        ttl,
		maxEntries: DefaultMaxEntries,
		entries:    make(map[string]*entry),
		now:        time.Now,
	}
}

// Get returns the session's last result.
func (s *Store) Get(id string) (*pipeline.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	if s.now().Sub(e.updatedAt) > s.ttl {
		delete(s.entries, id)
		return nil, false
	}
	return e.result, true
}

// Put replaces the session's last result and drops expired sessions. Page
// image bytes are not kept; the stored pages carry metadata only.
func (s *Store) Put(id string, result *pipeline.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.entries {
		if now.Sub(e.updatedAt) > s.ttl {
			delete(s.entries, k)
		}
	}
	if _, ok := s.entries[id]; !ok && len(s.entries) >= s.maxEntries {
		s.evictOldest()
	}
	s.entries[id] = &entry{result: withoutPageData(result), updatedAt: now}
}

// evictOldest drops the least recently updated session. Must be called with
// the lock held.
func (s *Store) evictOldest() {
	var (
		oldest string
		at     time.Time
	)
	for k, e := range s.entries {
		if oldest == "" || e.updatedAt.Before(at) {
			oldest, at = k, e.updatedAt
		}
	}
	delete(s.entries, oldest)
}

func withoutPageData(result *pipeline.Result) *pipeline.Result {
	if result == nil {
		return nil
	}
	out := *result
	out.Pages = make([]render.PageImage, len(result.Pages))
	for i, p := range result.Pages {
		p.Data = nil
		out.Pages[i] = p
	}
	return &out
}

// Delete forgets a session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// Len returns the number of stored sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// ID returns the request's session ID, issuing a new cookie when the request
// has none or carries an invalid one.
func ID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// Lookup returns the request's session ID without issuing a cookie.
func Lookup(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return "", false
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return "", false
	}
	return id.String(), true
}
