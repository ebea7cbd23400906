package api

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"ramentycoon/internal/game"
)

var errSessionLimit = errors.New("session limit reached")

const replyCacheSize = 128

type sessionEntry struct {
	id      string
	game    *game.Session
	limiter *rate.Limiter
	created time.Time

	mu      sync.Mutex
	replies map[string]cachedReply
	order   []string
}

type cachedReply struct {
	status int
	body   any
}

// reply returns the response already sent for an idempotency key.
func (e *sessionEntry) reply(key string) (cachedReply, bool) {
	if key == "" {
		return cachedReply{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.replies[key]
	return r, ok
}

func (e *sessionEntry) remember(key string, r cachedReply) {
	if key == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.replies[key]; ok {
		return
	}
	e.replies[key] = r
	e.order = append(e.order, key)
	if len(e.order) > replyCacheSize {
		delete(e.replies, e.order[0])
		e.order = e.order[1:]
	}
}

type sessionSummary struct {
	ID       string     `json:"id"`
	Company  string     `json:"company"`
	Clock    game.Clock `json:"clock"`
	GameOver bool       `json:"game_over"`
	Created  time.Time  `json:"created_at"`
}

type registry struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	max      int
	perSec   rate.Limit
	burst    int
}

func newRegistry(max int, perSec float64, burst int) *registry {
	return &registry{
		sessions: make(map[string]*sessionEntry),
		max:      max,
		perSec:   rate.Limit(perSec),
		burst:    burst,
	}
}

func (r *registry) add(id string, s *game.Session) (*sessionEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sessions) >= r.max {
		return nil, errSessionLimit
	}
	e := &sessionEntry{
		id:      id,
		game:    s,
		limiter: rate.NewLimiter(r.perSec, r.burst),
		created: time.Now().UTC(),
		replies: make(map[string]cachedReply),
	}
	r.sessions[id] = e
	return e, nil
}

func (r *registry) get(id string) (*sessionEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[id]
	return e, ok
}

func (r *registry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

func (r *registry) list() []sessionSummary {
	r.mu.RLock()
	entries := make([]*sessionEntry, 0, len(r.sessions))
	for _, e := range r.sessions {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]sessionSummary, 0, len(entries))
	for _, e := range entries {
		d := e.game.Dashboard()
		out = append(out, sessionSummary{ID: e.id, Company: d.Company, Clock: d.Clock, GameOver: d.GameOver, Created: e.created})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.Before(out[j].Created)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type ctxKey struct{}

func sessionFromContext(ctx context.Context) (*sessionEntry, bool) {
	e, ok := ctx.Value(ctxKey{}).(*sessionEntry)
	return e, ok && e != nil
}
