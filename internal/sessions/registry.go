// Package sessions keeps the per-visitor cart and pizza configurator in memory,
// backed by redis snapshots so a cart survives restarts and instance hops.
package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pizzeria-backend/internal/cart"
	"github.com/angelmondragon/pizzeria-backend/internal/catalog"
	"github.com/angelmondragon/pizzeria-backend/internal/composer"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
	"github.com/angelmondragon/pizzeria-backend/pkg/metrics"
	"github.com/angelmondragon/pizzeria-backend/pkg/redis"
)

const persistTimeout = 2 * time.Second

var validID = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// ErrInvalidID is returned for session ids that are not safe to use as keys.
var ErrInvalidID = errors.New("invalid session id")

// ValidID reports whether id can name a session.
func ValidID(id string) bool {
	return validID.MatchString(id)
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

type snapshotStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(sessionID string) string
}

type catalogFeed interface {
	Subscribe(fn catalog.ReplaceFunc) (unsubscribe func())
}

// Session is one visitor's working state.
type Session struct {
	ID     string
	Cart   *cart.Store
	Engine *composer.Engine

	lastSeen    atomic.Int64
	unsubscribe func()
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

// Params groups the registry collaborators.
type Params struct {
	Store        snapshotStore
	Catalog      catalogFeed
	TTL          time.Duration
	IdleEviction time.Duration
	Metrics      *metrics.StorefrontMetrics
	Logger       *logger.Logger
	Now          func() time.Time
}

// Registry owns every live session of this instance.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	store   snapshotStore
	ttl     time.Duration
	idle    time.Duration
	metrics *metrics.StorefrontMetrics
	logg    *logger.Logger
	now     func() time.Time

	stopCatalog func()
}

// NewRegistry builds a registry. A nil Store keeps carts in memory only.
func NewRegistry(p Params) (*Registry, error) {
	if p.TTL <= 0 {
		return nil, fmt.Errorf("cart ttl must be positive")
	}
	if p.IdleEviction <= 0 {
		return nil, fmt.Errorf("idle eviction must be positive")
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	r := &Registry{
		sessions: make(map[string]*Session),
		store:    p.Store,
		ttl:      p.TTL,
		idle:     p.IdleEviction,
		metrics:  p.Metrics,
		logg:     p.Logger,
		now:      p.Now,
	}
	if p.Catalog != nil {
		r.stopCatalog = p.Catalog.Subscribe(r.reconcile)
	}
	return r, nil
}

// Get returns the session for id. The cart is reloaded from redis on every
// call, since another instance may have changed it since this one last served
// the visitor. A failed read keeps the in-memory cart.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	if !ValidID(id) {
		return nil, ErrInvalidID
	}
	now := r.now()

	items, loaded := r.load(ctx, id)

	r.mu.Lock()
	defer r.mu.Unlock()
	if sess, ok := r.sessions[id]; ok {
		if loaded {
			sess.Cart.Restore(items)
		}
		sess.touch(now)
		return sess, nil
	}
	sess := &Session{ID: id, Cart: cart.NewStore(), Engine: composer.New()}
	sess.Cart.Restore(items)
	sess.unsubscribe = sess.Cart.Subscribe(func(snap cart.Snapshot) {
		r.persist(id, snap)
	})
	sess.touch(now)
	r.sessions[id] = sess
	r.metrics.SetActiveSessions(len(r.sessions))
	return sess, nil
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// EvictIdle drops sessions idle for longer than the eviction window. Their
// carts stay in redis until the TTL expires.
func (r *Registry) EvictIdle() int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, sess := range r.sessions {
		if sess.idleSince(now) < r.idle {
			continue
		}
		if sess.unsubscribe != nil {
			sess.unsubscribe()
		}
		delete(r.sessions, id)
		evicted++
	}
	if evicted > 0 {
		r.metrics.SetActiveSessions(len(r.sessions))
	}
	return evicted
}

// Run evicts idle sessions until ctx is done.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := r.EvictIdle(); n > 0 {
				r.logg.Debug(r.logg.WithField(ctx, "evicted", n), "idle sessions evicted")
			}
		}
	}
}

// Close detaches the registry from the catalog feed.
func (r *Registry) Close() {
	if r.stopCatalog != nil {
		r.stopCatalog()
	}
}

// reconcile drops stale flavors from every in-progress pizza.
func (r *Registry) reconcile(flavors []catalog.Flavor) {
	r.mu.Lock()
	live := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		live = append(live, sess)
	}
	r.mu.Unlock()

	for _, sess := range live {
		if purged := sess.Engine.Reconcile(flavors); len(purged) > 0 {
			ctx := r.logg.WithSessionID(context.Background(), sess.ID)
			r.logg.Info(r.logg.WithField(ctx, "purged_flavors", len(purged)), "configurator flavors purged after catalog change")
		}
	}
}

// load reads the stored cart. It reports false when redis could not answer, so
// the caller knows the result says nothing about the cart; a missing key is an
// empty cart.
func (r *Registry) load(ctx context.Context, id string) ([]cart.LineItem, bool) {
	if r.store == nil {
		return nil, false
	}
	logCtx := r.logg.WithSessionID(ctx, id)
	raw, err := r.store.Get(ctx, r.store.CartKey(id))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, true
		}
		r.logg.Warn(r.logg.WithField(logCtx, "error", err.Error()), "cart snapshot read failed")
		return nil, false
	}
	var items []cart.LineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		r.logg.Warn(r.logg.WithField(logCtx, "error", err.Error()), "discarding unreadable cart snapshot")
		_ = r.store.Del(ctx, r.store.CartKey(id))
		return nil, true
	}
	return items, true
}

func (r *Registry) persist(id string, snap cart.Snapshot) {
	if r.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	key := r.store.CartKey(id)

	var err error
	if len(snap.Items) == 0 {
		err = r.store.Del(ctx, key)
	} else {
		var data []byte
		data, err = json.Marshal(snap.Items)
		if err == nil {
			err = r.store.Set(ctx, key, string(data), r.ttl)
		}
	}
	if err != nil {
		r.logg.Error(r.logg.WithSessionID(ctx, id), "cart snapshot write failed", err)
	}
}
