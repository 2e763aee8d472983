package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
)

// Source fetches the current flavor list from persistence.
type Source interface {
	FetchAvailableFlavors(ctx context.Context) ([]Flavor, error)
}

// CategoryGroup is one menu section.
type CategoryGroup struct {
	Category enums.FlavorCategory `json:"category"`
	Flavors  []Flavor             `json:"flavors"`
}

// ReplaceFunc receives the new snapshot after every wholesale replacement.
type ReplaceFunc func(flavors []Flavor)

// Accessor holds the last successfully fetched flavor snapshot. Readers never
// observe a cleared catalog: a failed refresh keeps the previous data.
type Accessor struct {
	source Source
	logg   *logger.Logger

	mu       sync.RWMutex
	flavors  []Flavor
	byID     map[uuid.UUID]int
	loadedAt time.Time

	subMu   sync.Mutex
	subs    map[int]ReplaceFunc
	nextSub int
}

// NewAccessor builds an empty accessor over source.
func NewAccessor(source Source, logg *logger.Logger) (*Accessor, error) {
	if source == nil {
		return nil, errors.New("flavor source required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Accessor{
		source: source,
		logg:   logg,
		byID:   map[uuid.UUID]int{},
		subs:   map[int]ReplaceFunc{},
	}, nil
}

// Refresh fetches the catalog and replaces the snapshot. On failure the prior
// snapshot stays in place and the error is returned for reporting.
func (a *Accessor) Refresh(ctx context.Context) error {
	flavors, err := a.source.FetchAvailableFlavors(ctx)
	if err != nil {
		a.mu.RLock()
		kept := len(a.flavors)
		a.mu.RUnlock()
		a.logg.Error(a.logg.WithField(ctx, "kept_flavors", kept), "flavor catalog refresh failed", err)
		return fmt.Errorf("fetch flavors: %w", err)
	}
	a.Replace(flavors)
	a.logg.Debug(a.logg.WithField(ctx, "flavors", len(flavors)), "flavor catalog refreshed")
	return nil
}

// Replace swaps the snapshot wholesale and notifies subscribers. Unavailable
// flavors are dropped.
func (a *Accessor) Replace(flavors []Flavor) {
	next := make([]Flavor, 0, len(flavors))
	index := make(map[uuid.UUID]int, len(flavors))
	for _, f := range flavors {
		if !f.Available {
			continue
		}
		if _, dup := index[f.ID]; dup {
			continue
		}
		index[f.ID] = len(next)
		next = append(next, cloneFlavor(f))
	}

	a.mu.Lock()
	a.flavors = next
	a.byID = index
	a.loadedAt = time.Now().UTC()
	a.mu.Unlock()

	a.subMu.Lock()
	subs := make([]ReplaceFunc, 0, len(a.subs))
	for _, fn := range a.subs {
		subs = append(subs, fn)
	}
	a.subMu.Unlock()

	for _, fn := range subs {
		fn(copyFlavors(next))
	}
}

// Subscribe registers fn for replacement notifications.
func (a *Accessor) Subscribe(fn ReplaceFunc) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	a.subMu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	a.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.subMu.Lock()
			delete(a.subs, id)
			a.subMu.Unlock()
		})
	}
}

// ListAvailable returns the current snapshot; empty before the first successful refresh.
func (a *Accessor) ListAvailable() []Flavor {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return copyFlavors(a.flavors)
}

// ByCategory filters the snapshot without touching the source.
func (a *Accessor) ByCategory(category enums.FlavorCategory) []Flavor {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := []Flavor{}
	for _, f := range a.flavors {
		if f.Category == category {
			out = append(out, cloneFlavor(f))
		}
	}
	return out
}

// Grouped returns non-empty categories in display order.
func (a *Accessor) Grouped() []CategoryGroup {
	groups := []CategoryGroup{}
	for _, category := range enums.FlavorCategories() {
		if flavors := a.ByCategory(category); len(flavors) > 0 {
			groups = append(groups, CategoryGroup{Category: category, Flavors: flavors})
		}
	}
	return groups
}

// Lookup finds an available flavor by id.
func (a *Accessor) Lookup(id uuid.UUID) (Flavor, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	idx, ok := a.byID[id]
	if !ok {
		return Flavor{}, false
	}
	return cloneFlavor(a.flavors[idx]), true
}

// LoadedAt is the time of the last replacement; zero before the first one.
func (a *Accessor) LoadedAt() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loadedAt
}

func copyFlavors(in []Flavor) []Flavor {
	out := make([]Flavor, len(in))
	for i, f := range in {
		out[i] = cloneFlavor(f)
	}
	return out
}

// Poll refreshes the snapshot every period until ctx is done. Refresh errors are
// logged by Refresh and do not stop the loop.
func (a *Accessor) Poll(ctx context.Context, period time.Duration) error {
	if period <= 0 {
		return errors.New("poll period must be positive")
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_ = a.Refresh(ctx)
		}
	}
}
