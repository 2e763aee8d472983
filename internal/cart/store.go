package cart

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
)

// defaultSizeKey stands in for the size segment of a simple item identity when
// no size option was chosen.
const defaultSizeKey = "default"

// Snapshot is an immutable view of the cart after a mutation.
type Snapshot struct {
	Items      []LineItem      `json:"items"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// Observer receives a snapshot after every mutation that changed the cart.
// Observers run on the mutating goroutine and must not call back into the Store.
type Observer func(Snapshot)

// Store is an ordered collection of line items. Every mutation is atomic with
// respect to readers and observers; observers see snapshots in mutation order.
type Store struct {
	writeMu sync.Mutex

	mu    sync.RWMutex
	items []LineItem
	index map[string]int

	obsMu     sync.Mutex
	observers map[int]Observer
	nextObs   int
}

// NewStore returns an empty cart.
func NewStore() *Store {
	return &Store{
		index:     map[string]int{},
		observers: map[int]Observer{},
	}
}

// SimpleItemID derives the merge identity of a simple product configuration.
func SimpleItemID(productID uuid.UUID, size *ProductSize, extras []ProductExtra) string {
	sizeKey := defaultSizeKey
	if size != nil {
		sizeKey = size.ID
	}
	ids := make([]string, 0, len(extras))
	for _, e := range extras {
		ids = append(ids, e.ID)
	}
	sort.Strings(ids)
	return productID.String() + "|" + sizeKey + "|" + strings.Join(ids, ",")
}

// SimpleItemName renders "Product (Size) + Extra, Extra".
func SimpleItemName(product Product, size *ProductSize, extras []ProductExtra) string {
	var b strings.Builder
	b.WriteString(product.Name)
	if size != nil {
		b.WriteString(" (")
		b.WriteString(size.Name)
		b.WriteString(")")
	}
	if len(extras) > 0 {
		names := make([]string, 0, len(extras))
		for _, e := range extras {
			names = append(names, e.Name)
		}
		b.WriteString(" + ")
		b.WriteString(strings.Join(names, ", "))
	}
	return b.String()
}

// AddSimpleItem merges into an existing line with the same configuration (+1) or
// appends a new line with quantity 1. It returns the resulting line.
func (s *Store) AddSimpleItem(product Product, size *ProductSize, extras []ProductExtra) LineItem {
	id := SimpleItemID(product.ID, size, extras)
	unit := product.Price
	if size != nil {
		unit = unit.Add(size.Price)
	}
	for _, e := range extras {
		unit = unit.Add(e.Price)
	}

	var result LineItem
	s.mutate(func() bool {
		if idx, ok := s.index[id]; ok {
			s.items[idx].Quantity++
			result = cloneItem(s.items[idx])
			return true
		}
		selection := &ProductSelection{ProductID: product.ID, Extras: append([]ProductExtra(nil), extras...)}
		if size != nil {
			chosen := *size
			selection.Size = &chosen
		}
		item := LineItem{
			ID:        id,
			Kind:      enums.LineItemKindSimpleProduct,
			Name:      SimpleItemName(product, size, extras),
			UnitPrice: unit,
			Quantity:  1,
			Product:   selection,
		}
		s.appendLocked(item)
		result = cloneItem(item)
		return true
	})
	return result
}

// AddComposedPizza appends a pizza line. Pizzas never merge; an id already in
// the cart is replaced with a fresh one.
func (s *Store) AddComposedPizza(item LineItem) LineItem {
	item = cloneItem(item)
	item.Kind = enums.LineItemKindPizza
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	s.mutate(func() bool {
		if _, taken := s.index[item.ID]; item.ID == "" || taken {
			item.ID = uuid.NewString()
		}
		s.appendLocked(item)
		return true
	})
	return cloneItem(item)
}

// UpdateQuantity sets the quantity of a line. A quantity of zero or less removes
// it. It reports whether the line existed.
func (s *Store) UpdateQuantity(id string, quantity int) bool {
	if quantity <= 0 {
		return s.RemoveItem(id)
	}
	found := false
	s.mutate(func() bool {
		idx, ok := s.index[id]
		if !ok {
			return false
		}
		found = true
		if s.items[idx].Quantity == quantity {
			return false
		}
		s.items[idx].Quantity = quantity
		return true
	})
	return found
}

// RemoveItem deletes a line; absent ids are a no-op.
func (s *Store) RemoveItem(id string) bool {
	removed := false
	s.mutate(func() bool {
		idx, ok := s.index[id]
		if !ok {
			return false
		}
		s.items = append(s.items[:idx], s.items[idx+1:]...)
		s.reindexLocked()
		removed = true
		return true
	})
	return removed
}

// Clear empties the cart. Clearing an empty cart is a no-op.
func (s *Store) Clear() {
	s.mutate(func() bool {
		if len(s.items) == 0 {
			return false
		}
		s.items = nil
		s.index = map[string]int{}
		return true
	})
}

// RemoveOrdered takes the ordered quantities (line id => quantity) out of the
// cart in one mutation. Lines added or grown after the order was drafted keep
// the difference. It returns the number of lines removed entirely.
func (s *Store) RemoveOrdered(ordered map[string]int) int {
	removed := 0
	s.mutate(func() bool {
		changed := false
		kept := s.items[:0]
		for _, item := range s.items {
			qty, ok := ordered[item.ID]
			switch {
			case !ok || qty <= 0:
				kept = append(kept, item)
			case item.Quantity > qty:
				item.Quantity -= qty
				kept = append(kept, item)
				changed = true
			default:
				removed++
				changed = true
			}
		}
		for i := len(kept); i < len(s.items); i++ {
			s.items[i] = LineItem{}
		}
		s.items = kept
		s.reindexLocked()
		return changed
	})
	return removed
}

// Restore replaces the contents from a persisted snapshot without notifying
// observers. Invalid lines are skipped.
func (s *Store) Restore(items []LineItem) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.index = map[string]int{}
	for _, item := range items {
		if !item.Valid() {
			continue
		}
		if _, dup := s.index[item.ID]; dup {
			continue
		}
		s.appendLocked(cloneItem(item))
	}
}

// Items returns a copy of the lines in insertion order.
func (s *Store) Items() []LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.itemsLocked()
}

// Get returns one line by id.
func (s *Store) Get(id string) (LineItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.index[id]
	if !ok {
		return LineItem{}, false
	}
	return cloneItem(s.items[idx]), true
}

// TotalItems is the sum of quantities.
func (s *Store) TotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalItemsLocked()
}

// TotalPrice is the sum of UnitPrice*Quantity over every line.
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalPriceLocked()
}

// IsEmpty reports whether the cart has no lines.
func (s *Store) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items) == 0
}

// Snapshot returns a consistent view of items and totals.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe registers an observer and returns a function removing it.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.obsMu.Lock()
			delete(s.observers, id)
			s.obsMu.Unlock()
		})
	}
}

// mutate runs fn under the write lock; when fn reports a change, observers are
// notified with the post-mutation snapshot before the next mutation may start.
func (s *Store) mutate(fn func() bool) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	changed := fn()
	var snap Snapshot
	if changed {
		snap = s.snapshotLocked()
	}
	s.mu.Unlock()

	if !changed {
		return
	}
	s.obsMu.Lock()
	observers := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.obsMu.Unlock()
	for _, o := range observers {
		o(snap)
	}
}

func (s *Store) appendLocked(item LineItem) {
	s.index[item.ID] = len(s.items)
	s.items = append(s.items, item)
}

func (s *Store) reindexLocked() {
	s.index = make(map[string]int, len(s.items))
	for i, item := range s.items {
		s.index[item.ID] = i
	}
}

func (s *Store) itemsLocked() []LineItem {
	out := make([]LineItem, len(s.items))
	for i, item := range s.items {
		out[i] = cloneItem(item)
	}
	return out
}

func (s *Store) totalItemsLocked() int {
	total := 0
	for _, item := range s.items {
		total += item.Quantity
	}
	return total
}

func (s *Store) totalPriceLocked() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Items:      s.itemsLocked(),
		TotalItems: s.totalItemsLocked(),
		TotalPrice: s.totalPriceLocked(),
	}
}
