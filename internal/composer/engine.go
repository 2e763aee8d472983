// Package composer implements the pizza configurator: size choice, a bounded
// flavor set and highest-price-wins pricing.
package composer

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pizzeria-backend/internal/cart"
	"github.com/angelmondragon/pizzeria-backend/internal/catalog"
	"github.com/angelmondragon/pizzeria-backend/internal/sizes"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
)

// State of the selection.
type State int

const (
	StateEmpty State = iota
	StateSizeChosen
	StateFlavorCapReached
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateSizeChosen:
		return "size_chosen"
	case StateFlavorCapReached:
		return "flavor_cap_reached"
	default:
		return "unknown"
	}
}

// Selection is a snapshot of the in-progress pizza.
type Selection struct {
	Size     *sizes.Size        `json:"size"`
	Flavors  []cart.PizzaFlavor `json:"flavors"`
	Quantity int                `json:"quantity"`
}

// Engine holds one in-progress pizza. Rejected actions are no-ops that return
// false; the engine never enters an invalid state.
type Engine struct {
	mu       sync.Mutex
	size     *sizes.Size
	flavors  []cart.PizzaFlavor
	quantity int
}

// New returns an empty engine with quantity 1.
func New() *Engine {
	return &Engine{quantity: 1}
}

// ChooseSize sets the size and always clears the flavors.
func (e *Engine) ChooseSize(size sizes.Size) {
	e.mu.Lock()
	defer e.mu.Unlock()
	chosen := size
	e.size = &chosen
	e.flavors = nil
}

// AddFlavor adds f priced at the chosen size. It is rejected without a size,
// at the size's flavor cap, for a flavor already selected, or when f has no
// price at the size.
func (e *Engine) AddFlavor(f catalog.Flavor) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.canAddFlavorLocked() {
		return false
	}
	for _, existing := range e.flavors {
		if existing.ID == f.ID {
			return false
		}
	}
	price, err := catalog.PriceFor(f, e.size.ID)
	if err != nil {
		return false
	}
	e.flavors = append(e.flavors, cart.PizzaFlavor{ID: f.ID, Name: f.Name, Price: price})
	return true
}

// RemoveFlavor drops a selected flavor; the size stays chosen.
func (e *Engine) RemoveFlavor(id uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, existing := range e.flavors {
		if existing.ID == id {
			e.flavors = append(e.flavors[:i:i], e.flavors[i+1:]...)
			return true
		}
	}
	return false
}

// SetQuantity rejects values below 1.
func (e *Engine) SetQuantity(n int) bool {
	if n < 1 {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.quantity = n
	return true
}

// Increment adds one to the quantity.
func (e *Engine) Increment() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.quantity++
}

// Decrement subtracts one unless the quantity is already 1.
func (e *Engine) Decrement() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.quantity <= 1 {
		return false
	}
	e.quantity--
	return true
}

// CanAddFlavor reports whether AddFlavor could accept a new flavor.
func (e *Engine) CanAddFlavor() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canAddFlavorLocked()
}

// CanAddToCart reports whether Commit would succeed.
func (e *Engine) CanAddToCart() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canAddToCartLocked()
}

// State derives the configurator state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

// Selection returns a copy of the current selection.
func (e *Engine) Selection() Selection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectionLocked()
}

// Price is the highest cached flavor price at the chosen size. ok is false
// until a size and at least one flavor are chosen.
func (e *Engine) Price() (price decimal.Decimal, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.priceLocked()
}

// Total is Price times quantity.
func (e *Engine) Total() (decimal.Decimal, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalLocked()
}

// View is every derived value of the configurator taken at one instant.
type View struct {
	State        State
	Selection    Selection
	Price        decimal.Decimal
	PriceOK      bool
	Total        decimal.Decimal
	TotalOK      bool
	CanAddFlavor bool
	CanAddToCart bool
}

// View reads state, selection, prices and flags under a single lock, so a
// concurrent edit cannot leave them disagreeing.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := View{
		State:        e.stateLocked(),
		Selection:    e.selectionLocked(),
		CanAddFlavor: e.canAddFlavorLocked(),
		CanAddToCart: e.canAddToCartLocked(),
	}
	v.Price, v.PriceOK = e.priceLocked()
	v.Total, v.TotalOK = e.totalLocked()
	return v
}

// Commit turns the selection into a pizza line item with a fresh id and resets
// the engine. It is rejected while CanAddToCart is false.
func (e *Engine) Commit() (cart.LineItem, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	price, ok := e.priceLocked()
	if !ok {
		return cart.LineItem{}, false
	}

	names := make([]string, len(e.flavors))
	for i, f := range e.flavors {
		names[i] = f.Name
	}
	item := cart.LineItem{
		ID:        uuid.NewString(),
		Kind:      enums.LineItemKindPizza,
		Name:      e.size.Name + " - " + strings.Join(names, ", "),
		UnitPrice: price,
		Quantity:  e.quantity,
		Pizza: &cart.PizzaSelection{
			Size:    *e.size,
			Flavors: append([]cart.PizzaFlavor(nil), e.flavors...),
		},
	}
	e.resetLocked()
	return item, true
}

// Reset discards the selection.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

// Reconcile applies a catalog replacement: selected flavors missing from the new
// catalog or no longer available are purged, the rest get their price at the
// chosen size refreshed. It returns the purged flavor ids.
func (e *Engine) Reconcile(flavors []catalog.Flavor) []uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.size == nil || len(e.flavors) == 0 {
		return nil
	}
	current := make(map[uuid.UUID]catalog.Flavor, len(flavors))
	for _, f := range flavors {
		current[f.ID] = f
	}

	var purged []uuid.UUID
	kept := e.flavors[:0:0]
	for _, selected := range e.flavors {
		f, ok := current[selected.ID]
		if !ok || !f.Available {
			purged = append(purged, selected.ID)
			continue
		}
		price, err := catalog.PriceFor(f, e.size.ID)
		if err != nil {
			purged = append(purged, selected.ID)
			continue
		}
		selected.Name = f.Name
		selected.Price = price
		kept = append(kept, selected)
	}
	e.flavors = kept
	return purged
}

func (e *Engine) canAddToCartLocked() bool {
	return e.size != nil && len(e.flavors) > 0
}

func (e *Engine) selectionLocked() Selection {
	sel := Selection{
		Flavors:  append([]cart.PizzaFlavor{}, e.flavors...),
		Quantity: e.quantity,
	}
	if e.size != nil {
		size := *e.size
		sel.Size = &size
	}
	return sel
}

func (e *Engine) totalLocked() (decimal.Decimal, bool) {
	price, ok := e.priceLocked()
	if !ok {
		return decimal.Zero, false
	}
	return price.Mul(decimal.NewFromInt(int64(e.quantity))), true
}

func (e *Engine) canAddFlavorLocked() bool {
	return e.size != nil && len(e.flavors) < e.size.MaxFlavors
}

func (e *Engine) stateLocked() State {
	switch {
	case e.size == nil:
		return StateEmpty
	case len(e.flavors) >= e.size.MaxFlavors:
		return StateFlavorCapReached
	default:
		return StateSizeChosen
	}
}

func (e *Engine) priceLocked() (decimal.Decimal, bool) {
	if e.size == nil || len(e.flavors) == 0 {
		return decimal.Zero, false
	}
	highest := e.flavors[0].Price
	for _, f := range e.flavors[1:] {
		if f.Price.GreaterThan(highest) {
			highest = f.Price
		}
	}
	return highest, true
}

func (e *Engine) resetLocked() {
	e.size = nil
	e.flavors = nil
	e.quantity = 1
}
