package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"campus-delivery/models"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	// CartKey holds the committed cart as a JSON array of lines.
	CartKey = "cart"
	// QuantitiesKey holds the menu view's pending selector values.
	QuantitiesKey = "quantities"

	DefaultMaxItemQuantity = 10
)

var (
	ErrQuantityOutOfRange = errors.New("quantity out of range")
	ErrLineNotFound       = errors.New("item is not in the cart")
)

type CartLine struct {
	ID       int64
	Name     string
	Price    decimal.Decimal
	Quantity int
}

// Subtotal is price × quantity for this line.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is an ordered snapshot of cart lines.
type Cart struct {
	Lines []CartLine
}

// Total is recomputed on every call.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// ItemCount is the number of units across all lines (the cart badge).
func (c Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

func (c Cart) IsEmpty() bool { return len(c.Lines) == 0 }

// Line returns the line for id, if present.
func (c Cart) Line(id int64) (CartLine, bool) {
	for _, l := range c.Lines {
		if l.ID == id {
			return l, true
		}
	}
	return CartLine{}, false
}

// cartLineRecord is the persisted shape: {id, name, price, quantity} with price as a JSON number.
type cartLineRecord struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    json.RawMessage `json:"price"`
	Quantity int             `json:"quantity"`
}

func encodeCartLines(lines []CartLine) ([]byte, error) {
	recs := make([]cartLineRecord, len(lines))
	for i, l := range lines {
		recs[i] = cartLineRecord{
			ID:       l.ID,
			Name:     l.Name,
			Price:    json.RawMessage(l.Price.String()),
			Quantity: l.Quantity,
		}
	}
	return json.Marshal(recs)
}

// decodeCartLines rejects anything that would break the cart invariants.
func decodeCartLines(raw string, maxQty int) ([]CartLine, error) {
	var recs []cartLineRecord
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		return nil, err
	}
	lines := make([]CartLine, 0, len(recs))
	seen := make(map[int64]bool, len(recs))
	for _, r := range recs {
		if r.Quantity <= 0 || r.Quantity > maxQty {
			return nil, fmt.Errorf("line %d: quantity %d not in [1, %d]", r.ID, r.Quantity, maxQty)
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("line %d: duplicate id", r.ID)
		}
		seen[r.ID] = true
		var price decimal.Decimal
		if err := price.UnmarshalJSON(r.Price); err != nil {
			return nil, fmt.Errorf("line %d: price: %w", r.ID, err)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("line %d: negative price", r.ID)
		}
		lines = append(lines, CartLine{ID: r.ID, Name: r.Name, Price: price, Quantity: r.Quantity})
	}
	return lines, nil
}

// CartManager owns one customer's cart and mirrors every change to its Store.
type CartManager struct {
	store  Store
	maxQty int

	mu    sync.Mutex
	lines []CartLine

	subsMu  sync.Mutex
	subs    map[int]func(Cart)
	nextSub int
}

func NewCartManager(store Store, maxQty int) *CartManager {
	if maxQty <= 0 {
		maxQty = DefaultMaxItemQuantity
	}
	return &CartManager{
		store:  store,
		maxQty: maxQty,
		subs:   make(map[int]func(Cart)),
	}
}

// MaxQuantity is the per-item cap.
func (m *CartManager) MaxQuantity() int { return m.maxQty }

// Hydrate loads the persisted cart. Missing, unreadable or malformed data
// yields an empty cart; it never fails.
func (m *CartManager) Hydrate(ctx context.Context) {
	lines := []CartLine{}
	raw, ok, err := m.store.Get(ctx, CartKey)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("cart: read persisted cart")
	case ok:
		decoded, err := decodeCartLines(raw, m.maxQty)
		if err != nil {
			log.Debug().Err(err).Msg("cart: malformed persisted cart, starting empty")
		} else {
			lines = decoded
		}
	}
	m.mu.Lock()
	m.lines = lines
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)
}

// AddOrUpdate puts qty units of item in the cart. qty 0 does nothing; an
// existing line has its quantity replaced and its name/price refreshed.
func (m *CartManager) AddOrUpdate(ctx context.Context, item models.MenuItem, qty int) error {
	if qty < 0 || qty > m.maxQty {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrQuantityOutOfRange, qty, m.maxQty)
	}
	if qty == 0 {
		return nil
	}
	return m.mutate(ctx, func(lines []CartLine) ([]CartLine, error) {
		for i := range lines {
			if lines[i].ID == item.ID {
				lines[i].Name = item.Name
				lines[i].Price = item.Price
				lines[i].Quantity = qty
				return lines, nil
			}
		}
		return append(lines, CartLine{ID: item.ID, Name: item.Name, Price: item.Price, Quantity: qty}), nil
	})
}

// SetQuantity is the review-view edit: qty is clamped to [1, MaxQuantity].
// Use Remove to drop a line.
func (m *CartManager) SetQuantity(ctx context.Context, id int64, qty int) error {
	if qty < 1 {
		qty = 1
	}
	if qty > m.maxQty {
		qty = m.maxQty
	}
	return m.mutate(ctx, func(lines []CartLine) ([]CartLine, error) {
		for i := range lines {
			if lines[i].ID == id {
				lines[i].Quantity = qty
				return lines, nil
			}
		}
		return nil, fmt.Errorf("%w: %d", ErrLineNotFound, id)
	})
}

func (m *CartManager) Remove(ctx context.Context, id int64) error {
	return m.mutate(ctx, func(lines []CartLine) ([]CartLine, error) {
		for i := range lines {
			if lines[i].ID == id {
				return append(lines[:i], lines[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("%w: %d", ErrLineNotFound, id)
	})
}

// Clear empties the cart and erases the persisted copy.
func (m *CartManager) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.lines = []CartLine{}
	err := m.store.Remove(ctx, CartKey)
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	if err != nil {
		return fmt.Errorf("failed to remove persisted cart: %w", err)
	}
	return nil
}

// Cart returns a copy of the current lines.
func (m *CartManager) Cart() Cart {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *CartManager) Total() decimal.Decimal {
	return m.Cart().Total()
}

// Subscribe registers fn to receive a snapshot after every change.
// The returned func unregisters it and is safe to call more than once.
func (m *CartManager) Subscribe(fn func(Cart)) (unsubscribe func()) {
	m.subsMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subsMu.Lock()
			delete(m.subs, id)
			m.subsMu.Unlock()
		})
	}
}

// mutate applies fn to a private copy of the lines; on success the copy is
// installed and persisted. A persist failure is returned but the in-memory
// change stays.
func (m *CartManager) mutate(ctx context.Context, fn func([]CartLine) ([]CartLine, error)) error {
	m.mu.Lock()
	next, err := fn(append([]CartLine(nil), m.lines...))
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.lines = next
	persistErr := m.persistLocked(ctx)
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return persistErr
}

func (m *CartManager) persistLocked(ctx context.Context) error {
	data, err := encodeCartLines(m.lines)
	if err != nil {
		return fmt.Errorf("failed to marshal cart lines: %w", err)
	}
	if err := m.store.Set(ctx, CartKey, string(data)); err != nil {
		return fmt.Errorf("failed to persist cart: %w", err)
	}
	return nil
}

func (m *CartManager) snapshotLocked() Cart {
	lines := make([]CartLine, len(m.lines))
	copy(lines, m.lines)
	return Cart{Lines: lines}
}

func (m *CartManager) notify(c Cart) {
	m.subsMu.Lock()
	fns := make([]func(Cart), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subsMu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}
