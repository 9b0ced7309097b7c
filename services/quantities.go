package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
)

// QuantitySelector keeps the menu view's per-item selector values between
// renders. These are pending choices, not cart contents.
type QuantitySelector struct {
	store  Store
	maxQty int

	mu  sync.Mutex
	qty map[int64]int
}

func NewQuantitySelector(store Store, maxQty int) *QuantitySelector {
	if maxQty <= 0 {
		maxQty = DefaultMaxItemQuantity
	}
	return &QuantitySelector{store: store, maxQty: maxQty, qty: make(map[int64]int)}
}

// Load reads the persisted selector values, dropping anything malformed.
func (q *QuantitySelector) Load(ctx context.Context) {
	values := make(map[int64]int)
	raw, ok, err := q.store.Get(ctx, QuantitiesKey)
	if err != nil {
		log.Warn().Err(err).Msg("quantities: read persisted selector state")
	} else if ok {
		var byKey map[string]int
		if err := json.Unmarshal([]byte(raw), &byKey); err != nil {
			log.Debug().Err(err).Msg("quantities: malformed persisted value, starting empty")
		} else {
			for k, v := range byKey {
				id, err := strconv.ParseInt(k, 10, 64)
				if err != nil || v <= 0 {
					continue
				}
				values[id] = min(v, q.maxQty)
			}
		}
	}
	q.mu.Lock()
	q.qty = values
	q.mu.Unlock()
}

func (q *QuantitySelector) Get(id int64) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.qty[id]
}

// Set stores qty clamped to [0, max] and returns the stored value.
func (q *QuantitySelector) Set(ctx context.Context, id int64, qty int) (int, error) {
	qty = max(0, min(qty, q.maxQty))
	q.mu.Lock()
	defer q.mu.Unlock()
	if qty == 0 {
		delete(q.qty, id)
	} else {
		q.qty[id] = qty
	}
	return qty, q.persistLocked(ctx)
}

// Step moves the selector by delta within [0, max].
func (q *QuantitySelector) Step(ctx context.Context, id int64, delta int) (int, error) {
	return q.Set(ctx, id, q.Get(id)+delta)
}

func (q *QuantitySelector) persistLocked(ctx context.Context) error {
	byKey := make(map[string]int, len(q.qty))
	for id, v := range q.qty {
		byKey[strconv.FormatInt(id, 10)] = v
	}
	data, err := json.Marshal(byKey)
	if err != nil {
		return fmt.Errorf("failed to marshal quantities: %w", err)
	}
	if err := q.store.Set(ctx, QuantitiesKey, string(data)); err != nil {
		return fmt.Errorf("failed to persist quantities: %w", err)
	}
	return nil
}
