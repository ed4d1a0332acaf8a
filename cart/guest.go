// Package cart implements the reconciliation engine that unifies the
// locally-persisted guest cart with the server-side cart of an
// authenticated customer, plus the session identity both depend on.
package cart

import (
	"encoding/json"
	"fmt"

	"github.com/solelace/storefront/domain"
	"github.com/solelace/storefront/kv"
)

// guestCartKey is the fixed, versionless storage key for the guest cart.
const guestCartKey = "guest_cart"

// storedItem is the persisted shape of a guest line item: only the
// fields needed to reconstruct it. Derived fields are never persisted.
type storedItem struct {
	ProductID int64   `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Size      string  `json:"size,omitempty"`
	Quantity  int     `json:"quantity"`
	ImageURL  string  `json:"imageUrl,omitempty"`
}

// GuestStore persists the cart of an unauthenticated shopper in the
// local key-value store.
type GuestStore struct {
	store kv.Store
}

// NewGuestStore creates a guest cart store over the given persistence.
func NewGuestStore(store kv.Store) *GuestStore {
	return &GuestStore{store: store}
}

// Read returns the persisted guest line items with defaults applied.
// Corrupted or missing storage degrades to an empty cart; Read never
// fails the calling flow.
func (g *GuestStore) Read() []domain.LineItem {
	data, err := g.store.Get(guestCartKey)
	if err != nil {
		return nil
	}

	var stored []storedItem
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil
	}

	items := make([]domain.LineItem, 0, len(stored))
	for _, s := range stored {
		if s.ProductID <= 0 {
			continue
		}
		quantity := s.Quantity
		if quantity < 1 {
			quantity = 1
		}
		items = append(items, domain.LineItem{
			ProductID:      s.ProductID,
			Name:           s.Name,
			Size:           s.Size,
			Quantity:       quantity,
			UnitPriceCents: domain.ToCents(s.Price),
			ImageURL:       s.ImageURL,
		})
	}
	return items
}

// Write persists the guest line items, replacing the previous contents.
// Every mutation re-persists immediately; there is no batching.
func (g *GuestStore) Write(items []domain.LineItem) error {
	stored := make([]storedItem, 0, len(items))
	for _, item := range items {
		stored = append(stored, storedItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     domain.CentsToDecimal(item.UnitPriceCents),
			Size:      item.Size,
			Quantity:  item.Quantity,
			ImageURL:  item.ImageURL,
		})
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to encode guest cart: %w", err)
	}

	if err := g.store.Put(guestCartKey, data); err != nil {
		return fmt.Errorf("failed to persist guest cart: %w", err)
	}
	return nil
}

// Clear empties the guest cart.
func (g *GuestStore) Clear() error {
	return g.Write(nil)
}

// IsEmpty reports whether the guest cart holds no items.
func (g *GuestStore) IsEmpty() bool {
	return len(g.Read()) == 0
}
