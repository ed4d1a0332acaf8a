package domain

import (
	"context"
	"math"
)

// =============================================================================
// CART DOMAIN ERRORS
// =============================================================================

var (
	ErrCartNotFound          = &Error{Code: ENOTFOUND, Message: "Cart not found"}
	ErrCartItemNotFound      = &Error{Code: ENOTFOUND, Message: "Cart item not found"}
	ErrInvalidQuantity       = &Error{Code: EINVALID, Message: "Quantity must be greater than 0"}
	ErrMissingProductDetails = &Error{Code: EINVALID, Message: "Product details required to add to a guest cart"}
	ErrNotAuthenticated      = &Error{Code: EUNAUTHORIZED, Message: "Customer must be signed in"}
)

// DefaultSize is the sentinel variant size for products added without an
// explicit size selection. Absence of a size is itself a valid variant.
const DefaultSize = "default"

// VariantKey identifies a unique purchasable line item: one product in
// one size. Two line items with the same key are the same logical item.
type VariantKey struct {
	ProductID int64
	Size      string
}

// NewVariantKey normalizes an optional size into a variant key.
func NewVariantKey(productID int64, size string) VariantKey {
	if size == "" {
		size = DefaultSize
	}
	return VariantKey{ProductID: productID, Size: size}
}

// LineItem is a quantity of one product variant in a cart.
// ItemID is the server-side identifier; it is zero for guest cart items,
// which are identified by their variant key instead.
type LineItem struct {
	ItemID         int64
	ProductID      int64
	Name           string
	Size           string
	Quantity       int
	UnitPriceCents int64
	ImageURL       string
}

// Key returns the item's variant key with size normalization applied.
func (li LineItem) Key() VariantKey {
	return NewVariantKey(li.ProductID, li.Size)
}

// LineTotalCents is the derived per-line subtotal. Never stored.
func (li LineItem) LineTotalCents() int64 {
	return li.UnitPriceCents * int64(li.Quantity)
}

// CartSummary aggregates all line items. Always recomputed from the
// current item collection, never incrementally tracked.
type CartSummary struct {
	TotalItems       int
	TotalAmountCents int64
}

// CartView is the derived view model for whichever cart is currently
// authoritative: insertion-ordered for guest carts, server-ordered for
// authenticated carts.
type CartView struct {
	Items   []LineItem
	Summary CartSummary
}

// Summarize recomputes a cart summary from a line item collection.
func Summarize(items []LineItem) CartSummary {
	var s CartSummary
	for _, item := range items {
		s.TotalItems += item.Quantity
		s.TotalAmountCents += item.LineTotalCents()
	}
	return s
}

// ProductDetails describes a product well enough to build a guest cart
// line item without a server lookup.
type ProductDetails struct {
	ProductID      int64
	Name           string
	UnitPriceCents int64
	ImageURL       string
}

// ToCents converts a decimal wire amount (e.g. 120.00) to integer cents.
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CentsToDecimal converts integer cents back to a decimal wire amount.
func CentsToDecimal(cents int64) float64 {
	return float64(cents) / 100
}

// =============================================================================
// CART OWNER
// =============================================================================

// Owner identifies who a cart belongs to: an authenticated customer or
// the implicit device-local guest. Resolved fresh for every cart
// operation, since login and logout can happen between operations.
type Owner struct {
	customerID    int64
	authenticated bool
}

// GuestOwner returns the unauthenticated device-local owner.
func GuestOwner() Owner {
	return Owner{}
}

// CustomerOwner returns an owner for an authenticated customer.
func CustomerOwner(customerID int64) Owner {
	return Owner{customerID: customerID, authenticated: true}
}

// CustomerID returns the customer ID and whether the owner is authenticated.
func (o Owner) CustomerID() (int64, bool) {
	return o.customerID, o.authenticated
}

// IsGuest reports whether the owner is the device-local guest.
func (o Owner) IsGuest() bool {
	return !o.authenticated
}

// =============================================================================
// CART ENGINE
// =============================================================================

// CartEngine is the single source of truth for "what is in the cart
// right now", routed transparently between the guest store and the
// server cart gateway.
type CartEngine interface {
	// Refresh re-derives the cart view from whichever store is
	// currently authoritative.
	Refresh(ctx context.Context) (*CartView, error)

	// AddToCart adds one variant to the cart, merging by variant key.
	// details may be nil in server mode; guest mode requires it.
	AddToCart(ctx context.Context, productID int64, details *ProductDetails, size string, quantity int) error

	// DecreaseItem decrements the item by one, removing it entirely if
	// the caller-observed quantity is already 1 or less.
	DecreaseItem(ctx context.Context, item LineItem) error

	// DeleteItem removes the item unconditionally.
	DeleteItem(ctx context.Context, item LineItem) error

	// ClearCart empties the active cart. In server mode this refetches
	// on the assumption order placement already cleared the cart.
	ClearCart(ctx context.Context) error

	// SyncGuestCartToServer merges the guest cart into the server cart
	// after login or registration, then clears the guest store.
	SyncGuestCartToServer(ctx context.Context) error

	// View returns the last known-good cart view without a network call.
	View() CartView

	// TotalItems returns the cached summary's item count. Never
	// requires a network round-trip.
	TotalItems() int
}
