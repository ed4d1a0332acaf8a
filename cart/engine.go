package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/solelace/storefront/domain"
	"github.com/solelace/storefront/gateway"
	"github.com/solelace/storefront/telemetry"
)

// IdentitySource resolves the current cart owner. Implemented by
// *Session; swappable for tests.
type IdentitySource interface {
	Owner() domain.Owner
}

// ServerCartGateway is the remote cart service contract the engine
// consumes. Implemented by *gateway.CartClient.
type ServerCartGateway interface {
	GetCart(ctx context.Context, customerID int64) (*gateway.CartResponse, error)
	AddItem(ctx context.Context, customerID int64, req gateway.CartItemRequest) error
	UpdateItem(ctx context.Context, customerID, itemID int64, quantity int) error
	RemoveItem(ctx context.Context, customerID, itemID int64) error
}

// Engine is the single source of truth for the active cart, routing
// every operation to the guest store or the server gateway depending on
// who currently owns the cart. The routing decision is made fresh on
// each call, never cached across operations.
type Engine struct {
	identity IdentitySource
	guest    *GuestStore
	server   ServerCartGateway
	logger   *slog.Logger
	metrics  *telemetry.Metrics

	mu   sync.Mutex
	view domain.CartView
}

var _ domain.CartEngine = (*Engine)(nil)

// NewEngine creates a cart reconciliation engine. metrics may be nil.
func NewEngine(identity IdentitySource, guest *GuestStore, server ServerCartGateway, logger *slog.Logger, metrics *telemetry.Metrics) *Engine {
	return &Engine{
		identity: identity,
		guest:    guest,
		server:   server,
		logger:   logger,
		metrics:  metrics,
	}
}

// Refresh re-derives the cart view from whichever store is currently
// authoritative. On gateway failure the last known-good view is kept.
func (e *Engine) Refresh(ctx context.Context) (*domain.CartView, error) {
	owner := e.identity.Owner()

	if owner.IsGuest() {
		view := e.setView(e.guest.Read())
		return &view, nil
	}

	customerID, _ := owner.CustomerID()
	resp, err := e.server.GetCart(ctx, customerID)
	if err != nil {
		return nil, domain.WrapError(err, domain.EINTERNAL, "cart.refresh", "Could not load your cart")
	}

	view := e.setView(serverItems(resp))
	return &view, nil
}

// AddToCart adds a variant to the cart, merging by variant key.
//
// In server mode only productID is needed; the gateway resolves product
// details. In guest mode there is no server lookup, so details is
// required and its absence is an error.
func (e *Engine) AddToCart(ctx context.Context, productID int64, details *domain.ProductDetails, size string, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	owner := e.identity.Owner()

	if customerID, ok := owner.CustomerID(); ok {
		err := e.server.AddItem(ctx, customerID, gateway.CartItemRequest{
			ProductID: productID,
			Quantity:  quantity,
			Size:      size,
		})
		if err != nil {
			return domain.WrapError(err, domain.EINTERNAL, "cart.add", "Could not add item to cart")
		}
		e.countAdd("server")
		if _, err := e.Refresh(ctx); err != nil {
			return err
		}
		return nil
	}

	if details == nil {
		return domain.ErrMissingProductDetails
	}

	items := e.guest.Read()
	key := domain.NewVariantKey(productID, size)

	merged := false
	for i := range items {
		if items[i].Key() == key {
			items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		items = append(items, domain.LineItem{
			ProductID:      productID,
			Name:           details.Name,
			Size:           size,
			Quantity:       quantity,
			UnitPriceCents: details.UnitPriceCents,
			ImageURL:       details.ImageURL,
		})
	}

	if err := e.guest.Write(items); err != nil {
		return domain.WrapError(err, domain.EINTERNAL, "cart.add", "Could not save your cart")
	}
	e.countAdd("guest")
	e.setView(items)
	return nil
}

// DecreaseItem decrements the item by one, removing it when the
// caller-observed quantity is already 1 or less. A race where the true
// server quantity differs is resolved by the next refresh, not here.
func (e *Engine) DecreaseItem(ctx context.Context, item domain.LineItem) error {
	owner := e.identity.Owner()

	if customerID, ok := owner.CustomerID(); ok {
		var err error
		if item.Quantity <= 1 {
			err = e.server.RemoveItem(ctx, customerID, item.ItemID)
		} else {
			err = e.server.UpdateItem(ctx, customerID, item.ItemID, item.Quantity-1)
		}
		if err != nil {
			return domain.WrapError(err, domain.EINTERNAL, "cart.decrease", "Could not update cart item")
		}
		if _, err := e.Refresh(ctx); err != nil {
			return err
		}
		return nil
	}

	items := e.guest.Read()
	key := item.Key()
	next := items[:0]
	for _, existing := range items {
		if existing.Key() != key {
			next = append(next, existing)
			continue
		}
		if item.Quantity <= 1 {
			continue
		}
		existing.Quantity = item.Quantity - 1
		next = append(next, existing)
	}

	if err := e.guest.Write(next); err != nil {
		return domain.WrapError(err, domain.EINTERNAL, "cart.decrease", "Could not save your cart")
	}
	e.setView(next)
	return nil
}

// DeleteItem removes the item unconditionally: by server item ID in
// server mode, by variant key in guest mode.
func (e *Engine) DeleteItem(ctx context.Context, item domain.LineItem) error {
	owner := e.identity.Owner()

	if customerID, ok := owner.CustomerID(); ok {
		if err := e.server.RemoveItem(ctx, customerID, item.ItemID); err != nil {
			return domain.WrapError(err, domain.EINTERNAL, "cart.delete", "Could not remove cart item")
		}
		if _, err := e.Refresh(ctx); err != nil {
			return err
		}
		return nil
	}

	items := e.guest.Read()
	key := item.Key()
	next := items[:0]
	for _, existing := range items {
		if existing.Key() != key {
			next = append(next, existing)
		}
	}

	if err := e.guest.Write(next); err != nil {
		return domain.WrapError(err, domain.EINTERNAL, "cart.delete", "Could not save your cart")
	}
	e.setView(next)
	return nil
}

// ClearCart empties the active cart. In server mode the only real
// caller is post-order cleanup, where order placement has already
// emptied the server cart, so this refetches rather than calling a
// dedicated empty-cart endpoint.
func (e *Engine) ClearCart(ctx context.Context) error {
	owner := e.identity.Owner()

	if owner.IsGuest() {
		if err := e.guest.Clear(); err != nil {
			return domain.WrapError(err, domain.EINTERNAL, "cart.clear", "Could not clear your cart")
		}
		e.setView(nil)
		e.countClear("guest")
		return nil
	}

	if _, err := e.Refresh(ctx); err != nil {
		return err
	}
	e.countClear("server")
	return nil
}

// SyncGuestCartToServer merges every guest line item into the server
// cart after login or registration. Items are merged sequentially so
// the order is deterministic and a failure stays isolated to one item:
// successfully merged items leave the guest store, failed items are
// written back for retry. An empty guest cart just refreshes.
func (e *Engine) SyncGuestCartToServer(ctx context.Context) error {
	customerID, ok := e.identity.Owner().CustomerID()
	if !ok {
		return domain.ErrNotAuthenticated
	}

	items := e.guest.Read()
	if len(items) == 0 {
		_, err := e.Refresh(ctx)
		return err
	}

	var failed []domain.LineItem
	var errs []error
	for _, item := range items {
		err := e.server.AddItem(ctx, customerID, gateway.CartItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Size:      item.Size,
		})
		if err != nil {
			e.logger.Warn("guest cart merge failed for item",
				slog.Int64("product_id", item.ProductID),
				slog.String("size", item.Size),
				slog.String("error", err.Error()))
			failed = append(failed, item)
			errs = append(errs, fmt.Errorf("product %d: %w", item.ProductID, err))
		}
	}

	if err := e.guest.Write(failed); err != nil {
		errs = append(errs, err)
	}

	if _, err := e.Refresh(ctx); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return domain.WrapError(errors.Join(errs...), domain.EINTERNAL, "cart.sync", "Some items could not be moved to your account")
	}

	if e.metrics != nil {
		e.metrics.CartMerged.Inc()
	}
	e.logger.Debug("guest cart merged into server cart",
		slog.Int64("customer_id", customerID),
		slog.Int("items", len(items)))
	return nil
}

// View returns the last known-good cart view without a network call.
func (e *Engine) View() domain.CartView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyView(e.view)
}

// TotalItems returns the cached summary's item count. Never requires a
// network round-trip.
func (e *Engine) TotalItems() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view.Summary.TotalItems
}

// setView replaces the view model, recomputing the summary from the
// item collection so totals can never drift from the items.
func (e *Engine) setView(items []domain.LineItem) domain.CartView {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.view = domain.CartView{
		Items:   items,
		Summary: domain.Summarize(items),
	}
	return copyView(e.view)
}

func (e *Engine) countAdd(mode string) {
	if e.metrics != nil {
		e.metrics.CartItemsAdded.WithLabelValues(mode).Inc()
	}
}

func (e *Engine) countClear(mode string) {
	if e.metrics != nil {
		e.metrics.CartCleared.WithLabelValues(mode).Inc()
	}
}

// serverItems maps a gateway cart snapshot into domain line items,
// converting decimal wire amounts to cents at the boundary.
func serverItems(resp *gateway.CartResponse) []domain.LineItem {
	items := make([]domain.LineItem, 0, len(resp.Items))
	for _, item := range resp.Items {
		items = append(items, domain.LineItem{
			ItemID:         item.ItemID,
			ProductID:      item.ProductID,
			Name:           item.Name,
			Size:           item.Size,
			Quantity:       item.Quantity,
			UnitPriceCents: domain.ToCents(item.UnitPrice),
			ImageURL:       item.ImageURL,
		})
	}
	return items
}

func copyView(view domain.CartView) domain.CartView {
	items := make([]domain.LineItem, len(view.Items))
	copy(items, view.Items)
	return domain.CartView{Items: items, Summary: view.Summary}
}
