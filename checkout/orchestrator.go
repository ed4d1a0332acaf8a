package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/solelace/storefront/cart"
	"github.com/solelace/storefront/domain"
	"github.com/solelace/storefront/gateway"
	"github.com/solelace/storefront/telemetry"
)

// paymentTokenPlaceholder stands in for a real gateway token; payment
// gateway integration is out of scope and the order service accepts it
// as a pass-through approval.
const paymentTokenPlaceholder = "approve"

// OrderGateway is the order service contract the orchestrator consumes.
// Implemented by *gateway.OrderClient.
type OrderGateway interface {
	SubmitOrder(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutResponse, error)
}

// AuthGateway is the auth service contract for the guest-checkout
// registration path. Implemented by *gateway.AuthClient.
type AuthGateway interface {
	Register(ctx context.Context, req gateway.RegisterRequest) (*gateway.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*gateway.AuthResponse, error)
	SavePaymentDetails(ctx context.Context, update gateway.ProfilePaymentUpdate) error
}

// SessionWriter resolves and updates the shopper's identity.
// Implemented by *cart.Session.
type SessionWriter interface {
	Owner() domain.Owner
	SetCredentials(creds cart.Credentials) error
}

// Orchestrator composes identity resolution, payment validation, the
// payment attempt guard, and order submission into a single
// user-facing transaction.
type Orchestrator struct {
	engine   domain.CartEngine
	session  SessionWriter
	guard    domain.PaymentGuard
	orders   OrderGateway
	auth     AuthGateway
	validate *validator.Validate
	logger   *slog.Logger
	metrics  *telemetry.Metrics
}

var _ domain.CheckoutService = (*Orchestrator)(nil)

// NewOrchestrator creates a checkout orchestrator. metrics may be nil.
func NewOrchestrator(
	engine domain.CartEngine,
	session SessionWriter,
	guard domain.PaymentGuard,
	orders OrderGateway,
	auth AuthGateway,
	logger *slog.Logger,
	metrics *telemetry.Metrics,
) *Orchestrator {
	return &Orchestrator{
		engine:   engine,
		session:  session,
		guard:    guard,
		orders:   orders,
		auth:     auth,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
		metrics:  metrics,
	}
}

// PlaceOrder runs the checkout pipeline. Steps run in order and any
// failure short-circuits with a user-facing error and no order:
//
//  1. Reject immediately while the payment guard cooldown is active.
//  2. Resolve identity, registering and logging in a guest first.
//  3. Validate payment fields; failures count against the guard.
//  4. Submit the order; rejection counts against the guard.
//  5. On success reset the guard, clear the cart, and optionally save
//     the card to the customer's profile.
func (o *Orchestrator) PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) (*domain.OrderConfirmation, error) {
	o.count(func(m *telemetry.Metrics) { m.CheckoutStarted.Inc() })

	if o.guard.IsBlocked() {
		o.count(func(m *telemetry.Metrics) { m.PaymentBlocked.Inc() })
		seconds := int(o.guard.RemainingCooldown().Seconds())
		return nil, domain.Errorf(domain.ERATELIMIT, "checkout.place",
			"Too many failed payment attempts. Try again in %d seconds.", seconds)
	}

	view := o.engine.View()
	if len(view.Items) == 0 {
		return nil, domain.ErrCartEmpty
	}

	customerID, err := o.resolveCustomer(ctx, req.Registration)
	if err != nil {
		// Registration failure is not a payment failure: no penalty.
		return nil, err
	}

	if err := validatePaymentFields(req.Payment); err != nil {
		o.recordFailure()
		return nil, err
	}

	// The view may have changed if a guest cart was just merged.
	view = o.engine.View()
	items := make([]gateway.CheckoutItem, 0, len(view.Items))
	for _, item := range view.Items {
		items = append(items, gateway.CheckoutItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Size:      item.Size,
		})
	}

	resp, err := o.orders.SubmitOrder(ctx, gateway.CheckoutRequest{
		CustomerID:      customerID,
		Items:           items,
		ShippingAddress: req.Shipping.Concatenated(),
		BillingAddress:  req.Billing.Concatenated(),
		PaymentMethod:   "card",
		PaymentToken:    paymentTokenPlaceholder,
		CardHolder:      req.Payment.CardHolder,
		CardNumber:      req.Payment.CardNumber,
		CardExpiry:      req.Payment.Expiry,
		CardCvv:         req.Payment.CVC,
		SavePaymentInfo: req.SavePaymentInfo,
	})
	if err != nil {
		o.recordFailure()
		return nil, domain.WrapError(err, domain.EPAYMENT, "checkout.place", "Failed to place order. Please try again.")
	}

	if rejected(resp) {
		o.recordFailure()
		message := resp.Message
		if message == "" {
			message = "Credit Card Authorization Failed."
		}
		return nil, domain.Errorf(domain.EPAYMENT, "checkout.place", "%s", message)
	}

	o.guard.Reset()
	o.count(func(m *telemetry.Metrics) { m.CheckoutCompleted.Inc() })

	if err := o.engine.ClearCart(ctx); err != nil {
		// The order is placed; a cleanup failure must not fail checkout.
		o.logger.Warn("failed to clear cart after order", slog.String("error", err.Error()))
	}

	if req.SavePaymentInfo {
		err := o.auth.SavePaymentDetails(ctx, gateway.ProfilePaymentUpdate{
			CreditCardHolder: req.Payment.CardHolder,
			CreditCardNumber: req.Payment.CardNumber,
			CreditCardExpiry: req.Payment.Expiry,
			CreditCardCvv:    req.Payment.CVC,
		})
		if err != nil {
			o.logger.Warn("failed to save payment details", slog.String("error", err.Error()))
		}
	}

	o.logger.Debug("order placed",
		slog.String("order_number", resp.OrderNumber),
		slog.Int64("customer_id", customerID))

	return &domain.OrderConfirmation{
		OrderID:          resp.OrderID,
		OrderNumber:      resp.OrderNumber,
		Status:           resp.Status,
		TotalAmountCents: domain.ToCents(resp.TotalAmount),
		TotalItems:       view.Summary.TotalItems,
		OrderDate:        parseOrderDate(resp.OrderDate),
	}, nil
}

// resolveCustomer returns the authenticated customer ID, running the
// inline registration + login flow for guests first and merging their
// cart into the new account.
func (o *Orchestrator) resolveCustomer(ctx context.Context, reg *domain.GuestRegistration) (int64, error) {
	if customerID, ok := o.session.Owner().CustomerID(); ok {
		return customerID, nil
	}

	if err := validateRegistration(o.validate, reg); err != nil {
		return 0, err
	}

	registered, err := o.auth.Register(ctx, gateway.RegisterRequest{
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
		Email:     reg.Email,
		Password:  reg.Password,
	})
	if err != nil {
		return 0, domain.WrapError(err, domain.EUNAUTHORIZED, "checkout.register", "Registration failed. Please try again.")
	}
	if !registered.Success {
		message := registered.Message
		if message == "" {
			message = "Registration failed. Please try again."
		}
		return 0, domain.Errorf(domain.EUNAUTHORIZED, "checkout.register", "%s", message)
	}

	login, err := o.auth.Login(ctx, reg.Email, reg.Password)
	if err != nil {
		return 0, domain.WrapError(err, domain.EUNAUTHORIZED, "checkout.register", "Could not sign in to the new account.")
	}

	err = o.session.SetCredentials(cart.Credentials{
		Token:      login.Token,
		CustomerID: login.CustomerID,
		Role:       login.Role,
	})
	if err != nil {
		return 0, domain.WrapError(err, domain.EINTERNAL, "checkout.register", "Could not save your session.")
	}

	if err := o.engine.SyncGuestCartToServer(ctx); err != nil {
		return 0, fmt.Errorf("failed to merge guest cart: %w", err)
	}

	return login.CustomerID, nil
}

func (o *Orchestrator) recordFailure() {
	o.guard.RecordFailure()
	o.count(func(m *telemetry.Metrics) { m.PaymentFailed.Inc() })
}

func (o *Orchestrator) count(fn func(*telemetry.Metrics)) {
	if o.metrics != nil {
		fn(o.metrics)
	}
}

// rejected reports an in-band order rejection: an explicit error status
// or a message containing "failed".
func rejected(resp *gateway.CheckoutResponse) bool {
	if strings.EqualFold(resp.Status, "ERROR") {
		return true
	}
	return strings.Contains(strings.ToLower(resp.Message), "failed")
}

// parseOrderDate tolerates the order service's timestamp formats.
// An unparseable date yields the zero time rather than failing a
// successfully placed order.
func parseOrderDate(value string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
