package domain

import (
	"context"
	"time"
)

// Checkout-specific errors.
var (
	ErrCartEmpty          = Errorf(EINVALID, "", "Cart is empty")
	ErrPaymentBlocked     = Errorf(ERATELIMIT, "", "Too many failed payment attempts. Please wait before trying again.")
	ErrRegistrationFailed = Errorf(EUNAUTHORIZED, "", "Registration failed")
)

// CheckoutAddress is one billing or shipping address form.
type CheckoutAddress struct {
	FirstName  string
	LastName   string
	Address    string
	City       string
	PostalCode string
}

// Concatenated renders the address the way the order service expects it:
// a single "street, city, postal code" string.
func (a CheckoutAddress) Concatenated() string {
	return a.Address + ", " + a.City + ", " + a.PostalCode
}

// PaymentCard holds the raw payment form fields. Card numbers may carry
// spaces or dashes; validation strips non-digits before counting.
type PaymentCard struct {
	CardHolder string
	CardNumber string
	Expiry     string
	CVC        string
}

// GuestRegistration is the inline account-creation form for shoppers
// checking out without an account.
type GuestRegistration struct {
	FirstName       string `validate:"required"`
	LastName        string `validate:"required"`
	Email           string `validate:"required,email"`
	Password        string `validate:"required,min=8"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
}

// PlaceOrderRequest carries everything the orchestrator needs to turn a
// reviewed cart into a submitted order.
type PlaceOrderRequest struct {
	Billing  CheckoutAddress
	Shipping CheckoutAddress
	Payment  PaymentCard

	// Registration is required when no authenticated customer exists.
	Registration *GuestRegistration

	// SavePaymentInfo persists the card fields back to the customer's
	// saved profile after a successful order.
	SavePaymentInfo bool
}

// OrderConfirmation is carried to the confirmation view after a
// successful order placement.
type OrderConfirmation struct {
	OrderID          int64
	OrderNumber      string
	Status           string
	TotalAmountCents int64
	TotalItems       int
	OrderDate        time.Time
}

// CheckoutService turns a reviewed cart into a submitted order.
type CheckoutService interface {
	// PlaceOrder runs the full checkout pipeline: guard check, identity
	// resolution, payment validation, order submission, and post-order
	// cleanup. Any step can short-circuit with a user-facing error.
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*OrderConfirmation, error)
}

// PaymentGuard throttles repeated failed checkout submissions.
type PaymentGuard interface {
	// IsBlocked reports whether submissions are currently blocked.
	IsBlocked() bool

	// RecordFailure counts one failed payment submission and starts the
	// cooldown once the failure threshold is reached.
	RecordFailure()

	// Reset clears all attempts after a successful order.
	Reset()

	// RemainingCooldown returns how long until submissions unblock.
	// Zero when not blocked.
	RemainingCooldown() time.Duration
}
