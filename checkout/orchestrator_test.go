package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solelace/storefront/cart"
	"github.com/solelace/storefront/domain"
	"github.com/solelace/storefront/gateway"
	"github.com/solelace/storefront/kv"
)

// mockEngine is a hand-rolled cart engine for orchestrator tests.
type mockEngine struct {
	view domain.CartView

	cleared  bool
	synced   bool
	syncErr  error
	clearErr error
}

func (m *mockEngine) Refresh(ctx context.Context) (*domain.CartView, error) {
	view := m.view
	return &view, nil
}

func (m *mockEngine) AddToCart(ctx context.Context, productID int64, details *domain.ProductDetails, size string, quantity int) error {
	return nil
}

func (m *mockEngine) DecreaseItem(ctx context.Context, item domain.LineItem) error { return nil }
func (m *mockEngine) DeleteItem(ctx context.Context, item domain.LineItem) error   { return nil }

func (m *mockEngine) ClearCart(ctx context.Context) error {
	m.cleared = true
	return m.clearErr
}

func (m *mockEngine) SyncGuestCartToServer(ctx context.Context) error {
	m.synced = true
	return m.syncErr
}

func (m *mockEngine) View() domain.CartView { return m.view }
func (m *mockEngine) TotalItems() int       { return m.view.Summary.TotalItems }

type mockSession struct {
	owner domain.Owner
	creds *cart.Credentials
}

func (m *mockSession) Owner() domain.Owner { return m.owner }

func (m *mockSession) SetCredentials(creds cart.Credentials) error {
	m.creds = &creds
	m.owner = domain.CustomerOwner(creds.CustomerID)
	return nil
}

type mockOrders struct {
	submitFn func(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutResponse, error)
	requests []gateway.CheckoutRequest
}

func (m *mockOrders) SubmitOrder(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutResponse, error) {
	m.requests = append(m.requests, req)
	if m.submitFn != nil {
		return m.submitFn(ctx, req)
	}
	return &gateway.CheckoutResponse{
		OrderID:     1001,
		OrderNumber: "ORD-1001",
		Status:      "CONFIRMED",
		TotalAmount: 209.98,
		OrderDate:   "2026-03-14T10:30:00",
	}, nil
}

type mockAuth struct {
	registerFn func(ctx context.Context, req gateway.RegisterRequest) (*gateway.AuthResponse, error)
	loginFn    func(ctx context.Context, email, password string) (*gateway.AuthResponse, error)

	registered  []gateway.RegisterRequest
	savedCards  []gateway.ProfilePaymentUpdate
	saveCardErr error
}

func (m *mockAuth) Register(ctx context.Context, req gateway.RegisterRequest) (*gateway.AuthResponse, error) {
	m.registered = append(m.registered, req)
	if m.registerFn != nil {
		return m.registerFn(ctx, req)
	}
	return &gateway.AuthResponse{Success: true, CustomerID: 77}, nil
}

func (m *mockAuth) Login(ctx context.Context, email, password string) (*gateway.AuthResponse, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return &gateway.AuthResponse{Success: true, Token: "jwt-77", CustomerID: 77, Role: "CUSTOMER"}, nil
}

func (m *mockAuth) SavePaymentDetails(ctx context.Context, update gateway.ProfilePaymentUpdate) error {
	m.savedCards = append(m.savedCards, update)
	return m.saveCardErr
}

type orchestratorFixture struct {
	orchestrator *Orchestrator
	engine       *mockEngine
	session      *mockSession
	guard        *Guard
	clock        *testClock
	orders       *mockOrders
	auth         *mockAuth
}

func newFixture(t *testing.T, owner domain.Owner) *orchestratorFixture {
	t.Helper()

	clock := newTestClock()
	engine := &mockEngine{view: domain.CartView{
		Items: []domain.LineItem{
			{ItemID: 9, ProductID: 1, Name: "Air Zoom", Size: "42", Quantity: 1, UnitPriceCents: 12999},
			{ItemID: 10, ProductID: 2, Name: "Classic", Size: "40", Quantity: 1, UnitPriceCents: 7999},
		},
		Summary: domain.CartSummary{TotalItems: 2, TotalAmountCents: 20998},
	}}
	session := &mockSession{owner: owner}
	guard := NewGuard(kv.NewMemStore(), WithClock(clock.Now))
	orders := &mockOrders{}
	auth := &mockAuth{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &orchestratorFixture{
		orchestrator: NewOrchestrator(engine, session, guard, orders, auth, logger, nil),
		engine:       engine,
		session:      session,
		guard:        guard,
		clock:        clock,
		orders:       orders,
		auth:         auth,
	}
}

func placeRequest() domain.PlaceOrderRequest {
	return domain.PlaceOrderRequest{
		Billing: domain.CheckoutAddress{
			FirstName: "Ada", LastName: "Shopper",
			Address: "1 Main St", City: "Springfield", PostalCode: "12345",
		},
		Shipping: domain.CheckoutAddress{
			FirstName: "Ada", LastName: "Shopper",
			Address: "1 Main St", City: "Springfield", PostalCode: "12345",
		},
		Payment: validCard(),
	}
}

func TestPlaceOrder_Success(t *testing.T) {
	f := newFixture(t, domain.CustomerOwner(42))

	confirmation, err := f.orchestrator.PlaceOrder(context.Background(), placeRequest())
	require.NoError(t, err)

	require.Len(t, f.orders.requests, 1)
	submitted := f.orders.requests[0]
	assert.Equal(t, int64(42), submitted.CustomerID)
	assert.Equal(t, "1 Main St, Springfield, 12345", submitted.ShippingAddress)
	assert.Equal(t, "card", submitted.PaymentMethod)
	require.Len(t, submitted.Items, 2)
	assert.Equal(t, gateway.CheckoutItem{ProductID: 1, Quantity: 1, Size: "42"}, submitted.Items[0])

	assert.Equal(t, int64(1001), confirmation.OrderID)
	assert.Equal(t, "ORD-1001", confirmation.OrderNumber)
	assert.Equal(t, int64(20998), confirmation.TotalAmountCents)
	assert.Equal(t, 2, confirmation.TotalItems)
	assert.Equal(t, time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC), confirmation.OrderDate)

	assert.True(t, f.engine.cleared)
	assert.Zero(t, f.guard.Attempts())
	assert.Empty(t, f.auth.savedCards)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newFixture(t, domain.CustomerOwner(42))
	f.engine.view = domain.CartView{}

	_, err := f.orchestrator.PlaceOrder(context.Background(), placeRequest())
	assert.ErrorIs(t, err, domain.ErrCartEmpty)
	assert.Empty(t, f.orders.requests)
}

func TestPlaceOrder_InvalidPaymentPenalizesGuard(t *testing.T) {
	f := newFixture(t, domain.CustomerOwner(42))

	req := placeRequest()
	req.Payment.CardNumber = "4111"

	_, err := f.orchestrator.PlaceOrder(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	assert.Equal(t, 1, f.guard.Attempts())
	assert.Empty(t, f.orders.requests)
}

func TestPlaceOrder_BlockedAfterRepeatedFailures(t *testing.T) {
	f := newFixture(t, domain.CustomerOwner(42))

	bad := placeRequest()
	bad.Payment.Expiry = "13/25"

	for i := 0; i < DefaultMaxAttempts; i++ {
		_, err := f.orchestrator.PlaceOrder(context.Background(), bad)
		require.Error(t, err)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	}

	// The next submission is rejected before any work happens, even with
	// a perfectly valid card.
	_, err := f.orchestrator.PlaceOrder(context.Background(), placeRequest())
	require.Error(t, err)
	assert.Equal(t, domain.ERATELIMIT, domain.ErrorCode(err))
	assert.Empty(t, f.orders.requests)

	// After the cooldown the same request goes through.
	f.clock.Advance(DefaultCooldown)
	_, err = f.orchestrator.PlaceOrder(context.Background(), placeRequest())
	require.NoError(t, err)
	require.Len(t, f.orders.requests, 1)
}

func TestPlaceOrder_GatewayErrorPenalizesGuard(t *testing.T) {
	f := newFixture(t, domain.CustomerOwner(42))
	f.orders.submitFn = func(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutResponse, error) {
		return nil, errors.New("connection refused")
	}

	_, err := f.orchestrator.PlaceOrder(context.Background(), placeRequest())
	require.Error(t, err)
	assert.Equal(t, domain.EPAYMENT, domain.ErrorCode(err))
	assert.Equal(t, 1, f.guard.Attempts())
	assert.False(t, f.engine.cleared)
}

func TestPlaceOrder_InBandRejectionPenalizesGuard(t *testing.T) {
	f := newFixture(t, domain.CustomerOwner(42))
	f.orders.submitFn = func(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutResponse, error) {
		return &gateway.CheckoutResponse{Status: "ERROR", Message: "Credit Card Authorization Failed."}, nil
	}

	_, err := f.orchestrator.PlaceOrder(context.Background(), placeRequest())
	require.Error(t, err)
	assert.Equal(t, domain.EPAYMENT, domain.ErrorCode(err))
	assert.Equal(t, "Credit Card Authorization Failed.", domain.ErrorMessage(err))
	assert.Equal(t, 1, f.guard.Attempts())
	assert.False(t, f.engine.cleared)
}

func TestPlaceOrder_GuestRegistersAndMerges(t *testing.T) {
	f := newFixture(t, domain.GuestOwner())

	req := placeRequest()
	req.Registration = &domain.GuestRegistration{
		FirstName:       "Ada",
		LastName:        "Shopper",
		Email:           "ada@example.com",
		Password:        "correcthorse",
		ConfirmPassword: "correcthorse",
	}

	_, err := f.orchestrator.PlaceOrder(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, f.auth.registered, 1)
	assert.Equal(t, "ada@example.com", f.auth.registered[0].Email)

	require.NotNil(t, f.session.creds)
	assert.Equal(t, "jwt-77", f.session.creds.Token)
	assert.Equal(t, int64(77), f.session.creds.CustomerID)

	assert.True(t, f.engine.synced)
	require.Len(t, f.orders.requests, 1)
	assert.Equal(t, int64(77), f.orders.requests[0].CustomerID)
}

func TestPlaceOrder_GuestWithoutRegistration(t *testing.T) {
	f := newFixture(t, domain.GuestOwner())

	_, err := f.orchestrator.PlaceOrder(context.Background(), placeRequest())
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	// Identity failures never count as payment failures.
	assert.Zero(t, f.guard.Attempts())
	assert.Empty(t, f.orders.requests)
}

func TestPlaceOrder_RegistrationFieldErrorsNoPenalty(t *testing.T) {
	f := newFixture(t, domain.GuestOwner())

	req := placeRequest()
	req.Registration = &domain.GuestRegistration{
		FirstName: "Ada",
		Email:     "not-an-email",
		Password:  "short",
	}

	_, err := f.orchestrator.PlaceOrder(context.Background(), req)
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))
	assert.Zero(t, f.guard.Attempts())
	assert.Empty(t, f.auth.registered)
}

func TestPlaceOrder_RegisterRejectedUpstream(t *testing.T) {
	f := newFixture(t, domain.GuestOwner())
	f.auth.registerFn = func(ctx context.Context, req gateway.RegisterRequest) (*gateway.AuthResponse, error) {
		return &gateway.AuthResponse{Success: false, Message: "Email already registered"}, nil
	}

	req := placeRequest()
	req.Registration = &domain.GuestRegistration{
		FirstName:       "Ada",
		LastName:        "Shopper",
		Email:           "ada@example.com",
		Password:        "correcthorse",
		ConfirmPassword: "correcthorse",
	}

	_, err := f.orchestrator.PlaceOrder(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
	assert.Equal(t, "Email already registered", domain.ErrorMessage(err))
	assert.Zero(t, f.guard.Attempts())
	assert.Empty(t, f.orders.requests)
}

func TestPlaceOrder_SavesPaymentInfoOnRequest(t *testing.T) {
	f := newFixture(t, domain.CustomerOwner(42))

	req := placeRequest()
	req.SavePaymentInfo = true

	_, err := f.orchestrator.PlaceOrder(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, f.auth.savedCards, 1)
	assert.Equal(t, req.Payment.CardNumber, f.auth.savedCards[0].CreditCardNumber)
	assert.True(t, f.orders.requests[0].SavePaymentInfo)
}

func TestPlaceOrder_SaveCardFailureDoesNotFailOrder(t *testing.T) {
	f := newFixture(t, domain.CustomerOwner(42))
	f.auth.saveCardErr = errors.New("profile service down")

	req := placeRequest()
	req.SavePaymentInfo = true

	confirmation, err := f.orchestrator.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	assert.NotNil(t, confirmation)
}

func TestPlaceOrder_ClearFailureDoesNotFailOrder(t *testing.T) {
	f := newFixture(t, domain.CustomerOwner(42))
	f.engine.clearErr = errors.New("storage write failed")

	confirmation, err := f.orchestrator.PlaceOrder(context.Background(), placeRequest())
	require.NoError(t, err)
	assert.Equal(t, "ORD-1001", confirmation.OrderNumber)
}
