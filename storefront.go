package storefront

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/solelace/storefront/cart"
	"github.com/solelace/storefront/checkout"
	"github.com/solelace/storefront/domain"
	"github.com/solelace/storefront/gateway"
	"github.com/solelace/storefront/kv"
	"github.com/solelace/storefront/telemetry"
)

// Core wires the storefront's cart and checkout subsystems together for
// a UI layer. Construct one Core per session and inject it into
// whatever event handlers need it.
type Core struct {
	Config  *Config
	Logger  *slog.Logger
	Session *cart.Session
	Cart    *cart.Engine
	Guard   *checkout.Guard

	Checkout domain.CheckoutService
	Orders   *gateway.OrderClient
	Auth     *gateway.AuthClient
}

// New builds a Core from configuration. reg may be nil to disable
// metrics.
func New(cfg *Config, logger *slog.Logger, reg prometheus.Registerer) (*Core, error) {
	store, err := kv.NewFileStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	session := cart.NewSession(store)

	client := gateway.NewClient(cfg.APIBaseURL, gateway.WithTokenSource(session.Token))
	cartClient := gateway.NewCartClient(client)
	orderClient := gateway.NewOrderClient(client)
	authClient := gateway.NewAuthClient(client)

	var metrics *telemetry.Metrics
	if reg != nil {
		metrics = telemetry.NewMetrics(reg)
	}

	guest := cart.NewGuestStore(store)
	engine := cart.NewEngine(session, guest, cartClient, logger, metrics)

	guard := checkout.NewGuard(store,
		checkout.WithMaxAttempts(cfg.Guard.MaxAttempts),
		checkout.WithCooldown(cfg.Guard.Cooldown),
	)

	orchestrator := checkout.NewOrchestrator(engine, session, guard, orderClient, authClient, logger, metrics)

	return &Core{
		Config:   cfg,
		Logger:   logger,
		Session:  session,
		Cart:     engine,
		Guard:    guard,
		Checkout: orchestrator,
		Orders:   orderClient,
		Auth:     authClient,
	}, nil
}

// Login authenticates a customer and performs the identity transition:
// credentials are persisted and the guest cart is merged into the
// now-authoritative server cart before the guest store is cleared.
func (c *Core) Login(ctx context.Context, email, password string) error {
	resp, err := c.Auth.Login(ctx, email, password)
	if err != nil {
		return domain.WrapError(err, domain.EUNAUTHORIZED, "auth.login", "Invalid email or password")
	}
	if !resp.Success || resp.Token == "" {
		message := resp.Message
		if message == "" {
			message = "Invalid email or password"
		}
		return domain.Errorf(domain.EUNAUTHORIZED, "auth.login", "%s", message)
	}

	err = c.Session.SetCredentials(cart.Credentials{
		Token:      resp.Token,
		CustomerID: resp.CustomerID,
		Role:       resp.Role,
	})
	if err != nil {
		return domain.WrapError(err, domain.EINTERNAL, "auth.login", "Could not save your session")
	}

	return c.Cart.SyncGuestCartToServer(ctx)
}

// Logout clears the session; subsequent cart operations route to the
// guest store again.
func (c *Core) Logout(ctx context.Context) error {
	if err := c.Session.Clear(); err != nil {
		return domain.WrapError(err, domain.EINTERNAL, "auth.logout", "Could not clear your session")
	}
	_, err := c.Cart.Refresh(ctx)
	return err
}
