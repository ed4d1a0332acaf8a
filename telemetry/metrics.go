// Package telemetry holds Prometheus metrics for the cart and checkout
// funnel. The consuming application decides where the registry is
// scraped or pushed from.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds counters for business-level observability of the
// storefront core. The mode label distinguishes guest and server carts.
type Metrics struct {
	// Cart activity
	CartItemsAdded *prometheus.CounterVec
	CartCleared    *prometheus.CounterVec
	CartMerged     prometheus.Counter

	// Checkout funnel
	CheckoutStarted   prometheus.Counter
	CheckoutCompleted prometheus.Counter
	PaymentFailed     prometheus.Counter
	PaymentBlocked    prometheus.Counter
}

// NewMetrics registers and returns the storefront metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CartItemsAdded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_items_added_total",
			Help: "Line item additions to the cart.",
		}, []string{"mode"}),
		CartCleared: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_cleared_total",
			Help: "Cart clear operations.",
		}, []string{"mode"}),
		CartMerged: factory.NewCounter(prometheus.CounterOpts{
			Name: "storefront_cart_guest_merges_total",
			Help: "Guest-to-server cart merges at login.",
		}),
		CheckoutStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "storefront_checkout_started_total",
			Help: "Checkout submissions attempted.",
		}),
		CheckoutCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "storefront_checkout_completed_total",
			Help: "Orders placed successfully.",
		}),
		PaymentFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "storefront_payment_failures_total",
			Help: "Payment submissions counted against the attempt guard.",
		}),
		PaymentBlocked: factory.NewCounter(prometheus.CounterOpts{
			Name: "storefront_payment_blocked_total",
			Help: "Checkout submissions rejected while the guard cooldown is active.",
		}),
	}
}
