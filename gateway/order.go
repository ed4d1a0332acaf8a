package gateway

import (
	"context"
	"fmt"
	"net/http"
)

// CheckoutItem is one ordered variant in a checkout submission.
type CheckoutItem struct {
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
}

// CheckoutRequest is the order-placement payload. Payment here is a
// stubbed pass-through: paymentToken carries a placeholder rather than
// a real gateway token.
type CheckoutRequest struct {
	CustomerID      int64          `json:"customerId"`
	Items           []CheckoutItem `json:"items"`
	ShippingAddress string         `json:"shippingAddress"`
	BillingAddress  string         `json:"billingAddress"`
	PaymentMethod   string         `json:"paymentMethod"`
	PaymentToken    string         `json:"paymentToken"`
	UseSavedInfo    bool           `json:"useSavedInfo"`
	CardHolder      string         `json:"cardHolder"`
	CardNumber      string         `json:"cardNumber"`
	CardExpiry      string         `json:"cardExpiry"`
	CardCvv         string         `json:"cardCvv"`
	SavePaymentInfo bool           `json:"savePaymentInfo"`
}

// CheckoutResponse describes the placed order, or carries an error
// status and message when authorization failed.
type CheckoutResponse struct {
	OrderID     int64   `json:"id"`
	OrderNumber string  `json:"orderNumber"`
	TotalAmount float64 `json:"totalAmount"`
	Status      string  `json:"status"`
	OrderDate   string  `json:"orderDate"`
	Message     string  `json:"message"`
}

// OrderSummary is one order in a customer's order history.
type OrderSummary struct {
	OrderID     int64   `json:"id"`
	OrderNumber string  `json:"orderNumber"`
	TotalAmount float64 `json:"totalAmount"`
	Status      string  `json:"status"`
	OrderDate   string  `json:"orderDate"`
}

// OrderClient consumes the order service.
type OrderClient struct {
	client *Client
}

// NewOrderClient creates an order service client.
func NewOrderClient(client *Client) *OrderClient {
	return &OrderClient{client: client}
}

// SubmitOrder posts a checkout. The service reports payment rejection
// in-band via Status/Message; callers must inspect both.
func (c *OrderClient) SubmitOrder(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	var out CheckoutResponse
	if err := c.client.do(ctx, http.MethodPost, "/checkout", req, &out); err != nil {
		return nil, fmt.Errorf("failed to submit order: %w", err)
	}
	return &out, nil
}

// OrdersByCustomer fetches a customer's order history.
func (c *OrderClient) OrdersByCustomer(ctx context.Context, customerID int64) ([]OrderSummary, error) {
	var out []OrderSummary
	path := fmt.Sprintf("/orders?customerId=%d", customerID)
	if err := c.client.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return out, nil
}

// OrderByID fetches one order.
func (c *OrderClient) OrderByID(ctx context.Context, orderID int64) (*OrderSummary, error) {
	var out OrderSummary
	if err := c.client.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", orderID), nil, &out); err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &out, nil
}
