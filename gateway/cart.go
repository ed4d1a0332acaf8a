package gateway

import (
	"context"
	"fmt"
	"net/http"
)

// CartItemResponse is one line item in the authoritative server cart.
type CartItemResponse struct {
	ItemID    int64   `json:"itemId"`
	ProductID int64   `json:"productId"`
	Name      string  `json:"name"`
	Brand     string  `json:"brand"`
	ImageURL  string  `json:"imageUrl"`
	Quantity  int     `json:"quantity"`
	Size      string  `json:"size"`
	UnitPrice float64 `json:"unitPrice"`
	LineTotal float64 `json:"lineTotal"`
}

// CartResponse is the authoritative cart snapshot for a customer.
type CartResponse struct {
	CartID      int64              `json:"cartId"`
	CustomerID  int64              `json:"customerId"`
	TotalItems  int                `json:"totalItems"`
	TotalAmount float64            `json:"totalAmount"`
	Items       []CartItemResponse `json:"items"`
}

// CartItemRequest adds or merges one variant into the server cart.
// The server upserts by (productId, size), incrementing quantity when
// the variant already exists.
type CartItemRequest struct {
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
}

// UpdateItemRequest sets an item's quantity to an absolute value.
type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

// CartClient consumes the server cart gateway. The gateway is a black
// box with at-least-eventually-consistent read-after-write: callers
// must refetch after any mutating call to observe its effect.
type CartClient struct {
	client *Client
}

// NewCartClient creates a cart gateway client.
func NewCartClient(client *Client) *CartClient {
	return &CartClient{client: client}
}

// GetCart fetches the authoritative cart snapshot for a customer.
func (c *CartClient) GetCart(ctx context.Context, customerID int64) (*CartResponse, error) {
	var out CartResponse
	if err := c.client.do(ctx, http.MethodGet, fmt.Sprintf("/cart/%d", customerID), nil, &out); err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return &out, nil
}

// AddItem upserts a variant into the customer's cart.
func (c *CartClient) AddItem(ctx context.Context, customerID int64, req CartItemRequest) error {
	if err := c.client.do(ctx, http.MethodPost, fmt.Sprintf("/cart/%d/items", customerID), req, nil); err != nil {
		return fmt.Errorf("failed to add cart item: %w", err)
	}
	return nil
}

// UpdateItem sets an item's quantity to an absolute value (not a delta).
func (c *CartClient) UpdateItem(ctx context.Context, customerID, itemID int64, quantity int) error {
	path := fmt.Sprintf("/cart/%d/items/%d", customerID, itemID)
	if err := c.client.do(ctx, http.MethodPut, path, UpdateItemRequest{Quantity: quantity}, nil); err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	return nil
}

// RemoveItem deletes an item from the customer's cart.
func (c *CartClient) RemoveItem(ctx context.Context, customerID, itemID int64) error {
	path := fmt.Sprintf("/cart/%d/items/%d", customerID, itemID)
	if err := c.client.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}
