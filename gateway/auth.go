package gateway

import (
	"context"
	"fmt"
	"net/http"
)

// RegisterRequest creates a new customer account.
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// LoginRequest authenticates an existing customer.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse describes the result of register/login flows.
type AuthResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	CustomerID int64  `json:"customerId"`
	Token      string `json:"token"`
	Role       string `json:"role"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
}

// ProfilePaymentUpdate persists card fields back to the customer's
// saved profile after an opted-in checkout.
type ProfilePaymentUpdate struct {
	CreditCardHolder string `json:"creditCardHolder"`
	CreditCardNumber string `json:"creditCardNumber"`
	CreditCardExpiry string `json:"creditCardExpiry"`
	CreditCardCvv    string `json:"creditCardCvv"`
}

// AuthClient consumes the auth service for the checkout registration
// path and profile updates. Session storage itself lives in the cart
// package, not here.
type AuthClient struct {
	client *Client
}

// NewAuthClient creates an auth service client.
func NewAuthClient(client *Client) *AuthClient {
	return &AuthClient{client: client}
}

// Register creates a customer account.
func (c *AuthClient) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.client.do(ctx, http.MethodPost, "/auth/register", req, &out); err != nil {
		return nil, fmt.Errorf("failed to register: %w", err)
	}
	return &out, nil
}

// Login authenticates a customer and returns session credentials.
func (c *AuthClient) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.client.do(ctx, http.MethodPost, "/auth/login", LoginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, fmt.Errorf("failed to login: %w", err)
	}
	return &out, nil
}

// SavePaymentDetails updates the saved card on the customer profile.
func (c *AuthClient) SavePaymentDetails(ctx context.Context, update ProfilePaymentUpdate) error {
	if err := c.client.do(ctx, http.MethodPut, "/auth/profile", update, nil); err != nil {
		return fmt.Errorf("failed to save payment details: %w", err)
	}
	return nil
}
