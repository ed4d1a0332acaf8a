package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartClient_GetCart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/cart/42", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(CartResponse{
			CartID:      7,
			CustomerID:  42,
			TotalItems:  2,
			TotalAmount: 240.00,
			Items: []CartItemResponse{
				{ItemID: 1, ProductID: 10, Name: "Air Zoom", Size: "9", Quantity: 2, UnitPrice: 120.00, LineTotal: 240.00},
			},
		})
	}))
	defer server.Close()

	client := NewCartClient(NewClient(server.URL, WithTokenSource(func() string { return "tok-123" })))

	cart, err := client.GetCart(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), cart.CustomerID)
	assert.Equal(t, 2, cart.TotalItems)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, 120.00, cart.Items[0].UnitPrice)
}

func TestCartClient_AddItem(t *testing.T) {
	var received CartItemRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/cart/42/items", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewCartClient(NewClient(server.URL))

	err := client.AddItem(context.Background(), 42, CartItemRequest{ProductID: 10, Quantity: 2, Size: "9"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), received.ProductID)
	assert.Equal(t, 2, received.Quantity)
	assert.Equal(t, "9", received.Size)
}

func TestCartClient_UpdateItem_AbsoluteQuantity(t *testing.T) {
	var received UpdateItemRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/cart/42/items/7", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
	}))
	defer server.Close()

	client := NewCartClient(NewClient(server.URL))

	require.NoError(t, client.UpdateItem(context.Background(), 42, 7, 3))
	assert.Equal(t, 3, received.Quantity)
}

func TestCartClient_RemoveItem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/cart/42/items/7", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewCartClient(NewClient(server.URL))
	assert.NoError(t, client.RemoveItem(context.Background(), 42, 7))
}

func TestClient_ErrorPayloadDecoded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "Cart not found"})
	}))
	defer server.Close()

	client := NewCartClient(NewClient(server.URL))

	_, err := client.GetCart(context.Background(), 99)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Cart not found", apiErr.Message)
}

func TestOrderClient_SubmitOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout", r.URL.Path)

		var req CheckoutRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "approve", req.PaymentToken)

		json.NewEncoder(w).Encode(CheckoutResponse{
			OrderID:     100,
			OrderNumber: "ORD-100",
			TotalAmount: 240.00,
			Status:      "CONFIRMED",
		})
	}))
	defer server.Close()

	client := NewOrderClient(NewClient(server.URL))

	resp, err := client.SubmitOrder(context.Background(), CheckoutRequest{
		CustomerID:   42,
		PaymentToken: "approve",
	})
	require.NoError(t, err)
	assert.Equal(t, "ORD-100", resp.OrderNumber)
	assert.Equal(t, "CONFIRMED", resp.Status)
}

func TestAuthClient_RegisterAndLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/register":
			json.NewEncoder(w).Encode(AuthResponse{Success: true, CustomerID: 42})
		case "/auth/login":
			var req LoginRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "jo@example.com", req.Email)
			json.NewEncoder(w).Encode(AuthResponse{Success: true, CustomerID: 42, Token: "tok-abc", Role: "CUSTOMER"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewAuthClient(NewClient(server.URL))

	reg, err := client.Register(context.Background(), RegisterRequest{
		FirstName: "Jo", LastName: "Vale", Email: "jo@example.com", Password: "hunter2hunter2",
	})
	require.NoError(t, err)
	assert.True(t, reg.Success)

	login, err := client.Login(context.Background(), "jo@example.com", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", login.Token)
	assert.Equal(t, int64(42), login.CustomerID)
}
