package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ShopifyID accepts ids that Shopify sends either as JSON strings or as numbers.
type ShopifyID string

func (id *ShopifyID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ShopifyID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid shopify id %s: %w", string(b), err)
	}
	*id = ShopifyID(n.String())
	return nil
}

func (id ShopifyID) String() string { return string(id) }

// WebhookCustomer is the customer block embedded in cart and checkout payloads.
type WebhookCustomer struct {
	ID        ShopifyID `json:"id"`
	Phone     string    `json:"phone"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
}

// CartWebhookPayload is the subset of the carts/create webhook body the service reads.
type CartWebhookPayload struct {
	ID                ShopifyID        `json:"id"`
	Token             string           `json:"token"`
	OnlineCheckoutURL string           `json:"online_checkout_url"`
	CheckoutURL       string           `json:"checkout_url"`
	Customer          *WebhookCustomer `json:"customer"`
}

// OrderWebhookPayload is the subset of the orders/create webhook body the service reads.
type OrderWebhookPayload struct {
	ID            ShopifyID `json:"id"`
	Name          string    `json:"name"`
	CartToken     string    `json:"cart_token"`
	CheckoutToken string    `json:"checkout_token"`
}

// CartSnapshot is captured once when the cart webhook arrives and never mutated.
type CartSnapshot struct {
	CartID          string `json:"cart_id"`
	CheckoutURL     string `json:"checkout_url"`
	CustomerContact string `json:"customer_contact,omitempty"`
	CustomerName    string `json:"customer_name"`
}

// HasContact reports whether the cart is linked to a reachable customer.
func (s CartSnapshot) HasContact() bool {
	return strings.TrimSpace(s.CustomerContact) != ""
}

// Snapshot builds the immutable cart snapshot from the webhook payload.
func (p *CartWebhookPayload) Snapshot() (CartSnapshot, error) {
	cartID := p.ID.String()
	if cartID == "" {
		cartID = p.Token
	}
	if cartID == "" {
		return CartSnapshot{}, fmt.Errorf("cart payload has no id")
	}

	checkoutURL := p.OnlineCheckoutURL
	if checkoutURL == "" {
		checkoutURL = p.CheckoutURL
	}

	snap := CartSnapshot{
		CartID:      cartID,
		CheckoutURL: checkoutURL,
	}
	if p.Customer != nil {
		snap.CustomerContact = strings.TrimSpace(p.Customer.Phone)
		snap.CustomerName = strings.TrimSpace(p.Customer.FirstName)
	}
	return snap, nil
}

// CartID returns the cart identifier an order refers to.
func (p *OrderWebhookPayload) CartID() string {
	return p.CartToken
}
