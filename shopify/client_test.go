package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/osu/ShopiPing/models"
	"github.com/stretchr/testify/assert"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("demo", "shpat_test", "2025-01", WithBaseURL(srv.URL))
}

func TestNewClient_BaseURL(t *testing.T) {
	assert.Equal(t, "https://demo.myshopify.com/admin/api/2025-01", NewClient("demo", "t", "2025-01").baseURL)
	assert.Equal(t, "https://demo.myshopify.com/admin/api/2025-01", NewClient("demo.myshopify.com", "t", "2025-01").baseURL)
}

func TestOrdersForCart_QueriesByCartID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/orders.json", r.URL.Path)
		assert.Equal(t, "cart_id:C1", r.URL.Query().Get("query"))
		assert.Equal(t, "any", r.URL.Query().Get("status"))
		assert.Equal(t, "shpat_test", r.Header.Get("X-Shopify-Access-Token"))
		_, _ = w.Write([]byte(`{"orders":[{"id":450789469,"name":"#1001","cart_token":"C1"}]}`))
	})

	orders, err := client.OrdersForCart(context.Background(), "C1")
	assert.NoError(t, err)
	assert.Len(t, orders, 1)
	assert.Equal(t, models.ShopifyID("450789469"), orders[0].ID)
}

func TestOrdersForCart_IgnoresOrdersFromOtherCarts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"orders":[
			{"id":1,"name":"#1001","cart_token":"C9"},
			{"id":2,"name":"#1002","cart_token":null},
			{"id":3,"name":"#1003","cart_token":"C1"}
		]}`))
	})

	orders, err := client.OrdersForCart(context.Background(), "C1")
	assert.NoError(t, err)
	assert.Len(t, orders, 1)
	assert.Equal(t, models.ShopifyID("3"), orders[0].ID)

	orders, err = client.OrdersForCart(context.Background(), "C2")
	assert.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOrdersForCart_Empty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"orders":[]}`))
	})

	orders, err := client.OrdersForCart(context.Background(), "C2")
	assert.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOrdersForCart_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"errors":"Exceeded 2 calls per second"}`))
	})

	_, err := client.OrdersForCart(context.Background(), "C3")
	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
}

func TestCreatePriceRule_SendsPercentageRule(t *testing.T) {
	startsAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/price_rules.json", r.URL.Path)

		var req priceRuleRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "percentage", req.PriceRule.ValueType)
		assert.Equal(t, "-10.0", req.PriceRule.Value)
		assert.Equal(t, "line_item", req.PriceRule.TargetType)
		assert.Equal(t, "all", req.PriceRule.TargetSelection)
		assert.Equal(t, "across", req.PriceRule.AllocationMethod)
		assert.Equal(t, "all", req.PriceRule.CustomerSelection)
		assert.Equal(t, "2026-03-01T12:00:00Z", req.PriceRule.StartsAt)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"price_rule":{"id":507328175}}`))
	})

	id, err := client.CreatePriceRule(context.Background(), models.PriceRule{
		Title:             "SAVE10_ABCDEF12",
		PercentOff:        10,
		TargetType:        "line_item",
		TargetSelection:   "all",
		AllocationMethod:  "across",
		CustomerSelection: "all",
		StartsAt:          startsAt,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(507328175), id)
}

func TestCreatePriceRule_MissingID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"price_rule":{}}`))
	})

	_, err := client.CreatePriceRule(context.Background(), models.PriceRule{PercentOff: 10})
	assert.Error(t, err)
}

func TestCreateDiscountCode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/price_rules/507328175/discount_codes.json", r.URL.Path)

		var req discountCodeRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "SAVE10_ABCDEF12", req.DiscountCode.Code)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"discount_code":{"id":1054381139,"code":"SAVE10_ABCDEF12"}}`))
	})

	code, err := client.CreateDiscountCode(context.Background(), 507328175, "SAVE10_ABCDEF12")
	assert.NoError(t, err)
	assert.Equal(t, models.DiscountCode{ID: 1054381139, PriceRuleID: 507328175, Code: "SAVE10_ABCDEF12"}, code)
}

func TestCreateDiscountCode_RejectedCode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":{"code":["must be unique"]}}`))
	})

	_, err := client.CreateDiscountCode(context.Background(), 1, "SAVE10_DUP")
	assert.Error(t, err)
}
