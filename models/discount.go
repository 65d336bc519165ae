package models

import "time"

// PercentageOff is the discount applied to every recovery offer.
const PercentageOff = 10

// DiscountCode is minted fresh for every abandoned cart and never reused.
type DiscountCode struct {
	ID          int64  `json:"id"`
	PriceRuleID int64  `json:"price_rule_id"`
	Code        string `json:"code"`
}

// PriceRule describes a percentage-off promotion created on the store.
type PriceRule struct {
	Title             string
	PercentOff        float64
	TargetType        string
	TargetSelection   string
	AllocationMethod  string
	CustomerSelection string
	StartsAt          time.Time
}

// Order is the part of a store order the checker cares about: that it exists.
type Order struct {
	ID              ShopifyID `json:"id"`
	Name            string    `json:"name"`
	CartToken       string    `json:"cart_token"`
	FinancialStatus string    `json:"financial_status"`
	CancelledAt     *string   `json:"cancelled_at"`
}
