package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/osu/ShopiPing/models"
)

// CodePrefix starts every recovery discount code.
const CodePrefix = "SAVE10_"

// DiscountAPI is the slice of the store API needed to mint codes.
type DiscountAPI interface {
	CreatePriceRule(ctx context.Context, rule models.PriceRule) (int64, error)
	CreateDiscountCode(ctx context.Context, priceRuleID int64, code string) (models.DiscountCode, error)
}

// DiscountIssuer mints a fresh single-purpose discount code.
type DiscountIssuer interface {
	CreateDiscount(ctx context.Context) (models.DiscountCode, error)
}

type discountIssuer struct {
	api     DiscountAPI
	now     func() time.Time
	newCode func() string
}

func NewDiscountIssuer(api DiscountAPI) DiscountIssuer {
	return &discountIssuer{api: api, now: time.Now, newCode: GenerateCode}
}

// GenerateCode returns SAVE10_ followed by 8 random uppercase hex characters.
func GenerateCode() string {
	id := uuid.New()
	return CodePrefix + strings.ToUpper(fmt.Sprintf("%x", id[:4]))
}

func (d *discountIssuer) CreateDiscount(ctx context.Context) (models.DiscountCode, error) {
	code := d.newCode()

	ruleID, err := d.api.CreatePriceRule(ctx, models.PriceRule{
		Title:             "Cart recovery " + code,
		PercentOff:        models.PercentageOff,
		TargetType:        "line_item",
		TargetSelection:   "all",
		AllocationMethod:  "across",
		CustomerSelection: "all",
		StartsAt:          d.now(),
	})
	if err != nil {
		return models.DiscountCode{}, &IssuerError{Step: "price_rule", Err: err}
	}

	discount, err := d.api.CreateDiscountCode(ctx, ruleID, code)
	if err != nil {
		return models.DiscountCode{}, &IssuerError{Step: "discount_code", Err: err}
	}
	if discount.Code == "" {
		return models.DiscountCode{}, &IssuerError{Step: "discount_code", Err: fmt.Errorf("empty code in response")}
	}
	return discount, nil
}
