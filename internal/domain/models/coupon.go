package models

import "time"

const (
	CouponPercentage  = "percentage"
	CouponFixedAmount = "fixed_amount"
	CouponBuyXGetY    = "buy_x_get_y"
)

// Coupon is a promotional rule looked up by code. UsageLimit of zero means
// uncapped.
type Coupon struct {
	Code               string    `json:"code"`
	Type               string    `json:"type"`
	Value              float64   `json:"value"`
	MinimumOrderAmount float64   `json:"minimum_order_amount"`
	ValidFrom          time.Time `json:"valid_from"`
	ValidUntil         time.Time `json:"valid_until"`
	Active             bool      `json:"active"`
	UsageLimit         int       `json:"usage_limit"`
	UsageCount         int       `json:"usage_count"`
	BuyQuantity        int       `json:"buy_quantity,omitempty"`
	GetQuantity        int       `json:"get_quantity,omitempty"`
}

// CouponResult is the outcome of a successful validation.
type CouponResult struct {
	Code           string  `json:"code"`
	DiscountAmount float64 `json:"discount_amount"`
	FinalAmount    float64 `json:"final_amount"`
}
