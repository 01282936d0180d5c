package services

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ticketing/internal/domain"
	"ticketing/internal/domain/models"
	"ticketing/internal/utils"
)

// CouponStore is implemented by repositories.CouponRepo.
type CouponStore interface {
	GetByCode(ctx context.Context, code string) (models.Coupon, error)
	RecordUsage(ctx context.Context, code string) error
}

type DiscountService struct {
	Coupons CouponStore
	// Now is injectable for window checks; defaults to time.Now.
	Now func() time.Time
}

func (s DiscountService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// ValidateCoupon checks a code against its rule and computes the discount.
// It does not consume a usage slot; RecordUsage does that once the order is
// actually placed.
func (s DiscountService) ValidateCoupon(ctx context.Context, code string, orderAmount float64, tickets models.TicketCounts) (models.CouponResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return models.CouponResult{}, domain.ValidationError{Field: "code", Msg: "coupon code is required"}
	}

	c, err := s.Coupons.GetByCode(ctx, code)
	if err != nil {
		return models.CouponResult{}, err
	}

	if !c.Active {
		return models.CouponResult{}, domain.ValidationError{Field: "code", Msg: "coupon is no longer active"}
	}
	now := s.now()
	if now.Before(c.ValidFrom) || now.After(c.ValidUntil) {
		return models.CouponResult{}, domain.ValidationError{Field: "code", Msg: "coupon is outside its validity window"}
	}
	if orderAmount < c.MinimumOrderAmount {
		return models.CouponResult{}, domain.ValidationError{Field: "order_amount", Msg: "order amount below coupon minimum"}
	}
	if c.UsageLimit > 0 && c.UsageCount >= c.UsageLimit {
		return models.CouponResult{}, domain.ConflictError{Resource: "coupon", Msg: "usage limit reached"}
	}

	discount := couponDiscount(c, orderAmount, tickets)
	return models.CouponResult{
		Code:           c.Code,
		DiscountAmount: discount,
		FinalAmount:    utils.Round2(orderAmount - discount),
	}, nil
}

// RecordUsage consumes one usage slot for the code.
func (s DiscountService) RecordUsage(ctx context.Context, code string) error {
	return s.Coupons.RecordUsage(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

func couponDiscount(c models.Coupon, orderAmount float64, tickets models.TicketCounts) float64 {
	amount := decimal.NewFromFloat(orderAmount)

	switch c.Type {
	case models.CouponPercentage:
		d := amount.Mul(decimal.NewFromFloat(c.Value)).Div(decimal.NewFromInt(100))
		if d.GreaterThan(amount) {
			d = amount
		}
		f, _ := d.Round(2).Float64()
		return f
	case models.CouponFixedAmount:
		return utils.MinMoney(c.Value, orderAmount)
	case models.CouponBuyXGetY:
		total := tickets.Total()
		if c.BuyQuantity <= 0 || total < c.BuyQuantity {
			return 0
		}
		avg := amount.Div(decimal.NewFromInt(int64(total)))
		free := int64(total/c.BuyQuantity) * int64(c.GetQuantity)
		d := avg.Mul(decimal.NewFromInt(free))
		if d.GreaterThan(amount) {
			d = amount
		}
		f, _ := d.Round(2).Float64()
		return f
	default:
		return 0
	}
}

// EarlyBirdDiscount applies percentOff while now is strictly before the
// cutoff date.
func (s DiscountService) EarlyBirdDiscount(orderAmount float64, percentOff float64, cutoff time.Time) float64 {
	if !s.now().Before(cutoff) {
		return 0
	}
	d := decimal.NewFromFloat(orderAmount).Mul(decimal.NewFromFloat(percentOff)).Div(decimal.NewFromInt(100))
	f, _ := d.Round(2).Float64()
	return f
}

// GroupDiscount is a step function on ticket count: 10+ tickets take 20%
// off, 5+ take 15%, fewer get nothing.
func (s DiscountService) GroupDiscount(orderAmount float64, ticketCount int) float64 {
	var pct int64
	switch {
	case ticketCount >= 10:
		pct = 20
	case ticketCount >= 5:
		pct = 15
	default:
		return 0
	}
	d := decimal.NewFromFloat(orderAmount).Mul(decimal.NewFromInt(pct)).Div(decimal.NewFromInt(100))
	f, _ := d.Round(2).Float64()
	return f
}

// LoyaltyPointsDiscount values points at one cent each, capped at half the
// order amount.
func (s DiscountService) LoyaltyPointsDiscount(orderAmount float64, points int64) float64 {
	if points <= 0 {
		return 0
	}
	value := decimal.NewFromInt(points).Div(decimal.NewFromInt(100))
	limit := decimal.NewFromFloat(orderAmount).Div(decimal.NewFromInt(2))
	if value.GreaterThan(limit) {
		value = limit
	}
	f, _ := value.Round(2).Float64()
	return f
}
