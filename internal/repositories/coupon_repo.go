package repositories

import (
	"context"
	"database/sql"
	"time"

	"ticketing/internal/domain"
	"ticketing/internal/domain/models"
)

// CouponRepo serves the fixed promotional rule set. SeedDefaults installs
// the launch coupons on an empty table so a fresh deployment matches the
// documented codes.
type CouponRepo struct {
	DB *sql.DB
}

const couponColumns = `code, coupon_type, coupon_value, minimum_order_amount, valid_from, valid_until,
	active, usage_limit, usage_count, buy_quantity, get_quantity`

func (r CouponRepo) GetByCode(ctx context.Context, code string) (models.Coupon, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE code=? LIMIT 1`, code)
	var c models.Coupon
	var validFrom, validUntil sql.NullTime
	err := row.Scan(&c.Code, &c.Type, &c.Value, &c.MinimumOrderAmount, &validFrom, &validUntil,
		&c.Active, &c.UsageLimit, &c.UsageCount, &c.BuyQuantity, &c.GetQuantity)
	if err == sql.ErrNoRows {
		return models.Coupon{}, domain.NotFoundError{Resource: "coupon"}
	}
	if err != nil {
		return models.Coupon{}, domain.UpstreamError{System: "mysql", Msg: "coupon read failed", Err: err}
	}
	if validFrom.Valid {
		c.ValidFrom = validFrom.Time
	}
	if validUntil.Valid {
		c.ValidUntil = validUntil.Time
	}
	return c, nil
}

// RecordUsage bumps the usage counter without exceeding the cap. The guard
// runs in SQL so two concurrent redemptions cannot both take the last slot.
func (r CouponRepo) RecordUsage(ctx context.Context, code string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE coupons SET usage_count = usage_count + 1
		 WHERE code=? AND (usage_limit = 0 OR usage_count < usage_limit)`, code)
	if err != nil {
		return domain.UpstreamError{System: "mysql", Msg: "coupon usage update failed", Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ConflictError{Resource: "coupon", Msg: "usage limit reached"}
	}
	return nil
}

// SeedDefaults inserts the launch coupon set, skipping codes that exist.
func (r CouponRepo) SeedDefaults(ctx context.Context) error {
	now := time.Now().UTC()
	yearOut := now.AddDate(1, 0, 0)
	defaults := []models.Coupon{
		{Code: "SAVE20", Type: models.CouponPercentage, Value: 20, MinimumOrderAmount: 50, ValidFrom: now.AddDate(0, -1, 0), ValidUntil: yearOut, Active: true},
		{Code: "FIRST10", Type: models.CouponFixedAmount, Value: 10, ValidFrom: now.AddDate(0, -1, 0), ValidUntil: yearOut, Active: true, UsageLimit: 1000},
		{Code: "EARLYBIRD", Type: models.CouponPercentage, Value: 15, MinimumOrderAmount: 30, ValidFrom: now.AddDate(0, -1, 0), ValidUntil: yearOut, Active: true},
		{Code: "B2G1", Type: models.CouponBuyXGetY, ValidFrom: now.AddDate(0, -1, 0), ValidUntil: yearOut, Active: true, BuyQuantity: 2, GetQuantity: 1},
	}
	for _, c := range defaults {
		_, err := r.DB.ExecContext(ctx,
			`INSERT IGNORE INTO coupons
				(code, coupon_type, coupon_value, minimum_order_amount, valid_from, valid_until,
				 active, usage_limit, usage_count, buy_quantity, get_quantity)
			 VALUES (?,?,?,?,?,?,?,?,0,?,?)`,
			c.Code, c.Type, c.Value, c.MinimumOrderAmount, c.ValidFrom, c.ValidUntil,
			c.Active, c.UsageLimit, c.BuyQuantity, c.GetQuantity)
		if err != nil {
			return domain.UpstreamError{System: "mysql", Msg: "coupon seed failed", Err: err}
		}
	}
	return nil
}
