package utils

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Round2 snaps a dollar amount to cents. All user-visible money passes
// through here before leaving the service layer.
func Round2(amount float64) float64 {
	f, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return f
}

// FormatMoney keeps consistent decimal formatting for currency fields.
func FormatMoney(amount float64) string {
	return fmt.Sprintf("$%s", decimal.NewFromFloat(amount).Round(2).StringFixed(2))
}

// MinMoney returns the smaller of two dollar amounts at cent precision.
func MinMoney(a, b float64) float64 {
	da := decimal.NewFromFloat(a)
	db := decimal.NewFromFloat(b)
	if da.LessThanOrEqual(db) {
		return Round2(a)
	}
	return Round2(b)
}
