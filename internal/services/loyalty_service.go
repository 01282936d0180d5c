package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"ticketing/internal/domain"
	"ticketing/internal/domain/models"
	"ticketing/internal/utils"
)

// LoyaltyStore is implemented by repositories.LoyaltyRepo. Append must apply
// transaction deltas to the account atomically and re-derive the tier.
type LoyaltyStore interface {
	Account(ctx context.Context, userID string) (models.LoyaltyAccount, error)
	Append(ctx context.Context, userID string, txs []models.LoyaltyTransaction) (models.LoyaltyAccount, error)
	Transactions(ctx context.Context, userID string) ([]models.LoyaltyTransaction, error)
	EarnedByBooking(ctx context.Context, userID, bookingID string) (models.LoyaltyTransaction, bool, error)
	Expirable(ctx context.Context, userID string, asOf time.Time) ([]models.LoyaltyTransaction, error)
	ExpireBatch(ctx context.Context, userID string, ids []int64, batch models.LoyaltyTransaction) (models.LoyaltyAccount, error)
	SaveCancellation(ctx context.Context, c models.BookingCancellation) error
	Cancellation(ctx context.Context, bookingID string) (models.BookingCancellation, bool, error)
	AppendModification(ctx context.Context, m models.BookingModification) error
	Modifications(ctx context.Context, bookingID string) ([]models.BookingModification, error)
}

const (
	milestoneStep  = 5000
	milestoneBonus = 500
	// Earned points stay redeemable for a year unless swept earlier.
	pointsValidity = 365 * 24 * time.Hour
	// Redemption rate: 100 points = $1.
	pointsPerDollar = 100
)

type LoyaltyService struct {
	Store     LoyaltyStore
	RequestID string
	Now       func() time.Time
}

func (s LoyaltyService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

type AwardResult struct {
	Account        models.LoyaltyAccount `json:"account"`
	PointsEarned   int64                 `json:"points_earned"`
	MilestoneBonus int64                 `json:"milestone_bonus,omitempty"`
	TierBonus      int64                 `json:"tier_bonus,omitempty"`
	UpgradedTo     models.Tier           `json:"upgraded_to,omitempty"`
}

// AwardPoints accrues floor(amount) points multiplied by the tier in effect
// before this transaction, plus a 500-point bonus when lifetime points cross
// a multiple-of-5000 boundary. Crossing into a higher tier appends a second,
// one-time bonus transaction.
func (s LoyaltyService) AwardPoints(ctx context.Context, userID, bookingID string, amount float64) (AwardResult, error) {
	if userID == "" {
		return AwardResult{}, domain.ValidationError{Field: "user_id", Msg: "is required"}
	}
	if amount < 0 {
		return AwardResult{}, domain.ValidationError{Field: "amount", Msg: "must not be negative"}
	}

	acct, err := s.Store.Account(ctx, userID)
	if err != nil {
		return AwardResult{}, err
	}
	tierBefore := acct.Tier

	base := decimal.NewFromInt(int64(math.Floor(amount))).
		Mul(decimal.NewFromFloat(tierBefore.Multiplier())).
		Floor().IntPart()

	var milestone int64
	if (acct.Lifetime+base)/milestoneStep > acct.Lifetime/milestoneStep {
		milestone = milestoneBonus
	}

	now := s.now()
	expires := now.Add(pointsValidity)
	earned := models.LoyaltyTransaction{
		UserID:      userID,
		Type:        models.LoyaltyTxEarned,
		Points:      base + milestone,
		Description: fmt.Sprintf("points earned for booking %s", bookingID),
		BookingID:   bookingID,
		ExpiresAt:   &expires,
		CreatedAt:   now,
	}

	updated, err := s.Store.Append(ctx, userID, []models.LoyaltyTransaction{earned})
	if err != nil {
		return AwardResult{}, err
	}

	result := AwardResult{
		Account:        updated,
		PointsEarned:   base + milestone,
		MilestoneBonus: milestone,
	}

	if updated.Tier.Above(tierBefore) {
		bonus := updated.Tier.UpgradeBonus()
		bonusTx := models.LoyaltyTransaction{
			UserID:      userID,
			Type:        models.LoyaltyTxEarned,
			Points:      bonus,
			Description: fmt.Sprintf("tier upgrade bonus: %s", updated.Tier),
			ExpiresAt:   &expires,
			CreatedAt:   now,
		}
		updated, err = s.Store.Append(ctx, userID, []models.LoyaltyTransaction{bonusTx})
		if err != nil {
			return AwardResult{}, err
		}
		result.Account = updated
		result.TierBonus = bonus
		result.UpgradedTo = updated.Tier
	}

	utils.LogEvent(s.RequestID, "loyalty", "award",
		fmt.Sprintf("user_id=%s booking_id=%s points=%d tier=%s", userID, bookingID, result.PointsEarned, updated.Tier))
	return result, nil
}

type RedeemResult struct {
	Account     models.LoyaltyAccount `json:"account"`
	Points      int64                 `json:"points"`
	DollarValue float64               `json:"dollar_value"`
}

// RedeemPoints converts points to dollars at 100:1. Redeeming more than the
// current balance fails.
func (s LoyaltyService) RedeemPoints(ctx context.Context, userID string, points int64) (RedeemResult, error) {
	if points <= 0 {
		return RedeemResult{}, domain.ValidationError{Field: "points", Msg: "must be positive"}
	}

	acct, err := s.Store.Account(ctx, userID)
	if err != nil {
		return RedeemResult{}, err
	}
	if points > acct.Balance {
		return RedeemResult{}, domain.ValidationError{Field: "points", Msg: "insufficient balance"}
	}

	value, _ := decimal.NewFromInt(points).Div(decimal.NewFromInt(pointsPerDollar)).Round(2).Float64()
	redeemed := models.LoyaltyTransaction{
		UserID:      userID,
		Type:        models.LoyaltyTxRedeemed,
		Points:      -points,
		Description: fmt.Sprintf("redeemed %d points for %s", points, utils.FormatMoney(value)),
		CreatedAt:   s.now(),
	}
	updated, err := s.Store.Append(ctx, userID, []models.LoyaltyTransaction{redeemed})
	if err != nil {
		return RedeemResult{}, err
	}

	utils.LogEvent(s.RequestID, "loyalty", "redeem",
		fmt.Sprintf("user_id=%s points=%d value=%.2f", userID, points, value))
	return RedeemResult{Account: updated, Points: points, DollarValue: value}, nil
}

// ComputeRefund applies the cancellation step function on hours until the
// event: a week out refunds everything, two days out 75% minus a small fee,
// one day out 50% minus a larger fee, later nothing.
func ComputeRefund(amount float64, hoursUntilEvent float64) (refund, fee float64) {
	amt := decimal.NewFromFloat(amount)
	var pct decimal.Decimal

	switch {
	case hoursUntilEvent >= 168:
		pct = decimal.NewFromInt(100)
	case hoursUntilEvent >= 48:
		pct = decimal.NewFromInt(75)
		fee = utils.MinMoney(amount*0.05, 10)
	case hoursUntilEvent >= 24:
		pct = decimal.NewFromInt(50)
		fee = utils.MinMoney(amount*0.10, 25)
	default:
		return 0, 0
	}

	r := amt.Mul(pct).Div(decimal.NewFromInt(100)).Sub(decimal.NewFromFloat(fee))
	if r.IsNegative() {
		return 0, fee
	}
	f, _ := r.Round(2).Float64()
	return f, fee
}

type CancelResult struct {
	Cancellation     models.BookingCancellation `json:"cancellation"`
	PointsDeducted   int64                      `json:"points_deducted"`
	AlreadyCancelled bool                       `json:"already_cancelled,omitempty"`
}

// CancelBooking records the single cancellation for a booking, computes the
// refund, and claws back the points earned for it. The clawback targets the
// actual award transaction when one exists; only when the award is missing
// does it fall back to re-deriving floor(amount), capped at the balance.
// Repeat cancels are informational: the first cancellation stays
// authoritative and no further points move.
func (s LoyaltyService) CancelBooking(ctx context.Context, bookingID, userID, reason string, totalAmount float64, eventAt time.Time) (CancelResult, error) {
	if bookingID == "" {
		return CancelResult{}, domain.ValidationError{Field: "booking_id", Msg: "is required"}
	}

	if existing, exists, err := s.Store.Cancellation(ctx, bookingID); err != nil {
		return CancelResult{}, err
	} else if exists {
		return CancelResult{Cancellation: existing, AlreadyCancelled: true}, nil
	}

	now := s.now()
	refund, fee := ComputeRefund(totalAmount, eventAt.Sub(now).Hours())

	cancellation := models.BookingCancellation{
		BookingID:     bookingID,
		UserID:        userID,
		Reason:        reason,
		RefundAmount:  refund,
		ProcessingFee: fee,
		CancelledAt:   now,
	}
	if err := s.Store.SaveCancellation(ctx, cancellation); err != nil {
		return CancelResult{}, err
	}

	acct, err := s.Store.Account(ctx, userID)
	if err != nil {
		return CancelResult{}, err
	}

	deduct := int64(math.Floor(totalAmount))
	if award, ok, err := s.Store.EarnedByBooking(ctx, userID, bookingID); err != nil {
		return CancelResult{}, err
	} else if ok {
		deduct = award.Points
	}
	if deduct > acct.Balance {
		deduct = acct.Balance
	}

	if deduct > 0 {
		clawback := models.LoyaltyTransaction{
			UserID:      userID,
			Type:        models.LoyaltyTxRedeemed,
			Points:      -deduct,
			Description: fmt.Sprintf("points deducted for cancelled booking %s", bookingID),
			BookingID:   bookingID,
			CreatedAt:   now,
		}
		if _, err := s.Store.Append(ctx, userID, []models.LoyaltyTransaction{clawback}); err != nil {
			return CancelResult{}, err
		}
	}

	utils.LogEvent(s.RequestID, "loyalty", "cancel",
		fmt.Sprintf("booking_id=%s refund=%.2f fee=%.2f points_deducted=%d", bookingID, refund, fee, deduct))
	return CancelResult{Cancellation: cancellation, PointsDeducted: deduct}, nil
}

// ModifyBooking appends the audit record for a field change. The booking
// itself is updated by the caller, which also settles AdditionalCost.
func (s LoyaltyService) ModifyBooking(ctx context.Context, m models.BookingModification) error {
	if m.BookingID == "" {
		return domain.ValidationError{Field: "booking_id", Msg: "is required"}
	}
	if m.Field == "" {
		return domain.ValidationError{Field: "field", Msg: "is required"}
	}
	m.ModifiedAt = s.now()
	return s.Store.AppendModification(ctx, m)
}

type ExpireResult struct {
	Transactions  int   `json:"transactions"`
	PointsExpired int64 `json:"points_expired"`
}

// CleanExpiredPoints is the explicit expiry sweep: earned transactions past
// their expires_at that have not been expired yet are marked and batched
// into a single negative "expired" transaction.
func (s LoyaltyService) CleanExpiredPoints(ctx context.Context, userID string) (ExpireResult, error) {
	now := s.now()
	expirable, err := s.Store.Expirable(ctx, userID, now)
	if err != nil {
		return ExpireResult{}, err
	}
	if len(expirable) == 0 {
		return ExpireResult{}, nil
	}

	var total int64
	ids := make([]int64, 0, len(expirable))
	for _, t := range expirable {
		total += t.Points
		ids = append(ids, t.ID)
	}

	batch := models.LoyaltyTransaction{
		UserID:      userID,
		Type:        models.LoyaltyTxExpired,
		Points:      -total,
		Description: fmt.Sprintf("%d points expired", total),
		CreatedAt:   now,
	}
	// Mark and deduct together: a mark without the matching deduction would
	// leave points on the balance that no sweep can find again.
	if _, err := s.Store.ExpireBatch(ctx, userID, ids, batch); err != nil {
		return ExpireResult{}, err
	}

	utils.LogEvent(s.RequestID, "loyalty", "expire_sweep",
		fmt.Sprintf("user_id=%s transactions=%d points=%d", userID, len(expirable), total))
	return ExpireResult{Transactions: len(expirable), PointsExpired: total}, nil
}

type AccountView struct {
	Account      models.LoyaltyAccount       `json:"account"`
	Transactions []models.LoyaltyTransaction `json:"transactions"`
}

func (s LoyaltyService) AccountWithHistory(ctx context.Context, userID string) (AccountView, error) {
	acct, err := s.Store.Account(ctx, userID)
	if err != nil {
		return AccountView{}, err
	}
	txs, err := s.Store.Transactions(ctx, userID)
	if err != nil {
		return AccountView{}, err
	}
	return AccountView{Account: acct, Transactions: txs}, nil
}
