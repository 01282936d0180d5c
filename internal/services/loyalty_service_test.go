package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ticketing/internal/domain"
	"ticketing/internal/domain/models"
)

// fakeLoyaltyStore mirrors the repository contract: Append applies deltas and
// re-derives the tier from lifetime points.
type fakeLoyaltyStore struct {
	account       models.LoyaltyAccount
	txs           []models.LoyaltyTransaction
	cancellations map[string]models.BookingCancellation
	mods          []models.BookingModification
	nextID        int64
	expireErr     error
}

func newFakeLoyaltyStore(userID string) *fakeLoyaltyStore {
	return &fakeLoyaltyStore{
		account:       models.LoyaltyAccount{UserID: userID, Tier: models.TierBronze},
		cancellations: map[string]models.BookingCancellation{},
	}
}

func (f *fakeLoyaltyStore) Account(ctx context.Context, userID string) (models.LoyaltyAccount, error) {
	return f.account, nil
}

func (f *fakeLoyaltyStore) Append(ctx context.Context, userID string, txs []models.LoyaltyTransaction) (models.LoyaltyAccount, error) {
	for _, tx := range txs {
		f.nextID++
		tx.ID = f.nextID
		f.txs = append(f.txs, tx)
		f.account.Balance += tx.Points
		if tx.Type == models.LoyaltyTxEarned && tx.Points > 0 {
			f.account.Lifetime += tx.Points
		}
	}
	f.account.Tier = models.TierForLifetime(f.account.Lifetime)
	return f.account, nil
}

func (f *fakeLoyaltyStore) Transactions(ctx context.Context, userID string) ([]models.LoyaltyTransaction, error) {
	return f.txs, nil
}

func (f *fakeLoyaltyStore) EarnedByBooking(ctx context.Context, userID, bookingID string) (models.LoyaltyTransaction, bool, error) {
	for _, tx := range f.txs {
		if tx.Type == models.LoyaltyTxEarned && tx.BookingID == bookingID {
			return tx, true, nil
		}
	}
	return models.LoyaltyTransaction{}, false, nil
}

func (f *fakeLoyaltyStore) Expirable(ctx context.Context, userID string, asOf time.Time) ([]models.LoyaltyTransaction, error) {
	var out []models.LoyaltyTransaction
	for _, tx := range f.txs {
		if tx.Type == models.LoyaltyTxEarned && tx.ExpiresAt != nil && tx.ExpiresAt.Before(asOf) && tx.ExpiredAt == nil {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeLoyaltyStore) ExpireBatch(ctx context.Context, userID string, ids []int64, batch models.LoyaltyTransaction) (models.LoyaltyAccount, error) {
	if f.expireErr != nil {
		return models.LoyaltyAccount{}, f.expireErr
	}
	for i := range f.txs {
		for _, id := range ids {
			if f.txs[i].ID == id {
				t := batch.CreatedAt
				f.txs[i].ExpiredAt = &t
			}
		}
	}
	return f.Append(ctx, userID, []models.LoyaltyTransaction{batch})
}

func (f *fakeLoyaltyStore) SaveCancellation(ctx context.Context, c models.BookingCancellation) error {
	f.cancellations[c.BookingID] = c
	return nil
}

func (f *fakeLoyaltyStore) Cancellation(ctx context.Context, bookingID string) (models.BookingCancellation, bool, error) {
	c, ok := f.cancellations[bookingID]
	return c, ok, nil
}

func (f *fakeLoyaltyStore) AppendModification(ctx context.Context, m models.BookingModification) error {
	f.mods = append(f.mods, m)
	return nil
}

func (f *fakeLoyaltyStore) Modifications(ctx context.Context, bookingID string) ([]models.BookingModification, error) {
	return f.mods, nil
}

func TestAwardPointsBaseAccrual(t *testing.T) {
	store := newFakeLoyaltyStore("u1")
	svc := LoyaltyService{Store: store}

	res, err := svc.AwardPoints(context.Background(), "u1", "BK-1", 120.75)
	require.NoError(t, err)
	require.EqualValues(t, 120, res.PointsEarned)
	require.EqualValues(t, 120, res.Account.Balance)
	require.Equal(t, models.TierBronze, res.Account.Tier)
}

func TestAwardPointsUsesTierBeforeTransaction(t *testing.T) {
	store := newFakeLoyaltyStore("u1")
	store.account = models.LoyaltyAccount{UserID: "u1", Balance: 1200, Lifetime: 1200, Tier: models.TierSilver}
	svc := LoyaltyService{Store: store}

	res, err := svc.AwardPoints(context.Background(), "u1", "BK-2", 100)
	require.NoError(t, err)
	// 100 * 1.25 under the silver multiplier.
	require.EqualValues(t, 125, res.PointsEarned)
}

func TestAwardPointsMilestoneBonus(t *testing.T) {
	store := newFakeLoyaltyStore("u1")
	store.account = models.LoyaltyAccount{UserID: "u1", Balance: 4900, Lifetime: 4900, Tier: models.TierSilver}
	svc := LoyaltyService{Store: store}

	res, err := svc.AwardPoints(context.Background(), "u1", "BK-3", 200)
	require.NoError(t, err)
	// 200 * 1.25 = 250 crosses the 5000 lifetime boundary.
	require.EqualValues(t, 500, res.MilestoneBonus)
	require.EqualValues(t, 750, res.PointsEarned)
}

func TestAwardPointsTierUpgradeBonus(t *testing.T) {
	store := newFakeLoyaltyStore("u1")
	store.account = models.LoyaltyAccount{UserID: "u1", Balance: 950, Lifetime: 950, Tier: models.TierBronze}
	svc := LoyaltyService{Store: store}

	res, err := svc.AwardPoints(context.Background(), "u1", "BK-4", 100)
	require.NoError(t, err)
	require.Equal(t, models.TierSilver, res.UpgradedTo)
	require.EqualValues(t, 100, res.TierBonus)
	// 100 earned + 100 upgrade bonus on top of the starting 950.
	require.EqualValues(t, 1150, res.Account.Balance)
}

func TestAwardPointsBalanceMatchesTransactionSum(t *testing.T) {
	store := newFakeLoyaltyStore("u1")
	svc := LoyaltyService{Store: store}

	_, err := svc.AwardPoints(context.Background(), "u1", "BK-5", 300)
	require.NoError(t, err)
	_, err = svc.RedeemPoints(context.Background(), "u1", 100)
	require.NoError(t, err)

	var sum int64
	for _, tx := range store.txs {
		sum += tx.Points
	}
	require.Equal(t, store.account.Balance, sum)
}

func TestRedeemPointsInsufficientBalance(t *testing.T) {
	store := newFakeLoyaltyStore("u1")
	store.account.Balance = 50
	svc := LoyaltyService{Store: store}

	_, err := svc.RedeemPoints(context.Background(), "u1", 100)
	require.True(t, domain.IsValidation(err))
}

func TestRedeemPointsDollarValue(t *testing.T) {
	store := newFakeLoyaltyStore("u1")
	store.account.Balance = 1000
	svc := LoyaltyService{Store: store}

	res, err := svc.RedeemPoints(context.Background(), "u1", 250)
	require.NoError(t, err)
	require.InDelta(t, 2.50, res.DollarValue, 0.001)
	require.EqualValues(t, 750, res.Account.Balance)
}

func TestComputeRefundSteps(t *testing.T) {
	cases := []struct {
		name   string
		hours  float64
		refund float64
		fee    float64
	}{
		{"week out", 200, 100, 0},
		{"two days out", 60, 70, 5},
		{"one day out", 30, 40, 10},
		{"last minute", 10, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			refund, fee := ComputeRefund(100, tc.hours)
			require.InDelta(t, tc.refund, refund, 0.001)
			require.InDelta(t, tc.fee, fee, 0.001)
		})
	}
}

func TestComputeRefundFeeCaps(t *testing.T) {
	// 5% of 500 is 25, capped at 10.
	refund, fee := ComputeRefund(500, 60)
	require.InDelta(t, 10, fee, 0.001)
	require.InDelta(t, 365, refund, 0.001)

	// 10% of 500 is 50, capped at 25.
	refund, fee = ComputeRefund(500, 30)
	require.InDelta(t, 25, fee, 0.001)
	require.InDelta(t, 225, refund, 0.001)
}

func TestCancelBookingClawsBackAwardedPoints(t *testing.T) {
	store := newFakeLoyaltyStore("u1")
	store.account = models.LoyaltyAccount{UserID: "u1", Balance: 1200, Lifetime: 1200, Tier: models.TierSilver}
	svc := LoyaltyService{Store: store}

	// Silver multiplier: 100 spent awards 125 points.
	_, err := svc.AwardPoints(context.Background(), "u1", "BK-9", 100)
	require.NoError(t, err)

	eventAt := time.Now().UTC().Add(200 * time.Hour)
	res, err := svc.CancelBooking(context.Background(), "BK-9", "u1", "plans changed", 100, eventAt)
	require.NoError(t, err)
	require.EqualValues(t, 125, res.PointsDeducted)
	require.InDelta(t, 100, res.Cancellation.RefundAmount, 0.001)
	require.EqualValues(t, 1200, store.account.Balance)
}

func TestCancelBookingFallbackWithoutAward(t *testing.T) {
	store := newFakeLoyaltyStore("u1")
	store.account.Balance = 500
	svc := LoyaltyService{Store: store}

	eventAt := time.Now().UTC().Add(200 * time.Hour)
	res, err := svc.CancelBooking(context.Background(), "BK-10", "u1", "", 80.60, eventAt)
	require.NoError(t, err)
	require.EqualValues(t, 80, res.PointsDeducted)
}

func TestCancelBookingClawbackCappedAtBalance(t *testing.T) {
	store := newFakeLoyaltyStore("u1")
	store.account.Balance = 30
	svc := LoyaltyService{Store: store}

	eventAt := time.Now().UTC().Add(200 * time.Hour)
	res, err := svc.CancelBooking(context.Background(), "BK-11", "u1", "", 100, eventAt)
	require.NoError(t, err)
	require.EqualValues(t, 30, res.PointsDeducted)
	require.EqualValues(t, 0, store.account.Balance)
}

func TestCancelBookingRepeatIsInformational(t *testing.T) {
	store := newFakeLoyaltyStore("u1")
	store.account.Balance = 500
	svc := LoyaltyService{Store: store}

	eventAt := time.Now().UTC().Add(200 * time.Hour)
	first, err := svc.CancelBooking(context.Background(), "BK-12", "u1", "", 50, eventAt)
	require.NoError(t, err)
	require.False(t, first.AlreadyCancelled)
	require.EqualValues(t, 50, first.PointsDeducted)

	// The repeat reports the recorded cancellation without moving points.
	again, err := svc.CancelBooking(context.Background(), "BK-12", "u1", "", 50, eventAt)
	require.NoError(t, err)
	require.True(t, again.AlreadyCancelled)
	require.EqualValues(t, 0, again.PointsDeducted)
	require.Equal(t, first.Cancellation, again.Cancellation)
	require.EqualValues(t, 450, store.account.Balance)
}

func TestCleanExpiredPoints(t *testing.T) {
	store := newFakeLoyaltyStore("u1")
	past := time.Now().UTC().Add(-time.Hour)
	expired := models.LoyaltyTransaction{
		UserID: "u1", Type: models.LoyaltyTxEarned, Points: 400,
		ExpiresAt: &past, CreatedAt: past.Add(-365 * 24 * time.Hour),
	}
	_, err := store.Append(context.Background(), "u1", []models.LoyaltyTransaction{expired})
	require.NoError(t, err)

	svc := LoyaltyService{Store: store}
	res, err := svc.CleanExpiredPoints(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, 1, res.Transactions)
	require.EqualValues(t, 400, res.PointsExpired)
	require.EqualValues(t, 0, store.account.Balance)

	// A second sweep finds nothing.
	res, err = svc.CleanExpiredPoints(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, 0, res.Transactions)
}

func TestCleanExpiredPointsRetriesAfterStoreFailure(t *testing.T) {
	store := newFakeLoyaltyStore("u1")
	past := time.Now().UTC().Add(-time.Hour)
	expired := models.LoyaltyTransaction{
		UserID: "u1", Type: models.LoyaltyTxEarned, Points: 400,
		ExpiresAt: &past, CreatedAt: past.Add(-365 * 24 * time.Hour),
	}
	_, err := store.Append(context.Background(), "u1", []models.LoyaltyTransaction{expired})
	require.NoError(t, err)

	store.expireErr = domain.UpstreamError{System: "mysql", Msg: "commit failed"}
	svc := LoyaltyService{Store: store}
	_, err = svc.CleanExpiredPoints(context.Background(), "u1")
	require.True(t, domain.IsUpstream(err))

	// Nothing was marked, so a retry still finds and deducts the points.
	store.expireErr = nil
	res, err := svc.CleanExpiredPoints(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, 1, res.Transactions)
	require.EqualValues(t, 400, res.PointsExpired)
	require.EqualValues(t, 0, store.account.Balance)
}
