package repositories

import (
	"context"
	"database/sql"
	"time"

	"ticketing/internal/domain"
	"ticketing/internal/domain/models"
)

// LoyaltyRepo keeps accounts, the append-only transaction history, and the
// cancellation/modification bookkeeping in MySQL. Balance updates run inside
// a transaction with the account row locked, replacing the unguarded
// in-memory bookkeeping the platform started with.
type LoyaltyRepo struct {
	DB *sql.DB
}

func (r LoyaltyRepo) Account(ctx context.Context, userID string) (models.LoyaltyAccount, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT user_id, balance, lifetime_points, tier FROM loyalty_accounts WHERE user_id=? LIMIT 1`, userID)
	var a models.LoyaltyAccount
	err := row.Scan(&a.UserID, &a.Balance, &a.Lifetime, &a.Tier)
	if err == sql.ErrNoRows {
		return models.LoyaltyAccount{UserID: userID, Tier: models.TierBronze}, nil
	}
	if err != nil {
		return models.LoyaltyAccount{}, domain.UpstreamError{System: "mysql", Msg: "account read failed", Err: err}
	}
	return a, nil
}

// Append inserts the given transactions and applies their deltas to the
// account atomically. Lifetime only grows from positive earned deltas; tier
// is re-derived from the updated lifetime inside the same transaction.
func (r LoyaltyRepo) Append(ctx context.Context, userID string, txs []models.LoyaltyTransaction) (models.LoyaltyAccount, error) {
	if len(txs) == 0 {
		return r.Account(ctx, userID)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.LoyaltyAccount{}, domain.UpstreamError{System: "mysql", Msg: "begin failed", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT IGNORE INTO loyalty_accounts (user_id, balance, lifetime_points, tier) VALUES (?,0,0,'bronze')`,
		userID); err != nil {
		return models.LoyaltyAccount{}, domain.UpstreamError{System: "mysql", Msg: "account init failed", Err: err}
	}

	var a models.LoyaltyAccount
	row := tx.QueryRowContext(ctx,
		`SELECT user_id, balance, lifetime_points, tier FROM loyalty_accounts WHERE user_id=? FOR UPDATE`, userID)
	if err := row.Scan(&a.UserID, &a.Balance, &a.Lifetime, &a.Tier); err != nil {
		return models.LoyaltyAccount{}, domain.UpstreamError{System: "mysql", Msg: "account lock failed", Err: err}
	}

	for _, t := range txs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO loyalty_transactions (user_id, tx_type, points, description, booking_id, expires_at, created_at)
			 VALUES (?,?,?,?,?,?,?)`,
			userID, t.Type, t.Points, t.Description, t.BookingID, t.ExpiresAt, t.CreatedAt); err != nil {
			return models.LoyaltyAccount{}, domain.UpstreamError{System: "mysql", Msg: "transaction insert failed", Err: err}
		}
		a.Balance += t.Points
		if t.Type == models.LoyaltyTxEarned && t.Points > 0 {
			a.Lifetime += t.Points
		}
	}
	a.Tier = models.TierForLifetime(a.Lifetime)

	if _, err := tx.ExecContext(ctx,
		`UPDATE loyalty_accounts SET balance=?, lifetime_points=?, tier=? WHERE user_id=?`,
		a.Balance, a.Lifetime, a.Tier, userID); err != nil {
		return models.LoyaltyAccount{}, domain.UpstreamError{System: "mysql", Msg: "account update failed", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return models.LoyaltyAccount{}, domain.UpstreamError{System: "mysql", Msg: "commit failed", Err: err}
	}
	return a, nil
}

const loyaltyTxColumns = `id, user_id, tx_type, points, description, booking_id, expires_at, expired_at, created_at`

func (r LoyaltyRepo) Transactions(ctx context.Context, userID string) ([]models.LoyaltyTransaction, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+loyaltyTxColumns+` FROM loyalty_transactions WHERE user_id=? ORDER BY id`, userID)
	if err != nil {
		return nil, domain.UpstreamError{System: "mysql", Msg: "transaction list failed", Err: err}
	}
	defer rows.Close()
	return scanLoyaltyTxs(rows)
}

func (r LoyaltyRepo) EarnedByBooking(ctx context.Context, userID, bookingID string) (models.LoyaltyTransaction, bool, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+loyaltyTxColumns+` FROM loyalty_transactions
		 WHERE user_id=? AND booking_id=? AND tx_type=? AND points > 0
		 ORDER BY id LIMIT 1`,
		userID, bookingID, models.LoyaltyTxEarned)
	t, err := scanLoyaltyTx(row)
	if err == sql.ErrNoRows {
		return models.LoyaltyTransaction{}, false, nil
	}
	if err != nil {
		return models.LoyaltyTransaction{}, false, domain.UpstreamError{System: "mysql", Msg: "transaction read failed", Err: err}
	}
	return t, true, nil
}

func (r LoyaltyRepo) Expirable(ctx context.Context, userID string, asOf time.Time) ([]models.LoyaltyTransaction, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+loyaltyTxColumns+` FROM loyalty_transactions
		 WHERE user_id=? AND tx_type=? AND points > 0 AND expires_at IS NOT NULL AND expires_at <= ? AND expired_at IS NULL
		 ORDER BY id`,
		userID, models.LoyaltyTxEarned, asOf)
	if err != nil {
		return nil, domain.UpstreamError{System: "mysql", Msg: "expirable list failed", Err: err}
	}
	defer rows.Close()
	return scanLoyaltyTxs(rows)
}

// ExpireBatch marks the swept transactions and applies the negative batch
// delta inside one database transaction. A mark that committed without its
// deduction would strand points the sweep can never find again, so the two
// writes share a commit.
func (r LoyaltyRepo) ExpireBatch(ctx context.Context, userID string, ids []int64, batch models.LoyaltyTransaction) (models.LoyaltyAccount, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.LoyaltyAccount{}, domain.UpstreamError{System: "mysql", Msg: "begin failed", Err: err}
	}
	defer tx.Rollback()

	var a models.LoyaltyAccount
	row := tx.QueryRowContext(ctx,
		`SELECT user_id, balance, lifetime_points, tier FROM loyalty_accounts WHERE user_id=? FOR UPDATE`, userID)
	if err := row.Scan(&a.UserID, &a.Balance, &a.Lifetime, &a.Tier); err != nil {
		return models.LoyaltyAccount{}, domain.UpstreamError{System: "mysql", Msg: "account lock failed", Err: err}
	}

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`UPDATE loyalty_transactions SET expired_at=? WHERE id=? AND expired_at IS NULL`, batch.CreatedAt, id); err != nil {
			return models.LoyaltyAccount{}, domain.UpstreamError{System: "mysql", Msg: "expiry mark failed", Err: err}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO loyalty_transactions (user_id, tx_type, points, description, booking_id, expires_at, created_at)
		 VALUES (?,?,?,?,?,?,?)`,
		userID, batch.Type, batch.Points, batch.Description, batch.BookingID, batch.ExpiresAt, batch.CreatedAt); err != nil {
		return models.LoyaltyAccount{}, domain.UpstreamError{System: "mysql", Msg: "transaction insert failed", Err: err}
	}

	a.Balance += batch.Points
	a.Tier = models.TierForLifetime(a.Lifetime)
	if _, err := tx.ExecContext(ctx,
		`UPDATE loyalty_accounts SET balance=?, tier=? WHERE user_id=?`,
		a.Balance, a.Tier, userID); err != nil {
		return models.LoyaltyAccount{}, domain.UpstreamError{System: "mysql", Msg: "account update failed", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return models.LoyaltyAccount{}, domain.UpstreamError{System: "mysql", Msg: "commit failed", Err: err}
	}
	return a, nil
}

func (r LoyaltyRepo) SaveCancellation(ctx context.Context, c models.BookingCancellation) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO booking_cancellations
			(booking_id, user_id, reason, refund_amount, processing_fee, refund_processed, cancelled_at)
		 VALUES (?,?,?,?,?,?,?)`,
		c.BookingID, c.UserID, c.Reason, c.RefundAmount, c.ProcessingFee, c.RefundProcessed, c.CancelledAt)
	if err != nil {
		return domain.UpstreamError{System: "mysql", Msg: "cancellation write failed", Err: err}
	}
	return nil
}

func (r LoyaltyRepo) Cancellation(ctx context.Context, bookingID string) (models.BookingCancellation, bool, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT booking_id, user_id, reason, refund_amount, processing_fee, refund_processed, cancelled_at
		 FROM booking_cancellations WHERE booking_id=? LIMIT 1`, bookingID)
	var c models.BookingCancellation
	err := row.Scan(&c.BookingID, &c.UserID, &c.Reason, &c.RefundAmount, &c.ProcessingFee, &c.RefundProcessed, &c.CancelledAt)
	if err == sql.ErrNoRows {
		return models.BookingCancellation{}, false, nil
	}
	if err != nil {
		return models.BookingCancellation{}, false, domain.UpstreamError{System: "mysql", Msg: "cancellation read failed", Err: err}
	}
	return c, true, nil
}

func (r LoyaltyRepo) AppendModification(ctx context.Context, m models.BookingModification) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO booking_modifications (booking_id, field_name, old_value, new_value, additional_cost, modified_at)
		 VALUES (?,?,?,?,?,?)`,
		m.BookingID, m.Field, m.OldValue, m.NewValue, m.AdditionalCost, m.ModifiedAt)
	if err != nil {
		return domain.UpstreamError{System: "mysql", Msg: "modification write failed", Err: err}
	}
	return nil
}

func (r LoyaltyRepo) Modifications(ctx context.Context, bookingID string) ([]models.BookingModification, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, booking_id, field_name, old_value, new_value, additional_cost, modified_at
		 FROM booking_modifications WHERE booking_id=? ORDER BY id`, bookingID)
	if err != nil {
		return nil, domain.UpstreamError{System: "mysql", Msg: "modification list failed", Err: err}
	}
	defer rows.Close()

	var out []models.BookingModification
	for rows.Next() {
		var m models.BookingModification
		if err := rows.Scan(&m.ID, &m.BookingID, &m.Field, &m.OldValue, &m.NewValue, &m.AdditionalCost, &m.ModifiedAt); err != nil {
			return nil, domain.UpstreamError{System: "mysql", Msg: "modification scan failed", Err: err}
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.UpstreamError{System: "mysql", Msg: "modification scan failed", Err: err}
	}
	return out, nil
}

func scanLoyaltyTx(row rowScanner) (models.LoyaltyTransaction, error) {
	var t models.LoyaltyTransaction
	var expiresAt, expiredAt sql.NullTime
	err := row.Scan(&t.ID, &t.UserID, &t.Type, &t.Points, &t.Description, &t.BookingID, &expiresAt, &expiredAt, &t.CreatedAt)
	if err != nil {
		return models.LoyaltyTransaction{}, err
	}
	if expiresAt.Valid {
		v := expiresAt.Time
		t.ExpiresAt = &v
	}
	if expiredAt.Valid {
		v := expiredAt.Time
		t.ExpiredAt = &v
	}
	return t, nil
}

func scanLoyaltyTxs(rows *sql.Rows) ([]models.LoyaltyTransaction, error) {
	var out []models.LoyaltyTransaction
	for rows.Next() {
		t, err := scanLoyaltyTx(rows)
		if err != nil {
			return nil, domain.UpstreamError{System: "mysql", Msg: "transaction scan failed", Err: err}
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.UpstreamError{System: "mysql", Msg: "transaction scan failed", Err: err}
	}
	return out, nil
}
