package repositories

import (
	"database/sql"

	intdb "ticketing/internal/db"
)

// EnsureSchema provisions the relational tables on startup. Each statement is
// guarded by an information_schema lookup so redeploys stay cheap.
func EnsureSchema(db *sql.DB) error {
	ddl := map[string]string{
		"events": `
CREATE TABLE IF NOT EXISTS events (
	event_id VARCHAR(64) PRIMARY KEY,
	organizer_id VARCHAR(64) NOT NULL,
	title VARCHAR(255) NOT NULL,
	description TEXT,
	event_date VARCHAR(10) NOT NULL,
	event_time VARCHAR(5) NOT NULL,
	venue VARCHAR(255) NOT NULL,
	standard_price DECIMAL(10,2) NOT NULL DEFAULT 0,
	vip_price DECIMAL(10,2) NOT NULL DEFAULT 0,
	capacity INT NOT NULL DEFAULT 0,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	KEY idx_organizer (organizer_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
		"bookings": `
CREATE TABLE IF NOT EXISTS bookings (
	booking_id VARCHAR(64) PRIMARY KEY,
	user_id VARCHAR(64) NOT NULL,
	event_id VARCHAR(64) NOT NULL,
	event_title VARCHAR(255) NOT NULL,
	event_date VARCHAR(10) NOT NULL,
	event_time VARCHAR(5) NOT NULL,
	event_venue VARCHAR(255) NOT NULL,
	standard_count INT NOT NULL DEFAULT 0,
	vip_count INT NOT NULL DEFAULT 0,
	attendees TEXT NOT NULL,
	total_amount DECIMAL(10,2) NOT NULL DEFAULT 0,
	status VARCHAR(16) NOT NULL DEFAULT 'confirmed',
	payment_method VARCHAR(32) NOT NULL DEFAULT '',
	transaction_id VARCHAR(64) NOT NULL DEFAULT '',
	paid_at TIMESTAMP NULL,
	qr_codes MEDIUMTEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	KEY idx_user (user_id),
	KEY idx_event (event_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
		"loyalty_accounts": `
CREATE TABLE IF NOT EXISTS loyalty_accounts (
	user_id VARCHAR(64) PRIMARY KEY,
	balance BIGINT NOT NULL DEFAULT 0,
	lifetime_points BIGINT NOT NULL DEFAULT 0,
	tier VARCHAR(16) NOT NULL DEFAULT 'bronze'
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
		"loyalty_transactions": `
CREATE TABLE IF NOT EXISTS loyalty_transactions (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	user_id VARCHAR(64) NOT NULL,
	tx_type VARCHAR(16) NOT NULL,
	points BIGINT NOT NULL,
	description VARCHAR(255) NOT NULL DEFAULT '',
	booking_id VARCHAR(64) NOT NULL DEFAULT '',
	expires_at TIMESTAMP NULL,
	expired_at TIMESTAMP NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	KEY idx_user (user_id),
	KEY idx_booking (booking_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
		"booking_cancellations": `
CREATE TABLE IF NOT EXISTS booking_cancellations (
	booking_id VARCHAR(64) PRIMARY KEY,
	user_id VARCHAR(64) NOT NULL,
	reason VARCHAR(255) NOT NULL DEFAULT '',
	refund_amount DECIMAL(10,2) NOT NULL DEFAULT 0,
	processing_fee DECIMAL(10,2) NOT NULL DEFAULT 0,
	refund_processed TINYINT(1) NOT NULL DEFAULT 0,
	cancelled_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
		"booking_modifications": `
CREATE TABLE IF NOT EXISTS booking_modifications (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	booking_id VARCHAR(64) NOT NULL,
	field_name VARCHAR(64) NOT NULL,
	old_value VARCHAR(255) NOT NULL DEFAULT '',
	new_value VARCHAR(255) NOT NULL DEFAULT '',
	additional_cost DECIMAL(10,2) NOT NULL DEFAULT 0,
	modified_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	KEY idx_booking (booking_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
		"coupons": `
CREATE TABLE IF NOT EXISTS coupons (
	code VARCHAR(32) PRIMARY KEY,
	coupon_type VARCHAR(16) NOT NULL,
	coupon_value DECIMAL(10,2) NOT NULL DEFAULT 0,
	minimum_order_amount DECIMAL(10,2) NOT NULL DEFAULT 0,
	valid_from TIMESTAMP NULL,
	valid_until TIMESTAMP NULL,
	active TINYINT(1) NOT NULL DEFAULT 1,
	usage_limit INT NOT NULL DEFAULT 0,
	usage_count INT NOT NULL DEFAULT 0,
	buy_quantity INT NOT NULL DEFAULT 0,
	get_quantity INT NOT NULL DEFAULT 0
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
	}

	for table, stmt := range ddl {
		if intdb.HasTable(db, table) {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	// Installs that predate QR payload storage get the column added in place.
	if !intdb.HasColumn(db, "bookings", "qr_codes") {
		if _, err := db.Exec(`ALTER TABLE bookings ADD COLUMN qr_codes MEDIUMTEXT`); err != nil {
			return err
		}
	}
	return nil
}
