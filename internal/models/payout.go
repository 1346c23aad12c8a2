package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Payout statuses. pending may move to approved or rejected; approved moves
// to processing or straight to completed; processing ends at completed,
// failed or rejected. completed, failed and rejected are terminal.
const (
	PayoutStatusPending    = "pending"
	PayoutStatusApproved   = "approved"
	PayoutStatusRejected   = "rejected"
	PayoutStatusProcessing = "processing"
	PayoutStatusCompleted  = "completed"
	PayoutStatusFailed     = "failed"
)

type Payout struct {
	ID       string          `db:"id"`
	WalletID string          `db:"wallet_id"`
	UserID   string          `db:"user_id"`
	Amount   decimal.Decimal `db:"amount"`
	Currency string          `db:"currency"`
	Status   string          `db:"status"`

	// Snapshot of the wallet's payment details at request time. Later
	// changes to the wallet never affect a payout in flight.
	PaymentDetails PaymentDetails `db:"payment_details"`

	ReviewedBy sql.NullString `db:"reviewed_by"`
	ReviewedAt sql.NullTime   `db:"reviewed_at"`
	ReviewNote sql.NullString `db:"review_note"`

	PaidBy sql.NullString `db:"paid_by"`
	PaidAt sql.NullTime   `db:"paid_at"`

	Provider           sql.NullString `db:"provider"`
	ProviderTransferID sql.NullString `db:"provider_transfer_id"`

	CreatedAt time.Time    `db:"created_at"`
	UpdatedAt sql.NullTime `db:"updated_at"`
}
