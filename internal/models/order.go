package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Escrow statuses. A held order is released exactly once, either by the
// timed sweep or by an admin action.
const (
	EscrowStatusHeld     = "held"
	EscrowStatusReleased = "released"
)

// Order is the escrow-relevant projection of a marketplace order. The full
// order record (items, shipping, buyer) is owned by the marketplace
// collaborator; this subsystem only reads and transitions the escrow fields.
type Order struct {
	ID              string          `db:"id"`
	CreatorID       string          `db:"creator_id"`
	EscrowStatus    string          `db:"escrow_status"`
	EscrowAmount    decimal.Decimal `db:"escrow_amount"`
	EscrowReleaseAt time.Time       `db:"escrow_release_at"`
	ReleasedAt      sql.NullTime    `db:"released_at"`
	CreatedAt       time.Time       `db:"created_at"`
}
