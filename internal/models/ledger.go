package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Ledger entry types.
const (
	EntryTypeDeposit       = "DEPOSIT"
	EntryTypeWithdrawal    = "WITHDRAWAL"
	EntryTypePurchaseCoins = "PURCHASE_COINS"
	EntryTypeGiftSend      = "GIFT_SEND"
	EntryTypeGiftReceive   = "GIFT_RECEIVE"
	EntryTypeProductSale   = "PRODUCT_SALE"
	EntryTypePayout        = "PAYOUT"
	EntryTypeRefund        = "REFUND"
	EntryTypeAdjustment    = "ADJUSTMENT"
)

// Ledger entry statuses. COMPLETED entries are immutable; the only allowed
// transitions are PENDING->COMPLETED and PENDING|COMPLETED->FAILED on the
// entry linked to a payout, driven by the payout workflow.
const (
	EntryStatusPending   = "PENDING"
	EntryStatusCompleted = "COMPLETED"
	EntryStatusFailed    = "FAILED"
)

// Entry direction relative to the wallet balance.
const (
	DirectionCredit = "credit"
	DirectionDebit  = "debit"
)

type LedgerEntry struct {
	ID            string          `db:"id"`
	WalletID      string          `db:"wallet_id"`
	Type          string          `db:"type"`
	Currency      string          `db:"currency"`
	Amount        decimal.Decimal `db:"amount"`
	Direction     string          `db:"direction"`
	Status        string          `db:"status"`
	RelatedUserID sql.NullString  `db:"related_user_id"`
	OrderID       sql.NullString  `db:"order_id"`
	PayoutID      sql.NullString  `db:"payout_id"`
	ExternalKey   sql.NullString  `db:"external_key"`
	Metadata      EntryMetadata   `db:"metadata"`
	CreatedAt     time.Time       `db:"created_at"`
}

// SignedAmount returns the amount with its direction applied: positive for
// credits, negative for debits.
func (e LedgerEntry) SignedAmount() decimal.Decimal {
	if e.Direction == DirectionDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}

// EntryMetadata is a tagged variant keyed by the entry type: exactly one of
// the pointers is set. It replaces the free-form blobs of earlier iterations
// with a fixed field set per entry type.
type EntryMetadata struct {
	Purchase   *PurchaseMetadata   `json:"purchase,omitempty"`
	Gift       *GiftMetadata       `json:"gift,omitempty"`
	Withdrawal *WithdrawalMetadata `json:"withdrawal,omitempty"`
	Sale       *SaleMetadata       `json:"sale,omitempty"`
	Payout     *PayoutMetadata     `json:"payout,omitempty"`
	Refund     *RefundMetadata     `json:"refund,omitempty"`
	Adjustment *AdjustmentMetadata `json:"adjustment,omitempty"`
}

// PurchaseMetadata records a coin purchase confirmed by the payment
// provider. Counterparty is the platform itself for reporting purposes.
type PurchaseMetadata struct {
	UsdCost      decimal.Decimal `json:"usd_cost"`
	SessionID    string          `json:"session_id"`
	Counterparty string          `json:"counterparty,omitempty"`
}

type GiftMetadata struct {
	CounterpartyID string `json:"counterparty_id"`
}

// WithdrawalMetadata carries the USD value credited by a coin-to-USD
// conversion.
type WithdrawalMetadata struct {
	UsdValue decimal.Decimal `json:"usd_value"`
}

// Sale kinds accepted by creator crediting.
const (
	SaleKindDigital       = "digital_sale"
	SaleKindSubscription  = "subscription"
	SaleKindEscrowRelease = "escrow_release"
)

type SaleMetadata struct {
	ReferenceID string `json:"reference_id"`
	Kind        string `json:"kind"`
}

type PayoutMetadata struct {
	Method string `json:"method"`
}

type RefundMetadata struct {
	OriginalEntryID string `json:"original_entry_id,omitempty"`
	PayoutID        string `json:"payout_id,omitempty"`
	Reason          string `json:"reason"`
}

type AdjustmentMetadata struct {
	Reason  string `json:"reason"`
	AdminID string `json:"admin_id"`
}

func (m EntryMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *EntryMetadata) Scan(src any) error {
	if src == nil {
		*m = EntryMetadata{}
		return nil
	}

	switch data := src.(type) {
	case []byte:
		return json.Unmarshal(data, m)
	case string:
		return json.Unmarshal([]byte(data), m)
	default:
		return fmt.Errorf("unsupported scan type %T for EntryMetadata", src)
	}
}
