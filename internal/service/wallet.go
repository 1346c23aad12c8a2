package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/PaschalTrueFans/tf-backend-sub000/internal/apperrors"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/models"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/repository"
)

type WalletService struct {
	db repository.Database
}

func NewWalletService(db repository.Database) *WalletService {
	return &WalletService{db: db}
}

// GetWallet returns the user's wallet, creating a zero-balance one on first
// access.
func (s *WalletService) GetWallet(userID string) (*models.Wallet, error) {
	return s.db.Wallet().GetOrCreate(userID, nil)
}

func (s *WalletService) GetPaymentDetails(userID string) (models.PaymentDetails, error) {
	wallet, err := s.db.Wallet().GetOrCreate(userID, nil)
	if err != nil {
		return models.PaymentDetails{}, err
	}

	return wallet.PaymentDetails, nil
}

// GetTransactions returns one page of the user's ledger history, newest
// first.
func (s *WalletService) GetTransactions(userID string, page, limit int) ([]models.LedgerEntry, error) {
	wallet, err := s.db.Wallet().GetOrCreate(userID, nil)
	if err != nil {
		return nil, err
	}

	return s.db.Ledger().ListByWallet(wallet.ID, page, limit)
}

func (s *WalletService) TogglePayoutSecurity(userID string, enabled bool) error {
	_, err := s.db.Wallet().GetOrCreate(userID, nil)
	if err != nil {
		return err
	}

	return s.db.Wallet().SetPayoutSecurity(userID, enabled)
}

// CreditDebitWallet is the manual admin adjustment: positive deltas credit,
// negative deltas debit, and every touched currency gets its own ADJUSTMENT
// entry. A debit past zero fails without mutating anything.
func (s *WalletService) CreditDebitWallet(ctx context.Context, userID, adminID string, coinDelta int64, usdDelta decimal.Decimal, reason string) error {
	if coinDelta == 0 && usdDelta.IsZero() {
		return fmt.Errorf("adjustment must change at least one balance: %w", apperrors.ErrInvalidOperation)
	}
	if reason == "" {
		return fmt.Errorf("adjustment reason is required: %w", apperrors.ErrInvalidOperation)
	}

	wallet, err := s.db.Wallet().GetOrCreate(userID, nil)
	if err != nil {
		return err
	}

	metadata := models.EntryMetadata{
		Adjustment: &models.AdjustmentMetadata{Reason: reason, AdminID: adminID},
	}

	return s.db.InTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.db.Wallet().Adjust(tx, wallet.ID, coinDelta, usdDelta); err != nil {
			return err
		}

		if coinDelta != 0 {
			entry := &models.LedgerEntry{
				WalletID:  wallet.ID,
				Type:      models.EntryTypeAdjustment,
				Currency:  models.CurrencyCoin,
				Amount:    decimal.NewFromInt(coinDelta).Abs(),
				Direction: direction(coinDelta >= 0),
				Metadata:  metadata,
			}
			if _, err := s.db.Ledger().Insert(entry, tx); err != nil {
				return err
			}
		}

		if !usdDelta.IsZero() {
			entry := &models.LedgerEntry{
				WalletID:  wallet.ID,
				Type:      models.EntryTypeAdjustment,
				Currency:  models.CurrencyUSD,
				Amount:    usdDelta.Abs(),
				Direction: direction(!usdDelta.IsNegative()),
				Metadata:  metadata,
			}
			if _, err := s.db.Ledger().Insert(entry, tx); err != nil {
				return err
			}
		}

		return nil
	})
}

// RefundTransaction reverses one COMPLETED ledger entry: a debit is paid
// back, a credit is taken back (which can fail with insufficient funds). The
// reversal is recorded as a REFUND entry referencing the original; a second
// refund of the same entry is rejected. Refund and payout entries are not
// refundable here: payout reservations are reversed only through the payout
// rejection workflow.
func (s *WalletService) RefundTransaction(ctx context.Context, entryID, adminID, reason string) (*models.LedgerEntry, error) {
	original, found, err := s.db.Ledger().GetOne(entryID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("ledger entry %s: %w", entryID, apperrors.ErrNotFound)
	}

	if original.Status != models.EntryStatusCompleted {
		return nil, fmt.Errorf("only completed entries can be refunded: %w", apperrors.ErrInvalidOperation)
	}
	if original.Type == models.EntryTypeRefund {
		return nil, fmt.Errorf("a refund cannot be refunded: %w", apperrors.ErrInvalidOperation)
	}
	if original.Type == models.EntryTypePayout {
		return nil, fmt.Errorf("payout entries are reversed through payout rejection: %w", apperrors.ErrInvalidOperation)
	}

	var coinDelta int64
	usdDelta := decimal.Zero

	signed := original.SignedAmount().Neg()
	switch original.Currency {
	case models.CurrencyCoin:
		coinDelta = signed.IntPart()
	case models.CurrencyUSD:
		usdDelta = signed
	default:
		return nil, fmt.Errorf("unknown currency %q: %w", original.Currency, apperrors.ErrInvalidOperation)
	}

	var refund *models.LedgerEntry

	err = s.db.InTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.db.Wallet().Adjust(tx, original.WalletID, coinDelta, usdDelta); err != nil {
			return err
		}

		entry := &models.LedgerEntry{
			WalletID:    original.WalletID,
			Type:        models.EntryTypeRefund,
			Currency:    original.Currency,
			Amount:      original.Amount,
			Direction:   reverseDirection(original.Direction),
			ExternalKey: sql.NullString{String: "refund:" + original.ID, Valid: true},
			Metadata: models.EntryMetadata{
				Refund: &models.RefundMetadata{OriginalEntryID: original.ID, Reason: reason},
			},
		}

		refund, err = s.db.Ledger().Insert(entry, tx)
		if err != nil {
			if errors.Is(err, apperrors.ErrDuplicateKey) {
				return fmt.Errorf("entry %s already refunded: %w", original.ID, apperrors.ErrInvalidOperation)
			}
			return err
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return refund, nil
}

func direction(credit bool) string {
	if credit {
		return models.DirectionCredit
	}
	return models.DirectionDebit
}

func reverseDirection(d string) string {
	if d == models.DirectionDebit {
		return models.DirectionCredit
	}
	return models.DirectionDebit
}
