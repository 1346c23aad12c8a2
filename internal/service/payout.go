package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/PaschalTrueFans/tf-backend-sub000/internal/apperrors"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/helper"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/models"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/notifier"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/repository"
)

// PayoutService drives a USD balance through the disbursement workflow:
// request (funds reserved immediately), admin review, processing and
// completion, with an at-most-once refund on rejection.
type PayoutService struct {
	db       repository.Database
	notifier Notifier
	helper   *helper.HelperRepository
	logger   *slog.Logger
}

func NewPayoutService(db repository.Database, notifier Notifier, helper *helper.HelperRepository, logger *slog.Logger) *PayoutService {
	return &PayoutService{
		db:       db,
		notifier: notifier,
		helper:   helper,
		logger:   logger,
	}
}

// RequestPayout reserves the amount by deducting it up front, so the same
// balance cannot back two requests. The wallet's payment details are
// snapshotted onto the payout; later changes never affect a request in
// flight.
func (s *PayoutService) RequestPayout(ctx context.Context, userID string, amount decimal.Decimal) (*models.Payout, error) {
	if amount.IsNegative() || amount.IsZero() {
		return nil, fmt.Errorf("payout amount must be positive: %w", apperrors.ErrInvalidOperation)
	}

	wallet, err := s.db.Wallet().GetOrCreate(userID, nil)
	if err != nil {
		return nil, err
	}

	if !wallet.PaymentDetails.IsSet() {
		return nil, fmt.Errorf("payment details must be set before requesting a payout: %w", apperrors.ErrInvalidOperation)
	}

	var payout *models.Payout

	err = s.db.InTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.db.Wallet().Adjust(tx, wallet.ID, 0, amount.Neg()); err != nil {
			return err
		}

		payout, err = s.db.Payout().Insert(&models.Payout{
			WalletID:       wallet.ID,
			UserID:         userID,
			Amount:         amount,
			Currency:       models.CurrencyUSD,
			PaymentDetails: wallet.PaymentDetails,
		}, tx)
		if err != nil {
			return err
		}

		entry := &models.LedgerEntry{
			WalletID:  wallet.ID,
			Type:      models.EntryTypePayout,
			Currency:  models.CurrencyUSD,
			Amount:    amount,
			Direction: models.DirectionDebit,
			Status:    models.EntryStatusPending,
			PayoutID:  sql.NullString{String: payout.ID, Valid: true},
			Metadata:  models.EntryMetadata{Payout: &models.PayoutMetadata{Method: wallet.PaymentDetails.Method}},
		}
		_, err = s.db.Ledger().Insert(entry, tx)
		return err
	})

	if err != nil {
		return nil, err
	}

	s.helper.BackgroundTask(func() error {
		return s.notifier.Notify(notifier.Event{
			UserID: userID,
			Kind:   notifier.KindPayoutRequested,
			Title:  "Payout requested",
			Body:   "Your payout request is awaiting review.",
			Amount: amount.String(),
		})
	})

	return payout, nil
}

// ApprovePayout moves a pending payout to approved and completes the linked
// ledger entry. Funds were already reserved at request time, so no balance
// changes here.
func (s *PayoutService) ApprovePayout(ctx context.Context, payoutID, adminID string) (*models.Payout, error) {
	var payout *models.Payout

	err := s.db.InTx(ctx, func(tx *sqlx.Tx) error {
		var ok bool
		var err error

		payout, ok, err = s.db.Payout().Review(tx, payoutID, models.PayoutStatusApproved, adminID, "",
			models.PayoutStatusPending)
		if err != nil {
			return err
		}
		if !ok {
			return s.transitionFailure(payoutID, models.PayoutStatusPending)
		}

		return s.db.Ledger().UpdateStatusForPayout(tx, payoutID, models.EntryStatusCompleted)
	})

	if err != nil {
		return nil, err
	}

	s.helper.BackgroundTask(func() error {
		return s.notifier.Notify(notifier.Event{
			UserID: payout.UserID,
			Kind:   notifier.KindPayoutApproved,
			Title:  "Payout approved",
			Body:   "Your payout has been approved.",
			Amount: payout.Amount.String(),
		})
	})

	return payout, nil
}

// RejectPayout refunds the reserved amount and fails the linked ledger
// entry, recording the reversal as a REFUND entry. The guarded status
// transition makes the refund happen at most once: a second reject finds the
// payout already rejected and changes nothing.
func (s *PayoutService) RejectPayout(ctx context.Context, payoutID, adminID, reason string) (*models.Payout, error) {
	var payout *models.Payout

	err := s.db.InTx(ctx, func(tx *sqlx.Tx) error {
		var ok bool
		var err error

		payout, ok, err = s.db.Payout().Review(tx, payoutID, models.PayoutStatusRejected, adminID, reason,
			models.PayoutStatusPending, models.PayoutStatusProcessing)
		if err != nil {
			return err
		}
		if !ok {
			return s.transitionFailure(payoutID, models.PayoutStatusPending, models.PayoutStatusProcessing)
		}

		if err := s.db.Wallet().Adjust(tx, payout.WalletID, 0, payout.Amount); err != nil {
			return err
		}

		if err := s.db.Ledger().UpdateStatusForPayout(tx, payoutID, models.EntryStatusFailed); err != nil {
			return err
		}

		refund := &models.LedgerEntry{
			WalletID:  payout.WalletID,
			Type:      models.EntryTypeRefund,
			Currency:  models.CurrencyUSD,
			Amount:    payout.Amount,
			Direction: models.DirectionCredit,
			PayoutID:  sql.NullString{String: payout.ID, Valid: true},
			Metadata:  models.EntryMetadata{Refund: &models.RefundMetadata{PayoutID: payout.ID, Reason: reason}},
		}
		_, err = s.db.Ledger().Insert(refund, tx)
		return err
	})

	if err != nil {
		return nil, err
	}

	s.helper.BackgroundTask(func() error {
		return s.notifier.Notify(notifier.Event{
			UserID: payout.UserID,
			Kind:   notifier.KindPayoutRejected,
			Title:  "Payout rejected",
			Body:   "Your payout was rejected and the amount refunded to your wallet.",
			Amount: payout.Amount.String(),
		})
	})

	return payout, nil
}

// ProcessPayout marks an approved payout as being disbursed. Review stamp
// only; no balance effect.
func (s *PayoutService) ProcessPayout(payoutID, adminID string) (*models.Payout, error) {
	payout, ok, err := s.db.Payout().Review(nil, payoutID, models.PayoutStatusProcessing, adminID, "",
		models.PayoutStatusApproved)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.transitionFailure(payoutID, models.PayoutStatusApproved)
	}

	return payout, nil
}

// MarkPayoutAsPaid records the external disbursement reference and completes
// the payout. The user is notified off the request path.
func (s *PayoutService) MarkPayoutAsPaid(payoutID, adminID, provider, providerTransferID string) (*models.Payout, error) {
	if provider == "" || providerTransferID == "" {
		return nil, fmt.Errorf("provider and transfer reference are required: %w", apperrors.ErrInvalidOperation)
	}

	payout, ok, err := s.db.Payout().MarkPaid(nil, payoutID, adminID, provider, providerTransferID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.transitionFailure(payoutID, models.PayoutStatusApproved, models.PayoutStatusProcessing)
	}

	s.helper.BackgroundTask(func() error {
		return s.notifier.Notify(notifier.Event{
			UserID: payout.UserID,
			Kind:   notifier.KindPayoutPaid,
			Title:  "Payout sent",
			Body:   fmt.Sprintf("Your payout has been sent via %s.", provider),
			Amount: payout.Amount.String(),
		})
	})

	return payout, nil
}

func (s *PayoutService) GetUserPayouts(userID string) ([]models.Payout, error) {
	return s.db.Payout().ListByUser(userID)
}

func (s *PayoutService) GetPayoutDetails(payoutID string) (*models.Payout, error) {
	payout, found, err := s.db.Payout().GetOne(payoutID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("payout %s: %w", payoutID, apperrors.ErrNotFound)
	}

	return payout, nil
}

// transitionFailure explains why a guarded transition matched no row: the
// payout is missing, sits in an ineligible state, or a concurrent admin
// action won the race.
func (s *PayoutService) transitionFailure(payoutID string, eligible ...string) error {
	payout, found, err := s.db.Payout().GetOne(payoutID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("payout %s: %w", payoutID, apperrors.ErrNotFound)
	}

	for _, status := range eligible {
		if payout.Status == status {
			return fmt.Errorf("payout %s: %w", payoutID, apperrors.ErrConflict)
		}
	}

	return fmt.Errorf("payout %s is %s: %w", payoutID, payout.Status, apperrors.ErrInvalidOperation)
}
