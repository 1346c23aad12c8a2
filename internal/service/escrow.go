package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/PaschalTrueFans/tf-backend-sub000/internal/apperrors"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/helper"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/models"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/notifier"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/repository"
)

// DefaultEscrowHoldPeriod is how long physical-goods proceeds stay held
// before the sweep releases them, covering the dispute/return window.
const DefaultEscrowHoldPeriod = 48 * time.Hour

// EscrowService holds creator proceeds for physical-goods orders and
// releases them exactly once, on timer or admin action.
type EscrowService struct {
	db         repository.Database
	transfer   *TransferService
	notifier   Notifier
	helper     *helper.HelperRepository
	logger     *slog.Logger
	holdPeriod time.Duration
}

func NewEscrowService(db repository.Database, transfer *TransferService, notifier Notifier, helper *helper.HelperRepository, logger *slog.Logger, holdPeriod time.Duration) *EscrowService {
	if holdPeriod <= 0 {
		holdPeriod = DefaultEscrowHoldPeriod
	}

	return &EscrowService{
		db:         db,
		transfer:   transfer,
		notifier:   notifier,
		helper:     helper,
		logger:     logger,
		holdPeriod: holdPeriod,
	}
}

// HoldEscrow records the creator's net proceeds for a paid physical-goods
// order as held, releasable after the hold period. Safe to call again for
// the same order (webhook redelivery).
func (s *EscrowService) HoldEscrow(orderID, creatorID string, amount decimal.Decimal) error {
	if amount.IsNegative() || amount.IsZero() {
		return fmt.Errorf("escrow amount must be positive: %w", apperrors.ErrInvalidOperation)
	}

	releaseAt := time.Now().Add(s.holdPeriod)
	return s.db.Order().HoldEscrow(orderID, creatorID, amount, releaseAt)
}

// ReleaseOrderEscrow transitions the order held->released and credits the
// creator's wallet in the same transaction. Whichever of the timed sweep and
// an admin trigger claims the order first wins; the loser observes released
// and returns success without a second credit.
func (s *EscrowService) ReleaseOrderEscrow(ctx context.Context, orderID string) error {
	var creatorID string
	var amount decimal.Decimal

	err := s.db.InTx(ctx, func(tx *sqlx.Tx) error {
		order, claimed, err := s.db.Order().ClaimRelease(tx, orderID)
		if err != nil {
			return err
		}

		if !claimed {
			existing, found, err := s.db.Order().GetOne(orderID)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("order %s: %w", orderID, apperrors.ErrNotFound)
			}
			if existing.EscrowStatus == models.EscrowStatusReleased {
				// Already released by the other trigger; nothing to repeat.
				return nil
			}
			return fmt.Errorf("order %s is %s: %w", orderID, existing.EscrowStatus, apperrors.ErrConflict)
		}

		creatorID = order.CreatorID
		amount = order.EscrowAmount

		return s.transfer.CreditCreatorForSaleTx(tx, creatorID, amount, orderID, models.SaleKindEscrowRelease)
	})

	if err != nil {
		return err
	}

	if creatorID != "" {
		s.helper.BackgroundTask(func() error {
			return s.notifier.Notify(notifier.Event{
				UserID: creatorID,
				Kind:   notifier.KindEscrowReleased,
				Title:  "Escrow released",
				Body:   fmt.Sprintf("Proceeds for order %s are now in your wallet.", orderID),
				Amount: amount.String(),
			})
		})
	}

	return nil
}

// ReleaseDue releases every held order whose hold period has elapsed. Run by
// the sweep worker; a failure on one order is logged and does not block the
// rest of the batch.
func (s *EscrowService) ReleaseDue(ctx context.Context, limit int) (int, error) {
	due, err := s.db.Order().ListDueForRelease(time.Now(), limit)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, order := range due {
		if err := s.ReleaseOrderEscrow(ctx, order.ID); err != nil {
			s.logger.Error("escrow release failed", "order_id", order.ID, "error", err)
			continue
		}
		released++
	}

	return released, nil
}
