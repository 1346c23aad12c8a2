package service

import (
	"context"
	"database/sql"
	"errors"
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

// TransferService owns every balance movement between wallets: coin
// purchases confirmed by the payment provider, gifts, coin-to-USD
// conversion and creator crediting for sales and subscriptions.
type TransferService struct {
	db       repository.Database
	notifier Notifier
	helper   *helper.HelperRepository
	logger   *slog.Logger
}

func NewTransferService(db repository.Database, notifier Notifier, helper *helper.HelperRepository, logger *slog.Logger) *TransferService {
	return &TransferService{
		db:       db,
		notifier: notifier,
		helper:   helper,
		logger:   logger,
	}
}

// CreditAfterPurchase credits coins bought through the payment provider.
// The session id is the idempotency key: a redelivered webhook for the same
// session returns success without crediting again. The USD cost is mirrored
// into the platform revenue wallet for reporting.
func (s *TransferService) CreditAfterPurchase(ctx context.Context, userID string, coinAmount int64, usdCost decimal.Decimal, externalSessionID string) error {
	if coinAmount <= 0 {
		return fmt.Errorf("coin amount must be positive: %w", apperrors.ErrInvalidOperation)
	}
	if externalSessionID == "" {
		return fmt.Errorf("external session id is required: %w", apperrors.ErrInvalidOperation)
	}

	_, found, err := s.db.Ledger().FindByExternalKey(externalSessionID)
	if err != nil {
		return err
	}
	if found {
		s.logger.Info("duplicate purchase session skipped", "session_id", externalSessionID)
		return nil
	}

	wallet, err := s.db.Wallet().GetOrCreate(userID, nil)
	if err != nil {
		return err
	}

	platformWallet, err := s.db.Wallet().GetOrCreate(PlatformUserID, nil)
	if err != nil {
		return err
	}

	err = s.db.InTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.db.Wallet().Adjust(tx, wallet.ID, coinAmount, decimal.Zero); err != nil {
			return err
		}

		entry := &models.LedgerEntry{
			WalletID:    wallet.ID,
			Type:        models.EntryTypePurchaseCoins,
			Currency:    models.CurrencyCoin,
			Amount:      decimal.NewFromInt(coinAmount),
			Direction:   models.DirectionCredit,
			ExternalKey: sql.NullString{String: externalSessionID, Valid: true},
			Metadata: models.EntryMetadata{
				Purchase: &models.PurchaseMetadata{UsdCost: usdCost, SessionID: externalSessionID},
			},
		}
		if _, err := s.db.Ledger().Insert(entry, tx); err != nil {
			return err
		}

		// Revenue mirror: the platform wallet receives the USD cost with the
		// purchaser as counterparty.
		if err := s.db.Wallet().Adjust(tx, platformWallet.ID, 0, usdCost); err != nil {
			return err
		}

		mirror := &models.LedgerEntry{
			WalletID:      platformWallet.ID,
			Type:          models.EntryTypeDeposit,
			Currency:      models.CurrencyUSD,
			Amount:        usdCost,
			Direction:     models.DirectionCredit,
			RelatedUserID: sql.NullString{String: userID, Valid: true},
			Metadata: models.EntryMetadata{
				Purchase: &models.PurchaseMetadata{UsdCost: usdCost, SessionID: externalSessionID, Counterparty: PlatformUserID},
			},
		}
		if _, err := s.db.Ledger().Insert(mirror, tx); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		// A concurrent delivery of the same session beat us to the insert.
		if errors.Is(err, apperrors.ErrDuplicateKey) {
			s.logger.Info("duplicate purchase session skipped", "session_id", externalSessionID)
			return nil
		}
		return err
	}

	s.helper.BackgroundTask(func() error {
		return s.notifier.Notify(notifier.Event{
			UserID: userID,
			Kind:   notifier.KindPurchaseCredited,
			Title:  "Coins credited",
			Body:   "Your coin purchase was added to your wallet.",
			Coins:  coinAmount,
		})
	})

	return nil
}

// SendGift moves coins from sender to recipient as one transfer: both
// balance mutations and both ledger entries commit together or not at all.
func (s *TransferService) SendGift(ctx context.Context, senderID, recipientID string, coinAmount int64) error {
	if senderID == recipientID {
		return fmt.Errorf("cannot gift your own wallet: %w", apperrors.ErrInvalidOperation)
	}
	if coinAmount <= 0 {
		return fmt.Errorf("gift amount must be positive: %w", apperrors.ErrInvalidOperation)
	}

	sender, err := s.db.Wallet().GetOrCreate(senderID, nil)
	if err != nil {
		return err
	}

	recipient, err := s.db.Wallet().GetOrCreate(recipientID, nil)
	if err != nil {
		return err
	}

	err = s.db.InTx(ctx, func(tx *sqlx.Tx) error {
		// Lock wallets in a fixed order so two opposite gifts cannot
		// deadlock each other.
		first, firstDelta := sender, -coinAmount
		second, secondDelta := recipient, coinAmount
		if second.ID < first.ID {
			first, second = second, first
			firstDelta, secondDelta = secondDelta, firstDelta
		}

		if err := s.db.Wallet().Adjust(tx, first.ID, firstDelta, decimal.Zero); err != nil {
			return err
		}
		if err := s.db.Wallet().Adjust(tx, second.ID, secondDelta, decimal.Zero); err != nil {
			return err
		}

		send := &models.LedgerEntry{
			WalletID:      sender.ID,
			Type:          models.EntryTypeGiftSend,
			Currency:      models.CurrencyCoin,
			Amount:        decimal.NewFromInt(coinAmount),
			Direction:     models.DirectionDebit,
			RelatedUserID: sql.NullString{String: recipientID, Valid: true},
			Metadata:      models.EntryMetadata{Gift: &models.GiftMetadata{CounterpartyID: recipientID}},
		}
		if _, err := s.db.Ledger().Insert(send, tx); err != nil {
			return err
		}

		receive := &models.LedgerEntry{
			WalletID:      recipient.ID,
			Type:          models.EntryTypeGiftReceive,
			Currency:      models.CurrencyCoin,
			Amount:        decimal.NewFromInt(coinAmount),
			Direction:     models.DirectionCredit,
			RelatedUserID: sql.NullString{String: senderID, Valid: true},
			Metadata:      models.EntryMetadata{Gift: &models.GiftMetadata{CounterpartyID: senderID}},
		}
		if _, err := s.db.Ledger().Insert(receive, tx); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		return err
	}

	s.helper.BackgroundTask(func() error {
		return s.notifier.Notify(notifier.Event{
			UserID: recipientID,
			Kind:   notifier.KindGiftReceived,
			Title:  "Gift received",
			Body:   "Another user sent you a gift.",
			Coins:  coinAmount,
		})
	})

	return nil
}

// Withdraw converts coins to USD balance at the fixed rate. Both sides of
// the conversion land on the same wallet in one transaction; value is moved
// between currencies, never destroyed.
func (s *TransferService) Withdraw(ctx context.Context, userID string, coinAmount int64) (decimal.Decimal, error) {
	if coinAmount <= 0 {
		return decimal.Zero, fmt.Errorf("withdrawal amount must be positive: %w", apperrors.ErrInvalidOperation)
	}

	wallet, err := s.db.Wallet().GetOrCreate(userID, nil)
	if err != nil {
		return decimal.Zero, err
	}

	usdValue := models.CoinsToUSD(coinAmount)

	err = s.db.InTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.db.Wallet().Adjust(tx, wallet.ID, -coinAmount, usdValue); err != nil {
			return err
		}

		entry := &models.LedgerEntry{
			WalletID:  wallet.ID,
			Type:      models.EntryTypeWithdrawal,
			Currency:  models.CurrencyCoin,
			Amount:    decimal.NewFromInt(coinAmount),
			Direction: models.DirectionDebit,
			Metadata:  models.EntryMetadata{Withdrawal: &models.WithdrawalMetadata{UsdValue: usdValue}},
		}
		_, err := s.db.Ledger().Insert(entry, tx)
		return err
	})

	if err != nil {
		return decimal.Zero, err
	}

	return usdValue, nil
}

// CreditCreatorForSale credits a creator's USD balance for revenue from a
// digital sale, a subscription period or an escrow release. referenceID and
// kind form the idempotency key, so a redelivered event credits once.
func (s *TransferService) CreditCreatorForSale(ctx context.Context, creatorID string, amount decimal.Decimal, referenceID, kind string) error {
	key := saleExternalKey(kind, referenceID)

	_, found, err := s.db.Ledger().FindByExternalKey(key)
	if err != nil {
		return err
	}
	if found {
		s.logger.Info("duplicate sale credit skipped", "reference", key)
		return nil
	}

	err = s.db.InTx(ctx, func(tx *sqlx.Tx) error {
		return s.CreditCreatorForSaleTx(tx, creatorID, amount, referenceID, kind)
	})

	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicateKey) {
			s.logger.Info("duplicate sale credit skipped", "reference", key)
			return nil
		}
		return err
	}

	return nil
}

// CreditCreatorForSaleTx is the transactional body of CreditCreatorForSale,
// exposed so the escrow release can credit the creator inside the same
// transaction that claims the order.
func (s *TransferService) CreditCreatorForSaleTx(tx *sqlx.Tx, creatorID string, amount decimal.Decimal, referenceID, kind string) error {
	if amount.IsNegative() || amount.IsZero() {
		return fmt.Errorf("sale amount must be positive: %w", apperrors.ErrInvalidOperation)
	}

	switch kind {
	case models.SaleKindDigital, models.SaleKindSubscription, models.SaleKindEscrowRelease:
	default:
		return fmt.Errorf("unknown sale kind %q: %w", kind, apperrors.ErrInvalidOperation)
	}

	wallet, err := s.db.Wallet().GetOrCreate(creatorID, tx)
	if err != nil {
		return err
	}

	if err := s.db.Wallet().Adjust(tx, wallet.ID, 0, amount); err != nil {
		return err
	}

	entry := &models.LedgerEntry{
		WalletID:    wallet.ID,
		Type:        models.EntryTypeProductSale,
		Currency:    models.CurrencyUSD,
		Amount:      amount,
		Direction:   models.DirectionCredit,
		ExternalKey: sql.NullString{String: saleExternalKey(kind, referenceID), Valid: true},
		Metadata:    models.EntryMetadata{Sale: &models.SaleMetadata{ReferenceID: referenceID, Kind: kind}},
	}
	if kind != models.SaleKindSubscription {
		entry.OrderID = sql.NullString{String: referenceID, Valid: true}
	}

	_, err = s.db.Ledger().Insert(entry, tx)
	return err
}

// CreditCreatorForDigitalSale credits the creator immediately; digital goods
// never enter escrow.
func (s *TransferService) CreditCreatorForDigitalSale(ctx context.Context, creatorID string, amount decimal.Decimal, orderID string) error {
	return s.CreditCreatorForSale(ctx, creatorID, amount, orderID, models.SaleKindDigital)
}

func (s *TransferService) CreditCreatorForSubscription(ctx context.Context, creatorID string, amount decimal.Decimal, subscriptionRef string) error {
	return s.CreditCreatorForSale(ctx, creatorID, amount, subscriptionRef, models.SaleKindSubscription)
}

func saleExternalKey(kind, referenceID string) string {
	return kind + ":" + referenceID
}
