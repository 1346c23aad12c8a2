package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/PaschalTrueFans/tf-backend-sub000/internal/apperrors"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/models"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/notifier"
)

func TestCreditAfterPurchase_CreditsCoinsAndMirrorsRevenue(t *testing.T) {
	env := newTestEnv(t)
	transfers := NewTransferService(env.db, env.notifier, env.helper, env.logger)

	err := transfers.CreditAfterPurchase(context.Background(), "user-1", 1000, decimal.NewFromInt(10), "cs_001")
	require.NoError(t, err)
	env.wait()

	wallet, found, err := env.db.WalletRepo.GetByUserID("user-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(1000), wallet.CoinBalance)
	require.True(t, wallet.UsdBalance.IsZero())

	// the platform revenue wallet received the USD cost
	platform, found, err := env.db.WalletRepo.GetByUserID(PlatformUserID)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, platform.UsdBalance.Equal(decimal.NewFromInt(10)))

	entries, err := env.db.LedgerRepo.ListByWallet(wallet.ID, 1, 20)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, models.EntryTypePurchaseCoins, entries[0].Type)
	require.Equal(t, models.DirectionCredit, entries[0].Direction)
	require.Equal(t, models.EntryStatusCompleted, entries[0].Status)
	require.Equal(t, "cs_001", entries[0].ExternalKey.String)

	events := env.notifier.ByKind(notifier.KindPurchaseCredited)
	require.Len(t, events, 1)
	require.Equal(t, "user-1", events[0].UserID)
}

func TestCreditAfterPurchase_DuplicateSessionIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	transfers := NewTransferService(env.db, env.notifier, env.helper, env.logger)

	require.NoError(t, transfers.CreditAfterPurchase(context.Background(), "user-1", 1000, decimal.NewFromInt(10), "cs_001"))

	// redelivered webhook for the same session
	require.NoError(t, transfers.CreditAfterPurchase(context.Background(), "user-1", 1000, decimal.NewFromInt(10), "cs_001"))
	env.wait()

	wallet, _, err := env.db.WalletRepo.GetByUserID("user-1")
	require.NoError(t, err)
	require.Equal(t, int64(1000), wallet.CoinBalance)

	entries, err := env.db.LedgerRepo.ListByWallet(wallet.ID, 1, 20)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestCreditAfterPurchase_RejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t)
	transfers := NewTransferService(env.db, env.notifier, env.helper, env.logger)

	err := transfers.CreditAfterPurchase(context.Background(), "user-1", 0, decimal.NewFromInt(10), "cs_001")
	require.ErrorIs(t, err, apperrors.ErrInvalidOperation)

	err = transfers.CreditAfterPurchase(context.Background(), "user-1", 100, decimal.NewFromInt(1), "")
	require.ErrorIs(t, err, apperrors.ErrInvalidOperation)
}

func TestSendGift_MovesCoinsAtomically(t *testing.T) {
	env := newTestEnv(t)
	transfers := NewTransferService(env.db, env.notifier, env.helper, env.logger)

	require.NoError(t, transfers.CreditAfterPurchase(context.Background(), "sender", 1000, decimal.NewFromInt(10), "cs_fund"))

	err := transfers.SendGift(context.Background(), "sender", "recipient", 500)
	require.NoError(t, err)
	env.wait()

	sender, _, err := env.db.WalletRepo.GetByUserID("sender")
	require.NoError(t, err)
	require.Equal(t, int64(500), sender.CoinBalance)

	recipient, _, err := env.db.WalletRepo.GetByUserID("recipient")
	require.NoError(t, err)
	require.Equal(t, int64(500), recipient.CoinBalance)

	sent, err := env.db.LedgerRepo.ListByWallet(sender.ID, 1, 20)
	require.NoError(t, err)
	require.Equal(t, models.EntryTypeGiftSend, sent[0].Type)
	require.Equal(t, models.DirectionDebit, sent[0].Direction)
	require.Equal(t, "recipient", sent[0].RelatedUserID.String)

	received, err := env.db.LedgerRepo.ListByWallet(recipient.ID, 1, 20)
	require.NoError(t, err)
	require.Len(t, received, 1)
	require.Equal(t, models.EntryTypeGiftReceive, received[0].Type)
	require.Equal(t, models.DirectionCredit, received[0].Direction)
	require.Equal(t, "sender", received[0].RelatedUserID.String)

	events := env.notifier.ByKind(notifier.KindGiftReceived)
	require.Len(t, events, 1)
	require.Equal(t, "recipient", events[0].UserID)
}

func TestSendGift_InsufficientFundsLeavesNoTrace(t *testing.T) {
	env := newTestEnv(t)
	transfers := NewTransferService(env.db, env.notifier, env.helper, env.logger)

	require.NoError(t, transfers.CreditAfterPurchase(context.Background(), "sender", 100, decimal.NewFromInt(1), "cs_fund"))

	err := transfers.SendGift(context.Background(), "sender", "recipient", 500)
	require.ErrorIs(t, err, apperrors.ErrInsufficientFunds)

	sender, _, err := env.db.WalletRepo.GetByUserID("sender")
	require.NoError(t, err)
	require.Equal(t, int64(100), sender.CoinBalance)

	recipient, _, err := env.db.WalletRepo.GetByUserID("recipient")
	require.NoError(t, err)
	require.Equal(t, int64(0), recipient.CoinBalance)

	// no gift entries were written
	entries, err := env.db.LedgerRepo.ListByWallet(recipient.ID, 1, 20)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestSendGift_RejectsSelfGift(t *testing.T) {
	env := newTestEnv(t)
	transfers := NewTransferService(env.db, env.notifier, env.helper, env.logger)

	err := transfers.SendGift(context.Background(), "user-1", "user-1", 100)
	require.ErrorIs(t, err, apperrors.ErrInvalidOperation)
}

func TestWithdraw_ConvertsCoinsAtFixedRate(t *testing.T) {
	env := newTestEnv(t)
	transfers := NewTransferService(env.db, env.notifier, env.helper, env.logger)

	require.NoError(t, transfers.CreditAfterPurchase(context.Background(), "user-1", 1000, decimal.NewFromInt(10), "cs_fund"))

	usd, err := transfers.Withdraw(context.Background(), "user-1", 200)
	require.NoError(t, err)
	require.True(t, usd.Equal(decimal.NewFromInt(2)), "200 coins should convert to $2, got %s", usd)

	wallet, _, err := env.db.WalletRepo.GetByUserID("user-1")
	require.NoError(t, err)
	require.Equal(t, int64(800), wallet.CoinBalance)
	require.True(t, wallet.UsdBalance.Equal(decimal.NewFromInt(2)))

	entries, err := env.db.LedgerRepo.ListByWallet(wallet.ID, 1, 20)
	require.NoError(t, err)
	require.Equal(t, models.EntryTypeWithdrawal, entries[0].Type)
	require.Equal(t, models.CurrencyCoin, entries[0].Currency)
	require.Equal(t, models.DirectionDebit, entries[0].Direction)
	require.NotNil(t, entries[0].Metadata.Withdrawal)
	require.True(t, entries[0].Metadata.Withdrawal.UsdValue.Equal(decimal.NewFromInt(2)))
}

func TestWithdraw_InsufficientCoins(t *testing.T) {
	env := newTestEnv(t)
	transfers := NewTransferService(env.db, env.notifier, env.helper, env.logger)

	_, err := transfers.Withdraw(context.Background(), "user-1", 200)
	require.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
}

func TestCreditCreatorForSale_IdempotentPerReference(t *testing.T) {
	env := newTestEnv(t)
	transfers := NewTransferService(env.db, env.notifier, env.helper, env.logger)

	amount := decimal.RequireFromString("19.99")

	require.NoError(t, transfers.CreditCreatorForDigitalSale(context.Background(), "creator-1", amount, "order-1"))
	require.NoError(t, transfers.CreditCreatorForDigitalSale(context.Background(), "creator-1", amount, "order-1"))

	wallet, _, err := env.db.WalletRepo.GetByUserID("creator-1")
	require.NoError(t, err)
	require.True(t, wallet.UsdBalance.Equal(amount))

	entries, err := env.db.LedgerRepo.ListByWallet(wallet.ID, 1, 20)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, models.EntryTypeProductSale, entries[0].Type)
	require.Equal(t, "order-1", entries[0].OrderID.String)
}

func TestCreditCreatorForSale_RejectsUnknownKind(t *testing.T) {
	env := newTestEnv(t)
	transfers := NewTransferService(env.db, env.notifier, env.helper, env.logger)

	err := transfers.CreditCreatorForSale(context.Background(), "creator-1", decimal.NewFromInt(5), "ref-1", "tip")
	require.ErrorIs(t, err, apperrors.ErrInvalidOperation)
}

func TestCreditCreatorForSubscription_NoOrderReference(t *testing.T) {
	env := newTestEnv(t)
	transfers := NewTransferService(env.db, env.notifier, env.helper, env.logger)

	amount := decimal.RequireFromString("4.99")
	require.NoError(t, transfers.CreditCreatorForSubscription(context.Background(), "creator-1", amount, "inv_001"))

	wallet, _, err := env.db.WalletRepo.GetByUserID("creator-1")
	require.NoError(t, err)

	entries, err := env.db.LedgerRepo.ListByWallet(wallet.ID, 1, 20)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.False(t, entries[0].OrderID.Valid)
	require.Equal(t, models.SaleKindSubscription, entries[0].Metadata.Sale.Kind)
}
