package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/PaschalTrueFans/tf-backend-sub000/internal/apperrors"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/models"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/notifier"
)

func newEscrowEnv(t *testing.T, holdPeriod time.Duration) (*testEnv, *EscrowService) {
	t.Helper()

	env := newTestEnv(t)
	transfers := NewTransferService(env.db, env.notifier, env.helper, env.logger)
	escrow := NewEscrowService(env.db, transfers, env.notifier, env.helper, env.logger, holdPeriod)

	return env, escrow
}

func TestHoldEscrow_RecordsHeldOrder(t *testing.T) {
	env, escrow := newEscrowEnv(t, 48*time.Hour)

	amount := decimal.RequireFromString("35.00")
	require.NoError(t, escrow.HoldEscrow("order-1", "creator-1", amount))

	order, found, err := env.db.OrderRepo.GetOne("order-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, models.EscrowStatusHeld, order.EscrowStatus)
	require.True(t, order.EscrowAmount.Equal(amount))
	require.True(t, order.EscrowReleaseAt.After(time.Now().Add(47*time.Hour)))

	// redelivery of the order event is absorbed
	require.NoError(t, escrow.HoldEscrow("order-1", "creator-1", amount))

	// held funds are not in the creator's wallet yet
	_, found, err = env.db.WalletRepo.GetByUserID("creator-1")
	require.NoError(t, err)
	require.False(t, found)
}

func TestHoldEscrow_RejectsNonPositiveAmount(t *testing.T) {
	_, escrow := newEscrowEnv(t, 48*time.Hour)

	err := escrow.HoldEscrow("order-1", "creator-1", decimal.Zero)
	require.ErrorIs(t, err, apperrors.ErrInvalidOperation)
}

func TestReleaseOrderEscrow_CreditsCreatorExactlyOnce(t *testing.T) {
	env, escrow := newEscrowEnv(t, 48*time.Hour)

	amount := decimal.RequireFromString("35.00")
	require.NoError(t, escrow.HoldEscrow("order-1", "creator-1", amount))

	require.NoError(t, escrow.ReleaseOrderEscrow(context.Background(), "order-1"))
	env.wait()

	wallet, _, err := env.db.WalletRepo.GetByUserID("creator-1")
	require.NoError(t, err)
	require.True(t, wallet.UsdBalance.Equal(amount))

	entries, err := env.db.LedgerRepo.ListByWallet(wallet.ID, 1, 20)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, models.EntryTypeProductSale, entries[0].Type)
	require.Equal(t, models.SaleKindEscrowRelease, entries[0].Metadata.Sale.Kind)

	events := env.notifier.ByKind(notifier.KindEscrowReleased)
	require.Len(t, events, 1)

	// second trigger observes released and succeeds without a second credit
	require.NoError(t, escrow.ReleaseOrderEscrow(context.Background(), "order-1"))
	env.wait()

	wallet, _, err = env.db.WalletRepo.GetByUserID("creator-1")
	require.NoError(t, err)
	require.True(t, wallet.UsdBalance.Equal(amount))

	entries, err = env.db.LedgerRepo.ListByWallet(wallet.ID, 1, 20)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestReleaseOrderEscrow_UnknownOrder(t *testing.T) {
	_, escrow := newEscrowEnv(t, 48*time.Hour)

	err := escrow.ReleaseOrderEscrow(context.Background(), "missing")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReleaseDue_ReleasesOnlyElapsedHolds(t *testing.T) {
	env, escrow := newEscrowEnv(t, time.Millisecond)

	require.NoError(t, escrow.HoldEscrow("order-due", "creator-1", decimal.NewFromInt(10)))

	// second order held with a long period stays put
	longEscrow := NewEscrowService(env.db, NewTransferService(env.db, env.notifier, env.helper, env.logger),
		env.notifier, env.helper, env.logger, 48*time.Hour)
	require.NoError(t, longEscrow.HoldEscrow("order-later", "creator-1", decimal.NewFromInt(20)))

	time.Sleep(5 * time.Millisecond)

	released, err := escrow.ReleaseDue(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, 1, released)
	env.wait()

	due, found, err := env.db.OrderRepo.GetOne("order-due")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, models.EscrowStatusReleased, due.EscrowStatus)

	later, _, err := env.db.OrderRepo.GetOne("order-later")
	require.NoError(t, err)
	require.Equal(t, models.EscrowStatusHeld, later.EscrowStatus)

	wallet, _, err := env.db.WalletRepo.GetByUserID("creator-1")
	require.NoError(t, err)
	require.True(t, wallet.UsdBalance.Equal(decimal.NewFromInt(10)))
}
