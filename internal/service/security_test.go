package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PaschalTrueFans/tf-backend-sub000/internal/apperrors"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/mocks"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/models"
)

func newSecurityEnv(t *testing.T) (*testEnv, *SecurityService, *mocks.FakeCodeStore, *mocks.FakeMailer) {
	t.Helper()

	env := newTestEnv(t)
	codes := mocks.NewFakeCodeStore()
	mailer := &mocks.FakeMailer{}
	users := &mocks.FakeUserDirectory{Emails: map[string]string{"user-1": "user1@example.org"}}

	security := NewSecurityService(env.db, codes, mailer, users, env.logger, 10*time.Minute)

	return env, security, codes, mailer
}

// sentCode digs the one-time code out of the stored pending update so tests
// can confirm with the right value.
func sentCode(t *testing.T, codes *mocks.FakeCodeStore, userID string) string {
	t.Helper()

	raw, found, err := codes.Get("payment-details-update:" + userID)
	require.NoError(t, err)
	require.True(t, found)

	var pending struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &pending))

	return pending.Code
}

func TestUpdatePaymentDetails_FirstTimeAppliesDirectly(t *testing.T) {
	env, security, _, mailer := newSecurityEnv(t)

	pending, err := security.UpdatePaymentDetails("user-1", testPaymentDetails())
	require.NoError(t, err)
	require.False(t, pending)

	wallet, _, err := env.db.WalletRepo.GetByUserID("user-1")
	require.NoError(t, err)
	require.Equal(t, models.PaymentMethodBankUS, wallet.PaymentDetails.Method)
	require.Empty(t, mailer.Sent)
}

func TestUpdatePaymentDetails_SecurityOffAppliesDirectly(t *testing.T) {
	env, security, _, mailer := newSecurityEnv(t)

	_, err := security.UpdatePaymentDetails("user-1", testPaymentDetails())
	require.NoError(t, err)

	newDetails := models.PaymentDetails{
		Method: models.PaymentMethodPayPal,
		PayPal: &models.PayPalDetails{Email: "pay@example.org"},
	}

	pending, err := security.UpdatePaymentDetails("user-1", newDetails)
	require.NoError(t, err)
	require.False(t, pending)

	wallet, _, err := env.db.WalletRepo.GetByUserID("user-1")
	require.NoError(t, err)
	require.Equal(t, models.PaymentMethodPayPal, wallet.PaymentDetails.Method)
	require.Empty(t, mailer.Sent)
}

func TestUpdatePaymentDetails_SecurityOnRequiresConfirmation(t *testing.T) {
	env, security, codes, mailer := newSecurityEnv(t)

	_, err := security.UpdatePaymentDetails("user-1", testPaymentDetails())
	require.NoError(t, err)
	require.NoError(t, env.db.WalletRepo.SetPayoutSecurity("user-1", true))

	newDetails := models.PaymentDetails{
		Method: models.PaymentMethodPayPal,
		PayPal: &models.PayPalDetails{Email: "pay@example.org"},
	}

	pending, err := security.UpdatePaymentDetails("user-1", newDetails)
	require.NoError(t, err)
	require.True(t, pending)

	// the code went to the user's email, details are unchanged
	require.Len(t, mailer.Sent, 1)
	require.Equal(t, "user1@example.org", mailer.Sent[0].Recipient)

	wallet, _, err := env.db.WalletRepo.GetByUserID("user-1")
	require.NoError(t, err)
	require.Equal(t, models.PaymentMethodBankUS, wallet.PaymentDetails.Method)

	// confirmation with the emailed code commits the pending details
	code := sentCode(t, codes, "user-1")
	require.NoError(t, security.ConfirmPaymentDetailsUpdate("user-1", code))

	wallet, _, err = env.db.WalletRepo.GetByUserID("user-1")
	require.NoError(t, err)
	require.Equal(t, models.PaymentMethodPayPal, wallet.PaymentDetails.Method)

	// the code is single-use
	err = security.ConfirmPaymentDetailsUpdate("user-1", code)
	require.ErrorIs(t, err, apperrors.ErrCodeExpired)
}

func TestConfirmPaymentDetailsUpdate_WrongCode(t *testing.T) {
	env, security, codes, _ := newSecurityEnv(t)

	_, err := security.UpdatePaymentDetails("user-1", testPaymentDetails())
	require.NoError(t, err)
	require.NoError(t, env.db.WalletRepo.SetPayoutSecurity("user-1", true))

	newDetails := models.PaymentDetails{
		Method: models.PaymentMethodPayPal,
		PayPal: &models.PayPalDetails{Email: "pay@example.org"},
	}
	_, err = security.UpdatePaymentDetails("user-1", newDetails)
	require.NoError(t, err)

	err = security.ConfirmPaymentDetailsUpdate("user-1", "000000x")
	require.ErrorIs(t, err, apperrors.ErrInvalidCode)

	// a wrong code leaves the pending update in place
	code := sentCode(t, codes, "user-1")
	require.NoError(t, security.ConfirmPaymentDetailsUpdate("user-1", code))
}

func TestConfirmPaymentDetailsUpdate_ExpiredCode(t *testing.T) {
	env, security, codes, _ := newSecurityEnv(t)

	_, err := security.UpdatePaymentDetails("user-1", testPaymentDetails())
	require.NoError(t, err)
	require.NoError(t, env.db.WalletRepo.SetPayoutSecurity("user-1", true))

	newDetails := models.PaymentDetails{
		Method: models.PaymentMethodPayPal,
		PayPal: &models.PayPalDetails{Email: "pay@example.org"},
	}
	_, err = security.UpdatePaymentDetails("user-1", newDetails)
	require.NoError(t, err)

	code := sentCode(t, codes, "user-1")
	codes.Expire("payment-details-update:user-1")

	err = security.ConfirmPaymentDetailsUpdate("user-1", code)
	require.ErrorIs(t, err, apperrors.ErrCodeExpired)

	wallet, _, err := env.db.WalletRepo.GetByUserID("user-1")
	require.NoError(t, err)
	require.Equal(t, models.PaymentMethodBankUS, wallet.PaymentDetails.Method)
}

func TestUpdatePaymentDetails_RejectsInvalidDetails(t *testing.T) {
	_, security, _, _ := newSecurityEnv(t)

	_, err := security.UpdatePaymentDetails("user-1", models.PaymentDetails{Method: "bitcoin"})
	require.ErrorIs(t, err, apperrors.ErrInvalidOperation)

	_, err = security.UpdatePaymentDetails("user-1", models.PaymentDetails{
		Method: models.PaymentMethodPayPal,
		PayPal: &models.PayPalDetails{},
	})
	require.ErrorIs(t, err, apperrors.ErrInvalidOperation)
}
