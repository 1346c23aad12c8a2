package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/PaschalTrueFans/tf-backend-sub000/internal/apperrors"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/models"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/repository"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/smtp"
)

const DefaultCodeTTL = 10 * time.Minute

// SecurityService gates changes to the payout destination. With the security
// toggle on and details already present, an update is parked behind a
// one-time emailed code; the pending details only commit on confirmation.
type SecurityService struct {
	db      repository.Database
	codes   CodeStore
	mailer  smtp.MailerInterface
	users   UserDirectory
	logger  *slog.Logger
	codeTTL time.Duration
}

func NewSecurityService(db repository.Database, codes CodeStore, mailer smtp.MailerInterface, users UserDirectory, logger *slog.Logger, codeTTL time.Duration) *SecurityService {
	if codeTTL <= 0 {
		codeTTL = DefaultCodeTTL
	}

	return &SecurityService{
		db:      db,
		codes:   codes,
		mailer:  mailer,
		users:   users,
		logger:  logger,
		codeTTL: codeTTL,
	}
}

type pendingDetailsUpdate struct {
	Code    string                `json:"code"`
	Details models.PaymentDetails `json:"details"`
}

// UpdatePaymentDetails applies the new destination directly when none is set
// yet or the security toggle is off. Otherwise it stores the pending details
// with a short-lived code and emails the code to the user; the returned bool
// reports whether confirmation is still required.
func (s *SecurityService) UpdatePaymentDetails(userID string, details models.PaymentDetails) (bool, error) {
	if v := details.Validate(); v.HasErrors() {
		return false, fmt.Errorf("%s: %w", v.String(), apperrors.ErrInvalidOperation)
	}

	wallet, err := s.db.Wallet().GetOrCreate(userID, nil)
	if err != nil {
		return false, err
	}

	if !wallet.PaymentDetails.IsSet() || !wallet.PayoutSecurityEnabled {
		return false, s.db.Wallet().SetPaymentDetails(userID, details)
	}

	code, err := generateCode()
	if err != nil {
		return false, err
	}

	payload, err := json.Marshal(pendingDetailsUpdate{Code: code, Details: details})
	if err != nil {
		return false, err
	}

	if err := s.codes.Set(pendingDetailsKey(userID), string(payload), s.codeTTL); err != nil {
		return false, err
	}

	email, err := s.users.Email(userID)
	if err != nil {
		return false, err
	}

	data := map[string]any{
		"Code":      code,
		"ExpiresIn": int(s.codeTTL.Minutes()),
	}

	if err := s.mailer.Send(email, data, "payment-details-otp.tmpl"); err != nil {
		return false, err
	}

	s.logger.Info("payment details update pending confirmation", "user_id", userID)
	return true, nil
}

// ConfirmPaymentDetailsUpdate commits the pending details when the code
// matches. A confirmed code is single-use; wrong codes leave the pending
// update in place until it expires.
func (s *SecurityService) ConfirmPaymentDetailsUpdate(userID, code string) error {
	raw, found, err := s.codes.Get(pendingDetailsKey(userID))
	if err != nil {
		return err
	}
	if !found {
		return apperrors.ErrCodeExpired
	}

	var pending pendingDetailsUpdate
	if err := json.Unmarshal([]byte(raw), &pending); err != nil {
		return err
	}

	if subtle.ConstantTimeCompare([]byte(pending.Code), []byte(code)) != 1 {
		return apperrors.ErrInvalidCode
	}

	if err := s.db.Wallet().SetPaymentDetails(userID, pending.Details); err != nil {
		return err
	}

	if err := s.codes.Delete(pendingDetailsKey(userID)); err != nil {
		s.logger.Error("failed to delete used confirmation code", "user_id", userID, "error", err)
	}

	return nil
}

func pendingDetailsKey(userID string) string {
	return "payment-details-update:" + userID
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%06d", n.Int64()), nil
}
