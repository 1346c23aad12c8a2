// Package service implements the wallet ledger core: balance state, the
// immutable transaction ledger, transfers between users, marketplace escrow,
// the payout approval workflow, payment-provider webhook ingestion and the
// payout-destination security gate. API controllers and the webhook entry
// point both call into this package, so one code path enforces the money
// invariants.
package service

import (
	"time"

	"github.com/PaschalTrueFans/tf-backend-sub000/internal/notifier"
)

// PlatformUserID owns the platform revenue wallet. Coin purchases mirror
// their USD cost into this wallet for financial reporting.
const PlatformUserID = "platform"

// UserDirectory is the contract to the user collaborator. Only the email
// lookup is needed here, for OTP delivery and notification fan-out.
type UserDirectory interface {
	Email(userID string) (string, error)
}

// Notifier publishes a user-facing notification. Implementations must treat
// delivery as best-effort; callers run it off the request path and report
// failures without propagating them.
type Notifier interface {
	Notify(event notifier.Event) error
}

// CodeStore holds short-lived one-time codes. Implemented by the redis
// cache; keys expire server-side.
type CodeStore interface {
	Set(key, value string, expiration time.Duration) error
	Get(key string) (string, bool, error)
	Delete(key string) error
}
