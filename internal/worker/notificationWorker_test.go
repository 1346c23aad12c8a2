package worker

import (
	"bytes"
	"io"
	"log/slog"
	"sync"
	"testing"
	textTemplate "text/template"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PaschalTrueFans/tf-backend-sub000/assets"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/errHandler"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/funcs"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/helper"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/mocks"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/notifier"
)

func newTestWorker(t *testing.T) (*Worker, *mocks.FakeMailer, *mocks.FakeCodeStore) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	wg := &sync.WaitGroup{}
	baseURL := "http://localhost:4444"

	mailer := &mocks.FakeMailer{}
	cache := mocks.NewFakeCodeStore()

	wk := New(&Worker{
		Users:      &mocks.FakeUserDirectory{Emails: map[string]string{"user-1": "user1@example.org"}},
		Mailer:     mailer,
		Helper:     helper.New(&baseURL, wg, errHandler.New("", nil, logger)),
		Cache:      cache,
		ErrHandler: errHandler.New("", nil, logger),
		Logger:     logger,
	})

	return wk, mailer, cache
}

func TestDeliver_SendsEmailWithRawAmounts(t *testing.T) {
	wk, mailer, _ := newTestWorker(t)

	event := &notifier.Event{
		ID:        "n-1",
		UserID:    "user-1",
		Kind:      notifier.KindPayoutPaid,
		Title:     "Payout sent",
		Body:      "Your payout has been sent via stripe.",
		Amount:    "1234.5",
		CreatedAt: time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC),
	}

	require.NoError(t, wk.deliver(event))
	require.Len(t, mailer.Sent, 1)
	require.Equal(t, "user1@example.org", mailer.Sent[0].Recipient)

	// amounts travel raw; the template owns the formatting
	data, ok := mailer.Sent[0].Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "1234.5", data["Amount"])
	require.Equal(t, event.CreatedAt, data["SentAt"])
}

func TestDeliver_SkipsRedeliveredNotification(t *testing.T) {
	wk, mailer, cache := newTestWorker(t)

	event := &notifier.Event{
		ID:     "n-1",
		UserID: "user-1",
		Kind:   notifier.KindGiftReceived,
		Title:  "Gift received",
		Body:   "Another user sent you a gift.",
		Coins:  500,
	}

	require.NoError(t, wk.deliver(event))

	seen, err := cache.Exists("notification-delivered:n-1")
	require.NoError(t, err)
	require.True(t, seen)

	require.NoError(t, wk.deliver(event))

	require.Len(t, mailer.Sent, 1)
}

func TestDeliver_UnknownUserSkipped(t *testing.T) {
	wk, mailer, _ := newTestWorker(t)

	event := &notifier.Event{ID: "n-1", UserID: "ghost", Title: "Hello", Body: "Hi"}

	require.NoError(t, wk.deliver(event))
	require.Empty(t, mailer.Sent)
}

// TestNotificationTemplate_FormatsAmounts renders the real email template and
// checks the amounts come out localized: currency symbol and grouping for
// USD, grouped coin counts, formatted timestamp.
func TestNotificationTemplate_FormatsAmounts(t *testing.T) {
	ts, err := textTemplate.New("").Funcs(funcs.TemplateFuncs).ParseFS(assets.EmbeddedFiles, "emails/notification.tmpl")
	require.NoError(t, err)

	baseURL := "http://localhost:4444"
	sentAt := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)

	usd := map[string]any{
		"BaseURL": &baseURL,
		"Title":   "Payout sent",
		"Body":    "Your payout has been sent via stripe.",
		"Amount":  "1234.5",
		"Coins":   int64(0),
		"SentAt":  sentAt,
	}

	var buf bytes.Buffer
	require.NoError(t, ts.ExecuteTemplate(&buf, "plainBody", usd))
	require.Contains(t, buf.String(), "$1,234.50")
	require.Contains(t, buf.String(), "14 Mar 2026 09:30 UTC")
	require.Contains(t, buf.String(), "http://localhost:4444/wallet")
	require.NotContains(t, buf.String(), "coins")

	coins := map[string]any{
		"BaseURL": &baseURL,
		"Title":   "Gift received",
		"Body":    "Another user sent you a gift.",
		"Amount":  "",
		"Coins":   int64(1500),
		"SentAt":  sentAt,
	}

	buf.Reset()
	require.NoError(t, ts.ExecuteTemplate(&buf, "plainBody", coins))
	require.Contains(t, buf.String(), "1,500 coins")
	require.NotContains(t, buf.String(), "$")
}
