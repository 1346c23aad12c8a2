package errHandler

import (
	"log/slog"
	"runtime/debug"

	"github.com/PaschalTrueFans/tf-backend-sub000/internal/smtp"
)

// ErrorHandler centralizes reporting of unexpected failures: structured log
// plus an optional email to the operations inbox. It deliberately has no
// opinion on the caller's control flow; recoverable conditions are plain
// error returns and never pass through here.
type ErrorHandler struct {
	notificationEmail string
	logger            *slog.Logger
	mailer            smtp.MailerInterface
}

func New(notificationEmail string, mailer smtp.MailerInterface, logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{
		notificationEmail: notificationEmail,
		logger:            logger,
		mailer:            mailer,
	}
}

func (e *ErrorHandler) ReportError(err error, attrs ...any) {
	var (
		message = err.Error()
		trace   = string(debug.Stack())
	)

	args := append([]any{"trace", trace}, attrs...)
	e.logger.Error(message, args...)

	if e.notificationEmail != "" && e.mailer != nil {
		data := map[string]any{
			"Message": message,
			"Trace":   trace,
		}

		err := e.mailer.Send(e.notificationEmail, data, "error-notification.tmpl")
		if err != nil {
			e.logger.Error(err.Error(), "trace", string(debug.Stack()))
		}
	}
}
