package helper

import (
	"fmt"
	"sync"

	"github.com/PaschalTrueFans/tf-backend-sub000/internal/errHandler"
)

type HelperRepository struct {
	baseUrl    *string
	WG         *sync.WaitGroup
	errHandler *errHandler.ErrorHandler
}

func New(baseUrl *string, wg *sync.WaitGroup, errHandler *errHandler.ErrorHandler) *HelperRepository {
	return &HelperRepository{
		baseUrl:    baseUrl,
		WG:         wg,
		errHandler: errHandler,
	}
}

func (h *HelperRepository) NewEmailData() map[string]any {
	data := map[string]any{
		"BaseURL": h.baseUrl,
	}

	return data
}

// BackgroundTask runs fn in a goroutine. Panics and errors are reported, not
// propagated; financial operations use this for side effects that must never
// fail the parent call (notifications, emails).
func (h *HelperRepository) BackgroundTask(fn func() error) {
	h.WG.Add(1)

	go func() {
		defer h.WG.Done()

		defer func() {
			err := recover()
			if err != nil {
				h.errHandler.ReportError(fmt.Errorf("%s", err))
			}
		}()

		err := fn()
		if err != nil {
			h.errHandler.ReportError(err)
		}
	}()
}
