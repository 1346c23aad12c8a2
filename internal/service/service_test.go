package service

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/PaschalTrueFans/tf-backend-sub000/internal/errHandler"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/helper"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/mocks"
)

// testEnv bundles the fakes every service test needs. The helper carries a
// real WaitGroup so tests can wait for background notifications before
// asserting on them.
type testEnv struct {
	db       *mocks.FakeDatabase
	notifier *mocks.FakeNotifier
	helper   *helper.HelperRepository
	wg       *sync.WaitGroup
	logger   *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	wg := &sync.WaitGroup{}
	baseURL := "http://localhost:4444"

	return &testEnv{
		db:       mocks.NewFakeDatabase(),
		notifier: &mocks.FakeNotifier{},
		helper:   helper.New(&baseURL, wg, errHandler.New("", nil, logger)),
		wg:       wg,
		logger:   logger,
	}
}

// wait blocks until all background tasks kicked off so far have finished.
func (e *testEnv) wait() {
	e.wg.Wait()
}
