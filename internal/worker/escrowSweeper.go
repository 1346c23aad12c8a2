package worker

import (
	"context"
	"time"
)

const sweepBatchSize = 100

// EscrowSweeper periodically releases escrow holds whose dispute window has
// elapsed. It may race an admin-triggered release for the same order; the
// claim inside the escrow service decides a single winner, so the sweep just
// keeps ticking.
func (wk *Worker) EscrowSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			wk.Logger.Info("escrow sweeper stopped")
			return
		case <-ticker.C:
			released, err := wk.Escrow.ReleaseDue(ctx, sweepBatchSize)
			if err != nil {
				wk.ErrHandler.ReportError(err)
				continue
			}
			if released > 0 {
				wk.Logger.Info("escrow sweep completed", "released", released)
			}
		}
	}
}
