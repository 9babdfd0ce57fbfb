package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kubikportal/portal-service/internal/service"
)

// StartOverdueSweep runs the overdue reclassification on a ticker until the
// context is cancelled.
func StartOverdueSweep(ctx context.Context, billing *service.BillingService, interval time.Duration, logger *zap.Logger) {
	if billing == nil || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := billing.ReclassifyOverdue(ctx, time.Now()); err != nil {
					logger.Error("overdue sweep failed", zap.Error(err))
				}
			}
		}
	}()
}
