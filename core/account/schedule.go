package account

import (
	"context"
	"fmt"
	"time"
)

// NextWeekStart returns the next Monday 00:00 UTC strictly after t.
func NextWeekStart(t time.Time) time.Time {
	t = t.UTC()
	daysUntilMonday := (int(time.Monday) - int(t.Weekday()) + 7) % 7
	if daysUntilMonday == 0 {
		daysUntilMonday = 7
	}
	y, m, d := t.AddDate(0, 0, daysUntilMonday).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CurrentWeekStart returns the Monday 00:00 UTC of the week t falls in.
func CurrentWeekStart(t time.Time) time.Time {
	return NextWeekStart(t).AddDate(0, 0, -7)
}

// RunWeeklyResets resets every account's weekly points at the start of each week until ctx is done.
// It first catches up on a reset missed while the process was down.
// Sweeps only reset accounts not reset yet for the week, so several replicas may run it.
func (svc *Service) RunWeeklyResets(ctx context.Context) {
	svc.weeklySweep(ctx, CurrentWeekStart(time.Now()))
	for {
		next := NextWeekStart(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		svc.weeklySweep(ctx, next)
	}
}

func (svc *Service) weeklySweep(ctx context.Context, weekStart time.Time) {
	count, err := svc.ResetStaleWeeklyPoints(ctx, weekStart)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("weekly reset of %s stopped after %d accounts: %v", weekStart.Format("2006-01-02"), count, err), err)
		return
	}
	if count > 0 {
		svc.logger.Info(fmt.Sprintf("weekly points reset for %d accounts", count))
	}
}
