package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/pizzeria-backend/internal/reports"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
)

const defaultRollupDays = 3

type dayRoller interface {
	RollupDay(ctx context.Context, day time.Time) (*reports.DaySales, error)
}

// DailySalesJobParams configure the sales rollup job.
type DailySalesJobParams struct {
	Logger  *logger.Logger
	Reports dayRoller
	Days    int
}

// NewDailySalesJob recomputes the rollup for today and the previous Days-1
// days, so late status changes are picked up.
func NewDailySalesJob(params DailySalesJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reports == nil {
		return nil, fmt.Errorf("reports service required")
	}
	days := params.Days
	if days <= 0 {
		days = defaultRollupDays
	}
	return &dailySalesJob{logg: params.Logger, reports: params.Reports, days: days, now: time.Now}, nil
}

type dailySalesJob struct {
	logg    *logger.Logger
	reports dayRoller
	days    int
	now     func() time.Time
}

func (j *dailySalesJob) Name() string { return "daily-sales-rollup" }

// Run rolls every day even when one fails; failures are combined.
func (j *dailySalesJob) Run(ctx context.Context) error {
	now := j.now()
	var errs error
	for i := 0; i < j.days; i++ {
		sales, err := j.reports.RollupDay(ctx, now.AddDate(0, 0, -i))
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		j.logg.Debug(j.logg.WithFields(ctx, map[string]any{
			"day":    sales.Day,
			"orders": sales.OrdersCount,
			"total":  sales.Total.StringFixed(2),
		}), "sales day rolled up")
	}
	if errs != nil {
		return errs
	}
	j.logg.Info(j.logg.WithField(ctx, "days", j.days), "daily sales rollup complete")
	return nil
}
