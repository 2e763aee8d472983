package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/pizzeria-backend/internal/reports"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
)

type fakeRoller struct {
	days   []time.Time
	failOn map[string]error
}

func (f *fakeRoller) RollupDay(_ context.Context, day time.Time) (*reports.DaySales, error) {
	f.days = append(f.days, day)
	if err := f.failOn[day.Format("2006-01-02")]; err != nil {
		return nil, err
	}
	return &reports.DaySales{Day: day.Format("2006-01-02")}, nil
}

func TestDailySalesJobRollsTrailingDays(t *testing.T) {
	roller := &fakeRoller{}
	jobIface, err := NewDailySalesJob(DailySalesJobParams{Logger: logger.Nop(), Reports: roller})
	if err != nil {
		t.Fatal(err)
	}
	job := jobIface.(*dailySalesJob)
	job.now = func() time.Time { return time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC) }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(roller.days) != defaultRollupDays {
		t.Fatalf("expected %d days, got %d", defaultRollupDays, len(roller.days))
	}
	if got := roller.days[2].Format("2006-01-02"); got != "2026-03-08" {
		t.Fatalf("expected oldest day 2026-03-08, got %s", got)
	}
}

func TestDailySalesJobCombinesFailures(t *testing.T) {
	roller := &fakeRoller{failOn: map[string]error{
		"2026-03-10": errors.New("first"),
		"2026-03-08": errors.New("third"),
	}}
	jobIface, _ := NewDailySalesJob(DailySalesJobParams{Logger: logger.Nop(), Reports: roller, Days: 3})
	job := jobIface.(*dailySalesJob)
	job.now = func() time.Time { return time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC) }

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if n := len(multierr.Errors(err)); n != 2 {
		t.Fatalf("expected 2 combined errors, got %d", n)
	}
	if len(roller.days) != 3 {
		t.Fatalf("expected every day attempted, got %d", len(roller.days))
	}
}
