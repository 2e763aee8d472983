// Package reports aggregates orders into per-day sales figures.
package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pizzeria-backend/pkg/errors"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
)

const (
	dayLayout   = "2006-01-02"
	maxSpanDays = 366
)

// DaySales is one reported day.
type DaySales struct {
	Day            string          `json:"day"`
	OrdersCount    int             `json:"orders_count"`
	CancelledCount int             `json:"cancelled_count"`
	ItemsCount     int             `json:"items_count"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DeliveryFees   decimal.Decimal `json:"delivery_fees"`
	Total          decimal.Decimal `json:"total"`
}

// SalesReport is the staff sales view over a date range.
type SalesReport struct {
	From        string          `json:"from"`
	To          string          `json:"to"`
	Days        []DaySales      `json:"days"`
	OrdersCount int             `json:"orders_count"`
	Total       decimal.Decimal `json:"total"`
}

// Service exposes the rollup and the sales report.
type Service interface {
	RollupDay(ctx context.Context, day time.Time) (*DaySales, error)
	SalesReport(ctx context.Context, from, to string) (*SalesReport, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type reportsRepository interface {
	OrdersBetween(ctx context.Context, tx *gorm.DB, from, to time.Time) ([]models.Order, error)
	UpsertDay(ctx context.Context, tx *gorm.DB, row *models.DailySales) error
	ListRange(ctx context.Context, from, to time.Time) ([]models.DailySales, error)
}

type service struct {
	db   txRunner
	repo reportsRepository
	loc  *time.Location
	logg *logger.Logger
}

// NewService builds the reports service. Days are cut in loc.
func NewService(db txRunner, repo reportsRepository, loc *time.Location, logg *logger.Logger) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{db: db, repo: repo, loc: loc, logg: logg}, nil
}

// RollupDay recomputes the local calendar day containing day. Cancelled orders
// are counted but contribute no money or items.
func (s *service) RollupDay(ctx context.Context, day time.Time) (*DaySales, error) {
	local := day.In(s.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 0, 1)
	row := &models.DailySales{
		Day:          time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		Subtotal:     decimal.Zero,
		DeliveryFees: decimal.Zero,
		Total:        decimal.Zero,
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		orders, err := s.repo.OrdersBetween(ctx, tx, start, end)
		if err != nil {
			return err
		}
		for _, order := range orders {
			if order.Status == enums.OrderStatusCancelled {
				row.CancelledCount++
				continue
			}
			row.OrdersCount++
			row.Subtotal = row.Subtotal.Add(order.Subtotal)
			row.DeliveryFees = row.DeliveryFees.Add(order.DeliveryFee)
			row.Total = row.Total.Add(order.Total)
			for _, item := range order.Items {
				row.ItemsCount += item.Quantity
			}
		}
		row.UpdatedAt = time.Now().UTC()
		return s.repo.UpsertDay(ctx, tx, row)
	})
	if err != nil {
		return nil, fmt.Errorf("rollup %s: %w", start.Format(dayLayout), err)
	}
	out := toDaySales(*row)
	return &out, nil
}

func (s *service) SalesReport(ctx context.Context, from, to string) (*SalesReport, error) {
	fromDay, toDay, err := parseRange(from, to)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListRange(ctx, fromDay, toDay)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sales rollup")
	}
	report := &SalesReport{
		From:  fromDay.Format(dayLayout),
		To:    toDay.Format(dayLayout),
		Days:  make([]DaySales, 0, len(rows)),
		Total: decimal.Zero,
	}
	for _, row := range rows {
		day := toDaySales(row)
		report.Days = append(report.Days, day)
		report.OrdersCount += day.OrdersCount
		report.Total = report.Total.Add(day.Total)
	}
	return report, nil
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	fields := map[string]string{}
	fromDay, err := time.Parse(dayLayout, from)
	if err != nil {
		fields["from"] = "expected YYYY-MM-DD"
	}
	toDay, err := time.Parse(dayLayout, to)
	if err != nil {
		fields["to"] = "expected YYYY-MM-DD"
	}
	if len(fields) == 0 {
		switch {
		case toDay.Before(fromDay):
			fields["to"] = "must not be before from"
		case toDay.Sub(fromDay) > maxSpanDays*24*time.Hour:
			fields["to"] = fmt.Sprintf("range is limited to %d days", maxSpanDays)
		}
	}
	if len(fields) > 0 {
		return time.Time{}, time.Time{}, pkgerrors.Validation("invalid report range", fields)
	}
	return fromDay, toDay, nil
}

func toDaySales(row models.DailySales) DaySales {
	return DaySales{
		Day:            row.Day.Format(dayLayout),
		OrdersCount:    row.OrdersCount,
		CancelledCount: row.CancelledCount,
		ItemsCount:     row.ItemsCount,
		Subtotal:       row.Subtotal,
		DeliveryFees:   row.DeliveryFees,
		Total:          row.Total,
	}
}
