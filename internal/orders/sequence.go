package orders

import (
	"context"
	"time"
)

const displayNumberTTL = 48 * time.Hour

type counterStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	CounterKey(name string) string
}

// Sequencer hands out the customer-facing order number, restarting at 1 every
// local calendar day.
type Sequencer struct {
	counters counterStore
	loc      *time.Location
}

// NewSequencer builds a daily sequencer. A nil loc uses UTC.
func NewSequencer(counters counterStore, loc *time.Location) *Sequencer {
	if loc == nil {
		loc = time.UTC
	}
	return &Sequencer{counters: counters, loc: loc}
}

// Next returns the next number for the day containing now.
func (s *Sequencer) Next(ctx context.Context, now time.Time) (int64, error) {
	key := s.counters.CounterKey("order_number:" + now.In(s.loc).Format("20060102"))
	return s.counters.IncrWithTTL(ctx, key, displayNumberTTL)
}

// DayStart is the first instant of the local day containing now.
func (s *Sequencer) DayStart(now time.Time) time.Time {
	local := now.In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
}
