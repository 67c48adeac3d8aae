// Package events publishes notifications about finished simulation runs.
package events

import (
	"context"
	"strings"
	"sync"
	"time"

	"portfolio-sim/internal/domain"
)

// SubjectPrefix is the subject prefix for run-completed events; the symbol is appended.
const SubjectPrefix = "simulations.completed."

// RunCompleted is the payload published after a successful run.
type RunCompleted struct {
	RunID               string    `json:"run_id"`
	Symbol              string    `json:"symbol"`
	StartDate           string    `json:"start_date,omitempty"`
	EndDate             string    `json:"end_date,omitempty"`
	Days                int       `json:"days"`
	Trades              int       `json:"trades"`
	FinalPortfolioValue float64   `json:"final_portfolio_value"`
	Persisted           bool      `json:"persisted"`
	CompletedAt         time.Time `json:"completed_at"`
}

// NewRunCompleted builds the event for run.
func NewRunCompleted(run *domain.SimulationRun, persisted bool) RunCompleted {
	ev := RunCompleted{
		RunID:               run.RunID,
		Symbol:              run.Symbol,
		Days:                len(run.Result.History),
		Trades:              len(run.Result.Trades),
		FinalPortfolioValue: run.Result.FinalPortfolioValue(),
		Persisted:           persisted,
		CompletedAt:         run.CreatedAt,
	}
	if h := run.Result.History; len(h) > 0 {
		ev.StartDate = h[0].Date.Format(domain.DateFormat)
		ev.EndDate = h[len(h)-1].Date.Format(domain.DateFormat)
	}
	return ev
}

// Subject returns the subject the event is published on.
func (e RunCompleted) Subject() string {
	return SubjectPrefix + strings.ToUpper(e.Symbol)
}

// Publisher delivers run-completed events.
type Publisher interface {
	Publish(ctx context.Context, ev RunCompleted) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, RunCompleted) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []RunCompleted
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, ev RunCompleted) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Close implements Publisher.
func (r *Recorder) Close() error { return nil }

// Events returns a copy of the recorded events in publish order.
func (r *Recorder) Events() []RunCompleted {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RunCompleted(nil), r.events...)
}
