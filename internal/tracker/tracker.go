// Package tracker is the command and query surface over a goal store. Every
// read of a goal applies pending period rollover, every write runs in one
// transaction, and every committed write re-delivers fresh snapshots to
// subscribers.
package tracker

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/julianstephens/goaltrack/internal/errors"
	"github.com/julianstephens/goaltrack/internal/ledger"
	"github.com/julianstephens/goaltrack/internal/logger"
	"github.com/julianstephens/goaltrack/internal/models"
	"github.com/julianstephens/goaltrack/internal/rollover"
	"github.com/julianstephens/goaltrack/internal/storage"
	"github.com/julianstephens/goaltrack/internal/utils"
)

// Config fixes the calendar the tracker evaluates rollover against.
type Config struct {
	Clock utils.Clock
	Week  rollover.WeekConvention
}

// ResolveConfig builds a Config from persisted settings. Non-empty week or
// timezone values override the stored ones.
func ResolveConfig(settings models.Settings, week, timezone string) (Config, error) {
	if week == "" {
		week = settings.WeekConvention
	}
	if timezone == "" {
		timezone = settings.Timezone
	}
	conv, err := rollover.ParseWeekConvention(week)
	if err != nil {
		return Config{}, apperrors.Invalid("week convention", "%v", err)
	}
	loc, err := utils.LoadLocation(timezone)
	if err != nil {
		return Config{}, apperrors.Invalid("timezone", "%v", err)
	}
	return Config{Clock: utils.SystemClock{Location: loc}, Week: conv}, nil
}

type Tracker struct {
	store *storage.Store
	clock utils.Clock
	week  rollover.WeekConvention
	subs  *hub

	// wrapRepo adapts the transaction's repository before the ledger sees
	// it. Tests use it to inject write failures.
	wrapRepo func(*storage.Repo) ledger.Repository
}

// New returns a tracker over an open store.
func New(store *storage.Store, cfg Config) *Tracker {
	if cfg.Clock == nil {
		cfg.Clock = utils.SystemClock{}
	}
	if cfg.Week.Name == "" {
		cfg.Week = rollover.ISO
	}
	return &Tracker{
		store:    store,
		clock:    cfg.Clock,
		week:     cfg.Week,
		subs:     newHub(),
		wrapRepo: func(r *storage.Repo) ledger.Repository { return r },
	}
}

// Today returns the evaluation date.
func (t *Tracker) Today() time.Time {
	return utils.Today(t.clock)
}

// Week returns the week convention rollover is evaluated with.
func (t *Tracker) Week() rollover.WeekConvention {
	return t.week
}

// Close ends every open subscription. The store is left open.
func (t *Tracker) Close() {
	t.subs.closeAll()
}

// tx runs fn in a transaction, retrying once when the transaction itself
// failed. Recoverable errors are returned on the first attempt.
func (t *Tracker) tx(ctx context.Context, op string, fn func(l *ledger.Ledger, r *storage.Repo) error) error {
	var err error
	for attempt := 1; attempt <= 2; attempt++ {
		today := t.Today()
		err = t.store.WithTx(ctx, op, func(r *storage.Repo) error {
			return fn(ledger.New(t.wrapRepo(r), t.week, today), r)
		})
		if err == nil || !apperrors.IsTransaction(err) || ctx.Err() != nil {
			return err
		}
		if attempt == 1 {
			logger.Warn("Transaction failed, retrying", "op", op, "error", err)
		}
	}
	logger.Error("Transaction failed after retry", "op", op, "error", err)
	return err
}

// write is tx followed by a refresh of every subscription.
func (t *Tracker) write(ctx context.Context, op string, fn func(l *ledger.Ledger, r *storage.Repo) error) error {
	if err := t.tx(ctx, op, fn); err != nil {
		return err
	}
	t.subs.publish(ctx)
	return nil
}

// Refresh re-delivers every subscription's snapshot. Watchers call it when
// the date may have changed without any write.
func (t *Tracker) Refresh(ctx context.Context) {
	t.subs.publish(ctx)
}

// Settings returns the persisted settings.
func (t *Tracker) Settings(ctx context.Context) (models.Settings, error) {
	return t.store.Repo().GetSettings(ctx)
}

// SaveSettings validates and persists settings. They apply to trackers
// created afterwards.
func (t *Tracker) SaveSettings(ctx context.Context, s models.Settings) error {
	if _, err := ResolveConfig(s, "", ""); err != nil {
		return err
	}
	return t.tx(ctx, "save settings", func(_ *ledger.Ledger, r *storage.Repo) error {
		if err := r.SaveSettings(ctx, s); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
		return nil
	})
}
