// Package syncer reconciles synthesized events against a remote calendar
// using a tag-scoped delete-then-insert strategy: every tool-created event
// inside the submission's date window is superseded, which makes repeated
// submissions of an overlapping range idempotent in effect.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"postwmt/internal/models"
)

// RemoteCalendar is the narrow collaborator contract the reconciler
// depends on. Implementations wrap a specific provider's transport and
// classify failures as *models.RemoteError so retry decisions work.
type RemoteCalendar interface {
	ListEvents(ctx context.Context, window models.SyncWindow) ([]models.RemoteEvent, error)
	DeleteEvent(ctx context.Context, id string) error
	InsertEvent(ctx context.Context, event models.Event) (string, error)
}

const (
	maxAttempts = 3
	baseBackoff = 500 * time.Millisecond
	// maxInFlight bounds concurrent remote calls to stay under provider
	// rate limits.
	maxInFlight = 4
)

// OpFailure records one remote operation that failed after retries.
type OpFailure struct {
	Op     string // "delete" or "insert"
	Target string // event ID or title
	Err    error
}

// Report summarizes one reconciliation. Partial failure is reported
// here, never masked; the caller decides whether it is acceptable.
type Report struct {
	Deleted  int
	Inserted int
	Failures []OpFailure
}

// Summary renders the report for display.
func (r *Report) Summary() string {
	if len(r.Failures) == 0 {
		return fmt.Sprintf("%d events posted, %d previous removed", r.Inserted, r.Deleted)
	}
	return fmt.Sprintf("%d events posted, %d previous removed, %d operations failed",
		r.Inserted, r.Deleted, len(r.Failures))
}

// Reconciler pushes one synthesized batch into a remote calendar.
type Reconciler struct {
	logger *slog.Logger
	remote RemoteCalendar
	loc    *time.Location
	dryRun bool
}

// New creates a Reconciler. loc is the schedule timezone used to pad the
// sync window to whole days.
func New(logger *slog.Logger, remote RemoteCalendar, loc *time.Location, dryRun bool) *Reconciler {
	return &Reconciler{logger: logger, remote: remote, loc: loc, dryRun: dryRun}
}

// Reconcile deletes every previously tool-created event inside the
// batch's window, then inserts the new events. All deletions are
// attempted before any insertion begins, so old and new events never
// coexist. Individual failures are collected in the report; only the
// initial listing can fail the call outright.
func (r *Reconciler) Reconcile(ctx context.Context, events []models.Event) (*Report, error) {
	report := &Report{}
	if len(events) == 0 {
		return report, nil
	}

	window := models.WindowFor(events, r.loc)
	r.logger.Info("Reconciling schedule window.",
		"from", window.Start.Format(time.RFC3339), "to", window.End.Format(time.RFC3339),
		"events", len(events), "dryRun", r.dryRun)

	var remote []models.RemoteEvent
	err := r.withRetry(ctx, "list", func(ctx context.Context) error {
		var lerr error
		remote, lerr = r.remote.ListEvents(ctx, window)
		return lerr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list remote events: %w", err)
	}

	var stale []models.RemoteEvent
	for _, re := range remote {
		if models.Tagged(re.Description) || models.Tagged(re.Title) {
			stale = append(stale, re)
		}
	}
	r.logger.Info("Found previously synced events to supersede.", "count", len(stale))

	var mu sync.Mutex
	fail := func(op, target string, err error) {
		mu.Lock()
		defer mu.Unlock()
		report.Failures = append(report.Failures, OpFailure{Op: op, Target: target, Err: err})
	}

	// Delete phase. The group never returns an error: per-event failures
	// are collected so the remaining operations still run.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInFlight)
	for _, re := range stale {
		g.Go(func() error {
			if r.dryRun {
				r.logger.Info("[DRY RUN] Would delete event", "id", re.ID, "title", re.Title)
				mu.Lock()
				report.Deleted++
				mu.Unlock()
				return nil
			}
			err := r.withRetry(gctx, "delete", func(ctx context.Context) error {
				return r.remote.DeleteEvent(ctx, re.ID)
			})
			if err != nil {
				r.logger.Error("Failed to delete event", "id", re.ID, "error", err)
				fail("delete", re.ID, err)
				return nil
			}
			mu.Lock()
			report.Deleted++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	// Insert phase, only after every deletion has been attempted.
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(maxInFlight)
	for _, ev := range events {
		g.Go(func() error {
			if r.dryRun {
				r.logger.Info("[DRY RUN] Would insert event",
					"title", ev.Title, "start", ev.Start.Format(time.RFC3339))
				mu.Lock()
				report.Inserted++
				mu.Unlock()
				return nil
			}
			err := r.withRetry(gctx, "insert", func(ctx context.Context) error {
				_, ierr := r.remote.InsertEvent(ctx, ev)
				return ierr
			})
			if err != nil {
				r.logger.Error("Failed to insert event", "title", ev.Title, "error", err)
				fail("insert", ev.Title, err)
				return nil
			}
			mu.Lock()
			report.Inserted++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	r.logger.Info("Reconciliation finished.",
		"deleted", report.Deleted, "inserted", report.Inserted, "failed", len(report.Failures))
	return report, nil
}

// withRetry runs fn with bounded exponential backoff. Only failures the
// collaborator classifies as transient or rate-limited are retried;
// authorization and validation errors surface immediately.
func (r *Reconciler) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	backoff := baseBackoff
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		var rerr *models.RemoteError
		if !errors.As(err, &rerr) || !rerr.Retryable() || attempt >= maxAttempts {
			return err
		}
		r.logger.Warn("Remote operation failed, retrying.",
			"op", op, "attempt", attempt, "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
