package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mrcosta/backoffice/models"
)

// DefaultPollInterval is how often a watcher polls the job status. Values
// between 3 and 5 seconds keep the dashboard responsive without hammering
// the API.
const DefaultPollInterval = 4 * time.Second

// ErrTooManyPollErrors is returned when consecutive poll failures exceed the
// configured cap.
var ErrTooManyPollErrors = errors.New("too many consecutive poll errors")

// WatchOptions tunes a watch loop. The zero value polls every
// DefaultPollInterval and tolerates poll errors indefinitely.
type WatchOptions struct {
	// Interval between polls. Defaults to DefaultPollInterval when zero.
	Interval time.Duration

	// MaxConsecutiveErrors aborts the watch after this many poll failures
	// in a row. Zero means keep retrying forever.
	MaxConsecutiveErrors int

	// OnProgress is invoked after every successful poll, including the
	// final one that observes the terminal status.
	OnProgress func(job *models.SyncJob)
}

// Watch polls the sync job until it reaches a terminal status and returns
// the final job. Polls run strictly one at a time: the next tick is not
// scheduled until the previous poll has returned. The loop exits exactly
// once, on the first poll that observes a terminal status, on context
// cancellation, or on the consecutive-error cap.
func (c *Client) Watch(ctx context.Context, jobID string, opts WatchOptions) (*models.SyncJob, error) {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	consecutiveErrors := 0
	for {
		job, err := c.GetSyncJob(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			consecutiveErrors++
			slog.Warn("Poll failed", "job_id", jobID, "consecutive_errors", consecutiveErrors, "error", err)
			if opts.MaxConsecutiveErrors > 0 && consecutiveErrors >= opts.MaxConsecutiveErrors {
				return nil, fmt.Errorf("%w: %v", ErrTooManyPollErrors, err)
			}
		} else {
			consecutiveErrors = 0
			if opts.OnProgress != nil {
				opts.OnProgress(job)
			}
			if models.SyncTerminal(job.Status) {
				return job, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// StartAndWatch launches a sync job and watches it to completion.
func (c *Client) StartAndWatch(ctx context.Context, kind string, opts WatchOptions) (*models.SyncJob, error) {
	job, err := c.StartSync(ctx, kind)
	if err != nil {
		return nil, err
	}
	return c.Watch(ctx, job.ID, opts)
}
