package scheduler

import (
	"context"
	"time"
)

// SnapshotBuilder builds and stores the snapshot of every known owner for a date.
type SnapshotBuilder interface {
	SnapshotAllOwners(ctx context.Context, date time.Time) error
}

// SnapshotJob builds the daily snapshot of every owner.
type SnapshotJob struct {
	builder SnapshotBuilder
	timeout time.Duration
	now     func() time.Time
}

// NewSnapshotJob creates the daily snapshot job. A zero timeout means no limit.
func NewSnapshotJob(builder SnapshotBuilder, timeout time.Duration) *SnapshotJob {
	return &SnapshotJob{
		builder: builder,
		timeout: timeout,
		now:     time.Now,
	}
}

// Name returns the job name
func (j *SnapshotJob) Name() string {
	return "daily_snapshot"
}

// Run builds today's snapshots (UTC).
func (j *SnapshotJob) Run() error {
	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}
	return j.builder.SnapshotAllOwners(ctx, j.now().UTC())
}
