package usecase

import (
	"context"
	"fmt"
	"time"

	"FeatureSnap/pkg/queue"
	"FeatureSnap/pkg/util"
)

// BackfillMessageType routes snapshot backfill messages on the queue.
const BackfillMessageType = "snapshot.backfill"

// BackfillMessage is the queue payload for one backfill request. Timestamps
// are RFC3339 or unix seconds, same formats the API accepts.
type BackfillMessage struct {
	Pair                string `json:"pair"`
	Interval            string `json:"interval"`
	FeatureSetVersionID string `json:"feature_set_version_id"`
	StartAt             string `json:"start_at"`
	EndAt               string `json:"end_at"`
}

// BackfillJob consumes backfill messages and runs Ensure for each, so large
// historical windows are filled by background workers instead of request
// handlers. Failed messages go through the queue's retry cycle.
type BackfillJob struct {
	snapshots *SnapshotsUseCase
}

func NewBackfillJob(snapshots *SnapshotsUseCase) *BackfillJob {
	return &BackfillJob{snapshots: snapshots}
}

func (j *BackfillJob) Name() string { return "snapshot_backfill" }

func (j *BackfillJob) Type() string { return BackfillMessageType }

func (j *BackfillJob) Handle(ctx context.Context, payload interface{}) error {
	msg, err := queue.ParsePayload[BackfillMessage](payload)
	if err != nil {
		return fmt.Errorf("parse backfill payload: %w", err)
	}

	start, ok := util.ParseTime(msg.StartAt)
	if !ok {
		return fmt.Errorf("invalid start_at %q", msg.StartAt)
	}
	end, ok := util.ParseTime(msg.EndAt)
	if !ok {
		return fmt.Errorf("invalid end_at %q", msg.EndAt)
	}

	// Backfills can cover months; don't let one slow range hold a worker
	// forever.
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	_, err = j.snapshots.Ensure(ctx, EnsureParams{
		Pair:                msg.Pair,
		Interval:            msg.Interval,
		FeatureSetVersionID: msg.FeatureSetVersionID,
		StartAt:             start,
		EndAt:               end,
	})
	if err != nil {
		return fmt.Errorf("backfill %s/%s: %w", msg.Pair, msg.Interval, err)
	}
	return nil
}

var _ queue.Job = (*BackfillJob)(nil)
