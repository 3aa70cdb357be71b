package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TokenPurgeJob deletes refresh-token rows whose expiry has passed. Expired
// tokens are also reaped lazily on refresh; this job cleans up rows belonging
// to sessions that simply never came back.
type TokenPurgeJob struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewTokenPurgeJob constructs the purge job.
func NewTokenPurgeJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *Metrics) *TokenPurgeJob {
	return &TokenPurgeJob{pool: pool, logger: logger, metrics: metrics, now: time.Now}
}

// Handle processes TaskTokenPurge tasks.
func (j *TokenPurgeJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload TokenPurgePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics.Track("token_purge")
	deleted, err := j.purge(ctx, payload.BatchSize)
	if err != nil {
		return tracker.End(fmt.Errorf("jobs: token purge: %w", err))
	}
	j.metrics.AddReapedTokens(deleted)
	if j.logger != nil {
		j.logger.Info("token purge finished", slog.Int64("deleted", deleted))
	}
	return tracker.End(nil)
}

func (j *TokenPurgeJob) purge(ctx context.Context, batchSize int) (int64, error) {
	cutoff := j.now().UTC()
	if batchSize > 0 {
		tag, err := j.pool.Exec(ctx, `
			DELETE FROM refresh_tokens WHERE id IN (
				SELECT id FROM refresh_tokens WHERE expires_at < $1 LIMIT $2
			)`, cutoff, batchSize)
		if err != nil {
			return 0, err
		}
		return tag.RowsAffected(), nil
	}
	tag, err := j.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
