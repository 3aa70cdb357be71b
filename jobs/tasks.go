package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTokenPurge is the task type for reaping expired refresh tokens.
	TaskTokenPurge = "auth:token_purge"
)

// TokenPurgePayload bounds a purge run.
type TokenPurgePayload struct {
	// BatchSize caps how many rows one run deletes. Zero means no cap.
	BatchSize int `json:"batchSize"`
}

// NewTokenPurgeTask constructs an Asynq task for the token reaper.
func NewTokenPurgeTask(batchSize int) (*asynq.Task, error) {
	data, err := json.Marshal(TokenPurgePayload{BatchSize: batchSize})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTokenPurge, data), nil
}
