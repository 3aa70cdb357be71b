package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"

	_ "github.com/helmdesk/helmdesk/testing"
)

func TestNewTokenPurgeTaskPayload(t *testing.T) {
	task, err := NewTokenPurgeTask(500)
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if task.Type() != TaskTokenPurge {
		t.Fatalf("unexpected task type %q", task.Type())
	}
	var payload TokenPurgePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.BatchSize != 500 {
		t.Fatalf("expected batch size 500, got %d", payload.BatchSize)
	}
}

func TestTokenPurgeHandleRejectsMalformedPayload(t *testing.T) {
	job := NewTokenPurgeJob(nil, nil, nil)
	task := asynq.NewTask(TaskTokenPurge, []byte("{not json"))

	err := job.Handle(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry for malformed payload, got %v", err)
	}
}
