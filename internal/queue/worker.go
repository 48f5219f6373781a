package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/socialcast-io/socialcast/internal/publish"
)

// Worker consumes delayed dispatch tasks and re-invokes the orchestrator with
// the schedule already elapsed.
type Worker struct {
	orchestrator publish.Orchestrator
}

func NewWorker(orchestrator publish.Orchestrator) *Worker {
	return &Worker{orchestrator: orchestrator}
}

func (w *Worker) HandlePublishDispatchTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	result, err := w.orchestrator.DispatchScheduled(ctx, payload.PostID)
	if err != nil {
		// A missing or already-dispatched post is not worth retrying.
		if errors.Is(err, publish.ErrPostNotFound) || errors.Is(err, publish.ErrNotScheduled) {
			slog.Info("skipping dispatch", "post_id", payload.PostID, "error", err)
			return nil
		}
		slog.Info(err.Error())
		return err
	}

	slog.Info("scheduled post dispatched",
		"post_id", result.PostID, "status", result.Status, "accounts", len(result.Results))
	return nil
}
