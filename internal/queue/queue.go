package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const TaskTypePublishDispatch = "publish:dispatch"

type PublishDispatchPayload struct {
	PostID int64 `json:"post_id"`
}

// Scheduler enqueues a delayed dispatch task for a scheduled post. It is the
// publish.Scheduler the orchestrator hands scheduled posts to.
type Scheduler struct {
	client *asynq.Client
}

func NewScheduler(client *asynq.Client) *Scheduler {
	return &Scheduler{client: client}
}

func (s *Scheduler) Schedule(ctx context.Context, postID int64, at time.Time) error {
	taskPayload, err := json.Marshal(PublishDispatchPayload{PostID: postID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePublishDispatch, taskPayload)

	if _, err := s.client.Enqueue(task, asynq.ProcessAt(at)); err != nil {
		return err
	}

	slog.Info("publish dispatch scheduled", "post_id", postID, "at", at)
	return nil
}
