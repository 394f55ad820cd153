package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeTerminateSession = "session:terminate"
	TypeReapSessions     = "session:reap"
)

// TerminatePayload identifies the session to stop. The latest run of the
// session workflow is terminated; StartRunID is the run the session was
// started with and only keys the task.
type TerminatePayload struct {
	SessionID  string `json:"session_id"`
	StartRunID string `json:"start_run_id,omitempty"`
	Reason     string `json:"reason"`
}

// NewTerminateTask builds a retried termination. Ending the same session
// start twice enqueues it once.
func NewTerminateTask(payload TerminatePayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeTerminateSession, b)
	opts := []asynq.Option{
		asynq.TaskID("terminate:" + payload.SessionID + ":" + payload.StartRunID),
		asynq.MaxRetry(10),
		asynq.Timeout(30 * time.Second),
		asynq.Retention(time.Hour),
	}
	return task, opts, nil
}

// NewReapTask builds the periodic idle-session sweep.
func NewReapTask() *asynq.Task {
	return asynq.NewTask(TypeReapSessions, nil)
}

// ParseTerminatePayload decodes a termination task payload.
func ParseTerminatePayload(task *asynq.Task) (TerminatePayload, error) {
	var p TerminatePayload
	err := json.Unmarshal(task.Payload(), &p)
	return p, err
}
