package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"wayfarer/models"
	"wayfarer/services/events"
	"wayfarer/services/orchestration"
	"wayfarer/services/tasks"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
)

// ErrEmptyReply is returned for blank user replies.
var ErrEmptyReply = errors.New("reply text is empty")

// Enqueuer is implemented by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Options struct {
	TaskQueue string
	Settings  orchestration.Settings
}

// Registry owns the lifetime of every session served by this process: the
// workflow, the stored metadata and the event subscriptions handed out to
// transports. Ending a session cancels all of them.
type Registry struct {
	temporal client.Client
	store    *Store
	events   events.Subscriber
	queue    Enqueuer
	opts     Options
	logger   *zap.Logger
	now      func() time.Time

	mu   sync.Mutex
	subs map[string]map[uint64]context.CancelFunc
	next uint64
}

func NewRegistry(temporal client.Client, store *Store, subscriber events.Subscriber, queue Enqueuer, opts Options, logger *zap.Logger) *Registry {
	return &Registry{
		temporal: temporal,
		store:    store,
		events:   subscriber,
		queue:    queue,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
		subs:     make(map[string]map[uint64]context.CancelFunc),
	}
}

// Start starts the session workflow, replacing a running one with the same
// id. An empty id gets a fresh one.
func (r *Registry) Start(ctx context.Context, sessionID string) (*Meta, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	r.cancelSubscriptions(sessionID)

	run, err := r.temporal.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                       sessionID,
		TaskQueue:                r.opts.TaskQueue,
		WorkflowIDReusePolicy:    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_TERMINATE_EXISTING,
	}, orchestration.WorkflowName, orchestration.SessionInput{
		SessionID: sessionID,
		Settings:  r.opts.Settings,
	})
	if err != nil {
		return nil, fmt.Errorf("start session %s: %w", sessionID, err)
	}

	now := r.now().UTC()
	meta := &Meta{
		SessionID:    sessionID,
		WorkflowID:   run.GetID(),
		RunID:        run.GetRunID(),
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := r.store.Save(ctx, meta); err != nil {
		return nil, fmt.Errorf("save session %s: %w", sessionID, err)
	}
	r.logger.Info("Session started", zap.String("session_id", sessionID), zap.String("run_id", meta.RunID))
	return meta, nil
}

// Reply delivers a user reply to the session.
func (r *Registry) Reply(ctx context.Context, sessionID, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyReply
	}
	meta, err := r.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := r.temporal.SignalWorkflow(ctx, meta.WorkflowID, "", orchestration.UserReplySignal, text); err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			return ErrUnknownSession
		}
		return fmt.Errorf("signal session %s: %w", sessionID, err)
	}
	if err := r.store.Touch(ctx, sessionID, r.now().UTC()); err != nil {
		r.logger.Warn("Failed to record session activity", zap.String("session_id", sessionID), zap.Error(err))
	}
	return nil
}

// Subscribe streams the session's events until ctx is done, release is
// called or the session ends.
func (r *Registry) Subscribe(ctx context.Context, sessionID string) (<-chan models.Event, func(), error) {
	if _, err := r.store.Get(ctx, sessionID); err != nil {
		return nil, nil, err
	}
	subCtx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	id := r.next
	r.next++
	if r.subs[sessionID] == nil {
		r.subs[sessionID] = make(map[uint64]context.CancelFunc)
	}
	r.subs[sessionID][id] = cancel
	r.mu.Unlock()

	release := func() {
		cancel()
		r.mu.Lock()
		defer r.mu.Unlock()
		if set := r.subs[sessionID]; set != nil {
			delete(set, id)
			if len(set) == 0 {
				delete(r.subs, sessionID)
			}
		}
	}

	ch, err := r.events.Subscribe(subCtx, sessionID)
	if err != nil {
		release()
		return nil, nil, err
	}
	return ch, release, nil
}

// State queries the session workflow.
func (r *Registry) State(ctx context.Context, sessionID string) (orchestration.StateSnapshot, error) {
	var snap orchestration.StateSnapshot
	meta, err := r.store.Get(ctx, sessionID)
	if err != nil {
		return snap, err
	}
	value, err := r.temporal.QueryWorkflow(ctx, meta.WorkflowID, "", orchestration.StateQuery)
	if err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			return snap, ErrUnknownSession
		}
		return snap, fmt.Errorf("query session %s: %w", sessionID, err)
	}
	err = value.Get(&snap)
	return snap, err
}

// End stops a session. Subscriptions are cancelled at once; the workflow is
// terminated by a retried background task.
func (r *Registry) End(ctx context.Context, sessionID, reason string) error {
	meta, err := r.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	r.cancelSubscriptions(sessionID)

	task, opts, err := tasks.NewTerminateTask(tasks.TerminatePayload{
		SessionID:  sessionID,
		StartRunID: meta.RunID,
		Reason:     reason,
	})
	if err != nil {
		return err
	}
	if _, err := r.queue.EnqueueContext(ctx, task, opts...); err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		r.logger.Warn("Enqueue termination failed, terminating inline", zap.String("session_id", sessionID), zap.Error(err))
		if err := r.Terminate(ctx, sessionID, reason); err != nil {
			return err
		}
	}

	if err := r.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("forget session %s: %w", sessionID, err)
	}
	r.logger.Info("Session ended", zap.String("session_id", sessionID), zap.String("reason", reason))
	return nil
}

// Terminate stops the latest run of the session workflow. A workflow that is
// already gone counts as terminated.
func (r *Registry) Terminate(ctx context.Context, sessionID, reason string) error {
	err := r.temporal.TerminateWorkflow(ctx, sessionID, "", reason)
	var notFound *serviceerror.NotFound
	if err != nil && !errors.As(err, &notFound) {
		return fmt.Errorf("terminate session %s: %w", sessionID, err)
	}
	return nil
}

// ReapIdle ends sessions without activity for longer than idle.
func (r *Registry) ReapIdle(ctx context.Context, idle time.Duration) (int, error) {
	ids, err := r.store.IdleSince(ctx, r.now().Add(-idle))
	if err != nil {
		return 0, err
	}
	ended := 0
	for _, id := range ids {
		if err := r.End(ctx, id, "session idle"); err != nil && !errors.Is(err, ErrUnknownSession) {
			r.logger.Warn("Failed to reap session", zap.String("session_id", id), zap.Error(err))
			continue
		}
		ended++
	}
	return ended, nil
}

// Shutdown terminates every active session inline. Used on process exit,
// when the task worker may already be stopping.
func (r *Registry) Shutdown(ctx context.Context) error {
	ids, err := r.store.Active(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, id := range ids {
		r.cancelSubscriptions(id)
		if err := r.Terminate(ctx, id, "server shutting down"); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := r.store.Delete(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) cancelSubscriptions(sessionID string) {
	r.mu.Lock()
	set := r.subs[sessionID]
	delete(r.subs, sessionID)
	r.mu.Unlock()
	for _, cancel := range set {
		cancel()
	}
}
