// Package session wires one authenticated user's caches, executors, remote
// client and realtime bridge into a single owned instance. A Session is
// created per active identity and torn down on logout; nothing here is
// module-level state.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360studio/boardsync/board"
	"github.com/c360studio/boardsync/cache"
	"github.com/c360studio/boardsync/config"
	"github.com/c360studio/boardsync/identity"
	"github.com/c360studio/boardsync/model"
	"github.com/c360studio/boardsync/mutation"
	"github.com/c360studio/boardsync/realtime"
	"github.com/c360studio/boardsync/remote"
)

// ErrSessionExpired is returned by every operation after an unauthorized
// remote failure, until Renew is called.
var ErrSessionExpired = errors.New("session expired: re-authenticate to continue")

// Session owns the synchronization state for one authenticated user.
type Session struct {
	provider identity.Provider
	clientID string
	api      remote.API
	logger   *slog.Logger

	projects *cache.Store[model.Project]
	tasks    *cache.Store[model.Task]
	projExec *mutation.Executor[model.Project]
	taskExec *mutation.Executor[model.Task]
	bridge   *realtime.Bridge

	mu      sync.Mutex
	expired bool
}

// Option configures a Session.
type Option func(*options)

type options struct {
	conn   *nats.Conn
	logger *slog.Logger
	reg    prometheus.Registerer
	notify func(realtime.Notification)
}

// WithNATS connects the realtime bridge to a NATS server. Without it the
// session runs offline: no notifications in, no events out.
func WithNATS(conn *nats.Conn) Option {
	return func(o *options) { o.conn = conn }
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics registers cache, mutation and bridge counters.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) { o.reg = reg }
}

// WithNotify observes inbound change notifications accepted by the bridge,
// after their invalidation has been routed.
func WithNotify(fn func(realtime.Notification)) Option {
	return func(o *options) { o.notify = fn }
}

// New creates and starts a session for the given identity.
func New(cfg *config.Config, provider identity.Provider, api remote.API, opts ...Option) (*Session, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	var cacheMetrics *cache.Metrics
	var mutMetrics *mutation.Metrics
	var bridgeMetrics *realtime.Metrics
	if o.reg != nil {
		cacheMetrics = cache.NewMetrics(o.reg)
		mutMetrics = mutation.NewMetrics(o.reg)
		bridgeMetrics = realtime.NewMetrics(o.reg)
	}

	s := &Session{
		provider: provider,
		clientID: provider.UserID() + "/" + uuid.New().String()[:8],
		api:      api,
		logger:   o.logger,
	}

	s.projects = cache.NewStore(cfg.Cache.ProjectsTTL, cache.WithMetrics[model.Project](cacheMetrics))
	s.tasks = cache.NewStore(cfg.Cache.TasksTTL, cache.WithMetrics[model.Task](cacheMetrics))

	bridgeOpts := []realtime.BridgeOption{
		realtime.WithSubjectPrefix(cfg.NATS.SubjectPrefix),
		realtime.WithLogger(o.logger),
		realtime.WithMetrics(bridgeMetrics),
	}
	if o.notify != nil {
		bridgeOpts = append(bridgeOpts, realtime.WithNotifyHook(o.notify))
	}
	s.bridge = realtime.NewBridge(o.conn, s.clientID, s.HandleInvalidation, bridgeOpts...)

	s.projExec = mutation.NewExecutor(s.projects,
		mutation.WithPublisher[model.Project](s.bridge.Publish),
		mutation.WithUnauthorizedHook[model.Project](s.expire),
		mutation.WithTimeout[model.Project](cfg.API.Timeout),
		mutation.WithLogger[model.Project](o.logger),
		mutation.WithExecutorMetrics[model.Project](mutMetrics))

	s.taskExec = mutation.NewExecutor(s.tasks,
		mutation.WithPublisher[model.Task](s.bridge.Publish),
		mutation.WithUnauthorizedHook[model.Task](s.expire),
		mutation.WithGate[model.Task](s.taskGate),
		mutation.WithTimeout[model.Task](cfg.API.Timeout),
		mutation.WithLogger[model.Task](o.logger),
		mutation.WithExecutorMetrics[model.Task](mutMetrics))

	if err := s.bridge.Start(); err != nil {
		return nil, fmt.Errorf("start realtime bridge: %w", err)
	}
	return s, nil
}

// UserID returns the acting user's identifier.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provider.UserID()
}

// ClientID returns the origin identifier used on published change events.
func (s *Session) ClientID() string { return s.clientID }

// Expired reports whether the session has been revoked.
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expired
}

// expire invalidates every cache and halts remote calls. Invoked on any
// unauthorized remote failure.
func (s *Session) expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expired {
		return
	}
	s.expired = true
	s.projects.InvalidateAll()
	s.tasks.InvalidateAll()
	s.logger.Warn("session expired, halting remote calls",
		slog.String("user", s.provider.UserID()))

}

// Renew resumes the session with a fresh credential. The provider must be
// the same object the remote client authenticates with, or an equivalent
// replacement.
func (s *Session) Renew(provider identity.Provider) {
	s.mu.Lock()
	s.provider = provider
	s.expired = false
	s.mu.Unlock()
	s.logger.Info("session renewed", slog.String("user", provider.UserID()))
}

// Close tears the session down.
func (s *Session) Close() error {
	return s.bridge.Close()
}

// HandleInvalidation routes an invalidation for key through the executor
// that owns it, so in-flight optimistic values defer it.
func (s *Session) HandleInvalidation(key cache.Key) {
	if strings.HasPrefix(string(key), "tasks:") {
		s.taskExec.Invalidate(key)
		return
	}
	s.projExec.Invalidate(key)
}

// taskGate rejects task mutations whose parent project is not confirmed
// loaded, before any optimistic state is applied.
func (s *Session) taskGate(m mutation.Mutation[model.Task]) error {
	if m.ProjectID.IsZero() {
		return remote.NewError(remote.ClassValidation, "task mutation", "project id is required")
	}
	snap, ok := s.projects.Get(cache.ProjectsKey)
	if !ok {
		return remote.NewError(remote.ClassValidation, "task mutation", "projects are not loaded")
	}
	if _, found := snap.Find(m.ProjectID); !found {
		return remote.NewError(remote.ClassValidation, "task mutation",
			fmt.Sprintf("project %s is not loaded", m.ProjectID))
	}
	return nil
}

// Projects returns the cached projects list, refetching on miss or
// staleness. A stale snapshot is served as a fallback when the refetch
// fails transiently.
func (s *Session) Projects(ctx context.Context) ([]model.Project, error) {
	if s.Expired() {
		return nil, ErrSessionExpired
	}

	snap, ok := s.projects.Get(cache.ProjectsKey)
	if ok && !snap.Stale {
		return snap.Entities, nil
	}
	// A refetch while mutations are in flight would clobber their optimistic
	// state, so the stale snapshot is served until they resolve.
	if ok && s.projExec.HasPending(cache.ProjectsKey) {
		return snap.Entities, nil
	}

	fetched, err := s.api.FetchProjects(ctx)
	if err != nil {
		if remote.ClassOf(err) == remote.ClassUnauthorized {
			s.expire()
			return nil, err
		}
		if ok && remote.Retryable(err) {
			s.logger.Warn("serving stale projects after failed refetch",
				slog.String("error", err.Error()))
			return snap.Entities, nil
		}
		return nil, err
	}

	s.projects.Put(cache.ProjectsKey, fetched)
	return fetched, nil
}

// Tasks returns the cached task list for a project, refetching on miss or
// staleness, with the same stale fallback as Projects.
func (s *Session) Tasks(ctx context.Context, projectID model.EntityID) ([]model.Task, error) {
	if s.Expired() {
		return nil, ErrSessionExpired
	}

	key := cache.TasksKey(projectID)
	snap, ok := s.tasks.Get(key)
	if ok && !snap.Stale {
		return snap.Entities, nil
	}
	if ok && s.taskExec.HasPending(key) {
		return snap.Entities, nil
	}

	fetched, err := s.api.FetchTasks(ctx, projectID)
	if err != nil {
		if remote.ClassOf(err) == remote.ClassUnauthorized {
			s.expire()
			return nil, err
		}
		if ok && remote.Retryable(err) {
			s.logger.Warn("serving stale tasks after failed refetch",
				slog.String("project", projectID.String()),
				slog.String("error", err.Error()))
			return snap.Entities, nil
		}
		return nil, err
	}

	s.tasks.Put(key, fetched)
	return fetched, nil
}

// Board derives the column layout and progress for a project.
func (s *Session) Board(ctx context.Context, projectID model.EntityID, filter board.Filter) ([]board.Column, int, error) {
	tasks, err := s.Tasks(ctx, projectID)
	if err != nil {
		return nil, 0, err
	}
	return board.Columns(tasks, filter), board.Progress(tasks), nil
}
