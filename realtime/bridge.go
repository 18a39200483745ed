// Package realtime bridges asynchronous change notifications between clients
// over NATS. Inbound notifications are advisory: they never carry entity
// payloads and only ever trigger cache invalidation, so duplicate and
// out-of-order delivery are harmless.
package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/c360studio/boardsync/cache"
	"github.com/c360studio/boardsync/model"
	"github.com/c360studio/boardsync/mutation"
)

// DefaultSubjectPrefix is the root of the board event subject space.
// Subjects follow "<prefix>.<scope>.<action>".
const DefaultSubjectPrefix = "board.events"

// Notification is the wire payload of a change notification.
type Notification struct {
	// Summary is a human-readable description of the change.
	Summary string `json:"summary"`
	// Origin identifies the client that made the change.
	Origin string `json:"origin,omitempty"`
	// Scope is "project" or "task".
	Scope string `json:"scope"`
	// ProjectID scopes task notifications to their project's collection.
	ProjectID string `json:"project_id,omitempty"`
}

// Bridge subscribes to inbound notifications and publishes local-origin
// change events.
type Bridge struct {
	conn    *nats.Conn
	sub     *nats.Subscription
	prefix  string
	origin  string
	route   func(cache.Key)
	notify  func(Notification)
	logger  *slog.Logger
	metrics *Metrics
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithSubjectPrefix overrides the subject prefix.
func WithSubjectPrefix(prefix string) BridgeOption {
	return func(b *Bridge) { b.prefix = prefix }
}

// WithNotifyHook installs an observer for accepted inbound notifications
// (e.g. for display in a UI).
func WithNotifyHook(fn func(Notification)) BridgeOption {
	return func(b *Bridge) { b.notify = fn }
}

// WithLogger sets the bridge logger.
func WithLogger(logger *slog.Logger) BridgeOption {
	return func(b *Bridge) { b.logger = logger }
}

// WithMetrics attaches bridge counters.
func WithMetrics(m *Metrics) BridgeOption {
	return func(b *Bridge) { b.metrics = m }
}

// NewBridge creates a bridge. conn may be nil (offline mode): publishing
// becomes a no-op and Start does nothing. origin is this client's identifier;
// inbound notifications carrying it are ignored. route receives the cache key
// affected by each accepted notification.
func NewBridge(conn *nats.Conn, origin string, route func(cache.Key), opts ...BridgeOption) *Bridge {
	b := &Bridge{
		conn:   conn,
		prefix: DefaultSubjectPrefix,
		origin: origin,
		route:  route,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start subscribes to the notification subject space.
func (b *Bridge) Start() error {
	if b.conn == nil {
		return nil
	}
	sub, err := b.conn.Subscribe(b.prefix+".>", func(msg *nats.Msg) {
		b.handle(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", b.prefix, err)
	}
	b.sub = sub
	return nil
}

// handle processes one inbound notification. Malformed payloads are dropped
// silently; notifications are advisory only.
func (b *Bridge) handle(data []byte) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		b.metrics.dropped()
		b.logger.Debug("dropping malformed notification", slog.String("error", err.Error()))
		return
	}

	key, ok := b.keyFor(n)
	if !ok {
		b.metrics.dropped()
		b.logger.Debug("dropping unroutable notification", slog.String("scope", n.Scope))
		return
	}

	if n.Origin != "" && n.Origin == b.origin {
		// Our own change; the cache already reflects it.
		return
	}

	b.metrics.received()
	b.logger.Debug("change notification",
		slog.String("summary", n.Summary),
		slog.String("scope", n.Scope))

	if b.notify != nil {
		b.notify(n)
	}
	if b.route != nil {
		b.route(key)
	}
}

// keyFor maps a notification to the cache collection it affects.
func (b *Bridge) keyFor(n Notification) (cache.Key, bool) {
	switch n.Scope {
	case "project":
		return cache.ProjectsKey, true
	case "task":
		if n.ProjectID == "" {
			return "", false
		}
		return cache.TasksKey(model.ParseID(n.ProjectID)), true
	default:
		return "", false
	}
}

// Publish sends a local-origin change event to other clients. Failures are
// logged, never surfaced: the local mutation has already committed.
func (b *Bridge) Publish(ev mutation.ChangeEvent) {
	if b.conn == nil {
		return
	}
	n := Notification{
		Summary:   ev.Summary,
		Origin:    b.origin,
		Scope:     ev.Scope,
		ProjectID: ev.ProjectID,
	}
	data, err := json.Marshal(n)
	if err != nil {
		b.logger.Warn("encode change event", slog.String("error", err.Error()))
		return
	}
	subject := fmt.Sprintf("%s.%s.%s", b.prefix, ev.Scope, ev.Action)
	if err := b.conn.Publish(subject, data); err != nil {
		b.logger.Warn("publish change event",
			slog.String("subject", subject),
			slog.String("error", err.Error()))
		return
	}
	b.metrics.published()
}

// Close drains the subscription.
func (b *Bridge) Close() error {
	if b.sub != nil {
		if err := b.sub.Unsubscribe(); err != nil {
			return fmt.Errorf("unsubscribe: %w", err)
		}
		b.sub = nil
	}
	return nil
}
