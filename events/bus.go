// Package events is the optional NATS surface: refresh outcomes are
// announced, refresh triggers are accepted. Without a configured NATS URL
// every operation degrades to a no-op so the server runs standalone.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects used on the bus.
const (
	SubjectRefreshCompleted = "zotero.refresh.completed"
	SubjectRefreshFailed    = "zotero.refresh.failed"
	SubjectRefreshTrigger   = "zotero.refresh.trigger"
)

// RefreshEvent announces the outcome of one library refresh.
type RefreshEvent struct {
	Library   string    `json:"library"`
	Graph     string    `json:"graph"`
	Triples   int       `json:"triples"`
	Duration  string    `json:"duration"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TriggerEvent requests a refresh; an empty Library means all libraries.
type TriggerEvent struct {
	Library string `json:"library"`
}

// Bus wraps the NATS connection. A nil connection is valid and silently
// drops publishes.
type Bus struct {
	nc     *nats.Conn
	logger *slog.Logger
}

// Connect dials NATS; an empty URL yields a disabled bus rather than an
// error.
func Connect(url string, logger *slog.Logger) (*Bus, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if url == "" {
		logger.Debug("event bus disabled, no NATS URL configured")
		return &Bus{logger: logger}, nil
	}

	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	logger.Info("event bus connected", "url", url)
	return &Bus{nc: nc, logger: logger}, nil
}

// Enabled reports whether the bus has a live connection.
func (b *Bus) Enabled() bool { return b != nil && b.nc != nil }

// PublishRefresh announces a refresh outcome. Publish failures are logged,
// not propagated: the refresh itself succeeded or failed on its own terms.
func (b *Bus) PublishRefresh(ev RefreshEvent) {
	if !b.Enabled() {
		return
	}
	subject := SubjectRefreshCompleted
	if ev.Error != "" {
		subject = SubjectRefreshFailed
	}
	data, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error("marshaling refresh event", "error", err)
		return
	}
	if err := b.nc.Publish(subject, data); err != nil {
		b.logger.Error("publishing refresh event", "subject", subject, "error", err)
	}
}

// SubscribeTriggers installs a handler for on-demand refresh requests.
// Returns a no-op unsubscribe when the bus is disabled.
func (b *Bus) SubscribeTriggers(handler func(library string)) (func(), error) {
	if !b.Enabled() {
		return func() {}, nil
	}
	sub, err := b.nc.Subscribe(SubjectRefreshTrigger, func(msg *nats.Msg) {
		var ev TriggerEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			b.logger.Warn("ignoring malformed trigger event", "error", err)
			return
		}
		handler(ev.Library)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", SubjectRefreshTrigger, err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

// Close drains the connection.
func (b *Bus) Close() {
	if !b.Enabled() {
		return
	}
	if err := b.nc.Drain(); err != nil {
		b.logger.Warn("draining NATS connection", "error", err)
	}
}
