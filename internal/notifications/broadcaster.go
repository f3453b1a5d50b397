package notifications

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"feedql/internal/middleware"
	"feedql/internal/models"
	"feedql/internal/observability"
)

const publishTimeout = 5 * time.Second

// Message is the JSON frame subscribers receive.
type Message struct {
	Type   string      `json:"type"`
	Action string      `json:"action"`
	Post   interface{} `json:"post"`
}

// Broadcaster fans post events out to subscribers. With Redis configured the
// event travels through Redis and each instance's subscriber forwards it to
// its own hub; otherwise it goes straight to the local hub.
type Broadcaster struct {
	hub      *Hub
	notifier *Notifier
	wg       sync.WaitGroup
}

// NewBroadcaster wires a hub and an optional notifier.
func NewBroadcaster(hub *Hub, notifier *Notifier) *Broadcaster {
	return &Broadcaster{hub: hub, notifier: notifier}
}

// Publish sends ev on topic in the background. It never blocks the caller and
// delivery failures are only logged.
func (b *Broadcaster) Publish(ctx context.Context, topic string, ev models.PostEvent) {
	data, err := json.Marshal(Message{Type: topic, Action: ev.Action, Post: ev.Post})
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "Failed to marshal post event",
			slog.String("action", ev.Action),
			slog.String("error", err.Error()),
		)
		return
	}

	ctx = context.WithoutCancel(ctx)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.deliver(ctx, ev.Action, data)
	}()
}

func (b *Broadcaster) deliver(ctx context.Context, action string, data []byte) {
	if b.notifier.Enabled() {
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		err := b.notifier.PublishBroadcast(pubCtx, string(data))
		if err == nil {
			observability.NotificationsPublished.WithLabelValues("redis", "ok").Inc()
			return
		}
		observability.NotificationsPublished.WithLabelValues("redis", "error").Inc()
		middleware.Logger.WarnContext(ctx, "Redis publish failed, delivering locally",
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
	}

	if b.hub == nil {
		return
	}
	b.hub.BroadcastAll(data)
	observability.NotificationsPublished.WithLabelValues("local", "ok").Inc()
}

// Wait blocks until in-flight publishes finish.
func (b *Broadcaster) Wait() {
	b.wg.Wait()
}
