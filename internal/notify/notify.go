// Package notify carries user-facing notifications (the toasts of the web
// client) from the job-state store and session gate to connected clients.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Kind 标识通知类型，前端据此决定展示样式。
type Kind string

const (
	KindJobSaved             Kind = "job_saved"
	KindJobRemoved           Kind = "job_removed"
	KindApplicationSubmitted Kind = "application_submitted"
	KindAlreadyApplied       Kind = "already_applied"
	KindLoggedIn             Kind = "logged_in"
	KindLoginFailed          Kind = "login_failed"
	KindAccountCreated       Kind = "account_created"
	KindLoggedOut            Kind = "logged_out"
)

// VariantDestructive marks failure notifications.
const VariantDestructive = "destructive"

// Notification 与 WebSocket 推送的消息结构一致。
type Notification struct {
	Kind        Kind   `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Variant     string `json:"variant,omitempty"`
	JobID       string `json:"job_id,omitempty"`
}

// Notifier delivers notifications for one owner.
type Notifier interface {
	Notify(ctx context.Context, owner string, n Notification) error
}

// Nop drops every notification.
type Nop struct{}

func (Nop) Notify(context.Context, string, Notification) error { return nil }

// Channel 返回 owner 对应的 Redis Pub/Sub 频道名。
func Channel(owner string) string {
	return "hiredup:notify:" + owner
}

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher fans notifications out over Redis Pub/Sub so any API
// instance holding the owner's websocket can forward them.
type RedisPublisher struct {
	client publisher
	logger *slog.Logger
}

func NewRedisPublisher(client redis.UniversalClient, logger *slog.Logger) *RedisPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisPublisher{client: client, logger: logger}
}

func (p *RedisPublisher) Notify(ctx context.Context, owner string, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := p.client.Publish(ctx, Channel(owner), payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	p.logger.Debug("notification published",
		slog.String("owner", owner),
		slog.String("kind", string(n.Kind)),
	)
	return nil
}
