package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Channel the notification service subscribes to.
const UserNoticesChannel = "user_notices"

// Notifier delivers out-of-band user notices. Delivery is fire-and-forget:
// implementations log failures and never propagate them.
type Notifier interface {
	NotifyUsers(ctx context.Context, userIDs []int64, message string)
}

// UserNotice is the payload published for the notification collaborator.
type UserNotice struct {
	UserIDs []int64 `json:"user_ids"`
	Message string  `json:"message"`
	SentAt  int64   `json:"sent_at"`
}

// RedisNotifier publishes notices to the user_notices pub/sub channel, where
// the external notification service picks them up.
type RedisNotifier struct {
	rdb *redis.Client
}

// NewRedisNotifier creates a notifier on the given client.
func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

func (n *RedisNotifier) NotifyUsers(ctx context.Context, userIDs []int64, message string) {
	payload, err := json.Marshal(UserNotice{UserIDs: userIDs, Message: message, SentAt: time.Now().Unix()})
	if err != nil {
		log.Printf("[NOTIFY] failed to marshal notice: %v", err)
		return
	}
	if err := n.rdb.Publish(ctx, UserNoticesChannel, payload).Err(); err != nil {
		log.Printf("[NOTIFY] failed to publish notice for users %v: %v", userIDs, err)
	}
}
