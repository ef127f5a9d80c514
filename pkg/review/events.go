package review

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quorumhq/nameplate/pkg/logging"
)

// Redis channels for review lifecycle events. Downstream systems subscribe
// to react to confirmations and expiries, for example to re-deliver items
// that were waiting on resolution.
const (
	ChannelReviewCreated   = "events.review.created"
	ChannelReviewConfirmed = "events.review.confirmed"
	ChannelReviewRejected  = "events.review.rejected"
	ChannelReviewExpired   = "events.review.expired"
)

// Event is the payload published on review state transitions.
type Event struct {
	EventType     string    `json:"event_type"`
	Timestamp     time.Time `json:"timestamp"`
	ItemID        string    `json:"item_id"`
	ProjectID     string    `json:"project_id"`
	Mention       string    `json:"mention"`
	Status        Status    `json:"status"`
	ResolvedEmail string    `json:"resolved_email,omitempty"`
}

// EventPublisher publishes review lifecycle events. A nil publisher is valid
// everywhere and means events are simply not emitted.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, event Event) error
}

// RedisPublisher publishes review events to Redis pub/sub.
type RedisPublisher struct {
	client *redis.Client
	log    logging.Logger
}

// NewRedisPublisher creates a publisher over an existing Redis client.
func NewRedisPublisher(client *redis.Client, log logging.Logger) *RedisPublisher {
	if log == nil {
		log = logging.NewNop()
	}
	return &RedisPublisher{
		client: client,
		log:    log.With(logging.F("component", "review_events")),
	}
}

// PublisherConfig holds Redis connection configuration.
type PublisherConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// NewRedisPublisherFromConfig creates a publisher with a new Redis
// connection, verifying connectivity before returning.
func NewRedisPublisherFromConfig(cfg PublisherConfig, log logging.Logger) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisPublisher(client, log), nil
}

// Publish sends an event on the given channel.
func (p *RedisPublisher) Publish(ctx context.Context, channel string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal review event: %w", err)
	}

	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish review event: %w", err)
	}

	p.log.Debug("review event published",
		logging.F("channel", channel),
		logging.F("item_id", event.ItemID),
		logging.F("status", string(event.Status)))
	return nil
}

func newEvent(eventType string, item *Item) Event {
	return Event{
		EventType:     eventType,
		Timestamp:     time.Now().UTC(),
		ItemID:        item.ID,
		ProjectID:     item.ProjectID,
		Mention:       item.Mention,
		Status:        item.Status,
		ResolvedEmail: item.ResolvedEmail,
	}
}
