package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/repository"

	"github.com/redis/go-redis/v9"
)

const (
	userChannelPrefix = "notifications:user:"
	broadcastChannel  = "notifications:broadcast"
	snippetLen        = 140
)

// Event is the wire format pushed to WebSocket clients.
type Event struct {
	Type      string    `json:"type"`
	PostID    uint      `json:"post_id,omitempty"`
	Author    string    `json:"author,omitempty"`
	Text      string    `json:"text,omitempty"`
	Published time.Time `json:"published,omitempty"`
}

// RedisNotifier publishes events through Redis pub/sub so every instance's
// hub sees them, and bridges the subscription back into the local hub.
type RedisNotifier struct {
	client  *redis.Client
	hub     *Hub
	follows repository.FollowRepository
}

// NewRedisNotifier wires the notifier. client may be nil, making every
// publish a no-op.
func NewRedisNotifier(client *redis.Client, hub *Hub, follows repository.FollowRepository) *RedisNotifier {
	return &RedisNotifier{client: client, hub: hub, follows: follows}
}

func snippet(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= snippetLen {
		return text
	}
	// Back up to a rune boundary so the cut never splits a multi-byte rune.
	cut := snippetLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// NotifyFollowers publishes a post_created event to every follower of the
// post's author. Fanout failures are logged, never surfaced to the writer.
func (n *RedisNotifier) NotifyFollowers(ctx context.Context, post *models.Post) {
	if n.client == nil {
		return
	}

	followerIDs, err := n.follows.ListFollowerIDs(ctx, post.AuthorID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "follower fanout skipped",
			slog.String("error", err.Error()))
		return
	}
	if len(followerIDs) == 0 {
		return
	}

	event := Event{
		Type:      "post_created",
		PostID:    post.ID,
		Author:    post.Author.Username,
		Text:      snippet(post.Text),
		Published: post.PubDate,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	pipe := n.client.Pipeline()
	for _, id := range followerIDs {
		pipe.Publish(ctx, userChannel(id), payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		middleware.Logger.WarnContext(ctx, "follower fanout publish failed",
			slog.String("error", err.Error()))
	}
}

// PublishBroadcast pushes an event to every connected user on every instance.
func (n *RedisNotifier) PublishBroadcast(ctx context.Context, event Event) error {
	if n.client == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, broadcastChannel, payload).Err()
}

func userChannel(userID uint) string {
	return fmt.Sprintf("%s%d", userChannelPrefix, userID)
}

// StartSubscriber bridges Redis pub/sub into the local hub. It runs until
// ctx is cancelled.
func (n *RedisNotifier) StartSubscriber(ctx context.Context) {
	if n.client == nil {
		return
	}

	sub := n.client.PSubscribe(ctx, userChannelPrefix+"*")
	bcast := n.client.Subscribe(ctx, broadcastChannel)

	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				raw := strings.TrimPrefix(msg.Channel, userChannelPrefix)
				userID, err := strconv.ParseUint(raw, 10, 32)
				if err != nil {
					continue
				}
				n.hub.Send(uint(userID), []byte(msg.Payload))
			}
		}
	}()

	go func() {
		defer bcast.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-bcast.Channel():
				if !ok {
					return
				}
				n.hub.SendAll([]byte(msg.Payload))
			}
		}
	}()
}
