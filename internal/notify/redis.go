// Package notify publishes capture events to Redis pub/sub so that other
// kiosk components (printers, signage) can react to new photos.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ayusman/akushu/internal/detector"
	"github.com/ayusman/akushu/internal/handshake"
	"github.com/ayusman/akushu/internal/logging"
	"github.com/ayusman/akushu/internal/photo"
)

const publishTimeout = 2 * time.Second

// Publisher is the subset of the Redis client used here.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// CaptureEvent is the JSON payload published for every capture.
type CaptureEvent struct {
	Type       string    `json:"type"`
	PhotoID    string    `json:"photo_id"`
	SessionID  string    `json:"session_id,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
	Distance   float64   `json:"distance"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Mirrored   bool      `json:"mirrored"`
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// Redis is a display that publishes capture events.
type Redis struct {
	pub     Publisher
	client  *redis.Client
	channel string
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewRedis connects to Redis. Connectivity is checked but a failed ping is
// only logged; publishing retries on every event.
func NewRedis(opts Options) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	r := NewPublisher(client, opts.Channel)
	r.client = client

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		r.logger.Warn("redis not reachable, capture events may be lost", "addr", opts.Addr, "error", err)
	} else {
		r.logger.Info("connected to redis", "addr", opts.Addr, "channel", opts.Channel)
	}
	return r
}

// NewPublisher wraps an existing publisher.
func NewPublisher(pub Publisher, channel string) *Redis {
	return &Redis{
		pub:     pub,
		channel: channel,
		logger:  logging.GetLogger().With("component", "notify"),
	}
}

// Publish sends one capture event synchronously.
func (r *Redis) Publish(ctx context.Context, p *photo.Photo) error {
	payload, err := json.Marshal(CaptureEvent{
		Type:       "capture",
		PhotoID:    p.ID,
		SessionID:  p.SessionID,
		CapturedAt: p.CapturedAt,
		Distance:   p.Distance,
		Width:      p.Width,
		Height:     p.Height,
		Mirrored:   p.Mirrored,
	})
	if err != nil {
		return fmt.Errorf("marshal capture event: %w", err)
	}

	if err := r.pub.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", r.channel, err)
	}
	return nil
}

func (r *Redis) ShowHands([]detector.Hand, handshake.Result) {}

// ShowPhoto publishes in the background.
func (r *Redis) ShowPhoto(p *photo.Photo) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := r.Publish(ctx, p); err != nil {
			r.logger.Warn("capture event not published", "photo", p.ID, "error", err)
		}
	}()
}

// Wait blocks until pending publishes are done.
func (r *Redis) Wait() {
	r.wg.Wait()
}

// Close waits for pending publishes and closes the connection.
func (r *Redis) Close() error {
	r.wg.Wait()
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
