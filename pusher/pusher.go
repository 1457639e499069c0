package pusher

import (
	"context"
	"evroam/event"
	"evroam/internal/config"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// MessagePusher publishes change events to redis for consumers outside the
// process and keeps the last event of every channel.
type MessagePusher struct {
	client *redis.Client
	prefix string
	log    zerolog.Logger
}

func NewPusher(conf *config.Config, log zerolog.Logger) (*MessagePusher, error) {
	if !conf.Redis.Enabled {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:         conf.Redis.Addr,
		Password:     conf.Redis.Password,
		DB:           conf.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	log.Info().Str("addr", conf.Redis.Addr).Int("db", conf.Redis.DB).Msg("connected to redis")
	return newPusher(client, conf.Redis.Prefix, log), nil
}

func newPusher(client *redis.Client, prefix string, log zerolog.Logger) *MessagePusher {
	return &MessagePusher{client: client, prefix: prefix, log: log}
}

func (p *MessagePusher) Name() string {
	return "redis"
}

func (p *MessagePusher) Handle(ctx context.Context, ev event.Event) error {
	payload, err := event.Marshal(ev)
	if err != nil {
		return err
	}
	channel := Channel(p.prefix, ev.EntityRef(), ev.Variant())
	_, err = p.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Publish(ctx, channel, payload)
		pipe.Set(ctx, LastKey(p.prefix, ev.EntityRef(), ev.Variant()), payload, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	p.log.Debug().Str("channel", channel).Uint64("sequence", ev.Sequence()).Msg("published")
	return nil
}

func (p *MessagePusher) Close() error {
	return p.client.Close()
}
