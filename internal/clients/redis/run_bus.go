// Package redis carries run lifecycle events between processes: the
// worker publishes, the API node forwards to whoever is watching.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/openlegis/openlegis-backend/internal/pkg/logger"
)

// RunEvent is one ingestion run status transition.
type RunEvent struct {
	RunID      string    `json:"run_id"`
	SourceKind string    `json:"source_kind"`
	Status     string    `json:"status"`
	Applied    int       `json:"applied"`
	Failed     int       `json:"failed"`
	At         time.Time `json:"at"`
}

type RunBus interface {
	Publish(ctx context.Context, ev RunEvent) error
	// StartForwarder blocks on the subscription until ctx is done,
	// invoking onEvent for every decodable message.
	StartForwarder(ctx context.Context, onEvent func(ev RunEvent)) error
	Close() error
}

type runBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewRunBus(log *logger.Logger) (RunBus, error) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(os.Getenv("REDIS_RUN_CHANNEL"))
	if ch == "" {
		ch = "ingest-runs"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    os.Getenv("REDIS_PASSWORD"),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &runBus{
		log:     log.With("client", "RedisRunBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (b *runBus) Publish(ctx context.Context, ev RunEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	buf, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, buf).Err()
}

func (b *runBus) StartForwarder(ctx context.Context, onEvent func(ev RunEvent)) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev RunEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.Warn("dropping undecodable run event", "error", err)
				continue
			}
			onEvent(ev)
		}
	}
}

func (b *runBus) Close() error { return b.rdb.Close() }
