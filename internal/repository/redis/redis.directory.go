// FilePath: internal/repository/redis/redis.directory.go
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/segmentio/encoding/json"
	nuts "github.com/vaudience/go-nuts"

	"github.com/eval-printer/SmartHome-Demo/internal/config"
	"github.com/eval-printer/SmartHome-Demo/internal/models"
	"github.com/eval-printer/SmartHome-Demo/internal/transport"
)

const (
	typeKeyPrefix   = "smarthome:rt:"
	AnnounceChannel = "smarthome:announce"
)

// Directory is a resource directory shared by all processes through Redis. Every
// resource type is a hash keyed by host+URI; advertisements are also published
// on AnnounceChannel.
type Directory struct {
	client *goredis.Client
}

// NewClient opens a Redis client from configuration and verifies the connection.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("error connecting to Redis: %w", err)
	}
	nuts.L.Infof("[RedisDirectory] Connected to %s:%d/%d", cfg.Host, cfg.Port, cfg.DB)
	return client, nil
}

// NewDirectory wraps an open client.
func NewDirectory(client *goredis.Client) *Directory {
	return &Directory{client: client}
}

// Advertise implements transport.Directory.
func (d *Directory) Advertise(ctx context.Context, info models.ResourceInfo) error {
	payload, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", info.Key(), err)
	}
	pipe := d.client.TxPipeline()
	for _, rt := range info.Types {
		pipe.HSet(ctx, typeKeyPrefix+rt, info.Key(), payload)
	}
	pipe.Publish(ctx, AnnounceChannel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to advertise %s: %w", info.Key(), err)
	}
	return nil
}

// Withdraw implements transport.Directory.
func (d *Directory) Withdraw(ctx context.Context, info models.ResourceInfo) error {
	pipe := d.client.TxPipeline()
	for _, rt := range info.Types {
		pipe.HDel(ctx, typeKeyPrefix+rt, info.Key())
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to withdraw %s: %w", info.Key(), err)
	}
	return nil
}

// Find implements transport.Directory.
func (d *Directory) Find(ctx context.Context, q transport.Query) (<-chan models.ResourceInfo, error) {
	keys := []string{typeKeyPrefix + q.ResourceType}
	if q.ResourceType == "" {
		var err error
		keys, err = d.typeKeys(ctx)
		if err != nil {
			return nil, err
		}
	}

	out := make(chan models.ResourceInfo)
	go func() {
		defer close(out)
		for _, key := range keys {
			entries, err := d.client.HGetAll(ctx, key).Result()
			if err != nil {
				nuts.L.Warnf("[RedisDirectory] Failed to read %s: %v", key, err)
				continue
			}
			for field, raw := range entries {
				var info models.ResourceInfo
				if err := json.Unmarshal([]byte(raw), &info); err != nil {
					nuts.L.Warnf("[RedisDirectory] Skipping malformed entry %s: %v", field, err)
					continue
				}
				if !q.Matches(info) {
					continue
				}
				select {
				case out <- info:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Announcements streams advertisements made by any process until ctx is done.
func (d *Directory) Announcements(ctx context.Context) <-chan models.ResourceInfo {
	sub := d.client.Subscribe(ctx, AnnounceChannel)
	out := make(chan models.ResourceInfo)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var info models.ResourceInfo
				if err := json.Unmarshal([]byte(msg.Payload), &info); err != nil {
					continue
				}
				select {
				case out <- info:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (d *Directory) typeKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := d.client.Scan(ctx, 0, typeKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list resource types: %w", err)
	}
	return keys, nil
}
