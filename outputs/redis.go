package outputs

import (
	"context"
	"encoding/json"
	"fmt"

	"digestbot/config"

	"github.com/redis/go-redis/v9"
)

// LatestDigestKey holds the most recent snapshot
const LatestDigestKey = "digest:latest"

// Announcement is published to the Redis channel after each run
type Announcement struct {
	Title     string `json:"title"`
	DateRange string `json:"date_range"`
	Date      string `json:"date"`
	Total     int    `json:"total"`
	Summary   bool   `json:"has_summary"`
}

// RedisSink stores the latest snapshot and announces the run
type RedisSink struct {
	client  *redis.Client
	channel string
}

// NewRedisClient connects to cfg.Addr
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewRedisSink creates a sink publishing on channel
func NewRedisSink(client *redis.Client, channel string) *RedisSink {
	return &RedisSink{client: client, channel: channel}
}

func (r *RedisSink) Name() string { return "redis" }

func (r *RedisSink) Write(ctx context.Context, d *Digest) (string, error) {
	if r.client == nil {
		return "", fmt.Errorf("%w: REDIS_ADDR missing", ErrNotConfigured)
	}

	raw, err := SnapshotJSON(d)
	if err != nil {
		return "", err
	}
	if err := r.client.Set(ctx, LatestDigestKey, raw, 0).Err(); err != nil {
		return "", fmt.Errorf("redis set: %w", err)
	}

	msg, err := json.Marshal(Announcement{
		Title:     d.Title,
		DateRange: d.DateRange,
		Date:      d.Date(),
		Total:     d.Total(),
		Summary:   d.Summary != "",
	})
	if err != nil {
		return "", err
	}
	if err := r.client.Publish(ctx, r.channel, msg).Err(); err != nil {
		return "", fmt.Errorf("redis publish: %w", err)
	}
	return fmt.Sprintf("redis://%s/%s", r.client.Options().Addr, LatestDigestKey), nil
}
