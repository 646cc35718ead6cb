// Package capture keeps a Redis index of leads submitted through the public
// capture form so the sales team can see recent intake by source and area.
package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "leads:"
	maxListLength = 5000
)

// Entry is the snapshot stored for one captured lead.
type Entry struct {
	ID              string    `json:"id"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	Neighborhood    string    `json:"neighborhood"`
	City            string    `json:"city"`
	State           string    `json:"state"`
	Source          string    `json:"source"`
	ServiceInterest string    `json:"serviceInterest"`
	CapturedAt      time.Time `json:"capturedAt"`
}

// RedisFeed stores each entry as a JSON blob under its lead id and pushes the
// id onto leads:all, leads:source:<source> and leads:neighborhood:<name>.
type RedisFeed struct {
	client *redis.Client
	prefix string
}

func NewRedisFeed(redisURL string) (*RedisFeed, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisFeedWithClient(client), nil
}

func NewRedisFeedWithClient(client *redis.Client) *RedisFeed {
	return &RedisFeed{client: client, prefix: defaultPrefix}
}

func orUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

func (f *RedisFeed) allKey() string {
	return f.prefix + "all"
}

func (f *RedisFeed) sourceKey(source string) string {
	return f.prefix + "source:" + orUnknown(source)
}

func (f *RedisFeed) neighborhoodKey(neighborhood string) string {
	return f.prefix + "neighborhood:" + orUnknown(neighborhood)
}

// Record writes the entry and its index entries in one pipeline.
func (f *RedisFeed) Record(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		return errors.New("capture entry id is required")
	}
	if entry.CapturedAt.IsZero() {
		entry.CapturedAt = time.Now().UTC()
	}
	blob, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal capture entry: %w", err)
	}

	_, err = f.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, entry.ID, blob, 0)
		for _, key := range []string{f.allKey(), f.sourceKey(entry.Source), f.neighborhoodKey(entry.Neighborhood)} {
			pipe.LPush(ctx, key, entry.ID)
			pipe.LTrim(ctx, key, 0, maxListLength-1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record capture %s: %w", entry.ID, err)
	}
	return nil
}

// Recent returns the newest entries, optionally limited to one source.
func (f *RedisFeed) Recent(ctx context.Context, source string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	key := f.allKey()
	if source != "" {
		key = f.sourceKey(source)
	}

	ids, err := f.client.LRange(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list captures: %w", err)
	}
	entries := make([]Entry, 0, len(ids))
	if len(ids) == 0 {
		return entries, nil
	}

	blobs, err := f.client.MGet(ctx, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("load captures: %w", err)
	}
	for i, blob := range blobs {
		raw, ok := blob.(string)
		if !ok {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("unmarshal capture %s: %w", ids[i], err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Count returns the number of ids indexed under leads:all.
func (f *RedisFeed) Count(ctx context.Context) (int64, error) {
	count, err := f.client.LLen(ctx, f.allKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("count captures: %w", err)
	}
	return count, nil
}

func (f *RedisFeed) Ping(ctx context.Context) error {
	return f.client.Ping(ctx).Err()
}

func (f *RedisFeed) Close() error {
	return f.client.Close()
}
