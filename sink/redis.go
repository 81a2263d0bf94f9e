package sink

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const snapshotHash = "managed:snapshots"

// RedisSink keeps the latest snapshot of each object in a Redis hash,
// keyed by object name.
type RedisSink struct {
	client *redis.Client
}

func NewRedisSink(redisAddr string) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisSink{client: client}, nil
}

func (s *RedisSink) Name() string {
	return "redis"
}

func (s *RedisSink) Write(ctx context.Context, snap *Snapshot) error {
	snapJSON, err := snap.ToJSON()
	if err != nil {
		return err
	}

	return s.client.HSet(ctx, snapshotHash, snap.ObjectName, snapJSON).Err()
}

// Read returns the latest snapshot stored for an object name.
func (s *RedisSink) Read(ctx context.Context, objectName string) (*Snapshot, error) {
	snapJSON, err := s.client.HGet(ctx, snapshotHash, objectName).Result()
	if err != nil {
		return nil, err
	}

	return SnapshotFromJSON(snapJSON)
}

// ReadAll returns the latest snapshot of every object.
func (s *RedisSink) ReadAll(ctx context.Context) ([]*Snapshot, error) {
	snapMap, err := s.client.HGetAll(ctx, snapshotHash).Result()
	if err != nil {
		return nil, err
	}

	snaps := make([]*Snapshot, 0, len(snapMap))
	for _, snapJSON := range snapMap {
		snap, err := SnapshotFromJSON(snapJSON)
		if err != nil {
			continue
		}
		snaps = append(snaps, snap)
	}

	return snaps, nil
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
