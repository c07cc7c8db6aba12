package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	StateKey   = "drivescore:state"
	DefaultTTL = 24 * time.Hour
)

// Connect returns nil when no address is configured.
func Connect(addr, password string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
}

// Snapshots stores the latest derived state under StateKey so presentation
// clients can poll Redis instead of the service. The service only writes.
type Snapshots struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

func NewSnapshots(rdb *redis.Client) *Snapshots {
	return &Snapshots{rdb: rdb, key: StateKey, ttl: DefaultTTL}
}

func (s *Snapshots) Put(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

func (s *Snapshots) Close() error {
	return s.rdb.Close()
}
