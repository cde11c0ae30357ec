package connect

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// ErrFlowNotFound is returned by Take for unknown, expired or already
// consumed flows.
var ErrFlowNotFound = errors.New("connect flow not found")

// Flow is the server-side state of one pending connect.
type Flow struct {
	ID        string    `json:"id"`
	State     string    `json:"state"`
	ClientID  string    `json:"client_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// FlowStore keeps pending flows. Take is single use: a flow can be taken
// at most once.
type FlowStore interface {
	Put(ctx context.Context, f Flow, ttl time.Duration) error
	Take(ctx context.Context, id string) (Flow, error)
}

const redisKeyPrefix = "tubepost:connect:"

// RedisFlowStore keeps flows in Redis with SET EX and consumes them with
// GETDEL.
type RedisFlowStore struct {
	client redis.Cmdable
}

// NewRedisFlowStore wraps a go-redis client.
func NewRedisFlowStore(client redis.Cmdable) *RedisFlowStore {
	return &RedisFlowStore{client: client}
}

func (s *RedisFlowStore) Put(ctx context.Context, f Flow, ttl time.Duration) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKeyPrefix+f.ID, data, ttl).Err()
}

func (s *RedisFlowStore) Take(ctx context.Context, id string) (Flow, error) {
	data, err := s.client.GetDel(ctx, redisKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Flow{}, ErrFlowNotFound
		}
		return Flow{}, err
	}
	var f Flow
	if err := json.Unmarshal(data, &f); err != nil {
		return Flow{}, err
	}
	return f, nil
}

// RedisProbe reports Redis reachability to the health endpoint.
type RedisProbe struct {
	Client redis.UniversalClient
}

func (p RedisProbe) Name() string { return "redis" }

func (p RedisProbe) Check(ctx context.Context) error { return p.Client.Ping(ctx).Err() }

// MemoryFlowStore keeps flows in an expiring LRU inside the process. It
// only works when callback and begin reach the same instance.
type MemoryFlowStore struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, Flow]
}

// NewMemoryFlowStore holds at most size flows for ttl each.
func NewMemoryFlowStore(size int, ttl time.Duration) *MemoryFlowStore {
	if size <= 0 {
		size = 1024
	}
	return &MemoryFlowStore{cache: expirable.NewLRU[string, Flow](size, nil, ttl)}
}

// Put stores f. The per-call ttl is ignored in favor of the cache ttl.
func (s *MemoryFlowStore) Put(_ context.Context, f Flow, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Add(f.ID, f)
	return nil
}

func (s *MemoryFlowStore) Take(_ context.Context, id string) (Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.cache.Peek(id)
	if !ok {
		return Flow{}, ErrFlowNotFound
	}
	s.cache.Remove(id)
	return f, nil
}

var (
	_ FlowStore = (*RedisFlowStore)(nil)
	_ FlowStore = (*MemoryFlowStore)(nil)
)
