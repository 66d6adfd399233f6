// Package oraclecache keeps oracle replies keyed by model and prompt so an
// identical request is answered without calling the model again.
package oraclecache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/joelkehle/offerdraft/internal/offer"
)

const DefaultTTL = 24 * time.Hour

type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Key hashes the model name and the prompt. The model is part of the key so
// switching providers never serves another model's reply.
func Key(model, prompt string) string {
	h := xxhash.New()
	_, _ = h.WriteString(model)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(prompt)
	return "offerdraft:reply:" + strconv.FormatUint(h.Sum64(), 16)
}

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// DialRedis connects and pings so a bad address fails at startup.
func DialRedis(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return NewRedisStore(client), nil
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

type memoryEntry struct {
	value   string
	expires time.Time
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]memoryEntry
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[key]
	if !ok {
		return "", false, nil
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		delete(m.data, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.data[key] = e
	return nil
}

// Oracle wraps an offer.Oracle with a reply cache. Store failures are logged
// and the call falls through to the wrapped oracle.
type Oracle struct {
	next   offer.Oracle
	store  Store
	ttl    time.Duration
	logger *zap.Logger
	keep   func(reply string) bool
}

func Wrap(next offer.Oracle, store Store, ttl time.Duration, logger *zap.Logger) *Oracle {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Oracle{next: next, store: store, ttl: ttl, logger: logger, keep: offer.LooksComplete}
}

func (o *Oracle) ModelName() string { return o.next.ModelName() }

func (o *Oracle) Generate(ctx context.Context, prompt string) (string, error) {
	key := Key(o.next.ModelName(), prompt)
	if val, ok, err := o.store.Get(ctx, key); err != nil {
		o.logger.Warn("oracle cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		o.logger.Debug("oracle cache hit", zap.String("key", key))
		return val, nil
	}

	reply, err := o.next.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if o.keep(reply) {
		if err := o.store.Set(ctx, key, reply, o.ttl); err != nil {
			o.logger.Warn("oracle cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return reply, nil
}
