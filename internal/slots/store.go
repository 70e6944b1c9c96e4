package slots

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wolfman30/practice-booking/internal/practice"
)

// Source hands out the dispatcher to use for a request.
type Source interface {
	Dispatcher(ctx context.Context) (*Dispatcher, error)
}

// StaticSource always returns the same dispatcher.
type StaticSource struct {
	D *Dispatcher
}

func (s StaticSource) Dispatcher(context.Context) (*Dispatcher, error) {
	if s.D == nil {
		return DefaultDispatcher(), nil
	}
	return s.D, nil
}

// RuleStore persists per-practice rule overrides in redis. Practices without
// an override use the built-in table.
type RuleStore struct {
	redis *redis.Client
	ttl   time.Duration
	now   func() time.Time

	mu       sync.Mutex
	cached   *Dispatcher
	cachedAt time.Time
}

// NewRuleStore creates a rules store. A positive ttl caches the assembled
// dispatcher for that long; writes through the store drop the cache.
func NewRuleStore(redisClient *redis.Client, ttl time.Duration) *RuleStore {
	if redisClient == nil {
		panic("slots: redis client required")
	}
	return &RuleStore{redis: redisClient, ttl: ttl, now: time.Now}
}

func (s *RuleStore) key(id practice.ID) string {
	return fmt.Sprintf("practice:rules:%s", id)
}

// Get returns the effective rules and whether they come from an override.
func (s *RuleStore) Get(ctx context.Context, id practice.ID) (Rules, bool, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		rules, ok := BuiltinRules()[id]
		if !ok {
			return Rules{}, false, fmt.Errorf("%w: %q", practice.ErrUnknownPractice, id)
		}
		return rules, false, nil
	}
	if err != nil {
		return Rules{}, false, fmt.Errorf("slots: get rules: %w", err)
	}
	var rules Rules
	if err := json.Unmarshal(data, &rules); err != nil {
		return Rules{}, false, fmt.Errorf("slots: unmarshal rules: %w", err)
	}
	return rules, true, nil
}

// Set validates and stores an override.
func (s *RuleStore) Set(ctx context.Context, id practice.ID, rules Rules) error {
	if err := rules.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(rules)
	if err != nil {
		return fmt.Errorf("slots: marshal rules: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(id), data, 0).Err(); err != nil {
		return fmt.Errorf("slots: set rules: %w", err)
	}
	s.invalidate()
	return nil
}

// Delete removes an override, restoring the built-in rules.
func (s *RuleStore) Delete(ctx context.Context, id practice.ID) error {
	if err := s.redis.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("slots: delete rules: %w", err)
	}
	s.invalidate()
	return nil
}

// Dispatcher assembles the built-in table plus all stored overrides.
func (s *RuleStore) Dispatcher(ctx context.Context) (*Dispatcher, error) {
	if d := s.fromCache(); d != nil {
		return d, nil
	}

	ids := practice.All()
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("slots: load rules: %w", err)
	}

	d := DefaultDispatcher()
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var rules Rules
		if err := json.Unmarshal([]byte(raw), &rules); err != nil {
			return nil, fmt.Errorf("slots: unmarshal rules for %s: %w", ids[i], err)
		}
		d = d.WithRules(ids[i], rules)
	}

	s.store(d)
	return d, nil
}

func (s *RuleStore) fromCache() *Dispatcher {
	if s.ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil && s.now().Sub(s.cachedAt) < s.ttl {
		return s.cached
	}
	return nil
}

func (s *RuleStore) store(d *Dispatcher) {
	if s.ttl <= 0 {
		return
	}
	s.mu.Lock()
	s.cached = d
	s.cachedAt = s.now()
	s.mu.Unlock()
}

func (s *RuleStore) invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}
