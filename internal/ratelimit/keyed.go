package ratelimit

import (
	"container/list"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMaxKeys bounds how many per-key buckets are remembered.
const DefaultMaxKeys = 10000

// Keyed hands out one token bucket per key (usually a client IP). The least
// recently used bucket is dropped once MaxKeys is reached.
type Keyed struct {
	limit rate.Limit
	burst int
	max   int
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucketEntry
	lru     *list.List
}

type bucketEntry struct {
	limiter *rate.Limiter
	elem    *list.Element
}

type Config struct {
	// Every is the refill interval of one token.
	Every   time.Duration
	Burst   int
	MaxKeys int
	Now     func() time.Time
}

func NewKeyed(cfg Config) *Keyed {
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = DefaultMaxKeys
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	limit := rate.Inf
	if cfg.Every > 0 {
		limit = rate.Every(cfg.Every)
	}

	return &Keyed{
		limit:   limit,
		burst:   cfg.Burst,
		max:     cfg.MaxKeys,
		now:     cfg.Now,
		buckets: make(map[string]*bucketEntry),
		lru:     list.New(),
	}
}

// Allow reports whether key may proceed now.
func (k *Keyed) Allow(key string) bool {
	return k.bucket(key).AllowN(k.now(), 1)
}

// Len returns the number of remembered keys.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}

func (k *Keyed) bucket(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	if entry, ok := k.buckets[key]; ok {
		k.lru.MoveToFront(entry.elem)
		return entry.limiter
	}

	if len(k.buckets) >= k.max {
		if elem := k.lru.Back(); elem != nil {
			k.lru.Remove(elem)
			delete(k.buckets, elem.Value.(string))
		}
	}

	entry := &bucketEntry{
		limiter: rate.NewLimiter(k.limit, k.burst),
		elem:    k.lru.PushFront(key),
	}
	k.buckets[key] = entry
	return entry.limiter
}
