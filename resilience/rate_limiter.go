package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned by Execute when no token is available.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimiterConfig configures a token bucket.
type RateLimiterConfig struct {
	Name string `mapstructure:"-"`
	// Rate is the refill rate in tokens per second.
	Rate  float64 `mapstructure:"rate"`
	Burst int     `mapstructure:"burst"`
}

// DefaultRateLimiterConfig allows 5 requests per second with bursts of 10.
func DefaultRateLimiterConfig(name string) RateLimiterConfig {
	return RateLimiterConfig{Name: name, Rate: 5, Burst: 10}
}

// RateLimiter is a token bucket.
type RateLimiter struct {
	config RateLimiterConfig

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// NewRateLimiter creates a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 5
	}
	if config.Burst <= 0 {
		config.Burst = int(config.Rate)
		if config.Burst < 1 {
			config.Burst = 1
		}
	}
	return &RateLimiter{
		config:     config,
		tokens:     float64(config.Burst),
		lastRefill: time.Now(),
	}
}

// Allow takes one token if available.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.tokens += now.Sub(rl.lastRefill).Seconds() * rl.config.Rate
	rl.lastRefill = now
	if burst := float64(rl.config.Burst); rl.tokens > burst {
		rl.tokens = burst
	}

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// Execute runs fn if a token is available and returns ErrRateLimited otherwise.
func (rl *RateLimiter) Execute(fn func() error) error {
	if !rl.Allow() {
		return ErrRateLimited
	}
	return fn()
}

// KeyedRateLimiter keeps one bucket per key, typically a client IP.
// Buckets idle for longer than the idle window are evicted on access.
type KeyedRateLimiter struct {
	config RateLimiterConfig
	idle   time.Duration

	mu      sync.Mutex
	buckets map[string]*keyedBucket
	swept   time.Time
}

type keyedBucket struct {
	limiter *RateLimiter
	seen    time.Time
}

// NewKeyedRateLimiter creates a per-key limiter.
func NewKeyedRateLimiter(config RateLimiterConfig, idle time.Duration) *KeyedRateLimiter {
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	return &KeyedRateLimiter{
		config:  config,
		idle:    idle,
		buckets: make(map[string]*keyedBucket),
		swept:   time.Now(),
	}
}

// Allow takes one token from key's bucket.
func (k *KeyedRateLimiter) Allow(key string) bool {
	now := time.Now()

	k.mu.Lock()
	if now.Sub(k.swept) > k.idle {
		for name, b := range k.buckets {
			if now.Sub(b.seen) > k.idle {
				delete(k.buckets, name)
			}
		}
		k.swept = now
	}
	b, ok := k.buckets[key]
	if !ok {
		b = &keyedBucket{limiter: NewRateLimiter(k.config)}
		k.buckets[key] = b
	}
	b.seen = now
	k.mu.Unlock()

	return b.limiter.Allow()
}

// Len returns the number of tracked keys.
func (k *KeyedRateLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}
