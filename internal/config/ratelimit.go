package config

import "time"

// RateLimitConfig configures the Redis token bucket.  Every key starts with
// Burst tokens and earns one back each RefillEvery.
type RateLimitConfig struct {
    Enabled     bool
    Burst       int
    RefillEvery time.Duration
    KeyStrategy string // ip, user, client_user, ip_user or user_route
    Prefix      string
    Debug       bool   // expose the bucket key in X-RateLimit-Key
}

// TTL is how long an idle bucket is kept: long enough to refill completely.
func (c RateLimitConfig) TTL() time.Duration {
    return max(time.Minute, time.Duration(c.Burst)*c.RefillEvery)
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables.
func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled:     envBool("RATE_LIMIT_ENABLED", true),
        Burst:       envInt("RATE_LIMIT_BURST", 60),
        RefillEvery: envDur("RATE_LIMIT_REFILL_EVERY", time.Second),
        KeyStrategy: envStr("RATE_LIMIT_KEY_STRATEGY", "client_user"),
        Prefix:      envStr("RATE_LIMIT_PREFIX", "phenom:rl"),
        Debug:       envBool("RATE_LIMIT_DEBUG", false),
    }
    cfg.Burst = max(cfg.Burst, 1)
    if cfg.RefillEvery <= 0 {
        cfg.RefillEvery = time.Second
    }
    return cfg
}
