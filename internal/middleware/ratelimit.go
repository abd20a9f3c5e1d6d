package middleware

import (
    "context"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/phenom-api/internal/config"
)

// bucketScript refills and takes one token atomically.
// KEYS[1] bucket; ARGV now_ms, burst, refill_ms, ttl_s.
// Returns {allowed, remaining, retry_ms}.
var bucketScript = redis.NewScript(`
local now, burst, refill, ttl = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4])
local b = redis.call('HMGET', KEYS[1], 'tokens', 'at')
local tokens, at = tonumber(b[1]), tonumber(b[2])
if tokens == nil then
  tokens, at = burst, now
end
local earned = math.floor(math.max(0, now - at) / refill)
if earned > 0 then
  tokens = math.min(burst, tokens + earned)
  at = at + earned * refill
end
local allowed, retry = 0, 0
if tokens > 0 then
  allowed, tokens = 1, tokens - 1
else
  retry = math.max(0, refill - (now - at))
end
redis.call('HSET', KEYS[1], 'tokens', tokens, 'at', at)
redis.call('EXPIRE', KEYS[1], ttl)
return {allowed, tokens, retry}
`)

type decision struct {
    allowed   bool
    remaining int64
    retry     time.Duration
}

type limiter struct {
    cfg config.RateLimitConfig
    rdb *redis.Client
    now func() time.Time
}

func (l *limiter) take(ctx context.Context, key string) (decision, error) {
    vals, err := bucketScript.Run(ctx, l.rdb, []string{key},
        l.now().UnixMilli(),
        l.cfg.Burst,
        l.cfg.RefillEvery.Milliseconds(),
        int64(l.cfg.TTL()/time.Second),
    ).Int64Slice()
    if err != nil {
        return decision{}, err
    }
    if len(vals) != 3 {
        return decision{}, redis.Nil
    }
    return decision{
        allowed:   vals[0] == 1,
        remaining: vals[1],
        retry:     time.Duration(vals[2]) * time.Millisecond,
    }, nil
}

// NewTokenBucket limits requests per key with a token bucket kept in
// Redis.  It runs after authentication so buckets can be per user.  When
// Redis fails the request is let through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    if log == nil {
        log = zap.NewNop()
    }
    l := &limiter{cfg: cfg, rdb: rdb, now: time.Now}

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            d, err := l.take(c.Request().Context(), key)
            if err != nil {
                log.Warn("ratelimit: bucket unavailable", zap.String("key", key), zap.Error(err))
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Burst))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if d.allowed {
                return next(c)
            }

            secs := int((d.retry + time.Second - 1) / time.Second)
            h.Set("Retry-After", strconv.Itoa(secs))
            log.Debug("ratelimit: rejected", zap.String("key", key), zap.Duration("retry", d.retry))
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "errorCode":    http.StatusTooManyRequests,
                "errorMessage": "Too many requests, please slow down",
                "retryAfter":   secs,
            })
        }
    }
}

// buildRateKey names the bucket a request draws from.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    client := "none"
    if cl := Client(c); cl != nil {
        client = cl.ClientID
    }

    parts := []string{cfg.Prefix}
    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        parts = append(parts, "ip", ip)
    case "user":
        parts = append(parts, "user", userID(c))
    case "ip_user":
        parts = append(parts, "ip", ip, "user", userID(c))
    case "user_route":
        parts = append(parts, "user", userID(c), "route", c.Request().Method+" "+c.Path())
    default: // client_user
        parts = append(parts, "client", client, "user", userID(c))
    }
    return strings.Join(parts, ":")
}
