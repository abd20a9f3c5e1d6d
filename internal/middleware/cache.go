package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/hex"
    "encoding/json"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/phenom-api/internal/config"
)

// cachedResponse is what a cache entry holds.  Only the content type is
// kept from the headers; everything else is regenerated per request.
type cachedResponse struct {
    Status      int    `json:"s"`
    ContentType string `json:"ct"`
    Body        []byte `json:"b"`
}

func (r cachedResponse) replay(c echo.Context) error {
    c.Response().Header().Set("X-Cache", "HIT")
    return c.Blob(r.Status, r.ContentType, r.Body)
}

// teeWriter forwards the response and keeps a copy of up to limit bytes.
// A body over the limit is not cached.
type teeWriter struct {
    http.ResponseWriter
    status   int
    buf      bytes.Buffer
    limit    int
    overflow bool
}

func (w *teeWriter) WriteHeader(code int) {
    w.status = code
    w.ResponseWriter.WriteHeader(code)
}

func (w *teeWriter) Write(b []byte) (int, error) {
    if !w.overflow {
        if w.limit > 0 && w.buf.Len()+len(b) > w.limit {
            w.overflow = true
            w.buf.Reset()
        } else {
            w.buf.Write(b)
        }
    }
    return w.ResponseWriter.Write(b)
}

// cacheKeyFrom hashes the concrete request path, so /v1/users/a and
// /v1/users/b never share an entry.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    id := r.Method + " " + r.URL.Path
    if !strings.EqualFold(cfg.KeyStrategy, "path") {
        id += "?" + r.URL.RawQuery
    }
    sum := sha1.Sum([]byte(id))
    return cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}

// NewRedisCache caches successful responses of the wrapped route in Redis
// for cfg.TTL.  It is mounted on public profile reads only.  Redis errors
// fall through to the handler.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 30 * time.Second
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[c.Request().Method] {
                return next(c)
            }
            key := cacheKeyFrom(cfg, c)

            if raw, err := rdb.Get(c.Request().Context(), key).Bytes(); err == nil {
                var hit cachedResponse
                if json.Unmarshal(raw, &hit) == nil && hit.Status != 0 {
                    return hit.replay(c)
                }
            }

            w := &teeWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = w
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if w.status != http.StatusOK || w.overflow {
                return nil
            }

            entry, err := json.Marshal(cachedResponse{
                Status:      w.status,
                ContentType: c.Response().Header().Get(echo.HeaderContentType),
                Body:        w.buf.Bytes(),
            })
            if err == nil {
                // The request may already be done; the write must still land.
                _ = rdb.Set(context.WithoutCancel(c.Request().Context()), key, entry, ttl).Err()
            }
            return nil
        }
    }
}
