package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// Optional settings fall back to their default when unset or unparsable.
// Required settings go through loader instead, which reports the problem.

func envStr(key, def string) string {
    if v := strings.TrimSpace(os.Getenv(key)); v != "" {
        return v
    }
    return def
}

func envBool(key string, def bool) bool {
    switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
    case "1", "true", "yes", "on":
        return true
    case "0", "false", "no", "off":
        return false
    }
    return def
}

func envInt(key string, def int) int {
    if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
        return n
    }
    return def
}

// envDur accepts Go durations ("1m30s") and bare seconds ("90").
func envDur(key string, def time.Duration) time.Duration {
    v := strings.TrimSpace(os.Getenv(key))
    if n, err := strconv.Atoi(v); err == nil {
        return time.Duration(n) * time.Second
    }
    if d, err := time.ParseDuration(v); err == nil {
        return d
    }
    return def
}
