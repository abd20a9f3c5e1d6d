package config // package config loads application configuration from environment variables

import (
    "fmt"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/hashicorp/go-version"
    "go.uber.org/multierr"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Token lifetimes are durations ("3600s", "720h").
type Config struct {
    Env      string // application environment (e.g. "dev", "prod")
    Port     string // HTTP port to listen on
    LogLevel string // zap level: debug, info, warn, error

    DBUser string // database username
    DBPass string // database password (optional)
    DBHost string // database host address
    DBPort string // database port number
    DBName string // database name

    TokenLifetime         time.Duration // lifetime of Phenom bearer tokens
    FacebookTokenLifetime time.Duration // lifetime of Facebook-bound bearer tokens
    TwitterTokenLifetime  time.Duration // lifetime of Twitter-bound bearer tokens
    BearerExpiryEnforced  bool          // reject bearer tokens past their lifetime
    APIMinVersion         string        // oldest apiversion header still served
    BcryptCost            int           // bcrypt cost for passwords and client secrets

    ResetTokenSecret string        // HS256 secret for password reset tokens
    ResetTokenTTL    time.Duration // validity of a reset token

    AWSRegion                 string // region for S3 and SNS
    S3UserBucket              string // bucket holding profile and moment images
    SNSPlatformApplicationARN string // APNS platform application for push endpoints

    RabbitMQURL string // broker for domain events; empty disables publishing

    MailProvider     string // "log" (default) or "ses"
    MailFrom         string // sender address for SES mail
    PasswordResetURL string // page the reset mail links to

    FacebookGraphURL      string // Graph API base URL
    FacebookAppSecret     string // signs appsecret_proof; empty skips it
    TwitterAPIURL         string // Twitter REST API base URL
    TwitterConsumerKey    string // OAuth1 consumer key
    TwitterConsumerSecret string // OAuth1 consumer secret
}

// Load reads configuration values from environment variables.  Every
// missing or malformed required variable is reported in the returned error.
func Load() (Config, error) {
    var l loader
    cfg := Config{
        Env:      l.must("APP_ENV"),                 // environment (dev/test/prod)
        Port:     l.must("APP_PORT"),                // port to bind the HTTP server
        LogLevel: envStr("LOG_LEVEL", "info"),       // logger verbosity

        DBUser: l.must("DB_USER"),                   // database user
        DBPass: os.Getenv("DB_PASS"),                // database password (empty allowed)
        DBHost: l.must("DB_HOST"),                   // database host
        DBPort: l.must("DB_PORT"),                   // database port
        DBName: l.must("DB_NAME"),                   // database name

        TokenLifetime:         l.dur("TOKEN_LIFETIME", time.Hour),
        FacebookTokenLifetime: l.dur("FACEBOOK_TOKEN_LIFETIME", 30*24*time.Hour),
        TwitterTokenLifetime:  l.dur("TWITTER_TOKEN_LIFETIME", 30*24*time.Hour),
        BearerExpiryEnforced:  envBool("BEARER_EXPIRY_ENFORCED", false),
        APIMinVersion:         envStr("API_MIN_VERSION", "1.2.3"),
        BcryptCost:            l.mustInt("BCRYPT_COST"), // bcrypt cost factor

        ResetTokenSecret: l.must("RESET_TOKEN_SECRET"),
        ResetTokenTTL:    l.dur("RESET_TOKEN_TTL", 24*time.Hour),

        AWSRegion:                 envStr("AWS_REGION", "us-east-1"),
        S3UserBucket:              l.must("S3_USER_BUCKET"),
        SNSPlatformApplicationARN: l.must("SNS_PLATFORM_APPLICATION_ARN"),

        RabbitMQURL: os.Getenv("RABBITMQ_URL"),

        MailProvider:     strings.ToLower(envStr("MAIL_PROVIDER", "log")),
        MailFrom:         os.Getenv("MAIL_FROM"),
        PasswordResetURL: envStr("PASSWORD_RESET_URL", "https://phenom.app/reset-password"),

        FacebookGraphURL:      envStr("FACEBOOK_GRAPH_URL", "https://graph.facebook.com/v2.3"),
        FacebookAppSecret:     os.Getenv("FACEBOOK_APP_SECRET"),
        TwitterAPIURL:         envStr("TWITTER_API_URL", "https://api.twitter.com/1.1"),
        TwitterConsumerKey:    os.Getenv("TWITTER_CONSUMER_KEY"),
        TwitterConsumerSecret: os.Getenv("TWITTER_CONSUMER_SECRET"),
    }
    switch cfg.MailProvider {
    case "log":
    case "ses":
        if cfg.MailFrom == "" {
            l.errs = multierr.Append(l.errs, fmt.Errorf("MAIL_FROM is required when MAIL_PROVIDER=ses"))
        }
    default:
        l.errs = multierr.Append(l.errs, fmt.Errorf("unknown MAIL_PROVIDER: %q", cfg.MailProvider))
    }
    if _, err := version.NewVersion(cfg.APIMinVersion); err != nil {
        l.errs = multierr.Append(l.errs, fmt.Errorf("API_MIN_VERSION: %w", err))
    }
    if cfg.BcryptCost != 0 && (cfg.BcryptCost < 4 || cfg.BcryptCost > 31) {
        l.errs = multierr.Append(l.errs, fmt.Errorf("BCRYPT_COST out of range: %d", cfg.BcryptCost))
    }
    return cfg, l.errs
}

// loader accumulates errors for required variables instead of exiting on
// the first one.
type loader struct {
    errs error
}

// must retrieves the value of a required environment variable.
func (l *loader) must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        l.errs = multierr.Append(l.errs, fmt.Errorf("missing required env var: %s", key))
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func (l *loader) mustInt(key string) int {
    s := l.must(key)
    if s == "" {
        return 0
    }
    n, err := strconv.Atoi(s)
    if err != nil {
        l.errs = multierr.Append(l.errs, fmt.Errorf("invalid int for %s: %q", key, s))
    }
    return n
}

// dur parses an optional duration.  Bare integers are read as seconds.
func (l *loader) dur(key string, def time.Duration) time.Duration {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    if n, err := strconv.Atoi(v); err == nil {
        return time.Duration(n) * time.Second
    }
    d, err := time.ParseDuration(v)
    if err != nil || d <= 0 {
        l.errs = multierr.Append(l.errs, fmt.Errorf("invalid duration for %s: %q", key, v))
        return def
    }
    return d
}
