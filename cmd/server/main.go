package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/phenom-api/internal/config"
	"github.com/iliyamo/phenom-api/internal/database"
	"github.com/iliyamo/phenom-api/internal/handler"
	"github.com/iliyamo/phenom-api/internal/logger"
	"github.com/iliyamo/phenom-api/internal/media"
	"github.com/iliyamo/phenom-api/internal/metrics"
	"github.com/iliyamo/phenom-api/internal/middleware"
	"github.com/iliyamo/phenom-api/internal/provider"
	"github.com/iliyamo/phenom-api/internal/push"
	"github.com/iliyamo/phenom-api/internal/queue"
	"github.com/iliyamo/phenom-api/internal/repository"
	"github.com/iliyamo/phenom-api/internal/router"
	queue_publisher "github.com/iliyamo/phenom-api/internal/service"
	"github.com/iliyamo/phenom-api/internal/service/auth"
	"github.com/iliyamo/phenom-api/internal/service/cascade"
	"github.com/iliyamo/phenom-api/internal/service/password"
	"github.com/iliyamo/phenom-api/internal/service/social"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := config.LoadEnv(ctx, ".env") // Secrets Manager, then .env
	log := logger.New(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
	defer func() { _ = log.Sync() }()
	if envErr != nil {
		log.Warn("environment partially loaded", zap.Error(envErr))
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close()
	stores := repository.NewMySQLStores(db)

	awsCfg, err := config.AWS(ctx, cfg.AWSRegion)
	if err != nil {
		log.Fatal("aws configuration", zap.Error(err))
	}
	images := media.NewS3(s3.NewFromConfig(awsCfg), cfg.S3UserBucket)
	pusher := push.NewSNS(sns.NewFromConfig(awsCfg), cfg.SNSPlatformApplicationARN)

	m := metrics.New()

	deps := cascade.Deps{Stores: stores, Push: pusher, Media: images, Log: log, Metrics: m}
	var resetEvents password.EventPublisher
	if cfg.RabbitMQURL != "" {
		pub := queue_publisher.New(cfg.RabbitMQURL, log, m)
		deps.Events = pub
		resetEvents = pub

		consumer := &queue.Consumer{URL: cfg.RabbitMQURL, Log: log, Mailer: newMailer(cfg, awsCfg, log)}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("event consumer stopped", zap.Error(err))
			}
		}()
	} else {
		log.Warn("RABBITMQ_URL not set; domain events are not published")
	}
	cascades := cascade.New(deps)

	authSvc := auth.New(stores, cascades, auth.Config{
		TokenLifetime:         cfg.TokenLifetime,
		FacebookTokenLifetime: cfg.FacebookTokenLifetime,
		TwitterTokenLifetime:  cfg.TwitterTokenLifetime,
		EnforceExpiry:         cfg.BearerExpiryEnforced,
		BcryptCost:            cfg.BcryptCost,
	}, log, m)
	socialSvc := social.New(stores, cascades, pusher, social.Config{BcryptCost: cfg.BcryptCost}, log)
	passwordSvc := password.New(stores.Users, stores.Privates, resetEvents, password.Config{
		Secret:     cfg.ResetTokenSecret,
		TokenTTL:   cfg.ResetTokenTTL,
		BcryptCost: cfg.BcryptCost,
	}, log)

	// Redis is optional: without it rate limiting and caching pass through.
	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if err != nil {
		log.Warn("redis unavailable; rate limiting and caching disabled", zap.Error(err))
	} else {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(m.Middleware())

	gates := router.NewGatekeepers(authSvc, cfg.APIMinVersion,
		provider.NewFacebookVerifier(cfg.FacebookGraphURL, cfg.FacebookAppSecret),
		provider.NewTwitterVerifier(cfg.TwitterAPIURL, cfg.TwitterConsumerKey, cfg.TwitterConsumerSecret),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
		log)

	router.RegisterRoutes(e, handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(m.Handler()))
	router.RegisterAuth(e, handler.NewAuthHandler(authSvc, log), gates)
	router.RegisterSocial(e, handler.NewSocialHandler(socialSvc, log), gates)
	router.RegisterPassword(e, handler.NewPasswordHandler(passwordSvc, log), gates)

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	cascades.Wait() // detached comment cleanup
}

// newMailer picks the reset mail transport.  Development logs the mail.
func newMailer(cfg config.Config, awsCfg aws.Config, log *zap.Logger) queue.Mailer {
	if cfg.MailProvider != "ses" {
		return queue.LogMailer{Log: log}
	}
	return queue.NewSESMailer(sesv2.NewFromConfig(awsCfg), queue.SESConfig{
		From:     cfg.MailFrom,
		ResetURL: cfg.PasswordResetURL,
	}, log)
}
