package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/phenom-api/internal/config"
	"github.com/iliyamo/phenom-api/internal/database"
	"github.com/iliyamo/phenom-api/internal/media"
	"github.com/iliyamo/phenom-api/internal/push"
	"github.com/iliyamo/phenom-api/internal/repository"
	"github.com/iliyamo/phenom-api/internal/service/auth"
	"github.com/iliyamo/phenom-api/internal/service/cascade"
)

// env is what the commands operate on.
type env struct {
	Migrate func(ctx context.Context) (int, error)
	Auth    *auth.Service
	Cascade *cascade.Manager
	Close   func() error
}

type opener func(ctx context.Context, log *zap.Logger) (*env, error)

// openEnv connects to MySQL and AWS using the server configuration.
func openEnv(ctx context.Context, log *zap.Logger) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, err
	}
	awsCfg, err := config.AWS(ctx, cfg.AWSRegion)
	if err != nil {
		db.Close()
		return nil, err
	}
	stores := repository.NewMySQLStores(db)
	cascades := cascade.New(cascade.Deps{
		Stores: stores,
		Push:   push.NewSNS(sns.NewFromConfig(awsCfg), cfg.SNSPlatformApplicationARN),
		Media:  media.NewS3(s3.NewFromConfig(awsCfg), cfg.S3UserBucket),
		Log:    log,
	})
	return &env{
		Migrate: func(ctx context.Context) (int, error) { return database.Migrate(ctx, db) },
		Auth: auth.New(stores, cascades, auth.Config{
			TokenLifetime:         cfg.TokenLifetime,
			FacebookTokenLifetime: cfg.FacebookTokenLifetime,
			TwitterTokenLifetime:  cfg.TwitterTokenLifetime,
			EnforceExpiry:         cfg.BearerExpiryEnforced,
			BcryptCost:            cfg.BcryptCost,
		}, log, nil),
		Cascade: cascades,
		Close: func() error {
			cascades.Wait()
			return db.Close()
		},
	}, nil
}

func newRootCmd(ctx context.Context, log *zap.Logger, open opener) *cobra.Command {
	var e *env
	root := &cobra.Command{
		Use:           "phenomctl",
		Short:         "Phenom operator commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			e, err = open(ctx, log)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if e == nil || e.Close == nil {
				return nil
			}
			return e.Close()
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := e.Migrate(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d statements\n", n)
			return nil
		},
	})

	client := &cobra.Command{Use: "client", Short: "Manage OAuth clients"}
	var name, clientID, secret string
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := e.Auth.CreateClient(ctx, name, clientID, secret)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created client %s (%s)\n", c.ClientID, c.Name)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "display name")
	create.Flags().StringVar(&clientID, "client-id", "", "client id")
	create.Flags().StringVar(&secret, "secret", "", "client secret, plain text")
	for _, f := range []string{"name", "client-id", "secret"} {
		_ = create.MarkFlagRequired(f)
	}

	var rotateID, rotateSecret string
	rotate := &cobra.Command{
		Use:   "rotate-secret",
		Short: "Replace a client's secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.Auth.RotateSecret(ctx, rotateID, rotateSecret); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rotated secret for %s\n", rotateID)
			return nil
		},
	}
	rotate.Flags().StringVar(&rotateID, "client-id", "", "client id")
	rotate.Flags().StringVar(&rotateSecret, "secret", "", "new secret, plain text")
	_ = rotate.MarkFlagRequired("client-id")
	_ = rotate.MarkFlagRequired("secret")
	client.AddCommand(create, rotate)

	user := &cobra.Command{Use: "user", Short: "Manage users"}
	var userID string
	del := &cobra.Command{
		Use:   "delete",
		Short: "Delete a user and everything that depends on it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.Cascade.Delete(ctx, cascade.User, userID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted user %s\n", userID)
			return nil
		},
	}
	del.Flags().StringVar(&userID, "id", "", "user id")
	_ = del.MarkFlagRequired("id")
	user.AddCommand(del)

	root.AddCommand(client, user)
	return root
}
