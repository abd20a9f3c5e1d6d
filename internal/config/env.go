package config

import (
    "context"
    "encoding/json"
    "fmt"
    "os"
    "strings"

    "github.com/aws/aws-sdk-go-v2/aws"
    awsconfig "github.com/aws/aws-sdk-go-v2/config"
    "github.com/aws/aws-sdk-go-v2/service/secretsmanager"
    "github.com/joho/godotenv"
)

// SecretsAPI is the part of the Secrets Manager client LoadSecrets uses.
type SecretsAPI interface {
    GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, opts ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// LoadEnv fills the process environment before Load runs.  When
// AWS_SECRETS_MANAGER_SECRET_ID is set the JSON secret is applied first,
// then the .env file (ENV_FILE_PATH or defaultEnvPath) fills what is left.
// godotenv never overrides variables that are already set.  The returned
// error is advisory: callers usually log it and continue.
func LoadEnv(ctx context.Context, defaultEnvPath string) error {
    var errs []string
    if id := secretID(); id != "" {
        client, err := newSecretsClient(ctx, os.Getenv("AWS_SECRETS_MANAGER_REGION"))
        if err == nil {
            _, err = LoadSecrets(ctx, client, id)
        }
        if err != nil {
            errs = append(errs, err.Error())
        }
    }

    envFile := envStr("ENV_FILE_PATH", defaultEnvPath)
    if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
        errs = append(errs, fmt.Sprintf("loading %s: %v", envFile, err))
    }
    if len(errs) > 0 {
        return fmt.Errorf("config: %s", strings.Join(errs, "; "))
    }
    return nil
}

// LoadSecrets copies the key/value pairs of a JSON secret into the
// environment and reports how many were applied.  Existing variables are
// kept unless AWS_SECRETS_MANAGER_OVERWRITE=true.
func LoadSecrets(ctx context.Context, client SecretsAPI, id string) (int, error) {
    in := &secretsmanager.GetSecretValueInput{
        SecretId:     aws.String(id),
        VersionStage: aws.String(envStr("AWS_SECRETS_MANAGER_VERSION_STAGE", "AWSCURRENT")),
    }
    out, err := client.GetSecretValue(ctx, in)
    if err != nil {
        return 0, fmt.Errorf("fetching secret %s: %w", id, err)
    }

    var payload []byte
    switch {
    case out.SecretString != nil:
        payload = []byte(*out.SecretString)
    case len(out.SecretBinary) > 0:
        payload = out.SecretBinary
    default:
        return 0, fmt.Errorf("secret %s has no payload", id)
    }

    var kv map[string]any
    if err := json.Unmarshal(payload, &kv); err != nil {
        return 0, fmt.Errorf("parsing secret %s as JSON: %w", id, err)
    }

    overwrite := envBool("AWS_SECRETS_MANAGER_OVERWRITE", false)
    applied := 0
    for key, val := range kv {
        if !overwrite && os.Getenv(key) != "" {
            continue
        }
        if err := os.Setenv(key, fmt.Sprint(val)); err != nil {
            return applied, fmt.Errorf("setting env %s from secret: %w", key, err)
        }
        applied++
    }
    return applied, nil
}

func secretID() string {
    if id := os.Getenv("AWS_SECRETS_MANAGER_SECRET_ID"); id != "" {
        return id
    }
    return os.Getenv("AWS_SECRET_ID")
}

func newSecretsClient(ctx context.Context, region string) (*secretsmanager.Client, error) {
    cfg, err := AWS(ctx, region)
    if err != nil {
        return nil, err
    }
    return secretsmanager.NewFromConfig(cfg), nil
}

// AWS loads the shared SDK configuration, pinned to region when given.
func AWS(ctx context.Context, region string) (aws.Config, error) {
    if region != "" {
        return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
    }
    return awsconfig.LoadDefaultConfig(ctx)
}
