package queue

import (
    "context"
    "fmt"
    "net/url"
    "strings"

    "github.com/aws/aws-sdk-go-v2/aws"
    "github.com/aws/aws-sdk-go-v2/service/sesv2"
    "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
    "go.uber.org/zap"
)

// SESAPI is the subset of the SES v2 client used here.
type SESAPI interface {
    SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESConfig configures SESMailer.
type SESConfig struct {
    From     string // verified sender, e.g. "Phenom <no-reply@phenom.app>"
    ResetURL string // page that accepts ?token=
    Subject  string
}

// SESMailer sends password reset links through Amazon SES.
type SESMailer struct {
    client SESAPI
    cfg    SESConfig
    log    *zap.Logger
}

func NewSESMailer(client SESAPI, cfg SESConfig, log *zap.Logger) *SESMailer {
    if cfg.Subject == "" {
        cfg.Subject = "Reset your Phenom password"
    }
    if log == nil {
        log = zap.NewNop()
    }
    return &SESMailer{client: client, cfg: cfg, log: log}
}

func (m *SESMailer) SendPasswordReset(ctx context.Context, ev PasswordResetRequestedEvent) error {
    if ev.Email == "" {
        return fmt.Errorf("password reset for %s has no recipient", ev.UserID)
    }
    link := m.resetLink(ev.Token)
    name := ev.Username
    if name == "" {
        name = "there"
    }
    text := fmt.Sprintf("Hi %s,\n\nUse the link below to choose a new password. It expires at %s.\n\n%s\n\nIf you did not ask for this, ignore this email.\n",
        name, ev.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"), link)

    out, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
        FromEmailAddress: aws.String(m.cfg.From),
        Destination:      &types.Destination{ToAddresses: []string{ev.Email}},
        Content: &types.EmailContent{
            Simple: &types.Message{
                Subject: &types.Content{Data: aws.String(m.cfg.Subject), Charset: aws.String("UTF-8")},
                Body: &types.Body{
                    Text: &types.Content{Data: aws.String(text), Charset: aws.String("UTF-8")},
                },
            },
        },
    })
    if err != nil {
        return fmt.Errorf("ses send email: %w", err)
    }
    m.log.Info("password reset mailed",
        zap.String("user_id", ev.UserID),
        zap.String("message_id", aws.ToString(out.MessageId)))
    return nil
}

func (m *SESMailer) resetLink(token string) string {
    sep := "?"
    if strings.Contains(m.cfg.ResetURL, "?") {
        sep = "&"
    }
    return m.cfg.ResetURL + sep + "token=" + url.QueryEscape(token)
}
