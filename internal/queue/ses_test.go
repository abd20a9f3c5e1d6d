package queue

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/aws/aws-sdk-go-v2/aws"
    "github.com/aws/aws-sdk-go-v2/service/sesv2"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/mock"
    "github.com/stretchr/testify/require"
)

type MockSES struct{ mock.Mock }

func (m *MockSES) SendEmail(ctx context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
    args := m.Called(ctx, in)
    out, _ := args.Get(0).(*sesv2.SendEmailOutput)
    return out, args.Error(1)
}

func TestSESMailerSendsResetLink(t *testing.T) {
    client := new(MockSES)
    var sent *sesv2.SendEmailInput
    client.On("SendEmail", mock.Anything, mock.Anything).
        Run(func(args mock.Arguments) { sent = args.Get(1).(*sesv2.SendEmailInput) }).
        Return(&sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil)

    m := NewSESMailer(client, SESConfig{From: "no-reply@phenom.app", ResetURL: "https://phenom.app/reset"}, nil)
    err := m.SendPasswordReset(context.Background(), PasswordResetRequestedEvent{
        UserID: "u1", Username: "alice", Email: "alice@example.com", Token: "a+b/c=", ExpiresAt: time.Now().Add(time.Hour),
    })
    require.NoError(t, err)
    client.AssertExpectations(t)

    assert.Equal(t, "no-reply@phenom.app", aws.ToString(sent.FromEmailAddress))
    assert.Equal(t, []string{"alice@example.com"}, sent.Destination.ToAddresses)
    assert.Equal(t, "Reset your Phenom password", aws.ToString(sent.Content.Simple.Subject.Data))
    body := aws.ToString(sent.Content.Simple.Body.Text.Data)
    assert.Contains(t, body, "Hi alice")
    assert.Contains(t, body, "https://phenom.app/reset?token=a%2Bb%2Fc%3D")
}

func TestSESMailerReportsFailures(t *testing.T) {
    client := new(MockSES)
    client.On("SendEmail", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))
    m := NewSESMailer(client, SESConfig{From: "f@x", ResetURL: "https://x/reset?src=mail"}, nil)

    err := m.SendPasswordReset(context.Background(), PasswordResetRequestedEvent{UserID: "u1", Email: "a@x", Token: "t"})
    assert.ErrorContains(t, err, "throttled")

    err = m.SendPasswordReset(context.Background(), PasswordResetRequestedEvent{UserID: "u2", Token: "t"})
    assert.Error(t, err)
    client.AssertNumberOfCalls(t, "SendEmail", 1)

    assert.Equal(t, "https://x/reset?src=mail&token=t", m.resetLink("t"))
}
