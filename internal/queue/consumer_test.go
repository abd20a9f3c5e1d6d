package queue

import (
    "context"
    "encoding/json"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/mock"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"
    "go.uber.org/zap/zaptest/observer"
)

type MockMailer struct{ mock.Mock }

func (m *MockMailer) SendPasswordReset(ctx context.Context, ev PasswordResetRequestedEvent) error {
    return m.Called(ctx, ev).Error(0)
}

func TestHandleEntityDeletedLogs(t *testing.T) {
    core, logs := observer.New(zap.InfoLevel)
    c := &Consumer{Log: zap.New(core), Mailer: new(MockMailer)}

    body, err := json.Marshal(EntityDeletedEvent{Entity: "moment", ID: "m1", DeletedAt: time.Now()})
    require.NoError(t, err)
    require.NoError(t, c.Handle(context.Background(), EntityDeletedQueue, body))

    entries := logs.FilterMessage("entity deleted").All()
    require.Len(t, entries, 1)
    assert.Equal(t, "m1", entries[0].ContextMap()["id"])
}

func TestHandlePasswordResetCallsMailer(t *testing.T) {
    mailer := new(MockMailer)
    mailer.On("SendPasswordReset", mock.Anything, mock.MatchedBy(func(ev PasswordResetRequestedEvent) bool {
        return ev.Email == "a@example.com" && ev.Token == "tok"
    })).Return(nil)
    c := &Consumer{Log: zap.NewNop(), Mailer: mailer}

    body, _ := json.Marshal(PasswordResetRequestedEvent{UserID: "u1", Email: "a@example.com", Token: "tok"})
    require.NoError(t, c.Handle(context.Background(), PasswordResetQueue, body))
    mailer.AssertExpectations(t)

    body, _ = json.Marshal(PasswordResetRequestedEvent{UserID: "u1"})
    assert.Error(t, c.Handle(context.Background(), PasswordResetQueue, body))
}

func TestHandleRejectsGarbage(t *testing.T) {
    c := &Consumer{Log: zap.NewNop(), Mailer: new(MockMailer)}
    assert.Error(t, c.Handle(context.Background(), EntityDeletedQueue, []byte("{")))
    assert.Error(t, c.Handle(context.Background(), "other", []byte("{}")))
}
