// Package queue defines message payloads exchanged over the message broker
// and the background consumer that processes them.
package queue

import "time"

// Queue names double as routing keys on the default exchange.
const (
    EntityDeletedQueue = "entity.deleted"
    PasswordResetQueue = "password.reset_requested"
)

// EntityDeletedEvent is published after the primary row of a cascade
// delete is gone.  Downstream consumers use it for auditing and to purge
// search indexes without querying the primary database.
type EntityDeletedEvent struct {
    Entity    string    `json:"entity"`             // e.g. "user", "moment"
    ID        string    `json:"id"`                 // primary key of the deleted row
    Failures  []string  `json:"failures,omitempty"` // cleanup steps that did not complete
    DeletedAt time.Time `json:"deleted_at"`
}

// PasswordResetRequestedEvent is published when a user asks for a reset
// link.  The mailer consumes it and sends the token to Email.
type PasswordResetRequestedEvent struct {
    UserID    string    `json:"user_id"`
    Username  string    `json:"username"`
    Email     string    `json:"email"`
    Token     string    `json:"token"`
    ExpiresAt time.Time `json:"expires_at"`
}
