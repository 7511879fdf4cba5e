package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const TypeVerificationEmail = "verification_email"

// Registration is emitted once per new account.
type Registration struct {
	AccountID   uuid.UUID `json:"account_id"`
	Email       string    `json:"email"`
	VerifyToken string    `json:"verify_token"`
	At          time.Time `json:"at"`
}

// Notification is a delivered message as recorded by the email-notifier.
type Notification struct {
	ID        int64     `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	Type      string    `json:"type"`
	SentAt    time.Time `json:"sent_at"`
	Payload   string    `json:"payload"`
}

type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Clock interface {
	Now() time.Time
}
