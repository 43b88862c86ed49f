package ports

import (
	"context"

	"github.com/panyu/myblog/core"
)

// EventPublisher publishes events to notify other instances
type EventPublisher interface {
	PublishLogout(ctx context.Context, accountID string, tokenID string) error
}

// MailQueue accepts mail for asynchronous delivery
type MailQueue interface {
	Enqueue(ctx context.Context, msg core.EmailMessage) error
}

// Mailer delivers a single message
type Mailer interface {
	Send(ctx context.Context, msg core.EmailMessage) error
}
