package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/panyu/myblog/core"
	"github.com/panyu/myblog/ports"
)

const (
	DefaultLogoutTopic = "myblog.logout"
	DefaultMailTopic   = "myblog.email"
)

// LogoutEvent represents a logout event
type LogoutEvent struct {
	AccountID string `json:"account_id"`
	TokenID   string `json:"token_id"`
}

// WatermillPublisher implements EventPublisher and MailQueue on top of a
// watermill publisher (a redis stream in production)
type WatermillPublisher struct {
	publisher   message.Publisher
	logoutTopic string
	mailTopic   string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher, logoutTopic, mailTopic string) *WatermillPublisher {
	if logoutTopic == "" {
		logoutTopic = DefaultLogoutTopic
	}
	if mailTopic == "" {
		mailTopic = DefaultMailTopic
	}
	return &WatermillPublisher{
		publisher:   publisher,
		logoutTopic: logoutTopic,
		mailTopic:   mailTopic,
	}
}

var (
	_ ports.EventPublisher = (*WatermillPublisher)(nil)
	_ ports.MailQueue      = (*WatermillPublisher)(nil)
)

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, accountID string, tokenID string) error {
	event := LogoutEvent{
		AccountID: accountID,
		TokenID:   tokenID,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.logoutTopic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Enqueue puts msg on the mail topic for the mail consumer
func (p *WatermillPublisher) Enqueue(ctx context.Context, mail core.EmailMessage) error {
	payload, err := json.Marshal(mail)
	if err != nil {
		return fmt.Errorf("failed to marshal email: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("type", string(mail.Type))
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.mailTopic, msg); err != nil {
		return fmt.Errorf("failed to publish email: %w", err)
	}

	return nil
}
