package mail

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog/log"

	"github.com/panyu/myblog/core"
	"github.com/panyu/myblog/ports"
)

// Consumer drains the mail topic and hands each message to a Mailer.
// Failed deliveries are nacked so the stream redelivers them.
type Consumer struct {
	subscriber message.Subscriber
	mailer     ports.Mailer
	topic      string
}

// NewConsumer creates a new mail consumer
func NewConsumer(subscriber message.Subscriber, mailer ports.Mailer, topic string) *Consumer {
	return &Consumer{
		subscriber: subscriber,
		mailer:     mailer,
		topic:      topic,
	}
}

// Run consumes until ctx is cancelled or the subscription closes
func (c *Consumer) Run(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", c.topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := c.handle(ctx, msg); err != nil {
				log.Error().Err(err).Str("message_id", msg.UUID).Msg("mail.delivery_failed")
				msg.Nack()
				continue
			}
			msg.Ack()
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg *message.Message) error {
	var mail core.EmailMessage
	if err := json.Unmarshal(msg.Payload, &mail); err != nil {
		// a malformed payload will never succeed, drop it
		log.Error().Err(err).Str("message_id", msg.UUID).Msg("mail.malformed")
		return nil
	}

	if err := c.mailer.Send(ctx, mail); err != nil {
		return fmt.Errorf("failed to send %s mail: %w", mail.Type, err)
	}

	log.Info().Str("type", string(mail.Type)).Msg("mail.delivered")
	return nil
}
