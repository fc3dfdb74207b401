// Package notify publishes registration-change events to the message bus.
package notify

import (
	"context"

	"github.com/streadway/amqp"

	"github.com/mkalvoda/seminar-registration/internal/lib/rabbitmq"
	"github.com/mkalvoda/seminar-registration/internal/models"
)

// Publisher announces registration changes on the notifications exchange.
type Publisher struct {
	ch *amqp.Channel
}

func New(ch *amqp.Channel) *Publisher {
	return &Publisher{ch: ch}
}

// RegistrationChanged publishes the event for the notification worker.
func (p *Publisher) RegistrationChanged(_ context.Context, event models.RegistrationEvent) error {
	return rabbitmq.PublishMessage(p.ch, "notifications", rabbitmq.RegistrationChangedKey, event)
}
