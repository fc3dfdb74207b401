package rabbitmq

// QueueConfig binds one queue to a routing key on the notifications exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// RegistrationChangedKey routes registration-change events to the mail
// notification worker.
const RegistrationChangedKey = "registration.changed"

// GetNotificationQueues returns the queue topology of the notification
// workers.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notification.registration-changed", RoutingKey: RegistrationChangedKey},
	}
}
