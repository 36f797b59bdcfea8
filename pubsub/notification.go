package pubsub

import (
	"cloud.google.com/go/pubsub"
	"context"
	"encoding/json"
	"fmt"
	"github.com/lukasz-zimnoch/dexly/spot"
)

// NotificationSink publishes notifications on the notifications topic,
// from where a subscriber delivers them to the recipient.
type NotificationSink struct {
	topic     *pubsub.Topic
	recipient string
	logger    spot.Logger
}

func NewNotificationSink(
	client *Client,
	recipient string,
	logger spot.Logger,
) *NotificationSink {
	return &NotificationSink{
		topic:     client.notificationsTopic,
		recipient: recipient,
		logger:    logger.WithField("topic", "notifications"),
	}
}

// Send blocks until the server acknowledges the message.
func (ns *NotificationSink) Send(ctx context.Context, message string) error {
	messageData, err := json.Marshal(&notificationEvent{
		Recipient: ns.recipient,
		Payload:   message,
	})
	if err != nil {
		return fmt.Errorf("could not marshal notification: [%v]", err)
	}

	result := ns.topic.Publish(ctx, &pubsub.Message{
		Data: messageData,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("could not publish notification: [%v]", err)
	}

	ns.logger.Debugf("published notification with ID: [%v]", id)

	return nil
}

type notificationEvent struct {
	Recipient string
	Payload   string
}
