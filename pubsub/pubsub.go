package pubsub

import (
	"cloud.google.com/go/pubsub"
	"context"
)

type Config struct {
	ProjectID            string
	NotificationsTopicID string
	Recipient            string
}

type Client struct {
	client             *pubsub.Client
	notificationsTopic *pubsub.Topic
}

func NewClient(ctx context.Context, config *Config) (*Client, error) {
	client, err := pubsub.NewClient(ctx, config.ProjectID)
	if err != nil {
		return nil, err
	}

	return &Client{
		client:             client,
		notificationsTopic: client.Topic(config.NotificationsTopicID),
	}, nil
}

func (c *Client) Close() error {
	c.notificationsTopic.Stop()
	return c.client.Close()
}
