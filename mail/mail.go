package mail

import (
	"context"
	"fmt"
	"gopkg.in/mail.v2"
	"time"
)

const defaultSubject = "Spot trading notification"

type Config struct {
	Host      string
	Port      int
	Username  string
	Password  string
	Recipient string
	Subject   string
}

type dialer interface {
	DialAndSend(messages ...*mail.Message) error
}

// NotificationSink sends every notification as a plain text email.
type NotificationSink struct {
	config    *Config
	newDialer func(timeout time.Duration) dialer
}

func NewNotificationSink(config *Config) *NotificationSink {
	return &NotificationSink{
		config: config,
		newDialer: func(timeout time.Duration) dialer {
			d := mail.NewDialer(
				config.Host,
				config.Port,
				config.Username,
				config.Password,
			)
			d.Timeout = timeout

			return d
		},
	}
}

func (ns *NotificationSink) Send(ctx context.Context, message string) error {
	subject := ns.config.Subject
	if len(subject) == 0 {
		subject = defaultSubject
	}

	email := mail.NewMessage()
	email.SetHeader("From", ns.config.Username)
	email.SetHeader("To", ns.config.Recipient)
	email.SetHeader("Subject", subject)
	email.SetBody("text/plain", message)

	timeout := 10 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	if err := ns.newDialer(timeout).DialAndSend(email); err != nil {
		return fmt.Errorf("could not send email: [%v]", err)
	}

	return nil
}
