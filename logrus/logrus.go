package logrus

import (
	"context"
	"fmt"
	"github.com/lukasz-zimnoch/dexly/spot"
	"github.com/sirupsen/logrus"
	"io"
	"os"
)

type Config struct {
	Level  string
	Format string
}

type wrapper struct {
	*logrus.Entry
}

func (w *wrapper) WithField(key string, value interface{}) spot.Logger {
	return &wrapper{w.Entry.WithField(key, value)}
}

func (w *wrapper) WithFields(fields map[string]interface{}) spot.Logger {
	return &wrapper{w.Entry.WithFields(fields)}
}

// ConfigureStandardLogger sets up the logrus standard logger to write
// to stdout and returns it wrapped as a spot.Logger.
func ConfigureStandardLogger(config *Config) (spot.Logger, error) {
	logger := logrus.StandardLogger()

	if err := configure(logger, config, os.Stdout); err != nil {
		return nil, err
	}

	return &wrapper{logger.WithFields(logrus.Fields{})}, nil
}

// NewLogger returns an independent logger writing to the given output.
func NewLogger(config *Config, output io.Writer) (spot.Logger, error) {
	logger := logrus.New()

	if err := configure(logger, config, output); err != nil {
		return nil, err
	}

	return &wrapper{logger.WithFields(logrus.Fields{})}, nil
}

func configure(logger *logrus.Logger, config *Config, output io.Writer) error {
	fieldMap := logrus.FieldMap{
		logrus.FieldKeyLevel: "severity",
		logrus.FieldKeyMsg:   "message",
	}

	switch config.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			FieldMap: fieldMap,
		})
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			FieldMap:      fieldMap,
		})
	default:
		return fmt.Errorf("unknown log format: [%v]", config.Format)
	}

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		return fmt.Errorf("could not parse log level: [%v]", err)
	}

	logger.SetLevel(level)
	logger.SetOutput(output)

	return nil
}

// NotificationSink writes notifications to the log. It is used when no
// external notification channel is configured.
type NotificationSink struct {
	logger spot.Logger
}

func NewNotificationSink(logger spot.Logger) *NotificationSink {
	return &NotificationSink{logger.WithField("component", "notification")}
}

func (ns *NotificationSink) Send(_ context.Context, message string) error {
	ns.logger.Infof("%v", message)
	return nil
}
