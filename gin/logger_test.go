package gin

import "github.com/lukasz-zimnoch/dexly/spot"

type testLogger struct{}

func (tl testLogger) Debugf(format string, args ...interface{}) {}

func (tl testLogger) Infof(format string, args ...interface{}) {}

func (tl testLogger) Warningf(format string, args ...interface{}) {}

func (tl testLogger) Errorf(format string, args ...interface{}) {}

func (tl testLogger) Fatalf(format string, args ...interface{}) {}

func (tl testLogger) WithField(key string, value interface{}) spot.Logger {
	return tl
}

func (tl testLogger) WithFields(fields map[string]interface{}) spot.Logger {
	return tl
}
