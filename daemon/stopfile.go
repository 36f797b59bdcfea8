package daemon

import (
	"context"
	"errors"
	"fmt"
	"github.com/lukasz-zimnoch/dexly/spot"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const DefaultStopFilePollInterval = 1 * time.Second

// StopFileWatcher requests a stop once a marker file appears. The marker
// is renamed by prefixing its name with an underscore, so it fires only
// once and remains visible as a trace.
type StopFileWatcher struct {
	logger   spot.Logger
	path     string
	interval time.Duration
}

func NewStopFileWatcher(
	logger spot.Logger,
	path string,
	interval time.Duration,
) *StopFileWatcher {
	if interval <= 0 {
		interval = DefaultStopFilePollInterval
	}

	return &StopFileWatcher{
		logger:   logger.WithField("stopFile", path),
		path:     path,
		interval: interval,
	}
}

func (sfw *StopFileWatcher) consumedPath() string {
	return filepath.Join(
		filepath.Dir(sfw.path),
		"_"+filepath.Base(sfw.path),
	)
}

// Watch polls for the marker until the context is done. When the marker
// is found, stop is called and Watch returns.
func (sfw *StopFileWatcher) Watch(ctx context.Context, stop func()) error {
	ticker := time.NewTicker(sfw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			found, err := sfw.consume()
			if err != nil {
				sfw.logger.Errorf("could not consume stop file: [%v]", err)
			}

			if found {
				sfw.logger.Infof("stop file found; requesting stop")
				stop()
				return nil
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (sfw *StopFileWatcher) consume() (bool, error) {
	if _, err := os.Stat(sfw.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, err
	}

	if err := os.Rename(sfw.path, sfw.consumedPath()); err != nil {
		return true, fmt.Errorf("could not rename stop file: [%v]", err)
	}

	return true, nil
}
