package media

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog"
)

// SampleSource yields timed samples and returns io.EOF at the end of the input.
type SampleSource interface {
	NextSample() (media.Sample, error)
	Close() error
}

type SourceOpener func() (SampleSource, error)

// Pump feeds t from sources returned by open, reopening at EOF so playback loops.
// It returns when ctx is done, the track is stopped or a source fails.
func Pump(ctx context.Context, t *Track, open SourceOpener, logger zerolog.Logger) error {
	src, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("pump ctx done")
			return ctx.Err()
		case <-t.Done():
			logger.Debug().Msg("track stopped, pump exits")
			return nil
		case <-timer.C:
		}

		s, err := src.NextSample()
		if errors.Is(err, io.EOF) {
			_ = src.Close()
			if src, err = open(); err != nil {
				logger.Error().Err(err).Msg("reopen source failed, stopping")
				return err
			}
			timer.Reset(0)
			continue
		}
		if err != nil {
			logger.Error().Err(err).Msg("read sample error, stopping")
			return err
		}

		if err := t.WriteSample(s); err != nil {
			if errors.Is(err, ErrTrackStopped) {
				return nil
			}
			// io.ErrClosedPipe just means no connection is bound right now.
			if !errors.Is(err, io.ErrClosedPipe) {
				logger.Warn().Err(err).Msg("write sample error")
			}
		}
		timer.Reset(s.Duration)
	}
}
