package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/dorhakim100/camjam/internal/core"
	"github.com/dorhakim100/camjam/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// FileDevices plays an IVF file as the camera and an Ogg/Opus file as the
// microphone, looping both for as long as the track lives.
type FileDevices struct {
	VideoFile string
	AudioFile string

	// ctx bounds every pump; tracks also stop their pump when stopped.
	ctx    context.Context
	logger zerolog.Logger
}

var _ core.Devices = (*FileDevices)(nil)

func NewFileDevices(ctx context.Context, videoFile, audioFile string) *FileDevices {
	return &FileDevices{
		VideoFile: videoFile,
		AudioFile: audioFile,
		ctx:       ctx,
		logger:    log.With().Str("module", "media.devices").Logger(),
	}
}

func (d *FileDevices) GetUserMedia(ctx context.Context, c core.Constraints) ([]core.LocalTrack, error) {
	type request struct {
		kind domain.MediaKind
		open SourceOpener
	}
	var reqs []request
	if c.Audio != nil {
		path := d.AudioFile
		reqs = append(reqs, request{domain.MediaAudio, func() (SampleSource, error) { return OpenOgg(path) }})
	}
	if c.Video != nil {
		path := d.VideoFile
		reqs = append(reqs, request{domain.MediaVideo, func() (SampleSource, error) { return OpenIVF(path) }})
	}

	// Probe every device before starting any pump so a failure leaves nothing running.
	for _, r := range reqs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := r.open()
		if err != nil {
			return nil, deviceError(r.kind, err)
		}
		_ = src.Close()
	}

	streamID := "camjam-" + uuid.NewString()
	tracks := make([]core.LocalTrack, 0, len(reqs))
	for _, r := range reqs {
		t, err := NewTrack(r.kind, streamID)
		if err != nil {
			for _, started := range tracks {
				started.Stop()
			}
			return nil, err
		}
		logger := d.logger.With().Str("kind", string(r.kind)).Str("track_id", t.ID()).Logger()
		go func() {
			if err := Pump(d.ctx, t, r.open, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("pump stopped")
			}
		}()
		tracks = append(tracks, t)
	}
	d.logger.Info().Int("tracks", len(tracks)).Str("stream_id", streamID).Msg("acquired file media")
	return tracks, nil
}

func deviceError(kind domain.MediaKind, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%s: %w: %v", kind, domain.ErrMediaAccessDenied, err)
	}
	// Missing, unreadable or malformed input all mean there is no usable device.
	return fmt.Errorf("%s: %w: %v", kind, domain.ErrDeviceUnavailable, err)
}
