package media

import (
	"io"
	"os"
	"time"

	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
)

const defaultOggPageDuration = 20 * time.Millisecond

type ivfSource struct {
	f        *os.File
	r        *ivfreader.IVFReader
	duration time.Duration
}

// OpenIVF opens a VP8 IVF file; each frame is one sample.
func OpenIVF(path string) (SampleSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, h, err := ivfreader.NewWith(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	d := time.Second / 30
	if h.TimebaseDenominator != 0 {
		d = time.Duration(float64(time.Second) * float64(h.TimebaseNumerator) / float64(h.TimebaseDenominator))
	}
	return &ivfSource{f: f, r: r, duration: d}, nil
}

func (s *ivfSource) NextSample() (media.Sample, error) {
	frame, _, err := s.r.ParseNextFrame()
	if err != nil {
		return media.Sample{}, err
	}
	return media.Sample{Data: frame, Duration: s.duration}, nil
}

func (s *ivfSource) Close() error { return s.f.Close() }

type oggSource struct {
	f           *os.File
	r           *oggreader.OggReader
	sampleRate  uint32
	lastGranule uint64
}

// OpenOgg opens an Ogg/Opus file; each page is one sample timed by its granule position.
func OpenOgg(path string) (SampleSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, h, err := oggreader.NewWith(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	rate := h.SampleRate
	if rate == 0 {
		rate = 48000
	}
	return &oggSource{f: f, r: r, sampleRate: rate}, nil
}

func (s *oggSource) NextSample() (media.Sample, error) {
	page, h, err := s.r.ParseNextPage()
	if err != nil {
		if err == io.ErrUnexpectedEOF {
			return media.Sample{}, io.EOF
		}
		return media.Sample{}, err
	}
	d := defaultOggPageDuration
	if h.GranulePosition > s.lastGranule && s.lastGranule != 0 {
		d = time.Duration(h.GranulePosition-s.lastGranule) * time.Second / time.Duration(s.sampleRate)
	}
	s.lastGranule = h.GranulePosition
	return media.Sample{Data: page, Duration: d}, nil
}

func (s *oggSource) Close() error { return s.f.Close() }
