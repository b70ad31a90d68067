package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"

	"github.com/1ureka/duocall/internal/util"
)

const (
	defaultFrameInterval = time.Second / 30
	oggPageInterval      = 20 * time.Millisecond
	opusClockRate        = 48000
)

// FileDevices plays files in place of a camera and a microphone: VP8 frames
// from an IVF file and Opus pages from an Ogg file, looped in real time.
// An empty path yields a track that stays silent.
type FileDevices struct {
	VideoFile string
	AudioFile string
}

// Acquire opens the configured sources and returns their tracks.
func (d FileDevices) Acquire(ctx context.Context, c Constraints) (Stream, error) {
	if !c.Video && !c.Audio.Enabled {
		return nil, fmt.Errorf("%w: no video or audio requested", ErrDeviceUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	s := &fileStream{id: uuid.NewString(), cancel: cancel}

	if c.Video {
		track, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000}, "video", s.id)
		if err != nil {
			s.Stop()
			return nil, fmt.Errorf("%w: video track: %v", ErrDeviceUnavailable, err)
		}
		if err := s.attach(pumpCtx, d.VideoFile, track, ivfSource); err != nil {
			s.Stop()
			return nil, err
		}
	}

	if c.Audio.Enabled {
		// Echo cancellation is a capture-side filter; pre-recorded audio has
		// no loopback to cancel.
		track, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: opusClockRate, Channels: 2}, "audio", s.id)
		if err != nil {
			s.Stop()
			return nil, fmt.Errorf("%w: audio track: %v", ErrDeviceUnavailable, err)
		}
		if err := s.attach(pumpCtx, d.AudioFile, track, oggSource); err != nil {
			s.Stop()
			return nil, err
		}
	}

	return s, nil
}

// source validates a container header up front and then streams its samples.
type source struct {
	probe func(r io.Reader) error
	pump  func(ctx context.Context, src io.ReadSeeker, track *webrtc.TrackLocalStaticSample) error
}

var (
	ivfSource = source{probe: probeIVF, pump: pumpIVF}
	oggSource = source{probe: probeOgg, pump: pumpOgg}
)

// fileStream owns the tracks, their source files and the pump goroutines.
type fileStream struct {
	id     string
	tracks []webrtc.TrackLocal
	files  []*os.File
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// attach registers track and, when path is set, starts pumping it.
func (s *fileStream) attach(ctx context.Context, path string, track *webrtc.TrackLocalStaticSample, src source) error {
	s.tracks = append(s.tracks, track)
	if path == "" {
		return nil
	}

	f, err := openSource(path)
	if err != nil {
		return err
	}
	s.files = append(s.files, f)

	if err := src.probe(f); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, path, err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := src.pump(ctx, f, track); err != nil {
			util.LogError("%s source %s stopped: %v", track.Kind(), path, err)
		}
	}()
	return nil
}

func openSource(path string) (*os.File, error) {
	f, err := os.Open(path)
	switch {
	case err == nil:
		return f, nil
	case errors.Is(err, fs.ErrPermission):
		return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
	default:
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
}

func (s *fileStream) ID() string { return s.id }

func (s *fileStream) Tracks() []webrtc.TrackLocal { return s.tracks }

// Stop halts the pumps and closes the source files.
func (s *fileStream) Stop() {
	s.once.Do(func() {
		s.cancel()
		s.wg.Wait()
		for _, f := range s.files {
			_ = f.Close()
		}
	})
}

// ---------------------------------------------------------------------------
// Pumps
// ---------------------------------------------------------------------------

func probeIVF(r io.Reader) error {
	_, header, err := ivfreader.NewWith(r)
	if err != nil {
		return err
	}
	if header.FourCC != "VP80" {
		return fmt.Errorf("IVF codec %q, want VP80", header.FourCC)
	}
	return nil
}

func probeOgg(r io.Reader) error {
	_, _, err := oggreader.NewWith(r)
	return err
}

// pumpIVF writes one VP8 frame per header-declared frame interval, rewinding
// at end of file.
func pumpIVF(ctx context.Context, src io.ReadSeeker, track *webrtc.TrackLocalStaticSample) error {
	for {
		reader, header, err := ivfreader.NewWith(src)
		if err != nil {
			return err
		}

		interval := defaultFrameInterval
		if header.TimebaseDenominator != 0 && header.TimebaseNumerator != 0 {
			interval = time.Duration(float64(header.TimebaseNumerator) / float64(header.TimebaseDenominator) * float64(time.Second))
		}

		if done, err := pace(ctx, interval, func() (bool, error) {
			frame, _, err := reader.ParseNextFrame()
			if errors.Is(err, io.EOF) {
				return true, nil
			}
			if err != nil {
				return false, err
			}
			if err := track.WriteSample(pionmedia.Sample{Data: frame, Duration: interval}); err != nil {
				util.LogDebug("video sample dropped: %v", err)
			}
			return false, nil
		}); done || err != nil {
			return err
		}

		if _, err := src.Seek(0, io.SeekStart); err != nil {
			return err
		}
	}
}

// pumpOgg writes one Opus page per 20ms, using the granule position to
// stamp each sample's duration, rewinding at end of file.
func pumpOgg(ctx context.Context, src io.ReadSeeker, track *webrtc.TrackLocalStaticSample) error {
	for {
		reader, _, err := oggreader.NewWith(src)
		if err != nil {
			return err
		}

		var lastGranule uint64
		if done, err := pace(ctx, oggPageInterval, func() (bool, error) {
			page, header, err := reader.ParseNextPage()
			if errors.Is(err, io.EOF) {
				return true, nil
			}
			if err != nil {
				return false, err
			}

			samples := header.GranulePosition - lastGranule
			lastGranule = header.GranulePosition
			duration := time.Duration(float64(samples) / opusClockRate * float64(time.Second))

			if err := track.WriteSample(pionmedia.Sample{Data: page, Duration: duration}); err != nil {
				util.LogDebug("audio sample dropped: %v", err)
			}
			return false, nil
		}); done || err != nil {
			return err
		}

		if _, err := src.Seek(0, io.SeekStart); err != nil {
			return err
		}
	}
}

// pace calls step once per interval until step reports end of input, step
// fails, or ctx is cancelled. done is true only for cancellation. A source
// that ends before its first sample is an error, so rewinding cannot spin.
func pace(ctx context.Context, interval time.Duration, step func() (eof bool, err error)) (done bool, err error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 0; ; n++ {
		eof, err := step()
		if err != nil {
			return false, err
		}
		if eof {
			if n == 0 {
				return false, fmt.Errorf("%w: source holds no samples", ErrDeviceUnavailable)
			}
			return false, nil
		}

		select {
		case <-ctx.Done():
			return true, nil
		case <-ticker.C:
		}
	}
}
