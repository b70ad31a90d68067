package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media/ivfwriter"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"

	"github.com/1ureka/duocall/internal/util"
)

type rtpWriter interface {
	WriteRTP(*rtp.Packet) error
	Close() error
}

// Recorder is the terminal's stand-in for the call page: it reports what
// would be on screen and, with Dir set, saves remote VP8 video to
// remote-<track>.ivf and Opus audio to remote-<track>.ogg.
type Recorder struct {
	Dir string

	mu           sync.Mutex
	previewMuted bool
	local        string
	remote       []string
	wg           sync.WaitGroup
}

// NewRecorder returns a Recorder with the local preview muted.
func NewRecorder(dir string) *Recorder {
	return &Recorder{Dir: dir, previewMuted: true}
}

// RenderLocal binds the local stream to the preview.
func (r *Recorder) RenderLocal(s Stream) {
	r.mu.Lock()
	r.local = s.ID()
	r.mu.Unlock()

	util.LogInfo("local preview: stream %s (%d tracks)", s.ID(), len(s.Tracks()))
}

// RenderRemote binds an incoming track and, when recording, copies its RTP
// packets to disk until the track ends.
func (r *Recorder) RenderRemote(t RemoteTrack) {
	r.mu.Lock()
	r.remote = append(r.remote, t.ID())
	r.mu.Unlock()

	util.LogSuccess("remote %s track %s (%s) from stream %s", t.Kind(), t.ID(), t.Codec().MimeType, t.StreamID())
	if r.Dir == "" {
		return
	}

	w, path, err := r.openWriter(t)
	if err != nil {
		util.LogError("cannot record remote %s track: %v", t.Kind(), err)
		return
	}
	util.LogInfo("recording remote %s to %s", t.Kind(), path)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer w.Close()

		for {
			pkt, _, err := t.ReadRTP()
			if err != nil {
				return
			}
			if err := w.WriteRTP(pkt); err != nil {
				util.LogError("recording %s: %v", path, err)
				return
			}
		}
	}()
}

func (r *Recorder) openWriter(t RemoteTrack) (rtpWriter, string, error) {
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return nil, "", err
	}

	mime := t.Codec().MimeType
	switch {
	case strings.EqualFold(mime, webrtc.MimeTypeVP8):
		path := filepath.Join(r.Dir, fmt.Sprintf("remote-%s.ivf", t.ID()))
		w, err := ivfwriter.New(path)
		return w, path, err

	case strings.EqualFold(mime, webrtc.MimeTypeOpus):
		path := filepath.Join(r.Dir, fmt.Sprintf("remote-%s.ogg", t.ID()))
		w, err := oggwriter.New(path, opusClockRate, 2)
		return w, path, err
	}
	return nil, "", fmt.Errorf("no container for codec %q", mime)
}

// View returns the stream bound to the preview and the remote tracks shown.
func (r *Recorder) View() (local string, remote []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.local, append([]string(nil), r.remote...)
}

// SetPreviewMuted controls whether the local preview is audible. It has no
// effect on what the remote participant hears.
func (r *Recorder) SetPreviewMuted(muted bool) {
	r.mu.Lock()
	r.previewMuted = muted
	r.mu.Unlock()

	if muted {
		util.LogInfo("local preview muted")
	} else {
		util.LogInfo("local preview audible")
	}
}

// PreviewMuted reports the preview's current mute state.
func (r *Recorder) PreviewMuted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.previewMuted
}

// Reset clears both views and restores the idle controls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.local = ""
	r.remote = nil
	r.previewMuted = true
	r.mu.Unlock()

	util.LogInfo("call ended")
}

// ReportError tells the user something went wrong.
func (r *Recorder) ReportError(err error) {
	util.LogError("%v", err)
}

// Wait blocks until every recording goroutine has finished. Recordings end
// when their peer-connection closes.
func (r *Recorder) Wait() {
	r.wg.Wait()
}
