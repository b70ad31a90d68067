package call

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/duocall/internal/media"
	"github.com/1ureka/duocall/internal/signaling"
)

// ---------------------------------------------------------------------------
// Media
// ---------------------------------------------------------------------------

type fakeStream struct {
	id      string
	tracks  []webrtc.TrackLocal
	mu      sync.Mutex
	stopped int
}

func newFakeStream(t *testing.T, id string) *fakeStream {
	t.Helper()

	video, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", id)
	if err != nil {
		t.Fatalf("video track: %v", err)
	}
	audio, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", id)
	if err != nil {
		t.Fatalf("audio track: %v", err)
	}
	return &fakeStream{id: id, tracks: []webrtc.TrackLocal{video, audio}}
}

func (s *fakeStream) ID() string                  { return s.id }
func (s *fakeStream) Tracks() []webrtc.TrackLocal { return s.tracks }
func (s *fakeStream) Stop() {
	s.mu.Lock()
	s.stopped++
	s.mu.Unlock()
}

func (s *fakeStream) stopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

type fakeDevices struct {
	t       *testing.T
	name    string
	err     error
	streams []*fakeStream
	asked   []media.Constraints
}

func (d *fakeDevices) Acquire(_ context.Context, c media.Constraints) (media.Stream, error) {
	d.asked = append(d.asked, c)
	if d.err != nil {
		return nil, d.err
	}
	s := newFakeStream(d.t, fmt.Sprintf("%s-stream-%d", d.name, len(d.streams)+1))
	d.streams = append(d.streams, s)
	return s, nil
}

func (d *fakeDevices) last() *fakeStream {
	if len(d.streams) == 0 {
		return nil
	}
	return d.streams[len(d.streams)-1]
}

type fakeTrack struct {
	id, stream string
	kind       webrtc.RTPCodecType
}

func (f fakeTrack) ID() string                { return f.id }
func (f fakeTrack) StreamID() string          { return f.stream }
func (f fakeTrack) Kind() webrtc.RTPCodecType { return f.kind }
func (f fakeTrack) Codec() webrtc.RTPCodecParameters {
	return webrtc.RTPCodecParameters{}
}
func (f fakeTrack) ReadRTP() (*rtp.Packet, interceptor.Attributes, error) {
	return nil, nil, errors.New("fake track carries no media")
}

// ---------------------------------------------------------------------------
// Surface and signaling
// ---------------------------------------------------------------------------

type fakeSurface struct {
	mu      sync.Mutex
	locals  []string
	remotes []string
	muted   []bool
	resets  int
	errs    []error
}

func (s *fakeSurface) RenderLocal(st media.Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locals = append(s.locals, st.ID())
}

func (s *fakeSurface) RenderRemote(t media.RemoteTrack) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remotes = append(s.remotes, t.ID())
}

func (s *fakeSurface) SetPreviewMuted(m bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = append(s.muted, m)
}

func (s *fakeSurface) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
}

func (s *fakeSurface) ReportError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

type fakeSender struct {
	mu   sync.Mutex
	sent []signaling.Message
	all  []signaling.Message
}

func (s *fakeSender) Send(msg signaling.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	s.all = append(s.all, msg)
	return nil
}

// take returns the messages sent since the last call.
func (s *fakeSender) take() []signaling.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.sent
	s.sent = nil
	return out
}

func (s *fakeSender) types() []signaling.MessageType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]signaling.MessageType, len(s.all))
	for i, m := range s.all {
		out[i] = m.Type
	}
	return out
}

// ---------------------------------------------------------------------------
// Peer-connection
// ---------------------------------------------------------------------------

type fakePC struct {
	name string
	h    PeerHandlers

	tracks     []webrtc.TrackLocal
	local      *webrtc.SessionDescription
	remote     *webrtc.SessionDescription
	candidates []webrtc.ICECandidateInit
	state      webrtc.SignalingState
	closed     bool

	failSetRemote bool
	failAnswer    bool
}

func (p *fakePC) AddTrack(t webrtc.TrackLocal) error {
	p.tracks = append(p.tracks, t)
	return nil
}

func (p *fakePC) CreateOffer() (webrtc.SessionDescription, error) {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "offer-" + p.name}, nil
}

func (p *fakePC) CreateAnswer() (webrtc.SessionDescription, error) {
	if p.failAnswer {
		return webrtc.SessionDescription{}, errors.New("answer rejected")
	}
	if p.state != webrtc.SignalingStateHaveRemoteOffer {
		return webrtc.SessionDescription{}, errors.New("no remote offer")
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "answer-" + p.name}, nil
}

func (p *fakePC) SetLocalDescription(d webrtc.SessionDescription) error {
	p.local = &d
	if d.Type == webrtc.SDPTypeOffer {
		p.state = webrtc.SignalingStateHaveLocalOffer
	} else {
		p.state = webrtc.SignalingStateStable
	}
	return nil
}

func (p *fakePC) SetRemoteDescription(d webrtc.SessionDescription) error {
	if p.failSetRemote {
		return errors.New("remote description rejected")
	}
	switch d.Type {
	case webrtc.SDPTypeOffer:
		p.state = webrtc.SignalingStateHaveRemoteOffer
	case webrtc.SDPTypeAnswer:
		if p.state != webrtc.SignalingStateHaveLocalOffer {
			return errors.New("answer without offer")
		}
		p.state = webrtc.SignalingStateStable
	}
	p.remote = &d
	return nil
}

func (p *fakePC) AddICECandidate(c webrtc.ICECandidateInit) error {
	if p.remote == nil {
		return errors.New("remote description not set")
	}
	p.candidates = append(p.candidates, c)
	return nil
}

func (p *fakePC) SignalingState() webrtc.SignalingState {
	if p.state == 0 {
		return webrtc.SignalingStateStable
	}
	return p.state
}

func (p *fakePC) Close() error {
	p.closed = true
	p.state = webrtc.SignalingStateClosed
	return nil
}

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

// side is one participant: an engine and its fakes, stepped by the test.
type side struct {
	t      *testing.T
	name   string
	eng    *Engine
	dev    *fakeDevices
	surf   *fakeSurface
	sender *fakeSender
	pcs    []*fakePC
	states []State

	// configure, when set, adjusts each new peer-connection.
	configure func(*fakePC)
}

func newSide(t *testing.T, name string) *side {
	s := &side{
		t:      t,
		name:   name,
		dev:    &fakeDevices{t: t, name: name},
		surf:   &fakeSurface{},
		sender: &fakeSender{},
	}
	s.eng = New(Config{
		Devices: s.dev,
		Surface: s.surf,
		Signal:  s.sender,
		NewPeer: func(h PeerHandlers) (PeerConnection, error) {
			pc := &fakePC{name: fmt.Sprintf("%s-%d", name, len(s.pcs)+1), h: h}
			if s.configure != nil {
				s.configure(pc)
			}
			s.pcs = append(s.pcs, pc)
			return pc, nil
		},
		OnStateChange: func(st State) { s.states = append(s.states, st) },
	})
	return s
}

// step runs every queued event.
func (s *side) step() { s.eng.drain(context.Background()) }

func (s *side) pc() *fakePC {
	if len(s.pcs) == 0 {
		s.t.Fatalf("%s has no peer-connection", s.name)
	}
	return s.pcs[len(s.pcs)-1]
}

func (s *side) expectState(want State) {
	s.t.Helper()
	if got := s.eng.State(); got != want {
		s.t.Fatalf("%s state = %s, want %s", s.name, got, want)
	}
}

// relay carries everything from sent so far to to, through the JSON wire
// format, and lets to process it.
func relay(t *testing.T, from, to *side) {
	t.Helper()
	for _, m := range from.sender.take() {
		data, err := json.Marshal(m)
		if err != nil {
			t.Fatalf("marshal %s: %v", m.Type, err)
		}
		decoded, err := signaling.Decode(data)
		if err != nil {
			t.Fatalf("decode %s: %v", data, err)
		}
		to.eng.Deliver(decoded)
	}
	to.step()
}
