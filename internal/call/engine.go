// Package call runs one participant's side of a two-party call: it acquires
// local media, negotiates a peer-connection with the other participant over
// the signaling relay, and tears everything down again.
//
// All work happens on the goroutine running Engine.Run. The public methods
// and the peer-connection callbacks only enqueue events, so no two steps of
// a negotiation ever overlap.
package call

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/duocall/internal/media"
	"github.com/1ureka/duocall/internal/signaling"
	"github.com/1ureka/duocall/internal/util"
)

// Config wires an Engine to its collaborators.
type Config struct {
	Devices Devices
	Surface Surface
	Signal  Sender
	NewPeer PeerFactory

	// OnStateChange, when set, is called on the engine goroutine after
	// every transition.
	OnStateChange func(State)
}

// Engine is the per-participant call state machine.
type Engine struct {
	cfg    Config
	events *util.Queue[event]
	state  atomic.Int32

	// gen identifies the current peer-connection. Teardown bumps it so that
	// callbacks still in flight from a closed peer-connection are ignored.
	gen uint64
	s   session
}

// session is everything a call owns. The zero value is an idle session.
type session struct {
	stream media.Stream
	pc     PeerConnection

	localSet  bool
	remoteSet bool

	// localOffer is the SDP of our offer until it is answered.
	localOffer string
	// remoteStream is the id of the remote stream bound to the surface.
	remoteStream string

	previewMuted bool
}

// New returns an idle engine. Call Run to start processing events.
func New(cfg Config) *Engine {
	return &Engine{
		cfg:    cfg,
		events: util.NewQueue[event](),
	}
}

// State returns the current state. Safe from any goroutine.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Start asks for local media and announces readiness to the other side.
func (e *Engine) Start() { e.events.Push(event{kind: evStart}) }

// Hangup ends the call and tells the other side.
func (e *Engine) Hangup() { e.events.Push(event{kind: evHangup}) }

// ToggleMute flips whether the local preview is audible.
func (e *Engine) ToggleMute() { e.events.Push(event{kind: evMute}) }

// Deliver hands an inbound signaling message to the engine.
func (e *Engine) Deliver(msg signaling.Message) {
	e.events.Push(event{kind: evMessage, msg: msg})
}

// Run processes events until ctx is cancelled. A call still in progress is
// hung up on the way out.
func (e *Engine) Run(ctx context.Context) error {
	defer func() {
		if e.State() != StateIdle {
			e.hangup()
		}
		e.events.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.events.Signal():
			e.drain(ctx)
		}
	}
}

// drain handles every queued event in order.
func (e *Engine) drain(ctx context.Context) {
	for {
		ev, ok := e.events.Pop()
		if !ok {
			return
		}
		e.handle(ctx, ev)
	}
}

func (e *Engine) handle(ctx context.Context, ev event) {
	switch ev.kind {
	case evStart:
		e.start(ctx)
	case evHangup:
		e.hangup()
	case evMute:
		e.toggleMute()
	case evMessage:
		e.receive(ev.msg)
	default:
		if ev.gen != e.gen || e.s.pc == nil {
			util.LogDebug("dropping %s from a closed peer-connection", ev.kind)
			return
		}
		e.handlePeerEvent(ev)
	}
}

func (e *Engine) setState(s State) {
	prev := State(e.state.Swap(int32(s)))
	if prev == s {
		return
	}
	util.LogDebug("call state %s -> %s", prev, s)
	if e.cfg.OnStateChange != nil {
		e.cfg.OnStateChange(s)
	}
}

func (e *Engine) send(msg signaling.Message) {
	if err := e.cfg.Signal.Send(msg); err != nil {
		util.LogWarning("send %s: %v", msg.Type, err)
	}
}

// ---------------------------------------------------------------------------
// Local triggers
// ---------------------------------------------------------------------------

func (e *Engine) start(ctx context.Context) {
	if e.State() != StateIdle {
		util.LogWarning("call already started (%s)", e.State())
		return
	}

	stream, err := e.cfg.Devices.Acquire(ctx, media.CallConstraints())
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrMediaAcquisition, err)
		util.LogError("%v", err)
		e.cfg.Surface.ReportError(err)
		return
	}

	e.s = session{stream: stream, previewMuted: true}
	e.cfg.Surface.RenderLocal(stream)
	e.cfg.Surface.SetPreviewMuted(true)
	e.setState(StateReady)
	e.send(signaling.Ready())
}

func (e *Engine) hangup() {
	if e.State() == StateIdle {
		util.LogDebug("hangup while idle")
		return
	}
	e.teardown()
	e.send(signaling.Bye())
}

func (e *Engine) toggleMute() {
	if e.s.stream == nil {
		return
	}
	e.s.previewMuted = !e.s.previewMuted
	e.cfg.Surface.SetPreviewMuted(e.s.previewMuted)
}

// ---------------------------------------------------------------------------
// Inbound messages
// ---------------------------------------------------------------------------

func (e *Engine) receive(msg signaling.Message) {
	if e.s.stream == nil {
		util.LogWarning("ignoring %s: no local media", msg.Type)
		return
	}

	switch msg.Type {
	case signaling.TypeReady:
		if e.s.pc != nil {
			util.LogWarning("ignoring ready: already %s", e.State())
			return
		}
		e.offer()

	case signaling.TypeOffer:
		e.onOffer(msg)

	case signaling.TypeAnswer:
		e.onAnswer(msg)

	case signaling.TypeCandidate:
		e.onCandidate(msg)

	case signaling.TypeBye:
		if e.s.pc == nil {
			util.LogDebug("ignoring bye: no peer-connection")
			return
		}
		util.LogInfo("remote participant hung up")
		e.teardown()

	default:
		util.LogWarning("ignoring message of type %q", msg.Type)
	}
}

// offer makes this side the offerer.
func (e *Engine) offer() {
	if err := e.openPeer(); err != nil {
		e.fail(err)
		return
	}
	e.setState(StateNegotiating)

	offer, err := e.s.pc.CreateOffer()
	if err != nil {
		e.fail(fmt.Errorf("create offer: %w", err))
		return
	}
	e.send(signaling.Offer(offer.SDP))

	if err := e.s.pc.SetLocalDescription(offer); err != nil {
		e.fail(fmt.Errorf("set local offer: %w", err))
		return
	}
	e.s.localSet = true
	e.s.localOffer = offer.SDP
}

func (e *Engine) onOffer(msg signaling.Message) {
	if e.s.pc != nil {
		if !e.yieldTo(msg.SDP) {
			violation("offer while %s", e.State())
			return
		}
		util.LogInfo("both sides offered; answering the remote offer")
		e.closePeer()
	}

	desc, err := msg.SessionDescription()
	if err != nil {
		violation("%v", err)
		return
	}

	if err := e.openPeer(); err != nil {
		e.fail(err)
		return
	}
	e.setState(StateNegotiating)

	if err := e.s.pc.SetRemoteDescription(desc); err != nil {
		e.fail(fmt.Errorf("set remote offer: %w", err))
		return
	}
	e.s.remoteSet = true

	answer, err := e.s.pc.CreateAnswer()
	if err != nil {
		e.fail(fmt.Errorf("create answer: %w", err))
		return
	}
	e.send(signaling.Answer(answer.SDP))

	if err := e.s.pc.SetLocalDescription(answer); err != nil {
		e.fail(fmt.Errorf("set local answer: %w", err))
		return
	}
	e.s.localSet = true
	e.checkActive()
}

// yieldTo settles two crossing offers. The side whose own offer sorts lower
// gives way and answers; the other keeps its offer and ignores the remote
// one. Any other offer during a call is refused.
func (e *Engine) yieldTo(remoteSDP string) bool {
	if e.s.localOffer == "" || e.s.remoteSet {
		return false
	}
	if e.s.pc.SignalingState() != webrtc.SignalingStateHaveLocalOffer {
		return false
	}
	return e.s.localOffer < remoteSDP
}

func (e *Engine) onAnswer(msg signaling.Message) {
	if e.s.pc == nil {
		violation("answer without a peer-connection")
		return
	}
	if st := e.s.pc.SignalingState(); st != webrtc.SignalingStateHaveLocalOffer {
		violation("answer in signaling state %s", st)
		return
	}

	desc, err := msg.SessionDescription()
	if err != nil {
		violation("%v", err)
		return
	}
	if err := e.s.pc.SetRemoteDescription(desc); err != nil {
		e.fail(fmt.Errorf("set remote answer: %w", err))
		return
	}
	e.s.remoteSet = true
	e.s.localOffer = ""
	e.checkActive()
}

func (e *Engine) onCandidate(msg signaling.Message) {
	if e.s.pc == nil {
		util.LogWarning("dropping candidate: no peer-connection yet")
		return
	}
	if msg.IsEndOfCandidates() {
		util.LogDebug("remote candidates complete")
	}
	if err := e.s.pc.AddICECandidate(msg.ICECandidateInit()); err != nil {
		util.LogWarning("add remote candidate: %v", err)
	}
}

func (e *Engine) checkActive() {
	if e.s.localSet && e.s.remoteSet && e.State() == StateNegotiating {
		e.setState(StateActive)
	}
}

// ---------------------------------------------------------------------------
// Peer-connection events
// ---------------------------------------------------------------------------

func (e *Engine) handlePeerEvent(ev event) {
	switch ev.kind {
	case evLocalCandidate:
		e.send(signaling.CandidateMessage(ev.candidate))

	case evTrack:
		if e.s.remoteStream == "" {
			e.s.remoteStream = ev.track.StreamID()
		}
		if ev.track.StreamID() != e.s.remoteStream {
			util.LogDebug("ignoring track %s of extra stream %s", ev.track.ID(), ev.track.StreamID())
			return
		}
		e.cfg.Surface.RenderRemote(ev.track)
		if e.State() == StateNegotiating {
			e.setState(StateActive)
		}

	case evConnState:
		util.LogInfo("peer-connection %s", ev.connState)
		if ev.connState == webrtc.PeerConnectionStateFailed {
			err := fmt.Errorf("%w: peer-connection failed", ErrTransportLoss)
			util.LogError("%v", err)
			e.cfg.Surface.ReportError(err)
			e.teardown()
		}
	}
}

// ---------------------------------------------------------------------------
// Resources
// ---------------------------------------------------------------------------

// openPeer creates a peer-connection for the current generation and attaches
// the local tracks.
func (e *Engine) openPeer() error {
	e.gen++
	gen := e.gen

	pc, err := e.cfg.NewPeer(PeerHandlers{
		OnICECandidate: func(c *webrtc.ICECandidateInit) {
			e.events.Push(event{kind: evLocalCandidate, gen: gen, candidate: c})
		},
		OnTrack: func(t media.RemoteTrack) {
			e.events.Push(event{kind: evTrack, gen: gen, track: t})
		},
		OnConnectionStateChange: func(s webrtc.PeerConnectionState) {
			e.events.Push(event{kind: evConnState, gen: gen, connState: s})
		},
	})
	if err != nil {
		return fmt.Errorf("create peer-connection: %w", err)
	}
	e.s.pc = pc

	for _, t := range e.s.stream.Tracks() {
		if err := pc.AddTrack(t); err != nil {
			return fmt.Errorf("add %s track: %w", t.Kind(), err)
		}
	}
	return nil
}

// closePeer discards the peer-connection but keeps local media.
func (e *Engine) closePeer() {
	e.gen++
	if err := e.s.pc.Close(); err != nil {
		util.LogWarning("close peer-connection: %v", err)
	}
	e.s = session{stream: e.s.stream, previewMuted: e.s.previewMuted}
	e.setState(StateReady)
}

// teardown releases the peer-connection and local media together and
// returns to idle. It sends nothing.
func (e *Engine) teardown() {
	e.gen++
	if e.s.pc != nil {
		if err := e.s.pc.Close(); err != nil {
			util.LogWarning("close peer-connection: %v", err)
		}
	}
	if e.s.stream != nil {
		e.s.stream.Stop()
	}
	e.s = session{}
	e.cfg.Surface.Reset()
	e.setState(StateIdle)
}

// fail abandons a negotiation the peer-connection rejected.
func (e *Engine) fail(err error) {
	if !errors.Is(err, ErrNegotiation) {
		err = fmt.Errorf("%w: %w", ErrNegotiation, err)
	}
	util.LogError("%v", err)
	e.cfg.Surface.ReportError(err)
	e.teardown()
}

func violation(format string, args ...any) {
	util.LogWarning("%v: %s", ErrProtocolViolation, fmt.Sprintf(format, args...))
}
