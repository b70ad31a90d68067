package call

import (
	"context"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/duocall/internal/media"
	"github.com/1ureka/duocall/internal/signaling"
)

// Devices acquires local capture media.
type Devices interface {
	Acquire(ctx context.Context, c media.Constraints) (media.Stream, error)
}

// Surface is what the user sees of a call.
type Surface interface {
	RenderLocal(s media.Stream)
	RenderRemote(t media.RemoteTrack)
	SetPreviewMuted(muted bool)
	Reset()
	ReportError(err error)
}

// Sender delivers a message to the other participant through the relay.
type Sender interface {
	Send(msg signaling.Message) error
}

// PeerConnection is the subset of *webrtc.PeerConnection the engine drives.
type PeerConnection interface {
	AddTrack(t webrtc.TrackLocal) error
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetLocalDescription(desc webrtc.SessionDescription) error
	SetRemoteDescription(desc webrtc.SessionDescription) error
	AddICECandidate(c webrtc.ICECandidateInit) error
	SignalingState() webrtc.SignalingState
	Close() error
}

// PeerHandlers receive a peer-connection's events. They may be called from
// any goroutine.
type PeerHandlers struct {
	// OnICECandidate is called for each gathered local candidate and once
	// with nil when gathering completes.
	OnICECandidate          func(c *webrtc.ICECandidateInit)
	OnTrack                 func(t media.RemoteTrack)
	OnConnectionStateChange func(s webrtc.PeerConnectionState)
}

// PeerFactory builds a peer-connection wired to h.
type PeerFactory func(h PeerHandlers) (PeerConnection, error)
