package call

import (
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/duocall/internal/media"
	"github.com/1ureka/duocall/internal/signaling"
)

type eventKind int

const (
	evStart eventKind = iota
	evHangup
	evMute
	evMessage

	// Peer-connection events carry the generation that produced them.
	evLocalCandidate
	evTrack
	evConnState
)

func (k eventKind) String() string {
	switch k {
	case evStart:
		return "start"
	case evHangup:
		return "hangup"
	case evMute:
		return "mute"
	case evMessage:
		return "message"
	case evLocalCandidate:
		return "local candidate"
	case evTrack:
		return "remote track"
	case evConnState:
		return "connection state"
	default:
		return "unknown event"
	}
}

type event struct {
	kind eventKind
	gen  uint64

	msg       signaling.Message
	candidate *webrtc.ICECandidateInit
	track     media.RemoteTrack
	connState webrtc.PeerConnectionState
}
