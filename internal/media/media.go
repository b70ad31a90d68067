// Package media supplies local capture streams to a call and renders the
// media the remote participant sends back.
package media

import (
	"errors"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

var (
	// ErrPermissionDenied means a capture source exists but may not be used.
	ErrPermissionDenied = errors.New("media permission denied")
	// ErrDeviceUnavailable means no usable capture source matches the request.
	ErrDeviceUnavailable = errors.New("media device unavailable")
)

// AudioConstraints selects the microphone and its processing.
type AudioConstraints struct {
	Enabled          bool
	EchoCancellation bool
}

// Constraints describes which local media a call asks for.
type Constraints struct {
	Video bool
	Audio AudioConstraints
}

// CallConstraints is what every call requests: camera plus microphone with
// echo cancellation.
func CallConstraints() Constraints {
	return Constraints{
		Video: true,
		Audio: AudioConstraints{Enabled: true, EchoCancellation: true},
	}
}

// Stream is an acquired set of local tracks. Stop releases the underlying
// sources; it is safe to call more than once.
type Stream interface {
	ID() string
	Tracks() []webrtc.TrackLocal
	Stop()
}

// RemoteTrack is an incoming track as delivered by the peer-connection.
// *webrtc.TrackRemote satisfies it.
type RemoteTrack interface {
	ID() string
	StreamID() string
	Kind() webrtc.RTPCodecType
	Codec() webrtc.RTPCodecParameters
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}
