// Package transport adapts pion's PeerConnection to the call engine.
package transport

import (
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/duocall/internal/call"
	"github.com/1ureka/duocall/internal/config"
	"github.com/1ureka/duocall/internal/media"
	"github.com/1ureka/duocall/internal/util"
)

// NewAPI builds a pion API with the default codecs and interceptors, logging
// through the application logger.
func NewAPI() (*webrtc.API, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}

	i := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, i); err != nil {
		return nil, err
	}

	s := webrtc.SettingEngine{LoggerFactory: util.PionLoggerFactory{}}

	return webrtc.NewAPI(
		webrtc.WithMediaEngine(m),
		webrtc.WithInterceptorRegistry(i),
		webrtc.WithSettingEngine(s),
	), nil
}

// Peer wraps a single PeerConnection. It satisfies call.PeerConnection.
type Peer struct {
	pc *webrtc.PeerConnection
}

// NewPeer creates a PeerConnection against ice and forwards its events to h.
func NewPeer(api *webrtc.API, ice config.ICE, h call.PeerHandlers) (*Peer, error) {
	pc, err := api.NewPeerConnection(ice.WebRTC())
	if err != nil {
		return nil, err
	}

	// A nil candidate marks the end of gathering.
	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if h.OnICECandidate == nil {
			return
		}
		if c == nil {
			h.OnICECandidate(nil)
			return
		}
		init := c.ToJSON()
		h.OnICECandidate(&init)
	})

	pc.OnTrack(func(t *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if h.OnTrack != nil {
			h.OnTrack(t)
		}
	})

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		util.LogDebug("PeerConnection state: %s", s.String())
		if h.OnConnectionStateChange != nil {
			h.OnConnectionStateChange(s)
		}
	})

	return &Peer{pc: pc}, nil
}

// Factory returns a call.PeerFactory producing Peers on api.
func Factory(api *webrtc.API, ice config.ICE) call.PeerFactory {
	return func(h call.PeerHandlers) (call.PeerConnection, error) {
		return NewPeer(api, ice, h)
	}
}

// ---------------------------------------------------------------------------
// Media
// ---------------------------------------------------------------------------

// AddTrack sends a local track and drains its RTCP so interceptors keep
// running.
func (p *Peer) AddTrack(t webrtc.TrackLocal) error {
	sender, err := p.pc.AddTrack(t)
	if err != nil {
		return err
	}

	go func() {
		buf := make([]byte, 1500)
		for {
			if _, _, err := sender.Read(buf); err != nil {
				return
			}
		}
	}()
	return nil
}

// ---------------------------------------------------------------------------
// Signaling
// ---------------------------------------------------------------------------

// CreateOffer generates an SDP offer.
func (p *Peer) CreateOffer() (webrtc.SessionDescription, error) {
	return p.pc.CreateOffer(nil)
}

// CreateAnswer generates an SDP answer.
func (p *Peer) CreateAnswer() (webrtc.SessionDescription, error) {
	return p.pc.CreateAnswer(nil)
}

// SetLocalDescription applies the local SDP and starts candidate gathering.
func (p *Peer) SetLocalDescription(sdp webrtc.SessionDescription) error {
	return p.pc.SetLocalDescription(sdp)
}

// SetRemoteDescription applies the remote SDP.
func (p *Peer) SetRemoteDescription(sdp webrtc.SessionDescription) error {
	return p.pc.SetRemoteDescription(sdp)
}

// AddICECandidate adds a remote ICE candidate received through signaling.
// An empty candidate ends the remote candidate list.
func (p *Peer) AddICECandidate(c webrtc.ICECandidateInit) error {
	return p.pc.AddICECandidate(c)
}

// SignalingState reports the offer/answer state.
func (p *Peer) SignalingState() webrtc.SignalingState {
	return p.pc.SignalingState()
}

// Close shuts the PeerConnection down.
func (p *Peer) Close() error {
	return p.pc.Close()
}

var _ call.PeerConnection = (*Peer)(nil)
var _ media.RemoteTrack = (*webrtc.TrackRemote)(nil)
