package call

import "errors"

var (
	// ErrMediaAcquisition wraps media.ErrPermissionDenied or
	// media.ErrDeviceUnavailable when a call cannot start.
	ErrMediaAcquisition = errors.New("media acquisition failed")
	// ErrProtocolViolation marks a message that is not valid in the current
	// state. Such messages are dropped without touching the session.
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrNegotiation marks a peer-connection that rejected an offer, an
	// answer or a description. The call is torn down.
	ErrNegotiation = errors.New("negotiation failed")
	// ErrTransportLoss marks a peer-connection that failed after setup.
	ErrTransportLoss = errors.New("transport lost")
)
