// Package config holds the relay and peer configuration types.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/pion/stun/v3"
	"github.com/pion/webrtc/v4"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// DefaultListenAddr is where the relay listens unless told otherwise.
const DefaultListenAddr = ":3000"

// DefaultRoom is joined by participants that connect without a room id.
const DefaultRoom = "default"

// Relay stores the parameters of the signaling relay process.
type Relay struct {
	ListenAddr     string
	AllowedOrigins []string // empty or "*" accepts any origin
	RoomCapacity   int      // 0 means no cap
	Debug          bool
}

// Validate reports the first problem with the relay configuration.
func (c Relay) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("%w: empty listen address", ErrInvalid)
	}
	if c.RoomCapacity < 0 {
		return fmt.Errorf("%w: room capacity must be >= 0, got %d", ErrInvalid, c.RoomCapacity)
	}
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: allowed origin %q is not scheme://host[:port]", ErrInvalid, o)
		}
	}
	return nil
}

// Peer stores the parameters of one call participant.
type Peer struct {
	RelayURL  string // ws(s)://host[:port]/ws[/room]
	ICE       ICE
	VideoFile string // IVF (VP8) used as the camera; empty sends a silent track
	AudioFile string // Ogg/Opus used as the microphone; empty sends a silent track
	RecordDir string // where remote media is written; empty disables recording
	AutoStart bool
	Debug     bool
}

// Validate reports the first problem with the peer configuration.
func (c Peer) Validate() error {
	u, err := url.Parse(c.RelayURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: relay URL %q", ErrInvalid, c.RelayURL)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w: relay URL scheme must be ws or wss, got %q", ErrInvalid, u.Scheme)
	}
	return c.ICE.Validate()
}

// RelayURL builds the WebSocket URL of a room on the relay at base. base may
// be a bare host:port or any http(s)/ws(s) URL; only scheme and host are kept.
func RelayURL(base, room string) (string, error) {
	raw := strings.TrimSpace(base)
	if !strings.Contains(raw, "://") {
		raw = "ws://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: relay address %q", ErrInvalid, base)
	}

	scheme := "ws"
	switch u.Scheme {
	case "wss", "https":
		scheme = "wss"
	}

	room = strings.TrimSpace(room)
	if room == "" {
		return fmt.Sprintf("%s://%s/ws", scheme, u.Host), nil
	}
	return fmt.Sprintf("%s://%s/ws/%s", scheme, u.Host, url.PathEscape(room)), nil
}

// SplitList parses a comma-separated flag value, dropping blanks.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// ICE
// ---------------------------------------------------------------------------

// ICE configures candidate discovery for every peer-connection.
type ICE struct {
	URLs              []string
	CandidatePoolSize uint8
}

// DefaultICE uses public Google STUN servers. No TURN: media only flows when
// a direct path exists.
func DefaultICE() ICE {
	return ICE{
		URLs: []string{
			"stun:stun1.l.google.com:19302",
			"stun:stun2.l.google.com:19302",
		},
		CandidatePoolSize: 10,
	}
}

// Validate checks that every URL carries a STUN/TURN scheme pion accepts.
func (c ICE) Validate() error {
	for _, raw := range c.URLs {
		if _, err := stun.ParseURI(raw); err != nil {
			return fmt.Errorf("%w: ICE server %q: %v", ErrInvalid, raw, err)
		}
	}
	return nil
}

// WebRTC converts the configuration into pion's form.
func (c ICE) WebRTC() webrtc.Configuration {
	cfg := webrtc.Configuration{
		ICECandidatePoolSize: c.CandidatePoolSize,
	}
	if len(c.URLs) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: c.URLs}}
	}
	return cfg
}
