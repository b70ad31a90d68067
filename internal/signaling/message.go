// Package signaling defines the call signaling messages exchanged through the
// relay and a WebSocket client that sends and receives them.
package signaling

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"
)

// MessageType identifies the kind of signaling message.
type MessageType string

const (
	TypeReady     MessageType = "ready"
	TypeOffer     MessageType = "offer"
	TypeAnswer    MessageType = "answer"
	TypeCandidate MessageType = "candidate"
	TypeBye       MessageType = "bye"
)

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	switch t {
	case TypeReady, TypeOffer, TypeAnswer, TypeCandidate, TypeBye:
		return true
	}
	return false
}

// ErrMalformed is returned by Decode for frames that are not signaling messages.
var ErrMalformed = errors.New("malformed signaling message")

// Message is the JSON structure relayed between the two participants.
//
//	{"type":"ready"}
//	{"type":"offer","sdp":"..."}
//	{"type":"candidate","candidate":"candidate:...","sdpMid":"0","sdpMLineIndex":0}
//	{"type":"candidate","candidate":null}
type Message struct {
	Type          MessageType `json:"type"`
	SDP           string      `json:"sdp,omitempty"`
	Candidate     *string     `json:"candidate,omitempty"`
	SDPMid        *string     `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16     `json:"sdpMLineIndex,omitempty"`
}

// Wire shapes used by MarshalJSON. A candidate message always carries the
// candidate key, null included; the others never carry candidate fields.
type (
	bareWire struct {
		Type MessageType `json:"type"`
	}
	descriptionWire struct {
		Type MessageType `json:"type"`
		SDP  string      `json:"sdp"`
	}
	candidateWire struct {
		Type          MessageType `json:"type"`
		Candidate     *string     `json:"candidate"`
		SDPMid        *string     `json:"sdpMid,omitempty"`
		SDPMLineIndex *uint16     `json:"sdpMLineIndex,omitempty"`
	}
)

// MarshalJSON emits only the fields that belong to m.Type.
func (m Message) MarshalJSON() ([]byte, error) {
	switch m.Type {
	case TypeOffer, TypeAnswer:
		return json.Marshal(descriptionWire{Type: m.Type, SDP: m.SDP})
	case TypeCandidate:
		return json.Marshal(candidateWire{
			Type:          m.Type,
			Candidate:     m.Candidate,
			SDPMid:        m.SDPMid,
			SDPMLineIndex: m.SDPMLineIndex,
		})
	default:
		return json.Marshal(bareWire{Type: m.Type})
	}
}

// Decode parses a relayed frame and rejects unknown types.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !m.Type.Valid() {
		return Message{}, fmt.Errorf("%w: unknown type %q", ErrMalformed, m.Type)
	}
	return m, nil
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

func Ready() Message { return Message{Type: TypeReady} }

func Bye() Message { return Message{Type: TypeBye} }

func Offer(sdp string) Message { return Message{Type: TypeOffer, SDP: sdp} }

func Answer(sdp string) Message { return Message{Type: TypeAnswer, SDP: sdp} }

// EndOfCandidates is the candidate message with every field null.
func EndOfCandidates() Message { return Message{Type: TypeCandidate} }

// CandidateMessage converts a locally gathered candidate. nil marks the end of
// gathering, mirroring pion's final OnICECandidate(nil) call.
func CandidateMessage(init *webrtc.ICECandidateInit) Message {
	if init == nil {
		return EndOfCandidates()
	}
	c := init.Candidate
	return Message{
		Type:          TypeCandidate,
		Candidate:     &c,
		SDPMid:        init.SDPMid,
		SDPMLineIndex: init.SDPMLineIndex,
	}
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// IsEndOfCandidates reports whether a candidate message carries no candidate,
// mid or m-line index.
func (m Message) IsEndOfCandidates() bool {
	return (m.Candidate == nil || *m.Candidate == "") && m.SDPMid == nil && m.SDPMLineIndex == nil
}

// ICECandidateInit returns the candidate in pion's form.
func (m Message) ICECandidateInit() webrtc.ICECandidateInit {
	var init webrtc.ICECandidateInit
	if m.Candidate != nil {
		init.Candidate = *m.Candidate
	}
	init.SDPMid = m.SDPMid
	init.SDPMLineIndex = m.SDPMLineIndex
	return init
}

// SessionDescription returns the offer or answer carried by m.
func (m Message) SessionDescription() (webrtc.SessionDescription, error) {
	switch m.Type {
	case TypeOffer:
		return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: m.SDP}, nil
	case TypeAnswer:
		return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: m.SDP}, nil
	}
	return webrtc.SessionDescription{}, fmt.Errorf("%q message carries no session description", m.Type)
}
