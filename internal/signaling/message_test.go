package signaling

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/pion/webrtc/v4"
)

// TestMarshalWireShape verifies each message type serializes to exactly the
// fields the browser peers expect.
func TestMarshalWireShape(t *testing.T) {
	mid := "0"
	idx := uint16(1)

	testCases := []struct {
		name string
		msg  Message
		want string
	}{
		{"ready", Ready(), `{"type":"ready"}`},
		{"bye", Bye(), `{"type":"bye"}`},
		{"offer", Offer("v=0\r\n"), `{"type":"offer","sdp":"v=0\r\n"}`},
		{"answer", Answer("v=0"), `{"type":"answer","sdp":"v=0"}`},
		{"end of candidates", EndOfCandidates(), `{"type":"candidate","candidate":null}`},
		{
			"candidate",
			CandidateMessage(&webrtc.ICECandidateInit{Candidate: "candidate:1 1 udp 1 10.0.0.1 5000 typ host", SDPMid: &mid, SDPMLineIndex: &idx}),
			`{"type":"candidate","candidate":"candidate:1 1 udp 1 10.0.0.1 5000 typ host","sdpMid":"0","sdpMLineIndex":1}`,
		},
		{"ready drops stray fields", Message{Type: TypeReady, SDP: "x", SDPMid: &mid}, `{"type":"ready"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := json.Marshal(tc.msg)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("Marshal = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"candidate","candidate":"candidate:abc","sdpMid":"audio","sdpMLineIndex":0}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if msg.Type != TypeCandidate {
		t.Fatalf("Type = %q, want candidate", msg.Type)
	}
	if msg.IsEndOfCandidates() {
		t.Fatal("populated candidate reported as end-of-candidates")
	}

	init := msg.ICECandidateInit()
	if init.Candidate != "candidate:abc" {
		t.Errorf("Candidate = %q", init.Candidate)
	}
	if init.SDPMid == nil || *init.SDPMid != "audio" {
		t.Errorf("SDPMid = %v, want audio", init.SDPMid)
	}
	if init.SDPMLineIndex == nil || *init.SDPMLineIndex != 0 {
		t.Errorf("SDPMLineIndex = %v, want 0", init.SDPMLineIndex)
	}
}

func TestDecodeRejects(t *testing.T) {
	testCases := []struct {
		name string
		data string
	}{
		{"not json", `hello`},
		{"unknown type", `{"type":"join"}`},
		{"missing type", `{"sdp":"v=0"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.data))
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("Decode(%s) = %v, want ErrMalformed", tc.data, err)
			}
		})
	}
}

func TestEndOfCandidates(t *testing.T) {
	empty := ""
	testCases := []struct {
		name string
		data string
		want bool
	}{
		{"null candidate", `{"type":"candidate","candidate":null}`, true},
		{"missing candidate", `{"type":"candidate"}`, true},
		{"empty candidate", `{"type":"candidate","candidate":""}`, true},
		{"empty candidate with mid", `{"type":"candidate","candidate":"","sdpMid":"0"}`, false},
		{"real candidate", `{"type":"candidate","candidate":"candidate:1"}`, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := Decode([]byte(tc.data))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if got := msg.IsEndOfCandidates(); got != tc.want {
				t.Fatalf("IsEndOfCandidates = %v, want %v", got, tc.want)
			}
		})
	}

	if !CandidateMessage(nil).IsEndOfCandidates() {
		t.Error("CandidateMessage(nil) is not end-of-candidates")
	}
	if !(Message{Type: TypeCandidate, Candidate: &empty}).IsEndOfCandidates() {
		t.Error("empty candidate string is not end-of-candidates")
	}
}

// TestOfferSDPSurvivesRelay checks that an offer's SDP decodes byte-for-byte
// into the description handed to the peer-connection.
func TestOfferSDPSurvivesRelay(t *testing.T) {
	sdp := "v=0\r\no=- 4611731400430051336 2 IN IP4 127.0.0.1\r\ns=-\r\nt=0 0\r\na=group:BUNDLE 0 1\r\n"

	data, err := json.Marshal(Offer(sdp))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	msg, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	desc, err := msg.SessionDescription()
	if err != nil {
		t.Fatalf("SessionDescription failed: %v", err)
	}
	if desc.Type != webrtc.SDPTypeOffer || desc.SDP != sdp {
		t.Fatalf("SessionDescription = %v %q, want offer %q", desc.Type, desc.SDP, sdp)
	}

	if _, err := Ready().SessionDescription(); err == nil {
		t.Error("ready message returned a session description")
	}
}
