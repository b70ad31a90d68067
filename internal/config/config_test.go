package config

import (
	"errors"
	"reflect"
	"testing"
)

func TestRelayValidate(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Relay
		wantErr bool
	}{
		{"defaults", Relay{ListenAddr: DefaultListenAddr}, false},
		{"wildcard origin", Relay{ListenAddr: ":0", AllowedOrigins: []string{"*"}}, false},
		{"explicit origin", Relay{ListenAddr: ":0", AllowedOrigins: []string{"http://127.0.0.1:5173"}}, false},
		{"empty listen", Relay{}, true},
		{"negative capacity", Relay{ListenAddr: ":0", RoomCapacity: -1}, true},
		{"origin without scheme", Relay{ListenAddr: ":0", AllowedOrigins: []string{"example.com"}}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate() = %v, want wrapped ErrInvalid", err)
			}
		})
	}
}

func TestPeerValidate(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Peer
		wantErr bool
	}{
		{"ws", Peer{RelayURL: "ws://localhost:3000/ws", ICE: DefaultICE()}, false},
		{"wss no ice", Peer{RelayURL: "wss://relay.example.com/ws/room1"}, false},
		{"http scheme", Peer{RelayURL: "http://localhost:3000/ws"}, true},
		{"missing host", Peer{RelayURL: "ws:///ws"}, true},
		{"bad ice url", Peer{RelayURL: "ws://localhost:3000/ws", ICE: ICE{URLs: []string{"http://stun.example.com"}}}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestRelayURL(t *testing.T) {
	testCases := []struct {
		base, room string
		want       string
	}{
		{"localhost:3000", "", "ws://localhost:3000/ws"},
		{"ws://localhost:3000/anything?x=1", "", "ws://localhost:3000/ws"},
		{"https://relay.example.com", "family", "wss://relay.example.com/ws/family"},
		{"wss://relay.example.com/ws", "a b", "wss://relay.example.com/ws/a%20b"},
	}

	for _, tc := range testCases {
		got, err := RelayURL(tc.base, tc.room)
		if err != nil {
			t.Fatalf("RelayURL(%q, %q): %v", tc.base, tc.room, err)
		}
		if got != tc.want {
			t.Errorf("RelayURL(%q, %q) = %q, want %q", tc.base, tc.room, got, tc.want)
		}
	}

	if _, err := RelayURL("", ""); err == nil {
		t.Error("RelayURL with empty base: expected error")
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" stun:a:1, ,stun:b:2 ,")
	want := []string{"stun:a:1", "stun:b:2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitList = %v, want %v", got, want)
	}
	if SplitList("") != nil {
		t.Fatal("SplitList(\"\") should be nil")
	}
}

func TestICEWebRTC(t *testing.T) {
	cfg := DefaultICE().WebRTC()
	if cfg.ICECandidatePoolSize != 10 {
		t.Errorf("ICECandidatePoolSize = %d, want 10", cfg.ICECandidatePoolSize)
	}
	if len(cfg.ICEServers) != 1 || len(cfg.ICEServers[0].URLs) != 2 {
		t.Fatalf("ICEServers = %+v, want one server with two URLs", cfg.ICEServers)
	}

	if empty := (ICE{}).WebRTC(); len(empty.ICEServers) != 0 {
		t.Errorf("empty ICE produced servers: %+v", empty.ICEServers)
	}
}
