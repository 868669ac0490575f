package command

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	cmds := []Command{
		{Kind: KindConnectTo, Payload: []byte("/ip4/127.0.0.1/tcp/4001")},
		{Kind: KindAddBytes, Payload: []byte{0x00, 0xff, 0x10}},
		{Kind: KindGetProviders, Payload: nil},
	}

	for _, cmd := range cmds {
		var got Command
		if err := got.Deserialize(cmd.Serialize()); err != nil {
			t.Fatalf("deserialize %s: %v", cmd, err)
		}
		if got.Kind != cmd.Kind || !bytes.Equal(got.Payload, cmd.Payload) {
			t.Errorf("round trip mismatch: got %+v, want %+v", got, cmd)
		}
	}
}

func TestDeserializeRejectsGarbage(t *testing.T) {
	var cmd Command
	if err := cmd.Deserialize(nil); err == nil {
		t.Error("expected error for empty input")
	}
	if err := cmd.Deserialize([]byte{200, 'x'}); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestEqual(t *testing.T) {
	a := Command{Kind: KindConnectTo, Payload: []byte("addr")}
	b := Command{Kind: KindConnectTo, Payload: []byte("addr")}
	c := Command{Kind: KindDisconnectFrom, Payload: []byte("addr")}
	d := Command{Kind: KindConnectTo, Payload: []byte("other")}

	if !a.Equal(b) {
		t.Error("identical commands must compare equal")
	}
	// Distinct variants never compare equal, even on the same payload.
	if a.Equal(c) {
		t.Error("ConnectTo must not equal DisconnectFrom")
	}
	if a.Equal(d) {
		t.Error("different payloads must not compare equal")
	}
}
