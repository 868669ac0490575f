package base

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	out := frame{shard: 7, request: 42, payload: []byte("hello bridge")}
	go func() {
		if err := out.writeTo(client); err != nil {
			t.Errorf("writeTo failed: %v", err)
		}
	}()

	var in frame
	if err := in.readFrom(server, make([]byte, 64)); err != nil {
		t.Fatalf("readFrom failed: %v", err)
	}
	if in.shard != out.shard || in.request != out.request {
		t.Errorf("header mismatch: got shard=%d request=%d", in.shard, in.request)
	}
	if !bytes.Equal(in.payload, out.payload) {
		t.Errorf("payload mismatch: got %q, want %q", in.payload, out.payload)
	}
}

func TestFrameEmptyPayload(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	out := frame{shard: 1, request: 2}
	go func() {
		if err := out.writeTo(client); err != nil {
			t.Errorf("writeTo failed: %v", err)
		}
	}()

	var in frame
	if err := in.readFrom(server, nil); err != nil {
		t.Fatalf("readFrom failed: %v", err)
	}
	if len(in.payload) != 0 {
		t.Errorf("expected an empty payload, got %d bytes", len(in.payload))
	}
}

func TestFrameRejectsOversizedPayload(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	// Hand-craft a header announcing a payload above the limit
	header := make([]byte, frameHeaderSize)
	binary.BigEndian.PutUint64(header[:8], 1)
	binary.BigEndian.PutUint64(header[8:16], 2)
	binary.BigEndian.PutUint32(header[16:frameHeaderSize], maxFramePayload+1)
	go client.Write(header)

	var in frame
	if err := in.readFrom(server, nil); err == nil {
		t.Fatal("an oversized frame must be rejected")
	}
}
