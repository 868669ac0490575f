package base

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

const (
	// frameHeaderSize is the fixed prefix of every frame on the wire:
	// 8 bytes shard id, 8 bytes request id, 4 bytes payload length,
	// all big endian.
	frameHeaderSize = 20

	// maxFramePayload caps the payload length a peer may announce. A
	// frame above this limit is treated as a corrupt stream.
	maxFramePayload = 64 << 20
)

// frame is one multiplexed message on a transport connection. The request
// id ties a response frame back to the request that produced it.
type frame struct {
	shard   uint64
	request uint64
	payload []byte
}

// writeTo puts the frame on the wire in a single writev call.
func (f *frame) writeTo(conn net.Conn) error {
	if len(f.payload) > maxFramePayload {
		return fmt.Errorf("frame payload of %d bytes exceeds the %d byte limit", len(f.payload), maxFramePayload)
	}

	header := make([]byte, frameHeaderSize)
	binary.BigEndian.PutUint64(header[:8], f.shard)
	binary.BigEndian.PutUint64(header[8:16], f.request)
	binary.BigEndian.PutUint32(header[16:frameHeaderSize], uint32(len(f.payload)))

	b := net.Buffers{header, f.payload}
	_, err := b.WriteTo(conn)
	return err
}

// readFrom reads the next frame from the connection. The payload is read
// into buf when it fits, otherwise a temporary buffer is allocated, so the
// payload is only valid until the next read with the same buf.
func (f *frame) readFrom(conn net.Conn, buf []byte) error {
	if len(buf) < frameHeaderSize {
		buf = make([]byte, frameHeaderSize)
	}

	if _, err := io.ReadFull(conn, buf[:frameHeaderSize]); err != nil {
		return err
	}

	f.shard = binary.BigEndian.Uint64(buf[:8])
	f.request = binary.BigEndian.Uint64(buf[8:16])
	length := binary.BigEndian.Uint32(buf[16:frameHeaderSize])

	if length > maxFramePayload {
		return fmt.Errorf("frame announces a %d byte payload, limit is %d", length, maxFramePayload)
	}
	if length == 0 {
		f.payload = []byte{}
		return nil
	}

	if len(buf) < int(length) {
		buf = make([]byte, length)
	}
	if _, err := io.ReadFull(conn, buf[:length]); err != nil {
		return err
	}
	f.payload = buf[:length]
	return nil
}
