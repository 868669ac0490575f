package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/pcrawfurd/dIPFS/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasOrigin  byte = 1 << 0
	hasPayload byte = 1 << 1
	hasQueue   byte = 1 << 2
	hasCount   byte = 1 << 3
	hasItems   byte = 1 << 4
	hasErr     byte = 1 << 5
	hasMeta    byte = 1 << 6
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Calculate total size needed
	totalSize := b.sizeBytes(msg)
	result := make([]byte, totalSize)

	// Write message type
	result[0] = byte(msg.MsgType)

	// Initialize flags byte
	var flags byte = 0

	// Set position for writing
	pos := 2 // Start after MsgType and flags

	// Handle Origin
	if msg.Origin != "" {
		flags |= hasOrigin
		originBytes := []byte(msg.Origin)
		originLen := len(originBytes)

		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(originLen))
		pos += 4

		copy(result[pos:pos+originLen], originBytes)
		pos += originLen
	}

	// Handle Payload
	if msg.Payload != nil {
		flags |= hasPayload
		payloadLen := len(msg.Payload)

		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(payloadLen))
		pos += 4

		if payloadLen > 0 {
			copy(result[pos:pos+payloadLen], msg.Payload)
			pos += payloadLen
		}
	}

	// Handle Queue
	if msg.Queue > 0 {
		flags |= hasQueue
		result[pos] = msg.Queue
		pos += 1
	}

	// Handle Count
	if msg.Count > 0 {
		flags |= hasCount
		binary.BigEndian.PutUint64(result[pos:pos+8], msg.Count)
		pos += 8
	}

	// Handle Items
	if msg.Items != nil {
		flags |= hasItems

		// Write item count
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(msg.Items)))
		pos += 4

		// Write each item with its own length prefix
		for _, item := range msg.Items {
			binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(item)))
			pos += 4
			copy(result[pos:pos+len(item)], item)
			pos += len(item)
		}
	}

	// Handle Err
	if msg.Err != "" {
		flags |= hasErr
		errBytes := []byte(msg.Err)
		errLen := len(errBytes)

		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(errLen))
		pos += 4

		copy(result[pos:pos+errLen], errBytes)
		pos += errLen
	}

	// Handle Meta
	if msg.Meta != nil {
		flags |= hasMeta
		metaLen := len(msg.Meta)

		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(metaLen))
		pos += 4

		if metaLen > 0 {
			copy(result[pos:pos+metaLen], msg.Meta)
			pos += metaLen
		}
	}

	// Set flags byte after knowing which fields are present
	result[1] = flags

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}

	// Read message type
	msg.MsgType = common.MessageType(data[0])

	// Read flags
	flags := data[1]

	// Initialize read position
	pos := 2

	// Read Origin if present
	if flags&hasOrigin != 0 {
		originBytes, newPos, err := readChunk(data, pos, "origin")
		if err != nil {
			return err
		}
		msg.Origin = string(originBytes)
		pos = newPos
	} else {
		msg.Origin = ""
	}

	// Read Payload if present
	if flags&hasPayload != 0 {
		payloadBytes, newPos, err := readChunk(data, pos, "payload")
		if err != nil {
			return err
		}
		msg.Payload = make([]byte, len(payloadBytes))
		copy(msg.Payload, payloadBytes)
		pos = newPos
	} else {
		msg.Payload = nil
	}

	// Read Queue if present
	if flags&hasQueue != 0 {
		if pos+1 > len(data) {
			return fmt.Errorf("data too short for queue id")
		}
		msg.Queue = data[pos]
		pos += 1
	} else {
		msg.Queue = 0
	}

	// Read Count if present
	if flags&hasCount != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for count")
		}
		msg.Count = binary.BigEndian.Uint64(data[pos : pos+8])
		pos += 8
	} else {
		msg.Count = 0
	}

	// Read Items if present
	if flags&hasItems != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for item count")
		}
		itemCount := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		msg.Items = make([][]byte, 0, itemCount)
		for i := uint32(0); i < itemCount; i++ {
			itemBytes, newPos, err := readChunk(data, pos, "item")
			if err != nil {
				return err
			}
			item := make([]byte, len(itemBytes))
			copy(item, itemBytes)
			msg.Items = append(msg.Items, item)
			pos = newPos
		}
	} else {
		msg.Items = nil
	}

	// Read Err if present
	if flags&hasErr != 0 {
		errBytes, newPos, err := readChunk(data, pos, "error")
		if err != nil {
			return err
		}
		msg.Err = string(errBytes)
		pos = newPos
	} else {
		msg.Err = ""
	}

	// Read Meta if present
	if flags&hasMeta != 0 {
		metaBytes, newPos, err := readChunk(data, pos, "meta")
		if err != nil {
			return err
		}
		msg.Meta = make([]byte, len(metaBytes))
		copy(msg.Meta, metaBytes)
		pos = newPos
	} else {
		msg.Meta = nil
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// readChunk reads one length-prefixed chunk starting at pos and returns the
// chunk plus the position after it
func readChunk(data []byte, pos int, what string) ([]byte, int, error) {
	if pos+4 > len(data) {
		return nil, 0, fmt.Errorf("data too short for %s length", what)
	}
	chunkLen := binary.BigEndian.Uint32(data[pos : pos+4])
	pos += 4

	if pos+int(chunkLen) > len(data) {
		return nil, 0, fmt.Errorf("data too short for %s data", what)
	}
	return data[pos : pos+int(chunkLen)], pos + int(chunkLen), nil
}

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	// 1 byte for MsgType + 1 byte for flags
	size := 2

	// Add sizes for fields that require length encoding
	if msg.Origin != "" {
		size += 4 + len(msg.Origin) // 4 bytes for length + origin string
	}
	if msg.Payload != nil {
		size += 4 + len(msg.Payload) // 4 bytes for length + payload bytes
	}
	if msg.Queue > 0 {
		size += 1 // 1 byte for the queue id
	}
	if msg.Count > 0 {
		size += 8 // uint64
	}
	if msg.Items != nil {
		size += 4 // 4 bytes for the item count
		for _, item := range msg.Items {
			size += 4 + len(item) // 4 bytes for length + item bytes
		}
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err) // 4 bytes for length + error string
	}
	if msg.Meta != nil {
		size += 4 + len(msg.Meta) // 4 bytes for length + meta bytes
	}

	return size
}
