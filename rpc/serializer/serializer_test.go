package serializer

import (
	"reflect"
	"testing"

	"github.com/pcrawfurd/dIPFS/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTSuccess},

		// Connect submission
		{
			MsgType: common.MsgTIpfsConnect,
			Origin:  "alice",
			Payload: []byte("/ip4/10.0.0.1/tcp/4001"),
		},

		// Add submission
		{
			MsgType: common.MsgTIpfsAddBytes,
			Origin:  "bob",
			Payload: []byte("some raw content"),
		},

		// QueueLen response
		{
			MsgType: common.MsgTQueueLen,
			Queue:   2,
			Count:   42,
		},

		// QueueLs response
		{
			MsgType: common.MsgTQueueLs,
			Queue:   1,
			Items:   [][]byte{[]byte("cmd-one"), []byte("cmd-two")},
		},

		// Error response
		{
			MsgType: common.MsgTError,
			Err:     "test error message",
		},

		// Message with all fields filled
		{
			MsgType: common.MsgTIpfsInsertPin,
			Origin:  "carol",
			Payload: []byte("bafy-test-cid"),
			Queue:   1,
			Count:   7,
			Items:   [][]byte{[]byte("item")},
			Err:     "",
			Meta:    []byte("test-meta-data"),
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				// Compare
				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			// Test each message type (don't test for MsgTUnknown since this should raise an error)
			for msgType := common.MsgTSuccess; msgType <= common.MsgTCustom; msgType++ {
				msg := common.Message{MsgType: msgType}

				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Check type
				if result.MsgType != msgType {
					t.Errorf("Message type doesn't match after round trip: Expected %s, got %s",
						msgType.String(), result.MsgType.String())
				}
			}
		})
	}
}

// TestBinarySerializerSpecific tests specific edge cases for the binary serializer
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	// Test cases for empty or zero values
	testCases := []struct {
		name string
		msg  common.Message
	}{
		{
			name: "Empty message",
			msg:  common.Message{},
		},
		{
			name: "Message with empty strings and zero values",
			msg: common.Message{
				MsgType: common.MsgTIpfsConnect,
				Origin:  "",
				Payload: []byte{},
				Queue:   0,
				Count:   0,
				Err:     "",
				Meta:    []byte{},
			},
		},
		{
			name: "Message with empty payload slice but not nil",
			msg: common.Message{
				MsgType: common.MsgTIpfsAddBytes,
				Origin:  "a",
				Payload: []byte{},
			},
		},
		{
			name: "Message with empty item in items",
			msg: common.Message{
				MsgType: common.MsgTQueueLs,
				Items:   [][]byte{{}},
			},
		},
		{
			name: "Message with empty meta slice but not nil",
			msg: common.Message{
				MsgType: common.MsgTCustom,
				Meta:    []byte{},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Serialize
			data, err := serializer.Serialize(tc.msg)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			// Deserialize
			var result common.Message
			err = serializer.Deserialize(data, &result)
			if err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			// Verify Origin
			if tc.msg.Origin != result.Origin {
				t.Errorf("Origin mismatch: expected '%s', got '%s'", tc.msg.Origin, result.Origin)
			}

			// Verify Payload length
			if len(tc.msg.Payload) != len(result.Payload) {
				t.Errorf("Payload length mismatch: expected %d, got %d", len(tc.msg.Payload), len(result.Payload))
			}

			// Verify Queue and Count
			if tc.msg.Queue != result.Queue {
				t.Errorf("Queue mismatch: expected %d, got %d", tc.msg.Queue, result.Queue)
			}
			if tc.msg.Count != result.Count {
				t.Errorf("Count mismatch: expected %d, got %d", tc.msg.Count, result.Count)
			}

			// Verify Items length
			if len(tc.msg.Items) != len(result.Items) {
				t.Errorf("Items length mismatch: expected %d, got %d", len(tc.msg.Items), len(result.Items))
			}
		})
	}

	// Truncated data must fail cleanly
	t.Run("Truncated data", func(t *testing.T) {
		msg := common.Message{MsgType: common.MsgTIpfsAddBytes, Origin: "a", Payload: []byte("data")}
		data, err := serializer.Serialize(msg)
		if err != nil {
			t.Fatalf("Failed to serialize: %v", err)
		}

		var result common.Message
		if err := serializer.Deserialize(data[:len(data)-2], &result); err == nil {
			t.Error("Expected an error for truncated data")
		}
	})
}
