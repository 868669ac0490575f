package node

import "testing"

// Every request type must have exactly one response type, and the mapping
// must cover the whole request enum.
func TestResponseMappingIsTotal(t *testing.T) {
	for req := ReqConnect; req <= ReqPeers; req++ {
		if _, ok := ResponseFor[req]; !ok {
			t.Errorf("request type %s has no response mapping", req)
		}
	}
	if len(ResponseFor) != int(ReqPeers)+1 {
		t.Errorf("mapping has %d entries, want %d", len(ResponseFor), int(ReqPeers)+1)
	}
}

func TestCheckResponse(t *testing.T) {
	req := NewAddBytesRequest([]byte("data"))

	if err := CheckResponse(req, Response{Type: RespAddBytes}); err != nil {
		t.Errorf("matching response rejected: %v", err)
	}

	err := CheckResponse(req, Response{Type: RespSuccess})
	if err == nil {
		t.Fatal("mismatched response accepted")
	}
	if !IsCode(err, ErrProtocolViolation) {
		t.Errorf("mismatch must be a protocol violation, got %v", err)
	}
}
