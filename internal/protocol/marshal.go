package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
)

// bufferPool amortizes the allocation cost of the byte buffer used to encode
// every outbound frame, mirroring the sync.Pool the teacher's msgpack
// marshaler used for the same reason.
var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// Marshal encodes any outbound record to a single self-delimiting JSON
// text frame.
func Marshal(v any) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	enc := json.NewEncoder(buf)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("protocol: marshal: %w", err)
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// envelope extracts just the discriminator so the caller can dispatch to the
// right concrete type before doing a second, fully-typed unmarshal.
type envelope struct {
	Type string `json:"type"`
}

// PeekType reads the "type" discriminator out of a raw inbound frame without
// committing to a concrete record shape yet.
func PeekType(raw []byte) (string, error) {
	var e envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return "", fmt.Errorf("protocol: malformed frame: %w", err)
	}
	if e.Type == "" {
		return "", fmt.Errorf("protocol: frame missing \"type\"")
	}
	return e.Type, nil
}

// UnmarshalJoin decodes a join record.
func UnmarshalJoin(raw []byte) (*Join, error) {
	var m Join
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("protocol: malformed join: %w", err)
	}
	return &m, nil
}

// UnmarshalSpectate decodes a spectate record.
func UnmarshalSpectate(raw []byte) (*Spectate, error) {
	var m Spectate
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("protocol: malformed spectate: %w", err)
	}
	return &m, nil
}

// UnmarshalStart decodes a start record.
func UnmarshalStart(raw []byte) (*Start, error) {
	var m Start
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("protocol: malformed start: %w", err)
	}
	return &m, nil
}

// UnmarshalAction decodes an action record. It deliberately does not
// validate Action.Type or Amount against the currently-legal actions — that
// is the caller's job (§4.6); this only rejects records that are not even
// shaped like an action.
func UnmarshalAction(raw []byte) (*Action, error) {
	var m Action
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("protocol: malformed action: %w", err)
	}
	if m.Action.Type == "" {
		return nil, fmt.Errorf("protocol: action missing inner action.type")
	}
	return &m, nil
}
