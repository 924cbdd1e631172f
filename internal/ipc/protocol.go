// Package ipc provides the control channel between the vikeyd daemon and
// clients (vikeyctl, settings UIs). Requests and responses are framed with a
// fixed binary header followed by a JSON payload.
package ipc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"vikeyd/internal/metrics"
	"vikeyd/internal/shortcuts"
)

// Protocol constants.
const (
	ProtocolVersion = 1
	ProtocolMagic   = 0x564B4950 // "VKIP"
)

// MessageType identifies the type of IPC message.
type MessageType uint16

const (
	// Control messages (0x00xx)
	MsgPing         MessageType = 0x0001
	MsgPong         MessageType = 0x0002
	MsgError        MessageType = 0x0005
	MsgShutdown     MessageType = 0x0006
	MsgShutdownResp MessageType = 0x0007

	// Status (0x01xx)
	MsgStatus     MessageType = 0x0100
	MsgStatusResp MessageType = 0x0101

	// Input control (0x02xx)
	MsgSetEnabled       MessageType = 0x0200
	MsgSetEnabledResp   MessageType = 0x0201
	MsgSetMethod        MessageType = 0x0202
	MsgSetMethodResp    MessageType = 0x0203
	MsgReloadConfig     MessageType = 0x0204
	MsgReloadConfigResp MessageType = 0x0205
	MsgRestoreWord      MessageType = 0x0206
	MsgRestoreWordResp  MessageType = 0x0207

	// Shortcuts (0x03xx)
	MsgShortcutAdd        MessageType = 0x0300
	MsgShortcutAddResp    MessageType = 0x0301
	MsgShortcutRemove     MessageType = 0x0302
	MsgShortcutRemoveResp MessageType = 0x0303
	MsgShortcutList       MessageType = 0x0304
	MsgShortcutListResp   MessageType = 0x0305
	MsgShortcutClear      MessageType = 0x0306
	MsgShortcutClearResp  MessageType = 0x0307
	MsgShortcutImport     MessageType = 0x0308
	MsgShortcutImportResp MessageType = 0x0309
	MsgShortcutExport     MessageType = 0x030A
	MsgShortcutExportResp MessageType = 0x030B
)

// Header is the fixed-size message header.
type Header struct {
	Magic     uint32
	Version   uint8
	Flags     uint8
	Type      MessageType
	RequestID uint32
	Length    uint32 // payload length, header excluded
}

// HeaderSize is the encoded header size in bytes.
const HeaderSize = 16

// MaxPayload bounds a single message payload. Shortcut imports are the
// largest legitimate payload and stay far below this.
const MaxPayload = 4 * 1024 * 1024

// Message wraps a header and payload.
type Message struct {
	Header  Header
	Payload []byte
}

// NewMessage creates a message with the given type and payload.
func NewMessage(msgType MessageType, requestID uint32, payload []byte) *Message {
	return &Message{
		Header: Header{
			Magic:     ProtocolMagic,
			Version:   ProtocolVersion,
			Type:      msgType,
			RequestID: requestID,
			Length:    uint32(len(payload)),
		},
		Payload: payload,
	}
}

// Write writes the header to w.
func (h *Header) Write(w io.Writer) error {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	buf[4] = h.Version
	buf[5] = h.Flags
	binary.BigEndian.PutUint16(buf[6:8], uint16(h.Type))
	binary.BigEndian.PutUint32(buf[8:12], h.RequestID)
	binary.BigEndian.PutUint32(buf[12:16], h.Length)
	_, err := w.Write(buf)
	return err
}

// ReadHeader reads and validates a header from r.
func ReadHeader(r io.Reader) (*Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	h := &Header{
		Magic:     binary.BigEndian.Uint32(buf[0:4]),
		Version:   buf[4],
		Flags:     buf[5],
		Type:      MessageType(binary.BigEndian.Uint16(buf[6:8])),
		RequestID: binary.BigEndian.Uint32(buf[8:12]),
		Length:    binary.BigEndian.Uint32(buf[12:16]),
	}

	if h.Magic != ProtocolMagic {
		return nil, fmt.Errorf("invalid magic number: %#x", h.Magic)
	}
	if h.Version > ProtocolVersion {
		return nil, fmt.Errorf("unsupported protocol version: %d", h.Version)
	}
	return h, nil
}

// Write writes the full message to w.
func (m *Message) Write(w io.Writer) error {
	if err := m.Header.Write(w); err != nil {
		return err
	}
	if len(m.Payload) > 0 {
		_, err := w.Write(m.Payload)
		return err
	}
	return nil
}

// ReadMessage reads a complete message from r.
func ReadMessage(r io.Reader) (*Message, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	m := &Message{Header: *h}
	if h.Length > 0 {
		if h.Length > MaxPayload {
			return nil, fmt.Errorf("payload too large: %d bytes", h.Length)
		}
		m.Payload = make([]byte, h.Length)
		if _, err := io.ReadFull(r, m.Payload); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Request/response payloads.

// ErrorResponse is sent when an operation fails.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrUnknown        = 1
	ErrInvalidRequest = 2
	ErrNotFound       = 3
	ErrInternalError  = 5
)

// StatusResponse contains daemon status.
type StatusResponse struct {
	Version       string           `json:"version"`
	UptimeSec     int64            `json:"uptime_sec"`
	Enabled       bool             `json:"enabled"`
	Method        string           `json:"method"`
	EngineLoaded  bool             `json:"engine_loaded"`
	ForegroundApp string           `json:"foreground_app,omitempty"`
	Metrics       metrics.Snapshot `json:"metrics"`
}

// Ack is the generic success/failure response.
type Ack struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// SetEnabledRequest toggles Vietnamese transformation.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// SetMethodRequest switches the input method.
type SetMethodRequest struct {
	Method string `json:"method"` // "telex" or "vni"
}

// RestoreWordRequest seeds the engine's restore memory.
type RestoreWordRequest struct {
	Word string `json:"word"`
}

// ShortcutAddRequest registers a text-expansion shortcut.
type ShortcutAddRequest struct {
	Trigger     string `json:"trigger"`
	Replacement string `json:"replacement"`
}

// ShortcutRemoveRequest removes a shortcut by trigger.
type ShortcutRemoveRequest struct {
	Trigger string `json:"trigger"`
}

// ShortcutListResponse lists all stored shortcuts.
type ShortcutListResponse struct {
	Shortcuts []shortcuts.Shortcut `json:"shortcuts"`
}

// ShortcutImportRequest imports a shortcut file.
type ShortcutImportRequest struct {
	Format string `json:"format"` // "yaml" or "json"
	Data   []byte `json:"data"`
}

// ShortcutImportResponse reports the import result.
type ShortcutImportResponse struct {
	Success  bool   `json:"success"`
	Imported int    `json:"imported"`
	Error    string `json:"error,omitempty"`
}

// ShortcutExportResponse carries the exported YAML document.
type ShortcutExportResponse struct {
	Data []byte `json:"data"`
}

// Encode encodes a payload to JSON bytes.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode decodes JSON bytes into v.
func Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// NewErrorMessage creates an error response message.
func NewErrorMessage(requestID uint32, code int, message string) *Message {
	payload, _ := Encode(&ErrorResponse{Code: code, Message: message})
	return NewMessage(MsgError, requestID, payload)
}

// NewResponse creates a response message with a JSON payload.
func NewResponse(msgType MessageType, requestID uint32, v any) (*Message, error) {
	payload, err := Encode(v)
	if err != nil {
		return nil, err
	}
	return NewMessage(msgType, requestID, payload), nil
}
