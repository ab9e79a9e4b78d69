// Package engineio encodes and decodes the text frames exchanged with the game
// server: engine-level control packets and socket-level event packets.
package engineio

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/whitebunny-cli/internal/domain"
)

type EngineType byte

const (
	EngineOpen    EngineType = '0'
	EngineClose   EngineType = '1'
	EnginePing    EngineType = '2'
	EnginePong    EngineType = '3'
	EngineMessage EngineType = '4'
	EngineUpgrade EngineType = '5'
	EngineNoop    EngineType = '6'
)

type SocketType byte

const (
	SocketConnect      SocketType = '0'
	SocketDisconnect   SocketType = '1'
	SocketEvent        SocketType = '2'
	SocketAck          SocketType = '3'
	SocketConnectError SocketType = '4'
)

const (
	ProbeRequest = "2probe"
	ProbeAck     = "3probe"
	Upgrade      = "5"
	Ping         = "2"
	Pong         = "3"
	Close        = "1"
	ConnectBind  = "40"
)

var ErrEmptyFrame = errors.New("empty frame")

type Packet struct {
	Engine EngineType
	Socket SocketType
	// Data is everything after the type markers.
	Data    string
	Event   string
	Payload json.RawMessage
}

func (p Packet) IsEvent() bool {
	return p.Engine == EngineMessage && p.Socket == SocketEvent
}

func (p Packet) IsProbeAck() bool {
	return p.Engine == EnginePong && p.Data == "probe"
}

func Decode(raw string) (Packet, error) {
	if raw == "" {
		return Packet{}, fmt.Errorf("%w: %w", domain.ErrProtocol, ErrEmptyFrame)
	}

	packet := Packet{Engine: EngineType(raw[0]), Data: raw[1:]}
	switch packet.Engine {
	case EngineOpen, EngineClose, EnginePing, EnginePong, EngineUpgrade, EngineNoop:
		return packet, nil
	case EngineMessage:
	default:
		return Packet{}, fmt.Errorf("%w: unknown engine packet type %q", domain.ErrProtocol, raw[0])
	}

	if packet.Data == "" {
		return Packet{}, fmt.Errorf("%w: message packet without socket type", domain.ErrProtocol)
	}
	packet.Socket = SocketType(packet.Data[0])
	packet.Data = packet.Data[1:]

	if packet.Socket != SocketEvent {
		return packet, nil
	}

	event, payload, err := decodeEvent(packet.Data)
	if err != nil {
		return Packet{}, err
	}
	packet.Event = event
	packet.Payload = payload

	return packet, nil
}

func decodeEvent(data string) (string, json.RawMessage, error) {
	// Events may carry a namespace ("/chat,") or ack id before the array.
	start := strings.IndexByte(data, '[')
	if start < 0 {
		return "", nil, fmt.Errorf("%w: event packet without array body", domain.ErrProtocol)
	}

	var parts []json.RawMessage
	if err := json.Unmarshal([]byte(data[start:]), &parts); err != nil {
		return "", nil, fmt.Errorf("%w: decode event body: %v", domain.ErrProtocol, err)
	}
	if len(parts) == 0 {
		return "", nil, fmt.Errorf("%w: event body is empty", domain.ErrProtocol)
	}

	var event string
	if err := json.Unmarshal(parts[0], &event); err != nil {
		return "", nil, fmt.Errorf("%w: event name is not a string", domain.ErrProtocol)
	}

	var payload json.RawMessage
	if len(parts) > 1 {
		payload = parts[1]
	}

	return event, payload, nil
}

// EncodeEvent builds a `42["name",payload]` frame. A nil payload is omitted.
func EncodeEvent(event string, payload any) (string, error) {
	if event == "" {
		return "", errors.New("event name is required")
	}

	body := []any{event}
	if payload != nil {
		body = append(body, payload)
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode event %q: %w", event, err)
	}

	return string(EngineMessage) + string(SocketEvent) + string(encoded), nil
}

type OpenPayload struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int64    `json:"pingInterval"`
	PingTimeout  int64    `json:"pingTimeout"`
	MaxPayload   int64    `json:"maxPayload"`
}

// ParseOpen extracts the open payload from a polling response body. The body
// may hold several length-prefixed or separator-joined packets; the first JSON
// object wins.
func ParseOpen(body string) (OpenPayload, error) {
	start := strings.IndexByte(body, '{')
	if start < 0 {
		return OpenPayload{}, fmt.Errorf("%w: handshake body has no JSON object", domain.ErrProtocol)
	}

	var open OpenPayload
	decoder := json.NewDecoder(strings.NewReader(body[start:]))
	if err := decoder.Decode(&open); err != nil {
		return OpenPayload{}, fmt.Errorf("%w: decode handshake body: %v", domain.ErrProtocol, err)
	}

	return open, nil
}

type connectErrorPayload struct {
	Message string `json:"message"`
}

// ConnectErrorMessage returns the message of a `44{...}` packet.
func ConnectErrorMessage(p Packet) string {
	if p.Engine != EngineMessage || p.Socket != SocketConnectError {
		return ""
	}

	var payload connectErrorPayload
	if err := json.Unmarshal([]byte(p.Data), &payload); err != nil {
		return strings.TrimSpace(p.Data)
	}
	return payload.Message
}
