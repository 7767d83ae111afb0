package message

import "ardamas/internal/domain/checkers"

type MessageType string

const (
	TypeMove      MessageType = "gameMove"
	TypeRestart   MessageType = "restart"
	TypeWorldSync MessageType = "worldSync"
)

// Envelope is the outer frame exchanged between peers. Payload is marshalled
// as base64 by encoding/json. Seq and Checksum are only set on moves and are
// omitted when zero.
type Envelope struct {
	Type     MessageType `json:"type"`
	Payload  []byte      `json:"payload"`
	Seq      uint64      `json:"seq,omitempty"`
	Checksum string      `json:"checksum,omitempty"`
}

type Move struct {
	From checkers.Position `json:"from" bson:"from"`
	To   checkers.Position `json:"to" bson:"to"`
}
