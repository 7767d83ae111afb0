package peersync

import (
	"ardamas/internal/domain/checkers"
	"ardamas/internal/domain/message"
	"ardamas/internal/usecase/rules"
)

type Origin int

const (
	OriginLocal Origin = iota
	OriginRemote
)

func (o Origin) String() string {
	if o == OriginRemote {
		return "remote"
	}
	return "local"
}

type EventKind int

const (
	EventMoveApplied EventKind = iota + 1
	EventReset
	EventWorldMap
	EventDesync
	EventGameOver
)

func (k EventKind) String() string {
	switch k {
	case EventMoveApplied:
		return "move"
	case EventReset:
		return "reset"
	case EventWorldMap:
		return "world_map"
	case EventDesync:
		return "desync"
	case EventGameOver:
		return "game_over"
	}
	return "unknown"
}

// Event tells presentation that the engine state changed. State is a copy
// taken right after the change.
type Event struct {
	Kind     EventKind
	Origin   Origin
	Move     message.Move
	Result   checkers.MoveResult
	State    rules.State
	WorldMap []byte
	Desync   *Desync
	Journal  []message.Move
}

const (
	ReasonSequenceGap      = "sequence gap"
	ReasonChecksumMismatch = "checksum mismatch"
)

// Desync describes a detected divergence between the two peers. It is
// reported, never repaired.
type Desync struct {
	Reason         string
	Seq            uint64
	ExpectedSeq    uint64
	LocalChecksum  uint64
	RemoteChecksum uint64
	Journal        []message.Move
}
