package peersync

import (
	"encoding/json"
	"fmt"
	"strconv"

	"ardamas/internal/domain/checkers"
	"ardamas/internal/domain/message"
	errs "ardamas/internal/errors"
	"ardamas/internal/utils"
)

func EncodeMove(m message.Move) ([]byte, error) {
	return json.Marshal(m)
}

func DecodeMove(data []byte) (message.Move, error) {
	var raw struct {
		From *checkers.Position `json:"from"`
		To   *checkers.Position `json:"to"`
	}
	if err := utils.DecodeStrictJSON(data, &raw); err != nil {
		return message.Move{}, fmt.Errorf("%w: move payload: %v", errs.ErrMalformedEnvelope, err)
	}
	if raw.From == nil || raw.To == nil {
		return message.Move{}, fmt.Errorf("%w: move payload without from/to", errs.ErrMalformedEnvelope)
	}
	m := message.Move{From: *raw.From, To: *raw.To}
	if !m.From.InBounds() || !m.To.InBounds() {
		return message.Move{}, fmt.Errorf("%w: move %s -> %s", errs.ErrOutOfBoard, m.From, m.To)
	}
	return m, nil
}

func EncodeEnvelope(env message.Envelope) ([]byte, error) {
	return json.Marshal(env)
}

func DecodeEnvelope(data []byte) (message.Envelope, error) {
	var env message.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return message.Envelope{}, fmt.Errorf("%w: %v", errs.ErrMalformedEnvelope, err)
	}
	switch env.Type {
	case message.TypeMove, message.TypeRestart, message.TypeWorldSync:
	case "":
		return message.Envelope{}, fmt.Errorf("%w: missing type", errs.ErrMalformedEnvelope)
	default:
		return message.Envelope{}, fmt.Errorf("%w: %q", errs.ErrUnknownMessageType, env.Type)
	}
	return env, nil
}

func NewMoveEnvelope(m message.Move, seq uint64, checksum uint64) (message.Envelope, error) {
	payload, err := EncodeMove(m)
	if err != nil {
		return message.Envelope{}, err
	}
	return message.Envelope{
		Type:     message.TypeMove,
		Payload:  payload,
		Seq:      seq,
		Checksum: FormatChecksum(checksum),
	}, nil
}

func NewRestartEnvelope() message.Envelope {
	return message.Envelope{Type: message.TypeRestart, Payload: []byte{}}
}

func NewWorldSyncEnvelope(worldMap []byte) message.Envelope {
	return message.Envelope{Type: message.TypeWorldSync, Payload: worldMap}
}

func FormatChecksum(sum uint64) string {
	return strconv.FormatUint(sum, 16)
}

// ParseChecksum returns ok=false for an absent or unreadable checksum.
func ParseChecksum(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	sum, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, false
	}
	return sum, true
}
