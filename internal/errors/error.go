package errors

import "errors"

var (
	ErrOutOfBoard         = errors.New("position is outside the board")
	ErrEmptySquare        = errors.New("no piece on the square")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrNotYourPiece       = errors.New("piece belongs to the opponent")
	ErrIllegalMove        = errors.New("illegal move")
	ErrGameOver           = errors.New("game is already won")
	ErrMalformedEnvelope  = errors.New("malformed envelope")
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrSessionClosed      = errors.New("session closed")
	ErrRoomFull           = errors.New("room is full")
	ErrMatchNotFound      = errors.New("match not found")
)
