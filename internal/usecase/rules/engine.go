package rules

import (
	"fmt"
	"slices"

	"github.com/cespare/xxhash/v2"

	"ardamas/internal/domain/checkers"
	errs "ardamas/internal/errors"
)

// State is a copy of everything the engine owns. Presentation diffs two
// states instead of being notified by the engine.
type State struct {
	Board                  checkers.Board     `json:"board"`
	CurrentPlayer          checkers.Player    `json:"current_player"`
	Winner                 *checkers.Player   `json:"winner,omitempty"`
	ForcedContinuationFrom *checkers.Position `json:"forced_continuation_from,omitempty"`
	LocalPlayerColor       checkers.Player    `json:"local_player_color"`
	Checksum               uint64             `json:"checksum"`
}

// Engine is the rules authority for one game. It is not safe for concurrent
// use: exactly one owner mutates it (see peersync.Session).
type Engine struct {
	board      checkers.Board
	current    checkers.Player
	winner     *checkers.Player
	forced     *checkers.Position
	localColor checkers.Player
}

func NewEngine(localColor checkers.Player) *Engine {
	e := &Engine{localColor: localColor}
	e.ResetGame()
	return e
}

// ResetGame restores the canonical layout with Red to move.
func (e *Engine) ResetGame() {
	e.board = checkers.NewBoard()
	e.current = checkers.First
	e.winner = nil
	e.forced = nil
}

// Setup replaces the board and side to move, clearing any continuation.
func (e *Engine) Setup(board checkers.Board, toMove checkers.Player) {
	e.board = board
	e.current = toMove
	e.forced = nil
	e.checkWinner()
}

func (e *Engine) Board() checkers.Board {
	return e.board
}

func (e *Engine) CurrentPlayer() checkers.Player {
	return e.current
}

func (e *Engine) Winner() (checkers.Player, bool) {
	if e.winner == nil {
		return checkers.Red, false
	}
	return *e.winner, true
}

func (e *Engine) ForcedContinuationFrom() (checkers.Position, bool) {
	if e.forced == nil {
		return checkers.Position{}, false
	}
	return *e.forced, true
}

func (e *Engine) LocalPlayerColor() checkers.Player {
	return e.localColor
}

func (e *Engine) SetLocalPlayerColor(p checkers.Player) {
	e.localColor = p
}

func (e *Engine) State() State {
	st := State{
		Board:            e.board,
		CurrentPlayer:    e.current,
		LocalPlayerColor: e.localColor,
		Checksum:         e.Checksum(),
	}
	if e.winner != nil {
		w := *e.winner
		st.Winner = &w
	}
	if e.forced != nil {
		f := *e.forced
		st.ForcedContinuationFrom = &f
	}
	return st
}

// Checksum identifies the rules-relevant state: board, side to move and the
// continuation square. Two engines fed the same moves agree on it.
func (e *Engine) Checksum() uint64 {
	buf := e.board.AppendBytes(make([]byte, 0, checkers.BoardSize*checkers.BoardSize+3))
	buf = append(buf, byte(e.current), 0, 0)
	if e.forced != nil {
		buf[len(buf)-2] = byte(e.forced.Row + 1)
		buf[len(buf)-1] = byte(e.forced.Col + 1)
	}
	return xxhash.Sum64(buf)
}

// GetValidMoves lists the destinations of the piece on from. Captures
// suppress slides for that piece. While a capture chain is in progress only
// the chaining piece has moves.
func (e *Engine) GetValidMoves(from checkers.Position) []checkers.Position {
	if !from.InBounds() || e.board.At(from).IsEmpty() {
		return nil
	}
	if e.forced != nil && *e.forced != from {
		return nil
	}
	if captures := captureTargets(&e.board, from); len(captures) > 0 {
		return captures
	}
	return slideTargets(&e.board, from)
}

func (e *Engine) CanCapture(from checkers.Position) bool {
	if !from.InBounds() {
		return false
	}
	return len(captureTargets(&e.board, from)) > 0
}

// ApplyMove moves the piece on from to to and resolves captures, promotion,
// chain continuation and the win condition. It trusts the caller: turn
// ownership, legality and an already decided game are not checked here. Use
// Play for the checked variant.
func (e *Engine) ApplyMove(from, to checkers.Position) checkers.MoveResult {
	var res checkers.MoveResult
	if !from.InBounds() || !to.InBounds() {
		return res
	}
	piece := e.board.At(from)
	if piece.IsEmpty() {
		return res
	}

	if d, steps, ok := checkers.DirectionBetween(from, to); ok {
		cur := from
		for i := 1; i < steps; i++ {
			cur = cur.Step(d)
			if e.board.At(cur).IsOpponentOf(piece.Owner()) {
				res.Captured = append(res.Captured, cur)
				e.board.Set(cur, checkers.Empty)
			}
		}
	}
	if res.IsCapture() {
		first := res.Captured[0]
		res.CapturedPosition = &first
	}

	e.board.Set(from, checkers.Empty)
	e.board.Set(to, piece)

	if !piece.IsKing() && to.Row == piece.Owner().PromotionRow() {
		e.board.Set(to, piece.Promoted())
		res.IsPromotion = true
	}

	if res.IsCapture() && e.CanCapture(to) {
		landing := to
		e.forced = &landing
	} else {
		e.current = e.current.Opponent()
		e.forced = nil
		res.TurnChanged = true
	}

	e.checkWinner()
	return res
}

// Play is ApplyMove guarded by the checks the interaction layer would do:
// the game is still open, it is player's turn, from holds player's piece and
// to is one of its valid moves.
func (e *Engine) Play(player checkers.Player, from, to checkers.Position) (checkers.MoveResult, error) {
	if e.winner != nil {
		return checkers.MoveResult{}, errs.ErrGameOver
	}
	if !from.InBounds() || !to.InBounds() {
		return checkers.MoveResult{}, fmt.Errorf("%w: %s -> %s", errs.ErrOutOfBoard, from, to)
	}
	if player != e.current {
		return checkers.MoveResult{}, errs.ErrNotYourTurn
	}
	piece := e.board.At(from)
	if piece.IsEmpty() {
		return checkers.MoveResult{}, fmt.Errorf("%w: %s", errs.ErrEmptySquare, from)
	}
	if !piece.BelongsTo(player) {
		return checkers.MoveResult{}, fmt.Errorf("%w: %s", errs.ErrNotYourPiece, from)
	}
	if !slices.Contains(e.GetValidMoves(from), to) {
		return checkers.MoveResult{}, fmt.Errorf("%w: %s -> %s", errs.ErrIllegalMove, from, to)
	}
	return e.ApplyMove(from, to), nil
}

func (e *Engine) checkWinner() {
	red := e.board.Count(checkers.Red)
	black := e.board.Count(checkers.Black)

	e.winner = nil
	switch {
	case red == 0 && black > 0:
		w := checkers.Black
		e.winner = &w
	case black == 0 && red > 0:
		w := checkers.Red
		e.winner = &w
	}
}
