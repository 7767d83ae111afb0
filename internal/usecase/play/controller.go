package play

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"ardamas/internal/domain/checkers"
	"ardamas/internal/usecase/rules"
)

// Game is the part of peersync.Session the controller drives.
type Game interface {
	Snapshot(ctx context.Context) (rules.State, error)
	ValidMoves(ctx context.Context, from checkers.Position) ([]checkers.Position, error)
	PlayLocal(ctx context.Context, from, to checkers.Position) (checkers.MoveResult, error)
}

type Outcome int

const (
	Ignored Outcome = iota
	Selected
	Moved
	// Continued means the move captured and the same piece must capture
	// again; it has been reselected.
	Continued
)

func (o Outcome) String() string {
	switch o {
	case Selected:
		return "selected"
	case Moved:
		return "moved"
	case Continued:
		return "continued"
	}
	return "ignored"
}

type Selection struct {
	From  checkers.Position
	Moves []checkers.Position
}

type TapResult struct {
	Outcome   Outcome
	Selection *Selection
	Move      *checkers.MoveResult
}

// Controller turns taps on board squares into engine calls for the local
// player. It enforces turn ownership and the game-over guard before any move
// reaches the engine. Invalid taps return the controller to idle without an
// error. A Controller belongs to one input goroutine.
type Controller struct {
	game      Game
	log       *zap.SugaredLogger
	selection *Selection
}

func NewController(game Game, log *zap.SugaredLogger) *Controller {
	return &Controller{game: game, log: log}
}

func (c *Controller) Selection() *Selection {
	return c.selection
}

func (c *Controller) Clear() {
	c.selection = nil
}

// Tap handles one tap. Errors are only returned when the session itself is
// unavailable.
func (c *Controller) Tap(ctx context.Context, pos checkers.Position) (TapResult, error) {
	st, err := c.game.Snapshot(ctx)
	if err != nil {
		return TapResult{}, err
	}
	if st.Winner != nil || st.CurrentPlayer != st.LocalPlayerColor || !pos.InBounds() {
		return c.ignore(st), nil
	}

	if st.Board.At(pos).BelongsTo(st.LocalPlayerColor) {
		if st.ForcedContinuationFrom != nil && *st.ForcedContinuationFrom != pos {
			return c.ignore(st), nil
		}
		moves, err := c.game.ValidMoves(ctx, pos)
		if err != nil {
			return TapResult{}, err
		}
		if len(moves) == 0 {
			return c.ignore(st), nil
		}
		c.selection = &Selection{From: pos, Moves: moves}
		return TapResult{Outcome: Selected, Selection: c.selection}, nil
	}

	if c.selection == nil || !slices.Contains(c.selection.Moves, pos) {
		return c.ignore(st), nil
	}

	from := c.selection.From
	res, err := c.game.PlayLocal(ctx, from, pos)
	if err != nil {
		// The state moved under the selection, e.g. a remote move landed first.
		c.log.Debugw("tap move rejected", "from", from, "to", pos, "error", err)
		c.selection = nil
		return TapResult{Outcome: Ignored}, nil
	}

	if res.TurnChanged {
		c.selection = nil
		return TapResult{Outcome: Moved, Move: &res}, nil
	}

	moves, err := c.game.ValidMoves(ctx, pos)
	if err != nil {
		return TapResult{}, err
	}
	c.selection = &Selection{From: pos, Moves: moves}
	return TapResult{Outcome: Continued, Selection: c.selection, Move: &res}, nil
}

// ignore drops the selection unless it is the piece that must keep capturing.
func (c *Controller) ignore(st rules.State) TapResult {
	if c.selection != nil && st.ForcedContinuationFrom != nil && c.selection.From == *st.ForcedContinuationFrom {
		return TapResult{Outcome: Ignored, Selection: c.selection}
	}
	c.selection = nil
	return TapResult{Outcome: Ignored}
}
