package repository

import (
	"context"

	"go.uber.org/zap"

	"ardamas/internal/domain"
	"ardamas/internal/domain/checkers"
	"ardamas/internal/domain/message"
	"ardamas/internal/usecase/rules"
)

// ReplayRepository replays move lists on a fresh rules engine.
type ReplayRepository struct {
	log *zap.SugaredLogger
}

func NewReplayRepository(log *zap.SugaredLogger) *ReplayRepository {
	return &ReplayRepository{
		log: log,
	}
}

// Replay applies moves from the starting position through the checked
// engine path, taking the mover from the engine's turn, and stops at the
// first illegal move.
func (r *ReplayRepository) Replay(ctx context.Context, moves []message.Move) (domain.Verdict, error) {
	engine := rules.NewEngine(checkers.Red)
	verdict := domain.Verdict{IllegalAt: -1}

	for i, m := range moves {
		if err := ctx.Err(); err != nil {
			return domain.Verdict{}, err
		}
		if _, err := engine.Play(engine.CurrentPlayer(), m.From, m.To); err != nil {
			verdict.IllegalAt = i
			verdict.Reason = err.Error()
			r.log.Infow("illegal move in replay", "index", i, "from", m.From, "to", m.To, "error", err)
			break
		}
		verdict.Applied++
	}

	verdict.Checksum = engine.Checksum()
	verdict.CurrentPlayer = engine.CurrentPlayer()
	if winner, ok := engine.Winner(); ok {
		verdict.Winner = &winner
	}
	return verdict, nil
}
