package usecase

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"ardamas/internal/domain"
	"ardamas/internal/domain/message"
	"ardamas/internal/usecase/peersync"
	refereeRPC "ardamas/microservices/refereerpc"
)

// MaxReplayMoves bounds a single Verify request.
const MaxReplayMoves = 2000

type Replayer interface {
	Replay(ctx context.Context, moves []message.Move) (domain.Verdict, error)
}

type RefereeUseCase struct {
	store Replayer
	refereeRPC.UnimplementedRefereeServer
}

func NewRefereeUseCase(store Replayer) *RefereeUseCase {
	return &RefereeUseCase{
		store: store,
	}
}

func (r *RefereeUseCase) Verify(ctx context.Context, in *refereeRPC.VerifyRequest) (*refereeRPC.VerifyResponse, error) {
	if len(in.Moves) > MaxReplayMoves {
		return nil, status.Errorf(codes.InvalidArgument, "too many moves: %d > %d", len(in.Moves), MaxReplayMoves)
	}
	verdict, err := r.store.Replay(ctx, in.Moves)
	if err != nil {
		return nil, status.FromContextError(err).Err()
	}
	return ConvertVerdictToRPC(verdict), nil
}

func ConvertVerdictToRPC(v domain.Verdict) *refereeRPC.VerifyResponse {
	return &refereeRPC.VerifyResponse{
		Checksum:      peersync.FormatChecksum(v.Checksum),
		Winner:        v.Winner,
		CurrentPlayer: v.CurrentPlayer,
		Applied:       v.Applied,
		IllegalAt:     v.IllegalAt,
		Reason:        v.Reason,
	}
}
