package adapters

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"ardamas/internal/bootstrap"
	"ardamas/internal/domain/message"
	refereeRPC "ardamas/microservices/refereerpc"
)

type AdapterReferee struct {
	conn   *grpc.ClientConn
	client refereeRPC.RefereeClient
	cfg    *bootstrap.Config
	log    *zap.SugaredLogger
}

func NewAdapterReferee(cfg *bootstrap.Config, log *zap.SugaredLogger) *AdapterReferee {
	return &AdapterReferee{
		cfg: cfg,
		log: log,
	}
}

// Init creates the client connection. grpc connects lazily, so an
// unreachable referee shows up on the first Verify.
func (a *AdapterReferee) Init(opts ...grpc.DialOption) error {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(a.cfg.RefereeAddr, opts...)
	if err != nil {
		return fmt.Errorf("create referee client %s: %w", a.cfg.RefereeAddr, err)
	}
	a.conn = conn
	a.client = refereeRPC.NewRefereeClient(conn)
	a.log.Infow("referee client ready", "addr", a.cfg.RefereeAddr)
	return nil
}

func (a *AdapterReferee) Verify(ctx context.Context, moves []message.Move) (*refereeRPC.VerifyResponse, error) {
	if a.client == nil {
		return nil, fmt.Errorf("referee client is not initialized")
	}
	resp, err := a.client.Verify(ctx, &refereeRPC.VerifyRequest{Moves: moves})
	if err != nil {
		return nil, fmt.Errorf("verify %d moves: %w", len(moves), err)
	}
	return resp, nil
}

func (a *AdapterReferee) Close() error {
	if a.conn != nil {
		return a.conn.Close()
	}
	return nil
}
