package peersync

import (
	"bytes"
	"context"
	"slices"

	"go.uber.org/zap"

	"ardamas/internal/domain/checkers"
	"ardamas/internal/domain/message"
	errs "ardamas/internal/errors"
	"ardamas/internal/usecase/rules"
)

// Transport delivers opaque payloads to the other peer. Inbound payloads are
// handed to Session.OnRemoteEnvelope by the transport's own read loop.
type Transport interface {
	Send(ctx context.Context, payload []byte) error
}

const defaultQueueSize = 64

// Session owns one rules engine and is its only mutator. Every operation,
// whether it comes from local input or from the network, runs as a command
// on the goroutine started by Run, in arrival order.
type Session struct {
	log       *zap.SugaredLogger
	engine    *rules.Engine
	transport Transport

	commands chan func(ctx context.Context)
	events   chan Event
	done     chan struct{}

	// owned by the Run goroutine
	sendSeq      uint64
	recvSeq      uint64
	journal      []message.Move
	overReported bool
}

type Option func(*Session)

func WithEventBuffer(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.events = make(chan Event, n)
		}
	}
}

func NewSession(engine *rules.Engine, transport Transport, log *zap.SugaredLogger, opts ...Option) *Session {
	s := &Session{
		log:       log,
		engine:    engine,
		transport: transport,
		commands:  make(chan func(ctx context.Context), defaultQueueSize),
		events:    make(chan Event, defaultQueueSize),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes queued commands until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-s.commands:
			cmd(ctx)
		}
	}
}

func (s *Session) Events() <-chan Event {
	return s.events
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Do runs fn on the owning goroutine and waits for it. fn must not call back
// into the session.
func (s *Session) Do(ctx context.Context, fn func(e *rules.Engine)) error {
	return s.call(ctx, func(context.Context) { fn(s.engine) })
}

func (s *Session) Snapshot(ctx context.Context) (rules.State, error) {
	var st rules.State
	err := s.Do(ctx, func(e *rules.Engine) { st = e.State() })
	return st, err
}

func (s *Session) ValidMoves(ctx context.Context, from checkers.Position) ([]checkers.Position, error) {
	var moves []checkers.Position
	err := s.Do(ctx, func(e *rules.Engine) { moves = e.GetValidMoves(from) })
	return moves, err
}

func (s *Session) CanCapture(ctx context.Context, from checkers.Position) (bool, error) {
	var ok bool
	err := s.Do(ctx, func(e *rules.Engine) { ok = e.CanCapture(from) })
	return ok, err
}

// PlayLocal applies a move of the local player through the checked engine
// path and announces it to the peer. The move is applied exactly once, here.
func (s *Session) PlayLocal(ctx context.Context, from, to checkers.Position) (checkers.MoveResult, error) {
	var (
		res     checkers.MoveResult
		playErr error
	)
	err := s.call(ctx, func(runCtx context.Context) {
		res, playErr = s.engine.Play(s.engine.LocalPlayerColor(), from, to)
		if playErr != nil {
			return
		}
		m := message.Move{From: from, To: to}
		s.announce(runCtx, m)
		s.emit(Event{Kind: EventMoveApplied, Origin: OriginLocal, Move: m, Result: res, State: s.engine.State()})
		s.reportGameOver(OriginLocal)
	})
	if err != nil {
		return checkers.MoveResult{}, err
	}
	return res, playErr
}

// OnLocalMove announces a move the caller already applied with Do. It never
// touches the engine's board.
func (s *Session) OnLocalMove(ctx context.Context, from, to checkers.Position) error {
	return s.call(ctx, func(runCtx context.Context) {
		s.announce(runCtx, message.Move{From: from, To: to})
		s.reportGameOver(OriginLocal)
	})
}

// OnRemoteEnvelope queues an inbound payload and returns without waiting for
// it to be applied. Malformed payloads are logged and dropped.
func (s *Session) OnRemoteEnvelope(data []byte) {
	payload := bytes.Clone(data)
	select {
	case s.commands <- func(ctx context.Context) { s.handleRemote(ctx, payload) }:
	case <-s.done:
		s.log.Warnw("session closed, inbound payload dropped", "bytes", len(payload))
	}
}

// Restart resets the local game and tells the peer to do the same.
func (s *Session) Restart(ctx context.Context) error {
	return s.call(ctx, func(runCtx context.Context) {
		s.reset()
		s.send(runCtx, NewRestartEnvelope())
		s.emit(Event{Kind: EventReset, Origin: OriginLocal, State: s.engine.State()})
	})
}

func (s *Session) ShareWorldMap(ctx context.Context, worldMap []byte) error {
	payload := bytes.Clone(worldMap)
	return s.call(ctx, func(runCtx context.Context) {
		s.send(runCtx, NewWorldSyncEnvelope(payload))
	})
}

// Journal returns the moves applied since the last reset, both origins.
func (s *Session) Journal(ctx context.Context) ([]message.Move, error) {
	var moves []message.Move
	err := s.call(ctx, func(context.Context) { moves = slices.Clone(s.journal) })
	return moves, err
}

func (s *Session) call(ctx context.Context, fn func(ctx context.Context)) error {
	finished := make(chan struct{})
	cmd := func(runCtx context.Context) {
		defer close(finished)
		fn(runCtx)
	}

	select {
	case s.commands <- cmd:
	case <-s.done:
		return errs.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-s.done:
		select {
		case <-finished:
			return nil
		default:
			return errs.ErrSessionClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) handleRemote(ctx context.Context, data []byte) {
	env, err := DecodeEnvelope(data)
	if err != nil {
		s.log.Warnw("dropping inbound payload", "error", err, "bytes", len(data))
		return
	}

	switch env.Type {
	case message.TypeMove:
		s.applyRemoteMove(env)
	case message.TypeRestart:
		s.reset()
		s.emit(Event{Kind: EventReset, Origin: OriginRemote, State: s.engine.State()})
	case message.TypeWorldSync:
		s.emit(Event{Kind: EventWorldMap, Origin: OriginRemote, WorldMap: env.Payload})
	}
}

func (s *Session) applyRemoteMove(env message.Envelope) {
	m, err := DecodeMove(env.Payload)
	if err != nil {
		s.log.Warnw("dropping move envelope", "error", err, "seq", env.Seq)
		return
	}

	if env.Seq != 0 {
		if env.Seq <= s.recvSeq {
			s.log.Warnw("duplicate move envelope", "seq", env.Seq, "last", s.recvSeq)
			return
		}
		if expected := s.recvSeq + 1; env.Seq != expected {
			s.desync(Desync{Reason: ReasonSequenceGap, Seq: env.Seq, ExpectedSeq: expected})
		}
		s.recvSeq = env.Seq
	}

	res := s.engine.ApplyMove(m.From, m.To)
	s.journal = append(s.journal, m)
	s.emit(Event{Kind: EventMoveApplied, Origin: OriginRemote, Move: m, Result: res, State: s.engine.State()})

	if remote, ok := ParseChecksum(env.Checksum); ok {
		if local := s.engine.Checksum(); local != remote {
			s.desync(Desync{
				Reason:         ReasonChecksumMismatch,
				Seq:            env.Seq,
				LocalChecksum:  local,
				RemoteChecksum: remote,
			})
		}
	}
	s.reportGameOver(OriginRemote)
}

func (s *Session) announce(ctx context.Context, m message.Move) {
	s.journal = append(s.journal, m)
	s.sendSeq++
	env, err := NewMoveEnvelope(m, s.sendSeq, s.engine.Checksum())
	if err != nil {
		s.log.Errorw("encode move", "error", err, "from", m.From, "to", m.To)
		return
	}
	s.send(ctx, env)
}

// send failures are logged and not retried.
func (s *Session) send(ctx context.Context, env message.Envelope) {
	data, err := EncodeEnvelope(env)
	if err != nil {
		s.log.Errorw("encode envelope", "error", err, "type", env.Type)
		return
	}
	if s.transport == nil {
		return
	}
	if err := s.transport.Send(ctx, data); err != nil {
		s.log.Warnw("send failed", "error", err, "type", env.Type, "seq", env.Seq)
	}
}

func (s *Session) reset() {
	s.engine.ResetGame()
	s.sendSeq = 0
	s.recvSeq = 0
	s.journal = nil
	s.overReported = false
}

func (s *Session) desync(d Desync) {
	d.Journal = slices.Clone(s.journal)
	s.log.Errorw("peer state diverged",
		"reason", d.Reason,
		"seq", d.Seq,
		"expected_seq", d.ExpectedSeq,
		"local_checksum", FormatChecksum(d.LocalChecksum),
		"remote_checksum", FormatChecksum(d.RemoteChecksum),
	)
	s.emit(Event{Kind: EventDesync, Origin: OriginRemote, Desync: &d, State: s.engine.State()})
}

func (s *Session) reportGameOver(origin Origin) {
	winner, over := s.engine.Winner()
	if !over || s.overReported {
		return
	}
	s.overReported = true
	s.log.Infow("game over", "winner", winner, "moves", len(s.journal))
	s.emit(Event{Kind: EventGameOver, Origin: origin, State: s.engine.State(), Journal: slices.Clone(s.journal)})
}

func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.log.Warnw("event buffer full, event dropped", "kind", ev.Kind)
	}
}
