package peersync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"ardamas/internal/domain/checkers"
	"ardamas/internal/domain/message"
	errs "ardamas/internal/errors"
	"ardamas/internal/usecase/rules"
)

// recordingTransport keeps every payload and optionally forwards it to a peer.
type recordingTransport struct {
	mu   sync.Mutex
	sent [][]byte
	peer *Session
	err  error
}

func (r *recordingTransport) Send(_ context.Context, payload []byte) error {
	r.mu.Lock()
	r.sent = append(r.sent, payload)
	peer, err := r.peer, r.err
	r.mu.Unlock()
	if err != nil {
		return err
	}
	if peer != nil {
		peer.OnRemoteEnvelope(payload)
	}
	return nil
}

func (r *recordingTransport) envelopes(t *testing.T) []message.Envelope {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]message.Envelope, 0, len(r.sent))
	for _, data := range r.sent {
		env, err := DecodeEnvelope(data)
		if err != nil {
			t.Fatalf("sent undecodable payload %s: %v", data, err)
		}
		out = append(out, env)
	}
	return out
}

func startSession(t *testing.T, local checkers.Player, transport Transport) *Session {
	t.Helper()
	s := NewSession(rules.NewEngine(local), transport, zaptest.NewLogger(t).Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-s.Done()
	})
	return s
}

func linkedPair(t *testing.T) (red, black *Session, redOut, blackOut *recordingTransport) {
	t.Helper()
	redOut = &recordingTransport{}
	blackOut = &recordingTransport{}
	red = startSession(t, checkers.Red, redOut)
	black = startSession(t, checkers.Black, blackOut)
	redOut.peer = black
	blackOut.peer = red
	return red, black, redOut, blackOut
}

func waitEvent(t *testing.T, s *Session, kind EventKind) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-s.Events():
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("no %s event", kind)
		}
	}
}

func snapshot(t *testing.T, s *Session) rules.State {
	t.Helper()
	st, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return st
}

// settle waits until every command queued before the call has run.
func settle(t *testing.T, s *Session) {
	t.Helper()
	if err := s.Do(context.Background(), func(*rules.Engine) {}); err != nil {
		t.Fatal(err)
	}
}

func TestLocalMoveReachesPeer(t *testing.T) {
	red, black, redOut, _ := linkedPair(t)
	ctx := context.Background()

	res, err := red.PlayLocal(ctx, checkers.Pos(5, 0), checkers.Pos(4, 1))
	if err != nil {
		t.Fatal(err)
	}
	if !res.TurnChanged {
		t.Fatal("turn should change")
	}

	local := waitEvent(t, red, EventMoveApplied)
	if local.Origin != OriginLocal {
		t.Fatalf("origin = %s", local.Origin)
	}
	remote := waitEvent(t, black, EventMoveApplied)
	if remote.Origin != OriginRemote || remote.Move.To != checkers.Pos(4, 1) {
		t.Fatalf("remote event %+v", remote)
	}

	if a, b := snapshot(t, red), snapshot(t, black); a.Checksum != b.Checksum || a.Board != b.Board {
		t.Fatal("peers diverged after one move")
	}

	envs := redOut.envelopes(t)
	if len(envs) != 1 || envs[0].Type != message.TypeMove || envs[0].Seq != 1 || envs[0].Checksum == "" {
		t.Fatalf("sent %+v", envs)
	}
}

func TestPlayLocalRejectsOpponentTurn(t *testing.T) {
	_, black, _, blackOut := linkedPair(t)

	_, err := black.PlayLocal(context.Background(), checkers.Pos(2, 1), checkers.Pos(3, 0))
	if !errors.Is(err, errs.ErrNotYourTurn) {
		t.Fatalf("err = %v, want ErrNotYourTurn", err)
	}
	if n := len(blackOut.envelopes(t)); n != 0 {
		t.Fatalf("rejected move was sent %d times", n)
	}
}

func TestAlternatingGameStaysInSync(t *testing.T) {
	red, black, _, _ := linkedPair(t)
	ctx := context.Background()

	moves := []struct {
		s        *Session
		from, to checkers.Position
	}{
		{red, checkers.Pos(5, 2), checkers.Pos(4, 3)},
		{black, checkers.Pos(2, 5), checkers.Pos(3, 4)},
		{red, checkers.Pos(4, 3), checkers.Pos(2, 5)},
	}
	for i, mv := range moves {
		if _, err := mv.s.PlayLocal(ctx, mv.from, mv.to); err != nil {
			t.Fatalf("move %d: %v", i, err)
		}
		other := black
		if mv.s == black {
			other = red
		}
		waitEvent(t, other, EventMoveApplied)
	}

	a, b := snapshot(t, red), snapshot(t, black)
	if a.Checksum != b.Checksum {
		t.Fatal("checksums differ")
	}
	if a.Board.Count(checkers.Black) != 11 {
		t.Fatalf("black pieces = %d, want 11", a.Board.Count(checkers.Black))
	}
	journal, err := black.Journal(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(journal) != 3 {
		t.Fatalf("journal = %v", journal)
	}
}

func TestMalformedPayloadIsDropped(t *testing.T) {
	s := startSession(t, checkers.Black, nil)
	before := snapshot(t, s)

	for _, raw := range []string{
		"not json",
		`{"type":"gameMove","payload":"e30="}`,
		`{"type":"teleport","payload":""}`,
	} {
		s.OnRemoteEnvelope([]byte(raw))
	}
	settle(t, s)

	if after := snapshot(t, s); after.Checksum != before.Checksum {
		t.Fatal("malformed payload changed the state")
	}
}

func TestDuplicateEnvelopeIsIgnored(t *testing.T) {
	s := startSession(t, checkers.Black, nil)

	env, err := NewMoveEnvelope(message.Move{From: checkers.Pos(5, 0), To: checkers.Pos(4, 1)}, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	env.Checksum = ""
	data, err := EncodeEnvelope(env)
	if err != nil {
		t.Fatal(err)
	}

	s.OnRemoteEnvelope(data)
	s.OnRemoteEnvelope(data)
	settle(t, s)

	journal, err := s.Journal(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(journal) != 1 {
		t.Fatalf("journal = %v, want one move", journal)
	}
}

func TestSequenceGapIsReported(t *testing.T) {
	s := startSession(t, checkers.Black, nil)

	env, err := NewMoveEnvelope(message.Move{From: checkers.Pos(5, 0), To: checkers.Pos(4, 1)}, 3, 0)
	if err != nil {
		t.Fatal(err)
	}
	env.Checksum = ""
	data, _ := EncodeEnvelope(env)
	s.OnRemoteEnvelope(data)

	ev := waitEvent(t, s, EventDesync)
	if ev.Desync.Reason != ReasonSequenceGap || ev.Desync.ExpectedSeq != 1 || ev.Desync.Seq != 3 {
		t.Fatalf("desync %+v", ev.Desync)
	}
	waitEvent(t, s, EventMoveApplied)
}

func TestChecksumMismatchIsReported(t *testing.T) {
	s := startSession(t, checkers.Black, nil)

	env, err := NewMoveEnvelope(message.Move{From: checkers.Pos(5, 0), To: checkers.Pos(4, 1)}, 1, 42)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := EncodeEnvelope(env)
	s.OnRemoteEnvelope(data)

	ev := waitEvent(t, s, EventDesync)
	if ev.Desync.Reason != ReasonChecksumMismatch || ev.Desync.RemoteChecksum != 42 {
		t.Fatalf("desync %+v", ev.Desync)
	}
	if ev.Desync.LocalChecksum != ev.State.Checksum {
		t.Fatal("local checksum should match the state after the move")
	}
	if len(ev.Desync.Journal) != 1 {
		t.Fatalf("journal = %v", ev.Desync.Journal)
	}
}

func TestRestartPropagates(t *testing.T) {
	red, black, redOut, _ := linkedPair(t)
	ctx := context.Background()

	if _, err := red.PlayLocal(ctx, checkers.Pos(5, 0), checkers.Pos(4, 1)); err != nil {
		t.Fatal(err)
	}
	waitEvent(t, black, EventMoveApplied)

	if err := red.Restart(ctx); err != nil {
		t.Fatal(err)
	}
	ev := waitEvent(t, black, EventReset)
	if ev.Origin != OriginRemote {
		t.Fatalf("origin = %s", ev.Origin)
	}

	fresh := rules.NewEngine(checkers.Black)
	if st := snapshot(t, black); st.Checksum != fresh.Checksum() || st.LocalPlayerColor != checkers.Black {
		t.Fatalf("black not reset: %+v", st)
	}
	if st := snapshot(t, red); st.Checksum != fresh.Checksum() {
		t.Fatal("red not reset")
	}

	// Sequence numbers restart with the game.
	if _, err := red.PlayLocal(ctx, checkers.Pos(5, 2), checkers.Pos(4, 3)); err != nil {
		t.Fatal(err)
	}
	envs := redOut.envelopes(t)
	last := envs[len(envs)-1]
	if last.Type != message.TypeMove || last.Seq != 1 {
		t.Fatalf("first move after restart sent as %+v", last)
	}
	waitEvent(t, black, EventMoveApplied)
	if _, err := black.PlayLocal(ctx, checkers.Pos(2, 1), checkers.Pos(3, 0)); err != nil {
		t.Fatalf("black cannot answer after restart: %v", err)
	}
}

func TestWorldMapIsForwardedUntouched(t *testing.T) {
	red, black, _, _ := linkedPair(t)
	worldMap := []byte{0x00, 0xff, 0x10, '{'}

	if err := red.ShareWorldMap(context.Background(), worldMap); err != nil {
		t.Fatal(err)
	}
	ev := waitEvent(t, black, EventWorldMap)
	if string(ev.WorldMap) != string(worldMap) {
		t.Fatalf("world map = %v, want %v", ev.WorldMap, worldMap)
	}
}

func TestSendFailureKeepsLocalMove(t *testing.T) {
	out := &recordingTransport{err: errors.New("peer gone")}
	s := startSession(t, checkers.Red, out)

	if _, err := s.PlayLocal(context.Background(), checkers.Pos(5, 0), checkers.Pos(4, 1)); err != nil {
		t.Fatalf("send failure leaked to caller: %v", err)
	}
	if st := snapshot(t, s); st.CurrentPlayer != checkers.Black {
		t.Fatal("local move was not kept")
	}
}

func TestOnLocalMoveOnlyAnnounces(t *testing.T) {
	out := &recordingTransport{}
	s := startSession(t, checkers.Red, out)
	ctx := context.Background()

	var res checkers.MoveResult
	if err := s.Do(ctx, func(e *rules.Engine) { res = e.ApplyMove(checkers.Pos(5, 0), checkers.Pos(4, 1)) }); err != nil {
		t.Fatal(err)
	}
	before := snapshot(t, s)
	if err := s.OnLocalMove(ctx, checkers.Pos(5, 0), checkers.Pos(4, 1)); err != nil {
		t.Fatal(err)
	}
	if after := snapshot(t, s); after.Checksum != before.Checksum {
		t.Fatal("OnLocalMove applied the move again")
	}
	envs := out.envelopes(t)
	if len(envs) != 1 {
		t.Fatalf("sent %d envelopes", len(envs))
	}
	if sum, _ := ParseChecksum(envs[0].Checksum); sum != before.Checksum {
		t.Fatal("announced checksum differs from the applied state")
	}
	if !res.TurnChanged {
		t.Fatal("unexpected result")
	}
}

func TestGameOverIsReportedOnce(t *testing.T) {
	out := &recordingTransport{}
	s := NewSession(rules.NewEngine(checkers.Red), out, zaptest.NewLogger(t).Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	err := s.Do(ctx, func(e *rules.Engine) {
		e.Setup(checkers.ParseBoard("", "", "", "..b.....", ".r......"), checkers.Red)
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.PlayLocal(ctx, checkers.Pos(4, 1), checkers.Pos(2, 3)); err != nil {
		t.Fatal(err)
	}
	ev := waitEvent(t, s, EventGameOver)
	if ev.State.Winner == nil || *ev.State.Winner != checkers.Red {
		t.Fatalf("winner = %v", ev.State.Winner)
	}
	if len(ev.Journal) != 1 {
		t.Fatalf("journal = %v", ev.Journal)
	}
	if _, err := s.PlayLocal(ctx, checkers.Pos(2, 3), checkers.Pos(1, 4)); !errors.Is(err, errs.ErrGameOver) {
		t.Fatalf("err = %v, want ErrGameOver", err)
	}
}

func TestClosedSession(t *testing.T) {
	s := NewSession(rules.NewEngine(checkers.Red), nil, zaptest.NewLogger(t).Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	cancel()
	<-s.Done()

	if _, err := s.Snapshot(context.Background()); !errors.Is(err, errs.ErrSessionClosed) {
		t.Fatalf("err = %v, want ErrSessionClosed", err)
	}
	s.OnRemoteEnvelope([]byte("{}"))
}
