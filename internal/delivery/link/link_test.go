package link_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap/zaptest"

	"ardamas/internal/delivery/link"
	"ardamas/internal/delivery/relay"
	"ardamas/internal/domain/checkers"
	errs "ardamas/internal/errors"
	repo "ardamas/internal/repository"
	"ardamas/internal/usecase/peersync"
	"ardamas/internal/usecase/rules"
)

func relayURL(t *testing.T) string {
	t.Helper()
	r := chi.NewRouter()
	relay.NewRelayHandler(zaptest.NewLogger(t).Sugar(), repo.NewMemoryBackplane()).Router(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url, room, peer string) *link.Link {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	l, err := link.Dial(ctx, zaptest.NewLogger(t).Sugar(), url, room, peer)
	if err != nil {
		t.Fatalf("dial %s: %v", peer, err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLinkCarriesFramesBothWays(t *testing.T) {
	url := relayURL(t)
	alice := dial(t, url, "room", "alice")
	bob := dial(t, url, "room", "bob")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	received := make(chan string, 4)
	go func() { _ = bob.Listen(ctx, func(b []byte) { received <- string(b) }) }()

	for _, msg := range []string{"a", "b"} {
		if err := alice.Send(ctx, []byte(msg)); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	for _, want := range []string{"a", "b"} {
		select {
		case got := <-received:
			if got != want {
				t.Fatalf("got %q, want %q", got, want)
			}
		case <-ctx.Done():
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestDialFullRoom(t *testing.T) {
	url := relayURL(t)
	dial(t, url, "room", "alice")
	dial(t, url, "room", "bob")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := link.Dial(ctx, zaptest.NewLogger(t).Sugar(), url, "room", "carol")
	if !errors.Is(err, errs.ErrRoomFull) {
		t.Fatalf("err = %v, want ErrRoomFull", err)
	}
}

func TestListenStopsOnCancel(t *testing.T) {
	url := relayURL(t)
	alice := dial(t, url, "room", "alice")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- alice.Listen(ctx, func([]byte) {}) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("listen returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("listen did not return")
	}
}

// Two sessions wired through a real relay play an opening and agree on the board.
func TestSessionsOverRelay(t *testing.T) {
	url := relayURL(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := func(color checkers.Player, name string) *peersync.Session {
		l := dial(t, url, "match", name)
		s := peersync.NewSession(rules.NewEngine(color), l, zaptest.NewLogger(t).Sugar())
		go func() { _ = s.Run(ctx) }()
		go func() { _ = l.Listen(ctx, s.OnRemoteEnvelope) }()
		return s
	}
	red := start(checkers.Red, "red")
	black := start(checkers.Black, "black")

	waitRemoteMove := func(s *peersync.Session) peersync.Event {
		t.Helper()
		for {
			select {
			case ev := <-s.Events():
				if ev.Kind == peersync.EventDesync {
					t.Fatalf("desync: %+v", ev.Desync)
				}
				if ev.Kind == peersync.EventMoveApplied && ev.Origin == peersync.OriginRemote {
					return ev
				}
			case <-ctx.Done():
				t.Fatal("timed out waiting for remote move")
			}
		}
	}

	if _, err := red.PlayLocal(ctx, checkers.Pos(5, 0), checkers.Pos(4, 1)); err != nil {
		t.Fatal(err)
	}
	waitRemoteMove(black)

	if _, err := black.PlayLocal(ctx, checkers.Pos(2, 1), checkers.Pos(3, 2)); err != nil {
		t.Fatal(err)
	}
	waitRemoteMove(red)

	a, err := red.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	b, err := black.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if a.Checksum != b.Checksum || a.Board != b.Board || a.CurrentPlayer != checkers.Red {
		t.Fatalf("peers diverged:\n%s\n%s", a.Board, b.Board)
	}
}
