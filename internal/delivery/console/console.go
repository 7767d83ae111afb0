package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"ardamas/internal/domain/checkers"
	"ardamas/internal/domain/match"
	"ardamas/internal/domain/message"
	"ardamas/internal/usecase/peersync"
	"ardamas/internal/usecase/play"
	"ardamas/internal/usecase/rules"
	refereeRPC "ardamas/microservices/refereerpc"
)

const refereeTimeout = 5 * time.Second

var (
	errQuit      = errors.New("quit")
	errNoArchive = errors.New("match archive is not configured")
)

type Archiver interface {
	SaveMatch(ctx context.Context, record match.Record) (string, error)
	ListMatches(ctx context.Context, room string, limit int64) ([]match.Record, error)
	GetMatch(ctx context.Context, id string) (match.Record, error)
}

const historyLimit = 10

type Referee interface {
	Verify(ctx context.Context, moves []message.Move) (*refereeRPC.VerifyResponse, error)
}

// Console is a line-oriented driver for one peer: it turns commands into
// taps and prints the board whenever the session reports a change.
// ReadCommands and WatchEvents run on separate goroutines; only
// ReadCommands touches the controller.
type Console struct {
	log        *zap.SugaredLogger
	session    *peersync.Session
	controller *play.Controller

	outMu sync.Mutex
	out   io.Writer

	archive Archiver
	referee Referee
	room    string
	peer    string

	// owned by WatchEvents
	startedAt time.Time
	desyncs   int
}

type Option func(*Console)

// WithArchive stores every finished game.
func WithArchive(a Archiver, room, peer string) Option {
	return func(c *Console) {
		c.archive = a
		c.room = room
		c.peer = peer
	}
}

// WithReferee asks the referee for a replay verdict on every desync.
func WithReferee(r Referee) Option {
	return func(c *Console) {
		c.referee = r
	}
}

func NewConsole(log *zap.SugaredLogger, session *peersync.Session, out io.Writer, opts ...Option) *Console {
	c := &Console{
		log:        log,
		session:    session,
		controller: play.NewController(session, log),
		out:        out,
		startedAt:  time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReadCommands executes one command per input line until quit, EOF or ctx
// cancellation.
func (c *Console) ReadCommands(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.Execute(ctx, scanner.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			c.printf("error: %v\n", err)
		}
	}
	return scanner.Err()
}

// Execute runs a single command:
//
//	tap r c | move r1 c1 r2 c2 | restart | board | history | show id | quit
func (c *Console) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch cmd, args := fields[0], fields[1:]; cmd {
	case "tap":
		coords, err := parseCoords(args, 2)
		if err != nil {
			return err
		}
		res, err := c.controller.Tap(ctx, checkers.Pos(coords[0], coords[1]))
		if err != nil {
			return err
		}
		c.printTap(res)
	case "move":
		coords, err := parseCoords(args, 4)
		if err != nil {
			return err
		}
		c.controller.Clear()
		if res, err := c.controller.Tap(ctx, checkers.Pos(coords[0], coords[1])); err != nil {
			return err
		} else if res.Outcome != play.Selected {
			c.printf("cannot move from (%d,%d)\n", coords[0], coords[1])
			return nil
		}
		res, err := c.controller.Tap(ctx, checkers.Pos(coords[2], coords[3]))
		if err != nil {
			return err
		}
		c.printTap(res)
	case "restart":
		c.controller.Clear()
		return c.session.Restart(ctx)
	case "board":
		st, err := c.session.Snapshot(ctx)
		if err != nil {
			return err
		}
		c.printState(st)
	case "history":
		return c.printHistory(ctx)
	case "show":
		if len(args) != 1 {
			return fmt.Errorf("want a match id")
		}
		return c.printMatch(ctx, args[0])
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

// WatchEvents prints session events and runs the archive and referee hooks.
// It returns when ctx is done or the session stops.
func (c *Console) WatchEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.session.Done():
			return
		case ev := <-c.session.Events():
			c.handleEvent(ctx, ev)
		}
	}
}

func (c *Console) handleEvent(ctx context.Context, ev peersync.Event) {
	switch ev.Kind {
	case peersync.EventMoveApplied:
		c.printf("%s move %s -> %s\n", ev.Origin, ev.Move.From, ev.Move.To)
		c.printState(ev.State)
	case peersync.EventReset:
		c.startedAt = time.Now()
		c.desyncs = 0
		c.printf("%s restart\n", ev.Origin)
		c.printState(ev.State)
	case peersync.EventWorldMap:
		c.printf("world map received (%d bytes)\n", len(ev.WorldMap))
	case peersync.EventDesync:
		c.desyncs++
		c.printf("desync: %s\n", ev.Desync.Reason)
		c.consultReferee(ctx, ev.Desync)
	case peersync.EventGameOver:
		if ev.State.Winner != nil {
			c.printf("game over, %s wins\n", *ev.State.Winner)
		}
		c.archiveMatch(ctx, ev)
	}
}

func (c *Console) consultReferee(ctx context.Context, d *peersync.Desync) {
	if c.referee == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, refereeTimeout)
	defer cancel()

	verdict, err := c.referee.Verify(ctx, d.Journal)
	if err != nil {
		c.log.Warnw("referee unavailable", "error", err)
		return
	}
	c.log.Warnw("referee verdict",
		"reason", d.Reason,
		"local_checksum", peersync.FormatChecksum(d.LocalChecksum),
		"remote_checksum", peersync.FormatChecksum(d.RemoteChecksum),
		"referee_checksum", verdict.Checksum,
		"applied", verdict.Applied,
		"illegal_at", verdict.IllegalAt,
	)
	if verdict.IllegalAt >= 0 {
		c.printf("referee: move %d is illegal (%s)\n", verdict.IllegalAt, verdict.Reason)
	} else {
		c.printf("referee: %d moves legal, checksum %s\n", verdict.Applied, verdict.Checksum)
	}
}

func (c *Console) archiveMatch(ctx context.Context, ev peersync.Event) {
	if c.archive == nil || ev.State.Winner == nil {
		return
	}
	record := match.Record{
		Room:          c.room,
		Peer:          c.peer,
		LocalColor:    ev.State.LocalPlayerColor,
		Winner:        *ev.State.Winner,
		Moves:         ev.Journal,
		FinalChecksum: peersync.FormatChecksum(ev.State.Checksum),
		Desyncs:       c.desyncs,
		StartedAt:     c.startedAt,
		FinishedAt:    time.Now(),
	}
	id, err := c.archive.SaveMatch(ctx, record)
	if err != nil {
		c.log.Errorw("archive match", "room", c.room, "error", err)
		return
	}
	c.printf("match archived as %s\n", id)
}

func (c *Console) printHistory(ctx context.Context) error {
	if c.archive == nil {
		return errNoArchive
	}
	records, err := c.archive.ListMatches(ctx, c.room, historyLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		c.printf("no finished matches in %s\n", c.room)
		return nil
	}
	for _, r := range records {
		c.printf("%s %s won in %d moves, you were %s\n",
			r.FinishedAt.Format(time.DateTime), r.Winner, len(r.Moves), r.LocalColor)
		c.printf("  id %s\n", r.ID)
	}
	return nil
}

func (c *Console) printMatch(ctx context.Context, id string) error {
	if c.archive == nil {
		return errNoArchive
	}
	r, err := c.archive.GetMatch(ctx, id)
	if err != nil {
		return err
	}
	c.printf("match %s in %s, %s won, checksum %s\n", r.ID, r.Room, r.Winner, r.FinalChecksum)
	for i, m := range r.Moves {
		c.printf("%3d. %s -> %s\n", i+1, m.From, m.To)
	}
	return nil
}

func (c *Console) printTap(res play.TapResult) {
	switch res.Outcome {
	case play.Selected, play.Continued:
		c.printf("%s %s, moves %v\n", res.Outcome, res.Selection.From, res.Selection.Moves)
	case play.Moved:
		c.printf("moved\n")
	default:
		c.printf("ignored\n")
	}
}

func (c *Console) printState(st rules.State) {
	var sb strings.Builder
	sb.WriteString(st.Board.String())
	fmt.Fprintf(&sb, "to move: %s, you: %s", st.CurrentPlayer, st.LocalPlayerColor)
	if st.ForcedContinuationFrom != nil {
		fmt.Fprintf(&sb, ", continue from %s", *st.ForcedContinuationFrom)
	}
	sb.WriteByte('\n')
	c.printf("%s", sb.String())
}

func (c *Console) printf(format string, args ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	_, _ = fmt.Fprintf(c.out, format, args...)
}

func parseCoords(args []string, n int) ([]int, error) {
	if len(args) != n {
		return nil, fmt.Errorf("want %d coordinates, got %d", n, len(args))
	}
	coords := make([]int, n)
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("coordinate %q: %w", a, err)
		}
		coords[i] = v
	}
	return coords, nil
}
