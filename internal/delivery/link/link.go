package link

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	errs "ardamas/internal/errors"
)

// Link is a peer's websocket connection to a relay room. It satisfies
// peersync.Transport.
type Link struct {
	log  *zap.SugaredLogger
	conn *websocket.Conn

	writeMu sync.Mutex
}

// Dial joins room on the relay at relayURL as peer.
func Dial(ctx context.Context, log *zap.SugaredLogger, relayURL, room, peer string) (*Link, error) {
	u, err := url.Parse(relayURL)
	if err != nil {
		return nil, fmt.Errorf("parse relay url: %w", err)
	}
	q := u.Query()
	q.Set("room", room)
	q.Set("peer", peer)
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusConflict {
			return nil, fmt.Errorf("join %s: %w", room, errs.ErrRoomFull)
		}
		return nil, fmt.Errorf("dial relay %s: %w", u.Redacted(), err)
	}

	log.Infow("connected to relay", "room", room, "peer", peer)
	return &Link{
		log:  log,
		conn: conn,
	}, nil
}

// Send writes one text frame. Concurrent calls are serialized.
func (l *Link) Send(ctx context.Context, payload []byte) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	deadline, _ := ctx.Deadline()
	if err := l.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := l.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Listen reads frames and passes each to onReceive until the connection
// closes or ctx is done. A normal close by the relay returns nil.
func (l *Link) Listen(ctx context.Context, onReceive func([]byte)) error {
	stop := context.AfterFunc(ctx, func() { _ = l.conn.Close() })
	defer stop()

	for {
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}
		onReceive(data)
	}
}

// Close says goodbye to the relay and closes the connection.
func (l *Link) Close() error {
	l.writeMu.Lock()
	err := l.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	l.writeMu.Unlock()
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		l.log.Debugw("close handshake", "error", err)
	}
	return l.conn.Close()
}
