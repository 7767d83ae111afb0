package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	errs "ardamas/internal/errors"
)

const roomTTL = 12 * time.Hour

// joinScript adds a peer to a room set unless the room already holds
// ARGV[2] peers. Returns 1 when the peer is a member afterwards.
var joinScript = redis.NewScript(`
if redis.call('SISMEMBER', KEYS[1], ARGV[1]) == 1 then
	return 1
end
if redis.call('SCARD', KEYS[1]) >= tonumber(ARGV[2]) then
	return 0
end
redis.call('SADD', KEYS[1], ARGV[1])
redis.call('EXPIRE', KEYS[1], ARGV[3])
return 1
`)

// RedisBackplane shares rooms between relay instances: a set per room for
// membership and a pub/sub channel per room for frames.
type RedisBackplane struct {
	log    *zap.SugaredLogger
	client *redis.Client
}

func NewRedisBackplane(log *zap.SugaredLogger, client *redis.Client) *RedisBackplane {
	return &RedisBackplane{
		log:    log,
		client: client,
	}
}

func membersKey(room string) string {
	return "room:" + room + ":peers"
}

func framesChannel(room string) string {
	return "room:" + room + ":frames"
}

func (r *RedisBackplane) Join(ctx context.Context, room, peer string) error {
	ok, err := joinScript.Run(ctx, r.client,
		[]string{membersKey(room)},
		peer, MaxRoomPeers, int(roomTTL.Seconds()),
	).Int()
	if err != nil {
		return fmt.Errorf("join room %s: %w", room, err)
	}
	if ok == 0 {
		return errs.ErrRoomFull
	}
	return nil
}

func (r *RedisBackplane) Leave(ctx context.Context, room, peer string) error {
	if err := r.client.SRem(ctx, membersKey(room), peer).Err(); err != nil {
		return fmt.Errorf("leave room %s: %w", room, err)
	}
	return nil
}

func (r *RedisBackplane) Members(ctx context.Context, room string) ([]string, error) {
	members, err := r.client.SMembers(ctx, membersKey(room)).Result()
	if err != nil {
		return nil, fmt.Errorf("members of room %s: %w", room, err)
	}
	return members, nil
}

func (r *RedisBackplane) Publish(ctx context.Context, room string, frame Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	if err := r.client.Publish(ctx, framesChannel(room), data).Err(); err != nil {
		return fmt.Errorf("publish to room %s: %w", room, err)
	}
	return nil
}

func (r *RedisBackplane) Subscribe(ctx context.Context, room string) (<-chan Frame, error) {
	pubsub := r.client.Subscribe(ctx, framesChannel(room))
	// wait for the subscription to be confirmed so no frame published after
	// Subscribe returns is lost
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to room %s: %w", room, err)
	}

	out := make(chan Frame, 64)
	go func() {
		defer pubsub.Close()
		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var frame Frame
				if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
					r.log.Warnw("dropping malformed frame", "room", room, "error", err)
					continue
				}
				select {
				case out <- frame:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
