package match

import (
	"time"

	"ardamas/internal/domain/checkers"
	"ardamas/internal/domain/message"
)

// Record is a finished game as seen by one peer.
type Record struct {
	ID            string          `json:"id" bson:"_id"`
	Room          string          `json:"room" bson:"room"`
	Peer          string          `json:"peer" bson:"peer"`
	LocalColor    checkers.Player `json:"local_color" bson:"local_color"`
	Winner        checkers.Player `json:"winner" bson:"winner"`
	Moves         []message.Move  `json:"moves" bson:"moves"`
	FinalChecksum string          `json:"final_checksum" bson:"final_checksum"`
	Desyncs       int             `json:"desyncs" bson:"desyncs"`
	StartedAt     time.Time       `json:"started_at" bson:"started_at"`
	FinishedAt    time.Time       `json:"finished_at" bson:"finished_at"`
}
