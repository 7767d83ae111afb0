package checkers

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Player is one of the two sides. Red is the first player and moves up the
// board (towards row 0); Black starts on rows 0-2 and moves down.
type Player uint8

const (
	Red Player = iota
	Black
)

const (
	First  = Red
	Second = Black
)

func (p Player) Opponent() Player {
	if p == Red {
		return Black
	}
	return Red
}

// Forward is the row delta of a man's non-capturing step.
func (p Player) Forward() int {
	if p == Red {
		return -1
	}
	return 1
}

// PromotionRow is the farthest row for p.
func (p Player) PromotionRow() int {
	if p == Red {
		return 0
	}
	return BoardSize - 1
}

func (p Player) String() string {
	if p == Red {
		return "red"
	}
	return "black"
}

func ParsePlayer(s string) (Player, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "red", "first":
		return Red, nil
	case "black", "second":
		return Black, nil
	}
	return Red, fmt.Errorf("unknown player %q", s)
}

func (p Player) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Player) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePlayer(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
