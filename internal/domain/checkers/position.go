package checkers

import "fmt"

const BoardSize = 8

type Position struct {
	Row int `json:"row" bson:"row"`
	Col int `json:"col" bson:"col"`
}

func Pos(row, col int) Position {
	return Position{Row: row, Col: col}
}

func (p Position) InBounds() bool {
	return p.Row >= 0 && p.Row < BoardSize && p.Col >= 0 && p.Col < BoardSize
}

// IsDark reports whether p is one of the playable squares of the standard layout.
func (p Position) IsDark() bool {
	return (p.Row+p.Col)%2 == 1
}

func (p Position) Step(d Direction) Position {
	return Position{Row: p.Row + d.Row, Col: p.Col + d.Col}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

type Direction struct {
	Row int
	Col int
}

var Diagonals = [4]Direction{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}

// DirectionBetween returns the unit diagonal step from a to b and the number of
// steps, or ok=false when the squares do not share a diagonal.
func DirectionBetween(a, b Position) (d Direction, steps int, ok bool) {
	dr, dc := b.Row-a.Row, b.Col-a.Col
	if dr == 0 || abs(dr) != abs(dc) {
		return Direction{}, 0, false
	}
	return Direction{Row: sign(dr), Col: sign(dc)}, abs(dr), true
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	if x < 0 {
		return -1
	}
	return 1
}
