package checkers

// Piece is the content of a square. The zero value is an empty square.
type Piece uint8

const (
	Empty Piece = iota
	RedMan
	BlackMan
	RedKing
	BlackKing
)

func ManOf(p Player) Piece {
	if p == Red {
		return RedMan
	}
	return BlackMan
}

func KingOf(p Player) Piece {
	if p == Red {
		return RedKing
	}
	return BlackKing
}

func (p Piece) IsEmpty() bool {
	return p == Empty
}

func (p Piece) IsKing() bool {
	return p == RedKing || p == BlackKing
}

// Owner is meaningless for Empty.
func (p Piece) Owner() Player {
	if p == BlackMan || p == BlackKing {
		return Black
	}
	return Red
}

func (p Piece) BelongsTo(pl Player) bool {
	return !p.IsEmpty() && p.Owner() == pl
}

func (p Piece) IsOpponentOf(pl Player) bool {
	return !p.IsEmpty() && p.Owner() != pl
}

// Promoted returns the king of the same owner. Kings stay kings.
func (p Piece) Promoted() Piece {
	if p.IsEmpty() {
		return p
	}
	return KingOf(p.Owner())
}

func (p Piece) Rune() rune {
	switch p {
	case RedMan:
		return 'r'
	case BlackMan:
		return 'b'
	case RedKing:
		return 'R'
	case BlackKing:
		return 'B'
	}
	return '.'
}
