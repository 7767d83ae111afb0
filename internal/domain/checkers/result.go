package checkers

type MoveResult struct {
	CapturedPosition *Position `json:"captured_position,omitempty"`
	// Captured lists every opposing piece removed by the move, in walk order.
	// A flying move over several pieces in line removes all of them.
	Captured    []Position `json:"captured,omitempty"`
	IsPromotion bool       `json:"is_promotion"`
	TurnChanged bool       `json:"turn_changed"`
}

func (r MoveResult) IsCapture() bool {
	return len(r.Captured) > 0
}
