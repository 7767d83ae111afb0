package rules

import "ardamas/internal/domain/checkers"

// captureTargets returns the landing squares of every capture available to
// the piece on from. A man jumps two squares in any of the four diagonals,
// backwards included. A king flies along each ray and may land only on the
// square directly behind the first opposing piece it meets.
func captureTargets(b *checkers.Board, from checkers.Position) []checkers.Position {
	piece := b.At(from)
	if piece.IsEmpty() {
		return nil
	}
	owner := piece.Owner()

	var out []checkers.Position
	for _, d := range checkers.Diagonals {
		if piece.IsKing() {
			if landing, ok := kingCaptureOnRay(b, from, d, owner); ok {
				out = append(out, landing)
			}
			continue
		}
		over := from.Step(d)
		landing := over.Step(d)
		if !landing.InBounds() {
			continue
		}
		if b.At(over).IsOpponentOf(owner) && b.At(landing).IsEmpty() {
			out = append(out, landing)
		}
	}
	return out
}

func kingCaptureOnRay(b *checkers.Board, from checkers.Position, d checkers.Direction, owner checkers.Player) (checkers.Position, bool) {
	for cur := from.Step(d); cur.InBounds(); cur = cur.Step(d) {
		target := b.At(cur)
		if target.IsEmpty() {
			continue
		}
		if target.BelongsTo(owner) {
			return checkers.Position{}, false
		}
		beyond := cur.Step(d)
		if beyond.InBounds() && b.At(beyond).IsEmpty() {
			return beyond, true
		}
		return checkers.Position{}, false
	}
	return checkers.Position{}, false
}

// slideTargets returns the non-capturing destinations: every empty square of
// each ray up to the first piece for a king, the two forward diagonals for a man.
func slideTargets(b *checkers.Board, from checkers.Position) []checkers.Position {
	piece := b.At(from)
	if piece.IsEmpty() {
		return nil
	}

	var out []checkers.Position
	if piece.IsKing() {
		for _, d := range checkers.Diagonals {
			for cur := from.Step(d); cur.InBounds() && b.At(cur).IsEmpty(); cur = cur.Step(d) {
				out = append(out, cur)
			}
		}
		return out
	}

	forward := piece.Owner().Forward()
	for _, dc := range [2]int{-1, 1} {
		step := from.Step(checkers.Direction{Row: forward, Col: dc})
		if step.InBounds() && b.At(step).IsEmpty() {
			out = append(out, step)
		}
	}
	return out
}
