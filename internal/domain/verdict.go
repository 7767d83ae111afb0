package domain

import "ardamas/internal/domain/checkers"

// Verdict is the outcome of replaying a move list from the starting position.
// Applied counts the moves replayed before the first illegal one, whose index
// is IllegalAt (-1 when every move was legal).
type Verdict struct {
	Checksum      uint64
	Winner        *checkers.Player
	CurrentPlayer checkers.Player
	Applied       int
	IllegalAt     int
	Reason        string
}
