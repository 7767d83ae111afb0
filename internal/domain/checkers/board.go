package checkers

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

type Board [BoardSize][BoardSize]Piece

// NewBoard returns the canonical starting layout: Black men on the dark
// squares of rows 0-2, Red men on the dark squares of rows 5-7.
func NewBoard() Board {
	var b Board
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			if !Pos(row, col).IsDark() {
				continue
			}
			switch {
			case row < 3:
				b[row][col] = BlackMan
			case row > 4:
				b[row][col] = RedMan
			}
		}
	}
	return b
}

func (b *Board) At(p Position) Piece {
	return b[p.Row][p.Col]
}

func (b *Board) Set(p Position, piece Piece) {
	b[p.Row][p.Col] = piece
}

func (b *Board) Count(pl Player) int {
	n := 0
	for row := range b {
		for _, piece := range b[row] {
			if piece.BelongsTo(pl) {
				n++
			}
		}
	}
	return n
}

// AppendBytes appends the 64 squares in row-major order, one byte each.
func (b *Board) AppendBytes(dst []byte) []byte {
	for row := range b {
		for _, piece := range b[row] {
			dst = append(dst, byte(piece))
		}
	}
	return dst
}

func (b *Board) Checksum() uint64 {
	return xxhash.Sum64(b.AppendBytes(make([]byte, 0, BoardSize*BoardSize)))
}

func (b Board) String() string {
	var sb strings.Builder
	sb.WriteString("  01234567\n")
	for row := range b {
		sb.WriteByte(byte('0' + row))
		sb.WriteByte(' ')
		for _, piece := range b[row] {
			sb.WriteRune(piece.Rune())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ParseBoard reads the layout produced by String without its header, one row
// per line. It is used to build positions in tests and tools.
func ParseBoard(rows ...string) Board {
	var b Board
	for row, line := range rows {
		if row >= BoardSize {
			break
		}
		for col, ch := range line {
			if col >= BoardSize {
				break
			}
			switch ch {
			case 'r':
				b[row][col] = RedMan
			case 'b':
				b[row][col] = BlackMan
			case 'R':
				b[row][col] = RedKing
			case 'B':
				b[row][col] = BlackKing
			}
		}
	}
	return b
}
