package game

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Player identifies who owns a piece
type Player int

const (
	PlayerNone Player = iota
	PlayerGreen
	PlayerRed
)

func (p Player) String() string {
	switch p {
	case PlayerGreen:
		return "green"
	case PlayerRed:
		return "red"
	default:
		return ""
	}
}

// Opponent returns the other player
func (p Player) Opponent() Player {
	switch p {
	case PlayerGreen:
		return PlayerRed
	case PlayerRed:
		return PlayerGreen
	default:
		return PlayerNone
	}
}

// Valid reports whether p is one of the two playing sides
func (p Player) Valid() bool {
	return p == PlayerGreen || p == PlayerRed
}

// ParsePlayer converts "green"/"red" into a Player
func ParsePlayer(s string) (Player, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "green":
		return PlayerGreen, nil
	case "red":
		return PlayerRed, nil
	default:
		return PlayerNone, fmt.Errorf("%w: %q", ErrInvalidPlayer, s)
	}
}

// Common errors
var (
	ErrColumnOutOfRange     = errors.New("column out of range")
	ErrColumnFull           = errors.New("column is full")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrRowOutOfRange        = errors.New("row out of range")
	ErrCellOccupied         = errors.New("cell is already occupied")
	ErrInvalidPlayer        = errors.New("invalid player")
	ErrGameFinished         = errors.New("game already has a winner")
	ErrDropInFlight         = errors.New("a piece is already dropping")
)

// Coord is a cell position. Row 0 is the top of the board.
type Coord struct {
	Row int
	Col int
}

// Add returns c moved by step
func (c Coord) Add(step Coord) Coord {
	return Coord{Row: c.Row + step.Row, Col: c.Col + step.Col}
}

// Piece is a committed (or dropping) disc
type Piece struct {
	Coord
	Player Player
}

// Config holds the board dimensions and the winning run length
type Config struct {
	Columns      int
	Rows         int
	WinningCount int
}

// Validate checks dimensions and the winning count bound
func (c Config) Validate() error {
	if c.Columns < 1 || c.Rows < 1 {
		return fmt.Errorf("%w: board must be at least 1x1, got %dx%d", ErrInvalidConfiguration, c.Columns, c.Rows)
	}
	if limit := MaxRunLength(c.Rows, c.Columns); c.WinningCount < 1 || c.WinningCount > limit {
		return fmt.Errorf("%w: winning count must be between 1 and %d, got %d", ErrInvalidConfiguration, limit, c.WinningCount)
	}
	return nil
}

// InBounds reports whether the coordinate lies on the board
func (c Config) InBounds(co Coord) bool {
	return co.Row >= 0 && co.Row < c.Rows && co.Col >= 0 && co.Col < c.Columns
}

// MaxWinningCount is the longest line the board can hold
func (c Config) MaxWinningCount() int {
	return MaxRunLength(c.Rows, c.Columns)
}

// MaxRunLength bounds the winning count by the board diagonal
func MaxRunLength(rows, cols int) int {
	return int(math.Floor(math.Sqrt(float64(rows*rows + cols*cols))))
}

// ClampWinningCount limits n to [1, MaxRunLength(rows, cols)]
func ClampWinningCount(n, rows, cols int) int {
	limit := MaxRunLength(rows, cols)
	if n < 1 {
		return 1
	}
	if n > limit {
		return limit
	}
	return n
}

// ColumnIndices returns 0..cols-1
func ColumnIndices(cols int) []int {
	return indices(cols)
}

// RowIndices returns 0..rows-1
func RowIndices(rows int) []int {
	return indices(rows)
}

func indices(n int) []int {
	if n < 0 {
		n = 0
	}
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// Locations maps each occupied cell to its owner
type Locations map[Coord]Player

// NewLocations indexes a piece sequence
func NewLocations(pieces []Piece) Locations {
	locs := make(Locations, len(pieces))
	for _, p := range pieces {
		locs[p.Coord] = p.Player
	}
	return locs
}

// Owner returns the player at co, or PlayerNone
func (l Locations) Owner(co Coord) Player {
	return l[co]
}

// Clone creates a copy of the index
func (l Locations) Clone() Locations {
	out := make(Locations, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// nextRow applies gravity to a column: one above the topmost piece, or the
// bottom row if the column is empty. ok is false when no row is left.
func nextRow(cfg Config, locs Locations, col int) (row int, ok bool) {
	for r := 0; r < cfg.Rows; r++ {
		if locs.Owner(Coord{Row: r, Col: col}) != PlayerNone {
			return r - 1, r > 0
		}
	}
	return cfg.Rows - 1, true
}

// renderBoard draws the grid with a border, one cell per column
func renderBoard(cfg Config, locs Locations) string {
	var b strings.Builder
	separator := "+" + strings.Repeat("---+", cfg.Columns)

	b.WriteString(separator + "\n")
	for row := 0; row < cfg.Rows; row++ {
		cells := make([]string, cfg.Columns)
		for col := 0; col < cfg.Columns; col++ {
			cells[col] = playerChar(locs.Owner(Coord{Row: row, Col: col}))
		}
		b.WriteString("| ")
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString(" |\n")
		b.WriteString(separator + "\n")
	}
	return b.String()
}

func playerChar(p Player) string {
	switch p {
	case PlayerGreen:
		return "G"
	case PlayerRed:
		return "R"
	default:
		return " "
	}
}
