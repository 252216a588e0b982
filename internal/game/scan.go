package game

// Direction names one of the four undirected lines through a cell
type Direction int

const (
	DirectionNone Direction = iota
	DirectionVertical
	DirectionHorizontal
	DirectionRisingDiagonal
	DirectionFallingDiagonal
)

func (d Direction) String() string {
	switch d {
	case DirectionVertical:
		return "vertical"
	case DirectionHorizontal:
		return "horizontal"
	case DirectionRisingDiagonal:
		return "rising_diagonal"
	case DirectionFallingDiagonal:
		return "falling_diagonal"
	default:
		return ""
	}
}

// line pairs a direction with its two opposite unit steps
type line struct {
	direction Direction
	forward   Coord
	backward  Coord
}

// Scan order is also the tie-break: the first qualifying line is reported.
// forward/backward: up/down, left/right, down-left/up-right, up-left/down-right.
var lines = []line{
	{DirectionVertical, Coord{Row: -1, Col: 0}, Coord{Row: 1, Col: 0}},
	{DirectionHorizontal, Coord{Row: 0, Col: -1}, Coord{Row: 0, Col: 1}},
	{DirectionRisingDiagonal, Coord{Row: 1, Col: -1}, Coord{Row: -1, Col: 1}},
	{DirectionFallingDiagonal, Coord{Row: -1, Col: -1}, Coord{Row: 1, Col: 1}},
}

// Run is a winning line through the piece that triggered it
type Run struct {
	Direction Direction
	Pieces    []Piece
}

// ScanWin looks for a winning run through piece. The piece must already be in
// locs. Each side of a line is walked at most WinningCount-1 cells.
func ScanWin(cfg Config, locs Locations, piece Piece) (Run, bool) {
	for _, l := range lines {
		forward := walk(cfg, locs, piece, l.forward)
		backward := walk(cfg, locs, piece, l.backward)

		if len(forward)+len(backward)+1 < cfg.WinningCount {
			continue
		}

		pieces := make([]Piece, 0, len(forward)+len(backward)+1)
		pieces = append(pieces, forward...)
		pieces = append(pieces, backward...)
		pieces = append(pieces, piece)
		return Run{Direction: l.direction, Pieces: pieces}, true
	}
	return Run{}, false
}

// walk collects same-player pieces from piece outward along step, stopping at
// the board edge, the first foreign or empty cell, or after WinningCount-1 cells.
func walk(cfg Config, locs Locations, piece Piece, step Coord) []Piece {
	var out []Piece
	at := piece.Coord
	for i := 0; i < cfg.WinningCount-1; i++ {
		at = at.Add(step)
		if !cfg.InBounds(at) || locs.Owner(at) != piece.Player {
			break
		}
		out = append(out, Piece{Coord: at, Player: piece.Player})
	}
	return out
}
