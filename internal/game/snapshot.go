package game

import "time"

// Snapshot is an immutable copy of the game state
type Snapshot struct {
	ID              string
	Config          Config
	MaxWinningCount int
	Player          Player
	StartingPlayer  Player
	ToggleEnabled   bool
	Pieces          []Piece
	Locations       Locations
	Winner          Player
	WinningRun      []Piece
	WinDirection    Direction
	Dropping        *Drop
	Round           int
	Interval        time.Duration
	LastError       error
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasWinner returns true once the game is decided
func (s Snapshot) HasWinner() bool {
	return s.Winner != PlayerNone
}

// HasDrop returns true while a piece is falling
func (s Snapshot) HasDrop() bool {
	return s.Dropping != nil
}

// TurnLabel is the header text: "Green Turn", "Red Won", ...
func (s Snapshot) TurnLabel() string {
	p, suffix := s.Player, "Turn"
	if s.HasWinner() {
		p, suffix = s.Winner, "Won"
	}
	prefix := "Red"
	if p == PlayerGreen {
		prefix = "Green"
	}
	return prefix + " " + suffix
}

// ColumnIndices returns the column numbers of the board
func (s Snapshot) ColumnIndices() []int {
	return ColumnIndices(s.Config.Columns)
}

// RowIndices returns the row numbers of the board
func (s Snapshot) RowIndices() []int {
	return RowIndices(s.Config.Rows)
}

// String renders the committed pieces as a bordered grid
func (s Snapshot) String() string {
	return renderBoard(s.Config, s.Locations)
}
