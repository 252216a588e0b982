package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Defaults used when a board is created without explicit settings
const (
	DefaultColumns      = 5
	DefaultRows         = 5
	DefaultWinningCount = 4
	DefaultInterval     = 100 * time.Millisecond
)

// DefaultConfig returns the default board configuration
func DefaultConfig() Config {
	return Config{
		Columns:      DefaultColumns,
		Rows:         DefaultRows,
		WinningCount: DefaultWinningCount,
	}
}

// Game is the authoritative state of one board
type Game struct {
	mu sync.RWMutex

	ID string

	cfg            Config
	startingPlayer Player
	player         Player
	toggleEnabled  bool
	pieces         []Piece
	locations      Locations
	winner         Player
	winningRun     Run
	round          int
	lastErr        error

	dropping  *Drop
	interval  time.Duration
	dropTimer *clock.Timer
	dropGen   uint64

	clock    clock.Clock
	logger   *zap.Logger
	observer func(Snapshot)

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Option customizes a Game at construction
type Option func(*Game)

// WithStartingPlayer sets the player who moves first, and again after a reset
func WithStartingPlayer(p Player) Option {
	return func(g *Game) {
		g.startingPlayer = p
	}
}

// WithToggleEnabled sets the initial turn-toggle policy
func WithToggleEnabled(enabled bool) Option {
	return func(g *Game) {
		g.toggleEnabled = enabled
	}
}

// WithPieces preloads committed pieces (replays, fixtures). No win is
// evaluated for them.
func WithPieces(pieces []Piece) Option {
	return func(g *Game) {
		g.pieces = append([]Piece(nil), pieces...)
	}
}

// WithInterval sets the drop animation tick
func WithInterval(d time.Duration) Option {
	return func(g *Game) {
		g.interval = d
	}
}

// WithClock replaces the wall clock, mostly for tests
func WithClock(c clock.Clock) Option {
	return func(g *Game) {
		g.clock = c
	}
}

// WithLogger sets the diagnostic logger
func WithLogger(l *zap.Logger) Option {
	return func(g *Game) {
		g.logger = l
	}
}

// WithObserver registers a callback invoked after every state change,
// including drop ticks. It runs without the game lock held.
func WithObserver(fn func(Snapshot)) Option {
	return func(g *Game) {
		g.observer = fn
	}
}

// NewGame creates a board with the given configuration
func NewGame(id string, cfg Config, opts ...Option) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g := &Game{
		ID:             id,
		cfg:            cfg,
		startingPlayer: PlayerGreen,
		toggleEnabled:  true,
		round:          1,
		interval:       DefaultInterval,
		clock:          clock.New(),
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}

	if !g.startingPlayer.Valid() {
		return nil, fmt.Errorf("%w: starting player %d", ErrInvalidConfiguration, g.startingPlayer)
	}
	if g.interval <= 0 {
		return nil, fmt.Errorf("%w: drop interval must be positive, got %s", ErrInvalidConfiguration, g.interval)
	}

	g.locations = make(Locations, len(g.pieces))
	for _, p := range g.pieces {
		if !cfg.InBounds(p.Coord) || !p.Player.Valid() {
			return nil, fmt.Errorf("%w: piece %d,%d is not on a %dx%d board", ErrInvalidConfiguration, p.Row, p.Col, cfg.Columns, cfg.Rows)
		}
		if _, exists := g.locations[p.Coord]; exists {
			return nil, fmt.Errorf("%w: duplicate piece at %d,%d", ErrInvalidConfiguration, p.Row, p.Col)
		}
		g.locations[p.Coord] = p.Player
	}

	g.player = g.startingPlayer
	g.logger = g.logger.With(zap.String("game_id", id))
	g.CreatedAt = g.clock.Now()
	g.UpdatedAt = g.CreatedAt
	return g, nil
}

// Place drops a piece for the active player into col, landing by gravity
func (g *Game) Place(col int) error {
	return g.update(func() error {
		return g.place(col, 0, false)
	})
}

// PlaceAt places a piece for the active player at an explicit row
func (g *Game) PlaceAt(col, row int) error {
	return g.update(func() error {
		return g.place(col, row, true)
	})
}

// place commits a piece. Recorded errors leave the board untouched; once a
// winner exists every call is a no-op returning ErrGameFinished.
func (g *Game) place(col, row int, explicit bool) error {
	if g.winner != PlayerNone {
		return ErrGameFinished
	}
	if col < 0 || col >= g.cfg.Columns {
		return g.record(fmt.Errorf("%w: column %d not in [0, %d)", ErrColumnOutOfRange, col, g.cfg.Columns), zap.Int("column", col))
	}
	if !explicit {
		next, ok := nextRow(g.cfg, g.locations, col)
		if !ok {
			return g.record(fmt.Errorf("%w: no more row in column %d", ErrColumnFull, col), zap.Int("column", col))
		}
		row = next
	}
	if row < 0 || row >= g.cfg.Rows {
		return g.record(fmt.Errorf("%w: row %d not in [0, %d)", ErrRowOutOfRange, row, g.cfg.Rows), zap.Int("column", col), zap.Int("row", row))
	}

	piece := Piece{Coord: Coord{Row: row, Col: col}, Player: g.player}
	if g.locations.Owner(piece.Coord) != PlayerNone {
		return g.record(fmt.Errorf("%w: %d,%d", ErrCellOccupied, row, col), zap.Int("column", col), zap.Int("row", row))
	}

	// The scanner reads the new piece from the index.
	g.locations[piece.Coord] = piece.Player
	if run, won := ScanWin(g.cfg, g.locations, piece); won {
		g.winner = piece.Player
		g.winningRun = run
		g.logger.Info("winner decided",
			zap.Stringer("player", piece.Player),
			zap.Stringer("direction", run.Direction),
			zap.Int("run_length", len(run.Pieces)),
		)
	} else {
		g.toggle()
	}
	g.pieces = append(g.pieces, piece)
	return nil
}

// ToggleTurn hands the turn to the other player unless toggling is disabled
// or the game is decided. It returns the active player.
func (g *Game) ToggleTurn() Player {
	var p Player
	g.update(func() error {
		p = g.toggle()
		return nil
	})
	return p
}

func (g *Game) toggle() Player {
	if g.winner != PlayerNone || !g.toggleEnabled {
		return g.player
	}
	g.player = g.player.Opponent()
	return g.player
}

// SetToggleEnabled gates future toggles without changing whose turn it is
func (g *Game) SetToggleEnabled(enabled bool) {
	g.update(func() error {
		g.toggleEnabled = enabled
		return nil
	})
}

// SetActivePlayer forces the active player
func (g *Game) SetActivePlayer(p Player) error {
	return g.update(func() error {
		if !p.Valid() {
			return g.record(fmt.Errorf("%w: %d", ErrInvalidPlayer, p))
		}
		g.player = p
		return nil
	})
}

// SetDimensions resizes an empty board. The winning count is clamped to the
// new diagonal.
func (g *Game) SetDimensions(cols, rows int) error {
	return g.update(func() error {
		if err := g.requireEmpty(); err != nil {
			return err
		}
		if cols < 1 || rows < 1 {
			return g.record(fmt.Errorf("%w: board must be at least 1x1, got %dx%d", ErrInvalidConfiguration, cols, rows))
		}
		g.cfg.Columns = cols
		g.cfg.Rows = rows
		g.cfg.WinningCount = ClampWinningCount(g.cfg.WinningCount, rows, cols)
		return nil
	})
}

// SetWinningCount sets the run length needed to win. Out of range values are
// clamped and reported.
func (g *Game) SetWinningCount(n int) error {
	return g.update(func() error {
		if err := g.requireEmpty(); err != nil {
			return err
		}
		clamped := ClampWinningCount(n, g.cfg.Rows, g.cfg.Columns)
		g.cfg.WinningCount = clamped
		if clamped != n {
			return g.record(fmt.Errorf("%w: winning count %d clamped to %d", ErrInvalidConfiguration, n, clamped))
		}
		return nil
	})
}

// SetInterval changes the drop tick. A drop in flight picks it up on its
// next tick.
func (g *Game) SetInterval(d time.Duration) error {
	return g.update(func() error {
		if d <= 0 {
			return g.record(fmt.Errorf("%w: drop interval must be positive, got %s", ErrInvalidConfiguration, d))
		}
		g.interval = d
		return nil
	})
}

func (g *Game) requireEmpty() error {
	if len(g.pieces) > 0 || g.dropping != nil {
		return g.record(fmt.Errorf("%w: board already has pieces", ErrInvalidConfiguration))
	}
	return nil
}

// ClearError forgets the last recorded error
func (g *Game) ClearError() {
	g.update(func() error {
		g.lastErr = nil
		return nil
	})
}

// Reset empties the board, cancels any drop and gives the turn back to the
// starting player. Dimensions, winning count and toggle policy are kept.
func (g *Game) Reset() {
	g.update(func() error {
		g.cancelDrop()
		g.pieces = nil
		g.locations = make(Locations)
		g.winner = PlayerNone
		g.winningRun = Run{}
		g.player = g.startingPlayer
		g.lastErr = nil
		g.round++
		return nil
	})
}

// Close cancels any drop and detaches the observer
func (g *Game) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelDrop()
	g.observer = nil
}

// LastError returns the most recent recorded error, or nil
func (g *Game) LastError() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lastErr
}

// GetSnapshot returns a snapshot of the game state
func (g *Game) GetSnapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snapshot()
}

func (g *Game) snapshot() Snapshot {
	s := Snapshot{
		ID:              g.ID,
		Config:          g.cfg,
		MaxWinningCount: g.cfg.MaxWinningCount(),
		Player:          g.player,
		StartingPlayer:  g.startingPlayer,
		ToggleEnabled:   g.toggleEnabled,
		Pieces:          append([]Piece{}, g.pieces...),
		Locations:       g.locations.Clone(),
		Winner:          g.winner,
		WinningRun:      append([]Piece{}, g.winningRun.Pieces...),
		WinDirection:    g.winningRun.Direction,
		Round:           g.round,
		Interval:        g.interval,
		LastError:       g.lastErr,
		CreatedAt:       g.CreatedAt,
		UpdatedAt:       g.UpdatedAt,
	}
	if g.dropping != nil {
		d := *g.dropping
		s.Dropping = &d
	}
	return s
}

// update runs fn under the write lock, then notifies the observer
func (g *Game) update(fn func() error) error {
	g.mu.Lock()
	err := fn()
	g.UpdatedAt = g.clock.Now()
	g.mu.Unlock()

	g.notify()
	return err
}

func (g *Game) notify() {
	g.mu.RLock()
	observer := g.observer
	if observer == nil {
		g.mu.RUnlock()
		return
	}
	snap := g.snapshot()
	g.mu.RUnlock()

	observer(snap)
}

// record stores err as the last error and reports it on the diagnostic log
func (g *Game) record(err error, fields ...zap.Field) error {
	g.lastErr = err
	g.logger.Warn("command rejected", append(fields, zap.Error(err))...)
	return err
}
