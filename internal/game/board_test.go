package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name: "default 5x5 board",
			cfg:  DefaultConfig(),
		},
		{
			name: "single cell board",
			cfg:  Config{Columns: 1, Rows: 1, WinningCount: 1},
		},
		{
			name: "winning count at the diagonal bound",
			cfg:  Config{Columns: 5, Rows: 5, WinningCount: 7},
		},
		{
			name:    "zero columns",
			cfg:     Config{Columns: 0, Rows: 5, WinningCount: 3},
			wantErr: ErrInvalidConfiguration,
		},
		{
			name:    "negative rows",
			cfg:     Config{Columns: 5, Rows: -1, WinningCount: 3},
			wantErr: ErrInvalidConfiguration,
		},
		{
			name:    "winning count zero",
			cfg:     Config{Columns: 5, Rows: 5, WinningCount: 0},
			wantErr: ErrInvalidConfiguration,
		},
		{
			name:    "winning count beyond the diagonal",
			cfg:     Config{Columns: 5, Rows: 5, WinningCount: 8},
			wantErr: ErrInvalidConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMaxRunLength(t *testing.T) {
	tests := []struct {
		rows, cols int
		want       int
	}{
		{1, 1, 1},
		{2, 2, 2},
		{5, 5, 7},
		{6, 7, 9},
		{12, 1, 12},
		{3, 4, 5},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MaxRunLength(tt.rows, tt.cols), "rows=%d cols=%d", tt.rows, tt.cols)
	}
}

func TestClampWinningCount(t *testing.T) {
	assert.Equal(t, 1, ClampWinningCount(0, 5, 5))
	assert.Equal(t, 1, ClampWinningCount(-3, 5, 5))
	assert.Equal(t, 4, ClampWinningCount(4, 5, 5))
	assert.Equal(t, 7, ClampWinningCount(100, 5, 5))
}

func TestIndices(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2, 3, 4}, ColumnIndices(5))
	assert.Equal(t, []int{0, 1, 2}, RowIndices(3))
	assert.Empty(t, RowIndices(0))
	assert.Empty(t, ColumnIndices(-2))
}

func TestConfig_InBounds(t *testing.T) {
	cfg := Config{Columns: 3, Rows: 2, WinningCount: 2}

	assert.True(t, cfg.InBounds(Coord{Row: 0, Col: 0}))
	assert.True(t, cfg.InBounds(Coord{Row: 1, Col: 2}))
	assert.False(t, cfg.InBounds(Coord{Row: 2, Col: 0}))
	assert.False(t, cfg.InBounds(Coord{Row: 0, Col: 3}))
	assert.False(t, cfg.InBounds(Coord{Row: -1, Col: 0}))
	assert.False(t, cfg.InBounds(Coord{Row: 0, Col: -1}))
}

func TestNextRow(t *testing.T) {
	cfg := Config{Columns: 3, Rows: 3, WinningCount: 3}
	locs := Locations{}

	row, ok := nextRow(cfg, locs, 1)
	require.True(t, ok)
	assert.Equal(t, 2, row)

	locs[Coord{Row: 2, Col: 1}] = PlayerGreen
	row, ok = nextRow(cfg, locs, 1)
	require.True(t, ok)
	assert.Equal(t, 1, row)

	locs[Coord{Row: 1, Col: 1}] = PlayerRed
	locs[Coord{Row: 0, Col: 1}] = PlayerGreen
	_, ok = nextRow(cfg, locs, 1)
	assert.False(t, ok)

	// Other columns are unaffected
	row, ok = nextRow(cfg, locs, 0)
	require.True(t, ok)
	assert.Equal(t, 2, row)
}

func TestLocations_Clone(t *testing.T) {
	locs := NewLocations([]Piece{
		{Coord: Coord{Row: 4, Col: 0}, Player: PlayerGreen},
		{Coord: Coord{Row: 4, Col: 1}, Player: PlayerRed},
	})
	require.Len(t, locs, 2)

	clone := locs.Clone()
	assert.Equal(t, locs, clone)

	clone[Coord{Row: 3, Col: 0}] = PlayerRed
	assert.Len(t, locs, 2)
	assert.Equal(t, PlayerNone, locs.Owner(Coord{Row: 3, Col: 0}))
}

func TestPlayer(t *testing.T) {
	assert.Equal(t, PlayerRed, PlayerGreen.Opponent())
	assert.Equal(t, PlayerGreen, PlayerRed.Opponent())
	assert.Equal(t, PlayerNone, PlayerNone.Opponent())

	assert.Equal(t, "green", PlayerGreen.String())
	assert.Equal(t, "red", PlayerRed.String())
	assert.Equal(t, "", PlayerNone.String())

	assert.True(t, PlayerGreen.Valid())
	assert.False(t, PlayerNone.Valid())
	assert.False(t, Player(7).Valid())
}

func TestParsePlayer(t *testing.T) {
	p, err := ParsePlayer("green")
	require.NoError(t, err)
	assert.Equal(t, PlayerGreen, p)

	p, err = ParsePlayer(" RED ")
	require.NoError(t, err)
	assert.Equal(t, PlayerRed, p)

	_, err = ParsePlayer("blue")
	assert.ErrorIs(t, err, ErrInvalidPlayer)
}

func TestRenderBoard(t *testing.T) {
	cfg := Config{Columns: 2, Rows: 2, WinningCount: 2}
	locs := Locations{
		{Row: 1, Col: 0}: PlayerGreen,
		{Row: 1, Col: 1}: PlayerRed,
	}

	want := "+---+---+\n" +
		"|   |   |\n" +
		"+---+---+\n" +
		"| G | R |\n" +
		"+---+---+\n"
	assert.Equal(t, want, renderBoard(cfg, locs))
}
