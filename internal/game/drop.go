package game

import (
	"fmt"

	"go.uber.org/zap"
)

// Drop is a piece falling toward its resting row. It is not part of the
// board until it lands.
type Drop struct {
	Piece
	TargetRow int
}

// RequestDrop starts an animated drop from the top row of col
func (g *Game) RequestDrop(col int) error {
	return g.RequestDropFrom(col, 0)
}

// RequestDropFrom starts an animated drop from startRow. The piece moves one
// row per interval and is committed once it reaches the resting row computed
// now. Only one drop may be in flight.
func (g *Game) RequestDropFrom(col, startRow int) error {
	return g.update(func() error {
		return g.requestDrop(col, startRow)
	})
}

func (g *Game) requestDrop(col, startRow int) error {
	if g.dropping != nil {
		return ErrDropInFlight
	}
	if g.winner != PlayerNone {
		return ErrGameFinished
	}
	if col < 0 || col >= g.cfg.Columns {
		return g.record(fmt.Errorf("%w: column %d not in [0, %d)", ErrColumnOutOfRange, col, g.cfg.Columns), zap.Int("column", col))
	}
	target, ok := nextRow(g.cfg, g.locations, col)
	if !ok {
		return g.record(fmt.Errorf("%w: no more row in column %d", ErrColumnFull, col), zap.Int("column", col))
	}
	if startRow < 0 || startRow > target {
		return g.record(fmt.Errorf("%w: drop start %d not in [0, %d]", ErrRowOutOfRange, startRow, target), zap.Int("column", col), zap.Int("row", startRow))
	}
	if startRow == target {
		return g.place(col, target, true)
	}

	g.dropping = &Drop{
		Piece:     Piece{Coord: Coord{Row: startRow, Col: col}, Player: g.player},
		TargetRow: target,
	}
	g.scheduleTick()
	return nil
}

// scheduleTick arms the next tick. Ticks carry the generation they were
// scheduled in; cancelDrop bumps it so stale ticks do nothing.
func (g *Game) scheduleTick() {
	gen := g.dropGen
	g.dropTimer = g.clock.AfterFunc(g.interval, func() {
		g.tick(gen)
	})
}

func (g *Game) tick(gen uint64) {
	g.mu.Lock()
	if gen != g.dropGen || g.dropping == nil {
		g.mu.Unlock()
		return
	}

	g.dropping.Row++
	if g.dropping.Row >= g.dropping.TargetRow {
		d := *g.dropping
		g.cancelDrop()
		if err := g.place(d.Col, d.TargetRow, true); err != nil {
			g.logger.Debug("drop landed on a decided or changed board", zap.Error(err))
		}
	} else {
		g.scheduleTick()
	}
	g.UpdatedAt = g.clock.Now()
	g.mu.Unlock()

	g.notify()
}

func (g *Game) cancelDrop() {
	g.dropGen++
	if g.dropTimer != nil {
		g.dropTimer.Stop()
		g.dropTimer = nil
	}
	g.dropping = nil
}
