package store

import (
	"sync"
	"sync/atomic"

	"connectn/internal/game"
)

// Score is the win tally of one board across its rounds
type Score struct {
	GameID string
	Green  int32
	Red    int32
}

// Total returns the number of decided rounds
func (s Score) Total() int32 {
	return s.Green + s.Red
}

// ScoreStore keeps per-board win tallies
// Uses sharding similar to GameStore
type ScoreStore struct {
	shards []*scoreShard
}

type scoreShard struct {
	mu     sync.RWMutex
	scores map[string]*tally
}

type tally struct {
	green     atomic.Int32
	red       atomic.Int32
	lastRound atomic.Int64
}

// NewScoreStore creates a new score store with the specified number of shards
func NewScoreStore(numShards int) *ScoreStore {
	if numShards < 1 {
		numShards = DefaultShards
	}

	shards := make([]*scoreShard, numShards)
	for i := range shards {
		shards[i] = &scoreShard{
			scores: make(map[string]*tally),
		}
	}

	return &ScoreStore{shards: shards}
}

func (s *ScoreStore) getShard(gameID string) *scoreShard {
	return s.shards[shardIndex(gameID, len(s.shards))]
}

// getOrCreate returns the existing tally or creates a new one
func (s *ScoreStore) getOrCreate(gameID string) *tally {
	shard := s.getShard(gameID)

	shard.mu.RLock()
	t, exists := shard.scores[gameID]
	shard.mu.RUnlock()

	if exists {
		return t
	}

	shard.mu.Lock()
	defer shard.mu.Unlock()

	// Double-check after acquiring write lock
	if t, exists = shard.scores[gameID]; exists {
		return t
	}

	t = &tally{}
	shard.scores[gameID] = t
	return t
}

// Get returns the tally of a board. Unknown boards have a zero score.
func (s *ScoreStore) Get(gameID string) Score {
	shard := s.getShard(gameID)
	shard.mu.RLock()
	t, exists := shard.scores[gameID]
	shard.mu.RUnlock()

	score := Score{GameID: gameID}
	if exists {
		score.Green = t.green.Load()
		score.Red = t.red.Load()
	}
	return score
}

// RecordWin credits winner with the given round. A round is counted at most
// once and rounds older than the last counted one are ignored. It reports
// whether the win was counted.
func (s *ScoreStore) RecordWin(gameID string, round int, winner game.Player) bool {
	if !winner.Valid() {
		return false
	}

	t := s.getOrCreate(gameID)
	for {
		last := t.lastRound.Load()
		if int64(round) <= last {
			return false
		}
		if t.lastRound.CompareAndSwap(last, int64(round)) {
			break
		}
	}

	if winner == game.PlayerGreen {
		t.green.Add(1)
	} else {
		t.red.Add(1)
	}
	return true
}

// Delete forgets the tally of a board
func (s *ScoreStore) Delete(gameID string) {
	shard := s.getShard(gameID)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	delete(shard.scores, gameID)
}
