package store

import (
	"errors"
	"sort"
	"sync"

	"connectn/internal/game"
)

var (
	ErrGameNotFound      = errors.New("game not found")
	ErrGameAlreadyExists = errors.New("game already exists")
)

// DefaultShards is used when a store is created with fewer than one shard
const DefaultShards = 64

// GameStore provides thread-safe storage for boards
// Uses sharding to reduce lock contention when many boards are played at once
type GameStore struct {
	shards []*gameShard
}

type gameShard struct {
	mu    sync.RWMutex
	games map[string]*game.Game
}

// NewGameStore creates a new game store with the specified number of shards
func NewGameStore(numShards int) *GameStore {
	if numShards < 1 {
		numShards = DefaultShards
	}

	shards := make([]*gameShard, numShards)
	for i := range shards {
		shards[i] = &gameShard{
			games: make(map[string]*game.Game),
		}
	}

	return &GameStore{shards: shards}
}

func (s *GameStore) getShard(gameID string) *gameShard {
	return s.shards[shardIndex(gameID, len(s.shards))]
}

// Create stores a new board
func (s *GameStore) Create(g *game.Game) error {
	shard := s.getShard(g.ID)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if _, exists := shard.games[g.ID]; exists {
		return ErrGameAlreadyExists
	}

	shard.games[g.ID] = g
	return nil
}

// Get retrieves a board by ID
func (s *GameStore) Get(gameID string) (*game.Game, error) {
	shard := s.getShard(gameID)
	shard.mu.RLock()
	defer shard.mu.RUnlock()

	g, exists := shard.games[gameID]
	if !exists {
		return nil, ErrGameNotFound
	}

	return g, nil
}

// Delete removes a board and stops its drop animation
func (s *GameStore) Delete(gameID string) error {
	shard := s.getShard(gameID)
	shard.mu.Lock()
	g, exists := shard.games[gameID]
	if exists {
		delete(shard.games, gameID)
	}
	shard.mu.Unlock()

	if !exists {
		return ErrGameNotFound
	}
	g.Close()
	return nil
}

// List returns snapshots of all boards, oldest first, with pagination.
// The second result is the total number of boards.
func (s *GameStore) List(limit, offset int) ([]game.Snapshot, int) {
	var all []*game.Game
	for _, shard := range s.shards {
		shard.mu.RLock()
		for _, g := range shard.games {
			all = append(all, g)
		}
		shard.mu.RUnlock()
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	totalCount := len(all)
	if offset < 0 {
		offset = 0
	}
	if offset >= totalCount {
		return []game.Snapshot{}, totalCount
	}

	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	snapshots := make([]game.Snapshot, 0, len(all))
	for _, g := range all {
		snapshots = append(snapshots, g.GetSnapshot())
	}
	return snapshots, totalCount
}

// Count returns the total number of boards
func (s *GameStore) Count() int {
	count := 0
	for _, shard := range s.shards {
		shard.mu.RLock()
		count += len(shard.games)
		shard.mu.RUnlock()
	}
	return count
}

// Close stops every board's animation. The store stays readable.
func (s *GameStore) Close() {
	for _, shard := range s.shards {
		shard.mu.RLock()
		for _, g := range shard.games {
			g.Close()
		}
		shard.mu.RUnlock()
	}
}

// shardIndex hashes an ID onto one of n shards
func shardIndex(id string, n int) uint32 {
	hash := uint32(0)
	for _, c := range id {
		hash = hash*31 + uint32(c)
	}
	return hash % uint32(n)
}
