package inmem

import (
	"github.com/lukasz-zimnoch/dexly/spot"
	"sync"
)

// PositionRepository keeps position records in memory. It is meant for
// dry runs and tests.
type PositionRepository struct {
	positionsMutex sync.RWMutex
	positions      map[spot.Asset]*spot.Position
}

func NewPositionRepository() *PositionRepository {
	return &PositionRepository{
		positions: make(map[spot.Asset]*spot.Position),
	}
}

func (pr *PositionRepository) Position(asset spot.Asset) (*spot.Position, error) {
	pr.positionsMutex.RLock()
	defer pr.positionsMutex.RUnlock()

	position, ok := pr.positions[asset]
	if !ok {
		return nil, nil
	}

	return position.Snapshot(), nil
}

func (pr *PositionRepository) SavePosition(position *spot.Position) error {
	pr.positionsMutex.Lock()
	defer pr.positionsMutex.Unlock()

	pr.positions[position.Asset] = position.Snapshot()

	return nil
}
