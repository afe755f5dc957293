package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"rendezvous/pkg/model"
)

type memoryBusyRepository struct {
	mu     sync.RWMutex
	blocks map[string]model.BusyBlock
}

func NewMemoryBusyRepository() BusyRepository {
	return &memoryBusyRepository{blocks: map[string]model.BusyBlock{}}
}

func (r *memoryBusyRepository) FindInRange(_ context.Context, ownerID string, from, to time.Time) ([]model.BusyBlock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	blocks := []model.BusyBlock{}
	for _, b := range r.blocks {
		if b.OwnerID == ownerID && b.StartTime.Before(to) && b.EndTime.After(from) {
			blocks = append(blocks, b)
		}
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].StartTime.Before(blocks[j].StartTime) })
	return blocks, nil
}

func (r *memoryBusyRepository) ReplaceForSource(_ context.Context, ownerID, source string, blocks []model.BusyBlock) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, b := range r.blocks {
		if b.OwnerID == ownerID && b.Source == source {
			delete(r.blocks, id)
		}
	}
	for _, b := range blocks {
		r.blocks[b.ID] = b
	}
	return nil
}
