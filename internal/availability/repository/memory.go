package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	availabilityerrors "rendezvous/internal/availability/errors"
	"rendezvous/pkg/model"
)

type memoryRuleRepository struct {
	mu    sync.RWMutex
	rules map[string]model.AvailabilityRule
}

func NewMemoryRuleRepository() RuleRepository {
	return &memoryRuleRepository{rules: map[string]model.AvailabilityRule{}}
}

func (r *memoryRuleRepository) Create(_ context.Context, rule *model.AvailabilityRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rule.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	r.rules[rule.ID] = *rule
	return nil
}

func (r *memoryRuleRepository) FindByOwner(_ context.Context, ownerID string) ([]model.AvailabilityRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rules := []model.AvailabilityRule{}
	for _, rule := range r.rules {
		if rule.OwnerID == ownerID {
			rules = append(rules, rule)
		}
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].DayOfWeek != rules[j].DayOfWeek {
			return rules[i].DayOfWeek < rules[j].DayOfWeek
		}
		return rules[i].StartTime < rules[j].StartTime
	})
	return rules, nil
}

func (r *memoryRuleRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rules[id]; !ok {
		return availabilityerrors.ErrRuleNotFound
	}
	delete(r.rules, id)
	return nil
}

type memoryEventTypeRepository struct {
	mu    sync.RWMutex
	types map[string]model.EventType
}

func NewMemoryEventTypeRepository() EventTypeRepository {
	return &memoryEventTypeRepository{types: map[string]model.EventType{}}
}

func (r *memoryEventTypeRepository) Create(_ context.Context, et *model.EventType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	et.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	r.types[et.ID] = *et
	return nil
}

func (r *memoryEventTypeRepository) FindByID(_ context.Context, id string) (*model.EventType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	et, ok := r.types[id]
	if !ok {
		return nil, availabilityerrors.ErrEventTypeNotFound
	}
	return &et, nil
}

func (r *memoryEventTypeRepository) FindByOwner(_ context.Context, ownerID string) ([]model.EventType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := []model.EventType{}
	for _, et := range r.types {
		if et.OwnerID == ownerID {
			types = append(types, et)
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Name < types[j].Name })
	return types, nil
}
