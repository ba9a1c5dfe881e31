package catalog

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository is an in-memory catalog for tests, seeded via AddPlan and
// AddProperty.
type MemoryRepository struct {
	mu         sync.RWMutex
	plans      map[string]Plan
	properties map[string]Property
}

// NewMemoryRepository constructs an empty in-memory catalog.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		plans:      make(map[string]Plan),
		properties: make(map[string]Property),
	}
}

// AddPlan registers a plan in the in-memory catalog.
func (r *MemoryRepository) AddPlan(plan Plan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[plan.ID] = plan
}

// AddProperty registers a property in the in-memory catalog.
func (r *MemoryRepository) AddProperty(property Property) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.properties[property.ID] = property
}

func (r *MemoryRepository) GetPlan(_ context.Context, id string) (Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	plan, ok := r.plans[id]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return plan, nil
}

func (r *MemoryRepository) ListPlans(_ context.Context) ([]Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	plans := make([]Plan, 0, len(r.plans))
	for _, plan := range r.plans {
		plans = append(plans, plan)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].Name < plans[j].Name })
	return plans, nil
}

func (r *MemoryRepository) GetProperty(_ context.Context, id string) (Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	property, ok := r.properties[id]
	if !ok {
		return Property{}, ErrPropertyNotFound
	}
	return property, nil
}

func (r *MemoryRepository) ListProperties(_ context.Context) ([]Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	properties := make([]Property, 0, len(r.properties))
	for _, property := range r.properties {
		properties = append(properties, property)
	}
	sort.Slice(properties, func(i, j int) bool { return properties[i].Name < properties[j].Name })
	return properties, nil
}
