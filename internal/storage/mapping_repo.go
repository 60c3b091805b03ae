package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/radiusdt/prediction-monitor/internal/models"
)

// InMemoryMappingRepo provides in-memory storage for custom channel mappings.
type InMemoryMappingRepo struct {
	mu       sync.RWMutex
	mappings map[string]models.ChannelMapping
}

// NewInMemoryMappingRepo creates a new empty mapping repository.
func NewInMemoryMappingRepo() *InMemoryMappingRepo {
	return &InMemoryMappingRepo{
		mappings: make(map[string]models.ChannelMapping),
	}
}

// ListMappings returns all mappings ordered by prediction name.
func (r *InMemoryMappingRepo) ListMappings(ctx context.Context) ([]models.ChannelMapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.ChannelMapping, 0, len(r.mappings))
	for _, m := range r.mappings {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Prediction < out[j].Prediction })
	return out, nil
}

func (r *InMemoryMappingRepo) UpsertMapping(ctx context.Context, m models.ChannelMapping) error {
	m, err := normalizeMapping(m)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.mappings[m.Prediction] = m
	return nil
}

func (r *InMemoryMappingRepo) DeleteMapping(ctx context.Context, prediction string) error {
	key := strings.ToUpper(strings.TrimSpace(prediction))

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.mappings[key]; !ok {
		return fmt.Errorf("%w: %s", ErrMappingNotFound, key)
	}
	delete(r.mappings, key)
	return nil
}

func normalizeMapping(m models.ChannelMapping) (models.ChannelMapping, error) {
	m.Prediction = strings.ToUpper(strings.TrimSpace(m.Prediction))
	if m.Prediction == "" {
		return m, fmt.Errorf("%w: prediction name is required", ErrInvalidMapping)
	}
	m.Channel = strings.TrimSpace(m.Channel)
	m.Direction = strings.TrimSpace(m.Direction)
	return m, nil
}
