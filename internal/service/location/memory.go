package location

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
)

type shard struct {
	mu      sync.RWMutex
	entries map[string]Position
}

// MemoryIndex is an in-process index. Each role owns a fixed set of shards
// picked by id hash; writers only lock their shard and queries take one read
// lock at a time, so no operation holds a lock over the whole index.
type MemoryIndex struct {
	validator Validator
	spaces    map[Role][]*shard
}

// NewMemoryIndex creates an in-memory index with the given shard count per role
func NewMemoryIndex(shards int, validator Validator) *MemoryIndex {
	if shards <= 0 {
		shards = 32
	}
	idx := &MemoryIndex{
		validator: validator,
		spaces:    make(map[Role][]*shard, 2),
	}
	for _, role := range []Role{RoleRider, RoleDriver} {
		set := make([]*shard, shards)
		for i := range set {
			set[i] = &shard{entries: make(map[string]Position)}
		}
		idx.spaces[role] = set
	}
	return idx
}

func (m *MemoryIndex) shardFor(role Role, id string) *shard {
	set := m.spaces[role]
	h := fnv.New32a()
	h.Write([]byte(id))
	return set[h.Sum32()%uint32(len(set))]
}

// UpsertPosition stores or overwrites a position
func (m *MemoryIndex) UpsertPosition(ctx context.Context, role Role, id string, lat, lng float64) error {
	if err := m.validator.ValidatePosition(role, id, lat, lng); err != nil {
		return err
	}
	s := m.shardFor(role, id)
	s.mu.Lock()
	s.entries[id] = Position{ID: id, Latitude: lat, Longitude: lng}
	s.mu.Unlock()
	return nil
}

// QueryNearby scans the role's shards and keeps entries inside the radius
func (m *MemoryIndex) QueryNearby(ctx context.Context, role Role, lat, lng, radiusKM float64) ([]Nearby, error) {
	if err := m.validator.ValidateQuery(role, lat, lng, radiusKM); err != nil {
		return nil, err
	}

	results := make([]Nearby, 0)
	for _, s := range m.spaces[role] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.mu.RLock()
		for _, p := range s.entries {
			d := Distance(lat, lng, p.Latitude, p.Longitude)
			if d <= radiusKM {
				results = append(results, Nearby{
					ID:         p.ID,
					Latitude:   p.Latitude,
					Longitude:  p.Longitude,
					DistanceKM: d,
				})
			}
		}
		s.mu.RUnlock()
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].DistanceKM == results[j].DistanceKM {
			return results[i].ID < results[j].ID
		}
		return results[i].DistanceKM < results[j].DistanceKM
	})
	return results, nil
}

// GetPosition returns the last position pushed for (role, id)
func (m *MemoryIndex) GetPosition(ctx context.Context, role Role, id string) (*Position, error) {
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}
	s := m.shardFor(role, id)
	s.mu.RLock()
	p, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrPositionNotFound
	}
	return &p, nil
}
