package location

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// GeoMaxLatitude is the largest absolute latitude Redis GEO commands accept
const GeoMaxLatitude = 85.05112878

// RedisIndex stores positions in Redis GEO sorted sets, one key per role
type RedisIndex struct {
	client    *redis.Client
	validator Validator
	keys      map[Role]string
	limit     int
}

// RedisKeys names the sorted set used for each role
type RedisKeys struct {
	Driver string
	Rider  string
}

// NewRedisIndex creates a Redis-backed index. limit caps radius results; zero means unbounded.
func NewRedisIndex(client *redis.Client, keys RedisKeys, validator Validator, limit int) *RedisIndex {
	if keys.Driver == "" {
		keys.Driver = "driver_locations"
	}
	if keys.Rider == "" {
		keys.Rider = "user_location"
	}
	return &RedisIndex{
		client:    client,
		validator: validator,
		keys: map[Role]string{
			RoleDriver: keys.Driver,
			RoleRider:  keys.Rider,
		},
		limit: limit,
	}
}

// UpsertPosition runs GEOADD for the role's key
func (r *RedisIndex) UpsertPosition(ctx context.Context, role Role, id string, lat, lng float64) error {
	if err := r.validator.ValidatePosition(role, id, lat, lng); err != nil {
		return err
	}
	if !geoIndexable(lat) {
		return fmt.Errorf("%w: latitude beyond ±%v is not indexable", ErrInvalidPosition, GeoMaxLatitude)
	}
	err := r.client.GeoAdd(ctx, r.keys[role], &redis.GeoLocation{
		Name:      id,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to update %s location: %w", role, err)
	}
	return nil
}

// QueryNearby runs GEORADIUS_RO with distance and coordinates
func (r *RedisIndex) QueryNearby(ctx context.Context, role Role, lat, lng, radiusKM float64) ([]Nearby, error) {
	if err := r.validator.ValidateQuery(role, lat, lng, radiusKM); err != nil {
		return nil, err
	}
	if !geoIndexable(lat) {
		return nil, fmt.Errorf("%w: center latitude beyond ±%v", ErrInvalidQuery, GeoMaxLatitude)
	}

	hits, err := r.client.GeoRadius(ctx, r.keys[role], lng, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKM,
		Unit:      "km",
		WithCoord: true,
		WithDist:  true,
		Count:     r.limit,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to search nearby %ss: %w", role, err)
	}

	results := make([]Nearby, 0, len(hits))
	for _, h := range hits {
		results = append(results, Nearby{
			ID:         h.Name,
			Latitude:   h.Latitude,
			Longitude:  h.Longitude,
			DistanceKM: h.Dist,
		})
	}
	return results, nil
}

// GetPosition runs GEOPOS for a single member
func (r *RedisIndex) GetPosition(ctx context.Context, role Role, id string) (*Position, error) {
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}
	positions, err := r.client.GeoPos(ctx, r.keys[role], id).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get %s location: %w", role, err)
	}
	if len(positions) == 0 || positions[0] == nil {
		return nil, ErrPositionNotFound
	}
	return &Position{
		ID:        id,
		Latitude:  positions[0].Latitude,
		Longitude: positions[0].Longitude,
	}, nil
}

func geoIndexable(lat float64) bool {
	return lat >= -GeoMaxLatitude && lat <= GeoMaxLatitude
}
