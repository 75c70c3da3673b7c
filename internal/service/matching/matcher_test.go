package matching

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gocomet/ride-booking/internal/auth"
	"github.com/gocomet/ride-booking/internal/domain/driver"
	"github.com/gocomet/ride-booking/internal/repository/memory"
	"github.com/gocomet/ride-booking/internal/service/location"
	apperrors "github.com/gocomet/ride-booking/pkg/errors"
	"github.com/gocomet/ride-booking/pkg/logger"
	"github.com/gocomet/ride-booking/pkg/monitoring"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const driverID = "3f1c5b9e-6a43-4c1e-9e1a-2b7d8a0c4f10"

func newTestService(t *testing.T, cfg Config) (*Service, *location.MemoryIndex, *memory.DriverRepository) {
	t.Helper()
	index := location.NewMemoryIndex(8, location.Validator{})
	drivers := memory.NewDriverRepository()
	return NewService(index, drivers, logger.NewNop(), monitoring.Disabled(), cfg), index, drivers
}

func codeOf(err error) string {
	return apperrors.GetAppError(err).Code
}

// TestFindNearbyDrivers_Scenario checks a driver a little over a kilometre away is found
func TestFindNearbyDrivers_Scenario(t *testing.T) {
	svc, index, _ := newTestService(t, Config{DefaultRadiusKM: 5, MaxRadiusKM: 50})
	ctx := context.Background()

	require.NoError(t, index.UpsertPosition(ctx, location.RoleDriver, "D1", 23.8, 90.0))

	results, err := svc.FindNearbyDrivers(ctx, 23.81, 90.01, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "D1", results[0].ID)
	assert.LessOrEqual(t, results[0].DistanceKM, 5.0)
}

func TestFindNearbyDrivers_RadiusDefaultsAndCap(t *testing.T) {
	svc, index, _ := newTestService(t, Config{DefaultRadiusKM: 2, MaxRadiusKM: 10})
	ctx := context.Background()

	// Roughly 1.1 km, 5.5 km and 22 km north of the pickup
	require.NoError(t, index.UpsertPosition(ctx, location.RoleDriver, "near", 23.81, 90.4))
	require.NoError(t, index.UpsertPosition(ctx, location.RoleDriver, "mid", 23.85, 90.4))
	require.NoError(t, index.UpsertPosition(ctx, location.RoleDriver, "far", 24.0, 90.4))

	tests := []struct {
		name   string
		radius float64
		want   []string
	}{
		{name: "default radius", radius: 0, want: []string{"near"}},
		{name: "explicit radius", radius: 8, want: []string{"near", "mid"}},
		{name: "capped radius", radius: 500, want: []string{"near", "mid"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := svc.FindNearbyDrivers(ctx, 23.8, 90.4, tt.radius)
			require.NoError(t, err)
			var ids []string
			for _, r := range results {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestFindNearbyDrivers_CandidateLimit(t *testing.T) {
	svc, index, _ := newTestService(t, Config{DefaultRadiusKM: 5, MaxRadiusKM: 5, MaxCandidates: 3})
	ctx := context.Background()

	for i := 1; i <= 6; i++ {
		require.NoError(t, index.UpsertPosition(ctx, location.RoleDriver, fmt.Sprintf("d%d", i), 23.8+float64(i)/1000, 90.4))
	}

	results, err := svc.FindNearbyDrivers(ctx, 23.8, 90.4, 5)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "d1", results[0].ID)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].DistanceKM, results[i].DistanceKM)
	}
}

func TestFindNearbyDrivers_InvalidInput(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})

	_, err := svc.FindNearbyDrivers(context.Background(), 91, 90, 5)
	assert.Equal(t, apperrors.CodeInvalidArgument, codeOf(err))

	_, err = svc.FindNearbyDrivers(context.Background(), 23.8, 90, -1)
	assert.Equal(t, apperrors.CodeInvalidArgument, codeOf(err))
}

func TestGetDriver(t *testing.T) {
	svc, index, drivers := newTestService(t, Config{})
	ctx := context.Background()

	require.NoError(t, drivers.Create(ctx, &driver.Driver{
		ID:          driverID,
		Name:        "Karim",
		Phone:       "+8801700000000",
		Status:      "online",
		VehicleType: "economy",
	}))

	d, err := svc.GetDriver(ctx, driverID)
	require.NoError(t, err)
	assert.Nil(t, d.CurrentLatitude)

	require.NoError(t, index.UpsertPosition(ctx, location.RoleDriver, driverID, 23.8, 90.4))
	d, err = svc.GetDriver(ctx, driverID)
	require.NoError(t, err)
	require.NotNil(t, d.CurrentLatitude)
	assert.Equal(t, 23.8, *d.CurrentLatitude)
	assert.Equal(t, 90.4, *d.CurrentLongitude)

	_, err = svc.GetDriver(ctx, "not-a-uuid")
	require.Error(t, err)
	assert.Equal(t, "Invalid driver ID format", apperrors.GetAppError(err).Message)

	_, err = svc.GetDriver(ctx, "9b2e6f4a-1c3d-4e5f-8a7b-0c1d2e3f4a5b")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, codeOf(err))
	assert.Equal(t, "Driver not found!", apperrors.GetAppError(err).Message)
}

func TestUpdatePosition_RoleSelectsKeySpace(t *testing.T) {
	svc, index, _ := newTestService(t, Config{})
	ctx := context.Background()

	_, err := svc.UpdatePosition(ctx, auth.Identity{ID: "u1", Role: auth.RoleUser}, 23.8, 90.4)
	require.NoError(t, err)
	_, err = svc.UpdatePosition(ctx, auth.Identity{ID: "d1", Role: auth.RoleDriver}, 23.9, 90.5)
	require.NoError(t, err)

	_, err = index.GetPosition(ctx, location.RoleRider, "u1")
	assert.NoError(t, err)
	_, err = index.GetPosition(ctx, location.RoleDriver, "u1")
	assert.True(t, errors.Is(err, location.ErrPositionNotFound))
	_, err = index.GetPosition(ctx, location.RoleDriver, "d1")
	assert.NoError(t, err)

	_, err = svc.UpdatePosition(ctx, auth.Identity{ID: "a1", Role: auth.RoleAdmin}, 23.8, 90.4)
	assert.Equal(t, apperrors.CodeForbidden, codeOf(err))
}

func TestUpdatePosition_FalsyCoordinatesRejected(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})

	_, err := svc.UpdatePosition(context.Background(), auth.Identity{ID: "d1", Role: auth.RoleDriver}, 0, 90.4)
	require.Error(t, err)
	assert.Equal(t, "Invalid data", apperrors.GetAppError(err).Message)
}

func TestUpdatePosition_RedisRejectsPolarLatitudeAsInvalidArgument(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	index := location.NewRedisIndex(client, location.RedisKeys{}, location.Validator{}, 0)
	svc := NewService(index, memory.NewDriverRepository(), logger.NewNop(), monitoring.Disabled(), Config{})
	ctx := context.Background()

	_, err := svc.UpdatePosition(ctx, auth.Identity{ID: driverID, Role: auth.RoleDriver}, 89, 10)
	assert.Equal(t, apperrors.CodeInvalidArgument, codeOf(err))

	_, err = svc.FindNearbyDrivers(ctx, 89, 10, 5)
	assert.Equal(t, apperrors.CodeInvalidArgument, codeOf(err))

	_, err = svc.UpdatePosition(ctx, auth.Identity{ID: driverID, Role: auth.RoleDriver}, 85, 10)
	assert.NoError(t, err)
}
