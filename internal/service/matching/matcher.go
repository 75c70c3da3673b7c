package matching

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/gocomet/ride-booking/internal/auth"
	"github.com/gocomet/ride-booking/internal/domain/driver"
	"github.com/gocomet/ride-booking/internal/service/location"
	apperrors "github.com/gocomet/ride-booking/pkg/errors"
	"github.com/gocomet/ride-booking/pkg/logger"
	"github.com/gocomet/ride-booking/pkg/monitoring"
)

// Service answers proximity queries for riders and keeps positions current
type Service struct {
	index   location.Index
	drivers driver.Repository
	logger  *logger.Logger
	nr      *monitoring.NewRelicApp
	config  Config
}

// Config holds matching configuration
type Config struct {
	DefaultRadiusKM float64 // Used when the request has no radius
	MaxRadiusKM     float64 // Larger radii are capped
	MaxCandidates   int
}

// NewService creates a new matching service
func NewService(index location.Index, drivers driver.Repository, log *logger.Logger, nr *monitoring.NewRelicApp, config Config) *Service {
	if config.DefaultRadiusKM <= 0 {
		config.DefaultRadiusKM = 5
	}
	if config.MaxRadiusKM < config.DefaultRadiusKM {
		config.MaxRadiusKM = config.DefaultRadiusKM
	}
	return &Service{
		index:   index,
		drivers: drivers,
		logger:  log,
		nr:      nr,
		config:  config,
	}
}

// FindNearbyDrivers returns drivers within radiusKM of the point, nearest
// first. A zero radius means the configured default.
func (s *Service) FindNearbyDrivers(ctx context.Context, lat, lng, radiusKM float64) ([]location.Nearby, error) {
	startTime := time.Now()

	if radiusKM < 0 {
		return nil, apperrors.ErrInvalidRadius
	}
	if radiusKM == 0 {
		radiusKM = s.config.DefaultRadiusKM
	}
	if radiusKM > s.config.MaxRadiusKM {
		s.logger.Debug("Search radius capped",
			logger.Float64("requested_km", radiusKM),
			logger.Float64("max_km", s.config.MaxRadiusKM),
		)
		radiusKM = s.config.MaxRadiusKM
	}

	results, err := s.index.QueryNearby(ctx, location.RoleDriver, lat, lng, radiusKM)
	if err != nil {
		if errors.Is(err, location.ErrInvalidQuery) {
			return nil, apperrors.WithCause(apperrors.ErrInvalidCoordinates, err)
		}
		s.logger.Error("Failed to search nearby drivers", logger.Err(err))
		return nil, apperrors.Internal("Failed to search nearby drivers", err)
	}

	// Backends may not guarantee order
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DistanceKM < results[j].DistanceKM
	})
	if s.config.MaxCandidates > 0 && len(results) > s.config.MaxCandidates {
		results = results[:s.config.MaxCandidates]
	}

	elapsed := time.Since(startTime)
	s.nr.RecordMatchingLatency(float64(elapsed.Milliseconds()), len(results))
	s.logger.Info("Nearby drivers searched",
		logger.Float64("pickup_lat", lat),
		logger.Float64("pickup_lng", lng),
		logger.Float64("radius_km", radiusKM),
		logger.Int("found", len(results)),
		logger.Duration("latency", elapsed),
	)

	return results, nil
}

// GetDriver loads a driver record and attaches its current position when one
// is indexed
func (s *Service) GetDriver(ctx context.Context, id string) (*driver.Driver, error) {
	if !driver.ValidID(id) {
		return nil, apperrors.ErrInvalidDriverID
	}

	d, err := s.drivers.GetByID(ctx, id)
	if errors.Is(err, driver.ErrDriverNotFound) {
		return nil, apperrors.ErrDriverNotFound
	}
	if err != nil {
		s.logger.Error("Failed to load driver", logger.String("driver_id", id), logger.Err(err))
		return nil, apperrors.Internal("Failed to load driver", err)
	}

	pos, err := s.index.GetPosition(ctx, location.RoleDriver, id)
	switch {
	case err == nil:
		d.SetLocation(pos.Latitude, pos.Longitude)
	case errors.Is(err, location.ErrPositionNotFound):
	default:
		// The record is still useful without a position
		s.logger.Warn("Failed to load driver position", logger.String("driver_id", id), logger.Err(err))
	}
	return d, nil
}

// RoleFor maps an identity to the index key-space it writes to
func RoleFor(id auth.Identity) (location.Role, error) {
	switch id.Role {
	case auth.RoleUser:
		return location.RoleRider, nil
	case auth.RoleDriver:
		return location.RoleDriver, nil
	}
	return "", apperrors.ErrRoleNotAllowed
}

// UpdatePosition records the caller's current coordinates in the key-space of
// their role
func (s *Service) UpdatePosition(ctx context.Context, id auth.Identity, lat, lng float64) (*location.Position, error) {
	role, err := RoleFor(id)
	if err != nil {
		return nil, err
	}

	if err := s.index.UpsertPosition(ctx, role, id.ID, lat, lng); err != nil {
		if errors.Is(err, location.ErrInvalidPosition) {
			return nil, apperrors.WithCause(apperrors.ErrInvalidCoordinates, err)
		}
		s.logger.Error("Failed to update position",
			logger.String("id", id.ID),
			logger.String("role", string(role)),
			logger.Err(err),
		)
		return nil, apperrors.Internal("Failed to update location", err)
	}

	s.nr.RecordLocationUpdate(string(role))
	return &location.Position{ID: id.ID, Latitude: lat, Longitude: lng}, nil
}
