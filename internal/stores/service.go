package stores

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pizzeria-backend/pkg/errors"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
	"github.com/angelmondragon/pizzeria-backend/pkg/redis"
)

// openCacheTTL bounds how stale the cached open flag may be on other instances.
const openCacheTTL = 30 * time.Second

// StatusDTO is the public store status.
type StatusDTO struct {
	IsOpen    bool      `json:"is_open"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service exposes the store open flag.
type Service interface {
	IsOpen(ctx context.Context) (bool, error)
	SetOpen(ctx context.Context, staffID string, open bool) (*StatusDTO, error)
}

type settingsRepository interface {
	Get(ctx context.Context) (*models.StoreSetting, error)
	SetOpen(ctx context.Context, open bool, updatedBy *string) (*models.StoreSetting, error)
}

type flagCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	StoreOpenKey() string
}

type service struct {
	repo  settingsRepository
	cache flagCache
	logg  *logger.Logger
}

// NewService builds the store status service. A nil cache reads the database every time.
func NewService(repo settingsRepository, cache flagCache, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("store settings repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, cache: cache, logg: logg}, nil
}

// IsOpen reads the cached flag, falling back to the database when the cache
// misses or fails. A missing settings row means closed.
func (s *service) IsOpen(ctx context.Context) (bool, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, s.cache.StoreOpenKey())
		switch {
		case err == nil:
			if open, parseErr := strconv.ParseBool(raw); parseErr == nil {
				return open, nil
			}
		case !errors.Is(err, redis.Nil):
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "store flag cache read failed")
		}
	}

	row, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store settings")
	}
	s.remember(ctx, row.IsOpen)
	return row.IsOpen, nil
}

func (s *service) SetOpen(ctx context.Context, staffID string, open bool) (*StatusDTO, error) {
	var updatedBy *string
	if staffID != "" {
		updatedBy = &staffID
	}
	row, err := s.repo.SetOpen(ctx, open, updatedBy)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update store settings")
	}
	s.remember(ctx, open)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"is_open": open, "staff_id": staffID}), "store status updated")
	return &StatusDTO{IsOpen: open, UpdatedAt: row.UpdatedAt}, nil
}

func (s *service) remember(ctx context.Context, open bool) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, s.cache.StoreOpenKey(), strconv.FormatBool(open), openCacheTTL); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "store flag cache write failed")
		// a stale value would outlive the change; drop it
		_ = s.cache.Del(ctx, s.cache.StoreOpenKey())
	}
}
