package zones

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pizzeria-backend/pkg/db"
	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pizzeria-backend/pkg/errors"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
)

// ZoneDTO is the public view of a delivery zone.
type ZoneDTO struct {
	ID           uuid.UUID       `json:"id"`
	Neighborhood string          `json:"neighborhood"`
	Fee          decimal.Decimal `json:"fee"`
	Active       bool            `json:"active"`
}

func toDTO(row models.DeliveryZone) ZoneDTO {
	return ZoneDTO{ID: row.ID, Neighborhood: row.Neighborhood, Fee: row.Fee, Active: row.Active}
}

// CreateZoneInput is the staff payload for a new zone.
type CreateZoneInput struct {
	Neighborhood string
	Fee          decimal.Decimal
}

// UpdateZoneInput holds optional zone mutations.
type UpdateZoneInput struct {
	Neighborhood *string
	Fee          *decimal.Decimal
	Active       *bool
}

// Service exposes delivery zone reads and staff edits.
type Service interface {
	ListActive(ctx context.Context) ([]ZoneDTO, error)
	FeeFor(ctx context.Context, id uuid.UUID) (decimal.Decimal, bool, error)
	Create(ctx context.Context, input CreateZoneInput) (*ZoneDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateZoneInput) (*ZoneDTO, error)
}

type zoneRepository interface {
	ListActive(ctx context.Context) ([]models.DeliveryZone, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.DeliveryZone, error)
	Create(ctx context.Context, zone *models.DeliveryZone) error
	Update(ctx context.Context, zone *models.DeliveryZone) error
}

type service struct {
	repo zoneRepository
	logg *logger.Logger
}

// NewService builds the delivery zone service.
func NewService(repo zoneRepository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("zone repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) ListActive(ctx context.Context) ([]ZoneDTO, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list delivery zones")
	}
	out := make([]ZoneDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row))
	}
	return out, nil
}

// FeeFor reports the fee of an active zone. Unknown or inactive zones report
// found=false with no error.
func (s *service) FeeFor(ctx context.Context, id uuid.UUID) (decimal.Decimal, bool, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery zone")
	}
	if !row.Active {
		return decimal.Zero, false, nil
	}
	return row.Fee, true, nil
}

func (s *service) Create(ctx context.Context, input CreateZoneInput) (*ZoneDTO, error) {
	name := strings.TrimSpace(input.Neighborhood)
	if err := validateZone(name, input.Fee); err != nil {
		return nil, err
	}
	row := &models.DeliveryZone{Neighborhood: name, Fee: input.Fee, Active: true}
	if err := s.repo.Create(ctx, row); err != nil {
		if db.IsUniqueViolation(err, "idx_delivery_zones_neighborhood") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "delivery zone already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery zone")
	}
	s.logg.Info(s.logg.WithField(ctx, "zone_id", row.ID.String()), "delivery zone created")
	dto := toDTO(*row)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateZoneInput) (*ZoneDTO, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery zone not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery zone")
	}
	if input.Neighborhood != nil {
		row.Neighborhood = strings.TrimSpace(*input.Neighborhood)
	}
	if input.Fee != nil {
		row.Fee = *input.Fee
	}
	if input.Active != nil {
		row.Active = *input.Active
	}
	if err := validateZone(row.Neighborhood, row.Fee); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update delivery zone")
	}
	s.logg.Info(s.logg.WithField(ctx, "zone_id", id.String()), "delivery zone updated")
	dto := toDTO(*row)
	return &dto, nil
}

func validateZone(name string, fee decimal.Decimal) error {
	fields := map[string]string{}
	if name == "" {
		fields["neighborhood"] = "required"
	}
	if fee.IsNegative() {
		fields["fee"] = "must not be negative"
	}
	if len(fields) > 0 {
		return pkgerrors.Validation("invalid delivery zone", fields)
	}
	return nil
}
