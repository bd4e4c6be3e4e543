package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/homestay-labs/service-availability/internal/domain"
	propertyDomain "github.com/homestay-labs/service-availability/internal/domain/property"
)

// CreatePropertyRequest holds the data needed to list a new property.
type CreatePropertyRequest struct {
	Name          string `json:"name" binding:"required"`
	Location      string `json:"location"`
	PricePerNight int64  `json:"pricepernight" binding:"required"`
	Currency      string `json:"currency"`
}

// UpdatePropertyRequest holds editable listing fields. Edits never affect
// existing bookings.
type UpdatePropertyRequest struct {
	Name          string `json:"name" binding:"required"`
	Location      string `json:"location"`
	PricePerNight int64  `json:"pricepernight" binding:"required"`
}

// PropertyDTO is the response representation of a property.
type PropertyDTO struct {
	ID            uuid.UUID `json:"property_id"`
	HostID        uuid.UUID `json:"host_id"`
	Name          string    `json:"name"`
	Location      string    `json:"location"`
	PricePerNight int64     `json:"pricepernight"`
	Currency      string    `json:"currency"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PropertyService is the application service for property listings.
type PropertyService struct {
	repo   propertyDomain.PropertyRepository
	logger *zap.Logger
}

// NewPropertyService creates a new PropertyService.
func NewPropertyService(repo propertyDomain.PropertyRepository, logger *zap.Logger) *PropertyService {
	return &PropertyService{repo: repo, logger: logger}
}

// CreateProperty lists a new property for the given host.
func (s *PropertyService) CreateProperty(ctx context.Context, hostID uuid.UUID, req CreatePropertyRequest) (*PropertyDTO, error) {
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	prop, err := propertyDomain.NewProperty(hostID, req.Name, req.Location, req.PricePerNight, currency)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, prop); err != nil {
		return nil, err
	}

	result := toPropertyDTO(prop)
	return &result, nil
}

// UpdateProperty edits a listing's details. Only the owning host may edit.
func (s *PropertyService) UpdateProperty(ctx context.Context, hostID, propertyID uuid.UUID, req UpdatePropertyRequest) (*PropertyDTO, error) {
	prop, err := s.repo.FindByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if prop.HostID() != hostID {
		return nil, domain.NewForbiddenError("property does not belong to this host")
	}

	if err := prop.UpdateDetails(req.Name, req.Location, req.PricePerNight); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, prop); err != nil {
		return nil, err
	}

	result := toPropertyDTO(prop)
	return &result, nil
}

// GetProperty retrieves a single property by ID.
func (s *PropertyService) GetProperty(ctx context.Context, propertyID uuid.UUID) (*PropertyDTO, error) {
	prop, err := s.repo.FindByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	result := toPropertyDTO(prop)
	return &result, nil
}

// GetHostProperties retrieves all properties listed by a host.
func (s *PropertyService) GetHostProperties(ctx context.Context, hostID uuid.UUID) ([]PropertyDTO, error) {
	props, err := s.repo.FindByHostID(ctx, hostID)
	if err != nil {
		return nil, err
	}

	dtos := make([]PropertyDTO, len(props))
	for i, p := range props {
		dtos[i] = toPropertyDTO(p)
	}
	return dtos, nil
}

// ListProperties retrieves a paginated list of all properties.
func (s *PropertyService) ListProperties(ctx context.Context, page, limit int) (*domain.PaginatedResult[PropertyDTO], error) {
	props, total, err := s.repo.ListAll(ctx, page, limit)
	if err != nil {
		return nil, err
	}

	dtos := make([]PropertyDTO, len(props))
	for i, p := range props {
		dtos[i] = toPropertyDTO(p)
	}

	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

func toPropertyDTO(p *propertyDomain.Property) PropertyDTO {
	return PropertyDTO{
		ID:            p.ID(),
		HostID:        p.HostID(),
		Name:          p.Name(),
		Location:      p.Location(),
		PricePerNight: p.NightlyPriceCents(),
		Currency:      p.Currency(),
		Version:       p.Version(),
		CreatedAt:     p.CreatedAt(),
		UpdatedAt:     p.UpdatedAt(),
	}
}
