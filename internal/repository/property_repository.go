package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/homestay-labs/service-availability/internal/domain"
	propertyDomain "github.com/homestay-labs/service-availability/internal/domain/property"
)

// PropertyModel is the GORM model for the properties table.
type PropertyModel struct {
	ID            uuid.UUID `gorm:"column:property_id;type:uuid;primaryKey"`
	HostID        uuid.UUID `gorm:"column:host_id;type:uuid;index;not null"`
	Name          string    `gorm:"column:name;not null;size:200"`
	Location      string    `gorm:"column:location;size:500"`
	PricePerNight int64     `gorm:"column:pricepernight;not null"`
	Currency      string    `gorm:"column:currency;not null;size:3;default:'USD'"`
	Version       int64     `gorm:"column:version;not null;default:1"`
	CreatedAt     time.Time `gorm:"column:created_at;not null"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null"`
}

// TableName returns the table name for the GORM model.
func (PropertyModel) TableName() string {
	return "properties"
}

// GormPropertyRepository is the GORM-based implementation of PropertyRepository.
type GormPropertyRepository struct {
	db *gorm.DB
}

// NewGormPropertyRepository creates a new GormPropertyRepository.
func NewGormPropertyRepository(db *gorm.DB) *GormPropertyRepository {
	return &GormPropertyRepository{db: db}
}

// FindByID retrieves a property by its unique identifier.
func (r *GormPropertyRepository) FindByID(ctx context.Context, id uuid.UUID) (*propertyDomain.Property, error) {
	var model PropertyModel
	if err := r.db.WithContext(ctx).Where("property_id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Property", id.String())
		}
		return nil, fmt.Errorf("failed to find property by ID: %w", err)
	}
	return toDomainProperty(&model), nil
}

// FindByHostID retrieves all properties listed by a host.
func (r *GormPropertyRepository) FindByHostID(ctx context.Context, hostID uuid.UUID) ([]*propertyDomain.Property, error) {
	var models []PropertyModel
	if err := r.db.WithContext(ctx).
		Where("host_id = ?", hostID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find host properties: %w", err)
	}

	props := make([]*propertyDomain.Property, len(models))
	for i, m := range models {
		props[i] = toDomainProperty(&m)
	}
	return props, nil
}

// ListAll retrieves all properties with pagination.
func (r *GormPropertyRepository) ListAll(ctx context.Context, page, limit int) ([]*propertyDomain.Property, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&PropertyModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count properties: %w", err)
	}

	var models []PropertyModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list properties: %w", err)
	}

	props := make([]*propertyDomain.Property, len(models))
	for i, m := range models {
		props[i] = toDomainProperty(&m)
	}
	return props, total, nil
}

// Save persists a new property.
func (r *GormPropertyRepository) Save(ctx context.Context, prop *propertyDomain.Property) error {
	model := toPropertyModel(prop)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save property: %w", err)
	}
	return nil
}

// Update persists changes to an existing property with optimistic locking.
func (r *GormPropertyRepository) Update(ctx context.Context, prop *propertyDomain.Property) error {
	model := toPropertyModel(prop)

	expectedVersion := prop.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&PropertyModel{}).
		Where("property_id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"name":          model.Name,
			"location":      model.Location,
			"pricepernight": model.PricePerNight,
			"version":       model.Version,
			"updated_at":    model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update property: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.NewConflictError("property was modified by another transaction")
	}

	return nil
}

// --- Conversion Helpers ---

func toPropertyModel(p *propertyDomain.Property) *PropertyModel {
	return &PropertyModel{
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

func toDomainProperty(m *PropertyModel) *propertyDomain.Property {
	return propertyDomain.Reconstruct(
		m.ID,
		m.HostID,
		m.Name,
		m.Location,
		m.PricePerNight,
		m.Currency,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	)
}
