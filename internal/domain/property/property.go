package property

import (
	"time"

	"github.com/google/uuid"

	"github.com/homestay-labs/service-availability/internal/domain"
)

// Property is the aggregate root for a rentable listing. Price and location
// edits never touch existing bookings; a booking's total price is fixed at
// admission time.
type Property struct {
	id                uuid.UUID
	hostID            uuid.UUID
	name              string
	location          string
	nightlyPriceCents int64
	currency          string
	version           int64
	createdAt         time.Time
	updatedAt         time.Time
}

// NewProperty creates a new Property with validated fields.
func NewProperty(hostID uuid.UUID, name, location string, nightlyPriceCents int64, currency string) (*Property, error) {
	if hostID == uuid.Nil {
		return nil, domain.NewValidationError("host ID is required")
	}
	if name == "" {
		return nil, domain.NewValidationError("property name is required")
	}
	if nightlyPriceCents <= 0 {
		return nil, domain.NewInvalidPriceError("nightly price must be positive")
	}

	now := time.Now().UTC()
	return &Property{
		id:                uuid.New(),
		hostID:            hostID,
		name:              name,
		location:          location,
		nightlyPriceCents: nightlyPriceCents,
		currency:          currency,
		version:           1,
		createdAt:         now,
		updatedAt:         now,
	}, nil
}

// Reconstruct rebuilds a Property from persistence data (no validation).
func Reconstruct(
	id, hostID uuid.UUID,
	name, location string,
	nightlyPriceCents int64,
	currency string,
	version int64,
	createdAt, updatedAt time.Time,
) *Property {
	return &Property{
		id:                id,
		hostID:            hostID,
		name:              name,
		location:          location,
		nightlyPriceCents: nightlyPriceCents,
		currency:          currency,
		version:           version,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}
}

// ID returns the property's unique identifier.
func (p *Property) ID() uuid.UUID { return p.id }

// HostID returns the owning host's user ID.
func (p *Property) HostID() uuid.UUID { return p.hostID }

// Name returns the listing name.
func (p *Property) Name() string { return p.name }

// Location returns the opaque location string.
func (p *Property) Location() string { return p.location }

// NightlyPriceCents returns the nightly price in cents.
func (p *Property) NightlyPriceCents() int64 { return p.nightlyPriceCents }

// Currency returns the currency code.
func (p *Property) Currency() string { return p.currency }

// Version returns the entity version for optimistic locking.
func (p *Property) Version() int64 { return p.version }

// CreatedAt returns the creation timestamp.
func (p *Property) CreatedAt() time.Time { return p.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (p *Property) UpdatedAt() time.Time { return p.updatedAt }

// QuoteCents returns the quoted total for a stay of the given number of
// nights at the current nightly price.
func (p *Property) QuoteCents(nights int) int64 {
	return p.nightlyPriceCents * int64(nights)
}

// UpdateDetails changes the listing's price and location. Existing bookings
// are unaffected.
func (p *Property) UpdateDetails(name, location string, nightlyPriceCents int64) error {
	if name == "" {
		return domain.NewValidationError("property name is required")
	}
	if nightlyPriceCents <= 0 {
		return domain.NewInvalidPriceError("nightly price must be positive")
	}
	p.name = name
	p.location = location
	p.nightlyPriceCents = nightlyPriceCents
	p.version++
	p.updatedAt = time.Now().UTC()
	return nil
}
