package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/homestay-labs/service-availability/internal/domain"
)

const bookingNumberChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Booking is the aggregate root for the booking domain. A booking occupies a
// half-open date range on exactly one property and moves through
// pending -> confirmed -> canceled. Canceled bookings stop occupying their
// range but are never physically deleted.
type Booking struct {
	id            uuid.UUID
	bookingNumber string
	propertyID    uuid.UUID
	guestID       uuid.UUID
	dates         DateRange
	status        BookingStatus

	// totalPriceCents is independent of the property's nightly price;
	// it may have been renegotiated after quoting.
	totalPriceCents int64
	currency        string

	confirmedAt *time.Time
	canceledAt  *time.Time
	cancelNote  string

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// generateBookingNumber creates a booking number in the format "BK-XXXXXX".
func generateBookingNumber() (string, error) {
	result := make([]byte, 6)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(bookingNumberChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate booking number: %w", err)
		}
		result[i] = bookingNumberChars[n.Int64()]
	}
	return "BK-" + string(result), nil
}

// NewBooking creates a new Booking aggregate with status=pending. The
// caller is responsible for the availability and actor checks (overlap,
// past-date, self-booking); this constructor validates the booking's own
// shape.
func NewBooking(
	propertyID uuid.UUID,
	guestID uuid.UUID,
	dates DateRange,
	totalPriceCents int64,
	currency string,
	now time.Time,
) (*Booking, error) {
	if propertyID == uuid.Nil {
		return nil, domain.NewValidationError("property ID is required")
	}
	if guestID == uuid.Nil {
		return nil, domain.NewValidationError("guest ID is required")
	}
	if !dates.Start.Before(dates.End) {
		return nil, domain.NewInvalidRangeError("start date must be before end date")
	}
	if totalPriceCents <= 0 {
		return nil, domain.NewInvalidPriceError("total price must be positive")
	}

	bookingNumber, err := generateBookingNumber()
	if err != nil {
		return nil, err
	}

	now = now.UTC()
	return &Booking{
		id:              uuid.New(),
		bookingNumber:   bookingNumber,
		propertyID:      propertyID,
		guestID:         guestID,
		dates:           dates,
		status:          StatusPending,
		totalPriceCents: totalPriceCents,
		currency:        currency,
		version:         1,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(
	id uuid.UUID,
	bookingNumber string,
	propertyID uuid.UUID,
	guestID uuid.UUID,
	dates DateRange,
	status BookingStatus,
	totalPriceCents int64,
	currency string,
	confirmedAt *time.Time,
	canceledAt *time.Time,
	cancelNote string,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Booking {
	return &Booking{
		id:              id,
		bookingNumber:   bookingNumber,
		propertyID:      propertyID,
		guestID:         guestID,
		dates:           dates,
		status:          status,
		totalPriceCents: totalPriceCents,
		currency:        currency,
		confirmedAt:     confirmedAt,
		canceledAt:      canceledAt,
		cancelNote:      cancelNote,
		version:         version,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// BookingNumber returns the human-readable booking number.
func (b *Booking) BookingNumber() string { return b.bookingNumber }

// PropertyID returns the booked property's identifier.
func (b *Booking) PropertyID() uuid.UUID { return b.propertyID }

// GuestID returns the booking guest's user ID.
func (b *Booking) GuestID() uuid.UUID { return b.guestID }

// Dates returns the booked half-open date range.
func (b *Booking) Dates() DateRange { return b.dates }

// Status returns the current booking status.
func (b *Booking) Status() BookingStatus { return b.status }

// TotalPriceCents returns the total price in cents.
func (b *Booking) TotalPriceCents() int64 { return b.totalPriceCents }

// Currency returns the currency code.
func (b *Booking) Currency() string { return b.currency }

// ConfirmedAt returns the time the booking was confirmed, or nil.
func (b *Booking) ConfirmedAt() *time.Time { return b.confirmedAt }

// CanceledAt returns the time the booking was canceled, or nil.
func (b *Booking) CanceledAt() *time.Time { return b.canceledAt }

// CancelNote returns the cancellation reason.
func (b *Booking) CancelNote() string { return b.cancelNote }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// IsActive reports whether the booking currently occupies its date range.
func (b *Booking) IsActive() bool { return b.status.IsActive() }

// --- Behavior ---

// Confirm transitions the booking from pending to confirmed.
func (b *Booking) Confirm(now time.Time) error {
	if !b.status.CanTransitionTo(StatusConfirmed) {
		return domain.NewInvalidStateError(string(b.status), string(StatusConfirmed))
	}
	now = now.UTC()
	b.status = StatusConfirmed
	b.confirmedAt = &now
	b.updatedAt = now
	return nil
}

// Cancel transitions the booking to canceled if it is not already terminal.
func (b *Booking) Cancel(reason string, now time.Time) error {
	if !b.status.CanTransitionTo(StatusCanceled) {
		return domain.NewInvalidStateError(string(b.status), string(StatusCanceled))
	}
	now = now.UTC()
	b.status = StatusCanceled
	b.cancelNote = reason
	b.canceledAt = &now
	b.updatedAt = now
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
	b.updatedAt = time.Now().UTC()
}
