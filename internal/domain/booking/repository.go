package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BookingRepository defines the persistence contract for booking aggregates.
type BookingRepository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByNumber retrieves a booking by its human-readable booking number.
	FindByNumber(ctx context.Context, number string) (*Booking, error)

	// FindByGuestID retrieves bookings made by a specific guest with pagination.
	FindByGuestID(ctx context.Context, guestID uuid.UUID, page, limit int) ([]*Booking, int64, error)

	// FindByPropertyID retrieves bookings for a specific property with pagination.
	FindByPropertyID(ctx context.Context, propertyID uuid.UUID, page, limit int) ([]*Booking, int64, error)

	// FindByDateRange retrieves bookings whose range intersects [start, end).
	FindByDateRange(ctx context.Context, start, end time.Time) ([]*Booking, error)

	// ListActive retrieves every pending or confirmed booking. Used to
	// rebuild the in-memory interval index from the store on startup.
	ListActive(ctx context.Context) ([]*Booking, error)

	// ListAll retrieves all bookings with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*Booking, int64, error)

	// CountByStatus returns booking counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// Save persists a new booking.
	Save(ctx context.Context, booking *Booking) error

	// Update persists changes to an existing booking with optimistic locking.
	Update(ctx context.Context, booking *Booking) error
}
