package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/homestay-labs/service-availability/internal/domain"
	bookingDomain "github.com/homestay-labs/service-availability/internal/domain/booking"
	propertyDomain "github.com/homestay-labs/service-availability/internal/domain/property"
	"github.com/homestay-labs/service-availability/internal/interval"
	"github.com/homestay-labs/service-availability/internal/kafka"
)

// EventPublisher is the slice of the Kafka producer the service needs. A nil
// publisher disables event publishing.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event kafka.CloudEvent) error
}

// CreateBookingRequest holds the data needed to request a new booking.
type CreateBookingRequest struct {
	PropertyID uuid.UUID `json:"property_id" binding:"required"`
	StartDate  time.Time `json:"start_date" binding:"required"`
	EndDate    time.Time `json:"end_date" binding:"required"`

	// TotalPrice is the negotiated total in cents. Omitting it quotes the
	// stay from the property's nightly price; an explicit value must be
	// positive.
	TotalPrice *int64 `json:"total_price"`
	Currency   string `json:"currency"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID            uuid.UUID  `json:"booking_id"`
	BookingNumber string     `json:"booking_number"`
	PropertyID    uuid.UUID  `json:"property_id"`
	GuestID       uuid.UUID  `json:"user_id"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       time.Time  `json:"end_date"`
	Status        string     `json:"status"`
	TotalPrice    int64      `json:"total_price"`
	Currency      string     `json:"currency"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
	CanceledAt    *time.Time `json:"canceled_at,omitempty"`
	CancelNote    string     `json:"cancel_note,omitempty"`
	Version       int64      `json:"version"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// BookingService is the application service guarding booking admission. It
// owns the interval index: the overlap check and the index insert run in one
// critical section per property, so two concurrent requests for the same
// open slot can never both succeed.
type BookingService struct {
	bookings   bookingDomain.BookingRepository
	properties propertyDomain.PropertyRepository
	index      *interval.Index
	producer   EventPublisher
	logger     *zap.Logger
	now        func() time.Time

	// rebuildMu quiesces index writers during RebuildIndex: an admission
	// or cancellation persisted after the ListActive snapshot but before
	// the index swap would otherwise be lost from the rebuilt index.
	rebuildMu sync.RWMutex
}

// NewBookingService creates a new BookingService. A nil now falls back to
// time.Now; tests inject a fixed clock.
func NewBookingService(
	bookings bookingDomain.BookingRepository,
	properties propertyDomain.PropertyRepository,
	index *interval.Index,
	producer EventPublisher,
	logger *zap.Logger,
	now func() time.Time,
) *BookingService {
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		bookings:   bookings,
		properties: properties,
		index:      index,
		producer:   producer,
		logger:     logger,
		now:        now,
	}
}

// RequestBooking validates and atomically admits a booking request. On
// success the booking is created in pending state, recorded in the interval
// index and persisted.
func (s *BookingService) RequestBooking(ctx context.Context, guestID uuid.UUID, req CreateBookingRequest) (*BookingDTO, error) {
	dates, err := bookingDomain.NewDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	today := bookingDomain.TruncateToDate(s.now())
	if dates.Start.Before(today) {
		return nil, domain.NewPastDateError(
			fmt.Sprintf("start date %s is before today %s",
				dates.Start.Format(time.DateOnly), today.Format(time.DateOnly)))
	}

	prop, err := s.properties.FindByID(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}
	if prop.HostID() == guestID {
		return nil, domain.NewSelfBookingError("hosts cannot book their own property")
	}

	var price int64
	switch {
	case req.TotalPrice == nil:
		price = prop.QuoteCents(dates.Nights())
	case *req.TotalPrice <= 0:
		return nil, domain.NewInvalidPriceError("total price must be positive")
	default:
		price = *req.TotalPrice
	}
	currency := req.Currency
	if currency == "" {
		currency = prop.Currency()
	}

	bk, err := bookingDomain.NewBooking(prop.ID(), guestID, dates, price, currency, s.now())
	if err != nil {
		return nil, err
	}

	// Check-then-insert under the property lock. Persisting inside the
	// section keeps the index and the store coherent: a failed save rolls
	// the index entry back before the lock is released.
	s.rebuildMu.RLock()
	err = s.index.WithProperty(prop.ID(), func(tx *interval.Tx) error {
		if conflicts := tx.QueryOverlap(dates); len(conflicts) > 0 {
			return domain.NewSlotUnavailableError(conflicts)
		}
		if err := tx.Insert(interval.Entry{BookingID: bk.ID(), Range: dates}); err != nil {
			return err
		}
		if err := s.bookings.Save(ctx, bk); err != nil {
			if rmErr := tx.Remove(bk.ID()); rmErr != nil {
				s.logger.Error("failed to roll back index entry after save failure",
					zap.String("booking_id", bk.ID().String()),
					zap.Error(rmErr),
				)
			}
			return fmt.Errorf("failed to save booking: %w", err)
		}
		return nil
	})
	s.rebuildMu.RUnlock()
	if err != nil {
		if domain.IsCode(err, domain.CodeInvariantViolation) {
			s.logger.Error("no-overlap invariant breached on admission",
				zap.String("property_id", prop.ID().String()),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.publishBookingRequested(ctx, bk)

	result := toBookingDTO(bk)
	return &result, nil
}

// ConfirmBooking transitions a pending booking to confirmed. The occupied
// date range is unchanged, so the index is not touched.
func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := bk.Confirm(s.now()); err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.bookings.Update(ctx, bk); err != nil {
		return nil, err
	}

	evt := kafka.BookingConfirmedEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		PropertyID:    bk.PropertyID(),
		GuestID:       bk.GuestID(),
		OccurredAt:    s.now().UTC(),
	}
	s.publishEvent(ctx, kafka.TopicBookingEvents, kafka.BookingConfirmed, bk.ID().String(), evt)

	result := toBookingDTO(bk)
	return &result, nil
}

// CancelBooking transitions a pending or confirmed booking to canceled and
// releases its date range. Canceling an already-canceled booking fails with
// invalid_transition before the index is touched, so the range is never
// removed twice.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID uuid.UUID, reason string) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := bk.Cancel(reason, s.now()); err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	s.rebuildMu.RLock()
	err = s.bookings.Update(ctx, bk)
	if err == nil {
		if rmErr := s.index.Remove(bk.PropertyID(), bk.ID()); rmErr != nil {
			// The booking is canceled in the store; a missing index entry
			// means the index already dropped it (e.g. after a rebuild).
			s.logger.Warn("canceled booking had no index entry",
				zap.String("booking_id", bk.ID().String()),
				zap.Error(rmErr),
			)
		}
	}
	s.rebuildMu.RUnlock()
	if err != nil {
		return nil, err
	}

	evt := kafka.BookingCanceledEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		PropertyID:    bk.PropertyID(),
		GuestID:       bk.GuestID(),
		Reason:        reason,
		OccurredAt:    s.now().UTC(),
	}
	s.publishEvent(ctx, kafka.TopicBookingEvents, kafka.BookingCanceled, bk.ID().String(), evt)

	result := toBookingDTO(bk)
	return &result, nil
}

// CheckAvailability reports whether [start, end) is free on the property,
// along with the conflicting booking ids when it is not.
func (s *BookingService) CheckAvailability(ctx context.Context, propertyID uuid.UUID, start, end time.Time) (bool, []uuid.UUID, error) {
	dates, err := bookingDomain.NewDateRange(start, end)
	if err != nil {
		return false, nil, err
	}
	if _, err := s.properties.FindByID(ctx, propertyID); err != nil {
		return false, nil, err
	}
	conflicts, err := s.index.QueryOverlap(propertyID, dates)
	if err != nil {
		return false, nil, err
	}
	return len(conflicts) == 0, conflicts, nil
}

// RebuildIndex replaces the interval index contents from the persisted set
// of pending and confirmed bookings. Called on startup and after
// reconciliation. Historical bookings replay without the past-date check;
// that check guards admission only.
func (s *BookingService) RebuildIndex(ctx context.Context) error {
	// Block admissions and cancellations for the duration so the snapshot
	// and the swapped-in index agree.
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	active, err := s.bookings.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active bookings: %w", err)
	}

	entries := make(map[uuid.UUID][]interval.Entry)
	for _, bk := range active {
		entries[bk.PropertyID()] = append(entries[bk.PropertyID()], interval.Entry{
			BookingID: bk.ID(),
			Range:     bk.Dates(),
		})
	}

	if err := s.index.Rebuild(entries); err != nil {
		return err
	}

	s.logger.Info("interval index rebuilt from store",
		zap.Int("active_bookings", len(active)),
		zap.Int("properties", len(entries)),
	)
	return nil
}

// GetBooking retrieves a single booking by ID.
func (s *BookingService) GetBooking(ctx context.Context, bookingID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// GetGuestBookings retrieves paginated bookings made by a specific guest.
func (s *BookingService) GetGuestBookings(ctx context.Context, guestID uuid.UUID, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.bookings.FindByGuestID(ctx, guestID, page, limit)
	if err != nil {
		return nil, err
	}

	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}

	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

// GetPropertyBookings retrieves paginated bookings for a specific property.
func (s *BookingService) GetPropertyBookings(ctx context.Context, propertyID uuid.UUID, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.bookings.FindByPropertyID(ctx, propertyID, page, limit)
	if err != nil {
		return nil, err
	}

	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}

	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

// --- Admin methods ---

// BookingStatsDTO holds booking statistics for the admin dashboard.
type BookingStatsDTO struct {
	TotalBookings int64            `json:"total_bookings"`
	ByStatus      map[string]int64 `json:"by_status"`
}

// ListAllBookings returns a paginated list of all bookings (admin).
func (s *BookingService) ListAllBookings(ctx context.Context, page, limit int) ([]BookingDTO, int64, error) {
	bookings, total, err := s.bookings.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}
	return dtos, total, nil
}

// GetBookingStats returns aggregate booking statistics (admin).
func (s *BookingService) GetBookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.bookings.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	return &BookingStatsDTO{
		TotalBookings: total,
		ByStatus:      counts,
	}, nil
}

// --- Helpers ---

func toBookingDTO(bk *bookingDomain.Booking) BookingDTO {
	return BookingDTO{
		ID:            bk.ID(),
		BookingNumber: bk.BookingNumber(),
		PropertyID:    bk.PropertyID(),
		GuestID:       bk.GuestID(),
		StartDate:     bk.Dates().Start,
		EndDate:       bk.Dates().End,
		Status:        string(bk.Status()),
		TotalPrice:    bk.TotalPriceCents(),
		Currency:      bk.Currency(),
		ConfirmedAt:   bk.ConfirmedAt(),
		CanceledAt:    bk.CanceledAt(),
		CancelNote:    bk.CancelNote(),
		Version:       bk.Version(),
		CreatedAt:     bk.CreatedAt(),
		UpdatedAt:     bk.UpdatedAt(),
	}
}

func (s *BookingService) publishBookingRequested(ctx context.Context, bk *bookingDomain.Booking) {
	evt := kafka.BookingRequestedEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		PropertyID:    bk.PropertyID(),
		GuestID:       bk.GuestID(),
		StartDate:     bk.Dates().Start,
		EndDate:       bk.Dates().End,
		TotalPrice:    bk.TotalPriceCents(),
		Currency:      bk.Currency(),
		OccurredAt:    s.now().UTC(),
	}
	s.publishEvent(ctx, kafka.TopicBookingEvents, kafka.BookingRequested, bk.ID().String(), evt)
}

func (s *BookingService) publishEvent(ctx context.Context, topic, eventType, key string, data interface{}) {
	if s.producer == nil {
		return
	}

	cloudEvent, err := kafka.NewCloudEvent("service-availability", eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := s.producer.PublishEvent(ctx, topic, key, cloudEvent); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
