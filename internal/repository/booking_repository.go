package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/homestay-labs/service-availability/internal/domain"
	bookingDomain "github.com/homestay-labs/service-availability/internal/domain/booking"
)

// BookingModel is the GORM model for the bookings table. Column names match
// the marketplace schema: booking_id, property_id, user_id, start_date,
// end_date, total_price, status.
type BookingModel struct {
	ID            uuid.UUID  `gorm:"column:booking_id;type:uuid;primaryKey"`
	BookingNumber string     `gorm:"column:booking_number;uniqueIndex;not null;size:20"`
	PropertyID    uuid.UUID  `gorm:"column:property_id;type:uuid;index;not null"`
	UserID        uuid.UUID  `gorm:"column:user_id;type:uuid;index;not null"`
	StartDate     time.Time  `gorm:"column:start_date;not null;index:idx_bookings_property_dates,priority:2"`
	EndDate       time.Time  `gorm:"column:end_date;not null"`
	Status        string     `gorm:"column:status;not null;size:20;index"`
	TotalPrice    int64      `gorm:"column:total_price;not null"`
	Currency      string     `gorm:"column:currency;not null;size:3;default:'USD'"`
	ConfirmedAt   *time.Time `gorm:"column:confirmed_at"`
	CanceledAt    *time.Time `gorm:"column:canceled_at"`
	CancelNote    string     `gorm:"column:cancel_note;size:500"`
	Version       int64      `gorm:"column:version;not null;default:1"`
	CreatedAt     time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("booking_id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model)
}

// FindByNumber retrieves a booking by its booking number.
func (r *GormBookingRepository) FindByNumber(ctx context.Context, number string) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("booking_number = ?", number).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", number)
		}
		return nil, fmt.Errorf("failed to find booking by number: %w", err)
	}
	return toDomainBooking(&model)
}

// FindByGuestID retrieves bookings made by a specific guest with pagination.
func (r *GormBookingRepository) FindByGuestID(ctx context.Context, guestID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Where("user_id = ?", guestID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count guest bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", guestID).
		Order("start_date DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find guest bookings: %w", err)
	}

	return toDomainBookings(models, total)
}

// FindByPropertyID retrieves bookings for a specific property with pagination,
// oldest stay first so report windows line up with start-date order.
func (r *GormBookingRepository) FindByPropertyID(ctx context.Context, propertyID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Where("property_id = ?", propertyID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count property bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("start_date ASC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find property bookings: %w", err)
	}

	return toDomainBookings(models, total)
}

// FindByDateRange retrieves bookings whose range intersects [start, end).
func (r *GormBookingRepository) FindByDateRange(ctx context.Context, start, end time.Time) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where("start_date < ? AND end_date > ?", end, start).
		Order("start_date ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find bookings by date range: %w", err)
	}

	bookings, _, err := toDomainBookings(models, int64(len(models)))
	return bookings, err
}

// ListActive retrieves every pending or confirmed booking for index rebuild.
func (r *GormBookingRepository) ListActive(ctx context.Context) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where("status IN ?", []string{
			string(bookingDomain.StatusPending),
			string(bookingDomain.StatusConfirmed),
		}).
		Order("start_date ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list active bookings: %w", err)
	}

	bookings, _, err := toDomainBookings(models, int64(len(models)))
	return bookings, err
}

// ListAll retrieves all bookings with pagination (admin and reporting).
func (r *GormBookingRepository) ListAll(ctx context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	return toDomainBookings(models, total)
}

// CountByStatus returns booking counts grouped by status (admin).
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// Save persists a new booking.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	model := toBookingModel(bk)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// Update persists changes to an existing booking with optimistic locking.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	model := toBookingModel(bk)

	// Only update if the version matches (current version - 1, since
	// IncrementVersion was called before Update).
	expectedVersion := bk.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("booking_id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":       model.Status,
			"total_price":  model.TotalPrice,
			"confirmed_at": model.ConfirmedAt,
			"canceled_at":  model.CanceledAt,
			"cancel_note":  model.CancelNote,
			"version":      model.Version,
			"updated_at":   model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.NewConflictError("booking was modified by another transaction")
	}

	return nil
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) *BookingModel {
	return &BookingModel{
		ID:            bk.ID(),
		BookingNumber: bk.BookingNumber(),
		PropertyID:    bk.PropertyID(),
		UserID:        bk.GuestID(),
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

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	status, err := bookingDomain.ParseBookingStatus(m.Status)
	if err != nil {
		return nil, err
	}

	dates := bookingDomain.DateRange{
		Start: bookingDomain.TruncateToDate(m.StartDate),
		End:   bookingDomain.TruncateToDate(m.EndDate),
	}

	return bookingDomain.ReconstructBooking(
		m.ID,
		m.BookingNumber,
		m.PropertyID,
		m.UserID,
		dates,
		status,
		m.TotalPrice,
		m.Currency,
		m.ConfirmedAt,
		m.CanceledAt,
		m.CancelNote,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

func toDomainBookings(models []BookingModel, total int64) ([]*bookingDomain.Booking, int64, error) {
	bookings := make([]*bookingDomain.Booking, len(models))
	for i, m := range models {
		bk, err := toDomainBooking(&m)
		if err != nil {
			return nil, 0, err
		}
		bookings[i] = bk
	}
	return bookings, total, nil
}
