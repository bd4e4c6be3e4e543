package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/homestay-labs/service-availability/internal/domain/booking"
)

// UserBookingStats summarizes one guest's non-canceled bookings.
type UserBookingStats struct {
	UserID     uuid.UUID  `json:"user_id"`
	Count      int        `json:"count"`
	TotalSpent int64      `json:"total_spent"`
	AvgPrice   float64    `json:"avg_price"`
	FirstDate  *time.Time `json:"first_date,omitempty"`
	LastDate   *time.Time `json:"last_date,omitempty"`
}

// PropertyBookingCount is one row of the property ranking.
type PropertyBookingCount struct {
	PropertyID uuid.UUID `json:"property_id"`
	Count      int       `json:"count"`
}

// BookingsPerUser computes per-guest booking statistics over a snapshot.
// Canceled bookings are excluded from count, total and average; guests with
// only canceled bookings still appear with zero count and total.
func BookingsPerUser(records []*bookingDomain.Booking) map[uuid.UUID]UserBookingStats {
	stats := make(map[uuid.UUID]UserBookingStats)
	for _, bk := range records {
		st, ok := stats[bk.GuestID()]
		if !ok {
			st = UserBookingStats{UserID: bk.GuestID()}
		}
		if bk.IsActive() {
			st.Count++
			st.TotalSpent += bk.TotalPriceCents()
			start := bk.Dates().Start
			if st.FirstDate == nil || start.Before(*st.FirstDate) {
				s := start
				st.FirstDate = &s
			}
			if st.LastDate == nil || start.After(*st.LastDate) {
				s := start
				st.LastDate = &s
			}
		}
		stats[bk.GuestID()] = st
	}

	for id, st := range stats {
		if st.Count > 0 {
			st.AvgPrice = float64(st.TotalSpent) / float64(st.Count)
			stats[id] = st
		}
	}
	return stats
}

// RankPropertiesByBookings orders properties by non-canceled booking count,
// descending. Ties break by property id ascending, so the ranking is
// deterministic.
func RankPropertiesByBookings(records []*bookingDomain.Booking) []PropertyBookingCount {
	counts := make(map[uuid.UUID]int)
	for _, bk := range records {
		if bk.IsActive() {
			counts[bk.PropertyID()]++
		}
	}

	ranked := make([]PropertyBookingCount, 0, len(counts))
	for id, count := range counts {
		ranked = append(ranked, PropertyBookingCount{PropertyID: id, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].PropertyID.String() < ranked[j].PropertyID.String()
	})
	return ranked
}

// MovingAverage returns, in start-date order, the trailing mean of total
// price (cents) over the last window bookings ending at each one. Positions
// before a full window average over however many bookings are available.
func MovingAverage(records []*bookingDomain.Booking, window int) []float64 {
	if window < 1 || len(records) == 0 {
		return nil
	}

	ordered := make([]*bookingDomain.Booking, len(records))
	copy(ordered, records)
	sort.Slice(ordered, func(i, j int) bool {
		si, sj := ordered[i].Dates().Start, ordered[j].Dates().Start
		if !si.Equal(sj) {
			return si.Before(sj)
		}
		return ordered[i].ID().String() < ordered[j].ID().String()
	})

	out := make([]float64, len(ordered))
	var sum int64
	for i, bk := range ordered {
		sum += bk.TotalPriceCents()
		if i >= window {
			sum -= ordered[i-window].TotalPriceCents()
		}
		n := i + 1
		if n > window {
			n = window
		}
		out[i] = float64(sum) / float64(n)
	}
	return out
}

// ReportService exposes the aggregate computations over snapshots loaded
// from the store. Every computation is a pure function of its snapshot; the
// service never mutates shared state, so calls may run fully in parallel.
type ReportService struct {
	bookings bookingDomain.BookingRepository
	logger   *zap.Logger
}

// NewReportService creates a new ReportService.
func NewReportService(bookings bookingDomain.BookingRepository, logger *zap.Logger) *ReportService {
	return &ReportService{bookings: bookings, logger: logger}
}

// snapshotPageSize bounds how many bookings one store round-trip loads.
const snapshotPageSize = 500

func (s *ReportService) snapshot(ctx context.Context) ([]*bookingDomain.Booking, error) {
	var all []*bookingDomain.Booking
	for page := 1; ; page++ {
		batch, total, err := s.bookings.ListAll(ctx, page, snapshotPageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to load booking snapshot: %w", err)
		}
		all = append(all, batch...)
		if len(batch) == 0 || int64(len(all)) >= total {
			return all, nil
		}
	}
}

// UserStats computes per-guest booking statistics across all bookings.
func (s *ReportService) UserStats(ctx context.Context) ([]UserBookingStats, error) {
	records, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	byUser := BookingsPerUser(records)
	stats := make([]UserBookingStats, 0, len(byUser))
	for _, st := range byUser {
		stats = append(stats, st)
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].UserID.String() < stats[j].UserID.String()
	})
	return stats, nil
}

// TopProperties returns up to limit properties ranked by booking count.
func (s *ReportService) TopProperties(ctx context.Context, limit int) ([]PropertyBookingCount, error) {
	records, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	ranked := RankPropertiesByBookings(records)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// PropertyMovingAverage computes the trailing price average for one
// property's bookings in start-date order.
func (s *ReportService) PropertyMovingAverage(ctx context.Context, propertyID uuid.UUID, window int) ([]float64, error) {
	var records []*bookingDomain.Booking
	for page := 1; ; page++ {
		batch, total, err := s.bookings.FindByPropertyID(ctx, propertyID, page, snapshotPageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to load property bookings: %w", err)
		}
		records = append(records, batch...)
		if len(batch) == 0 || int64(len(records)) >= total {
			break
		}
	}
	return MovingAverage(records, window), nil
}
