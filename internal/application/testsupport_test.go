package application

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/homestay-labs/service-availability/internal/domain"
	"github.com/homestay-labs/service-availability/internal/domain/booking"
	"github.com/homestay-labs/service-availability/internal/domain/property"
	"github.com/homestay-labs/service-availability/internal/interval"
	"github.com/homestay-labs/service-availability/internal/kafka"
)

// testNow is the fixed clock for service tests; booking dates in the tests
// live in March 2024, safely in this "today"'s future.
var testNow = time.Date(2024, 2, 15, 10, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func domainNotFound(resource, id string) error {
	return domain.NewNotFoundError(resource, id)
}

// memBookingRepo is an in-memory BookingRepository for unit tests.
type memBookingRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*booking.Booking

	// saveErr, when set, fails the next Save call. saveHook, when set,
	// runs at the start of every Save, outside the repo lock; tests use
	// it to hold an admission inside its critical section.
	saveErr  error
	saveHook func()
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: make(map[uuid.UUID]*booking.Booking)}
}

func (r *memBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bk, ok := r.bookings[id]
	if !ok {
		return nil, domainNotFound("booking", id.String())
	}
	return bk, nil
}

func (r *memBookingRepo) FindByNumber(_ context.Context, number string) (*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, bk := range r.bookings {
		if bk.BookingNumber() == number {
			return bk, nil
		}
	}
	return nil, domainNotFound("booking", number)
}

func (r *memBookingRepo) FindByGuestID(_ context.Context, guestID uuid.UUID, page, limit int) ([]*booking.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*booking.Booking
	for _, bk := range r.bookings {
		if bk.GuestID() == guestID {
			out = append(out, bk)
		}
	}
	sortByStart(out)
	return paginate(out, page, limit), int64(len(out)), nil
}

func (r *memBookingRepo) FindByPropertyID(_ context.Context, propertyID uuid.UUID, page, limit int) ([]*booking.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*booking.Booking
	for _, bk := range r.bookings {
		if bk.PropertyID() == propertyID {
			out = append(out, bk)
		}
	}
	sortByStart(out)
	return paginate(out, page, limit), int64(len(out)), nil
}

func (r *memBookingRepo) FindByDateRange(_ context.Context, start, end time.Time) ([]*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*booking.Booking
	for _, bk := range r.bookings {
		if bk.Dates().Start.Before(end) && start.Before(bk.Dates().End) {
			out = append(out, bk)
		}
	}
	sortByStart(out)
	return out, nil
}

func (r *memBookingRepo) ListActive(_ context.Context) ([]*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*booking.Booking
	for _, bk := range r.bookings {
		if bk.IsActive() {
			out = append(out, bk)
		}
	}
	sortByStart(out)
	return out, nil
}

func (r *memBookingRepo) ListAll(_ context.Context, page, limit int) ([]*booking.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*booking.Booking, 0, len(r.bookings))
	for _, bk := range r.bookings {
		out = append(out, bk)
	}
	sortByStart(out)
	return paginate(out, page, limit), int64(len(out)), nil
}

func (r *memBookingRepo) CountByStatus(_ context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int64)
	for _, bk := range r.bookings {
		counts[string(bk.Status())]++
	}
	return counts, nil
}

func (r *memBookingRepo) Save(_ context.Context, bk *booking.Booking) error {
	if r.saveHook != nil {
		r.saveHook()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		err := r.saveErr
		r.saveErr = nil
		return err
	}
	r.bookings[bk.ID()] = bk
	return nil
}

func (r *memBookingRepo) Update(_ context.Context, bk *booking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[bk.ID()]; !ok {
		return domainNotFound("booking", bk.ID().String())
	}
	r.bookings[bk.ID()] = bk
	return nil
}

func sortByStart(bks []*booking.Booking) {
	sort.Slice(bks, func(i, j int) bool {
		if bks[i].Dates().Start.Equal(bks[j].Dates().Start) {
			return bks[i].ID().String() < bks[j].ID().String()
		}
		return bks[i].Dates().Start.Before(bks[j].Dates().Start)
	})
}

func paginate(bks []*booking.Booking, page, limit int) []*booking.Booking {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = len(bks)
	}
	from := (page - 1) * limit
	if from >= len(bks) {
		return nil
	}
	to := from + limit
	if to > len(bks) {
		to = len(bks)
	}
	return bks[from:to]
}

// memPropertyRepo is an in-memory PropertyRepository for unit tests.
type memPropertyRepo struct {
	mu         sync.Mutex
	properties map[uuid.UUID]*property.Property
}

func newMemPropertyRepo() *memPropertyRepo {
	return &memPropertyRepo{properties: make(map[uuid.UUID]*property.Property)}
}

func (r *memPropertyRepo) FindByID(_ context.Context, id uuid.UUID) (*property.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.properties[id]
	if !ok {
		return nil, domainNotFound("property", id.String())
	}
	return p, nil
}

func (r *memPropertyRepo) FindByHostID(_ context.Context, hostID uuid.UUID) ([]*property.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*property.Property
	for _, p := range r.properties {
		if p.HostID() == hostID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPropertyRepo) ListAll(_ context.Context, page, limit int) ([]*property.Property, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*property.Property, 0, len(r.properties))
	for _, p := range r.properties {
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (r *memPropertyRepo) Save(_ context.Context, p *property.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.properties[p.ID()] = p
	return nil
}

func (r *memPropertyRepo) Update(_ context.Context, p *property.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.properties[p.ID()]; !ok {
		return domainNotFound("property", p.ID().String())
	}
	r.properties[p.ID()] = p
	return nil
}

// capturingPublisher records every published event for assertions.
type capturingPublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

type capturedEvent struct {
	Topic string
	Key   string
	Event kafka.CloudEvent
}

func (p *capturingPublisher) PublishEvent(_ context.Context, topic, key string, event kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, capturedEvent{Topic: topic, Key: key, Event: event})
	return nil
}

func (p *capturingPublisher) byType(eventType string) []capturedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []capturedEvent
	for _, e := range p.events {
		if e.Event.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// testEnv bundles a wired BookingService with its fakes.
type testEnv struct {
	svc        *BookingService
	bookings   *memBookingRepo
	properties *memPropertyRepo
	index      *interval.Index
	published  *capturingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		bookings:   newMemBookingRepo(),
		properties: newMemPropertyRepo(),
		index:      interval.New(0),
		published:  &capturingPublisher{},
	}
	env.svc = NewBookingService(env.bookings, env.properties, env.index, env.published, zap.NewNop(), fixedClock)
	return env
}

// addProperty registers a listing at $100.00/night and returns it.
func (env *testEnv) addProperty(t *testing.T, hostID uuid.UUID) *property.Property {
	t.Helper()
	p, err := property.NewProperty(hostID, "Seaside Cabin", "Lombok", 10000, "USD")
	require.NoError(t, err)
	require.NoError(t, env.properties.Save(context.Background(), p))
	return p
}

func (env *testEnv) request(propertyID uuid.UUID, start, end string, price int64) CreateBookingRequest {
	req := env.requestQuote(propertyID, start, end)
	req.TotalPrice = &price
	return req
}

// requestQuote builds a request with no price, leaving it to be quoted from
// the property's nightly rate.
func (env *testEnv) requestQuote(propertyID uuid.UUID, start, end string) CreateBookingRequest {
	s, _ := time.Parse(time.DateOnly, start)
	e, _ := time.Parse(time.DateOnly, end)
	return CreateBookingRequest{
		PropertyID: propertyID,
		StartDate:  s,
		EndDate:    e,
	}
}
