package booking

import (
	"fmt"
	"time"

	"github.com/homestay-labs/service-availability/internal/domain"
)

// DateRange is a half-open date interval [Start, End): the start date is
// inclusive, the end date (checkout) is exclusive. Two ranges sharing only a
// boundary day do not overlap.
type DateRange struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
}

// NewDateRange builds a DateRange from two dates. Both are truncated to UTC
// midnight; start must be strictly before end.
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: TruncateToDate(start), End: TruncateToDate(end)}
	if !r.Start.Before(r.End) {
		return DateRange{}, domain.NewInvalidRangeError(
			fmt.Sprintf("start date %s must be before end date %s",
				r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly)))
	}
	return r, nil
}

// TruncateToDate drops the time-of-day component, keeping a UTC midnight
// instant for the calendar date.
func TruncateToDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Overlaps reports whether the two half-open ranges intersect.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Nights returns the number of nights covered by the range.
func (r DateRange) Nights() int {
	return int(r.End.Sub(r.Start).Hours() / 24)
}

// String renders the range as "[2024-03-01, 2024-03-05)".
func (r DateRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly))
}
