package domain

import (
	"fmt"
	"time"
)

// MaxBookingHorizon bounds how far in the future a stay may begin.
const MaxBookingHorizon = 2 * 365 * 24 * time.Hour

const nightLength = 24 * time.Hour

// DateRange is a half-open interval [Start, End) over which a room is claimed.
// Dates are whole calendar days for display but compared as instants.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals intersect.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Nights returns the number of whole nights covered by the range,
// rounding partial nights up.
func (r DateRange) Nights() int {
	d := r.End.Sub(r.Start)
	if d <= 0 {
		return 0
	}
	nights := int(d / nightLength)
	if d%nightLength != 0 {
		nights++
	}
	return nights
}

// Validate checks the range for a new hold: start strictly before end,
// check-in not in the past (day granularity) and within the booking horizon.
func (r DateRange) Validate(now time.Time) error {
	if !r.Start.Before(r.End) {
		return fmt.Errorf("%w: start date must be before end date", ErrValidation)
	}
	today := now.Truncate(nightLength)
	if r.Start.Before(today) {
		return fmt.Errorf("%w: start date must not be in the past", ErrValidation)
	}
	if r.Start.After(now.Add(MaxBookingHorizon)) {
		return fmt.Errorf("%w: start date is beyond the booking horizon", ErrValidation)
	}
	return nil
}
