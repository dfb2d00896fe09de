package conflict

import "time"

// Booking is the minimal view of a booking needed for overlap decisions.
type Booking struct {
	ID     string
	RoomID string
	Start  time.Time
	End    time.Time
}

// Conflict describes an overlapping booking relation that callers can present to users.
type Conflict struct {
	WithBookingID string
	RoomID        string
}

// Overlaps reports whether the half-open intervals [s1,e1) and [s2,e2)
// intersect. Intervals that merely touch do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// Contains reports whether instant t falls inside [start,end).
func Contains(start, end, t time.Time) bool {
	return !start.After(t) && t.Before(end)
}

// Detect identifies room conflicts for the candidate booking against existing
// ones. Only bookings on the candidate's room are considered; the candidate
// itself is skipped so re-checks during updates ignore the prior interval.
func Detect(existing []Booking, candidate Booking) []Conflict {
	var conflicts []Conflict
	for _, other := range existing {
		if other.ID == candidate.ID {
			continue
		}
		if other.RoomID != candidate.RoomID {
			continue
		}
		if !Overlaps(candidate.Start, candidate.End, other.Start, other.End) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			WithBookingID: other.ID,
			RoomID:        other.RoomID,
		})
	}
	return conflicts
}

// BlockedAt reports whether any booking on the given room covers the instant.
func BlockedAt(existing []Booking, roomID string, at time.Time) bool {
	for _, other := range existing {
		if other.RoomID != roomID {
			continue
		}
		if Contains(other.Start, other.End, at) {
			return true
		}
	}
	return false
}
