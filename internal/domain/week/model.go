package week

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"fineclub/internal/domain/attendance"
)

// DefaultTimezone is the club's wall-clock zone.
const DefaultTimezone = "Asia/Seoul"

// DateLayout is the calendar-day format used for week bounds and dedup keys.
const DateLayout = "2006-01-02"

// Domain errors
var (
	ErrInvalidID        = errors.New("weekId must look like YYYY-Www")
	ErrFinalized        = errors.New("week already finalized")
	ErrAlreadyFinalized = errors.New("week is already finalized")
	ErrDuplicateDay     = errors.New("already checked in today")
	ErrMemberRequired   = errors.New("memberId required")
)

var idPattern = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)

// Bounds identifies one Monday..Sunday week in a timezone.
type Bounds struct {
	ID        string
	Start     string // YYYY-MM-DD of Monday
	End       string // YYYY-MM-DD of Sunday
	StartTime time.Time
	EndTime   time.Time
}

// Current returns the week containing now, as observed in loc.
// PRE: loc is non-nil
// POST: StartTime is Monday 00:00 in loc, EndTime is the last instant of Sunday
// INVARIANT: ID uses the ISO week-year and week number of the Monday
func Current(now time.Time, loc *time.Location) Bounds {
	local := now.In(loc)
	offset := (int(local.Weekday()) + 6) % 7
	y, m, d := local.Date()
	return fromMonday(time.Date(y, m, d-offset, 0, 0, 0, 0, loc))
}

// BoundsOf computes the bounds of a specific week id.
// PRE: id is a well-formed week id
// POST: Returns ErrInvalidID for malformed ids or weeks that do not exist in that ISO year
func BoundsOf(id string, loc *time.Location) (Bounds, error) {
	year, wk, err := ParseID(id)
	if err != nil {
		return Bounds{}, err
	}
	// January 4th always falls in ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, loc)
	offset := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDate(0, 0, -offset+(wk-1)*7)
	return fromMonday(monday), nil
}

// ParseID splits a week id into its ISO year and week number.
// PRE: none
// POST: Returns ErrInvalidID unless 1 <= week <= weeks in year
func ParseID(id string) (int, int, error) {
	match := idPattern.FindStringSubmatch(id)
	if match == nil {
		return 0, 0, ErrInvalidID
	}
	year, _ := strconv.Atoi(match[1])
	wk, _ := strconv.Atoi(match[2])
	if wk < 1 || wk > weeksInYear(year) {
		return 0, 0, ErrInvalidID
	}
	return year, wk, nil
}

// FormatID renders an ISO year and week number as a week id.
func FormatID(year, wk int) string {
	return fmt.Sprintf("%04d-W%02d", year, wk)
}

// DayOf returns the calendar-day prefix of a stored check-in timestamp.
func DayOf(ts string) string {
	if len(ts) < len(DateLayout) {
		return ts
	}
	return ts[:len(DateLayout)]
}

func fromMonday(monday time.Time) Bounds {
	sunday := monday.AddDate(0, 0, 6)
	y, m, d := sunday.Date()
	end := time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), monday.Location())
	isoYear, isoWeek := monday.ISOWeek()
	return Bounds{
		ID:        FormatID(isoYear, isoWeek),
		Start:     monday.Format(DateLayout),
		End:       sunday.Format(DateLayout),
		StartTime: monday,
		EndTime:   end,
	}
}

// weeksInYear returns 52 or 53. December 28th is always in the last ISO week.
func weeksInYear(year int) int {
	_, wk := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return wk
}

// CheckIn is one recorded visit.
type CheckIn struct {
	MemberID string `json:"memberId"`
	Date     string `json:"date"` // RFC3339 in the club timezone

	// raw holds the stored form of a check-in written in an older shape.
	raw string
}

// UnmarshalJSON accepts the member id aliases and epoch-millisecond dates
// that older documents carry. Entries it cannot read decode to a CheckIn
// with an empty MemberID; they are kept verbatim and never counted.
func (c *CheckIn) UnmarshalJSON(data []byte) error {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		*c = CheckIn{raw: string(data)}
		return nil
	}
	id, idOK := obj["memberId"].(string)
	date, dateOK := obj["date"].(string)
	if idOK && id != "" && dateOK {
		*c = CheckIn{MemberID: id, Date: date}
		return nil
	}
	if !dateOK {
		date = attendance.EventDay(obj)
	}
	*c = CheckIn{MemberID: attendance.EventMemberID(obj), Date: date, raw: string(data)}
	return nil
}

// MarshalJSON writes older-shape check-ins back unchanged.
func (c CheckIn) MarshalJSON() ([]byte, error) {
	if c.raw != "" {
		return []byte(c.raw), nil
	}
	type plain CheckIn
	return json.Marshal(plain(c))
}

// Week holds the check-in log for one week.
type Week struct {
	WeekID    string    `json:"weekId"`
	Start     string    `json:"start"`
	End       string    `json:"end"`
	Checkins  []CheckIn `json:"checkins"`
	Finalized bool      `json:"finalized"`
}

// New creates an empty, open week for the given bounds.
func New(b Bounds) Week {
	return Week{
		WeekID:   b.ID,
		Start:    b.Start,
		End:      b.End,
		Checkins: []CheckIn{},
	}
}

// Validate checks if the Week has valid data.
// PRE: Week struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (w *Week) Validate() error {
	_, _, err := ParseID(w.WeekID)
	return err
}

// HasCheckedInOn reports whether memberID already has a check-in on day.
// INVARIANT: Checkins is not mutated
func (w *Week) HasCheckedInOn(memberID, day string) bool {
	for _, c := range w.Checkins {
		if c.MemberID == memberID && DayOf(c.Date) == day {
			return true
		}
	}
	return false
}

// AddCheckIn records a visit at the given instant.
// PRE: at is already expressed in the club timezone
// POST: One CheckIn appended, or an error and no change
// INVARIANT: A finalized week never gains check-ins; at most one check-in per member per day
func (w *Week) AddCheckIn(memberID string, at time.Time) (CheckIn, error) {
	if memberID == "" {
		return CheckIn{}, ErrMemberRequired
	}
	if w.Finalized {
		return CheckIn{}, ErrFinalized
	}
	if w.HasCheckedInOn(memberID, at.Format(DateLayout)) {
		return CheckIn{}, ErrDuplicateDay
	}
	c := CheckIn{MemberID: memberID, Date: at.Format(time.RFC3339)}
	w.Checkins = append(w.Checkins, c)
	return c, nil
}

// DistinctDays counts distinct visit days per member.
// Multiple check-ins on the same calendar day count once. Check-ins missing
// a member or a date are skipped.
func (w *Week) DistinctDays() map[string]int {
	seen := make(map[string]struct{}, len(w.Checkins))
	counts := make(map[string]int)
	for _, c := range w.Checkins {
		if c.MemberID == "" || c.Date == "" {
			continue
		}
		key := c.MemberID + "|" + DayOf(c.Date)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		counts[c.MemberID]++
	}
	return counts
}

// Finalize closes the week.
// PRE: Week is open
// POST: Finalized is true
// INVARIANT: Finalization is one-way
func (w *Week) Finalize() error {
	if w.Finalized {
		return ErrAlreadyFinalized
	}
	w.Finalized = true
	return nil
}
