package attendance

import (
	"encoding/json"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"fineclub/internal/domain/member"
)

// Record is a decoded weekly attendance document of unknown shape.
type Record map[string]any

// Recognized keys, in lookup order.
var (
	eventArrayKeys     = []string{"records", "entries", "checkins", "logs"}
	memberIDKeys       = []string{"memberId", "memberID", "id", "userId", "userID", "uid"}
	timestampKeys      = []string{"date", "checkedAt", "createdAt", "created_at", "timestamp", "ts", "time", "at"}
	memberDateMapKeys  = []string{"perMemberDates", "perMemberDays", "memberDates"}
	dateMemberMapKeys  = []string{"byDate"}
	countMapKeys       = []string{"perMemberCount", "counts"}
	perMemberCountKeys = []string{"perMember"}
)

var datePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// MemberAttendance is the reconciled attendance of one member.
type MemberAttendance struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Count         int      `json:"count"`
	LastCheckedAt *string  `json:"lastCheckedAt"`
	Dates         []string `json:"dates"`
}

// Evidence collects what the extractors found, keyed by member id.
type Evidence struct {
	Dates    map[string]map[string]struct{}
	Counters map[string]int
}

func newEvidence() Evidence {
	return Evidence{
		Dates:    make(map[string]map[string]struct{}),
		Counters: make(map[string]int),
	}
}

func (e Evidence) addDate(memberID, day string) {
	if memberID == "" || day == "" {
		return
	}
	set, ok := e.Dates[memberID]
	if !ok {
		set = make(map[string]struct{})
		e.Dates[memberID] = set
	}
	set[day] = struct{}{}
}

// addCount keeps the largest counter seen for a member.
func (e Evidence) addCount(memberID string, n int) {
	if memberID == "" || n <= 0 {
		return
	}
	if n > e.Counters[memberID] {
		e.Counters[memberID] = n
	}
}

func (e Evidence) merge(other Evidence) {
	for id, days := range other.Dates {
		for d := range days {
			e.addDate(id, d)
		}
	}
	for id, n := range other.Counters {
		e.addCount(id, n)
	}
}

// extractor reads one recognized shape. Extractors are total: unknown or
// malformed data yields empty evidence, never a panic or error.
type extractor func(Record) Evidence

var extractors = []extractor{
	extractEventArrays,
	extractMemberDateMaps,
	extractDateMemberMaps,
	extractCounters,
}

// Extract runs every extractor against rec and merges their evidence.
// INVARIANT: rec is not mutated
func Extract(rec Record) Evidence {
	ev := newEvidence()
	for _, fn := range extractors {
		ev.merge(fn(rec))
	}
	return ev
}

// Normalize reconciles rec into one row per roster member, in roster order.
// PRE: members is the roster to report on (usually the active members)
// POST: Count is the number of unique dates when any date evidence exists,
// otherwise the largest numeric counter; LastCheckedAt is nil without dates
func Normalize(rec Record, members []member.Member) []MemberAttendance {
	ev := Extract(rec)
	out := make([]MemberAttendance, 0, len(members))
	for _, m := range members {
		row := MemberAttendance{
			ID:    m.ID,
			Name:  m.DisplayName(),
			Dates: sortedDays(ev.Dates[m.ID]),
		}
		if len(row.Dates) > 0 {
			row.Count = len(row.Dates)
			last := row.Dates[len(row.Dates)-1]
			row.LastCheckedAt = &last
		} else {
			row.Count = ev.Counters[m.ID]
		}
		out = append(out, row)
	}
	return out
}

// CheckedIn counts rows with at least one visit.
func CheckedIn(rows []MemberAttendance) int {
	n := 0
	for _, r := range rows {
		if r.Count > 0 {
			n++
		}
	}
	return n
}

// extractEventArrays reads arrays of check-in-like objects. Events without a
// usable timestamp still count toward a per-member dateless counter.
func extractEventArrays(rec Record) Evidence {
	ev := newEvidence()
	dateless := make(map[string]int)
	for _, key := range eventArrayKeys {
		items, ok := rec[key].([]any)
		if !ok {
			continue
		}
		for _, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			id := EventMemberID(obj)
			if id == "" {
				continue
			}
			if day := EventDay(obj); day != "" {
				ev.addDate(id, day)
			} else {
				dateless[id]++
			}
		}
	}
	for id, n := range dateless {
		ev.addCount(id, n)
	}
	return ev
}

// extractMemberDateMaps reads {memberId: [dates]} or {memberId: {date: flag}}.
func extractMemberDateMaps(rec Record) Evidence {
	ev := newEvidence()
	for _, key := range memberDateMapKeys {
		obj, ok := rec[key].(map[string]any)
		if !ok {
			continue
		}
		for id, v := range obj {
			switch dates := v.(type) {
			case []any:
				for _, d := range dates {
					ev.addDate(id, toDay(d))
				}
			case map[string]any:
				for d, flag := range dates {
					if truthy(flag) {
						ev.addDate(id, toDay(d))
					}
				}
			}
		}
	}
	return ev
}

// extractDateMemberMaps reads {date: [memberIds]} or {date: {memberId: flag}}.
func extractDateMemberMaps(rec Record) Evidence {
	ev := newEvidence()
	for _, key := range dateMemberMapKeys {
		obj, ok := rec[key].(map[string]any)
		if !ok {
			continue
		}
		for k, v := range obj {
			day := toDay(k)
			if day == "" {
				continue
			}
			switch ids := v.(type) {
			case []any:
				for _, id := range ids {
					ev.addDate(toID(id), day)
				}
			case map[string]any:
				for id, flag := range ids {
					if truthy(flag) {
						ev.addDate(id, day)
					}
				}
			}
		}
	}
	return ev
}

// extractCounters reads flat {memberId: number} maps. Only the first present
// of perMemberCount/counts is consulted; perMember is always consulted.
func extractCounters(rec Record) Evidence {
	ev := newEvidence()
	readCounts := func(obj map[string]any) {
		for id, v := range obj {
			if n, ok := toCount(v); ok {
				ev.addCount(id, n)
			}
		}
	}
	for _, key := range countMapKeys {
		if obj, ok := rec[key].(map[string]any); ok {
			readCounts(obj)
			break
		}
	}
	for _, key := range perMemberCountKeys {
		if obj, ok := rec[key].(map[string]any); ok {
			readCounts(obj)
		}
	}
	return ev
}

// EventMemberID returns the member id of a check-in-like object, trying the
// known id aliases in order.
func EventMemberID(obj map[string]any) string {
	for _, key := range memberIDKeys {
		if id := toID(obj[key]); id != "" {
			return id
		}
	}
	return ""
}

// EventDay returns the visit day of a check-in-like object, or "".
func EventDay(obj map[string]any) string {
	for _, key := range timestampKeys {
		if day := toDay(obj[key]); day != "" {
			return day
		}
	}
	return ""
}

// toDay extracts a YYYY-MM-DD day from an epoch-millisecond number or a
// date-like string. Anything else yields "".
func toDay(v any) string {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return ""
		}
		if m := datePattern.FindString(s); m != "" {
			return m
		}
		if len(s) >= 10 && s[4] == '-' && s[7] == '-' {
			return s[:10]
		}
	case float64:
		return dayFromMillis(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return dayFromMillis(f)
		}
	case int:
		return dayFromMillis(float64(t))
	case int64:
		return dayFromMillis(float64(t))
	}
	return ""
}

func dayFromMillis(ms float64) string {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || math.Abs(ms) > 8.64e15 {
		return ""
	}
	return time.UnixMilli(int64(ms)).UTC().Format("2006-01-02")
}

func toID(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == 0 || math.IsNaN(t) || math.IsInf(t, 0) {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	}
	return ""
}

func toCount(v any) (int, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case int:
		f = float64(t)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0 && !math.IsNaN(t)
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	}
	return true
}

func sortedDays(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
