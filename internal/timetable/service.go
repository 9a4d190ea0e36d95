package timetable

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"CATS-backend/internal/term"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

type TermResolver interface {
	Current(ctx context.Context, date time.Time) (term.Term, error)
}

type Service struct {
	store ScheduleStore
	terms TermResolver
	clock Clock
}

func NewService(db *sql.DB, terms *term.Resolver) *Service {
	return &Service{
		store: NewStore(db),
		terms: terms,
		clock: realClock{},
	}
}

// NewServiceWith wires explicit collaborators (tests use fakes here).
func NewServiceWith(store ScheduleStore, terms TermResolver, clock Clock) *Service {
	return &Service{store: store, terms: terms, clock: clock}
}

// ResolveDay returns the person's classes for one weekday, ordered by start
// time. Unknown person or a role that does not match fails loudly so callers
// can tell "no classes today" from "bad input".
func (s *Service) ResolveDay(ctx context.Context, personID int64, role, day string) ([]ClassEntry, error) {
	day, err := NormalizeDay(day)
	if err != nil {
		return nil, err
	}

	p, err := s.store.GetPerson(ctx, personID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound(fmt.Sprintf("person %d not found", personID))
	}
	if p.Role != role {
		return nil, ErrRoleMismatch(fmt.Sprintf("person %d is not a %s", personID, role))
	}

	cur, err := s.terms.Current(ctx, s.clock.Now())
	if err != nil {
		if err == term.ErrNoTerms {
			return nil, ErrNotFound("no academic term configured")
		}
		return nil, err
	}

	var rows []ScheduleRow
	switch role {
	case RoleTeacher:
		rows, err = s.teacherRows(ctx, personID, day, cur.ID)
	case RoleStudent:
		rows, err = s.store.StudentSchedules(ctx, personID, day, cur.ID)
	default:
		return nil, ErrInvalid("role must be student or teacher")
	}
	if err != nil {
		return nil, err
	}

	entries := make([]ClassEntry, 0, len(rows))
	for _, r := range rows {
		e, err := r.toEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	// canonical HH:MM sorts the same as minutes; stable keeps input order on ties
	sort.SliceStable(entries, func(i, j int) bool {
		return minutesOf(entries[i].StartTime) < minutesOf(entries[j].StartTime)
	})
	return entries, nil
}

// teacherRows merges the two ownership sources. All main-teacher rows are
// kept; component-teacher rows join only when their component is not already
// covered. Dedupe is by component id, not schedule id: a two-period lab has
// two rows for one component and both must survive.
func (s *Service) teacherRows(ctx context.Context, teacherID int64, day string, termID int64) ([]ScheduleRow, error) {
	main, err := s.store.MainTeacherSchedules(ctx, teacherID, day, termID)
	if err != nil {
		return nil, err
	}
	extra, err := s.store.ComponentTeacherSchedules(ctx, teacherID, day, termID)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(main))
	for _, r := range main {
		seen[r.ComponentID] = struct{}{}
	}

	out := main
	for _, r := range extra {
		if _, ok := seen[r.ComponentID]; ok {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Week resolves all seven days independently; no state is shared across days.
func (s *Service) Week(ctx context.Context, personID int64, role string) (map[string][]ClassEntry, error) {
	week := make(map[string][]ClassEntry, len(WeekDays))
	for _, day := range WeekDays {
		entries, err := s.ResolveDay(ctx, personID, role, day)
		if err != nil {
			return nil, err
		}
		week[day] = entries
	}
	return week, nil
}

// CurrentAndUpcoming classifies today's classes against the injected clock.
// Comparison is minutes-since-midnight; the calendar date of "now" never
// participates.
func (s *Service) CurrentAndUpcoming(ctx context.Context, personID int64, role string) (NowResponse, error) {
	now := s.clock.Now()
	entries, err := s.ResolveDay(ctx, personID, role, dayName(now.Weekday()))
	if err != nil {
		return NowResponse{}, err
	}

	limit := 0
	if role == RoleTeacher {
		limit = teacherUpcomingLimit
	}

	current, upcoming := classify(entries, now.Hour()*60+now.Minute(), limit)
	return NowResponse{Current: current, Upcoming: upcoming}, nil
}

// classify walks entries already sorted by start time. Current is the first
// entry with start <= now < end (half-open: a class ending exactly now is
// over). Upcoming keeps start > now, capped at limit when limit > 0.
func classify(entries []ClassEntry, nowMinutes, limit int) (*ClassEntry, []ClassEntry) {
	var current *ClassEntry
	upcoming := []ClassEntry{}
	for i := range entries {
		start := minutesOf(entries[i].StartTime)
		end := minutesOf(entries[i].EndTime)
		if current == nil && start <= nowMinutes && nowMinutes < end {
			current = &entries[i]
			continue
		}
		if start > nowMinutes {
			upcoming = append(upcoming, entries[i])
		}
	}
	if limit > 0 && len(upcoming) > limit {
		upcoming = upcoming[:limit]
	}
	return current, upcoming
}

// ===== time-of-day helpers =====

// canonClock reduces a stored time-of-day to canonical "HH:MM". It accepts
// "HH:MM", "HH:MM:SS" and full timestamps; everything but hour and minute is
// dropped, so a timezone suffix in seed data cannot reorder a day.
func canonClock(v string) (string, error) {
	t := strings.TrimSpace(v)
	if i := strings.IndexAny(t, "T "); i >= 0 {
		t = t[i+1:]
	}
	parts := strings.Split(t, ":")
	if len(parts) < 2 {
		return "", fmt.Errorf("not a time of day: %q", v)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return "", fmt.Errorf("bad hour in %q", v)
	}
	mm := parts[1]
	if len(mm) > 2 {
		mm = mm[:2]
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return "", fmt.Errorf("bad minute in %q", v)
	}
	return fmt.Sprintf("%02d:%02d", h, m), nil
}

// minutesOf assumes canonical HH:MM input.
func minutesOf(hhmm string) int {
	h, _ := strconv.Atoi(hhmm[:2])
	m, _ := strconv.Atoi(hhmm[3:])
	return h*60 + m
}

var dayNames = map[time.Weekday]string{
	time.Monday:    "MONDAY",
	time.Tuesday:   "TUESDAY",
	time.Wednesday: "WEDNESDAY",
	time.Thursday:  "THURSDAY",
	time.Friday:    "FRIDAY",
	time.Saturday:  "SATURDAY",
	time.Sunday:    "SUNDAY",
}

func dayName(w time.Weekday) string {
	return dayNames[w]
}

// NormalizeDay uppercases and validates a day-of-week parameter.
func NormalizeDay(day string) (string, error) {
	d := strings.ToUpper(strings.TrimSpace(day))
	for _, w := range WeekDays {
		if d == w {
			return d, nil
		}
	}
	return "", ErrInvalid("day must be one of MONDAY..SUNDAY")
}
