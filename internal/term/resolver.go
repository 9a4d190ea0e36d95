package term

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrNoTerms means the academic_terms table is empty. Any other lookup miss
// falls back to the earliest-created term instead of erroring, so incompletely
// seeded calendars still resolve.
var ErrNoTerms = errors.New("no academic terms")

type Resolver struct {
	store TermStore
}

func NewResolver(db *sql.DB) *Resolver {
	return &Resolver{store: NewStore(db)}
}

func NewResolverWithStore(store TermStore) *Resolver {
	return &Resolver{store: store}
}

// Current returns the term whose month/day range contains date. Seed years are
// ignored; a range whose start month is after its end month wraps across New
// Year. No match falls back to the earliest-created term.
func (r *Resolver) Current(ctx context.Context, date time.Time) (Term, error) {
	terms, err := r.store.ListTerms(ctx)
	if err != nil {
		return Term{}, err
	}
	if len(terms) == 0 {
		return Term{}, ErrNoTerms
	}

	d := monthDayOf(date)
	for _, t := range terms {
		if contains(monthDayOf(t.StartDate), monthDayOf(t.EndDate), d) {
			return t, nil
		}
	}

	// best effort: ListTerms orders by created_at
	return terms[0], nil
}

type monthDay struct {
	m time.Month
	d int
}

func monthDayOf(t time.Time) monthDay {
	return monthDay{m: t.Month(), d: t.Day()}
}

func before(a, b monthDay) bool {
	if a.m != b.m {
		return a.m < b.m
	}
	return a.d < b.d
}

// contains reports whether d lies in [start, end] comparing month/day only.
// start.m > end.m means the range wraps across New Year; a range within a
// single month never wraps, whatever the day values.
func contains(start, end, d monthDay) bool {
	if start.m > end.m {
		return !before(d, start) || !before(end, d)
	}
	return !before(d, start) && !before(end, d)
}
