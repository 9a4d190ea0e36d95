package term

import (
	"context"
	"testing"
	"time"
)

type fakeStore struct{ terms []Term }

func (f *fakeStore) ListTerms(ctx context.Context) ([]Term, error) {
	return f.terms, nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestContains(t *testing.T) {
	tests := []struct {
		name  string
		start monthDay
		end   monthDay
		d     monthDay
		want  bool
	}{
		{name: "inside plain range", start: monthDay{time.February, 1}, end: monthDay{time.June, 30}, d: monthDay{time.April, 15}, want: true},
		{name: "before plain range", start: monthDay{time.February, 1}, end: monthDay{time.June, 30}, d: monthDay{time.January, 20}, want: false},
		{name: "after plain range", start: monthDay{time.February, 1}, end: monthDay{time.June, 30}, d: monthDay{time.July, 1}, want: false},
		{name: "range bounds inclusive start", start: monthDay{time.February, 1}, end: monthDay{time.June, 30}, d: monthDay{time.February, 1}, want: true},
		{name: "range bounds inclusive end", start: monthDay{time.February, 1}, end: monthDay{time.June, 30}, d: monthDay{time.June, 30}, want: true},
		{name: "wrap before new year", start: monthDay{time.September, 1}, end: monthDay{time.January, 15}, d: monthDay{time.November, 3}, want: true},
		{name: "wrap after new year", start: monthDay{time.September, 1}, end: monthDay{time.January, 15}, d: monthDay{time.January, 10}, want: true},
		{name: "wrap outside gap", start: monthDay{time.September, 1}, end: monthDay{time.January, 15}, d: monthDay{time.May, 1}, want: false},
		{name: "wrap end boundary", start: monthDay{time.September, 1}, end: monthDay{time.January, 15}, d: monthDay{time.January, 15}, want: true},
		{name: "wrap just past end", start: monthDay{time.September, 1}, end: monthDay{time.January, 15}, d: monthDay{time.January, 16}, want: false},
		{name: "single month never wraps", start: monthDay{time.March, 20}, end: monthDay{time.March, 5}, d: monthDay{time.December, 1}, want: false},
		{name: "single month inside", start: monthDay{time.March, 1}, end: monthDay{time.March, 31}, d: monthDay{time.March, 10}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := contains(tt.start, tt.end, tt.d); got != tt.want {
				t.Errorf("contains(%v, %v, %v) = %v, want %v", tt.start, tt.end, tt.d, got, tt.want)
			}
		})
	}
}

func TestResolverCurrent(t *testing.T) {
	spring := Term{
		ID:        1,
		Name:      "Spring 2024",
		StartDate: date(2024, time.February, 1),
		EndDate:   date(2024, time.June, 15),
		CreatedAt: date(2024, time.January, 1),
	}
	fall := Term{
		ID:        2,
		Name:      "Fall 2024",
		StartDate: date(2024, time.September, 1),
		EndDate:   date(2025, time.January, 15),
		CreatedAt: date(2024, time.January, 2),
	}
	r := NewResolverWithStore(&fakeStore{terms: []Term{spring, fall}})
	ctx := context.Background()

	t.Run("plain range match", func(t *testing.T) {
		got, err := r.Current(ctx, date(2026, time.March, 10))
		if err != nil {
			t.Fatalf("Current() error = %v", err)
		}
		if got.ID != spring.ID {
			t.Errorf("Current() = %q, want %q", got.Name, spring.Name)
		}
	})

	t.Run("wrap match in january of following year", func(t *testing.T) {
		got, err := r.Current(ctx, date(2027, time.January, 10))
		if err != nil {
			t.Fatalf("Current() error = %v", err)
		}
		if got.ID != fall.ID {
			t.Errorf("Current() = %q, want %q", got.Name, fall.Name)
		}
	})

	t.Run("wrap match ignores seed year", func(t *testing.T) {
		got, err := r.Current(ctx, date(1999, time.October, 2))
		if err != nil {
			t.Fatalf("Current() error = %v", err)
		}
		if got.ID != fall.ID {
			t.Errorf("Current() = %q, want %q", got.Name, fall.Name)
		}
	})

	t.Run("no match falls back to earliest created", func(t *testing.T) {
		got, err := r.Current(ctx, date(2026, time.July, 20))
		if err != nil {
			t.Fatalf("Current() error = %v", err)
		}
		if got.ID != spring.ID {
			t.Errorf("Current() fallback = %q, want %q", got.Name, spring.Name)
		}
	})

	t.Run("empty table errors", func(t *testing.T) {
		empty := NewResolverWithStore(&fakeStore{})
		if _, err := empty.Current(ctx, date(2026, time.March, 10)); err != ErrNoTerms {
			t.Errorf("Current() error = %v, want %v", err, ErrNoTerms)
		}
	})
}
