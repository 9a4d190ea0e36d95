package term

import "time"

// Term is an academic calendar period (semester). Seed data carries arbitrary
// years in start_date/end_date, so containment checks ignore the year.
type Term struct {
	ID        int64
	Name      string
	StartDate time.Time
	EndDate   time.Time
	CreatedAt time.Time
}
