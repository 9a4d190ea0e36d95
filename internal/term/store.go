package term

import (
	"context"
	"database/sql"
)

type TermStore interface {
	ListTerms(ctx context.Context) ([]Term, error)
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) TermStore {
	return &Store{db: db}
}

// ListTerms returns all terms ordered oldest-created first. The first row is
// the fallback when no term contains the requested date.
func (s *Store) ListTerms(ctx context.Context) ([]Term, error) {
	const q = `
	SELECT term_id, name, start_date, end_date, created_at
	FROM academic_terms
	ORDER BY created_at ASC, term_id ASC`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Term
	for rows.Next() {
		var t Term
		if err := rows.Scan(&t.ID, &t.Name, &t.StartDate, &t.EndDate, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
