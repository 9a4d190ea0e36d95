package attendance

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"CATS-backend/internal/platform/db"
)

// ErrDuplicateSession is the store's translation of a unique-key violation on
// (component_id, session_date, start_time). The service treats it as "someone
// else created it first" and re-reads.
var ErrDuplicateSession = errors.New("session already exists for component/date/start")

type AttendanceStore interface {
	GetComponent(ctx context.Context, componentID int64) (*Component, error)
	EligibleStudents(ctx context.Context, componentID int64) ([]int64, error)
	StudentExists(ctx context.Context, studentID int64) (bool, error)
	CourseExists(ctx context.Context, courseID int64) (bool, error)
	FindSession(ctx context.Context, componentID int64, date, startTime string) (*Session, error)
	CreateSessionWithRecords(ctx context.Context, s *Session, studentIDs []int64) error
	GetSessionByULID(ctx context.Context, ulid string) (*Session, error)
	GetSessionByID(ctx context.Context, id int64) (*Session, error)
	SessionRecords(ctx context.Context, sessionID int64) ([]Record, error)
	UpsertRecords(ctx context.Context, sessionID int64, recs []MarkRecord) error
	GetRecord(ctx context.Context, recordID int64) (*Record, error)
	UpdateRecord(ctx context.Context, recordID int64, status Status, remark *string) error
	ComponentSnapshot(ctx context.Context, componentID int64) ([]Session, []Record, error)
	StudentCourseRecords(ctx context.Context, studentID, courseID int64) ([]Record, error)
}

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) AttendanceStore {
	return &Store{db: conn}
}

func (s *Store) GetComponent(ctx context.Context, componentID int64) (*Component, error) {
	const q = `
	SELECT cc.component_id, sc.course_id, sc.section_id, cc.group_id,
	       COALESCE(cc.teacher_id, sc.teacher_id) AS teacher_id
	FROM course_components cc
	JOIN section_courses sc ON sc.section_course_id = cc.section_course_id
	WHERE cc.component_id = ?`

	var c Component
	var groupID sql.NullInt64
	err := s.db.QueryRowContext(ctx, q, componentID).Scan(
		&c.ID, &c.CourseID, &c.SectionID, &groupID, &c.TeacherID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if groupID.Valid {
		v := groupID.Int64
		c.GroupID = &v
	}
	return &c, nil
}

// EligibleStudents: every student in the component's section whose group
// matches the component's group, or everyone when the component targets the
// whole section (group_id NULL).
func (s *Store) EligibleStudents(ctx context.Context, componentID int64) ([]int64, error) {
	const q = `
	SELECT u.user_id
	FROM users u
	JOIN course_components cc ON cc.component_id = ?
	JOIN section_courses sc   ON sc.section_course_id = cc.section_course_id
	WHERE u.role = 'student'
	  AND u.section_id = sc.section_id
	  AND (cc.group_id IS NULL OR u.group_id = cc.group_id)
	ORDER BY u.user_id ASC`

	rows, err := s.db.QueryContext(ctx, q, componentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) StudentExists(ctx context.Context, studentID int64) (bool, error) {
	const q = `SELECT 1 FROM users WHERE user_id = ? AND role = 'student' LIMIT 1`
	return s.exists(ctx, q, studentID)
}

func (s *Store) CourseExists(ctx context.Context, courseID int64) (bool, error) {
	const q = `SELECT 1 FROM courses WHERE course_id = ? LIMIT 1`
	return s.exists(ctx, q, courseID)
}

func (s *Store) exists(ctx context.Context, q string, args ...any) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, q, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

const sessionSelect = `
	SELECT session_id, session_ulid, component_id,
	       DATE_FORMAT(session_date, '%Y-%m-%d'),
	       TIME_FORMAT(start_time, '%H:%i'),
	       TIME_FORMAT(end_time, '%H:%i'),
	       topic
	FROM attendance_sessions`

func (s *Store) FindSession(ctx context.Context, componentID int64, date, startTime string) (*Session, error) {
	q := sessionSelect + `
	WHERE component_id = ? AND session_date = ? AND start_time = ?
	LIMIT 1`
	return s.scanSession(s.db.QueryRowContext(ctx, q, componentID, date, startTime))
}

func (s *Store) GetSessionByULID(ctx context.Context, ulid string) (*Session, error) {
	q := sessionSelect + ` WHERE session_ulid = ? LIMIT 1`
	return s.scanSession(s.db.QueryRowContext(ctx, q, ulid))
}

func (s *Store) GetSessionByID(ctx context.Context, id int64) (*Session, error) {
	q := sessionSelect + ` WHERE session_id = ? LIMIT 1`
	return s.scanSession(s.db.QueryRowContext(ctx, q, id))
}

func (s *Store) scanSession(row *sql.Row) (*Session, error) {
	var sess Session
	var topic sql.NullString
	err := row.Scan(
		&sess.ID, &sess.SessionULID, &sess.ComponentID,
		&sess.Date, &sess.StartTime, &sess.EndTime, &topic,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if topic.Valid {
		v := topic.String
		sess.Topic = &v
	}
	return &sess, nil
}

// CreateSessionWithRecords inserts the session and one ABSENT record per
// eligible student in a single transaction. The UNIQUE key on
// (component_id, session_date, start_time) is the linearization point for
// concurrent creates; a 1062 surfaces as ErrDuplicateSession.
func (s *Store) CreateSessionWithRecords(ctx context.Context, sess *Session, studentIDs []int64) error {
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		const q = `
		INSERT INTO attendance_sessions
		(session_ulid, component_id, session_date, start_time, end_time, topic, created_at)
		VALUES (?, ?, ?, ?, ?, ?, NOW(6))`

		res, err := tx.ExecContext(ctx, q,
			sess.SessionULID, sess.ComponentID, sess.Date, sess.StartTime, sess.EndTime,
			strPtrOrNil(sess.Topic),
		)
		if err != nil {
			return err
		}
		id, _ := res.LastInsertId()
		sess.ID = id

		if len(studentIDs) == 0 {
			return nil
		}

		var sb strings.Builder
		sb.WriteString(`INSERT INTO attendance_records (session_id, student_id, status) VALUES `)
		args := make([]any, 0, len(studentIDs)*3)
		for i, sid := range studentIDs {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?, ?)")
			args = append(args, id, sid, string(StatusAbsent))
		}
		_, err = tx.ExecContext(ctx, sb.String(), args...)
		return err
	})
	if isDuplicateKey(err) {
		return ErrDuplicateSession
	}
	return err
}

// UpsertRecords applies the whole batch in one transaction, keyed by the
// UNIQUE (session_id, student_id) pair. Any failure rolls everything back.
func (s *Store) UpsertRecords(ctx context.Context, sessionID int64, recs []MarkRecord) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		const q = `
		INSERT INTO attendance_records (session_id, student_id, status, remark)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
		status = VALUES(status),
		remark = VALUES(remark)`

		for _, r := range recs {
			if _, err := tx.ExecContext(ctx, q, sessionID, r.StudentID, string(r.Status), strPtrOrNil(r.Remark)); err != nil {
				return err
			}
		}
		return nil
	})
}

const recordSelect = `
	SELECT r.record_id, r.session_id, r.student_id, u.full_name, r.status, r.remark
	FROM attendance_records r
	JOIN users u ON u.user_id = r.student_id`

func (s *Store) SessionRecords(ctx context.Context, sessionID int64) ([]Record, error) {
	q := recordSelect + `
	WHERE r.session_id = ?
	ORDER BY r.student_id ASC`
	return queryRecords(ctx, s.db, q, sessionID)
}

func (s *Store) GetRecord(ctx context.Context, recordID int64) (*Record, error) {
	q := recordSelect + ` WHERE r.record_id = ? LIMIT 1`
	var r Record
	var remark sql.NullString
	err := s.db.QueryRowContext(ctx, q, recordID).Scan(
		&r.ID, &r.SessionID, &r.StudentID, &r.StudentName, &r.Status, &remark,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if remark.Valid {
		v := remark.String
		r.Remark = &v
	}
	return &r, nil
}

func (s *Store) UpdateRecord(ctx context.Context, recordID int64, status Status, remark *string) error {
	// RowsAffected is 0 when the row already holds the same values, so the
	// existence check lives in the service, not here
	const q = `UPDATE attendance_records SET status = ?, remark = ? WHERE record_id = ?`
	_, err := s.db.ExecContext(ctx, q, string(status), strPtrOrNil(remark), recordID)
	return err
}

// ComponentSnapshot reads a component's sessions and records in one
// read-only transaction, so the per-session and per-student views of a
// summary agree even while marking is in flight.
func (s *Store) ComponentSnapshot(ctx context.Context, componentID int64) ([]Session, []Record, error) {
	var (
		sessions []Session
		records  []Record
	)
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		var err error
		sessions, err = queryComponentSessions(ctx, tx, componentID)
		if err != nil {
			return err
		}
		q := recordSelect + `
		JOIN attendance_sessions se ON se.session_id = r.session_id
		WHERE se.component_id = ?
		ORDER BY r.student_id ASC, r.session_id ASC`
		records, err = queryRecords(ctx, tx, q, componentID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return sessions, records, nil
}

func queryComponentSessions(ctx context.Context, conn db.DBTX, componentID int64) ([]Session, error) {
	q := sessionSelect + `
	WHERE component_id = ?
	ORDER BY session_date ASC, start_time ASC, session_id ASC`

	rows, err := conn.QueryContext(ctx, q, componentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var topic sql.NullString
		if err := rows.Scan(
			&sess.ID, &sess.SessionULID, &sess.ComponentID,
			&sess.Date, &sess.StartTime, &sess.EndTime, &topic,
		); err != nil {
			return nil, err
		}
		if topic.Valid {
			v := topic.String
			sess.Topic = &v
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *Store) StudentCourseRecords(ctx context.Context, studentID, courseID int64) ([]Record, error) {
	q := recordSelect + `
	JOIN attendance_sessions se ON se.session_id = r.session_id
	JOIN course_components cc   ON cc.component_id = se.component_id
	JOIN section_courses sc     ON sc.section_course_id = cc.section_course_id
	WHERE r.student_id = ? AND sc.course_id = ?
	ORDER BY r.session_id ASC`
	return queryRecords(ctx, s.db, q, studentID, courseID)
}

func queryRecords(ctx context.Context, conn db.DBTX, q string, args ...any) ([]Record, error) {
	rows, err := conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var remark sql.NullString
		if err := rows.Scan(&r.ID, &r.SessionID, &r.StudentID, &r.StudentName, &r.Status, &remark); err != nil {
			return nil, err
		}
		if remark.Valid {
			v := remark.String
			r.Remark = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ===== helpers =====

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

func strPtrOrNil(p *string) any {
	if p == nil || *p == "" {
		return nil
	}
	return *p
}
