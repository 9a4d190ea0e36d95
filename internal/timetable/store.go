package timetable

import (
	"context"
	"database/sql"
	"errors"
)

// ScheduleStore is the read side of timetable resolution. The service owns
// merging and ordering; the store only returns raw candidate rows.
type ScheduleStore interface {
	GetPerson(ctx context.Context, id int64) (*Person, error)
	// MainTeacherSchedules: schedules of components whose section-course lists
	// the person as the main teacher.
	MainTeacherSchedules(ctx context.Context, teacherID int64, day string, termID int64) ([]ScheduleRow, error)
	// ComponentTeacherSchedules: schedules of components that name the person
	// as a component-specific teacher.
	ComponentTeacherSchedules(ctx context.Context, teacherID int64, day string, termID int64) ([]ScheduleRow, error)
	// StudentSchedules: schedules of the student's section for the current
	// term, restricted to components targeting the whole section or the
	// student's own group.
	StudentSchedules(ctx context.Context, studentID int64, day string, termID int64) ([]ScheduleRow, error)
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) ScheduleStore {
	return &Store{db: db}
}

func (s *Store) GetPerson(ctx context.Context, id int64) (*Person, error) {
	const q = `SELECT user_id, full_name, role FROM users WHERE user_id = ? LIMIT 1`
	var p Person
	err := s.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.Name, &p.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// scheduleSelect joins a schedule row up to its course, section, group and the
// effective teacher (component teacher, else the section-course main teacher).
const scheduleSelect = `
SELECT
	cs.schedule_id, cc.component_id, cc.component_type,
	c.code, c.name,
	sec.name, g.name, cs.room_number,
	cs.day_of_week, cs.start_time, cs.end_time,
	COALESCE(cc.teacher_id, sc.teacher_id) AS teacher_id, t.full_name
FROM class_schedules cs
JOIN course_components cc ON cc.component_id = cs.component_id
JOIN section_courses sc   ON sc.section_course_id = cc.section_course_id
JOIN courses c            ON c.course_id = sc.course_id
JOIN sections sec         ON sec.section_id = sc.section_id
LEFT JOIN student_groups g ON g.group_id = cc.group_id
JOIN users t              ON t.user_id = COALESCE(cc.teacher_id, sc.teacher_id)
`

func (s *Store) MainTeacherSchedules(ctx context.Context, teacherID int64, day string, termID int64) ([]ScheduleRow, error) {
	q := scheduleSelect + `
	WHERE sc.teacher_id = ? AND cs.day_of_week = ? AND sc.term_id = ?
	ORDER BY cs.start_time ASC, cs.schedule_id ASC`
	return s.querySchedules(ctx, q, teacherID, day, termID)
}

func (s *Store) ComponentTeacherSchedules(ctx context.Context, teacherID int64, day string, termID int64) ([]ScheduleRow, error) {
	q := scheduleSelect + `
	WHERE cc.teacher_id = ? AND cs.day_of_week = ? AND sc.term_id = ?
	ORDER BY cs.start_time ASC, cs.schedule_id ASC`
	return s.querySchedules(ctx, q, teacherID, day, termID)
}

func (s *Store) StudentSchedules(ctx context.Context, studentID int64, day string, termID int64) ([]ScheduleRow, error) {
	q := scheduleSelect + `
	JOIN users stu ON stu.user_id = ?
	WHERE sc.section_id = stu.section_id
	  AND cs.day_of_week = ? AND sc.term_id = ?
	  AND (cc.group_id IS NULL OR cc.group_id = stu.group_id)
	ORDER BY cs.start_time ASC, cs.schedule_id ASC`
	return s.querySchedules(ctx, q, studentID, day, termID)
}

func (s *Store) querySchedules(ctx context.Context, q string, args ...any) ([]ScheduleRow, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScheduleRow
	for rows.Next() {
		var r ScheduleRow
		if err := rows.Scan(
			&r.ScheduleID, &r.ComponentID, &r.ComponentType,
			&r.CourseCode, &r.CourseName,
			&r.Section, &r.Group, &r.Room,
			&r.Day, &r.StartTime, &r.EndTime,
			&r.TeacherID, &r.TeacherName,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
