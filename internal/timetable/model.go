package timetable

import "database/sql"

// Person mirrors the users row needed for role checks.
type Person struct {
	ID   int64
	Name string
	Role string
}

// ScheduleRow is one class_schedules row joined with its component, course and
// effective teacher. Start/end come back as the raw stored time-of-day string;
// the service canonicalizes them before anything compares times.
type ScheduleRow struct {
	ScheduleID    int64
	ComponentID   int64
	ComponentType string
	CourseCode    string
	CourseName    string
	Section       string
	Group         sql.NullString
	Room          sql.NullString
	Day           string
	StartTime     string
	EndTime       string
	TeacherID     int64
	TeacherName   string
}

func (r ScheduleRow) toEntry() (ClassEntry, error) {
	start, err := canonClock(r.StartTime)
	if err != nil {
		return ClassEntry{}, ErrInternal("bad start time on schedule: " + r.StartTime)
	}
	end, err := canonClock(r.EndTime)
	if err != nil {
		return ClassEntry{}, ErrInternal("bad end time on schedule: " + r.EndTime)
	}

	e := ClassEntry{
		ScheduleID:    r.ScheduleID,
		ComponentID:   r.ComponentID,
		ComponentType: r.ComponentType,
		CourseCode:    r.CourseCode,
		CourseName:    r.CourseName,
		Section:       r.Section,
		Day:           r.Day,
		StartTime:     start,
		EndTime:       end,
		TeacherID:     r.TeacherID,
		TeacherName:   r.TeacherName,
	}
	if r.Group.Valid {
		v := r.Group.String
		e.Group = &v
	}
	if r.Room.Valid {
		v := r.Room.String
		e.Room = &v
	}
	return e, nil
}
