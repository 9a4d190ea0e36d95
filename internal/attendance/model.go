package attendance

// Status is one student's state within a session. LEAVE and EXCUSED count
// toward the total but not toward attendance; LATE counts as attending.
type Status string

const (
	StatusPresent Status = "PRESENT"
	StatusAbsent  Status = "ABSENT"
	StatusLate    Status = "LATE"
	StatusLeave   Status = "LEAVE"
	StatusExcused Status = "EXCUSED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusLeave, StatusExcused:
		return true
	}
	return false
}

// Session is one concrete occurrence of a component. The storage layer holds
// a unique key on (component_id, session_date, start_time); that key is what
// makes CreateOrGetSession idempotent.
type Session struct {
	ID          int64
	SessionULID string
	ComponentID int64
	Date        string // YYYY-MM-DD
	StartTime   string // HH:MM
	EndTime     string // HH:MM
	Topic       *string
}

// Record is one student's attendance inside a session, unique per
// (session_id, student_id).
type Record struct {
	ID          int64
	SessionID   int64
	StudentID   int64
	StudentName string
	Status      Status
	Remark      *string
}

// Component carries the ownership and eligibility facts the service needs
// before touching a session. TeacherID is already the effective teacher
// (component-specific teacher, else the section-course main teacher).
type Component struct {
	ID        int64
	CourseID  int64
	SectionID int64
	GroupID   *int64
	TeacherID int64
}
