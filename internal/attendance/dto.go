package attendance

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"

	DateLayout = "2006-01-02"
)

type CreateSessionRequest struct {
	ComponentID int64   `json:"component_id" binding:"required"`
	Date        string  `json:"date" binding:"required"`       // YYYY-MM-DD
	StartTime   string  `json:"start_time" binding:"required"` // HH:MM
	EndTime     string  `json:"end_time" binding:"required"`   // HH:MM
	Topic       *string `json:"topic,omitempty"`
}

type SessionResponse struct {
	SessionULID string  `json:"session_ulid"`
	ComponentID int64   `json:"component_id"`
	Date        string  `json:"date"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	Topic       *string `json:"topic,omitempty"`
	Students    int     `json:"students"`
}

type MarkRecord struct {
	StudentID int64   `json:"student_id" binding:"required"`
	Status    Status  `json:"status" binding:"required"`
	Remark    *string `json:"remark,omitempty"`
}

type MarkRequest struct {
	Records []MarkRecord `json:"records" binding:"required"`
}

type MarkResponse struct {
	Updated int `json:"updated"`
	Total   int `json:"total"`
}

type UpdateRecordRequest struct {
	Status Status  `json:"status" binding:"required"`
	Remark *string `json:"remark,omitempty"`
}

type RecordResponse struct {
	RecordID    int64   `json:"record_id"`
	StudentID   int64   `json:"student_id"`
	StudentName string  `json:"student_name,omitempty"`
	Status      Status  `json:"status"`
	Remark      *string `json:"remark,omitempty"`
}

// Stats is one aggregation of records, at whatever granularity. Percentage is
// round2((present+late)/total*100), 0 for an empty set.
type Stats struct {
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Late       int     `json:"late"`
	Leave      int     `json:"leave"`
	Excused    int     `json:"excused"`
	Total      int     `json:"total"`
	Percentage float64 `json:"attendance_percentage"`
}

type SessionStatsResponse struct {
	SessionULID string `json:"session_ulid"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	Stats       Stats  `json:"stats"`
}

type StudentSummary struct {
	StudentID   int64  `json:"student_id"`
	StudentName string `json:"student_name,omitempty"`
	Stats       Stats  `json:"stats"`
}

type ComponentSummaryResponse struct {
	ComponentID int64                  `json:"component_id"`
	Overall     float64                `json:"overall_percentage"`
	PerSession  []SessionStatsResponse `json:"per_session"`
	PerStudent  []StudentSummary       `json:"per_student"`
}

type StudentCourseSummaryResponse struct {
	StudentID int64 `json:"student_id"`
	CourseID  int64 `json:"course_id"`
	Sessions  int   `json:"sessions"`
	Stats     Stats `json:"stats"`
}
