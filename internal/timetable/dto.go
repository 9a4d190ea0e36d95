package timetable

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"

	// teachers see a bounded "next up" list, students the whole day
	teacherUpcomingLimit = 3
)

// WeekDays is Monday-first, matching how the portal renders a week.
var WeekDays = []string{
	"MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY", "SUNDAY",
}

// ClassEntry is one scheduled class, time-of-day already canonical HH:MM.
type ClassEntry struct {
	ScheduleID    int64   `json:"schedule_id"`
	ComponentID   int64   `json:"component_id"`
	ComponentType string  `json:"component_type"`
	CourseCode    string  `json:"course_code"`
	CourseName    string  `json:"course_name"`
	Section       string  `json:"section"`
	Group         *string `json:"group,omitempty"`
	Room          *string `json:"room,omitempty"`
	Day           string  `json:"day"`
	StartTime     string  `json:"start_time"` // HH:MM
	EndTime       string  `json:"end_time"`   // HH:MM
	TeacherID     int64   `json:"teacher_id"`
	TeacherName   string  `json:"teacher_name"`
}

type DayResponse struct {
	Day     string       `json:"day"`
	Classes []ClassEntry `json:"classes"`
}

type WeekResponse struct {
	Week map[string][]ClassEntry `json:"week"`
}

type NowResponse struct {
	Current  *ClassEntry  `json:"current"`
	Upcoming []ClassEntry `json:"upcoming"`
}
