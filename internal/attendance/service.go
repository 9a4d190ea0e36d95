package attendance

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
)

type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

type Service struct {
	store AttendanceStore
	id    IDGen
}

func NewService(conn *sql.DB) *Service {
	return &Service{store: NewStore(conn), id: ulidGen{}}
}

// NewServiceWith wires explicit collaborators (tests use fakes here).
func NewServiceWith(store AttendanceStore, id IDGen) *Service {
	return &Service{store: store, id: id}
}

// CreateOrGetSession is the idempotent create. The (componentID, date,
// startTime) tuple identifies a session: if one exists it comes back
// untouched (no re-population, no mutation), so a retried or double-clicked
// create is harmless. The racing case (two concurrent creates) resolves
// through the storage unique key: the loser re-reads and returns the winner's
// row instead of failing.
func (s *Service) CreateOrGetSession(ctx context.Context, teacherID int64, req CreateSessionRequest) (*SessionResponse, bool, error) {
	if _, err := time.ParseInLocation(DateLayout, req.Date, time.UTC); err != nil {
		return nil, false, ErrInvalid("date must be YYYY-MM-DD")
	}
	start, err := parseClock(req.StartTime)
	if err != nil {
		return nil, false, ErrInvalid("start_time must be HH:MM")
	}
	end, err := parseClock(req.EndTime)
	if err != nil {
		return nil, false, ErrInvalid("end_time must be HH:MM")
	}

	comp, err := s.authorizedComponent(ctx, teacherID, req.ComponentID)
	if err != nil {
		return nil, false, err
	}

	if existing, err := s.store.FindSession(ctx, comp.ID, req.Date, start); err != nil {
		return nil, false, err
	} else if existing != nil {
		resp, err := s.sessionResponse(ctx, existing)
		return resp, false, err
	}

	students, err := s.store.EligibleStudents(ctx, comp.ID)
	if err != nil {
		return nil, false, err
	}

	idStr, err := s.id.New()
	if err != nil {
		return nil, false, err
	}

	sess := &Session{
		SessionULID: idStr,
		ComponentID: comp.ID,
		Date:        req.Date,
		StartTime:   start,
		EndTime:     end,
		Topic:       req.Topic,
	}

	err = s.store.CreateSessionWithRecords(ctx, sess, students)
	if errors.Is(err, ErrDuplicateSession) {
		// lost the race; the other caller's session is the session
		existing, ferr := s.store.FindSession(ctx, comp.ID, req.Date, start)
		if ferr != nil {
			return nil, false, ferr
		}
		if existing == nil {
			return nil, false, ErrInternal("duplicate session reported but not found")
		}
		resp, rerr := s.sessionResponse(ctx, existing)
		return resp, false, rerr
	}
	if err != nil {
		return nil, false, err
	}

	return &SessionResponse{
		SessionULID: sess.SessionULID,
		ComponentID: sess.ComponentID,
		Date:        sess.Date,
		StartTime:   sess.StartTime,
		EndTime:     sess.EndTime,
		Topic:       sess.Topic,
		Students:    len(students),
	}, true, nil
}

// MarkAttendance applies the whole batch or nothing. Validation runs over
// every record before any write, so one malformed record leaves the session
// untouched.
func (s *Service) MarkAttendance(ctx context.Context, teacherID int64, sessionULID string, recs []MarkRecord) (MarkResponse, error) {
	if len(recs) == 0 {
		return MarkResponse{}, ErrInvalid("records must not be empty")
	}
	for i, r := range recs {
		if r.StudentID <= 0 {
			return MarkResponse{}, ErrInvalid(fmt.Sprintf("records[%d]: student_id is required", i))
		}
		if !r.Status.Valid() {
			return MarkResponse{}, ErrInvalid(fmt.Sprintf("records[%d]: unknown status %q", i, r.Status))
		}
	}

	sess, err := s.store.GetSessionByULID(ctx, sessionULID)
	if err != nil {
		return MarkResponse{}, err
	}
	if sess == nil {
		return MarkResponse{}, ErrNotFound("session not found")
	}
	if _, err := s.authorizedComponent(ctx, teacherID, sess.ComponentID); err != nil {
		return MarkResponse{}, err
	}

	if err := s.store.UpsertRecords(ctx, sess.ID, recs); err != nil {
		return MarkResponse{}, err
	}
	return MarkResponse{Updated: len(recs), Total: len(recs)}, nil
}

// UpdateRecord touches one row and nothing else.
func (s *Service) UpdateRecord(ctx context.Context, teacherID, recordID int64, req UpdateRecordRequest) (*RecordResponse, error) {
	if !req.Status.Valid() {
		return nil, ErrInvalid(fmt.Sprintf("unknown status %q", req.Status))
	}

	rec, err := s.store.GetRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound("record not found")
	}

	sess, err := s.store.GetSessionByID(ctx, rec.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrInternal("record has no session")
	}
	if _, err := s.authorizedComponent(ctx, teacherID, sess.ComponentID); err != nil {
		return nil, err
	}

	if err := s.store.UpdateRecord(ctx, recordID, req.Status, req.Remark); err != nil {
		return nil, err
	}
	return &RecordResponse{
		RecordID:    rec.ID,
		StudentID:   rec.StudentID,
		StudentName: rec.StudentName,
		Status:      req.Status,
		Remark:      req.Remark,
	}, nil
}

func (s *Service) SessionStats(ctx context.Context, sessionULID string) (*SessionStatsResponse, error) {
	sess, err := s.store.GetSessionByULID(ctx, sessionULID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotFound("session not found")
	}

	records, err := s.store.SessionRecords(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	return &SessionStatsResponse{
		SessionULID: sess.SessionULID,
		Date:        sess.Date,
		StartTime:   sess.StartTime,
		Stats:       Aggregate(records),
	}, nil
}

// ComponentSummary builds all three granularities from the same record set:
// per-session stats, per-student stats, and the overall mean of per-student
// percentages.
func (s *Service) ComponentSummary(ctx context.Context, componentID int64) (*ComponentSummaryResponse, error) {
	comp, err := s.store.GetComponent(ctx, componentID)
	if err != nil {
		return nil, err
	}
	if comp == nil {
		return nil, ErrNotFound("component not found")
	}

	sessions, records, err := s.store.ComponentSnapshot(ctx, componentID)
	if err != nil {
		return nil, err
	}

	bySession := make(map[int64][]Record)
	byStudent := make(map[int64][]Record)
	names := make(map[int64]string)
	for _, r := range records {
		bySession[r.SessionID] = append(bySession[r.SessionID], r)
		byStudent[r.StudentID] = append(byStudent[r.StudentID], r)
		names[r.StudentID] = r.StudentName
	}

	perSession := make([]SessionStatsResponse, 0, len(sessions))
	for _, sess := range sessions {
		perSession = append(perSession, SessionStatsResponse{
			SessionULID: sess.SessionULID,
			Date:        sess.Date,
			StartTime:   sess.StartTime,
			Stats:       Aggregate(bySession[sess.ID]),
		})
	}

	studentIDs := make([]int64, 0, len(byStudent))
	for id := range byStudent {
		studentIDs = append(studentIDs, id)
	}
	sort.Slice(studentIDs, func(i, j int) bool { return studentIDs[i] < studentIDs[j] })

	perStudent := make([]StudentSummary, 0, len(studentIDs))
	for _, id := range studentIDs {
		perStudent = append(perStudent, StudentSummary{
			StudentID:   id,
			StudentName: names[id],
			Stats:       Aggregate(byStudent[id]),
		})
	}

	return &ComponentSummaryResponse{
		ComponentID: componentID,
		Overall:     meanPercentage(perStudent),
		PerSession:  perSession,
		PerStudent:  perStudent,
	}, nil
}

// StudentCourseSummary aggregates one student's records across every
// component of a course. An existing student with no records is a valid
// zero; an unknown student or course is NOT_FOUND.
func (s *Service) StudentCourseSummary(ctx context.Context, studentID, courseID int64) (*StudentCourseSummaryResponse, error) {
	ok, err := s.store.StudentExists(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound(fmt.Sprintf("student %d not found", studentID))
	}
	ok, err = s.store.CourseExists(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound(fmt.Sprintf("course %d not found", courseID))
	}

	records, err := s.store.StudentCourseRecords(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	return &StudentCourseSummaryResponse{
		StudentID: studentID,
		CourseID:  courseID,
		Sessions:  len(records),
		Stats:     Aggregate(records),
	}, nil
}

// authorizedComponent loads the component and enforces ownership: only the
// effective teacher (component teacher, else the section-course main teacher)
// may act on its sessions and records.
func (s *Service) authorizedComponent(ctx context.Context, teacherID, componentID int64) (*Component, error) {
	comp, err := s.store.GetComponent(ctx, componentID)
	if err != nil {
		return nil, err
	}
	if comp == nil {
		return nil, ErrNotFound("component not found")
	}
	if comp.TeacherID != teacherID {
		return nil, ErrUnauthorized(fmt.Sprintf("teacher %d does not own component %d", teacherID, componentID))
	}
	return comp, nil
}

func (s *Service) sessionResponse(ctx context.Context, sess *Session) (*SessionResponse, error) {
	records, err := s.store.SessionRecords(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	return &SessionResponse{
		SessionULID: sess.SessionULID,
		ComponentID: sess.ComponentID,
		Date:        sess.Date,
		StartTime:   sess.StartTime,
		EndTime:     sess.EndTime,
		Topic:       sess.Topic,
		Students:    len(records),
	}, nil
}

// parseClock validates an HH:MM time-of-day and returns it zero-padded.
func parseClock(v string) (string, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		// seed/UI sometimes sends a single-digit hour
		t, err = time.Parse("3:04", v)
		if err != nil {
			return "", err
		}
	}
	return t.Format("15:04"), nil
}
