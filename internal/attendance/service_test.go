package attendance

import (
	"context"
	"fmt"
	"testing"
)

type fakeStore struct {
	components map[int64]Component
	eligible   map[int64][]int64
	students   map[int64]struct{}
	courses    map[int64]struct{}

	sessions []*Session
	records  []Record

	nextSessionID int64
	nextRecordID  int64

	// hideSessionOnce makes the next FindSession miss, so the service takes
	// the create path and collides with the pre-seeded session (simulates a
	// concurrent create losing the race).
	hideSessionOnce bool
}

func (f *fakeStore) GetComponent(ctx context.Context, componentID int64) (*Component, error) {
	c, ok := f.components[componentID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeStore) EligibleStudents(ctx context.Context, componentID int64) ([]int64, error) {
	return f.eligible[componentID], nil
}

func (f *fakeStore) StudentExists(ctx context.Context, studentID int64) (bool, error) {
	_, ok := f.students[studentID]
	return ok, nil
}

func (f *fakeStore) CourseExists(ctx context.Context, courseID int64) (bool, error) {
	_, ok := f.courses[courseID]
	return ok, nil
}

func (f *fakeStore) FindSession(ctx context.Context, componentID int64, date, startTime string) (*Session, error) {
	if f.hideSessionOnce {
		f.hideSessionOnce = false
		return nil, nil
	}
	for _, s := range f.sessions {
		if s.ComponentID == componentID && s.Date == date && s.StartTime == startTime {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateSessionWithRecords(ctx context.Context, sess *Session, studentIDs []int64) error {
	// unique key (component_id, session_date, start_time)
	for _, s := range f.sessions {
		if s.ComponentID == sess.ComponentID && s.Date == sess.Date && s.StartTime == sess.StartTime {
			return ErrDuplicateSession
		}
	}
	f.nextSessionID++
	sess.ID = f.nextSessionID
	f.sessions = append(f.sessions, sess)
	for _, sid := range studentIDs {
		f.nextRecordID++
		f.records = append(f.records, Record{
			ID:        f.nextRecordID,
			SessionID: sess.ID,
			StudentID: sid,
			Status:    StatusAbsent,
		})
	}
	return nil
}

func (f *fakeStore) GetSessionByULID(ctx context.Context, ulid string) (*Session, error) {
	for _, s := range f.sessions {
		if s.SessionULID == ulid {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetSessionByID(ctx context.Context, id int64) (*Session, error) {
	for _, s := range f.sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SessionRecords(ctx context.Context, sessionID int64) ([]Record, error) {
	var out []Record
	for _, r := range f.records {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertRecords(ctx context.Context, sessionID int64, recs []MarkRecord) error {
	for _, m := range recs {
		found := false
		for i := range f.records {
			if f.records[i].SessionID == sessionID && f.records[i].StudentID == m.StudentID {
				f.records[i].Status = m.Status
				f.records[i].Remark = m.Remark
				found = true
				break
			}
		}
		if !found {
			f.nextRecordID++
			f.records = append(f.records, Record{
				ID:        f.nextRecordID,
				SessionID: sessionID,
				StudentID: m.StudentID,
				Status:    m.Status,
				Remark:    m.Remark,
			})
		}
	}
	return nil
}

func (f *fakeStore) GetRecord(ctx context.Context, recordID int64) (*Record, error) {
	for i := range f.records {
		if f.records[i].ID == recordID {
			return &f.records[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) UpdateRecord(ctx context.Context, recordID int64, status Status, remark *string) error {
	for i := range f.records {
		if f.records[i].ID == recordID {
			f.records[i].Status = status
			f.records[i].Remark = remark
		}
	}
	return nil
}

func (f *fakeStore) ComponentSnapshot(ctx context.Context, componentID int64) ([]Session, []Record, error) {
	var sessions []Session
	var records []Record
	for _, s := range f.sessions {
		if s.ComponentID != componentID {
			continue
		}
		sessions = append(sessions, *s)
		for _, r := range f.records {
			if r.SessionID == s.ID {
				records = append(records, r)
			}
		}
	}
	return sessions, records, nil
}

func (f *fakeStore) StudentCourseRecords(ctx context.Context, studentID, courseID int64) ([]Record, error) {
	var out []Record
	for _, s := range f.sessions {
		comp, ok := f.components[s.ComponentID]
		if !ok || comp.CourseID != courseID {
			continue
		}
		for _, r := range f.records {
			if r.SessionID == s.ID && r.StudentID == studentID {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

type seqIDGen struct{ n int }

func (g *seqIDGen) New() (string, error) {
	g.n++
	return fmt.Sprintf("SESSION%04d", g.n), nil
}

const ownerID = int64(7)

func newTestService() (*Service, *fakeStore) {
	store := &fakeStore{
		components: map[int64]Component{
			100: {ID: 100, CourseID: 1, SectionID: 1, TeacherID: ownerID},
		},
		eligible: map[int64][]int64{
			100: {21, 22, 23},
		},
		students: map[int64]struct{}{21: {}, 22: {}, 23: {}},
		courses:  map[int64]struct{}{1: {}, 2: {}},
	}
	return NewServiceWith(store, &seqIDGen{}), store
}

func validCreate() CreateSessionRequest {
	return CreateSessionRequest{
		ComponentID: 100,
		Date:        "2026-03-02",
		StartTime:   "09:00",
		EndTime:     "10:00",
	}
}

func TestCreateOrGetSessionIdempotent(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	first, created, err := svc.CreateOrGetSession(ctx, ownerID, validCreate())
	if err != nil {
		t.Fatalf("first create error = %v", err)
	}
	if !created {
		t.Fatal("first call: created = false, want true")
	}
	if first.Students != 3 {
		t.Errorf("first.Students = %d, want 3", first.Students)
	}

	second, created, err := svc.CreateOrGetSession(ctx, ownerID, validCreate())
	if err != nil {
		t.Fatalf("second create error = %v", err)
	}
	if created {
		t.Error("second call: created = true, want false")
	}
	if second.SessionULID != first.SessionULID {
		t.Errorf("session ulid changed: %s -> %s", first.SessionULID, second.SessionULID)
	}

	// exactly one record per eligible student, not two
	if len(store.records) != 3 {
		t.Errorf("records = %d, want 3", len(store.records))
	}
	for _, r := range store.records {
		if r.Status != StatusAbsent {
			t.Errorf("record %d status = %s, want ABSENT", r.ID, r.Status)
		}
	}
}

func TestCreateOrGetSessionLostRace(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	if _, _, err := svc.CreateOrGetSession(ctx, ownerID, validCreate()); err != nil {
		t.Fatalf("seed create error = %v", err)
	}

	// next lookup misses, so the service tries to insert and hits the
	// unique key; it must come back with the existing session, no error
	store.hideSessionOnce = true
	res, created, err := svc.CreateOrGetSession(ctx, ownerID, validCreate())
	if err != nil {
		t.Fatalf("racing create error = %v", err)
	}
	if created {
		t.Error("racing create: created = true, want false")
	}
	if res.SessionULID != store.sessions[0].SessionULID {
		t.Errorf("racing create returned %s, want %s", res.SessionULID, store.sessions[0].SessionULID)
	}
	if len(store.sessions) != 1 {
		t.Errorf("sessions = %d, want 1", len(store.sessions))
	}
}

func TestCreateOrGetSessionErrors(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name     string
		teacher  int64
		mutate   func(*CreateSessionRequest)
		wantCode Code
	}{
		{name: "unknown component", teacher: ownerID, mutate: func(r *CreateSessionRequest) { r.ComponentID = 999 }, wantCode: CodeNotFound},
		{name: "not the owner", teacher: 8, mutate: func(r *CreateSessionRequest) {}, wantCode: CodeUnauthorized},
		{name: "bad date", teacher: ownerID, mutate: func(r *CreateSessionRequest) { r.Date = "02-03-2026" }, wantCode: CodeInvalidArgument},
		{name: "bad start time", teacher: ownerID, mutate: func(r *CreateSessionRequest) { r.StartTime = "quarter past" }, wantCode: CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreate()
			tt.mutate(&req)
			_, _, err := svc.CreateOrGetSession(ctx, tt.teacher, req)
			api, ok := err.(*APIError)
			if !ok {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if api.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", api.Code, tt.wantCode)
			}
		})
	}
}

func TestMarkAttendanceAllOrNothing(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	res, _, err := svc.CreateOrGetSession(ctx, ownerID, validCreate())
	if err != nil {
		t.Fatalf("create error = %v", err)
	}

	batch := []MarkRecord{
		{StudentID: 21, Status: StatusPresent},
		{StudentID: 22, Status: StatusLate},
		{StudentID: 0, Status: StatusPresent}, // malformed: missing student id
	}
	_, err = svc.MarkAttendance(ctx, ownerID, res.SessionULID, batch)
	api, ok := err.(*APIError)
	if !ok || api.Code != CodeInvalidArgument {
		t.Fatalf("error = %v, want INVALID_ARGUMENT", err)
	}

	// nothing may have been applied
	for _, r := range store.records {
		if r.Status != StatusAbsent {
			t.Errorf("record for student %d mutated to %s despite failed batch", r.StudentID, r.Status)
		}
	}
}

func TestMarkAttendance(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	res, _, err := svc.CreateOrGetSession(ctx, ownerID, validCreate())
	if err != nil {
		t.Fatalf("create error = %v", err)
	}

	remark := "medical"
	out, err := svc.MarkAttendance(ctx, ownerID, res.SessionULID, []MarkRecord{
		{StudentID: 21, Status: StatusPresent},
		{StudentID: 22, Status: StatusLate},
		{StudentID: 23, Status: StatusExcused, Remark: &remark},
	})
	if err != nil {
		t.Fatalf("MarkAttendance() error = %v", err)
	}
	if out.Updated != 3 || out.Total != 3 {
		t.Errorf("MarkAttendance() = %+v, want 3/3", out)
	}

	t.Run("unknown session", func(t *testing.T) {
		_, err := svc.MarkAttendance(ctx, ownerID, "NOPE", []MarkRecord{{StudentID: 21, Status: StatusPresent}})
		api, ok := err.(*APIError)
		if !ok || api.Code != CodeNotFound {
			t.Errorf("error = %v, want NOT_FOUND", err)
		}
	})

	t.Run("foreign teacher rejected", func(t *testing.T) {
		_, err := svc.MarkAttendance(ctx, 8, res.SessionULID, []MarkRecord{{StudentID: 21, Status: StatusPresent}})
		api, ok := err.(*APIError)
		if !ok || api.Code != CodeUnauthorized {
			t.Errorf("error = %v, want UNAUTHORIZED", err)
		}
	})

	t.Run("session stats reflect the marks", func(t *testing.T) {
		stats, err := svc.SessionStats(ctx, res.SessionULID)
		if err != nil {
			t.Fatalf("SessionStats() error = %v", err)
		}
		want := Stats{Present: 1, Late: 1, Excused: 1, Total: 3, Percentage: 66.67}
		if stats.Stats != want {
			t.Errorf("SessionStats() = %+v, want %+v", stats.Stats, want)
		}
	})
}

func TestUpdateRecord(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	if _, _, err := svc.CreateOrGetSession(ctx, ownerID, validCreate()); err != nil {
		t.Fatalf("create error = %v", err)
	}

	rec := store.records[0]
	out, err := svc.UpdateRecord(ctx, ownerID, rec.ID, UpdateRecordRequest{Status: StatusLate})
	if err != nil {
		t.Fatalf("UpdateRecord() error = %v", err)
	}
	if out.Status != StatusLate {
		t.Errorf("status = %s, want LATE", out.Status)
	}

	// only that one row changed
	for _, r := range store.records[1:] {
		if r.Status != StatusAbsent {
			t.Errorf("record %d mutated by single-row update", r.ID)
		}
	}

	t.Run("unknown record", func(t *testing.T) {
		_, err := svc.UpdateRecord(ctx, ownerID, 9999, UpdateRecordRequest{Status: StatusLate})
		api, ok := err.(*APIError)
		if !ok || api.Code != CodeNotFound {
			t.Errorf("error = %v, want NOT_FOUND", err)
		}
	})

	t.Run("bad status", func(t *testing.T) {
		_, err := svc.UpdateRecord(ctx, ownerID, rec.ID, UpdateRecordRequest{Status: "SLEEPING"})
		api, ok := err.(*APIError)
		if !ok || api.Code != CodeInvalidArgument {
			t.Errorf("error = %v, want INVALID_ARGUMENT", err)
		}
	})
}

func TestComponentSummaryAverageOfAverages(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	// session 1: all three marked
	s1, _, err := svc.CreateOrGetSession(ctx, ownerID, validCreate())
	if err != nil {
		t.Fatalf("create s1 error = %v", err)
	}
	if _, err := svc.MarkAttendance(ctx, ownerID, s1.SessionULID, []MarkRecord{
		{StudentID: 21, Status: StatusPresent},
		{StudentID: 22, Status: StatusPresent},
		{StudentID: 23, Status: StatusAbsent},
	}); err != nil {
		t.Fatalf("mark s1 error = %v", err)
	}

	// session 2: one present, rest stay absent
	req2 := validCreate()
	req2.Date = "2026-03-09"
	s2, _, err := svc.CreateOrGetSession(ctx, ownerID, req2)
	if err != nil {
		t.Fatalf("create s2 error = %v", err)
	}
	if _, err := svc.MarkAttendance(ctx, ownerID, s2.SessionULID, []MarkRecord{
		{StudentID: 21, Status: StatusPresent},
	}); err != nil {
		t.Fatalf("mark s2 error = %v", err)
	}

	sum, err := svc.ComponentSummary(ctx, 100)
	if err != nil {
		t.Fatalf("ComponentSummary() error = %v", err)
	}

	if len(sum.PerSession) != 2 {
		t.Fatalf("per_session len = %d, want 2", len(sum.PerSession))
	}
	if len(sum.PerStudent) != 3 {
		t.Fatalf("per_student len = %d, want 3", len(sum.PerStudent))
	}

	// 21: 2/2 = 100, 22: 1/2 = 50, 23: 0/2 = 0 → mean 50
	if sum.Overall != 50 {
		t.Errorf("overall = %v, want 50 (mean of per-student percentages)", sum.Overall)
	}

	t.Run("unknown component", func(t *testing.T) {
		_, err := svc.ComponentSummary(ctx, 999)
		api, ok := err.(*APIError)
		if !ok || api.Code != CodeNotFound {
			t.Errorf("error = %v, want NOT_FOUND", err)
		}
	})
}

func TestStudentCourseSummary(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	s1, _, err := svc.CreateOrGetSession(ctx, ownerID, validCreate())
	if err != nil {
		t.Fatalf("create error = %v", err)
	}
	if _, err := svc.MarkAttendance(ctx, ownerID, s1.SessionULID, []MarkRecord{
		{StudentID: 21, Status: StatusLate},
	}); err != nil {
		t.Fatalf("mark error = %v", err)
	}

	sum, err := svc.StudentCourseSummary(ctx, 21, 1)
	if err != nil {
		t.Fatalf("StudentCourseSummary() error = %v", err)
	}
	if sum.Sessions != 1 || sum.Stats.Percentage != 100 {
		t.Errorf("summary = %+v, want 1 session at 100%%", sum)
	}

	t.Run("existing student with no records is a valid zero", func(t *testing.T) {
		sum, err := svc.StudentCourseSummary(ctx, 21, 2)
		if err != nil {
			t.Fatalf("StudentCourseSummary() error = %v", err)
		}
		if sum.Sessions != 0 || sum.Stats.Total != 0 || sum.Stats.Percentage != 0 {
			t.Errorf("summary = %+v, want zeros", sum)
		}
	})

	t.Run("unknown student", func(t *testing.T) {
		_, err := svc.StudentCourseSummary(ctx, 424242, 1)
		api, ok := err.(*APIError)
		if !ok || api.Code != CodeNotFound {
			t.Errorf("error = %v, want NOT_FOUND", err)
		}
	})

	t.Run("unknown course", func(t *testing.T) {
		_, err := svc.StudentCourseSummary(ctx, 21, 42)
		api, ok := err.(*APIError)
		if !ok || api.Code != CodeNotFound {
			t.Errorf("error = %v, want NOT_FOUND", err)
		}
	})
}
