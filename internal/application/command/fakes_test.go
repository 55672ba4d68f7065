package command

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/eduguard/eduguard-backend/internal/domain/academics"
	"github.com/eduguard/eduguard-backend/internal/domain/notification"
	"github.com/eduguard/eduguard-backend/internal/domain/risk"
	"github.com/eduguard/eduguard-backend/internal/domain/shared"
	"github.com/eduguard/eduguard-backend/internal/domain/student"
	"github.com/eduguard/eduguard-backend/pkg/schoolcal"
)

// In-memory doubles for the command handler tests. They implement the exact
// repository contracts, including the sentinel errors the handlers branch on.

type fakeStudentRepo struct {
	mu       sync.Mutex
	students map[string]*student.Student

	levelWrites int
	failGetByID map[string]error
}

func newFakeStudentRepo(students ...*student.Student) *fakeStudentRepo {
	r := &fakeStudentRepo{
		students:    make(map[string]*student.Student),
		failGetByID: make(map[string]error),
	}
	for _, st := range students {
		r.students[st.ID] = st
	}
	return r
}

func (r *fakeStudentRepo) Create(ctx context.Context, st *student.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.students[st.ID]; ok {
		return shared.ErrStudentAlreadyExists
	}
	r.students[st.ID] = st
	return nil
}

func (r *fakeStudentRepo) GetByID(ctx context.Context, id string) (*student.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failGetByID[id]; ok {
		return nil, err
	}
	st, ok := r.students[id]
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	return st, nil
}

func (r *fakeStudentRepo) Update(ctx context.Context, st *student.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.students[st.ID]; !ok {
		return shared.ErrStudentNotFound
	}
	r.students[st.ID] = st
	return nil
}

func (r *fakeStudentRepo) UpdateRiskLevel(ctx context.Context, st *student.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.students[st.ID]; !ok {
		return shared.ErrStudentNotFound
	}
	r.levelWrites++
	r.students[st.ID] = st
	return nil
}

func (r *fakeStudentRepo) GetBySchool(ctx context.Context, schoolID string, opts student.ListOptions) ([]*student.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*student.Student
	for _, st := range r.students {
		if st.SchoolID != schoolID {
			continue
		}
		if !opts.IncludeInactive && !st.IsEnrolled() {
			continue
		}
		all = append(all, st)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	if opts.Offset >= len(all) {
		return nil, nil
	}
	all = all[opts.Offset:]
	if opts.Limit > 0 && len(all) > opts.Limit {
		all = all[:opts.Limit]
	}
	return all, nil
}

func (r *fakeStudentRepo) CountBySchool(ctx context.Context, schoolID string) (int, error) {
	students, _ := r.GetBySchool(ctx, schoolID, student.ListOptions{Limit: 0})
	return len(students), nil
}

func (r *fakeStudentRepo) Deactivate(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.students[id]
	if !ok {
		return shared.ErrStudentNotFound
	}
	st.Deactivate(time.Now())
	return nil
}

type fakeFlagRepo struct {
	mu    sync.Mutex
	flags map[string]*risk.RiskFlag
}

func newFakeFlagRepo() *fakeFlagRepo {
	return &fakeFlagRepo{flags: make(map[string]*risk.RiskFlag)}
}

func (r *fakeFlagRepo) Create(ctx context.Context, flag *risk.RiskFlag) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flags[flag.ID] = flag
	return nil
}

func (r *fakeFlagRepo) Update(ctx context.Context, flag *risk.RiskFlag) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.flags[flag.ID]; !ok {
		return shared.ErrFlagNotFound
	}
	r.flags[flag.ID] = flag
	return nil
}

func (r *fakeFlagRepo) GetByID(ctx context.Context, id string) (*risk.RiskFlag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	flag, ok := r.flags[id]
	if !ok {
		return nil, shared.ErrFlagNotFound
	}
	return flag, nil
}

func (r *fakeFlagRepo) FindOpen(ctx context.Context, studentID string, t risk.RiskType) (*risk.RiskFlag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var oldest *risk.RiskFlag
	for _, f := range r.flags {
		if f.StudentID != studentID || f.Type != t || !f.IsOpen() {
			continue
		}
		if oldest == nil || f.CreatedAt.Before(oldest.CreatedAt) {
			oldest = f
		}
	}
	if oldest == nil {
		return nil, shared.ErrFlagNotFound
	}
	return oldest, nil
}

func (r *fakeFlagRepo) ListOpenByStudent(ctx context.Context, studentID string) ([]*risk.RiskFlag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*risk.RiskFlag
	for _, f := range r.flags {
		if f.StudentID == studentID && f.IsOpen() {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeFlagRepo) ListByStudent(ctx context.Context, studentID string, limit int) ([]*risk.RiskFlag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*risk.RiskFlag
	for _, f := range r.flags {
		if f.StudentID == studentID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeFlagRepo) ListOpenBySchool(ctx context.Context, schoolID string, limit int) ([]*risk.RiskFlag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*risk.RiskFlag
	for _, f := range r.flags {
		if f.SchoolID == schoolID && f.IsOpen() {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeFlagRepo) BulkResolve(ctx context.Context, f risk.OpenFlagFilter, res risk.Resolution) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, flag := range r.flags {
		if flag.StudentID != f.StudentID || !flag.IsOpen() {
			continue
		}
		if f.Type != "" && flag.Type != f.Type {
			continue
		}
		if f.ExcludeID != "" && flag.ID == f.ExcludeID {
			continue
		}
		if err := flag.Resolve(res.By, res.Notes, res.At); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (r *fakeFlagRepo) CountOpenBySchool(ctx context.Context, schoolID string) (map[risk.Severity]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[risk.Severity]int)
	for _, f := range r.flags {
		if f.SchoolID == schoolID && f.IsOpen() {
			counts[f.Severity]++
		}
	}
	return counts, nil
}

func (r *fakeFlagRepo) openCount(studentID string) int {
	open, _ := r.ListOpenByStudent(context.Background(), studentID)
	return len(open)
}

type fakeAttendanceRepo struct {
	records map[string][]*academics.AttendanceRecord
}

func newFakeAttendanceRepo() *fakeAttendanceRepo {
	return &fakeAttendanceRepo{records: make(map[string][]*academics.AttendanceRecord)}
}

func (r *fakeAttendanceRepo) Create(ctx context.Context, rec *academics.AttendanceRecord) error {
	for _, existing := range r.records[rec.StudentID] {
		if schoolcal.SameSchoolDay(existing.Date, rec.Date) {
			return shared.ErrAttendanceDuplicate
		}
	}
	r.records[rec.StudentID] = append(r.records[rec.StudentID], rec)
	return nil
}

func (r *fakeAttendanceRepo) Correct(ctx context.Context, id string, status academics.AttendanceStatus) error {
	for _, recs := range r.records {
		for _, rec := range recs {
			if rec.ID == id {
				return rec.Correct(status, time.Now())
			}
		}
	}
	return shared.ErrNotFound
}

func (r *fakeAttendanceRepo) GetByStudent(ctx context.Context, studentID string, dr academics.DateRange) ([]*academics.AttendanceRecord, error) {
	var out []*academics.AttendanceRecord
	for _, rec := range r.records[studentID] {
		if dr.Contains(rec.Date) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

type fakePerformanceRepo struct {
	records map[string][]*academics.PerformanceRecord
}

func newFakePerformanceRepo() *fakePerformanceRepo {
	return &fakePerformanceRepo{records: make(map[string][]*academics.PerformanceRecord)}
}

func (r *fakePerformanceRepo) Create(ctx context.Context, rec *academics.PerformanceRecord) error {
	r.records[rec.StudentID] = append(r.records[rec.StudentID], rec)
	return nil
}

func (r *fakePerformanceRepo) GetByStudent(ctx context.Context, studentID string, f academics.PerformanceFilter) ([]*academics.PerformanceRecord, error) {
	var out []*academics.PerformanceRecord
	for _, rec := range r.records[studentID] {
		if f.AcademicYear != "" && rec.AcademicYear != f.AcademicYear {
			continue
		}
		if f.Term != 0 && rec.Term != f.Term {
			continue
		}
		if f.Subject != "" && rec.Subject != f.Subject {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssessedAt.After(out[j].AssessedAt) })
	return out, nil
}

func (r *fakePerformanceRepo) LatestOverall(ctx context.Context, studentID, academicYear string, term schoolcal.Term) (*academics.PerformanceRecord, error) {
	var latest *academics.PerformanceRecord
	for _, rec := range r.records[studentID] {
		if !rec.IsOverall() || rec.AcademicYear != academicYear || rec.Term != term {
			continue
		}
		if latest == nil || rec.AssessedAt.After(latest.AssessedAt) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, shared.ErrPerformanceNotFound
	}
	return latest, nil
}

type fakeSettingsRepo struct {
	settings map[string]*risk.RiskRuleSettings
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{settings: make(map[string]*risk.RiskRuleSettings)}
}

func (r *fakeSettingsRepo) GetOrCreate(ctx context.Context, schoolID string) (*risk.RiskRuleSettings, error) {
	if s, ok := r.settings[schoolID]; ok {
		return s, nil
	}
	s := risk.DefaultSettings(schoolID, time.Now())
	r.settings[schoolID] = s
	return s, nil
}

func (r *fakeSettingsRepo) Update(ctx context.Context, s *risk.RiskRuleSettings) error {
	r.settings[s.SchoolID] = s
	return nil
}

type fakeAdminSink struct {
	mu     sync.Mutex
	alerts []notification.StudentRiskAlert
	err    error
}

func (s *fakeAdminSink) NotifyAdminOfStudentRisk(ctx context.Context, alert notification.StudentRiskAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.alerts = append(s.alerts, alert)
	return nil
}

func (s *fakeAdminSink) sent() []notification.StudentRiskAlert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notification.StudentRiskAlert(nil), s.alerts...)
}

func (s *fakeAdminSink) kinds() []notification.Type {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notification.Type, 0, len(s.alerts))
	for _, a := range s.alerts {
		out = append(out, a.Kind)
	}
	return out
}

type fakeGuardianSink struct {
	mu     sync.Mutex
	alerts []notification.StudentRiskAlert
	err    error
}

func (s *fakeGuardianSink) NotifyGuardiansOfRisk(ctx context.Context, alert notification.StudentRiskAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.alerts = append(s.alerts, alert)
	return nil
}

func (s *fakeGuardianSink) sent() []notification.StudentRiskAlert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notification.StudentRiskAlert(nil), s.alerts...)
}

type seqIDGen struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDGen) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *capturingPublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) published() []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]shared.Event(nil), p.events...)
}
