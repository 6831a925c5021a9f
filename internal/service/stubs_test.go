package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/lab-assessment-api/internal/models"
)

type passthroughTx struct {
	calls int
}

func (p *passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}

type userRepoStub struct {
	mu        sync.Mutex
	byID      map[string]*models.User
	createErr error
	lastLogin map[string]time.Time
}

func newUserRepoStub() *userRepoStub {
	return &userRepoStub{byID: map[string]*models.User{}, lastLogin: map[string]time.Time{}}
}

func (s *userRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *userRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	cp := *user
	s.byID[user.ID] = &cp
	return nil
}

func (s *userRepoStub) UpdateEmail(ctx context.Context, id, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Email = email
	return nil
}

func (s *userRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLogin[id] = ts
	return nil
}

func (s *userRepoStub) UpdatePassword(ctx context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = hash
	return nil
}

func (s *userRepoStub) SetState(ctx context.Context, id string, state models.EntityState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.State = state
	return nil
}

type teacherRepoStub struct {
	byID      map[string]*models.Teacher
	createErr error
}

func newTeacherRepoStub() *teacherRepoStub {
	return &teacherRepoStub{byID: map[string]*models.Teacher{}}
}

func (s *teacherRepoStub) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	t, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (s *teacherRepoStub) FindByUserID(ctx context.Context, userID string) (*models.Teacher, error) {
	for _, t := range s.byID {
		if t.UserID == userID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *teacherRepoStub) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	var out []models.Teacher
	for _, t := range s.byID {
		if filter.State != "" && t.State != filter.State {
			continue
		}
		out = append(out, *t)
	}
	return out, len(out), nil
}

func (s *teacherRepoStub) ListOptions(ctx context.Context) ([]models.TeacherOption, error) {
	var out []models.TeacherOption
	for _, t := range s.byID {
		if t.State == models.StateActive {
			out = append(out, models.TeacherOption{ID: t.ID, Name: t.Name, Department: t.Department})
		}
	}
	return out, nil
}

func (s *teacherRepoStub) Create(ctx context.Context, teacher *models.Teacher) error {
	if s.createErr != nil {
		return s.createErr
	}
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	if teacher.State == "" {
		teacher.State = models.StateActive
	}
	cp := *teacher
	s.byID[teacher.ID] = &cp
	return nil
}

func (s *teacherRepoStub) Update(ctx context.Context, teacher *models.Teacher) error {
	if _, ok := s.byID[teacher.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *teacher
	s.byID[teacher.ID] = &cp
	return nil
}

func (s *teacherRepoStub) SetState(ctx context.Context, id string, state models.EntityState) error {
	t, ok := s.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	t.State = state
	return nil
}

type studentRepoStub struct {
	byID      map[string]*models.Student
	createErr error
}

func newStudentRepoStub() *studentRepoStub {
	return &studentRepoStub{byID: map[string]*models.Student{}}
}

func (s *studentRepoStub) add(student models.Student) *models.Student {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.State == "" {
		student.State = models.StateActive
	}
	s.byID[student.ID] = &student
	return &student
}

func (s *studentRepoStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	st, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *st
	return &cp, nil
}

func (s *studentRepoStub) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	for _, st := range s.byID {
		if st.UserID == userID {
			cp := *st
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *studentRepoStub) FindByRollNumber(ctx context.Context, roll string) (*models.Student, error) {
	for _, st := range s.byID {
		if st.RollNumber == roll && st.State == models.StateActive {
			cp := *st
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *studentRepoStub) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	var out []models.Student
	for _, st := range s.byID {
		out = append(out, *st)
	}
	return out, len(out), nil
}

func (s *studentRepoStub) Create(ctx context.Context, student *models.Student) error {
	if s.createErr != nil {
		return s.createErr
	}
	for _, st := range s.byID {
		if st.RollNumber == student.RollNumber && st.State == models.StateActive {
			return fmt.Errorf("create student: duplicate roll number")
		}
	}
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.State == "" {
		student.State = models.StateActive
	}
	cp := *student
	s.byID[student.ID] = &cp
	return nil
}

func (s *studentRepoStub) Update(ctx context.Context, student *models.Student) error {
	existing, ok := s.byID[student.ID]
	if !ok {
		return sql.ErrNoRows
	}
	cp := *student
	cp.AttendanceMarks = existing.AttendanceMarks
	s.byID[student.ID] = &cp
	return nil
}

func (s *studentRepoStub) UpdateAttendanceMarks(ctx context.Context, id string, marks float64) error {
	st, ok := s.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	st.AttendanceMarks = marks
	return nil
}

func (s *studentRepoStub) SetState(ctx context.Context, id string, state models.EntityState) error {
	st, ok := s.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	st.State = state
	return nil
}

type auditStub struct {
	entries []*models.AuditLog
	err     error
}

func (a *auditStub) Create(ctx context.Context, log *models.AuditLog) error {
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, log)
	return nil
}

func (a *auditStub) actions() []string {
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }
