package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-assessment-api/internal/models"
	appErrors "github.com/noah-isme/lab-assessment-api/pkg/errors"
)

type batchRepoStub struct {
	byID    map[string]*models.Batch
	members map[string]map[string]struct{}
}

func newBatchRepoStub() *batchRepoStub {
	return &batchRepoStub{byID: map[string]*models.Batch{}, members: map[string]map[string]struct{}{}}
}

func (s *batchRepoStub) FindByID(ctx context.Context, id string) (*models.BatchDetail, error) {
	b, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.BatchDetail{Batch: *b, StudentCount: len(s.members[id])}, nil
}

func (s *batchRepoStub) List(ctx context.Context, filter models.BatchFilter) ([]models.BatchDetail, int, error) {
	var out []models.BatchDetail
	for id := range s.byID {
		d, _ := s.FindByID(ctx, id)
		out = append(out, *d)
	}
	return out, len(out), nil
}

func (s *batchRepoStub) Create(ctx context.Context, batch *models.Batch) error {
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	if batch.State == "" {
		batch.State = models.StateActive
	}
	cp := *batch
	s.byID[batch.ID] = &cp
	return nil
}

func (s *batchRepoStub) Update(ctx context.Context, batch *models.Batch) error {
	if _, ok := s.byID[batch.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *batch
	s.byID[batch.ID] = &cp
	return nil
}

func (s *batchRepoStub) SetState(ctx context.Context, id string, state models.EntityState) error {
	b, ok := s.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	b.State = state
	return nil
}

func (s *batchRepoStub) AddStudents(ctx context.Context, batchID string, ids []string) (int, error) {
	if s.members[batchID] == nil {
		s.members[batchID] = map[string]struct{}{}
	}
	added := 0
	for _, id := range ids {
		if _, ok := s.members[batchID][id]; !ok {
			s.members[batchID][id] = struct{}{}
			added++
		}
	}
	return added, nil
}

func (s *batchRepoStub) RemoveStudent(ctx context.Context, batchID, studentID string) error {
	if _, ok := s.members[batchID][studentID]; !ok {
		return sql.ErrNoRows
	}
	delete(s.members[batchID], studentID)
	return nil
}

func (s *batchRepoStub) MemberIDs(ctx context.Context, batchID string) (map[string]struct{}, error) {
	out := map[string]struct{}{}
	for id := range s.members[batchID] {
		out[id] = struct{}{}
	}
	return out, nil
}

type allocationRepoStub struct {
	byID      map[string]*models.Allocation
	createErr error
	updateErr error
	existsErr error
}

func newAllocationRepoStub() *allocationRepoStub {
	return &allocationRepoStub{byID: map[string]*models.Allocation{}}
}

func (s *allocationRepoStub) Exists(ctx context.Context, key models.AllocationKey, excludeID string) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	for id, a := range s.byID {
		if id != excludeID && a.Key() == key {
			return true, nil
		}
	}
	return false, nil
}

func (s *allocationRepoStub) FindByID(ctx context.Context, id string) (*models.Allocation, error) {
	a, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (s *allocationRepoStub) Create(ctx context.Context, a *models.Allocation) error {
	if s.createErr != nil {
		return s.createErr
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.IsActive = true
	cp := *a
	s.byID[a.ID] = &cp
	return nil
}

func (s *allocationRepoStub) Update(ctx context.Context, a *models.Allocation) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.byID[a.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *a
	s.byID[a.ID] = &cp
	return nil
}

func (s *allocationRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.byID[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.byID, id)
	return nil
}

func (s *allocationRepoStub) List(ctx context.Context, filter models.AllocationFilter) ([]models.AllocationDetail, error) {
	var out []models.AllocationDetail
	for _, a := range s.byID {
		if filter.BatchID != "" && a.BatchID != filter.BatchID {
			continue
		}
		out = append(out, models.AllocationDetail{Allocation: *a})
	}
	return out, nil
}

type batchFixture struct {
	svc         *BatchService
	batches     *batchRepoStub
	teachers    *teacherRepoStub
	allocations *allocationRepoStub
	tx          *passthroughTx
}

func newBatchFixture() *batchFixture {
	f := &batchFixture{
		batches:     newBatchRepoStub(),
		teachers:    newTeacherRepoStub(),
		allocations: newAllocationRepoStub(),
		tx:          &passthroughTx{},
	}
	allocationSvc := NewAllocationService(f.allocations, nil, validator.New(), zap.NewNop())
	f.svc = NewBatchService(f.batches, f.teachers, newStudentRepoStub(), allocationSvc, f.tx, nil, validator.New(), zap.NewNop())
	f.svc.now = func() time.Time { return time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC) }
	f.teachers.byID["t-1"] = &models.Teacher{ID: "t-1", State: models.StateActive}
	f.teachers.byID["t-2"] = &models.Teacher{ID: "t-2", State: models.StateArchived}
	return f
}

func batchRequest() models.BatchRequest {
	return models.BatchRequest{
		Name:      "SE-9 Lab A",
		Year:      "SE",
		Division:  "9",
		Day:       "Monday",
		Time:      "10:00-12:00",
		StartDate: models.NewDate(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)),
		EndDate:   models.NewDate(time.Date(2024, 11, 30, 0, 0, 0, 0, time.UTC)),
		TeacherID: "t-1",
	}
}

func TestBatchServiceCreateWithAllocation(t *testing.T) {
	f := newBatchFixture()
	req := batchRequest()
	req.SubjectID = "sub-1"

	batch, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.StateActive, batch.State)
	assert.Equal(t, 1, f.tx.calls)

	require.Len(t, f.allocations.byID, 1)
	for _, a := range f.allocations.byID {
		assert.Equal(t, models.AllocationKey{TeacherID: "t-1", SubjectID: "sub-1", BatchID: batch.ID, Division: "9", AcademicYear: "2024"}, a.Key())
	}
}

func TestBatchServiceCreateAllocationFailureFails(t *testing.T) {
	f := newBatchFixture()
	f.allocations.createErr = errors.New("boom")
	req := batchRequest()
	req.SubjectID = "sub-1"

	_, err := f.svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
}

func TestBatchServiceCreateValidation(t *testing.T) {
	f := newBatchFixture()
	ctx := context.Background()

	bad := batchRequest()
	bad.Year = "FE"
	_, err := f.svc.Create(ctx, bad)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	bad = batchRequest()
	bad.Day = "Sunday"
	_, err = f.svc.Create(ctx, bad)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	bad = batchRequest()
	bad.StartDate, bad.EndDate = bad.EndDate, bad.StartDate
	_, err = f.svc.Create(ctx, bad)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	bad = batchRequest()
	bad.EndDate = models.Date{}
	_, err = f.svc.Create(ctx, bad)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	bad = batchRequest()
	bad.TeacherID = "t-2"
	_, err = f.svc.Create(ctx, bad)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	bad = batchRequest()
	bad.TeacherID = "nobody"
	_, err = f.svc.Create(ctx, bad)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	same := batchRequest()
	same.EndDate = same.StartDate
	_, err = f.svc.Create(ctx, same)
	assert.NoError(t, err)
	assert.Empty(t, f.allocations.byID)
}

func TestBatchServiceUpdateKeepsOtherAllocations(t *testing.T) {
	f := newBatchFixture()
	ctx := context.Background()
	f.teachers.byID["t-3"] = &models.Teacher{ID: "t-3", State: models.StateActive}

	req := batchRequest()
	req.SubjectID = "sub-1"
	batch, err := f.svc.Create(ctx, req)
	require.NoError(t, err)

	req.TeacherID = "t-3"
	req.SubjectID = "sub-2"
	updated, err := f.svc.Update(ctx, batch.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "t-3", updated.TeacherID)
	assert.Len(t, f.allocations.byID, 2)

	_, err = f.svc.Update(ctx, batch.ID, req)
	require.NoError(t, err)
	assert.Len(t, f.allocations.byID, 2)

	_, err = f.svc.Update(ctx, "missing", req)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestBatchServiceMembership(t *testing.T) {
	f := newBatchFixture()
	ctx := context.Background()
	batch, err := f.svc.Create(ctx, batchRequest())
	require.NoError(t, err)

	added, err := f.svc.AddStudents(ctx, batch.ID, models.BatchMembershipRequest{StudentIDs: []string{"s1", "s2", "s1"}})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	added, err = f.svc.AddStudents(ctx, batch.ID, models.BatchMembershipRequest{StudentIDs: []string{"s2", "s3"}})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	require.NoError(t, f.svc.RemoveStudent(ctx, batch.ID, "s1"))
	assert.True(t, appErrors.Is(f.svc.RemoveStudent(ctx, batch.ID, "s1"), appErrors.ErrNotFound))

	_, err = f.svc.Archive(ctx, batch.ID)
	require.NoError(t, err)
	_, err = f.svc.AddStudents(ctx, batch.ID, models.BatchMembershipRequest{StudentIDs: []string{"s4"}})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))

	restored, err := f.svc.Restore(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateActive, restored.State)
}

func TestAllocationServiceConflicts(t *testing.T) {
	repo := newAllocationRepoStub()
	svc := NewAllocationService(repo, nil, validator.New(), zap.NewNop())
	ctx := context.Background()
	req := models.AllocationRequest{TeacherID: "T", SubjectID: "S", BatchID: "B", Division: "9", AcademicYear: "2024"}

	first, err := svc.Allocate(ctx, req)
	require.NoError(t, err)
	assert.True(t, first.IsActive)

	_, err = svc.Allocate(ctx, req)
	require.Error(t, err)
	assert.Equal(t, 409, appErrors.FromError(err).Status)

	variants := []func(r *models.AllocationRequest){
		func(r *models.AllocationRequest) { r.TeacherID = "T2" },
		func(r *models.AllocationRequest) { r.SubjectID = "S2" },
		func(r *models.AllocationRequest) { r.BatchID = "B2" },
		func(r *models.AllocationRequest) { r.Division = "10" },
		func(r *models.AllocationRequest) { r.AcademicYear = "2025" },
	}
	for _, mutate := range variants {
		next := req
		mutate(&next)
		_, err := svc.Allocate(ctx, next)
		assert.NoError(t, err)
	}
	assert.Len(t, repo.byID, 6)
}

func TestAllocationServiceUniqueViolationMapsToConflict(t *testing.T) {
	repo := newAllocationRepoStub()
	repo.createErr = &pq.Error{Code: "23505", Constraint: "teacher_subject_batches_tuple_key"}
	svc := NewAllocationService(repo, nil, validator.New(), zap.NewNop())

	_, err := svc.Allocate(context.Background(), models.AllocationRequest{TeacherID: "T", SubjectID: "S", BatchID: "B", Division: "9", AcademicYear: "2024"})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestAllocationServiceReallocate(t *testing.T) {
	repo := newAllocationRepoStub()
	svc := NewAllocationService(repo, nil, validator.New(), zap.NewNop())
	ctx := context.Background()
	a, err := svc.Allocate(ctx, models.AllocationRequest{TeacherID: "T", SubjectID: "S", BatchID: "B", Division: "9", AcademicYear: "2024"})
	require.NoError(t, err)
	b, err := svc.Allocate(ctx, models.AllocationRequest{TeacherID: "T2", SubjectID: "S", BatchID: "B", Division: "9", AcademicYear: "2024"})
	require.NoError(t, err)

	_, err = svc.Reallocate(ctx, b.ID, models.AllocationRequest{TeacherID: "T", SubjectID: "S", BatchID: "B", Division: "9", AcademicYear: "2024"})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))

	moved, err := svc.Reallocate(ctx, a.ID, models.AllocationRequest{TeacherID: "T", SubjectID: "S", BatchID: "B", Division: "10", AcademicYear: "2024"})
	require.NoError(t, err)
	assert.Equal(t, "10", moved.Division)
	assert.Len(t, repo.byID, 2)

	_, err = svc.Reallocate(ctx, "missing", models.AllocationRequest{TeacherID: "T", SubjectID: "S", BatchID: "B", Division: "9", AcademicYear: "2024"})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	require.NoError(t, svc.Delete(ctx, a.ID))
	assert.True(t, appErrors.Is(svc.Delete(ctx, a.ID), appErrors.ErrNotFound))
}

func TestAllocationServiceUnknownReferencesAreValidationErrors(t *testing.T) {
	repo := newAllocationRepoStub()
	svc := NewAllocationService(repo, nil, validator.New(), zap.NewNop())
	ctx := context.Background()
	req := models.AllocationRequest{TeacherID: "T", SubjectID: "S", BatchID: "B", Division: "9", AcademicYear: "2024"}
	a, err := svc.Allocate(ctx, req)
	require.NoError(t, err)

	repo.updateErr = fmt.Errorf("update allocation: %w", &pq.Error{Code: "23503", Constraint: "teacher_subject_batches_subject_id_fkey"})
	next := req
	next.SubjectID = "S-unknown"
	_, err = svc.Reallocate(ctx, a.ID, next)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Equal(t, 400, appErrors.FromError(err).Status)

	repo.updateErr = nil
	repo.existsErr = fmt.Errorf("check allocation exists: %w", &pq.Error{Code: "22P02"})
	next.TeacherID = "not-a-uuid"
	_, err = svc.Allocate(ctx, next)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
