package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddStudentsCountsOnlyNewMemberships(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	insert := regexp.QuoteMeta("INSERT INTO student_batches (student_id, batch_id, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING")
	mock.ExpectExec(insert).WithArgs("s1", "b1", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insert).WithArgs("s2", "b1", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(insert).WithArgs("s3", "b1", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))

	added, err := repo.AddStudents(context.Background(), "b1", []string{"s1", "s2", "s3"})
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddStudentsStopsOnError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectExec("INSERT INTO student_batches").WithArgs("s1", "b1", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO student_batches").WithArgs("ghost", "b1", sqlmock.AnyArg()).WillReturnError(assert.AnError)

	added, err := repo.AddStudents(context.Background(), "b1", []string{"s1", "ghost", "s3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
	assert.Equal(t, 1, added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberIDsAndRemoveStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id FROM student_batches WHERE batch_id = $1")).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("s1").AddRow("s2"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_batches WHERE batch_id = $1 AND student_id = $2")).
		WithArgs("b1", "s9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	members, err := repo.MemberIDs(context.Background(), "b1")
	require.NoError(t, err)
	assert.Len(t, members, 2)
	assert.Contains(t, members, "s2")

	err = repo.RemoveStudent(context.Background(), "b1", "s9")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindBatchByIDMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM batches b LEFT JOIN teachers t ON t.id = b.teacher_id WHERE b.id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
