package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/lab-assessment-api/internal/models"
)

func TestConvertUnitTests(t *testing.T) {
	_, ok := ConvertUnitTests(nil, nil, nil)
	assert.False(t, ok)

	v, ok := ConvertUnitTests(floatPtr(30), nil, floatPtr(15))
	assert.True(t, ok)
	assert.Equal(t, 15.0, v)

	v, _ = ConvertUnitTests(floatPtr(20), floatPtr(21), floatPtr(22))
	assert.Equal(t, 14.0, v)
}

func TestFinalMarks(t *testing.T) {
	assert.Equal(t, 25.0, FinalMarks(60, 20, 20, 25))
	assert.Equal(t, 50.0, FinalMarks(60, 20, 20, 50))
	assert.Equal(t, 18.75, FinalMarks(45, 15, 15, 25))
}

func TestNormalizeScale(t *testing.T) {
	assert.Equal(t, 50, NormalizeScale(50, 25))
	assert.Equal(t, 50, NormalizeScale(0, 50))
	assert.Equal(t, 25, NormalizeScale(30, 40))
}

func TestComputeTermWork(t *testing.T) {
	student := models.Student{ID: "s1", RollNumber: "R1", AttendanceMarks: 20}

	empty := ComputeTermWork(student, nil, 25)
	assert.Equal(t, 0.0, empty.AssignmentScore)
	assert.Equal(t, 20.0, empty.Total)
	assert.Equal(t, 5.0, empty.FinalMarks)

	assessments := []models.Assessment{
		{ExperimentNo: 1, RPPMarks: floatPtr(5), SPOMarks: floatPtr(5), AssignmentMarks: floatPtr(10), TestMarks: floatPtr(12), ConvertedUnitTestMarks: floatPtr(16)},
		{ExperimentNo: 2, RPPMarks: floatPtr(4), SPOMarks: floatPtr(4), AssignmentMarks: floatPtr(7), TestMarks: floatPtr(19)},
		{ExperimentNo: 3},
	}
	tw := ComputeTermWork(student, assessments, 50)
	assert.Equal(t, 3, tw.Experiments)
	assert.Equal(t, 35.0, tw.AssignmentScore)
	assert.Equal(t, 16.0, tw.TestScore)
	assert.Equal(t, 71.0, tw.Total)
	assert.Equal(t, 35.5, tw.FinalMarks)
}
