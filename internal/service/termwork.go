package service

import (
	"math"

	"github.com/noah-isme/lab-assessment-api/internal/models"
)

// MarksTolerance is the largest accepted gap between a supplied derived mark
// and the value recomputed from its components.
const MarksTolerance = 0.5

// Component weights of the 100-point term-work total.
const (
	assignmentWeight = 60
	testWeight       = 20
)

// Supported term-work scales.
const (
	Scale25 = 25
	Scale50 = 50
)

// NormalizeScale returns scale when it is supported and fallback otherwise.
func NormalizeScale(scale, fallback int) int {
	if scale == Scale25 || scale == Scale50 {
		return scale
	}
	if fallback == Scale25 || fallback == Scale50 {
		return fallback
	}
	return Scale25
}

// ConvertUnitTests averages the recorded unit tests and rescales the mean from
// 30 to 20. It reports false when no unit test is recorded.
func ConvertUnitTests(marks ...*float64) (float64, bool) {
	var sum float64
	var n int
	for _, m := range marks {
		if m == nil {
			continue
		}
		sum += *m
		n++
	}
	if n == 0 {
		return 0, false
	}
	mean := sum / float64(n)
	return round2(mean * models.MaxConvertedUnitTest / models.MaxUnitTestMarks), true
}

// FinalMarks rescales the 100-point sum of final assignment, test and theory
// attendance marks to scale.
func FinalMarks(finalAssignment, test, theoryAttendance float64, scale int) float64 {
	return round2((finalAssignment + test + theoryAttendance) * float64(scale) / 100)
}

// ComputeTermWork derives the term-work score of a student from the
// per-experiment assessments, ordered by experiment number.
//
// The assignment component averages rpp+spo+assignment (out of 20) across
// experiments and weights it to 60. The test component is the latest converted
// unit test mark, falling back to the latest test mark. The attendance
// component is the student's attendance marks.
func ComputeTermWork(student models.Student, assessments []models.Assessment, scale int) models.TermWork {
	tw := models.TermWork{
		StudentID:       student.ID,
		RollNumber:      student.RollNumber,
		Experiments:     len(assessments),
		AttendanceScore: round2(student.AttendanceMarks),
		Scale:           scale,
	}

	if n := len(assessments); n > 0 {
		var sum float64
		for _, a := range assessments {
			sum += value(a.RPPMarks) + value(a.SPOMarks) + value(a.AssignmentMarks)
		}
		perExperiment := float64(models.MaxRPPMarks + models.MaxSPOMarks + models.MaxAssignmentMarks)
		tw.AssignmentScore = round2(sum / (perExperiment * float64(n)) * assignmentWeight)
	}

	tw.TestScore = round2(latestTestScore(assessments))
	tw.Total = round2(tw.AssignmentScore + tw.TestScore + tw.AttendanceScore)
	tw.FinalMarks = round2(tw.Total * float64(scale) / 100)
	return tw
}

func latestTestScore(assessments []models.Assessment) float64 {
	for i := len(assessments) - 1; i >= 0; i-- {
		if assessments[i].ConvertedUnitTestMarks != nil {
			return math.Min(*assessments[i].ConvertedUnitTestMarks, testWeight)
		}
	}
	for i := len(assessments) - 1; i >= 0; i-- {
		if assessments[i].TestMarks != nil {
			return math.Min(*assessments[i].TestMarks, testWeight)
		}
	}
	return 0
}

func withinTolerance(a, b float64) bool {
	return math.Abs(a-b) <= MarksTolerance
}

func value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
