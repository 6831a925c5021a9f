package models

import "time"

// Mark bounds for assessment components.
const (
	MaxRPPMarks             = 5
	MaxSPOMarks             = 5
	MaxAssignmentMarks      = 10
	MaxFinalAssignmentMarks = 60
	MaxTestMarks            = 20
	MaxTheoryAttendance     = 20
	MaxUnitTestMarks        = 30
	MaxConvertedUnitTest    = 20
)

// Assessment stores the component marks of one experiment for one student.
type Assessment struct {
	ID                       string    `db:"id" json:"id"`
	StudentID                string    `db:"student_id" json:"studentId"`
	StudentRollNo            string    `db:"student_roll_no" json:"studentRollNo"`
	ExperimentNo             int       `db:"experiment_no" json:"experimentNo"`
	ScheduledPerformanceDate *Date     `db:"scheduled_performance_date" json:"scheduledPerformanceDate,omitempty"`
	ActualPerformanceDate    *Date     `db:"actual_performance_date" json:"actualPerformanceDate,omitempty"`
	ScheduledSubmissionDate  *Date     `db:"scheduled_submission_date" json:"scheduledSubmissionDate,omitempty"`
	ActualSubmissionDate     *Date     `db:"actual_submission_date" json:"actualSubmissionDate,omitempty"`
	RPPMarks                 *float64  `db:"rpp_marks" json:"rppMarks,omitempty"`
	SPOMarks                 *float64  `db:"spo_marks" json:"spoMarks,omitempty"`
	AssignmentMarks          *float64  `db:"assignment_marks" json:"assignmentMarks,omitempty"`
	FinalAssignmentMarks     *float64  `db:"final_assignment_marks" json:"finalAssignmentMarks,omitempty"`
	TestMarks                *float64  `db:"test_marks" json:"testMarks,omitempty"`
	TheoryAttendanceMarks    *float64  `db:"theory_attendance_marks" json:"theoryAttendanceMarks,omitempty"`
	FinalMarks               *float64  `db:"final_marks" json:"finalMarks,omitempty"`
	UnitTest1Marks           *float64  `db:"unit_test1_marks" json:"unitTest1Marks,omitempty"`
	UnitTest2Marks           *float64  `db:"unit_test2_marks" json:"unitTest2Marks,omitempty"`
	UnitTest3Marks           *float64  `db:"unit_test3_marks" json:"unitTest3Marks,omitempty"`
	ConvertedUnitTestMarks   *float64  `db:"converted_unit_test_marks" json:"convertedUnitTestMarks,omitempty"`
	CreatedAt                time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt                time.Time `db:"updated_at" json:"updatedAt"`
}

// Completed reports whether the per-experiment components are all recorded.
func (a Assessment) Completed() bool {
	return a.RPPMarks != nil && a.SPOMarks != nil && a.AssignmentMarks != nil
}

// SaveAssessmentRequest creates an assessment when ID is empty and otherwise
// applies the supplied fields to the existing row. Nil fields are left as they
// are on update.
type SaveAssessmentRequest struct {
	ID                       string   `json:"id"`
	StudentRollNo            string   `json:"studentRollNo" validate:"required"`
	ExperimentNo             *int     `json:"experimentNo" validate:"required,gte=0"`
	ScheduledPerformanceDate *Date    `json:"scheduledPerformanceDate"`
	ActualPerformanceDate    *Date    `json:"actualPerformanceDate"`
	ScheduledSubmissionDate  *Date    `json:"scheduledSubmissionDate"`
	ActualSubmissionDate     *Date    `json:"actualSubmissionDate"`
	RPPMarks                 *float64 `json:"rppMarks" validate:"omitempty,gte=0,lte=5"`
	SPOMarks                 *float64 `json:"spoMarks" validate:"omitempty,gte=0,lte=5"`
	AssignmentMarks          *float64 `json:"assignmentMarks" validate:"omitempty,gte=0,lte=10"`
	FinalAssignmentMarks     *float64 `json:"finalAssignmentMarks" validate:"omitempty,gte=0,lte=60"`
	TestMarks                *float64 `json:"testMarks" validate:"omitempty,gte=0,lte=20"`
	TheoryAttendanceMarks    *float64 `json:"theoryAttendanceMarks" validate:"omitempty,gte=0,lte=20"`
	FinalMarks               *float64 `json:"finalMarks" validate:"omitempty,gte=0,lte=50"`
	UnitTest1Marks           *float64 `json:"unitTest1Marks" validate:"omitempty,gte=0,lte=30"`
	UnitTest2Marks           *float64 `json:"unitTest2Marks" validate:"omitempty,gte=0,lte=30"`
	UnitTest3Marks           *float64 `json:"unitTest3Marks" validate:"omitempty,gte=0,lte=30"`
	ConvertedUnitTestMarks   *float64 `json:"convertedUnitTestMarks" validate:"omitempty,gte=0,lte=20"`
	Scale                    int      `json:"scale" validate:"omitempty,oneof=25 50"`
}

// BatchAssessment pairs an assessment with the student's display fields.
type BatchAssessment struct {
	Assessment
	StudentName string `db:"student_name" json:"studentName"`
}

// TermWork is the derived continuous-assessment score of a student.
type TermWork struct {
	StudentID       string  `json:"studentId"`
	RollNumber      string  `json:"rollNumber"`
	Experiments     int     `json:"experiments"`
	AssignmentScore float64 `json:"assignmentScore"`
	TestScore       float64 `json:"testScore"`
	AttendanceScore float64 `json:"attendanceScore"`
	Total           float64 `json:"total"`
	Scale           int     `json:"scale"`
	FinalMarks      float64 `json:"finalMarks"`
}
