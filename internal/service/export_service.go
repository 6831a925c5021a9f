package service

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/lab-assessment-api/internal/models"
	appErrors "github.com/noah-isme/lab-assessment-api/pkg/errors"
	"github.com/noah-isme/lab-assessment-api/pkg/export"
)

type attendanceReporter interface {
	Report(ctx context.Context, filter models.AttendanceReportFilter) ([]models.AttendanceReportRow, error)
}

type batchMarksSource interface {
	ListByBatch(ctx context.Context, batchID string) ([]models.BatchAssessment, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Column sets of the exports.
var (
	attendanceExportHeaders = []string{"Date", "Student Name", "Email", "Roll Number", "Status", "Remarks"}
	batchExportHeaders      = []string{"Roll Number", "Name", "Email", "Attendance Marks", "Assessments", "Average Marks", "Term Work"}
)

// ExportService renders attendance and batch result downloads.
type ExportService struct {
	attendance  attendanceReporter
	batches     batchLookup
	students    batchStudentLister
	assessments batchMarksSource
	logger      *zap.Logger
	scale       int
}

// NewExportService constructs an ExportService.
func NewExportService(attendance attendanceReporter, batches batchLookup, students batchStudentLister, assessments batchMarksSource, logger *zap.Logger, scale int) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		attendance:  attendance,
		batches:     batches,
		students:    students,
		assessments: assessments,
		logger:      logger,
		scale:       NormalizeScale(scale, Scale25),
	}
}

// Attendance renders the attendance report of a batch in the requested format.
func (s *ExportService) Attendance(ctx context.Context, filter models.AttendanceReportFilter, format string) (*ExportFile, error) {
	renderer, err := rendererFor(format)
	if err != nil {
		return nil, err
	}
	rows, err := s.attendance.Report(ctx, filter)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{Title: "Attendance Report", Headers: attendanceExportHeaders}
	for _, row := range rows {
		remarks := ""
		if row.Remarks != nil {
			remarks = *row.Remarks
		}
		data.Rows = append(data.Rows, map[string]string{
			"Date":         row.Date.String(),
			"Student Name": row.StudentName,
			"Email":        row.Email,
			"Roll Number":  row.RollNumber,
			"Status":       string(row.Status),
			"Remarks":      remarks,
		})
	}
	return s.render(renderer, "attendance-report", data)
}

// Batch renders per-student results of a batch in the requested format.
func (s *ExportService) Batch(ctx context.Context, batchID, format string) (*ExportFile, error) {
	renderer, err := rendererFor(format)
	if err != nil {
		return nil, err
	}
	if batchID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "batchId is required")
	}
	batch, err := s.batches.FindByID(ctx, batchID)
	if err != nil {
		return nil, notFoundOr(err, "batch")
	}

	students, err := s.members(ctx, batch.ID)
	if err != nil {
		return nil, err
	}
	marks, err := s.assessments.ListByBatch(ctx, batch.ID)
	if err != nil {
		return nil, internal(err, "failed to load batch assessments")
	}
	byStudent := make(map[string][]models.Assessment, len(students))
	for _, m := range marks {
		byStudent[m.StudentID] = append(byStudent[m.StudentID], m.Assessment)
	}

	data := export.Dataset{Title: batch.Name, Headers: batchExportHeaders}
	for _, student := range students {
		assessments := byStudent[student.ID]
		tw := ComputeTermWork(student, assessments, s.scale)
		data.Rows = append(data.Rows, map[string]string{
			"Roll Number":      student.RollNumber,
			"Name":             student.Name,
			"Email":            student.Email,
			"Attendance Marks": formatMark(student.AttendanceMarks),
			"Assessments":      strconv.Itoa(len(assessments)),
			"Average Marks":    formatMark(averageFinalMarks(assessments)),
			"Term Work":        formatMark(tw.FinalMarks),
		})
	}
	return s.render(renderer, "batch-"+batch.ID, data)
}

// members pages through the whole membership of a batch.
func (s *ExportService) members(ctx context.Context, batchID string) ([]models.Student, error) {
	filter := models.StudentFilter{BatchID: batchID, ListOptions: models.ListOptions{Page: 1, PageSize: 200, SortBy: "rollNumber"}}
	var out []models.Student
	for {
		page, total, err := s.students.List(ctx, filter)
		if err != nil {
			return nil, internal(err, "failed to list batch students")
		}
		out = append(out, page...)
		if len(page) == 0 || len(out) >= total {
			return out, nil
		}
		filter.Page++
	}
}

func (s *ExportService) render(renderer export.Renderer, base string, data export.Dataset) (*ExportFile, error) {
	payload, err := renderer.Render(data)
	if err != nil {
		return nil, internal(err, "failed to render export")
	}
	s.logger.Debug("export rendered", zap.String("file", base), zap.Int("rows", len(data.Rows)))
	return &ExportFile{
		Filename:    export.Filename(base, renderer),
		ContentType: renderer.ContentType(),
		Data:        payload,
	}, nil
}

func rendererFor(format string) (export.Renderer, error) {
	f, err := export.ParseFormat(format, export.FormatXLSX)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnsupportedFormat.Code, appErrors.ErrUnsupportedFormat.Status, "format must be xlsx, csv or pdf")
	}
	return export.RendererFor(f)
}

func averageFinalMarks(assessments []models.Assessment) float64 {
	var sum float64
	var n int
	for _, a := range assessments {
		if a.FinalMarks != nil {
			sum += *a.FinalMarks
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return round2(sum / float64(n))
}

func formatMark(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

