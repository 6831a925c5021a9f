// Package router binds handlers to URL paths and attaches authentication,
// role checks and audit logging per route group.
package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-assessment-api/internal/handler"
	"github.com/noah-isme/lab-assessment-api/internal/middleware"
	"github.com/noah-isme/lab-assessment-api/internal/models"
	"github.com/noah-isme/lab-assessment-api/internal/service"
)

// Options selects the optional surfaces.
type Options struct {
	APIPrefix     string
	EnableDocs    bool
	EnableMetrics bool
}

// Handlers groups every HTTP handler served by the API.
type Handlers struct {
	Auth        *handler.AuthHandler
	Teachers    *handler.TeacherHandler
	Students    *handler.StudentHandler
	Batches     *handler.BatchHandler
	Subjects    *handler.SubjectHandler
	Allocations *handler.AllocationHandler
	Assessments *handler.AssessmentHandler
	Attendance  *handler.AttendanceHandler
	Uploads     *handler.UploadHandler
	Exports     *handler.ExportHandler
	Dashboard   *handler.DashboardHandler
	Metrics     *handler.MetricsHandler
}

// Register mounts all routes on r.
func Register(r *gin.Engine, opts Options, h Handlers, auth *service.AuthService, audit service.AuditRecorder, logger *zap.Logger) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	if opts.EnableMetrics {
		r.GET("/metrics", h.Metrics.Prometheus)
	}
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	record := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(audit, logger, action, resource)
	}
	admin := middleware.Require(models.RoleAdmin)
	staff := middleware.Require(models.RoleAdmin, models.RoleTeacher)

	api := r.Group(opts.APIPrefix)

	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/login", h.Auth.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(auth))
	secured.POST("/auth/change-password", h.Auth.ChangePassword)
	secured.GET("/auth/me", h.Auth.Me)

	teachers := secured.Group("/teachers")
	teachers.GET("/all", h.Teachers.Options)
	teachers.GET("/me/batches", middleware.Require(models.RoleTeacher), h.Teachers.MyBatches)
	teachers.GET("", admin, h.Teachers.List)
	teachers.POST("", admin, record(models.AuditActionCreate, "teacher"), h.Teachers.Create)
	teachers.GET("/:id", admin, h.Teachers.Get)
	teachers.PUT("/:id", admin, record(models.AuditActionUpdate, "teacher"), h.Teachers.Update)
	teachers.DELETE("/:id", admin, record(models.AuditActionArchive, "teacher"), h.Teachers.Archive)
	teachers.POST("/:id/restore", admin, record(models.AuditActionRestore, "teacher"), h.Teachers.Restore)

	self := middleware.RBAC(string(models.RoleAdmin), string(models.RoleTeacher), middleware.SelfStudent)
	students := secured.Group("/students")
	students.GET("/:id", self, h.Students.Get)
	students.GET("/:id/stats", self, h.Students.Stats)
	students.GET("/:id/attendance", self, h.Students.Attendance)
	students.PUT("/:id/attendance", staff, record(models.AuditActionUpdate, "student_attendance_marks"), h.Students.UpdateAttendanceMarks)

	assessments := secured.Group("/assessments")
	assessments.POST("", staff, h.Assessments.Save)
	ownRoll := middleware.RBAC(string(models.RoleAdmin), string(models.RoleTeacher), middleware.SelfRollNumber)
	assessments.GET("/student/:rollNo", ownRoll, h.Assessments.ByStudent)
	assessments.GET("/student/:rollNo/term-work", ownRoll, h.Assessments.TermWork)
	assessments.GET("/batch/:batchId", staff, h.Assessments.ByBatch)

	secured.POST("/attendance", staff, h.Attendance.Mark)

	adminGroup := secured.Group("/admin", admin)

	adminGroup.GET("/dashboard/stats", h.Dashboard.Stats)

	adminGroup.GET("/students", h.Students.List)
	adminGroup.POST("/students", record(models.AuditActionCreate, "student"), h.Students.Create)
	adminGroup.PUT("/students/:id", record(models.AuditActionUpdate, "student"), h.Students.Update)
	adminGroup.DELETE("/students/:id", record(models.AuditActionArchive, "student"), h.Students.Archive)
	adminGroup.POST("/students/:id/restore", record(models.AuditActionRestore, "student"), h.Students.Restore)

	adminGroup.GET("/batches", h.Batches.List)
	adminGroup.POST("/batches", record(models.AuditActionCreate, "batch"), h.Batches.Create)
	adminGroup.GET("/batches/:id", h.Batches.Get)
	adminGroup.PUT("/batches/:id", record(models.AuditActionUpdate, "batch"), h.Batches.Update)
	adminGroup.DELETE("/batches/:id", record(models.AuditActionArchive, "batch"), h.Batches.Archive)
	adminGroup.POST("/batches/:id/restore", record(models.AuditActionRestore, "batch"), h.Batches.Restore)
	adminGroup.GET("/batches/:id/students", h.Batches.Students)
	adminGroup.POST("/batches/:id/students", record(models.AuditActionUpdate, "batch_membership"), h.Batches.AddStudents)
	adminGroup.DELETE("/batches/:id/students/:studentId", record(models.AuditActionDelete, "batch_membership"), h.Batches.RemoveStudent)

	adminGroup.GET("/subjects", h.Subjects.List)
	adminGroup.POST("/subjects", record(models.AuditActionCreate, "subject"), h.Subjects.Create)
	adminGroup.GET("/subjects/:id", h.Subjects.Get)
	adminGroup.PUT("/subjects/:id", record(models.AuditActionUpdate, "subject"), h.Subjects.Update)
	adminGroup.DELETE("/subjects/:id", record(models.AuditActionDelete, "subject"), h.Subjects.Delete)

	adminGroup.GET("/allocations", h.Allocations.List)
	adminGroup.POST("/allocations", record(models.AuditActionCreate, "allocation"), h.Allocations.Allocate)
	adminGroup.PUT("/allocations/:id", record(models.AuditActionUpdate, "allocation"), h.Allocations.Reallocate)
	adminGroup.DELETE("/allocations/:id", record(models.AuditActionDelete, "allocation"), h.Allocations.Delete)

	adminGroup.GET("/attendance/report", h.Attendance.Report)
	adminGroup.GET("/export/attendance", h.Exports.Attendance)
	adminGroup.GET("/export/batch", h.Exports.Batch)

	adminGroup.POST("/upload/:type", record(models.AuditActionImport, "upload"), h.Uploads.Upload)
	adminGroup.GET("/upload/jobs/:id", h.Uploads.Job)
}
