package models

// DashboardStats are the headline counters on the admin dashboard.
type DashboardStats struct {
	TotalStudents    int `db:"total_students" json:"totalStudents"`
	TotalTeachers    int `db:"total_teachers" json:"totalTeachers"`
	TotalBatches     int `db:"total_batches" json:"totalBatches"`
	TotalSubjects    int `db:"total_subjects" json:"totalSubjects"`
	TotalAllocations int `db:"total_allocations" json:"totalAllocations"`
}
