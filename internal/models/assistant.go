package models

import "time"

// Assistant represents a teaching assistant eligible for proctoring duty.
type Assistant struct {
	ID                  string    `db:"id" json:"id"`
	FullName            string    `db:"full_name" json:"full_name"`
	Email               string    `db:"email" json:"email"`
	Department          string    `db:"department" json:"department"`
	IsPHD               bool      `db:"is_phd" json:"is_phd"`
	IsPartTime          bool      `db:"is_part_time" json:"is_part_time"`
	MultidepartmentExam bool      `db:"multidepartment_exam" json:"multidepartment_exam"`
	ProctoringInDept    int       `db:"proctoring_in_dept" json:"proctoring_in_dept"`
	ProctoringOutDept   int       `db:"proctoring_out_dept" json:"proctoring_out_dept"`
	WorkloadHours       float64   `db:"workload_hours" json:"workload_hours"`
	Active              bool      `db:"active" json:"active"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// MatchesDepartment reports whether the assistant may serve an exam owned
// by the given department, either natively or via the multi-department
// opt-in.
func (a *Assistant) MatchesDepartment(department string) bool {
	if department == "" {
		return true
	}
	return a.Department == department || a.MultidepartmentExam
}
