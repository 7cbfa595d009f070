package models

import "time"

// Offering is an assistant's teaching or grading role on a course section.
// The engine only reads offerings to detect conflicts of interest; it never
// mutates them.
type Offering struct {
	ID          string    `db:"id" json:"id"`
	AssistantID string    `db:"assistant_id" json:"assistant_id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	Section     int       `db:"section" json:"section"`
	Role        string    `db:"role" json:"role"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CourseAssistant records an assistant in a course's registered TA pool.
// Distinct from Offering: offering holders are barred from proctoring the
// course's own exam, while registered course assistants are merely preferred
// by the ranking policy.
type CourseAssistant struct {
	CourseID    string `db:"course_id" json:"course_id"`
	AssistantID string `db:"assistant_id" json:"assistant_id"`
}
