package models

import "time"

// Subject is a taught discipline.
type Subject struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Code        *string   `db:"code" json:"code,omitempty"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ClassroomType categorises rooms.
type ClassroomType string

const (
	ClassroomTypeLecture  ClassroomType = "LECTURE"
	ClassroomTypePractice ClassroomType = "PRACTICE"
	ClassroomTypeLab      ClassroomType = "LAB"
	ClassroomTypeComputer ClassroomType = "COMPUTER"
	ClassroomTypeSports   ClassroomType = "SPORTS"
	ClassroomTypeOther    ClassroomType = "OTHER"
)

// Classroom is a bookable room with a seating capacity.
type Classroom struct {
	ID         string        `db:"id" json:"id"`
	Identifier string        `db:"identifier" json:"identifier"`
	Capacity   int           `db:"capacity" json:"capacity"`
	Type       ClassroomType `db:"type" json:"type"`
	Notes      string        `db:"notes" json:"notes"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

// StudentGroup is a cohort of students scheduled together. MemberCount is
// resolved by the catalog with an aggregate query; 0 means the group has no
// loaded membership yet, in which case capacity checks are skipped.
type StudentGroup struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	AcademicYearID string    `db:"academic_year_id" json:"academic_year_id"`
	CuratorID      *string   `db:"curator_id" json:"curator_id,omitempty"`
	MemberCount    int       `db:"member_count" json:"member_count"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Teacher is the roster entry the scheduler books against. User accounts and
// roles live in an external service; only the scheduling-relevant fields are
// mirrored here.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     string    `db:"email" json:"email"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
