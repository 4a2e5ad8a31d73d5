package models

import "time"

// Course groups a user's projects by class. Deleting a course is
// blocked while projects still reference it so projects are never
// silently orphaned.
type Course struct {
	ID         string    `db:"id" json:"id"`
	OwnerID    string    `db:"owner_id" json:"owner_id"`
	Name       string    `db:"name" json:"name"`
	Code       string    `db:"code" json:"code"`
	Semester   string    `db:"semester" json:"semester"`
	Year       int       `db:"year" json:"year"`
	Instructor string    `db:"instructor" json:"instructor"`
	Credits    int       `db:"credits" json:"credits"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
