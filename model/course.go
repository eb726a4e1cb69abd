package model

import (
	"time"
)

// Course is a course published on the platform by an author account.
// Titles are unique across all courses.
type Course struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	AuthorID    uint      `gorm:"not null;index" json:"author_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relationships
	Author *User `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
}

// CourseGroup bundles students of a course and owns the lessons taught to them
type CourseGroup struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Name        string  `gorm:"type:varchar(255);not null" json:"name"`
	Description *string `gorm:"type:text" json:"description"`

	// Relationships
	Students []Student `gorm:"many2many:student_groups;constraint:OnDelete:CASCADE" json:"-"`
	Lessons  []Lesson  `gorm:"foreignKey:CourseGroupID;constraint:OnDelete:CASCADE" json:"-"`
}
