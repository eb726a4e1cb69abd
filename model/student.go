package model

// Student is the student profile of an account and its course group memberships
type Student struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	UserID     uint `gorm:"uniqueIndex;not null" json:"user_id"`
	IsStudying bool `gorm:"not null" json:"is_studying"`

	// Relationships
	User   *User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Groups []CourseGroup `gorm:"many2many:student_groups;constraint:OnDelete:CASCADE" json:"groups"`
}
