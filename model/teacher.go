package model

// Teacher holds a teacher profile, optionally linked to an account
type Teacher struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	UserID      *uint   `gorm:"uniqueIndex" json:"user_id"`
	Name        string  `gorm:"type:varchar(50);not null" json:"name"`
	Email       string  `gorm:"type:varchar(254);not null" json:"email"`
	PhoneNumber *string `gorm:"type:varchar(15)" json:"phone_number"`
	Biography   *string `gorm:"type:text" json:"biography"`
	Experience  int     `gorm:"not null;default:0;check:experience BETWEEN 0 AND 35" json:"experience"` // years
	IsWorking   bool    `gorm:"not null" json:"is_working"`

	// Relationships
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}
