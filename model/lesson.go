package model

import (
	"time"
)

// Reaction values accepted in Comment.Liked
const (
	ReactionLike    = "like"
	ReactionDislike = "dislike"
)

// Lesson belongs to a course group
type Lesson struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CourseGroupID uint      `gorm:"not null;index" json:"course_group_id"`
	Title         string    `gorm:"type:varchar(250);not null" json:"title"`
	StartTime     time.Time `gorm:"autoCreateTime" json:"start_time"`
	Likes         int       `gorm:"not null;default:0;check:likes >= 0" json:"likes"`
	Dislikes      int       `gorm:"not null;default:0;check:dislikes >= 0" json:"dislikes"`

	// Relationships
	CourseGroup *CourseGroup  `gorm:"foreignKey:CourseGroupID;constraint:OnDelete:CASCADE" json:"-"`
	Videos      []LessonVideo `gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE" json:"-"`
	Comments    []Comment     `gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE" json:"-"`
}

// LessonVideo references an uploaded video file (mp4 or avi) of a lesson
type LessonVideo struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"type:varchar(155);not null" json:"name"`
	LessonID  uint   `gorm:"not null;index" json:"lesson_id"`
	VideoFile string `gorm:"type:varchar(255);not null" json:"video_file"` // storage key under lesson/videos/
	VideoURL  string `gorm:"-" json:"video_url,omitempty"`

	// Relationships
	Lesson *Lesson `gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE" json:"-"`
}

// Comment is a remark and optional reaction left on a lesson
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LessonID  uint      `gorm:"not null;index" json:"lesson_id"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Liked     *string   `gorm:"type:varchar(7)" json:"liked"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relationships
	Lesson *Lesson `gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE" json:"-"`
	Author *User   `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
}
