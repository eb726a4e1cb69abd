package database

import (
	"fmt"

	"github.com/sahilchouksey/dars-api/model"
	"gorm.io/gorm"
)

// The helpers below remove dependent rows explicitly inside the caller's
// transaction. The ON DELETE CASCADE constraints do the same on postgres;
// doing it here keeps behaviour identical on databases where foreign keys
// are not enforced. Each helper returns the storage keys of the lesson
// videos it removed so the caller can clean up the stored files.

// DeleteLessons deletes the given lessons with their videos and comments
func DeleteLessons(tx *gorm.DB, lessonIDs []uint) ([]string, error) {
	if len(lessonIDs) == 0 {
		return nil, nil
	}

	var videoKeys []string
	if err := tx.Model(&model.LessonVideo{}).Where("lesson_id IN ?", lessonIDs).Pluck("video_file", &videoKeys).Error; err != nil {
		return nil, fmt.Errorf("collect lesson videos: %w", err)
	}

	if err := tx.Where("lesson_id IN ?", lessonIDs).Delete(&model.LessonVideo{}).Error; err != nil {
		return nil, fmt.Errorf("delete lesson videos: %w", err)
	}
	if err := tx.Where("lesson_id IN ?", lessonIDs).Delete(&model.Comment{}).Error; err != nil {
		return nil, fmt.Errorf("delete lesson comments: %w", err)
	}
	if err := tx.Where("id IN ?", lessonIDs).Delete(&model.Lesson{}).Error; err != nil {
		return nil, fmt.Errorf("delete lessons: %w", err)
	}

	return videoKeys, nil
}

// DeleteCourseGroup deletes a course group, its memberships and its lessons
func DeleteCourseGroup(tx *gorm.DB, group *model.CourseGroup) ([]string, error) {
	if err := tx.Model(group).Association("Students").Clear(); err != nil {
		return nil, fmt.Errorf("clear group members: %w", err)
	}

	var lessonIDs []uint
	if err := tx.Model(&model.Lesson{}).Where("course_group_id = ?", group.ID).Pluck("id", &lessonIDs).Error; err != nil {
		return nil, fmt.Errorf("collect group lessons: %w", err)
	}

	videoKeys, err := DeleteLessons(tx, lessonIDs)
	if err != nil {
		return nil, err
	}

	if err := tx.Delete(group).Error; err != nil {
		return nil, fmt.Errorf("delete course group: %w", err)
	}
	return videoKeys, nil
}

// DeleteStudent deletes a student profile and its group memberships
func DeleteStudent(tx *gorm.DB, student *model.Student) error {
	if err := tx.Model(student).Association("Groups").Clear(); err != nil {
		return fmt.Errorf("clear student groups: %w", err)
	}
	if err := tx.Delete(student).Error; err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}

// DeleteUser deletes an account with everything it owns: authored courses,
// comments, teacher and student profiles, revoked tokens and its links to
// the email log
func DeleteUser(tx *gorm.DB, user *model.User) error {
	var students []model.Student
	if err := tx.Where("user_id = ?", user.ID).Find(&students).Error; err != nil {
		return fmt.Errorf("collect student profile: %w", err)
	}
	for i := range students {
		if err := DeleteStudent(tx, &students[i]); err != nil {
			return err
		}
	}

	dependents := []struct {
		model  interface{}
		column string
	}{
		{&model.Teacher{}, "user_id"},
		{&model.Comment{}, "author_id"},
		{&model.Course{}, "author_id"},
		{&model.JWTTokenBlacklist{}, "user_id"},
		{&model.EmailLogRecipient{}, "user_id"},
	}
	for _, dep := range dependents {
		if err := tx.Where(dep.column+" = ?", user.ID).Delete(dep.model).Error; err != nil {
			return fmt.Errorf("delete %T: %w", dep.model, err)
		}
	}

	if err := tx.Delete(user).Error; err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
