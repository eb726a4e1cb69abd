package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sahilchouksey/dars-api/model"
	"github.com/sahilchouksey/dars-api/services/mailer"
)

// ErrNotificationFailed wraps every mail transport failure
var ErrNotificationFailed = errors.New("notification failed")

const (
	SubjectCourseCreated = "New course created"
	SubjectCourseUpdated = "Course updated"
	subjectTeacherPrefix = "New teacher added: "
)

// NotificationService composes course and teacher notifications and hands
// them to the mailer. Sends are synchronous.
type NotificationService struct {
	mailer mailer.Mailer
}

// NewNotificationService creates a new notification service
func NewNotificationService(m mailer.Mailer) *NotificationService {
	return &NotificationService{mailer: m}
}

// NotifyCourseCreated tells the author that their course was created
func (s *NotificationService) NotifyCourseCreated(ctx context.Context, author *model.User, course *model.Course) error {
	return s.send(ctx, mailer.Message{
		To:      []string{author.Email},
		UserIDs: []uint{author.ID},
		Subject: SubjectCourseCreated,
		Body:    fmt.Sprintf("Course '%s' was created successfully.", course.Title),
	})
}

// NotifyCourseUpdated sends the "course updated" message to the caller
func (s *NotificationService) NotifyCourseUpdated(ctx context.Context, caller *model.User, course *model.Course) error {
	return s.send(ctx, mailer.Message{
		To:      []string{caller.Email},
		UserIDs: []uint{caller.ID},
		Subject: SubjectCourseUpdated,
		Body:    fmt.Sprintf("Course '%s' has been updated.", course.Title),
	})
}

// TeacherCreatedRecipients returns the caller's email followed by the
// teacher's email, skipping empty addresses
func TeacherCreatedRecipients(caller *model.User, teacher *model.Teacher) []string {
	recipients := make([]string, 0, 2)
	if caller != nil && strings.TrimSpace(caller.Email) != "" {
		recipients = append(recipients, caller.Email)
	}
	if strings.TrimSpace(teacher.Email) != "" {
		recipients = append(recipients, teacher.Email)
	}
	return recipients
}

// NotifyTeacherCreated announces a new teacher to the caller and the teacher
func (s *NotificationService) NotifyTeacherCreated(ctx context.Context, caller *model.User, teacher *model.Teacher) error {
	phone := ""
	if teacher.PhoneNumber != nil {
		phone = *teacher.PhoneNumber
	}

	body := fmt.Sprintf(
		"A new teacher has been added.\nName: %s\nEmail: %s\nPhone: %s\nExperience: %d years",
		teacher.Name, teacher.Email, phone, teacher.Experience,
	)

	var userIDs []uint
	if caller != nil {
		userIDs = append(userIDs, caller.ID)
	}

	return s.send(ctx, mailer.Message{
		To:      TeacherCreatedRecipients(caller, teacher),
		UserIDs: userIDs,
		Subject: subjectTeacherPrefix + teacher.Name,
		Body:    body,
	})
}

func (s *NotificationService) send(ctx context.Context, msg mailer.Message) error {
	if len(msg.Recipients()) == 0 {
		log.Warn().Str("subject", msg.Subject).Msg("notification skipped: no recipients")
		return nil
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		log.Error().Err(err).Str("subject", msg.Subject).Strs("to", msg.Recipients()).Msg("notification failed")
		return fmt.Errorf("%w: %w", ErrNotificationFailed, err)
	}

	log.Info().Str("subject", msg.Subject).Strs("to", msg.Recipients()).Msg("notification sent")
	return nil
}
