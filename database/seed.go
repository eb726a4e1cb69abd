package database

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sahilchouksey/dars-api/model"
	"github.com/sahilchouksey/dars-api/utils/auth"
	"gorm.io/gorm"
)

// SeedConfig holds the credentials of the demo account created by the seeder
type SeedConfig struct {
	Username string
	Email    string
	Password string
}

// Seeder handles database seeding operations
type Seeder struct {
	db     *gorm.DB
	config SeedConfig
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, config SeedConfig) *Seeder {
	return &Seeder{db: db, config: config}
}

// RunSeeds seeds demo data. Every step is skipped when its rows already exist.
func RunSeeds(db *gorm.DB, config SeedConfig) error {
	return NewSeeder(db, config).SeedAll()
}

// SeedAll runs all seed functions in foreign key order
func (s *Seeder) SeedAll() error {
	log.Info().Msg("Starting database seeding...")

	author, err := s.SeedUser()
	if err != nil {
		return fmt.Errorf("failed to seed user: %w", err)
	}
	if author == nil {
		log.Warn().Msg("SEED_USERNAME, SEED_EMAIL and SEED_PASSWORD not set, skipping demo data")
		return nil
	}

	if err := s.SeedCourses(author); err != nil {
		return fmt.Errorf("failed to seed courses: %w", err)
	}

	if err := s.SeedTeachers(); err != nil {
		return fmt.Errorf("failed to seed teachers: %w", err)
	}

	if err := s.SeedGroups(); err != nil {
		return fmt.Errorf("failed to seed course groups: %w", err)
	}

	log.Info().Msg("Database seeding completed successfully!")
	return nil
}

// SeedUser creates the demo account, or returns it when it already exists.
// It returns nil when no credentials are configured.
func (s *Seeder) SeedUser() (*model.User, error) {
	if s.config.Username == "" || s.config.Email == "" || s.config.Password == "" {
		return nil, nil
	}

	var user model.User
	err := s.db.Where("username = ?", s.config.Username).First(&user).Error
	if err == nil {
		log.Info().Str("username", user.Username).Msg("Demo user already exists, skipping...")
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(s.config.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user = model.User{
		Username:     s.config.Username,
		Email:        s.config.Email,
		FirstName:    "Demo",
		LastName:     "Author",
		PasswordHash: passwordHash,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}

	log.Info().Str("username", user.Username).Msg("Created demo user")
	return &user, nil
}

// SeedCourses creates sample courses authored by author
func (s *Seeder) SeedCourses(author *model.User) error {
	var count int64
	if err := s.db.Model(&model.Course{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Info().Msg("Courses already exist, skipping...")
		return nil
	}

	courses := []model.Course{
		{Title: "Python Backend", Description: "Web services with Python, from routing to deployment.", AuthorID: author.ID},
		{Title: "Frontend Basics", Description: "HTML, CSS and JavaScript fundamentals.", AuthorID: author.ID},
		{Title: "Go for Beginners", Description: "Types, goroutines and the standard library.", AuthorID: author.ID},
	}
	if err := s.db.Create(&courses).Error; err != nil {
		return err
	}

	log.Info().Int("count", len(courses)).Msg("Created courses")
	return nil
}

// SeedTeachers creates sample teacher profiles
func (s *Seeder) SeedTeachers() error {
	var count int64
	if err := s.db.Model(&model.Teacher{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Info().Msg("Teachers already exist, skipping...")
		return nil
	}

	phone := "+998901234567"
	teachers := []model.Teacher{
		{Name: "Aziz Karimov", Email: "aziz@example.com", PhoneNumber: &phone, Experience: 8, IsWorking: true},
		{Name: "Dilnoza Rahimova", Email: "dilnoza@example.com", Experience: 3, IsWorking: true},
	}
	if err := s.db.Create(&teachers).Error; err != nil {
		return err
	}

	log.Info().Int("count", len(teachers)).Msg("Created teachers")
	return nil
}

// SeedGroups creates course groups with a few lessons each
func (s *Seeder) SeedGroups() error {
	var count int64
	if err := s.db.Model(&model.CourseGroup{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Info().Msg("Course groups already exist, skipping...")
		return nil
	}

	groups := map[string][]string{
		"Python Backend - Morning": {"Setting up the project", "Routing and views", "Working with the database"},
		"Go for Beginners - Evening": {"Hello, Go", "Slices and maps", "Goroutines and channels"},
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		for name, titles := range groups {
			group := model.CourseGroup{Name: name}
			if err := tx.Create(&group).Error; err != nil {
				return err
			}

			lessons := make([]model.Lesson, 0, len(titles))
			for _, title := range titles {
				lessons = append(lessons, model.Lesson{CourseGroupID: group.ID, Title: title})
			}
			if err := tx.Create(&lessons).Error; err != nil {
				return err
			}
			log.Info().Str("group", name).Int("lessons", len(lessons)).Msg("Created course group")
		}
		return nil
	})
}
