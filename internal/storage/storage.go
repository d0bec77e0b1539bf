package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"interviewhub/backend/internal/analysis"
	"interviewhub/backend/internal/models"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Storage is the persistence boundary of the gateway.
type Storage interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	GetInterviewContext(ctx context.Context, interviewID string) (*models.InterviewContext, error)
	UpdateInterviewStatus(ctx context.Context, interviewID, status string, at time.Time) error

	CreateMessage(ctx context.Context, interviewID, sender, messageType, content string, meta *models.MessageMetadata) (*models.Message, error)
	// ListRecentMessages returns at most limit of the newest messages, oldest first.
	ListRecentMessages(ctx context.Context, interviewID string, limit int) ([]models.Message, error)
	// ListMessagesBefore is ListRecentMessages restricted to IDs below beforeID.
	ListMessagesBefore(ctx context.Context, interviewID string, beforeID uint, limit int) ([]models.Message, error)

	// UpdateCandidateSkills merges newSkills into the candidate's skill list
	// and returns the merged list.
	UpdateCandidateSkills(ctx context.Context, candidateID string, newSkills []string) ([]string, error)
	// UpsertCandidateProfileScores folds sample into the interview's rolling
	// profile, creating it on first use.
	UpsertCandidateProfileScores(ctx context.Context, interviewID, candidateID string, sample models.ProfileScores) (*models.CandidateProfile, error)

	Ping(ctx context.Context) error
}

// Service implements Storage on PostgreSQL (gorm). Redis is optional and only
// checked by Ping; the rate limiter shares the same client.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
	}
}

// AutoMigrate creates or updates every table the gateway uses.
func (s *Service) AutoMigrate() error {
	return s.DB.AutoMigrate(
		&models.User{},
		&models.Candidate{},
		&models.Interview{},
		&models.Message{},
		&models.CandidateProfile{},
	)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *Service) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// SaveUser inserts or updates a user.
func (s *Service) SaveUser(ctx context.Context, user *models.User) error {
	return s.DB.WithContext(ctx).Save(user).Error
}

// SaveCandidate inserts or updates a candidate.
func (s *Service) SaveCandidate(ctx context.Context, c *models.Candidate) error {
	return s.DB.WithContext(ctx).Save(c).Error
}

// SaveInterview inserts or updates an interview.
func (s *Service) SaveInterview(ctx context.Context, iv *models.Interview) error {
	return s.DB.WithContext(ctx).Save(iv).Error
}

func (s *Service) GetInterviewContext(ctx context.Context, interviewID string) (*models.InterviewContext, error) {
	var ic models.InterviewContext
	db := s.DB.WithContext(ctx)
	if err := db.Where("id = ?", interviewID).First(&ic.Interview).Error; err != nil {
		return nil, notFound(err)
	}
	if err := db.Where("id = ?", ic.Interview.CandidateID).First(&ic.Candidate).Error; err != nil {
		return nil, fmt.Errorf("candidate %s for interview %s: %w", ic.Interview.CandidateID, interviewID, notFound(err))
	}
	return &ic, nil
}

// UpdateInterviewStatus sets status and the matching started_at/completed_at.
func (s *Service) UpdateInterviewStatus(ctx context.Context, interviewID, status string, at time.Time) error {
	updates := map[string]interface{}{"status": status}
	switch status {
	case models.InterviewInProgress:
		updates["started_at"] = at
	case models.InterviewCompleted:
		updates["completed_at"] = at
	}
	res := s.DB.WithContext(ctx).Model(&models.Interview{}).Where("id = ?", interviewID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateMessage зберігає повідомлення; ID та CreatedAt призначає база.
func (s *Service) CreateMessage(ctx context.Context, interviewID, sender, messageType, content string, meta *models.MessageMetadata) (*models.Message, error) {
	msg := models.Message{
		InterviewID: interviewID,
		Sender:      sender,
		Type:        messageType,
		Content:     content,
	}
	msg.SetMeta(meta)
	if err := s.DB.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *Service) ListRecentMessages(ctx context.Context, interviewID string, limit int) ([]models.Message, error) {
	return s.listNewest(s.DB.WithContext(ctx).Where("interview_id = ?", interviewID), limit)
}

func (s *Service) ListMessagesBefore(ctx context.Context, interviewID string, beforeID uint, limit int) ([]models.Message, error) {
	return s.listNewest(s.DB.WithContext(ctx).Where("interview_id = ? AND id < ?", interviewID, beforeID), limit)
}

// listNewest loads the newest rows by id and flips them into chronological order.
func (s *Service) listNewest(q *gorm.DB, limit int) ([]models.Message, error) {
	var msgs []models.Message
	if err := q.Order("id desc").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, err
	}
	reverse(msgs)
	return msgs, nil
}

func reverse(msgs []models.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}

func (s *Service) UpdateCandidateSkills(ctx context.Context, candidateID string, newSkills []string) ([]string, error) {
	var merged []string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Candidate
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", candidateID).First(&c).Error; err != nil {
			return notFound(err)
		}
		merged = analysis.MergeSkills(c.Skills, newSkills)
		return tx.Model(&c).Update("skills", pq.StringArray(merged)).Error
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

func (s *Service) UpsertCandidateProfileScores(ctx context.Context, interviewID, candidateID string, sample models.ProfileScores) (*models.CandidateProfile, error) {
	var profile models.CandidateProfile
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The empty row makes the locking read below race-free on first use.
		seed := models.CandidateProfile{InterviewID: interviewID, CandidateID: candidateID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("interview_id = ?", interviewID).First(&profile).Error; err != nil {
			return notFound(err)
		}
		analysis.ApplySample(&profile, sample)
		return tx.Save(&profile).Error
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Ping checks PostgreSQL and, when configured, Redis.
func (s *Service) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if s.Redis != nil {
		if err := s.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}
