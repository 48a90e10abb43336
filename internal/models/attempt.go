package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptExpired    AttemptStatus = "expired"
)

type ExamAttempt struct {
	ID          string        `json:"id" gorm:"primaryKey;type:uuid"`
	ExamID      string        `json:"examId" gorm:"not null;index;type:uuid"`
	UserID      string        `json:"userId" gorm:"not null;index;size:255"`
	Status      AttemptStatus `json:"status" gorm:"not null;default:in_progress;index;size:32"`
	Score       float64       `json:"score" gorm:"not null;default:0"` // percentage
	TimeSpent   int           `json:"timeSpent"`                        // seconds
	StartedAt   time.Time     `json:"startedAt" gorm:"not null"`
	SubmittedAt *time.Time    `json:"submittedAt" gorm:"index"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Relations
	Answers []AttemptAnswer `json:"answers" gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE"`
	Exam    *Exam           `json:"exam,omitempty" gorm:"foreignKey:ExamID"`

	// Populated from the user repository, not stored
	User *UserSummary `json:"user,omitempty" gorm:"-"`
}

// AttemptAnswer is the evaluated answer for one exam question.
type AttemptAnswer struct {
	ID           uint           `json:"-" gorm:"primaryKey"`
	AttemptID    string         `json:"-" gorm:"not null;index;type:uuid"`
	Position     int            `json:"-" gorm:"not null"`
	QuestionID   string         `json:"questionId" gorm:"not null;type:uuid"`
	Answer       datatypes.JSON `json:"answer" gorm:"type:jsonb"` // null when unanswered
	IsCorrect    bool           `json:"isCorrect"`
	QuestionType QuestionType   `json:"questionType" gorm:"size:32"`
}

func (ExamAttempt) TableName() string {
	return "exam_attempts"
}

func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}

func (a *ExamAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// DeadlineFor returns when the attempt's time allowance runs out.
func (a *ExamAttempt) DeadlineFor(exam *Exam) time.Time {
	return a.StartedAt.Add(time.Duration(exam.Duration) * time.Minute)
}
