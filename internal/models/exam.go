package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	Essay          QuestionType = "essay"
)

const (
	DefaultPassingGrade   = 70
	DefaultMaxAttempts    = 1
	DefaultQuestionPoints = 1
	DefaultEssayMaxLength = 500
)

// DefaultTrueFalseOptions is used when a true/false question is created without options.
var DefaultTrueFalseOptions = []string{"True", "False"}

type Exam struct {
	ID           string    `json:"id" gorm:"primaryKey;type:uuid"`
	Title        string    `json:"title" gorm:"not null;size:200;index"`
	Description  string    `json:"description" gorm:"type:text"`
	Duration     int       `json:"duration" gorm:"not null"`     // minutes
	PassingGrade int       `json:"passingGrade" gorm:"not null"` // percentage
	StartTime    time.Time `json:"startTime" gorm:"not null"`
	EndTime      time.Time `json:"endTime" gorm:"not null"`
	MaxAttempts  int       `json:"maxAttempts" gorm:"not null;default:1"`
	IsActive     bool      `json:"isActive" gorm:"not null;default:true;index"`

	// Frozen at creation, questions are never added afterwards.
	TotalQuestions int `json:"totalQuestions" gorm:"not null;default:0"`

	CreatedBy string `json:"createdBy" gorm:"not null;index;size:255"`

	// Empty array means public. NULL is treated the same way.
	AllowedUsers datatypes.JSONSlice[string] `json:"allowedUsers" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Relations
	Questions []Question `json:"questions" gorm:"foreignKey:ExamID;constraint:OnDelete:CASCADE"`

	// Populated from the user repository, not stored
	Creator            *UserSummary  `json:"creator,omitempty" gorm:"-"`
	AllowedUserDetails []UserSummary `json:"allowedUserDetails,omitempty" gorm:"-"`
}

type Question struct {
	ID            string                      `json:"id" gorm:"primaryKey;type:uuid"`
	ExamID        string                      `json:"-" gorm:"not null;index;type:uuid"`
	Position      int                         `json:"position" gorm:"not null"`
	QuestionText  string                      `json:"questionText" gorm:"type:text;not null"`
	QuestionType  QuestionType                `json:"questionType" gorm:"not null;size:32;default:multiple_choice"`
	Options       datatypes.JSONSlice[string] `json:"options" gorm:"type:jsonb"`
	CorrectAnswer datatypes.JSON              `json:"correctAnswer,omitempty" gorm:"type:jsonb"`
	Points        int                         `json:"points" gorm:"not null;default:1"`
	Explanation   string                      `json:"explanation,omitempty" gorm:"type:text"`
	MaxLength     int                         `json:"maxLength" gorm:"not null;default:500"`
}

func (Exam) TableName() string {
	return "exams"
}

func (Question) TableName() string {
	return "exam_questions"
}

func (e *Exam) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.AllowedUsers == nil {
		e.AllowedUsers = datatypes.JSONSlice[string]{}
	}
	return nil
}

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

// IsPublic reports whether the exam has no allow-list restriction.
func (e *Exam) IsPublic() bool {
	return len(e.AllowedUsers) == 0
}

// Allows reports whether userID appears on the allow-list.
func (e *Exam) Allows(userID string) bool {
	for _, id := range e.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// QuestionByID returns the question with the given id, or nil.
func (e *Exam) QuestionByID(id string) *Question {
	for i := range e.Questions {
		if e.Questions[i].ID == id {
			return &e.Questions[i]
		}
	}
	return nil
}

// TotalPoints sums question weights, counting unset weights as the default.
func (e *Exam) TotalPoints() int {
	total := 0
	for _, q := range e.Questions {
		total += q.Weight()
	}
	return total
}

// Weight returns the question's points, falling back to the default.
func (q *Question) Weight() int {
	if q.Points <= 0 {
		return DefaultQuestionPoints
	}
	return q.Points
}

// Sanitized returns a copy of the exam without answer keys or explanations.
func (e *Exam) Sanitized() *Exam {
	out := *e
	out.Questions = make([]Question, len(e.Questions))
	for i, q := range e.Questions {
		q.CorrectAnswer = nil
		q.Explanation = ""
		out.Questions[i] = q
	}
	return &out
}
