package services

import (
	"github.com/docuhub/exam-service/internal/models"
	"github.com/docuhub/exam-service/internal/repositories"
)

// CanView reports whether the caller may see an exam. Admins see everything,
// others see public exams and exams listing them.
func CanView(exam *models.Exam, caller *models.User) bool {
	if caller.IsAdmin() {
		return true
	}
	return exam.IsPublic() || exam.Allows(caller.ID)
}

// examFiltersFor builds the listing filter for a caller
func examFiltersFor(caller *models.User) repositories.ExamFilters {
	filters := repositories.ExamFilters{ActiveOnly: true}
	if !caller.IsAdmin() {
		id := caller.ID
		filters.VisibleTo = &id
	}
	return filters
}

// viewFor returns the exam as the caller may see it
func viewFor(exam *models.Exam, caller *models.User) *models.Exam {
	if caller.IsAdmin() {
		return exam
	}
	return exam.Sanitized()
}

func requireCaller(caller *models.User) error {
	if caller == nil || caller.ID == "" {
		return ErrUnauthenticatedCaller
	}
	return nil
}

func requireAdmin(caller *models.User, resourceID, resource, action string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if !caller.IsAdmin() {
		return NewPermissionError(caller.ID, resourceID, resource, action, ErrInsufficientRole.Error())
	}
	return nil
}
