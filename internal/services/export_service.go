package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/docuhub/exam-service/internal/models"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

var resultColumns = []string{
	"Attempt ID", "User ID", "Name", "Email", "Status", "Score (%)", "Passed",
	"Correct Answers", "Questions", "Time Spent (s)", "Started At", "Submitted At",
}

type exportService struct {
	exams    ExamService
	attempts AttemptService
	logger   *slog.Logger
}

func NewExportService(exams ExamService, attempts AttemptService, logger *slog.Logger) ExportService {
	return &exportService{
		exams:    exams,
		attempts: attempts,
		logger:   logger,
	}
}

// ExportExamResults writes one row per attempt to an xlsx workbook
func (s *exportService) ExportExamResults(ctx context.Context, examID string, caller *models.User) (*ExportFile, error) {
	results, err := s.attempts.ListExamResults(ctx, examID, caller)
	if err != nil {
		return nil, err
	}
	exam, err := s.exams.Get(ctx, examID, caller)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.WarnContext(ctx, "Failed to close workbook", "error", err)
		}
	}()

	const sheet = "Results"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	for col, header := range resultColumns {
		if err := setCell(f, sheet, col, 1, header); err != nil {
			return nil, err
		}
	}

	for i, r := range results {
		row := i + 2
		values := resultRow(r, exam.TotalQuestions)
		for col, v := range values {
			if err := setCell(f, sheet, col, row, v); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	s.logger.InfoContext(ctx, "Exam results exported", "exam_id", examID, "rows", len(results))

	return &ExportFile{
		Filename:    exportFilename(exam.Title),
		ContentType: xlsxContentType,
		Data:        buf.Bytes(),
	}, nil
}

func resultRow(r *AttemptResult, totalQuestions int) []interface{} {
	var name, email string
	if r.User != nil {
		name, email = r.User.Name, r.User.Email
	}

	correct := 0
	for _, a := range r.Answers {
		if a.IsCorrect {
			correct++
		}
	}

	submitted := ""
	if r.SubmittedAt != nil {
		submitted = r.SubmittedAt.UTC().Format(time.RFC3339)
	}

	return []interface{}{
		r.ID,
		r.UserID,
		name,
		email,
		string(r.Status),
		r.Score,
		r.Passed,
		correct,
		totalQuestions,
		r.TimeSpent,
		r.StartedAt.UTC().Format(time.RFC3339),
		submitted,
	}
}

func setCell(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return fmt.Errorf("invalid cell coordinates: %w", err)
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("failed to set cell %s: %w", cell, err)
	}
	return nil
}

func exportFilename(title string) string {
	base := strings.Trim(unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(title), "_"), "_")
	if base == "" {
		base = "exam"
	}
	return fmt.Sprintf("%s_results.xlsx", strings.ToLower(base))
}
