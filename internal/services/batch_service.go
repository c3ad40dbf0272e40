package services

import (
	"context"
	"fmt"
	"student-taskgen/internal/models"
)

// ProgressFunc receives the number of processed rows after each student.
type ProgressFunc func(completed, total int)

// BatchResult collects the outcome of one run over a roster. A failed student
// contributes an error string instead of a record, so
// len(Results)+len(Errors) always equals the roster size.
type BatchResult struct {
	Results []models.TaskRecord
	Errors  []string
}

// BatchService drives the generator once per roster row.
type BatchService struct {
	generator *GeneratorService
}

// NewBatchService creates a new batch service
func NewBatchService(generator *GeneratorService) *BatchService {
	return &BatchService{generator: generator}
}

// Run iterates the students in input order, strictly sequentially: one
// outstanding remote call at a time keeps rate limits and caching behavior
// deterministic. One student's failure never aborts the batch; the error is
// recorded with the student's display identity and the loop continues.
func (s *BatchService) Run(ctx context.Context, documentText string, students []models.Student, opts GenerationOptions, progress ProgressFunc) BatchResult {
	var result BatchResult
	usedTitles := NewUsedTitleSet()
	total := len(students)

	for i, student := range students {
		record, err := s.generator.Generate(ctx, documentText, student, opts, usedTitles)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s (%s): %v", student.Name, student.LocalizedRole, err))
		} else {
			result.Results = append(result.Results, record)
		}

		if progress != nil {
			progress(i+1, total)
		}
	}

	return result
}
