package services

import (
	"fmt"
	"student-taskgen/internal/models"
	"student-taskgen/internal/utils"
	"sync"
	"time"
)

// RunService tracks batch generation runs in memory so the browser can poll
// progress while the single worker goroutine processes the roster. Runs live
// until process restart.
type RunService struct {
	runs  map[string]*models.Run
	mutex sync.RWMutex
}

// NewRunService creates a new run service
func NewRunService() *RunService {
	return &RunService{
		runs: make(map[string]*models.Run),
	}
}

// CreateRun registers a new pending run for a roster of the given size.
func (s *RunService) CreateRun(total int, mode models.OutputMode) *models.Run {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	runID := utils.GenerateUUID()
	now := time.Now()

	run := &models.Run{
		ID:        runID,
		Status:    models.RunStatusPending,
		Mode:      mode,
		Total:     total,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.runs[runID] = run
	snapshot := *run
	return &snapshot
}

// GetRun retrieves a snapshot of a run by ID
func (s *RunService) GetRun(runID string) (*models.Run, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	run, exists := s.runs[runID]
	if !exists {
		return nil, fmt.Errorf("run not found: %s", runID)
	}

	snapshot := *run
	return &snapshot, nil
}

// UpdateRunStatus updates the status of a run
func (s *RunService) UpdateRunStatus(runID string, status models.RunStatus) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	run, exists := s.runs[runID]
	if !exists {
		return fmt.Errorf("run not found: %s", runID)
	}

	run.Status = status
	run.UpdatedAt = time.Now()
	return nil
}

// SetRunProgress records fractional progress after one roster row.
func (s *RunService) SetRunProgress(runID string, completed, total int) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	run, exists := s.runs[runID]
	if !exists {
		return fmt.Errorf("run not found: %s", runID)
	}

	run.Completed = completed
	if total > 0 {
		run.Progress = float64(completed) / float64(total)
	}
	run.UpdatedAt = time.Now()
	return nil
}

// SetRunResult stores the completed batch outcome in a run.
func (s *RunService) SetRunResult(runID string, result BatchResult) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	run, exists := s.runs[runID]
	if !exists {
		return fmt.Errorf("run not found: %s", runID)
	}

	run.Status = models.RunStatusCompleted
	run.Results = result.Results
	run.Errors = result.Errors
	run.UpdatedAt = time.Now()
	return nil
}

// SetRunError marks a run as failed with an error message
func (s *RunService) SetRunError(runID string, err error) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	run, exists := s.runs[runID]
	if !exists {
		return fmt.Errorf("run not found: %s", runID)
	}

	run.Status = models.RunStatusFailed
	run.Error = err.Error()
	run.UpdatedAt = time.Now()
	return nil
}

// DeleteRun removes a run from memory
func (s *RunService) DeleteRun(runID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.runs, runID)
}
