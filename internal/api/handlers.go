package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"student-taskgen/internal/config"
	"student-taskgen/internal/docx"
	"student-taskgen/internal/models"
	"student-taskgen/internal/roster"
	"student-taskgen/internal/services"

	"github.com/gin-gonic/gin"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	batchService  *services.BatchService
	runService    *services.RunService
	exportService *services.ExportService
	cfg           *config.Config
}

// NewHandlers creates a new handlers instance
func NewHandlers(
	batchService *services.BatchService,
	runService *services.RunService,
	exportService *services.ExportService,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		batchService:  batchService,
		runService:    runService,
		exportService: exportService,
		cfg:           cfg,
	}
}

// generateInput holds everything parsed from a multipart generate request.
type generateInput struct {
	DocumentText string
	Students     []models.Student
	Options      services.GenerationOptions
}

// parseGenerateRequest reads the uploaded document and roster and resolves the
// model settings. Document, roster and credential problems are reported here,
// before any remote call is made.
func (h *Handlers) parseGenerateRequest(c *gin.Context) (*generateInput, error) {
	documentText, err := h.readDocument(c)
	if err != nil {
		return nil, err
	}

	students, err := h.readRoster(c)
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(c.PostForm("api_key"))
	if apiKey == "" {
		apiKey = h.cfg.Mistral.APIKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("mistral API key is not set: pass api_key or set MISTRAL_API_KEY")
	}

	model := strings.TrimSpace(c.PostForm("model"))
	if model == "" {
		model = h.cfg.Mistral.Model
	}

	mode := h.cfg.DefaultMode
	if m := strings.TrimSpace(c.PostForm("mode")); m != "" {
		mode = models.OutputMode(m)
		if !models.ValidOutputMode(mode) {
			return nil, fmt.Errorf("unknown output mode %q", m)
		}
	}

	return &generateInput{
		DocumentText: documentText,
		Students:     students,
		Options: services.GenerationOptions{
			APIKey: apiKey,
			Model:  model,
			Mode:   mode,
		},
	}, nil
}

func (h *Handlers) readDocument(c *gin.Context) (string, error) {
	header, err := c.FormFile("document")
	if err != nil {
		return "", fmt.Errorf("document file is required: %w", err)
	}

	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open document: %w", err)
	}
	defer file.Close()

	text, err := docx.ExtractText(file, header.Size)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	if text == "" {
		return "", fmt.Errorf("document contains no paragraph text")
	}
	return text, nil
}

func (h *Handlers) readRoster(c *gin.Context) ([]models.Student, error) {
	header, err := c.FormFile("roster")
	if err != nil {
		return nil, fmt.Errorf("roster file is required: %w", err)
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open roster: %w", err)
	}
	defer file.Close()

	students, err := roster.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}
	return students, nil
}

// GenerateHandler handles POST /api/tasks/generate
//
// Starts a run and returns its ID immediately; the roster is processed by a
// single goroutine, one remote call at a time, while the client polls the
// status endpoint for progress.
func (h *Handlers) GenerateHandler(c *gin.Context) {
	input, err := h.parseGenerateRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run := h.runService.CreateRun(len(input.Students), input.Options.Mode)

	go func() {
		_ = h.runService.UpdateRunStatus(run.ID, models.RunStatusProcessing)

		result := h.batchService.Run(context.Background(), input.DocumentText, input.Students, input.Options,
			func(completed, total int) {
				_ = h.runService.SetRunProgress(run.ID, completed, total)
			})

		_ = h.runService.SetRunResult(run.ID, result)
	}()

	c.JSON(http.StatusAccepted, models.RunResponse{
		RunID:  run.ID,
		Status: string(run.Status),
	})
}

// GenerateSyncHandler handles POST /api/tasks/generate-sync
// Processes the whole roster before answering.
func (h *Handlers) GenerateSyncHandler(c *gin.Context) {
	input, err := h.parseGenerateRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.batchService.Run(c.Request.Context(), input.DocumentText, input.Students, input.Options, nil)

	c.JSON(http.StatusOK, models.BatchResponse{
		Total:     len(input.Students),
		Succeeded: len(result.Results),
		Results:   result.Results,
		Errors:    result.Errors,
	})
}

// GetRunStatusHandler handles GET /api/tasks/status/:runId
func (h *Handlers) GetRunStatusHandler(c *gin.Context) {
	runID := c.Param("runId")

	run, err := h.runService.GetRun(runID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, run)
}

// ExportRunHandler handles GET /api/tasks/export/:runId
// Serves the results of a completed run as a CSV download.
func (h *Handlers) ExportRunHandler(c *gin.Context) {
	runID := c.Param("runId")

	run, err := h.runService.GetRun(runID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if run.Status != models.RunStatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("run %s is %s, not completed", runID, run.Status)})
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", services.ExportFileName))

	if err := h.exportService.WriteCSV(c.Writer, run.Results, run.Mode); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
}
