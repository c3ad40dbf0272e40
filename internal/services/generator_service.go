package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"student-taskgen/internal/config"
	"student-taskgen/internal/models"
	"student-taskgen/internal/utils"
	"student-taskgen/internal/validation"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// GenerationError reports a failed generation for a single student. RawText
// carries the model's unmodified answer for diagnostics.
type GenerationError struct {
	Student string
	Role    string
	RawText string
	Err     error
}

func (e *GenerationError) Error() string {
	if e.RawText != "" {
		return fmt.Sprintf("task generation failed for %s: %v (raw answer: %s)", e.Student, e.Err, e.RawText)
	}
	return fmt.Sprintf("task generation failed for %s: %v", e.Student, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// GenerationOptions carries the per-run model settings.
type GenerationOptions struct {
	APIKey string
	Model  string
	Mode   models.OutputMode
}

// GeneratorService produces one normalized task record per student by querying
// the Mistral chat-completion endpoint and post-processing its answer.
type GeneratorService struct {
	cfg        config.MistralConfig
	schemaPath string
	cache      *TaskCache
	httpClient *http.Client
}

// NewGeneratorService creates a new generator service. The schema at
// schemaPath is used to validate strict-mode answers.
func NewGeneratorService(cfg config.MistralConfig, schemaPath string) *GeneratorService {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	return &GeneratorService{
		cfg:        cfg,
		schemaPath: schemaPath,
		cache:      NewTaskCache(),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Cache exposes the memoization cache, mainly for tests and diagnostics.
func (s *GeneratorService) Cache() *TaskCache {
	return s.cache
}

// Generate produces one task record for a student. The answer is memoized by
// request fingerprint: a repeated call with the same document prefix, student
// and model returns the cached record without a remote call. usedTitles may be
// nil when no cross-student deduplication is wanted.
func (s *GeneratorService) Generate(ctx context.Context, documentText string, student models.Student, opts GenerationOptions, usedTitles *UsedTitleSet) (models.TaskRecord, error) {
	if opts.APIKey == "" {
		return models.TaskRecord{}, &GenerationError{
			Student: student.Name,
			Role:    student.LocalizedRole,
			Err:     fmt.Errorf("mistral API key is not set"),
		}
	}

	key := CacheKey(documentText, student.Name, student.LocalizedRole, opts.Model, opts.Mode)
	if record, ok := s.cache.Get(key); ok {
		dedupTitle(&record, student.LocalizedRole, usedTitles)
		return record, nil
	}

	raw, err := s.callModel(ctx, documentText, student, opts)
	if err != nil {
		return models.TaskRecord{}, &GenerationError{
			Student: student.Name,
			Role:    student.LocalizedRole,
			Err:     err,
		}
	}

	payload, err := s.parseAnswer(raw, opts.Mode)
	if err != nil {
		return models.TaskRecord{}, &GenerationError{
			Student: student.Name,
			Role:    student.LocalizedRole,
			RawText: raw,
			Err:     err,
		}
	}

	record := normalizeRecord(payload, student, opts.Mode)
	s.cache.Put(key, record)

	dedupTitle(&record, student.LocalizedRole, usedTitles)
	return record, nil
}

// callModel issues one synchronous chat-completion request and returns the
// model's raw text answer. Non-success statuses and transport failures are
// fatal for this student; there is no retry.
func (s *GeneratorService) callModel(ctx context.Context, documentText string, student models.Student, opts GenerationOptions) (string, error) {
	clientConfig := openai.DefaultConfig(opts.APIKey)
	clientConfig.BaseURL = s.cfg.BaseURL
	clientConfig.HTTPClient = s.httpClient
	client := openai.NewClientWithConfig(clientConfig)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt(opts.Mode)},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(documentText, student, opts.Mode)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("mistral request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("mistral response contains no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// parseAnswer turns the raw text answer into a generic payload map. Extended
// mode recovers the first brace-delimited span from noisy text; strict mode
// requires a bare JSON object and validates it against the task schema.
func (s *GeneratorService) parseAnswer(raw string, mode models.OutputMode) (map[string]interface{}, error) {
	if mode == models.ModeStrict {
		return validation.ValidateAndParseTask(raw, s.schemaPath)
	}

	candidate := utils.ExtractJSONObject(raw)
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		return nil, fmt.Errorf("answer is not a JSON object: %w", err)
	}
	return payload, nil
}

// normalizeRecord builds the final record from the parsed payload.
//
// Role, executor and author are identity fields the caller already knows
// authoritatively, so they are always overwritten no matter what the model
// answered. Out-of-enum status and priority values are reset to defaults, and
// title/description are flattened to single lines.
func normalizeRecord(payload map[string]interface{}, student models.Student, mode models.OutputMode) models.TaskRecord {
	record := models.TaskRecord{
		Title:       utils.FlattenLine(stringField(payload, "title")),
		Description: utils.FlattenLine(stringField(payload, "description")),
		Role:        student.LocalizedRole,
		Executor:    student.Name,
		Author:      models.AuthorAI,
	}

	if mode == models.ModeStrict {
		record.Status = models.StatusTodo
		return record
	}

	record.Status = stringField(payload, "status")
	if !models.ValidStatus(record.Status) {
		record.Status = models.StatusNew
	}
	record.Priority = stringField(payload, "priority")
	if !models.ValidPriority(record.Priority) {
		record.Priority = models.PriorityMedium
	}
	return record
}

// dedupTitle disambiguates a record whose (title, description) pair was
// already produced for another student in this batch by suffixing the role in
// brackets, then records the final pair.
func dedupTitle(record *models.TaskRecord, role string, usedTitles *UsedTitleSet) {
	if usedTitles == nil {
		return
	}
	if usedTitles.Contains(record.Title, record.Description) {
		record.Title = fmt.Sprintf("%s [%s]", record.Title, role)
	}
	usedTitles.Add(record.Title, record.Description)
}

func stringField(payload map[string]interface{}, key string) string {
	if value, ok := payload[key].(string); ok {
		return value
	}
	return ""
}
