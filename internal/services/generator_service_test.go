package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"student-taskgen/internal/config"
	"student-taskgen/internal/models"
	"testing"
)

const testSchemaPath = "../../schemas/task_schema.json"

// fakeModelServer serves the chat-completion response envelope. respond maps
// the user prompt to an HTTP status and the assistant's raw text answer.
func fakeModelServer(t *testing.T, respond func(userPrompt string) (int, string)) (*httptest.Server, *int) {
	t.Helper()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		userPrompt := ""
		for _, msg := range req.Messages {
			if msg.Role == "user" {
				userPrompt = msg.Content
			}
		}

		status, content := respond(userPrompt)
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream failure","type":"server_error"}}`))
			return
		}

		envelope := map[string]interface{}{
			"id":      "cmpl-test",
			"object":  "chat.completion",
			"created": 0,
			"model":   req.Model,
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]string{"role": "assistant", "content": content},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(envelope)
	}))
	t.Cleanup(server.Close)

	return server, &calls
}

func newTestGenerator(baseURL string) *GeneratorService {
	cfg := config.MistralConfig{
		BaseURL:        baseURL,
		Model:          "mistral-small",
		TimeoutSeconds: 5,
	}
	return NewGeneratorService(cfg, testSchemaPath)
}

func testOptions(mode models.OutputMode) GenerationOptions {
	return GenerationOptions{APIKey: "test-key", Model: "mistral-small", Mode: mode}
}

func analystStudent() models.Student {
	return models.Student{Name: "Иван Иванов", Role: "Analyst", LocalizedRole: "Аналитик"}
}

func TestGenerateForcesIdentityFields(t *testing.T) {
	// The model answers with wrong identity fields and out-of-enum
	// status/priority; normalization must overwrite all of them.
	answer := `{"title":"Собрать требования","description":"Изучить ТЗ","status":"done","priority":"urgent","role":"Директор","executor":"Кто-то другой","author":"человек"}`
	server, _ := fakeModelServer(t, func(string) (int, string) { return http.StatusOK, answer })

	svc := newTestGenerator(server.URL)
	record, err := svc.Generate(context.Background(), "Build a reporting dashboard", analystStudent(), testOptions(models.ModeExtended), nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if record.Role != "Аналитик" {
		t.Fatalf("role not forced: %q", record.Role)
	}
	if record.Executor != "Иван Иванов" {
		t.Fatalf("executor not forced: %q", record.Executor)
	}
	if record.Author != models.AuthorAI {
		t.Fatalf("author not forced: %q", record.Author)
	}
	if record.Status != models.StatusNew {
		t.Fatalf("invalid status not reset to new: %q", record.Status)
	}
	if record.Priority != models.PriorityMedium {
		t.Fatalf("invalid priority not reset to medium: %q", record.Priority)
	}
}

func TestGenerateKeepsValidEnums(t *testing.T) {
	answer := `{"title":"Собрать требования","description":"Изучить ТЗ","status":"in_progress","priority":"high"}`
	server, _ := fakeModelServer(t, func(string) (int, string) { return http.StatusOK, answer })

	svc := newTestGenerator(server.URL)
	record, err := svc.Generate(context.Background(), "doc", analystStudent(), testOptions(models.ModeExtended), nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if record.Status != models.StatusInProgress {
		t.Fatalf("valid status was reset: %q", record.Status)
	}
	if record.Priority != models.PriorityHigh {
		t.Fatalf("valid priority was reset: %q", record.Priority)
	}
}

func TestGenerateStripsEmbeddedNewlines(t *testing.T) {
	answer := `{"title":"Первая\nстрока","description":"Строка раз\r\nСтрока два","status":"new","priority":"low"}`
	server, _ := fakeModelServer(t, func(string) (int, string) { return http.StatusOK, answer })

	svc := newTestGenerator(server.URL)
	record, err := svc.Generate(context.Background(), "doc", analystStudent(), testOptions(models.ModeExtended), nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if strings.ContainsAny(record.Title, "\r\n") {
		t.Fatalf("title still contains line breaks: %q", record.Title)
	}
	if strings.ContainsAny(record.Description, "\r\n") {
		t.Fatalf("description still contains line breaks: %q", record.Description)
	}
}

func TestGenerateExtractsObjectFromProse(t *testing.T) {
	answer := "Here is the task:\n{\"title\":\"X\",\"description\":\"Y\",\"status\":\"new\",\"priority\":\"low\"}\nThanks"
	server, _ := fakeModelServer(t, func(string) (int, string) { return http.StatusOK, answer })

	svc := newTestGenerator(server.URL)
	record, err := svc.Generate(context.Background(), "doc", analystStudent(), testOptions(models.ModeExtended), nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if record.Title != "X" || record.Description != "Y" {
		t.Fatalf("unexpected record from wrapped answer: %+v", record)
	}
}

func TestGenerateUnparseableAnswer(t *testing.T) {
	server, _ := fakeModelServer(t, func(string) (int, string) { return http.StatusOK, "sorry, no json today" })

	svc := newTestGenerator(server.URL)
	_, err := svc.Generate(context.Background(), "doc", analystStudent(), testOptions(models.ModeExtended), nil)
	if err == nil {
		t.Fatal("expected error for an unparseable answer")
	}

	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %T", err)
	}
	if genErr.Student != "Иван Иванов" {
		t.Fatalf("error must name the student, got %q", genErr.Student)
	}
	if genErr.RawText != "sorry, no json today" {
		t.Fatalf("error must carry the raw answer, got %q", genErr.RawText)
	}
}

func TestGenerateStrictRejectsWrappedAnswer(t *testing.T) {
	// The same prose-wrapped input that extended mode recovers must fail
	// in strict mode: it requires a bare JSON object.
	answer := "Here is the task:\n{\"title\":\"X\",\"description\":\"Y\",\"status\":\"Todo\",\"role\":\"Аналитик\",\"executor\":\"Иван Иванов\",\"author\":\"AI\"}\nThanks"
	server, _ := fakeModelServer(t, func(string) (int, string) { return http.StatusOK, answer })

	svc := newTestGenerator(server.URL)
	if _, err := svc.Generate(context.Background(), "doc", analystStudent(), testOptions(models.ModeStrict), nil); err == nil {
		t.Fatal("strict mode accepted a prose-wrapped answer")
	}
}

func TestGenerateStrictRequiresAllFields(t *testing.T) {
	answer := `{"title":"X","description":"Y","status":"Todo"}`
	server, _ := fakeModelServer(t, func(string) (int, string) { return http.StatusOK, answer })

	svc := newTestGenerator(server.URL)
	_, err := svc.Generate(context.Background(), "doc", analystStudent(), testOptions(models.ModeStrict), nil)
	if err == nil {
		t.Fatal("strict mode accepted an answer with missing fields")
	}
	if !strings.Contains(err.Error(), "Иван Иванов") {
		t.Fatalf("error must name the student: %v", err)
	}
}

func TestGenerateStrictForcesTodoStatus(t *testing.T) {
	answer := `{"title":"X","description":"Y","status":"new","role":"Директор","executor":"Кто-то","author":"человек"}`
	server, _ := fakeModelServer(t, func(string) (int, string) { return http.StatusOK, answer })

	svc := newTestGenerator(server.URL)
	record, err := svc.Generate(context.Background(), "doc", analystStudent(), testOptions(models.ModeStrict), nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if record.Status != models.StatusTodo {
		t.Fatalf("strict status must be Todo, got %q", record.Status)
	}
	if record.Priority != "" {
		t.Fatalf("strict records carry no priority, got %q", record.Priority)
	}
	if record.Role != "Аналитик" || record.Executor != "Иван Иванов" || record.Author != models.AuthorAI {
		t.Fatalf("identity fields not forced in strict mode: %+v", record)
	}
}

func TestGenerateMemoizesIdenticalRequests(t *testing.T) {
	answer := `{"title":"X","description":"Y","status":"new","priority":"low"}`
	server, calls := fakeModelServer(t, func(string) (int, string) { return http.StatusOK, answer })

	svc := newTestGenerator(server.URL)
	opts := testOptions(models.ModeExtended)

	first, err := svc.Generate(context.Background(), "doc", analystStudent(), opts, nil)
	if err != nil {
		t.Fatalf("first Generate failed: %v", err)
	}
	second, err := svc.Generate(context.Background(), "doc", analystStudent(), opts, nil)
	if err != nil {
		t.Fatalf("second Generate failed: %v", err)
	}

	if *calls != 1 {
		t.Fatalf("expected exactly one remote call, got %d", *calls)
	}
	if first != second {
		t.Fatalf("cache hit returned a different record:\nfirst  %+v\nsecond %+v", first, second)
	}
}

func TestGenerateDoesNotShareCacheAcrossModes(t *testing.T) {
	// The two modes shape records differently, so a record memoized for
	// one mode must never answer a request in the other: same document,
	// student and model, different mode, means a fresh remote call.
	answer := `{"title":"X","description":"Y","status":"new","priority":"low","role":"Аналитик","executor":"Иван Иванов","author":"AI"}`
	server, calls := fakeModelServer(t, func(string) (int, string) { return http.StatusOK, answer })

	svc := newTestGenerator(server.URL)

	extended, err := svc.Generate(context.Background(), "doc", analystStudent(), testOptions(models.ModeExtended), nil)
	if err != nil {
		t.Fatalf("extended Generate failed: %v", err)
	}
	if extended.Status != models.StatusNew || extended.Priority != models.PriorityLow {
		t.Fatalf("unexpected extended record: %+v", extended)
	}

	strict, err := svc.Generate(context.Background(), "doc", analystStudent(), testOptions(models.ModeStrict), nil)
	if err != nil {
		t.Fatalf("strict Generate failed: %v", err)
	}

	if *calls != 2 {
		t.Fatalf("strict request must not be served from the extended cache entry, got %d remote calls", *calls)
	}
	if strict.Status != models.StatusTodo {
		t.Fatalf("strict record must carry status Todo, got %q", strict.Status)
	}
	if strict.Priority != "" {
		t.Fatalf("strict records carry no priority, got %q", strict.Priority)
	}

	// Repeats within each mode still hit their own entries
	if _, err := svc.Generate(context.Background(), "doc", analystStudent(), testOptions(models.ModeExtended), nil); err != nil {
		t.Fatalf("repeated extended Generate failed: %v", err)
	}
	if _, err := svc.Generate(context.Background(), "doc", analystStudent(), testOptions(models.ModeStrict), nil); err != nil {
		t.Fatalf("repeated strict Generate failed: %v", err)
	}
	if *calls != 2 {
		t.Fatalf("expected repeats to be memoized per mode, got %d remote calls", *calls)
	}
}

func TestGenerateStrictValidatesAfterExtendedWarmup(t *testing.T) {
	// A prose-wrapped answer that extended mode recovers must still be
	// rejected by strict mode for the identical inputs: the strict
	// request reaches the remote endpoint and runs schema validation
	// instead of replaying the extended record.
	answer := "Here is the task:\n{\"title\":\"X\",\"description\":\"Y\",\"status\":\"new\",\"priority\":\"low\"}\nThanks"
	server, calls := fakeModelServer(t, func(string) (int, string) { return http.StatusOK, answer })

	svc := newTestGenerator(server.URL)

	if _, err := svc.Generate(context.Background(), "doc", analystStudent(), testOptions(models.ModeExtended), nil); err != nil {
		t.Fatalf("extended Generate failed: %v", err)
	}

	_, err := svc.Generate(context.Background(), "doc", analystStudent(), testOptions(models.ModeStrict), nil)
	if err == nil {
		t.Fatal("strict mode accepted a prose-wrapped answer via the cache")
	}
	if *calls != 2 {
		t.Fatalf("strict request must issue its own remote call, got %d", *calls)
	}

	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %T", err)
	}
}

func TestGenerateDeduplicatesTitles(t *testing.T) {
	// Both students get the same (title, description) back; the second
	// record must be disambiguated with its role in brackets.
	answer := `{"title":"Собрать требования","description":"Одно и то же","status":"new","priority":"low"}`
	server, _ := fakeModelServer(t, func(string) (int, string) { return http.StatusOK, answer })

	svc := newTestGenerator(server.URL)
	opts := testOptions(models.ModeExtended)
	usedTitles := NewUsedTitleSet()

	first, err := svc.Generate(context.Background(), "doc", analystStudent(), opts, usedTitles)
	if err != nil {
		t.Fatalf("first Generate failed: %v", err)
	}

	tester := models.Student{Name: "Мария Петрова", Role: "Tester", LocalizedRole: "Тестировщик"}
	second, err := svc.Generate(context.Background(), "doc", tester, opts, usedTitles)
	if err != nil {
		t.Fatalf("second Generate failed: %v", err)
	}

	if first.Title != "Собрать требования" {
		t.Fatalf("first title must stay unchanged, got %q", first.Title)
	}
	if second.Title != "Собрать требования [Тестировщик]" {
		t.Fatalf("second title must carry the role suffix, got %q", second.Title)
	}
	if usedTitles.Len() != 2 {
		t.Fatalf("expected 2 distinct pairs recorded, got %d", usedTitles.Len())
	}
}

func TestGenerateDeduplicatesOnCacheHit(t *testing.T) {
	// A cache hit must still run the current batch's dedup pass: the
	// cached entry keeps its original title while the returned copy gets
	// the suffix.
	answer := `{"title":"X","description":"Y","status":"new","priority":"low"}`
	server, calls := fakeModelServer(t, func(string) (int, string) { return http.StatusOK, answer })

	svc := newTestGenerator(server.URL)
	opts := testOptions(models.ModeExtended)

	usedTitles := NewUsedTitleSet()
	usedTitles.Add("X", "Y")

	if _, err := svc.Generate(context.Background(), "doc", analystStudent(), opts, NewUsedTitleSet()); err != nil {
		t.Fatalf("warm-up Generate failed: %v", err)
	}

	record, err := svc.Generate(context.Background(), "doc", analystStudent(), opts, usedTitles)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if *calls != 1 {
		t.Fatalf("expected cache hit without a remote call, got %d calls", *calls)
	}
	if record.Title != "X [Аналитик]" {
		t.Fatalf("cache hit skipped dedup, got title %q", record.Title)
	}

	key := CacheKey("doc", "Иван Иванов", "Аналитик", "mistral-small", models.ModeExtended)
	cached, ok := svc.Cache().Get(key)
	if !ok {
		t.Fatal("expected record in cache")
	}
	if cached.Title != "X" {
		t.Fatalf("cached entry must keep the original title, got %q", cached.Title)
	}
}

func TestGenerateRemoteFailure(t *testing.T) {
	server, _ := fakeModelServer(t, func(string) (int, string) { return http.StatusInternalServerError, "" })

	svc := newTestGenerator(server.URL)
	_, err := svc.Generate(context.Background(), "doc", analystStudent(), testOptions(models.ModeExtended), nil)
	if err == nil {
		t.Fatal("expected error for HTTP 500")
	}

	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %T", err)
	}
	if genErr.Student != "Иван Иванов" {
		t.Fatalf("error must name the student, got %q", genErr.Student)
	}
}

func TestGenerateMissingAPIKey(t *testing.T) {
	svc := newTestGenerator("http://127.0.0.1:0")
	opts := GenerationOptions{Model: "mistral-small", Mode: models.ModeExtended}

	if _, err := svc.Generate(context.Background(), "doc", analystStudent(), opts, nil); err == nil {
		t.Fatal("expected error when no API key is set")
	}
}
