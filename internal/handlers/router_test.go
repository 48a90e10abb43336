package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docuhub/exam-service/internal/events"
	"github.com/docuhub/exam-service/internal/models"
	"github.com/docuhub/exam-service/internal/repositories/memory"
	"github.com/docuhub/exam-service/internal/services"
	"github.com/docuhub/exam-service/internal/utils"
	"github.com/docuhub/exam-service/internal/validator"
)

var (
	testAdmin = &models.User{ID: "admin-1", FullName: "Ada Admin", Email: "ada@example.com", Role: models.RoleAdmin}
	testAlice = &models.User{ID: "alice", FullName: "Alice", Email: "alice@example.com", Role: models.RoleUser}
	testBob   = &models.User{ID: "bob", FullName: "Bob", Email: "bob@example.com", Role: models.RoleUser}
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Count   *int            `json:"count"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	auth   *JWTAuthenticator
	tokens map[string]string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := utils.Discard()
	repo := memory.NewRepository(nil)
	sm := services.NewServiceManager(repo, logger.Slog(), validator.New(), events.NewMockEventPublisher(nil))
	if err := sm.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	auth := NewJWTAuthenticator("test-secret", repo.Users())
	router := gin.New()
	SetupMiddleware(router, logger, "http://localhost:3000")
	NewHandlerManager(sm, auth, logger, true).SetupRoutes(router)

	ts := &testServer{t: t, router: router, auth: auth, tokens: map[string]string{}}
	for _, u := range []*models.User{testAdmin, testAlice, testBob} {
		token, err := auth.IssueToken(u, time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		ts.tokens[u.ID] = token
	}
	return ts
}

func (ts *testServer) do(method, path string, caller *models.User, body interface{}) (*httptest.ResponseRecorder, envelope) {
	ts.t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			ts.t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		req.Header.Set("Authorization", "Bearer "+ts.tokens[caller.ID])
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			ts.t.Fatalf("decode %s %s: %v (%s)", method, path, err, w.Body.String())
		}
	}
	return w, env
}

func examBody(allowed ...string) map[string]interface{} {
	now := time.Now().UTC()
	return map[string]interface{}{
		"title":        "HTTP basics",
		"duration":     "20",
		"passingGrade": 60,
		"startTime":    now.Add(-time.Hour).Format(time.RFC3339),
		"endTime":      now.Add(time.Hour).Format(time.RFC3339),
		"allowedUsers": allowed,
		"questions": []map[string]interface{}{
			{"questionText": "Status for created?", "options": []string{"200", "201", "204"}, "correctAnswer": 1, "points": 3, "explanation": "201 Created"},
			{"questionText": "GET is idempotent", "questionType": "true_false", "correctAnswer": "0"},
		},
	}
}

func (ts *testServer) createExam(allowed ...string) *models.Exam {
	ts.t.Helper()
	w, env := ts.do(http.MethodPost, "/api/exams", testAdmin, examBody(allowed...))
	if w.Code != http.StatusCreated {
		ts.t.Fatalf("create exam status = %d: %s", w.Code, w.Body.String())
	}
	var exam models.Exam
	if err := json.Unmarshal(env.Data, &exam); err != nil {
		ts.t.Fatal(err)
	}
	return &exam
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	w, _ := ts.do(http.MethodGet, "/api/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestAuthentication(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name    string
		header  string
		wantMsg string
	}{
		{"no header", "", msgNoToken},
		{"wrong scheme", "Basic abc", msgTokenFailed},
		{"garbage token", "Bearer not-a-jwt", msgTokenFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/exams", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			ts.router.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", w.Code)
			}
			var env envelope
			if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
				t.Fatal(err)
			}
			if env.Success || env.Message != tt.wantMsg {
				t.Errorf("body = %+v, want message %q", env, tt.wantMsg)
			}
		})
	}
}

func TestCreateExam(t *testing.T) {
	ts := newTestServer(t)

	t.Run("non admin", func(t *testing.T) {
		w, env := ts.do(http.MethodPost, "/api/exams", testAlice, examBody())
		if w.Code != http.StatusForbidden || env.Message != msgNotAdmin {
			t.Errorf("status = %d, message = %q", w.Code, env.Message)
		}
	})

	t.Run("missing required fields", func(t *testing.T) {
		body := examBody()
		delete(body, "startTime")
		w, env := ts.do(http.MethodPost, "/api/exams", testAdmin, body)
		if w.Code != http.StatusBadRequest || env.Message != "Please fill in all required fields: title, duration, start time, end time" {
			t.Errorf("status = %d, message = %q", w.Code, env.Message)
		}
	})

	t.Run("no questions", func(t *testing.T) {
		body := examBody()
		body["questions"] = []interface{}{}
		w, env := ts.do(http.MethodPost, "/api/exams", testAdmin, body)
		if w.Code != http.StatusBadRequest || env.Message != "Exam must have at least 1 question" {
			t.Errorf("status = %d, message = %q", w.Code, env.Message)
		}
	})

	t.Run("answer key out of range", func(t *testing.T) {
		body := examBody()
		body["questions"].([]map[string]interface{})[0]["correctAnswer"] = 7
		w, env := ts.do(http.MethodPost, "/api/exams", testAdmin, body)
		if w.Code != http.StatusBadRequest || !strings.HasPrefix(env.Message, "Failed to create exam: questions[0].correctAnswer") {
			t.Errorf("status = %d, message = %q", w.Code, env.Message)
		}
	})

	t.Run("fractional duration", func(t *testing.T) {
		body := examBody()
		body["duration"] = 0.5
		w, env := ts.do(http.MethodPost, "/api/exams", testAdmin, body)
		if w.Code != http.StatusBadRequest || env.Message != "Failed to create exam: invalid integer 0.5: must be a whole number" {
			t.Errorf("status = %d, message = %q", w.Code, env.Message)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		w, env := ts.do(http.MethodPost, "/api/exams", testAdmin, `{"title":`)
		if w.Code != http.StatusBadRequest || !strings.HasPrefix(env.Message, "Failed to create exam") {
			t.Errorf("status = %d, message = %q", w.Code, env.Message)
		}
	})

	t.Run("created", func(t *testing.T) {
		exam := ts.createExam()
		if exam.Duration != 20 || exam.PassingGrade != 60 || exam.TotalQuestions != 2 {
			t.Errorf("exam = %+v", exam)
		}
		if exam.Creator == nil || exam.Creator.Name != testAdmin.FullName {
			t.Errorf("creator = %+v", exam.Creator)
		}
	})
}

func TestExamAttemptFlow(t *testing.T) {
	ts := newTestServer(t)
	exam := ts.createExam()

	// Listing hides the answer key from users
	w, env := ts.do(http.MethodGet, "/api/exams", testAlice, nil)
	if w.Code != http.StatusOK || env.Count == nil || *env.Count != 1 {
		t.Fatalf("list status = %d, count = %v", w.Code, env.Count)
	}
	if bytes.Contains(env.Data, []byte("correctAnswer")) || bytes.Contains(env.Data, []byte("201 Created")) {
		t.Error("exam list leaked answer keys")
	}

	w, env = ts.do(http.MethodPost, fmt.Sprintf("/api/exams/%s/start", exam.ID), testAlice, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("start status = %d: %s", w.Code, w.Body.String())
	}
	var started struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		TimeLeft int    `json:"timeLeft"`
	}
	if err := json.Unmarshal(env.Data, &started); err != nil {
		t.Fatal(err)
	}
	if started.Status != "in_progress" || started.TimeLeft != 20*60 {
		t.Errorf("started = %+v", started)
	}

	w, env = ts.do(http.MethodPost, fmt.Sprintf("/api/exams/%s/start", exam.ID), testAlice, nil)
	if w.Code != http.StatusOK || !bytes.Contains(env.Data, []byte(started.ID)) {
		t.Errorf("resume status = %d, data = %s", w.Code, env.Data)
	}

	submit := map[string]interface{}{
		"attemptId": started.ID,
		"answers": map[string]interface{}{
			exam.Questions[0].ID: "1",
			exam.Questions[1].ID: 1,
		},
	}
	submitPath := fmt.Sprintf("/api/exams/%s/submit", exam.ID)

	w, env = ts.do(http.MethodPost, submitPath, testBob, submit)
	if w.Code != http.StatusForbidden || env.Message != msgNotAuthorized {
		t.Errorf("foreign submit status = %d, message = %q", w.Code, env.Message)
	}

	w, env = ts.do(http.MethodPost, submitPath, testAlice, submit)
	if w.Code != http.StatusOK {
		t.Fatalf("submit status = %d: %s", w.Code, w.Body.String())
	}
	var submitted models.ExamAttempt
	if err := json.Unmarshal(env.Data, &submitted); err != nil {
		t.Fatal(err)
	}
	if submitted.Status != models.AttemptCompleted || submitted.Score != 75 {
		t.Errorf("submitted status = %s, score = %v", submitted.Status, submitted.Score)
	}

	w, env = ts.do(http.MethodPost, submitPath, testAlice, submit)
	if w.Code != http.StatusBadRequest || env.Message != "Attempt has already been submitted" {
		t.Errorf("resubmit status = %d, message = %q", w.Code, env.Message)
	}

	attemptPath := "/api/exams/attempts/" + started.ID
	if w, env = ts.do(http.MethodGet, attemptPath, testBob, nil); w.Code != http.StatusForbidden || env.Message != msgNotAuthorized {
		t.Errorf("bob get attempt status = %d, message = %q", w.Code, env.Message)
	}
	if w, env = ts.do(http.MethodGet, attemptPath, testAlice, nil); w.Code != http.StatusOK || !bytes.Contains(env.Data, []byte("201 Created")) {
		t.Errorf("owner get attempt status = %d, data = %s", w.Code, env.Data)
	}
	if w, _ = ts.do(http.MethodGet, "/api/exams/attempts/missing", testAlice, nil); w.Code != http.StatusNotFound {
		t.Errorf("missing attempt status = %d", w.Code)
	}

	w, env = ts.do(http.MethodGet, "/api/exams/results", testAlice, nil)
	if w.Code != http.StatusOK || env.Count == nil || *env.Count != 1 {
		t.Fatalf("my results status = %d, count = %v", w.Code, env.Count)
	}
	var mine []struct {
		Passed bool `json:"passed"`
		Exam   struct {
			Title string `json:"title"`
		} `json:"exam"`
	}
	if err := json.Unmarshal(env.Data, &mine); err != nil {
		t.Fatal(err)
	}
	if !mine[0].Passed || mine[0].Exam.Title != "HTTP basics" {
		t.Errorf("my results = %+v", mine)
	}

	resultsPath := fmt.Sprintf("/api/exams/%s/results", exam.ID)
	if w, _ = ts.do(http.MethodGet, resultsPath, testAlice, nil); w.Code != http.StatusForbidden {
		t.Errorf("user exam results status = %d, want 403", w.Code)
	}
	if w, env = ts.do(http.MethodGet, resultsPath, testAdmin, nil); w.Code != http.StatusOK || *env.Count != 1 {
		t.Errorf("admin exam results status = %d", w.Code)
	}

	w, _ = ts.do(http.MethodGet, resultsPath+"/export", testAdmin, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d: %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "http_basics_results.xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "application/vnd.openxmlformats") {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}

	examPath := "/api/exams/" + exam.ID
	if w, env = ts.do(http.MethodDelete, examPath, testAlice, nil); w.Code != http.StatusForbidden {
		t.Errorf("user delete status = %d", w.Code)
	}
	w, env = ts.do(http.MethodDelete, examPath, testAdmin, nil)
	if w.Code != http.StatusOK || env.Message != "Exam and related attempts deleted" {
		t.Errorf("delete status = %d, message = %q", w.Code, env.Message)
	}
	w, env = ts.do(http.MethodGet, examPath, testAdmin, nil)
	if w.Code != http.StatusNotFound || env.Message != "Exam not found" {
		t.Errorf("get after delete status = %d, message = %q", w.Code, env.Message)
	}
	if w, _ = ts.do(http.MethodGet, attemptPath, testAlice, nil); w.Code != http.StatusNotFound {
		t.Errorf("attempt survived exam delete, status = %d", w.Code)
	}
}

func TestSubmitForeignAttemptIgnoresPayload(t *testing.T) {
	ts := newTestServer(t)
	exam := ts.createExam()

	w, env := ts.do(http.MethodPost, fmt.Sprintf("/api/exams/%s/start", exam.ID), testAlice, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("start status = %d: %s", w.Code, w.Body.String())
	}
	var started struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &started); err != nil {
		t.Fatal(err)
	}
	submitPath := fmt.Sprintf("/api/exams/%s/submit", exam.ID)

	bodies := []string{
		fmt.Sprintf(`{"attemptId":%q,"answers":{}}`, started.ID),
		fmt.Sprintf(`{"attemptId":%q,"answers":5}`, started.ID),
		fmt.Sprintf(`{"attemptId":%q,"answers":[{"answer":1}]}`, started.ID),
	}
	for _, body := range bodies {
		w, env = ts.do(http.MethodPost, submitPath, testBob, body)
		if w.Code != http.StatusForbidden || env.Message != msgNotAuthorized {
			t.Errorf("bob submit %s: status = %d, message = %q", body, w.Code, env.Message)
		}
	}

	w, env = ts.do(http.MethodPost, submitPath, testAlice, bodies[1])
	if w.Code != http.StatusBadRequest || env.Message != "Failed to submit exam: answers must be an object or an array" {
		t.Errorf("owner malformed submit: status = %d, message = %q", w.Code, env.Message)
	}
}

func TestCompletedAttemptReadsAreStable(t *testing.T) {
	ts := newTestServer(t)
	exam := ts.createExam()

	w, env := ts.do(http.MethodPost, fmt.Sprintf("/api/exams/%s/start", exam.ID), testAlice, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("start status = %d: %s", w.Code, w.Body.String())
	}
	var started struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &started); err != nil {
		t.Fatal(err)
	}

	submit := map[string]interface{}{
		"attemptId": started.ID,
		"answers": []map[string]interface{}{
			{"questionId": exam.Questions[0].ID, "answer": 1},
			{"questionId": exam.Questions[1].ID, "answer": "1"},
		},
	}
	if w, _ = ts.do(http.MethodPost, fmt.Sprintf("/api/exams/%s/submit", exam.ID), testAlice, submit); w.Code != http.StatusOK {
		t.Fatalf("submit status = %d: %s", w.Code, w.Body.String())
	}

	type graded struct {
		Score   float64                `json:"score"`
		Answers []models.AttemptAnswer `json:"answers"`
	}
	read := func() graded {
		t.Helper()
		w, env := ts.do(http.MethodGet, "/api/exams/attempts/"+started.ID, testAlice, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("get attempt status = %d", w.Code)
		}
		var g graded
		if err := json.Unmarshal(env.Data, &g); err != nil {
			t.Fatal(err)
		}
		return g
	}

	first, second := read(), read()
	if first.Score != 75 || second.Score != first.Score {
		t.Errorf("scores = %v, %v, want 75 both times", first.Score, second.Score)
	}
	if len(first.Answers) != 2 || len(second.Answers) != 2 {
		t.Fatalf("answers = %d, %d, want 2", len(first.Answers), len(second.Answers))
	}
	for i := range first.Answers {
		a, b := first.Answers[i], second.Answers[i]
		if a.QuestionID != exam.Questions[i].ID || a.QuestionID != b.QuestionID ||
			string(a.Answer) != string(b.Answer) || a.IsCorrect != b.IsCorrect {
			t.Errorf("answer %d differs between reads: %+v vs %+v", i, a, b)
		}
	}
	if !first.Answers[0].IsCorrect || first.Answers[1].IsCorrect {
		t.Errorf("isCorrect = %v, %v, want true, false", first.Answers[0].IsCorrect, first.Answers[1].IsCorrect)
	}
}

func TestRestrictedExam(t *testing.T) {
	ts := newTestServer(t)
	exam := ts.createExam(testAlice.ID)

	w, env := ts.do(http.MethodGet, "/api/exams", testBob, nil)
	if w.Code != http.StatusOK || *env.Count != 0 {
		t.Errorf("bob list status = %d, count = %v", w.Code, env.Count)
	}

	w, env = ts.do(http.MethodGet, "/api/exams/"+exam.ID, testBob, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("bob get status = %d", w.Code)
	}

	w, env = ts.do(http.MethodPost, fmt.Sprintf("/api/exams/%s/start", exam.ID), testBob, nil)
	if w.Code != http.StatusForbidden || env.Message != msgNotAllowed {
		t.Errorf("bob start status = %d, message = %q", w.Code, env.Message)
	}

	if w, _ = ts.do(http.MethodPost, fmt.Sprintf("/api/exams/%s/start", exam.ID), testAlice, nil); w.Code != http.StatusCreated {
		t.Errorf("alice start status = %d", w.Code)
	}
	if w, _ = ts.do(http.MethodPost, "/api/exams/missing/start", testAlice, nil); w.Code != http.StatusNotFound {
		t.Errorf("missing exam start status = %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/exams", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/exams", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}
}
