package http

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"elearning-quiz-service/internal/app"
	"elearning-quiz-service/internal/domain"
	"elearning-quiz-service/internal/feed"
	"elearning-quiz-service/internal/infra/memory"
	"github.com/gin-gonic/gin"
)

const testSecret = "test-secret"

type testEnv struct {
	router   *gin.Engine
	auth     *Authenticator
	attempts *memory.AttemptStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := feed.NewHub()
	store := memory.NewQuizStore(hub, sampleQuiz())
	cache := memory.NewQuizRepository(store, time.Minute)
	attempts := memory.NewAttemptStore(hub)
	auth := NewAuthenticator(testSecret)

	router := NewRouter(RouterDeps{
		Quizzes: app.NewQuizService(cache, store, attempts, nil),
		Admin:   app.NewAdminService(store, cache, attempts),
		Auth:    auth,
	})
	return &testEnv{router: router, auth: auth, attempts: attempts}
}

func (e *testEnv) token(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := e.auth.IssueToken(userID, role, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:          "quiz-1",
		CourseID:    "course-1",
		Title:       "Arithmetic",
		PassScore:   70,
		MaxAttempts: domain.IntPtr(1),
		Questions: []domain.Question{
			{ID: "q1", Text: "What is 2 + 2?", Choices: []string{"3", "4", "5"}, CorrectAnswerIndex: 1, Explanation: "basic sum"},
			{ID: "q2", Text: "What is 3 - 1?", Choices: []string{"2", "1"}, CorrectAnswerIndex: 0},
		},
	}
}
