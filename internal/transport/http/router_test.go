package http

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"elearning-quiz-service/internal/domain"
)

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	expectStatus(t, rec, http.StatusOK)
}

func TestRequiresBearerToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/quizzes/quiz-1", "", nil)
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = env.do(t, http.MethodGet, "/api/quizzes/quiz-1", "not-a-jwt", nil)
	expectStatus(t, rec, http.StatusUnauthorized)

	other := NewAuthenticator("other-secret")
	forged, err := other.IssueToken("u1", "", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	rec = env.do(t, http.MethodGet, "/api/quizzes/quiz-1", forged, nil)
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestGetQuizHidesAnswerKey(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/quizzes/quiz-1", env.token(t, "u1", ""), nil)
	expectStatus(t, rec, http.StatusOK)

	body := rec.Body.String()
	if strings.Contains(body, "correctAnswerIndex") || strings.Contains(body, "basic sum") {
		t.Fatalf("answer key leaked: %s", body)
	}
	view := decode[domain.QuizForTaking](t, rec)
	if view.Quiz.Title != "Arithmetic" || *view.AttemptsRemaining != 1 || view.ForcedCorrection {
		t.Fatalf("unexpected view: %+v", view)
	}

	rec = env.do(t, http.MethodGet, "/api/quizzes/missing", env.token(t, "u1", ""), nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestSubmitAttemptFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "u1", "")

	rec := env.do(t, http.MethodPost, "/api/quizzes/quiz-1/attempts", token, map[string]any{
		"answers": map[string]any{"q1": 1, "q2": nil},
	})
	expectStatus(t, rec, http.StatusCreated)
	result := decode[domain.SubmitResult](t, rec)
	if result.Score != 50 || result.Passed || result.AttemptID == "" {
		t.Fatalf("unexpected result: %+v", result)
	}

	rec = env.do(t, http.MethodPost, "/api/quizzes/quiz-1/attempts", token, map[string]any{
		"answers": map[string]any{"q1": 1, "q2": 0},
	})
	expectStatus(t, rec, http.StatusConflict)
	rejected := decode[domain.RejectedResult](t, rec)
	if rejected.Reason != "MAX_ATTEMPTS" || rejected.Ceiling != 1 {
		t.Fatalf("unexpected rejection: %+v", rejected)
	}

	rec = env.do(t, http.MethodGet, "/api/quizzes/quiz-1", token, nil)
	expectStatus(t, rec, http.StatusOK)
	view := decode[domain.QuizForTaking](t, rec)
	if !view.ForcedCorrection || view.Correction == nil || view.Correction.AttemptID != result.AttemptID {
		t.Fatalf("expected forced correction of the attempt, got %+v", view)
	}

	rec = env.do(t, http.MethodGet, "/api/me/attempts", token, nil)
	expectStatus(t, rec, http.StatusOK)
	history := decode[[]domain.HistoryEntry](t, rec)
	if len(history) != 1 || history[0].QuizTitle != "Arithmetic" {
		t.Fatalf("unexpected history: %+v", history)
	}

	rec = env.do(t, http.MethodGet, "/api/attempts/"+result.AttemptID+"/correction", token, nil)
	expectStatus(t, rec, http.StatusOK)
	correction := decode[domain.Correction](t, rec)
	if correction.Score != 50 || len(correction.PerQuestion) != 2 || correction.PerQuestion[1].Status != domain.StatusUnanswered {
		t.Fatalf("unexpected correction: %+v", correction)
	}

	rec = env.do(t, http.MethodGet, "/api/attempts/"+result.AttemptID+"/correction", env.token(t, "u2", ""), nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestSubmitAttemptValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "u1", "")

	rec := env.do(t, http.MethodPost, "/api/quizzes/quiz-1/attempts", token, map[string]any{})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = env.do(t, http.MethodPost, "/api/quizzes/quiz-1/attempts", token, map[string]any{
		"answers": map[string]any{"q1": 9},
	})
	expectStatus(t, rec, http.StatusBadRequest)

	count, err := env.attempts.CountFor(context.Background(), "quiz-1", "u1")
	if err != nil || count != 0 {
		t.Fatalf("rejected submissions must not be stored: count=%d err=%v", count, err)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/admin/courses/course-1/quizzes", env.token(t, "u1", ""), nil)
	expectStatus(t, rec, http.StatusForbidden)
}

func TestAdminQuizManagement(t *testing.T) {
	env := newTestEnv(t)
	admin := env.token(t, "admin-1", RoleAdmin)

	rec := env.do(t, http.MethodPost, "/api/admin/courses/course-1/quizzes", admin, map[string]any{
		"title": "Geography",
		"questions": []map[string]any{
			{"text": "Capital of France?", "choices": []string{"Paris", "Rome"}, "correctAnswerIndex": 0},
		},
	})
	expectStatus(t, rec, http.StatusCreated)
	created := decode[domain.Quiz](t, rec)
	if created.ID == "" || created.PassScore != domain.DefaultPassScore || created.Questions[0].ID == "" {
		t.Fatalf("unexpected quiz: %+v", created)
	}
	if created.MaxAttempts == nil || *created.MaxAttempts != domain.DefaultMaxAttempts {
		t.Fatalf("expected default ceiling %d, got %v", domain.DefaultMaxAttempts, created.MaxAttempts)
	}

	rec = env.do(t, http.MethodPost, "/api/admin/courses/course-2/quizzes", admin, map[string]any{
		"title":       "Open practice",
		"maxAttempts": nil,
		"questions": []map[string]any{
			{"text": "Largest ocean?", "choices": []string{"Pacific", "Indian"}, "correctAnswerIndex": 0},
		},
	})
	expectStatus(t, rec, http.StatusCreated)
	if open := decode[domain.Quiz](t, rec); open.MaxAttempts != nil {
		t.Fatalf("explicit null must stay unlimited, got %d", *open.MaxAttempts)
	}

	rec = env.do(t, http.MethodPost, "/api/admin/courses/course-1/quizzes", admin, map[string]any{
		"title":     "Broken",
		"questions": []map[string]any{{"text": "?", "choices": []string{"only"}, "correctAnswerIndex": 0}},
	})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = env.do(t, http.MethodGet, "/api/admin/courses/course-1/quizzes", admin, nil)
	expectStatus(t, rec, http.StatusOK)
	if quizzes := decode[[]domain.Quiz](t, rec); len(quizzes) != 2 {
		t.Fatalf("expected 2 quizzes, got %d", len(quizzes))
	}

	rec = env.do(t, http.MethodPatch, "/api/admin/quizzes/"+created.ID, admin, map[string]any{
		"title": "World Geography", "maxAttempts": 3,
	})
	expectStatus(t, rec, http.StatusOK)
	updated := decode[domain.Quiz](t, rec)
	if updated.Title != "World Geography" || *updated.MaxAttempts != 3 {
		t.Fatalf("unexpected update: %+v", updated)
	}

	rec = env.do(t, http.MethodGet, "/api/quizzes/"+created.ID, env.token(t, "u1", ""), nil)
	expectStatus(t, rec, http.StatusOK)
	if view := decode[domain.QuizForTaking](t, rec); view.Quiz.Title != "World Geography" {
		t.Fatalf("students must see the edit, got %q", view.Quiz.Title)
	}

	rec = env.do(t, http.MethodDelete, "/api/admin/quizzes/"+created.ID, admin, nil)
	expectStatus(t, rec, http.StatusNoContent)
	rec = env.do(t, http.MethodDelete, "/api/admin/quizzes/"+created.ID, admin, nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestAdminListAttempts(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/quizzes/quiz-1/attempts", env.token(t, "u1", ""), map[string]any{
		"answers": map[string]any{"q1": 1, "q2": 0},
	})
	expectStatus(t, rec, http.StatusCreated)

	rec = env.do(t, http.MethodGet, "/api/admin/quizzes/quiz-1/attempts", env.token(t, "admin-1", RoleAdmin), nil)
	expectStatus(t, rec, http.StatusOK)
	attempts := decode[[]domain.Attempt](t, rec)
	if len(attempts) != 1 || attempts[0].UserID != "u1" || attempts[0].Score != 100 {
		t.Fatalf("unexpected attempts: %+v", attempts)
	}
}
