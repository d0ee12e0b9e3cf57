package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestQuizUnmarshalDefaults(t *testing.T) {
	var quiz Quiz
	if err := json.Unmarshal([]byte(`{"id":"quiz-1","title":"T","questions":[],"maxAttempts":0}`), &quiz); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if quiz.PassScore != DefaultPassScore {
		t.Fatalf("expected default pass score, got %d", quiz.PassScore)
	}
	if _, limited := quiz.Ceiling(); limited {
		t.Fatalf("expected maxAttempts 0 to mean unlimited")
	}

	if err := json.Unmarshal([]byte(`{"id":"quiz-1","title":"T","passScore":0,"maxAttempts":2}`), &quiz); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if quiz.PassScore != 0 {
		t.Fatalf("expected explicit pass score 0 kept, got %d", quiz.PassScore)
	}
	if ceiling, limited := quiz.Ceiling(); !limited || ceiling != 2 {
		t.Fatalf("expected ceiling 2, got %d (%v)", ceiling, limited)
	}
}

func TestQuizDraftMaxAttemptsPresence(t *testing.T) {
	cases := map[string]struct {
		body string
		want *int
	}{
		"absent":   {body: `{"title":"T"}`, want: IntPtr(DefaultMaxAttempts)},
		"null":     {body: `{"title":"T","maxAttempts":null}`, want: nil},
		"explicit": {body: `{"title":"T","maxAttempts":5}`, want: IntPtr(5)},
	}
	for name, tc := range cases {
		var draft QuizDraft
		if err := json.Unmarshal([]byte(tc.body), &draft); err != nil {
			t.Fatalf("%s: unmarshal: %v", name, err)
		}
		got := draft.MaxAttempts.Or(DefaultMaxAttempts)
		switch {
		case tc.want == nil && got != nil:
			t.Fatalf("%s: expected unlimited, got %d", name, *got)
		case tc.want != nil && (got == nil || *got != *tc.want):
			t.Fatalf("%s: expected %d, got %v", name, *tc.want, got)
		}
	}

	var draft QuizDraft
	if err := json.Unmarshal([]byte(`{"maxAttempts":"three"}`), &draft); err == nil {
		t.Fatalf("expected error for non-numeric maxAttempts")
	}
}

func TestQuizValidate(t *testing.T) {
	valid := Quiz{
		ID:        "quiz-1",
		Title:     "Basics",
		PassScore: 70,
		Questions: []Question{
			{ID: "q1", Text: "2+2?", Choices: []string{"3", "4"}, CorrectAnswerIndex: 1},
		},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid quiz, got %v", err)
	}

	cases := map[string]func(q *Quiz){
		"empty title":      func(q *Quiz) { q.Title = " " },
		"pass score range": func(q *Quiz) { q.PassScore = 101 },
		"zero ceiling":     func(q *Quiz) { q.MaxAttempts = IntPtr(0) },
		"one choice":       func(q *Quiz) { q.Questions[0].Choices = []string{"only"} },
		"index range":      func(q *Quiz) { q.Questions[0].CorrectAnswerIndex = 2 },
		"duplicate id": func(q *Quiz) {
			q.Questions = append(q.Questions, q.Questions[0])
		},
	}
	for name, mutate := range cases {
		quiz := valid
		quiz.Questions = append([]Question(nil), valid.Questions...)
		mutate(&quiz)
		err := quiz.Validate()
		if !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestValidateAnswers(t *testing.T) {
	quiz := Quiz{Questions: []Question{
		{ID: "q1", Choices: []string{"a", "b"}, CorrectAnswerIndex: 0},
	}}

	if err := quiz.ValidateAnswers(Answers{"q1": IntPtr(1)}); err != nil {
		t.Fatalf("expected valid answers, got %v", err)
	}
	if err := quiz.ValidateAnswers(Answers{"q1": nil}); err != nil {
		t.Fatalf("expected nil selection to be valid, got %v", err)
	}

	var verr *ValidationError
	if err := quiz.ValidateAnswers(Answers{"q9": IntPtr(0)}); !errors.As(err, &verr) {
		t.Fatalf("expected unknown question rejected, got %v", err)
	}
	if err := quiz.ValidateAnswers(Answers{"q1": IntPtr(-1)}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected negative index rejected, got %v", err)
	}
	if err := quiz.ValidateAnswers(Answers{"q1": IntPtr(2)}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected out of range index rejected, got %v", err)
	}
}

func TestPublicHidesAnswerKey(t *testing.T) {
	quiz := Quiz{ID: "quiz-1", Questions: []Question{
		{ID: "q1", Text: "?", Choices: []string{"a", "b"}, CorrectAnswerIndex: 1, Explanation: "because"},
	}}
	raw, err := json.Marshal(quiz.Public())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	_ = json.Unmarshal(raw, &decoded)
	question := decoded["questions"].([]any)[0].(map[string]any)
	if _, ok := question["correctAnswerIndex"]; ok {
		t.Fatalf("public question leaked the answer key: %s", raw)
	}
	if _, ok := question["explanation"]; ok {
		t.Fatalf("public question leaked the explanation: %s", raw)
	}
}

func TestErrorMatching(t *testing.T) {
	err := error(&MaxAttemptsError{Ceiling: 3})
	if !errors.Is(err, ErrMaxAttemptsReached) {
		t.Fatalf("expected max attempts error to match sentinel")
	}
	if got := err.(*MaxAttemptsError).Rejected(); got.Reason != "MAX_ATTEMPTS" || got.Ceiling != 3 {
		t.Fatalf("unexpected rejected result %+v", got)
	}

	cause := errors.New("connection reset")
	wrapped := Unavailable("count attempts", cause)
	if !errors.Is(wrapped, ErrStoreUnavailable) || !errors.Is(wrapped, cause) {
		t.Fatalf("expected wrapped error to match both sentinel and cause: %v", wrapped)
	}
	if Unavailable("noop", nil) != nil {
		t.Fatalf("expected nil passthrough")
	}
}
