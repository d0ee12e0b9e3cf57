package domain

import (
	"encoding/json"
	"time"
)

// DefaultPassScore applies when a quiz document does not carry a pass threshold.
const DefaultPassScore = 70

// DefaultMaxAttempts applies when a create request omits maxAttempts.
// An explicit null still means unlimited.
const DefaultMaxAttempts = 3

// Question models an MCQ question with exactly one correct choice.
type Question struct {
	ID                 string   `json:"id"`
	Text               string   `json:"text"`
	Choices            []string `json:"choices"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
	Explanation        string   `json:"explanation,omitempty"`
}

// Quiz is an ordered collection of questions attached to a course.
type Quiz struct {
	ID          string     `json:"id"`
	CourseID    string     `json:"courseId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
	PassScore   int        `json:"passScore"`
	// MaxAttempts is nil when attempts are unlimited.
	MaxAttempts *int       `json:"maxAttempts"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// UnmarshalJSON fills in the default pass score and folds non-positive ceilings into "unlimited".
func (q *Quiz) UnmarshalJSON(data []byte) error {
	type plain Quiz
	var doc struct {
		plain
		PassScore *int `json:"passScore"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*q = Quiz(doc.plain)
	q.PassScore = DefaultPassScore
	if doc.PassScore != nil {
		q.PassScore = *doc.PassScore
	}
	if q.MaxAttempts != nil && *q.MaxAttempts <= 0 {
		q.MaxAttempts = nil
	}
	return nil
}

// Ceiling returns the attempt ceiling and whether one is set.
func (q Quiz) Ceiling() (int, bool) {
	if q.MaxAttempts == nil || *q.MaxAttempts <= 0 {
		return 0, false
	}
	return *q.MaxAttempts, true
}

// Question looks up a question by id.
func (q Quiz) Question(id string) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

// PublicQuestion is a question without its answer key.
type PublicQuestion struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Choices []string `json:"choices"`
}

// PublicQuiz is what a student sees before submitting.
type PublicQuiz struct {
	ID          string           `json:"id"`
	CourseID    string           `json:"courseId"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Questions   []PublicQuestion `json:"questions"`
	PassScore   int              `json:"passScore"`
	MaxAttempts *int             `json:"maxAttempts"`
}

// Public strips answer keys and explanations.
func (q Quiz) Public() PublicQuiz {
	questions := make([]PublicQuestion, 0, len(q.Questions))
	for _, question := range q.Questions {
		questions = append(questions, PublicQuestion{
			ID:      question.ID,
			Text:    question.Text,
			Choices: append([]string(nil), question.Choices...),
		})
	}
	return PublicQuiz{
		ID:          q.ID,
		CourseID:    q.CourseID,
		Title:       q.Title,
		Description: q.Description,
		Questions:   questions,
		PassScore:   q.PassScore,
		MaxAttempts: q.MaxAttempts,
	}
}

// Answers maps question ids to the selected choice index; nil means unanswered.
type Answers map[string]*int

// Answer is one persisted selection of an attempt.
type Answer struct {
	QuestionID    string `json:"questionId"`
	SelectedIndex *int   `json:"selectedIndex"`
}

// Attempt is the immutable record of one scored submission.
type Attempt struct {
	ID        string    `json:"id"`
	QuizID    string    `json:"quizId"`
	UserID    string    `json:"userId"`
	QuizTitle string    `json:"quizTitle"`
	Answers   []Answer  `json:"answers"`
	Score     int       `json:"score"`
	Passed    bool      `json:"passed"`
	CreatedAt time.Time `json:"createdAt"`
}

// Per-question outcomes.
const (
	StatusCorrect       = "correct"
	StatusIncorrect     = "incorrect"
	StatusUnanswered    = "unanswered"
	StatusNotApplicable = "not_applicable"
)

// QuestionResult is one row of a score breakdown or a correction.
type QuestionResult struct {
	QuestionID         string `json:"questionId"`
	SelectedIndex      *int   `json:"selectedIndex"`
	Correct            bool   `json:"correct"`
	CorrectAnswerIndex int    `json:"correctAnswerIndex"`
	Explanation        string `json:"explanation,omitempty"`
	Status             string `json:"status"`
}

// ScoreResult is the verdict plus per-question breakdown.
type ScoreResult struct {
	Score        int              `json:"score"`
	Passed       bool             `json:"passed"`
	CorrectCount int              `json:"correctCount"`
	Total        int              `json:"total"`
	PerQuestion  []QuestionResult `json:"perQuestion"`
}

// Correction is a display-ready view of a historical attempt.
type Correction struct {
	AttemptID string    `json:"attemptId"`
	QuizID    string    `json:"quizId"`
	QuizTitle string    `json:"quizTitle"`
	CreatedAt time.Time `json:"createdAt"`
	ScoreResult
}

// Eligibility reports whether a user may submit another attempt.
// Nil AttemptsRemaining and MaxAttempts mean unlimited.
type Eligibility struct {
	Allowed           bool `json:"allowed"`
	AttemptsUsed      int  `json:"attemptsUsed"`
	AttemptsRemaining *int `json:"attemptsRemaining"`
	MaxAttempts       *int `json:"maxAttempts"`
}

// QuizForTaking is the quiz screen state for one user.
type QuizForTaking struct {
	Quiz              PublicQuiz  `json:"quiz"`
	AttemptsUsed      int         `json:"attemptsUsed"`
	AttemptsRemaining *int        `json:"attemptsRemaining"`
	ForcedCorrection  bool        `json:"forcedCorrection"`
	Correction        *Correction `json:"correction,omitempty"`
}

// SubmitResult is returned for an accepted submission.
type SubmitResult struct {
	AttemptID string    `json:"attemptId"`
	CreatedAt time.Time `json:"createdAt"`
	ScoreResult
}

// RejectedResult is the client-facing shape of a ceiling rejection.
type RejectedResult struct {
	Reason  string `json:"reason"`
	Ceiling int    `json:"ceiling"`
}

// HistoryEntry summarizes one attempt for the history screen.
type HistoryEntry struct {
	AttemptID string    `json:"attemptId"`
	QuizID    string    `json:"quizId"`
	QuizTitle string    `json:"quizTitle"`
	Score     int       `json:"score"`
	Passed    bool      `json:"passed"`
	CreatedAt time.Time `json:"createdAt"`
}

// QuizDraft is an admin request to create a quiz. A nil PassScore means DefaultPassScore.
// An absent MaxAttempts means DefaultMaxAttempts; an explicit null means unlimited.
type QuizDraft struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Questions   []Question  `json:"questions"`
	PassScore   *int        `json:"passScore"`
	MaxAttempts OptionalInt `json:"maxAttempts"`
}

// OptionalInt tells an absent JSON field apart from an explicit null.
type OptionalInt struct {
	Set   bool
	Value *int
}

// SomeInt is a present, non-null OptionalInt.
func SomeInt(v int) OptionalInt {
	return OptionalInt{Set: true, Value: IntPtr(v)}
}

// NullInt is an explicit null.
func NullInt() OptionalInt {
	return OptionalInt{Set: true}
}

// Or resolves an absent value to fallback.
func (o OptionalInt) Or(fallback int) *int {
	if !o.Set {
		return IntPtr(fallback)
	}
	if o.Value == nil {
		return nil
	}
	return IntPtr(*o.Value)
}

func (o *OptionalInt) UnmarshalJSON(data []byte) error {
	o.Set = true
	o.Value = nil
	if string(data) == "null" {
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o OptionalInt) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// QuizUpdate carries a partial admin edit; nil fields are left unchanged.
// ClearMaxAttempts switches the quiz to unlimited attempts.
// A non-nil Questions slice replaces the whole question list.
type QuizUpdate struct {
	Title            *string    `json:"title"`
	Description      *string    `json:"description"`
	PassScore        *int       `json:"passScore"`
	MaxAttempts      *int       `json:"maxAttempts"`
	ClearMaxAttempts bool       `json:"clearMaxAttempts"`
	Questions        []Question `json:"questions"`
}

// AttemptRecorded is published after an attempt is persisted.
type AttemptRecorded struct {
	AttemptID string    `json:"attemptId"`
	QuizID    string    `json:"quizId"`
	UserID    string    `json:"userId"`
	Score     int       `json:"score"`
	Passed    bool      `json:"passed"`
	CreatedAt time.Time `json:"createdAt"`
}

// IntPtr is a small helper for optional ints.
func IntPtr(v int) *int {
	return &v
}
