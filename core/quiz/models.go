package quiz

import (
	"time"
)

// Question kinds
const (
	KindSingleChoice   = "single_choice"
	KindMultipleChoice = "multiple_choice"
)

type (
	// Question is one prompt of a quiz document. IDs are 1-based and
	// sequential; answer option values are 1-based indices into Answers.
	Question struct {
		ID      int      `json:"question_id"`
		Kind    string   `json:"type"`
		Prompt  string   `json:"question"`
		Answers []string `json:"answers"`
	}

	// Document is the parsed form of a quiz's question payload.
	Document struct {
		Questions []Question `json:"questions"`
	}

	// KeyEntry maps a question to its correct option texts.
	KeyEntry struct {
		QuestionID int      `json:"question_id"`
		Answer     []string `json:"answer"`
	}

	// AnswerKey is the parsed form of a quiz's answer payload.
	AnswerKey struct {
		Answers []KeyEntry `json:"answers"`
	}
)

type Quiz struct {
	ID          int       `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	LessonID    int       `json:"lesson_id" db:"lesson_id"`
	QuizJSON    string    `json:"quiz_json" db:"quiz_json"`
	QuizAnswers string    `json:"quiz_answers,omitempty" db:"quiz_answers"`
	Duration    int       `json:"duration" db:"duration"`     // minutes, 0 = untimed
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// Document parses the quiz's question payload.
func (q Quiz) Document() (Document, error) {
	return ParseDocument(q.QuizJSON)
}

// NewQuiz contains information needed to create a new Quiz.
type NewQuiz struct {
	Name        string `json:"name" validate:"required"`
	LessonID    int    `json:"lesson_id" validate:"required"`
	QuizJSON    string `json:"quiz_json" validate:"required"`
	QuizAnswers string `json:"quiz_answers" validate:"required"`
	Duration    int    `json:"duration" validate:"min=0"`
}

type (
	// SubmittedAnswer holds the option texts a user picked for one question.
	SubmittedAnswer struct {
		QuestionID int      `json:"question_id"`
		Answer     []string `json:"answer"`
	}

	SubmittedAnswers struct {
		Answers []SubmittedAnswer `json:"answers"`
	}

	// Submission is one finished attempt, ready for grading.
	Submission struct {
		QuizID           int              `json:"quiz_id"`
		StartTime        time.Time        `json:"start_time"`
		EndTime          time.Time        `json:"end_time"`
		SubmittedAnswers SubmittedAnswers `json:"submitted_answers"`
	}
)

// Result is the server-recorded outcome of a completed attempt.
// Its presence for a (quiz, user) pair blocks retakes.
type Result struct {
	ID               int       `json:"id" db:"id"`
	QuizID           int       `json:"quiz_id" db:"quiz_id"`
	UserID           int       `json:"user_id" db:"user_id"`
	Score            int       `json:"score" db:"score"`
	StartTime        time.Time `json:"start_time" db:"start_time"`
	EndTime          time.Time `json:"end_time" db:"end_time"`
	SubmittedAnswers string    `json:"submitted_answers" db:"submitted_answers"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"` // UTC
}
