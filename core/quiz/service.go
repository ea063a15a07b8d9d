package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/mrembo/urembo/core"
)

var (
	// errors
	ErrNotFound         = errors.New("quiz not found")
	ErrResultNotFound   = errors.New("quiz result not found")
	ErrAlreadyCompleted = errors.New("quiz was already completed")
	ErrLessonQuizExists = errors.New("this lesson already has a quiz")
)

type (
	Repository interface {
		CheckLessonQuizUniqueness(ctx context.Context, lessonID int) error
		CreateQuiz(ctx context.Context, qz Quiz) (Quiz, error)
		GetQuizByID(ctx context.Context, id int) (Quiz, error)
		GetQuizByLessonID(ctx context.Context, lessonID int) (Quiz, error)
		CreateResult(ctx context.Context, res Result) (Result, error)
		GetResult(ctx context.Context, quizID, userID int) (Result, error)
	}

	Service interface {
		Create(ctx context.Context, nq NewQuiz) (Quiz, error)
		GetByLesson(ctx context.Context, lessonID int, includeKey bool) (Quiz, error)
		Submit(ctx context.Context, userID int, sub Submission) (Result, error)
		ResultFor(ctx context.Context, quizID, userID int) (Result, error)
	}

	service struct {
		repo     Repository
		validate *validator.Validate
		logger   core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, validate *validator.Validate, logger core.Logger) Service {
	return &service{
		repo:     repo,
		validate: validate,
		logger:   logger,
	}
}

// Create parses and validates both payloads before anything is stored;
// a lesson can only ever have one quiz.
func (svc *service) Create(ctx context.Context, nq NewQuiz) (Quiz, error) {
	nq.Name = core.CleanString(nq.Name)
	if err := svc.validate.Struct(nq); err != nil {
		return Quiz{}, err
	}

	doc, err := ParseDocument(nq.QuizJSON)
	if err != nil {
		return Quiz{}, core.NewValidationError(err, core.FieldError{Field: "quiz_json", Error: err.Error()})
	}
	if _, err = ParseAnswerKey(nq.QuizAnswers, doc); err != nil {
		return Quiz{}, core.NewValidationError(err, core.FieldError{Field: "quiz_answers", Error: err.Error()})
	}

	if err = svc.repo.CheckLessonQuizUniqueness(ctx, nq.LessonID); err != nil {
		if errors.Cause(err) == ErrLessonQuizExists {
			return Quiz{}, core.NewValidationError(err, core.FieldError{Field: "lesson_id", Error: err.Error()})
		}
		return Quiz{}, err
	}

	now := time.Now().UTC()
	return svc.repo.CreateQuiz(ctx, Quiz{
		Name:        nq.Name,
		LessonID:    nq.LessonID,
		QuizJSON:    nq.QuizJSON,
		QuizAnswers: nq.QuizAnswers,
		Duration:    nq.Duration,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// GetByLesson fetches a lesson's quiz. The answer key travels only to
// callers allowed to see it.
func (svc *service) GetByLesson(ctx context.Context, lessonID int, includeKey bool) (Quiz, error) {
	qz, err := svc.repo.GetQuizByLessonID(ctx, lessonID)
	if err != nil {
		return Quiz{}, err
	}
	if !includeKey {
		qz.QuizAnswers = ""
	}
	return qz, nil
}

// Submit grades an attempt and records its result. A second attempt at
// the same quiz is rejected with ErrAlreadyCompleted.
func (svc *service) Submit(ctx context.Context, userID int, sub Submission) (Result, error) {
	qz, err := svc.repo.GetQuizByID(ctx, sub.QuizID)
	if err != nil {
		return Result{}, err
	}
	if _, err = svc.repo.GetResult(ctx, qz.ID, userID); err == nil {
		return Result{}, ErrAlreadyCompleted
	} else if errors.Cause(err) != ErrResultNotFound {
		return Result{}, err
	}

	doc, err := qz.Document()
	if err != nil {
		return Result{}, errors.Wrap(err, "parsing stored quiz")
	}
	key, err := ParseAnswerKey(qz.QuizAnswers, doc)
	if err != nil {
		return Result{}, errors.Wrap(err, "parsing stored answer key")
	}
	score, err := grade(doc, key, sub.SubmittedAnswers)
	if err != nil {
		return Result{}, err
	}

	rawAnswers, err := json.Marshal(sub.SubmittedAnswers)
	if err != nil {
		return Result{}, errors.Wrap(err, "encoding submitted answers")
	}
	return svc.repo.CreateResult(ctx, Result{
		QuizID:           qz.ID,
		UserID:           userID,
		Score:            score,
		StartTime:        sub.StartTime,
		EndTime:          sub.EndTime,
		SubmittedAnswers: string(rawAnswers),
		CreatedAt:        time.Now().UTC(),
	})
}

func (svc *service) ResultFor(ctx context.Context, quizID, userID int) (Result, error) {
	return svc.repo.GetResult(ctx, quizID, userID)
}

// grade scores a submission out of 100. A question is correct when its
// submitted texts equal the key's texts as sets.
func grade(doc Document, key AnswerKey, submitted SubmittedAnswers) (int, error) {
	byQuestion := make(map[int][]string, len(submitted.Answers))
	for _, ans := range submitted.Answers {
		if ans.QuestionID < 1 || ans.QuestionID > len(doc.Questions) {
			return 0, core.NewValidationError(
				errInvalidAnswers,
				core.FieldError{Field: "submitted_answers", Error: fmt.Sprintf("unknown question %d", ans.QuestionID)},
			)
		}
		if _, ok := byQuestion[ans.QuestionID]; ok {
			return 0, core.NewValidationError(
				errInvalidAnswers,
				core.FieldError{Field: "submitted_answers", Error: fmt.Sprintf("multiple answers for question %d", ans.QuestionID)},
			)
		}
		if len(ans.Answer) == 0 {
			return 0, core.NewValidationError(
				errInvalidAnswers,
				core.FieldError{Field: "submitted_answers", Error: fmt.Sprintf("no answer for question %d", ans.QuestionID)},
			)
		}
		q := doc.Questions[ans.QuestionID-1]
		for _, text := range ans.Answer {
			if !containsText(q.Answers, text) {
				return 0, core.NewValidationError(
					errInvalidAnswers,
					core.FieldError{Field: "submitted_answers", Error: fmt.Sprintf("answer %q is not an option of question %d", text, ans.QuestionID)},
				)
			}
		}
		byQuestion[ans.QuestionID] = ans.Answer
	}
	if len(byQuestion) != len(doc.Questions) {
		return 0, core.NewValidationError(
			errInvalidAnswers,
			core.FieldError{Field: "submitted_answers", Error: fmt.Sprintf("expected %d answers, got %d", len(doc.Questions), len(byQuestion))},
		)
	}

	var correct int
	for _, entry := range key.Answers {
		if sameTextSet(byQuestion[entry.QuestionID], entry.Answer) {
			correct++
		}
	}
	return int(math.Round(100 * float64(correct) / float64(len(doc.Questions)))), nil
}

func sameTextSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, text := range a {
		set[text] = true
	}
	for _, text := range b {
		if !set[text] {
			return false
		}
	}
	return true
}
