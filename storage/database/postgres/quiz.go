package pgdb

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/mrembo/urembo/core"
	"github.com/mrembo/urembo/core/quiz"
)

type quizRepository struct {
	db core.DBExecutor
}

func NewQuizRepository(db core.DBExecutor) quiz.Repository {
	return &quizRepository{db: db}
}

func (repo *quizRepository) CheckLessonQuizUniqueness(ctx context.Context, lessonID int) error {
	var count int
	if err := repo.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM quizzes WHERE lesson_id = $1`, lessonID); err != nil {
		return errors.Wrap(err, "checking lesson quiz uniqueness")
	}
	if count > 0 {
		return quiz.ErrLessonQuizExists
	}
	return nil
}

func (repo *quizRepository) CreateQuiz(ctx context.Context, qz quiz.Quiz) (quiz.Quiz, error) {
	query := `
		INSERT INTO quizzes (name, lesson_id, quiz_json, quiz_answers, duration, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	err := repo.db.GetContext(
		ctx, &qz.ID, query,
		qz.Name, qz.LessonID, qz.QuizJSON, qz.QuizAnswers, qz.Duration, qz.CreatedAt, qz.UpdatedAt,
	)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "creating quiz")
	}
	return qz, nil
}

func (repo *quizRepository) GetQuizByID(ctx context.Context, id int) (quiz.Quiz, error) {
	var qz quiz.Quiz
	if err := repo.db.GetContext(ctx, &qz, `SELECT * FROM quizzes WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return quiz.Quiz{}, quiz.ErrNotFound
		}
		return quiz.Quiz{}, errors.Wrap(err, "getting quiz")
	}
	return qz, nil
}

func (repo *quizRepository) GetQuizByLessonID(ctx context.Context, lessonID int) (quiz.Quiz, error) {
	var qz quiz.Quiz
	if err := repo.db.GetContext(ctx, &qz, `SELECT * FROM quizzes WHERE lesson_id = $1`, lessonID); err != nil {
		if err == sql.ErrNoRows {
			return quiz.Quiz{}, quiz.ErrNotFound
		}
		return quiz.Quiz{}, errors.Wrap(err, "getting quiz")
	}
	return qz, nil
}

func (repo *quizRepository) CreateResult(ctx context.Context, res quiz.Result) (quiz.Result, error) {
	query := `
		INSERT INTO quiz_results (quiz_id, user_id, score, start_time, end_time, submitted_answers, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	err := repo.db.GetContext(
		ctx, &res.ID, query,
		res.QuizID, res.UserID, res.Score, res.StartTime, res.EndTime, res.SubmittedAnswers, res.CreatedAt,
	)
	if err != nil {
		return quiz.Result{}, errors.Wrap(err, "creating quiz result")
	}
	return res, nil
}

func (repo *quizRepository) GetResult(ctx context.Context, quizID, userID int) (quiz.Result, error) {
	var res quiz.Result
	query := `SELECT * FROM quiz_results WHERE quiz_id = $1 AND user_id = $2`
	if err := repo.db.GetContext(ctx, &res, query, quizID, userID); err != nil {
		if err == sql.ErrNoRows {
			return quiz.Result{}, quiz.ErrResultNotFound
		}
		return quiz.Result{}, errors.Wrap(err, "getting quiz result")
	}
	return res, nil
}
